package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNotification(t *testing.T) {
	n, err := parseNotification([]byte(`{"emailAddress":"me@example.com","historyId":12345}`))

	require.NoError(t, err)
	assert.Equal(t, "me@example.com", n.EmailAddress)
	assert.Equal(t, uint64(12345), n.HistoryID)

	_, err = parseNotification([]byte("not json"))
	assert.Error(t, err)
}

func TestAccept_DropsDuplicatesAndStale(t *testing.T) {
	s := &Subscriber{}

	assert.True(t, s.accept(&Notification{HistoryID: 10}))
	assert.False(t, s.accept(&Notification{HistoryID: 10}))
	assert.False(t, s.accept(&Notification{HistoryID: 9}))
	assert.True(t, s.accept(&Notification{HistoryID: 11}))
}
