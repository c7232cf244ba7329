package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetGetDelete(t *testing.T) {
	s := NewStore(keyring.NewArrayKeyring(nil))

	require.NoError(t, s.Set("email_pass", "hunter2"))

	got, err := s.Get("email_pass")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got)

	require.NoError(t, s.Delete("email_pass"))

	_, err = s.Get("email_pass")
	assert.ErrorIs(t, err, keyring.ErrKeyNotFound)
}
