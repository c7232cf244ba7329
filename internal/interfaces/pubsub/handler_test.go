package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingTrigger struct{ n int }

func (c *countingTrigger) Trigger() { c.n++ }

func TestHandleNotification_Triggers(t *testing.T) {
	trigger := &countingTrigger{}
	h := NewHandler(trigger, zap.NewNop())

	h.HandleNotification(1)
	h.HandleNotification(2)

	assert.Equal(t, 2, trigger.n)
}
