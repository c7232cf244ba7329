package pubsub

import (
	"go.uber.org/zap"
)

// Triggerer schedules a triage cycle.
type Triggerer interface {
	Trigger()
}

// Handler turns Gmail push notifications into triage cycles. The cycle lists
// unread mail itself, so the history ID only serves for logging.
type Handler struct {
	runner Triggerer
	logger *zap.Logger
}

func NewHandler(runner Triggerer, logger *zap.Logger) *Handler {
	return &Handler{
		runner: runner,
		logger: logger,
	}
}

func (h *Handler) HandleNotification(historyID uint64) {
	h.logger.Debug("Scheduling triage cycle", zap.Uint64("history_id", historyID))
	h.runner.Trigger()
}
