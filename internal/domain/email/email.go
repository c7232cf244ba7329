package email

import "time"

type Email struct {
	ID            string
	MessageID     string
	SenderName    string
	SenderAddress string
	Subject       string
	Body          string
	Intent        Intent
	Replied       bool
	CreatedAt     time.Time
}

func NewEmail(id, senderName, senderAddress, subject, body string) *Email {
	return &Email{
		ID:            id,
		SenderName:    senderName,
		SenderAddress: senderAddress,
		Subject:       subject,
		Body:          body,
		Intent:        IntentNone,
		CreatedAt:     time.Now(),
	}
}

func (e *Email) Classify(intent Intent) {
	e.Intent = intent
}

// NeedsReply reports whether an intent was detected. Messages classified as
// IntentNone are left unanswered.
func (e *Email) NeedsReply() bool {
	return e.Intent != IntentNone
}
