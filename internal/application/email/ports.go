package email

import (
	"context"
	"time"

	"mailtriage/internal/domain/email"
)

// TextAnalyzer is the sentiment and named-entity capability the classifier
// depends on.
type TextAnalyzer interface {
	Analyze(ctx context.Context, text string) (*email.Analysis, error)
}

type Mailbox interface {
	ListUnread(ctx context.Context) ([]string, error)
	FetchEmail(ctx context.Context, messageID string) (*email.Email, error)
	MarkRead(ctx context.Context, messageID string) error
}

// Labeler is implemented by mailboxes that can tag a message with its intent.
type Labeler interface {
	ApplyLabel(ctx context.Context, messageID string, intent email.Intent) error
}

type ReplySender interface {
	SendReply(ctx context.Context, reply *email.Reply) error
}

type EmailRepository interface {
	GetById(ctx context.Context, messageID string) (*email.Email, error)
	Save(ctx context.Context, e *email.Email) error
	EmailAlreadyProcessed(ctx context.Context, messageID string) (bool, error)
}

// Recorder receives triage counters. The zero value of NopRecorder discards them.
type Recorder interface {
	Classified(intent email.Intent, degraded bool)
	ReplySent(ok bool)
	AnalysisFailed()
	CycleFinished(d time.Duration)
}

type NopRecorder struct{}

func (NopRecorder) Classified(email.Intent, bool) {}
func (NopRecorder) ReplySent(bool)                {}
func (NopRecorder) AnalysisFailed()               {}
func (NopRecorder) CycleFinished(time.Duration)   {}
