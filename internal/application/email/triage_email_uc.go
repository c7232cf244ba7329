package email

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailtriage/internal/domain/email"
)

type TriageEmailUseCase struct {
	repo           EmailRepository
	mailbox        Mailbox
	sender         ReplySender
	classifier     *IntentClassifier
	composer       *ReplyComposer
	replyOnNoMatch bool
	recorder       Recorder
	logger         *zap.Logger
}

type TriageOption func(*TriageEmailUseCase)

// WithReplyOnNoMatch sends the fallback template to messages with no detected
// intent instead of leaving them unanswered.
func WithReplyOnNoMatch(enabled bool) TriageOption {
	return func(uc *TriageEmailUseCase) { uc.replyOnNoMatch = enabled }
}

func WithRecorder(r Recorder) TriageOption {
	return func(uc *TriageEmailUseCase) { uc.recorder = r }
}

func NewTriageEmailUseCase(
	repo EmailRepository,
	mailbox Mailbox,
	sender ReplySender,
	classifier *IntentClassifier,
	composer *ReplyComposer,
	logger *zap.Logger,
	opts ...TriageOption,
) *TriageEmailUseCase {
	uc := &TriageEmailUseCase{
		repo:       repo,
		mailbox:    mailbox,
		sender:     sender,
		classifier: classifier,
		composer:   composer,
		recorder:   NopRecorder{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Result describes what happened to a single message.
type Result struct {
	Email          *email.Email
	Classification *email.Classification
	Skipped        bool
	SendErr        error
}

type CycleReport struct {
	CycleID      string
	Listed       int
	Processed    int
	Skipped      int
	Failed       int
	Replied      int
	SendFailures int
	ByIntent     map[email.Intent]int
}

// RunCycle triages every unread message, one at a time, in the order the
// mailbox lists them. A failing message is logged and skipped; only a listing
// failure or a strict-mode capability failure aborts the cycle.
func (uc *TriageEmailUseCase) RunCycle(ctx context.Context) (*CycleReport, error) {
	start := time.Now()
	defer func() { uc.recorder.CycleFinished(time.Since(start)) }()

	report := &CycleReport{
		CycleID:  uuid.NewString(),
		ByIntent: make(map[email.Intent]int),
	}
	logger := uc.logger.With(zap.String("cycle_id", report.CycleID))

	ids, err := uc.mailbox.ListUnread(ctx)
	if err != nil {
		return report, fmt.Errorf("list unread: %w", err)
	}
	report.Listed = len(ids)

	if len(ids) == 0 {
		logger.Info("No new unread emails.")
		return report, nil
	}
	logger.Info("Found unread emails", zap.Int("count", len(ids)))

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		res, err := uc.process(ctx, logger, id)
		if err != nil {
			if email.IsCapability(err) {
				return report, fmt.Errorf("message %s: %w", id, err)
			}
			logger.Error("Failed to process email", zap.String("message_id", id), zap.Error(err))
			report.Failed++
			continue
		}

		if res.Skipped {
			report.Skipped++
			continue
		}

		report.Processed++
		report.ByIntent[res.Email.Intent]++
		if res.Email.Replied {
			report.Replied++
		}
		if res.SendErr != nil {
			report.SendFailures++
		}
	}

	logger.Info("Cycle finished",
		zap.Int("processed", report.Processed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int("replied", report.Replied),
		zap.Duration("took", time.Since(start)),
	)

	return report, nil
}

// Process triages a single message.
func (uc *TriageEmailUseCase) Process(ctx context.Context, messageID string) (*Result, error) {
	return uc.process(ctx, uc.logger, messageID)
}

func (uc *TriageEmailUseCase) process(ctx context.Context, logger *zap.Logger, messageID string) (*Result, error) {
	processed, err := uc.repo.EmailAlreadyProcessed(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("check processed: %w", err)
	}
	if processed {
		logger.Debug("Email already processed, skipping", zap.String("message_id", messageID))
		// A previous cycle saved it but failed to mark it read.
		if err := uc.mailbox.MarkRead(ctx, messageID); err != nil {
			logger.Warn("Failed to mark processed email as read", zap.String("message_id", messageID), zap.Error(err))
		}
		return &Result{Skipped: true}, nil
	}

	emailEntity, err := uc.mailbox.FetchEmail(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("fetch email: %w", err)
	}

	logger = logger.With(
		zap.String("message_id", messageID),
		zap.String("from", emailEntity.SenderAddress),
		zap.String("subject", emailEntity.Subject),
	)

	classification, err := uc.classifier.Classify(ctx, emailEntity.Subject, emailEntity.Body)
	if err != nil {
		return nil, err
	}

	emailEntity.Classify(classification.Intent)
	uc.recorder.Classified(classification.Intent, classification.Degraded)

	res := &Result{Email: emailEntity, Classification: classification}

	if labeler, ok := uc.mailbox.(Labeler); ok {
		if err := labeler.ApplyLabel(ctx, messageID, emailEntity.Intent); err != nil {
			logger.Warn("Failed to apply label", zap.Error(err))
		}
	}

	if emailEntity.NeedsReply() || uc.replyOnNoMatch {
		logger.Info("Intent detected, sending reply", zap.Stringer("intent", emailEntity.Intent))

		body := uc.composer.Compose(emailEntity.Intent, emailEntity.SenderName)
		if err := uc.sender.SendReply(ctx, email.NewReply(emailEntity, body)); err != nil {
			logger.Error("Failed to send reply", zap.Error(err))
			res.SendErr = err
			uc.recorder.ReplySent(false)
		} else {
			logger.Info("Reply successfully sent", zap.String("to", emailEntity.SenderAddress))
			emailEntity.Replied = true
			uc.recorder.ReplySent(true)
		}
	} else {
		logger.Info("No matching rule found. Ignoring.")
	}

	if err := uc.mailbox.MarkRead(ctx, messageID); err != nil {
		logger.Warn("Failed to mark email as read", zap.Error(err))
	}

	if err := uc.repo.Save(ctx, emailEntity); err != nil {
		return res, fmt.Errorf("save email: %w", err)
	}

	return res, nil
}
