package email

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"mailtriage/internal/domain/email"
)

// NegativePolarityThreshold is the polarity below which a message is treated
// as negative feedback regardless of its content.
const NegativePolarityThreshold = -0.2

var (
	dateKeywords  = []string{"meet", "call", "schedule"}
	moneyKeywords = []string{"invoice", "payment", "bill"}
)

// Keyword fallback rules, checked in order. Matching is by unanchored
// substring, so "unscheduled" still matches "schedule".
var keywordRules = []struct {
	intent   email.Intent
	keywords []string
}{
	{email.IntentMeetingRequest, []string{"schedule", "meeting", "call"}},
	{email.IntentSupportInquiry, []string{"help", "support", "issue", "problem"}},
	{email.IntentInvoiceQuestion, []string{"invoice", "billing", "payment"}},
}

type IntentClassifier struct {
	analyzer TextAnalyzer
	strict   bool
	recorder Recorder
	logger   *zap.Logger
}

type ClassifierOption func(*IntentClassifier)

// WithStrictAnalysis makes analyzer failures fatal instead of falling through
// to keyword matching.
func WithStrictAnalysis(strict bool) ClassifierOption {
	return func(c *IntentClassifier) { c.strict = strict }
}

func WithClassifierRecorder(r Recorder) ClassifierOption {
	return func(c *IntentClassifier) { c.recorder = r }
}

func NewIntentClassifier(analyzer TextAnalyzer, logger *zap.Logger, opts ...ClassifierOption) *IntentClassifier {
	c := &IntentClassifier{
		analyzer: analyzer,
		recorder: NopRecorder{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the intent of a message. Rules are applied in strict
// precedence: negative sentiment, then entity plus keyword co-occurrence, then
// plain keyword matching. The only error it returns is a CapabilityError, and
// only in strict mode.
func (c *IntentClassifier) Classify(ctx context.Context, subject, body string) (*email.Classification, error) {
	text := subject + " " + body

	analysis, err := c.analyzer.Analyze(ctx, text)
	if err != nil {
		c.recorder.AnalysisFailed()
		if c.strict {
			return nil, &email.CapabilityError{Capability: "text analysis", Err: err}
		}
		c.logger.Warn("text analysis failed, using keyword matching only", zap.Error(err))
		result := classifyByKeywords(subject, body, 0)
		result.Degraded = true
		return result, nil
	}

	if analysis.Polarity < NegativePolarityThreshold {
		c.logger.Debug("negative sentiment detected", zap.Float64("polarity", analysis.Polarity))
		return email.NewClassification(email.IntentNegativeFeedback, email.RuleNegativeSentiment, analysis.Polarity), nil
	}

	lower := strings.ToLower(text)

	if analysis.HasEntity(email.EntityDate) && containsAny(lower, dateKeywords) {
		c.logger.Debug("date entity detected, likely a meeting request")
		return email.NewClassification(email.IntentMeetingRequest, email.RuleDateEntity, analysis.Polarity), nil
	}

	if analysis.HasEntity(email.EntityMoney) && containsAny(lower, moneyKeywords) {
		c.logger.Debug("money entity detected, likely an invoice question")
		return email.NewClassification(email.IntentInvoiceQuestion, email.RuleMoneyEntity, analysis.Polarity), nil
	}

	c.logger.Debug("analysis inconclusive, falling back to keyword matching")
	return classifyByKeywords(subject, body, analysis.Polarity), nil
}

func classifyByKeywords(subject, body string, polarity float64) *email.Classification {
	subjectLower := strings.ToLower(subject)
	bodyLower := strings.ToLower(body)

	for _, rule := range keywordRules {
		if containsAny(subjectLower, rule.keywords) || containsAny(bodyLower, rule.keywords) {
			return email.NewClassification(rule.intent, email.RuleKeyword, polarity)
		}
	}

	return email.NewClassification(email.IntentNone, email.RuleNoMatch, polarity)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
