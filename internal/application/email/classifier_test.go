package email

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailtriage/internal/domain/email"
	"mailtriage/internal/infrastructure/analysis"
)

var (
	dateEntity  = email.Entity{Text: "next week", Label: email.EntityDate}
	moneyEntity = email.Entity{Text: "$50", Label: email.EntityMoney}
)

func classify(t *testing.T, stub *analysis.Stub, subject, body string) *email.Classification {
	t.Helper()
	c := NewIntentClassifier(stub, zap.NewNop())
	result, err := c.Classify(context.Background(), subject, body)
	require.NoError(t, err)
	return result
}

func TestClassify_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		body     string
		stub     *analysis.Stub
		expected email.Intent
		rule     email.Rule
	}{
		{
			name:     "meeting request with date entity",
			subject:  "Can we schedule a call next week?",
			stub:     analysis.NewStub(0.1, dateEntity),
			expected: email.IntentMeetingRequest,
			rule:     email.RuleDateEntity,
		},
		{
			name:     "negative feedback",
			subject:  "Your service is terrible",
			body:     "I am furious",
			stub:     analysis.NewStub(-0.6),
			expected: email.IntentNegativeFeedback,
			rule:     email.RuleNegativeSentiment,
		},
		{
			name:     "invoice question with money entity",
			subject:  "Invoice #123 payment",
			stub:     analysis.NewStub(0.0, moneyEntity),
			expected: email.IntentInvoiceQuestion,
			rule:     email.RuleMoneyEntity,
		},
		{
			name:     "no match",
			subject:  "random",
			body:     "random",
			stub:     analysis.NewStub(0.0),
			expected: email.IntentNone,
			rule:     email.RuleNoMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classify(t, tt.stub, tt.subject, tt.body)
			assert.Equal(t, tt.expected, result.Intent)
			assert.Equal(t, tt.rule, result.Rule)
		})
	}
}

func TestClassify_NegativeSentimentOverridesEverything(t *testing.T) {
	stub := analysis.NewStub(-0.5, dateEntity, moneyEntity)

	result := classify(t, stub, "Invoice meeting next week", "schedule a call about the payment, I need help")

	assert.Equal(t, email.IntentNegativeFeedback, result.Intent)
}

func TestClassify_ThresholdIsExclusive(t *testing.T) {
	result := classify(t, analysis.NewStub(-0.2), "random", "")

	assert.Equal(t, email.IntentNone, result.Intent)
}

func TestClassify_MeetingRuleBeatsInvoiceRule(t *testing.T) {
	stub := analysis.NewStub(0.0, dateEntity, moneyEntity)

	result := classify(t, stub, "Call about the invoice", "schedule a payment review")

	assert.Equal(t, email.IntentMeetingRequest, result.Intent)
	assert.Equal(t, email.RuleDateEntity, result.Rule)
}

func TestClassify_DateEntityWithoutKeywordFallsThrough(t *testing.T) {
	stub := analysis.NewStub(0.0, dateEntity)

	result := classify(t, stub, "Server issue since Monday", "")

	assert.Equal(t, email.IntentSupportInquiry, result.Intent)
	assert.Equal(t, email.RuleKeyword, result.Rule)
}

func TestClassify_EntityRuleUsesShortKeywords(t *testing.T) {
	// "meet" and "bill" only count together with an entity.
	withDate := classify(t, analysis.NewStub(0, dateEntity), "Let's meet", "")
	withoutDate := classify(t, analysis.NewStub(0), "Let's meet", "")
	withMoney := classify(t, analysis.NewStub(0, moneyEntity), "Your bill", "")

	assert.Equal(t, email.IntentMeetingRequest, withDate.Intent)
	assert.Equal(t, email.IntentNone, withoutDate.Intent)
	assert.Equal(t, email.IntentInvoiceQuestion, withMoney.Intent)
}

func TestClassify_KeywordFallbackOrder(t *testing.T) {
	tests := []struct {
		subject  string
		body     string
		expected email.Intent
	}{
		{"Weekly MEETING", "", email.IntentMeetingRequest},
		{"", "please call me", email.IntentMeetingRequest},
		{"Need help", "", email.IntentSupportInquiry},
		{"Problem with login", "", email.IntentSupportInquiry},
		{"Billing", "", email.IntentInvoiceQuestion},
		{"help with my invoice", "", email.IntentSupportInquiry},
		{"Invoice", "we should schedule", email.IntentMeetingRequest},
	}

	for _, tt := range tests {
		t.Run(tt.subject+"|"+tt.body, func(t *testing.T) {
			result := classify(t, analysis.NewStub(0.0), tt.subject, tt.body)
			assert.Equal(t, tt.expected, result.Intent)
		})
	}
}

func TestClassify_SubstringMatchIsUnanchored(t *testing.T) {
	result := classify(t, analysis.NewStub(0.0), "Unscheduled downtime", "")

	assert.Equal(t, email.IntentMeetingRequest, result.Intent)
}

func TestClassify_AnalyzesSubjectAndBodyTogether(t *testing.T) {
	stub := analysis.NewStub(0.0)

	classify(t, stub, "Hello", "")
	classify(t, stub, "Hello", "world")

	assert.Equal(t, []string{"Hello ", "Hello world"}, stub.Texts())
}

func TestClassify_Idempotent(t *testing.T) {
	stub := analysis.NewStub(0.1, dateEntity)

	first := classify(t, stub, "Can we schedule a call next week?", "")
	second := classify(t, stub, "Can we schedule a call next week?", "")

	assert.Equal(t, first, second)
}

func TestClassify_CapabilityFailureDegradesToKeywords(t *testing.T) {
	stub := &analysis.Stub{Err: errors.New("model unavailable")}

	result := classify(t, stub, "I need support", "")

	assert.Equal(t, email.IntentSupportInquiry, result.Intent)
	assert.True(t, result.Degraded)
}

func TestClassify_CapabilityFailureStrict(t *testing.T) {
	stub := &analysis.Stub{Err: errors.New("model unavailable")}
	c := NewIntentClassifier(stub, zap.NewNop(), WithStrictAnalysis(true))

	_, err := c.Classify(context.Background(), "I need support", "")

	require.Error(t, err)
	assert.True(t, email.IsCapability(err))
}
