package email

type Intent string

const (
	IntentMeetingRequest   Intent = "meeting_request"
	IntentSupportInquiry   Intent = "support_inquiry"
	IntentInvoiceQuestion  Intent = "invoice_question"
	IntentNegativeFeedback Intent = "negative_feedback"
	IntentNone             Intent = "none"
)

// Intents lists every detectable intent, IntentNone excluded.
var Intents = []Intent{
	IntentMeetingRequest,
	IntentSupportInquiry,
	IntentInvoiceQuestion,
	IntentNegativeFeedback,
}

func (i Intent) IsValid() bool {
	switch i {
	case IntentMeetingRequest, IntentSupportInquiry, IntentInvoiceQuestion, IntentNegativeFeedback, IntentNone:
		return true
	}
	return false
}

func (i Intent) String() string {
	return string(i)
}

// ParseIntent maps a stored label back to an Intent. Unknown and empty values
// become IntentNone.
func ParseIntent(s string) Intent {
	i := Intent(s)
	if !i.IsValid() {
		return IntentNone
	}
	return i
}
