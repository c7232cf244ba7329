package email

import "strings"

type Reply struct {
	To        string
	Subject   string
	Body      string
	InReplyTo string
}

// ReplySubject prefixes subject with "Re: " unless it already carries one.
func ReplySubject(subject string) string {
	trimmed := strings.TrimSpace(subject)
	if strings.HasPrefix(strings.ToLower(trimmed), "re:") {
		return trimmed
	}
	return "Re: " + trimmed
}

func NewReply(original *Email, body string) *Reply {
	return &Reply{
		To:        original.SenderAddress,
		Subject:   ReplySubject(original.Subject),
		Body:      body,
		InReplyTo: original.MessageID,
	}
}
