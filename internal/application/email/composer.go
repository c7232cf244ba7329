package email

import (
	"strings"

	"mailtriage/internal/domain/email"
)

type ReplyComposer struct {
	templates *TemplateSet
}

func NewReplyComposer(templates *TemplateSet) *ReplyComposer {
	if templates == nil {
		templates = DefaultTemplates()
	}
	return &ReplyComposer{templates: templates}
}

// Compose renders the template for intent, or the fallback text when none is
// defined, greeting the sender by first name.
func (c *ReplyComposer) Compose(intent email.Intent, senderName string) string {
	template, ok := c.templates.Templates[intent]
	if !ok {
		template = c.templates.Fallback
	}
	return strings.ReplaceAll(template, nameSlot, firstName(senderName))
}

func firstName(senderName string) string {
	fields := strings.Fields(senderName)
	if len(fields) == 0 {
		return "there"
	}
	return fields[0]
}
