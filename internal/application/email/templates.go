package email

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mailtriage/internal/domain/email"
)

const nameSlot = "{name}"

const defaultFallback = "Thank you for your email. We will get back to you shortly."

var defaultTemplates = map[email.Intent]string{
	email.IntentMeetingRequest: `Hello {name},

Thank you for reaching out to schedule a meeting. I am available to connect.

Please let me know what time works best for you.

Best,
Your AI Assistant
`,
	email.IntentSupportInquiry: `Hello {name},

Thank you for your message. We have received your support request.

Our team will review it and get back to you within 24 hours.

Best,
Your AI Assistant
`,
	email.IntentInvoiceQuestion: `Hello {name},

Thank you for your email regarding an invoice.

We have received your query and will have our billing department look into it right away.

Best,
Your AI Assistant
`,
	email.IntentNegativeFeedback: `Hello {name},

We are very sorry to hear you've had a negative experience.

Your feedback is important, and we are looking into the issue you raised immediately. A member of our team will reach out to you personally to resolve this.

Sincerely,
Your AI Assistant
`,
}

// TemplateSet maps intents to reply templates. Each template may contain a
// single {name} slot.
type TemplateSet struct {
	Templates map[email.Intent]string
	Fallback  string
}

type templateFile struct {
	Templates map[string]string `yaml:"templates"`
	Fallback  string            `yaml:"fallback"`
}

func DefaultTemplates() *TemplateSet {
	set := &TemplateSet{
		Templates: make(map[email.Intent]string, len(defaultTemplates)),
		Fallback:  defaultFallback,
	}
	for intent, text := range defaultTemplates {
		set.Templates[intent] = text
	}
	return set
}

// LoadTemplates reads a YAML file and overlays it on the built-in templates.
// An empty path returns the defaults.
func LoadTemplates(path string) (*TemplateSet, error) {
	set := DefaultTemplates()
	if path == "" {
		return set, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}

	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse templates %s: %w", path, err)
	}

	for key, text := range file.Templates {
		intent := email.Intent(key)
		if !intent.IsValid() || intent == email.IntentNone {
			return nil, fmt.Errorf("templates %s: unknown intent %q", path, key)
		}
		set.Templates[intent] = text
	}
	if file.Fallback != "" {
		set.Fallback = file.Fallback
	}

	return set, nil
}
