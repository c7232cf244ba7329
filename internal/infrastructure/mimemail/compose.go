package mimemail

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message/mail"

	"mailtriage/internal/domain/email"
)

// Compose encodes reply as a single-part text/plain message threaded onto the
// original via In-Reply-To and References. An empty from leaves the From
// header for the submission server to fill in.
func Compose(from string, reply *email.Reply) ([]byte, error) {
	var h mail.Header
	h.SetDate(time.Now())
	if from != "" {
		h.SetAddressList("From", []*mail.Address{{Address: from}})
	}
	h.SetAddressList("To", []*mail.Address{{Address: reply.To}})
	h.SetSubject(reply.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generate message id: %w", err)
	}
	if reply.InReplyTo != "" {
		h.Set("In-Reply-To", reply.InReplyTo)
		h.Set("References", reply.InReplyTo)
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create writer: %w", err)
	}
	if _, err := io.WriteString(w, reply.Body); err != nil {
		return nil, fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close writer: %w", err)
	}

	return buf.Bytes(), nil
}
