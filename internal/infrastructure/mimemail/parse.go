// Package mimemail decodes inbound RFC 5322 messages and encodes replies.
package mimemail

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/encoding/charmap"

	"mailtriage/internal/domain/email"
)

func init() {
	charset.RegisterEncoding("windows-1252", charmap.Windows1252)
	charset.RegisterEncoding("iso-8859-1", charmap.ISO8859_1)
	charset.RegisterEncoding("iso-8859-15", charmap.ISO8859_15)
}

type Message struct {
	MessageID     string
	Subject       string
	SenderName    string
	SenderAddress string
	Body          string
}

// Parse decodes raw. It always returns a Message; fields that could not be
// decoded are left empty and reported in the returned error, which is a join
// of *email.DecodingError values.
func Parse(raw []byte) (*Message, error) {
	out := &Message{}
	var errs []error

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return out, &email.DecodingError{Field: "message", Err: err}
	}
	if err != nil {
		errs = append(errs, &email.DecodingError{Field: "charset", Err: err})
	}
	defer mr.Close()

	header := mr.Header

	out.MessageID = strings.TrimSpace(header.Get("Message-Id"))

	if subject, err := header.Subject(); err != nil {
		errs = append(errs, &email.DecodingError{Field: "subject", Err: err})
	} else {
		out.Subject = subject
	}

	if from, err := header.AddressList("From"); err != nil {
		errs = append(errs, &email.DecodingError{Field: "from", Err: err})
	} else if len(from) > 0 {
		out.SenderName = from[0].Name
		out.SenderAddress = from[0].Address
	}

	body, err := readBody(mr)
	if err != nil {
		errs = append(errs, &email.DecodingError{Field: "body", Err: err})
	}
	out.Body = body

	return out, errors.Join(errs...)
}

// readBody returns the first inline text/plain part, or the first text/html
// part with tags stripped when no plain text exists.
func readBody(mr *mail.Reader) (string, error) {
	var htmlBody string

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read part: %w", err)
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := h.ContentType()
		switch {
		case strings.HasPrefix(contentType, "text/plain"), contentType == "":
			b, err := io.ReadAll(part.Body)
			if err != nil {
				return "", fmt.Errorf("read text/plain: %w", err)
			}
			return string(b), nil
		case strings.HasPrefix(contentType, "text/html") && htmlBody == "":
			b, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			htmlBody = string(b)
		}
	}

	return StripHTML(htmlBody), nil
}

var htmlBreaks = strings.NewReplacer(
	"<br>", "\n", "<br/>", "\n", "<br />", "\n",
	"</p>", "\n", "</div>", "\n", "</li>", "\n", "</tr>", "\n",
)

var blankRuns = regexp.MustCompile(`\n[ \t\r]*\n(?:[ \t\r]*\n)+`)

// StripHTML renders HTML as plain text. Script and style contents are
// dropped with their tags.
func StripHTML(body string) string {
	if body == "" {
		return ""
	}

	text := bluemonday.StrictPolicy().Sanitize(htmlBreaks.Replace(body))
	text = html.UnescapeString(text)
	text = blankRuns.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
