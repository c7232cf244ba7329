package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"

	domain "mailtriage/internal/domain/email"
	"mailtriage/internal/infrastructure/mimemail"
)

const unreadQuery = "is:unread in:inbox"

// Client implements the mailbox and reply ports over the Gmail API.
type Client struct {
	Srv      *gmail.Service
	LabelIDs map[string]string
	user     string
	from     string
	logger   *zap.Logger
}

// NewClient creates a Gmail adapter. from is the address used in the From
// header of replies.
func NewClient(srv *gmail.Service, from string, logger *zap.Logger) *Client {
	return &Client{
		Srv:      srv,
		LabelIDs: make(map[string]string),
		user:     "me",
		from:     from,
		logger:   logger,
	}
}

// labelMap maps intents to the Gmail labels applied after triage.
var labelMap = map[domain.Intent]string{
	domain.IntentMeetingRequest:   "Triage/Meeting Request",
	domain.IntentSupportInquiry:   "Triage/Support Inquiry",
	domain.IntentInvoiceQuestion:  "Triage/Invoice Question",
	domain.IntentNegativeFeedback: "Triage/Negative Feedback",
}

func (c *Client) InitLabels(ctx context.Context) error {
	list, err := c.Srv.Users.Labels.List(c.user).Context(ctx).Do()
	if err != nil {
		return &domain.TransportError{Op: "gmail list labels", Err: err}
	}

	for _, l := range list.Labels {
		c.LabelIDs[l.Name] = l.Id
	}

	for _, gmailName := range labelMap {
		if _, ok := c.LabelIDs[gmailName]; ok {
			continue
		}

		created, err := c.Srv.Users.Labels.Create(c.user, &gmail.Label{Name: gmailName}).Context(ctx).Do()
		if err != nil {
			if strings.Contains(err.Error(), "Label name exists or conflicts") {
				c.logger.Info("Label already exists (409 conflict), continuing", zap.String("label", gmailName))
				continue
			}
			return &domain.TransportError{Op: "gmail create label", Err: err}
		}

		c.LabelIDs[gmailName] = created.Id
	}

	return nil
}

func (c *Client) ListUnread(ctx context.Context) ([]string, error) {
	var ids []string

	err := c.Srv.Users.Messages.List(c.user).
		Q(unreadQuery).
		Pages(ctx, func(resp *gmail.ListMessagesResponse) error {
			for _, msg := range resp.Messages {
				ids = append(ids, msg.Id)
			}
			return nil
		})
	if err != nil {
		return nil, &domain.TransportError{Op: "gmail list messages", Err: err}
	}

	// Gmail lists newest first; triage oldest first.
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}

	return ids, nil
}

func (c *Client) FetchEmail(ctx context.Context, messageID string) (*domain.Email, error) {
	msg, err := c.Srv.Users.Messages.Get(c.user, messageID).Format("raw").Context(ctx).Do()
	if err != nil {
		return nil, &domain.TransportError{Op: "gmail get message", Err: err}
	}

	raw, err := decodeRaw(msg.Raw)
	if err != nil {
		c.logger.Warn("Cannot decode raw message", zap.String("message_id", messageID), zap.Error(err))
	}

	parsed, err := mimemail.Parse(raw)
	if err != nil {
		c.logger.Warn("Email decoded with errors", zap.String("message_id", messageID), zap.Error(err))
	}

	e := domain.NewEmail(messageID, parsed.SenderName, parsed.SenderAddress, parsed.Subject, parsed.Body)
	e.MessageID = parsed.MessageID
	return e, nil
}

func (c *Client) MarkRead(ctx context.Context, messageID string) error {
	_, err := c.Srv.Users.Messages.Modify(c.user, messageID, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}).Context(ctx).Do()
	if err != nil {
		return &domain.TransportError{Op: "gmail modify message", Err: err}
	}
	return nil
}

// ApplyLabel tags a message with the label of its intent. IntentNone is a no-op.
func (c *Client) ApplyLabel(ctx context.Context, messageID string, intent domain.Intent) error {
	gmailName, ok := labelMap[intent]
	if !ok {
		return nil
	}

	labelID := c.LabelIDs[gmailName]
	if labelID == "" {
		return fmt.Errorf("label ID not found for %q", gmailName)
	}

	_, err := c.Srv.Users.Messages.Modify(c.user, messageID, &gmail.ModifyMessageRequest{
		AddLabelIds: []string{labelID},
	}).Context(ctx).Do()
	if err != nil {
		return &domain.TransportError{Op: "gmail apply label", Err: err}
	}
	return nil
}

func (c *Client) SendReply(ctx context.Context, reply *domain.Reply) error {
	raw, err := mimemail.Compose(c.from, reply)
	if err != nil {
		return fmt.Errorf("compose reply: %w", err)
	}

	_, err = c.Srv.Users.Messages.Send(c.user, &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return &domain.TransportError{Op: "gmail send", Err: err}
	}
	return nil
}

// EnableWatch enables Gmail push notifications to a Pub/Sub topic.
func (c *Client) EnableWatch(ctx context.Context, topicName string) error {
	req := &gmail.WatchRequest{
		TopicName:         topicName,
		LabelIds:          []string{"INBOX"},
		LabelFilterAction: "include",
	}

	resp, err := c.Srv.Users.Watch(c.user, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("gmail watch: %w", err)
	}

	c.logger.Info("Watch enabled", zap.Int64("expiration", resp.Expiration))
	return nil
}

// decodeRaw accepts both padded and unpadded base64url, as Gmail is not
// consistent about padding.
func decodeRaw(raw string) ([]byte, error) {
	raw = strings.TrimRight(raw, "=")
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, &domain.DecodingError{Field: "raw", Err: err}
	}
	return b, nil
}
