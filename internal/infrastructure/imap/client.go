package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"

	"mailtriage/internal/domain/email"
	"mailtriage/internal/infrastructure/mimemail"
)

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	TLS      bool
	Mailbox  string
}

// Client implements the mailbox port over IMAP. Every operation opens its own
// authenticated session and logs out when done.
//
// Message IDs have the form "<uidvalidity>:<uid>" so that an ID minted before
// the server renumbered the mailbox is rejected instead of hitting another
// message.
type Client struct {
	cfg     Config
	timeout time.Duration
	logger  *zap.Logger

	// plaintext skips TLS entirely. Only in-process test servers use it.
	plaintext bool
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	return &Client{cfg: cfg, timeout: 30 * time.Second, logger: logger}
}

// session is a logged-in connection with the configured mailbox selected.
type session struct {
	client   *imapclient.Client
	validity uint32
	stop     func() bool
}

func (s *session) close() {
	s.stop()
	_ = s.client.Logout().Wait()
	_ = s.client.Close()
}

func (c *Client) connect(ctx context.Context) (*session, error) {
	addr := net.JoinHostPort(c.cfg.Host, c.cfg.Port)
	dialer := &net.Dialer{Timeout: c.timeout}
	tlsConfig := &tls.Config{ServerName: c.cfg.Host}

	var conn net.Conn
	var err error
	if c.cfg.TLS && !c.plaintext {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, &email.TransportError{Op: "imap dial " + addr, Err: err}
	}

	var client *imapclient.Client
	if c.cfg.TLS || c.plaintext {
		client = imapclient.New(conn, nil)
	} else {
		client, err = imapclient.NewStartTLS(conn, &imapclient.Options{TLSConfig: tlsConfig})
		if err != nil {
			_ = conn.Close()
			return nil, &email.TransportError{Op: "imap starttls " + addr, Err: err}
		}
	}

	// Commands block on server responses; closing the connection unblocks
	// them once ctx is done.
	stop := context.AfterFunc(ctx, func() { _ = client.Close() })

	if err := client.Login(c.cfg.Username, c.cfg.Password).Wait(); err != nil {
		stop()
		_ = client.Close()
		return nil, &email.TransportError{Op: "imap login", Err: err}
	}

	selected, err := client.Select(c.cfg.Mailbox, nil).Wait()
	if err != nil {
		s := &session{client: client, stop: stop}
		s.close()
		return nil, &email.TransportError{Op: "imap select " + c.cfg.Mailbox, Err: err}
	}

	return &session{client: client, validity: selected.UIDValidity, stop: stop}, nil
}

// open connects and checks that messageID was minted under the mailbox's
// current UIDVALIDITY.
func (c *Client) open(ctx context.Context, messageID string) (*session, imap.UID, error) {
	validity, uid, err := parseID(messageID)
	if err != nil {
		return nil, 0, err
	}

	s, err := c.connect(ctx)
	if err != nil {
		return nil, 0, err
	}

	if validity != s.validity {
		s.close()
		return nil, 0, &email.TransportError{
			Op:  "imap select " + c.cfg.Mailbox,
			Err: fmt.Errorf("message %s is stale: mailbox UIDVALIDITY is now %d", messageID, s.validity),
		}
	}
	return s, uid, nil
}

// ListUnread returns the IDs of messages without the \Seen flag, oldest first.
func (c *Client) ListUnread(ctx context.Context) ([]string, error) {
	s, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer s.close()

	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}

	data, err := s.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, &email.TransportError{Op: "imap search", Err: err}
	}

	uids := data.AllUIDs()
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })

	ids := make([]string, 0, len(uids))
	for _, uid := range uids {
		ids = append(ids, formatID(s.validity, uid))
	}

	return ids, nil
}

// FetchEmail downloads the full message without setting \Seen and decodes it.
// Decoding problems are logged and leave the affected fields empty.
func (c *Client) FetchEmail(ctx context.Context, messageID string) (*email.Email, error) {
	s, uid, err := c.open(ctx, messageID)
	if err != nil {
		return nil, err
	}
	defer s.close()

	section := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := s.client.Fetch(imap.UIDSetNum(uid), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	})

	msg := fetchCmd.Next()
	if msg == nil {
		if err := fetchCmd.Close(); err != nil {
			return nil, &email.TransportError{Op: "imap fetch", Err: err}
		}
		return nil, &email.TransportError{Op: "imap fetch", Err: fmt.Errorf("message UID %d not found", uid)}
	}

	buf, err := msg.Collect()
	closeErr := fetchCmd.Close()
	if err != nil {
		return nil, &email.TransportError{Op: "imap fetch", Err: err}
	}
	if closeErr != nil {
		return nil, &email.TransportError{Op: "imap fetch", Err: closeErr}
	}

	return decode(messageID, buf.FindBodySection(section), c.logger), nil
}

// MarkRead sets the \Seen flag.
func (c *Client) MarkRead(ctx context.Context, messageID string) error {
	s, uid, err := c.open(ctx, messageID)
	if err != nil {
		return err
	}
	defer s.close()

	storeCmd := s.client.Store(imap.UIDSetNum(uid), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)

	if err := storeCmd.Close(); err != nil {
		return &email.TransportError{Op: "imap store", Err: err}
	}
	return nil
}

func decode(messageID string, raw []byte, logger *zap.Logger) *email.Email {
	parsed, err := mimemail.Parse(raw)
	if err != nil {
		logger.Warn("Email decoded with errors", zap.String("message_id", messageID), zap.Error(err))
	}

	e := email.NewEmail(messageID, parsed.SenderName, parsed.SenderAddress, parsed.Subject, parsed.Body)
	e.MessageID = parsed.MessageID
	return e
}

func formatID(validity uint32, uid imap.UID) string {
	return strconv.FormatUint(uint64(validity), 10) + ":" + strconv.FormatUint(uint64(uid), 10)
}

func parseID(messageID string) (uint32, imap.UID, error) {
	v, u, ok := strings.Cut(messageID, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid IMAP message ID %q: want <uidvalidity>:<uid>", messageID)
	}
	validity, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid UIDVALIDITY in %q: %w", messageID, err)
	}
	uid, err := strconv.ParseUint(u, 10, 32)
	if err != nil || uid == 0 {
		return 0, 0, fmt.Errorf("invalid IMAP UID in %q", messageID)
	}
	return uint32(validity), imap.UID(uid), nil
}
