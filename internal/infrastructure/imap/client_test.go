package imap

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapserver"
	"github.com/emersion/go-imap/v2/imapserver/imapmemserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailtriage/internal/domain/email"
)

func TestParseID(t *testing.T) {
	validity, uid, err := parseID("7:42")
	require.NoError(t, err)
	assert.Equal(t, uint32(7), validity)
	assert.Equal(t, imap.UID(42), uid)
	assert.Equal(t, "7:42", formatID(validity, uid))

	for _, id := range []string{"42", "abc", "x:1", "1:x", "1:0", "1:99999999999", "99999999999:1"} {
		_, _, err := parseID(id)
		assert.Error(t, err, id)
	}
}

const (
	testUser = "ada@example.com"
	testPass = "secret"
)

func message(subject, body string) []byte {
	return []byte("From: Grace Hopper <grace@example.com>\r\n" +
		"Subject: " + subject + "\r\n" +
		"Message-Id: <" + subject + "@example.com>\r\n" +
		"\r\n" + body + "\r\n")
}

// newTestServer serves an in-memory mailbox on a loopback port and returns a
// client pointed at it plus the user for seeding messages.
func newTestServer(t *testing.T) (*Client, *imapmemserver.User) {
	t.Helper()

	mem := imapmemserver.New()
	user := imapmemserver.NewUser(testUser, testPass)
	require.NoError(t, user.Create("INBOX", nil))
	mem.AddUser(user)

	server := imapserver.New(&imapserver.Options{
		NewSession: func(*imapserver.Conn) (imapserver.Session, *imapserver.GreetingData, error) {
			return mem.NewSession(), nil, nil
		},
		Caps:         imap.CapSet{imap.CapIMAP4rev1: {}},
		InsecureAuth: true,
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = server.Serve(ln) }()
	t.Cleanup(func() { _ = server.Close() })

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)

	c := NewClient(Config{Host: host, Port: port, Username: testUser, Password: testPass}, zap.NewNop())
	c.plaintext = true
	c.timeout = 5 * time.Second
	return c, user
}

func appendMessage(t *testing.T, user *imapmemserver.User, raw []byte, flags ...imap.Flag) {
	t.Helper()
	_, err := user.Append("INBOX", bytes.NewReader(raw), &imap.AppendOptions{Flags: flags})
	require.NoError(t, err)
}

func TestClient_ListUnreadSkipsSeen(t *testing.T) {
	c, user := newTestServer(t)
	appendMessage(t, user, message("first", "one"))
	appendMessage(t, user, message("read", "two"), imap.FlagSeen)
	appendMessage(t, user, message("third", "three"))

	ids, err := c.ListUnread(context.Background())
	require.NoError(t, err)
	require.Len(t, ids, 2)

	v1, uid1, err := parseID(ids[0])
	require.NoError(t, err)
	v2, uid2, err := parseID(ids[1])
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Less(t, uid1, uid2)
}

func TestClient_FetchEmailLeavesMessageUnread(t *testing.T) {
	c, user := newTestServer(t)
	appendMessage(t, user, message("hello", "Can we schedule a call?"))
	ctx := context.Background()

	ids, err := c.ListUnread(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	e, err := c.FetchEmail(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, ids[0], e.ID)
	assert.Equal(t, "hello", e.Subject)
	assert.Equal(t, "grace@example.com", e.SenderAddress)
	assert.Contains(t, e.Body, "schedule a call")

	again, err := c.ListUnread(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids, again)
}

func TestClient_MarkReadRemovesFromUnread(t *testing.T) {
	c, user := newTestServer(t)
	appendMessage(t, user, message("a", "one"))
	appendMessage(t, user, message("b", "two"))
	ctx := context.Background()

	ids, err := c.ListUnread(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	require.NoError(t, c.MarkRead(ctx, ids[0]))

	remaining, err := c.ListUnread(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids[1:], remaining)
}

func TestClient_RejectsStaleUIDValidity(t *testing.T) {
	c, user := newTestServer(t)
	appendMessage(t, user, message("a", "one"))
	ctx := context.Background()

	ids, err := c.ListUnread(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	validity, uid, err := parseID(ids[0])
	require.NoError(t, err)
	stale := formatID(validity+1, uid)

	_, err = c.FetchEmail(ctx, stale)
	var transportErr *email.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Contains(t, err.Error(), "stale")

	require.Error(t, c.MarkRead(ctx, stale))

	unread, err := c.ListUnread(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids, unread)
}

func TestClient_FetchMissingUID(t *testing.T) {
	c, user := newTestServer(t)
	appendMessage(t, user, message("a", "one"))
	ctx := context.Background()

	ids, err := c.ListUnread(ctx)
	require.NoError(t, err)
	validity, _, err := parseID(ids[0])
	require.NoError(t, err)

	_, err = c.FetchEmail(ctx, formatID(validity, 999))
	var transportErr *email.TransportError
	assert.True(t, errors.As(err, &transportErr))
}

func TestClient_ConnectHonoursCancelledContext(t *testing.T) {
	c, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListUnread(ctx)
	var transportErr *email.TransportError
	require.True(t, errors.As(err, &transportErr))
}

func TestClient_LoginFailureIsTransportError(t *testing.T) {
	c, _ := newTestServer(t)
	c.cfg.Password = "wrong"

	_, err := c.ListUnread(context.Background())
	var transportErr *email.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Contains(t, err.Error(), "login")
}

func TestDecode_EmptyRawYieldsEmptyEmail(t *testing.T) {
	e := decode("7", nil, zap.NewNop())

	assert.Equal(t, "7", e.ID)
	assert.Equal(t, "", e.Body)
	assert.Equal(t, "", e.Subject)
}

func TestDecode_FillsFields(t *testing.T) {
	raw := []byte("From: Ada Lovelace <ada@example.com>\r\nSubject: Need help\r\nMessage-Id: <m1@example.com>\r\n\r\nIt broke.\r\n")

	e := decode("7", raw, zap.NewNop())

	assert.Equal(t, "Ada Lovelace", e.SenderName)
	assert.Equal(t, "ada@example.com", e.SenderAddress)
	assert.Equal(t, "Need help", e.Subject)
	assert.Equal(t, "<m1@example.com>", e.MessageID)
	assert.Contains(t, e.Body, "It broke.")
}

func TestNewClient_DefaultsMailbox(t *testing.T) {
	c := NewClient(Config{Host: "imap.example.com", Port: "993"}, zap.NewNop())

	assert.Equal(t, "INBOX", c.cfg.Mailbox)
}
