package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"go.uber.org/zap"

	"mailtriage/internal/domain/email"
	"mailtriage/internal/infrastructure/mimemail"
)

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	// TLS selects implicit TLS (port 465). Otherwise STARTTLS is used.
	TLS bool
}

// Sender delivers replies over authenticated SMTP, one connection per reply.
type Sender struct {
	cfg     Config
	timeout time.Duration
	logger  *zap.Logger
}

func NewSender(cfg Config, logger *zap.Logger) *Sender {
	return &Sender{cfg: cfg, timeout: 30 * time.Second, logger: logger}
}

func (s *Sender) SendReply(ctx context.Context, reply *email.Reply) error {
	if reply.To == "" {
		return &email.TransportError{Op: "smtp send", Err: fmt.Errorf("reply has no recipient")}
	}

	raw, err := mimemail.Compose(s.cfg.Username, reply)
	if err != nil {
		return fmt.Errorf("compose reply: %w", err)
	}

	client, err := s.dial(ctx)
	if err != nil {
		return &email.TransportError{Op: "smtp dial", Err: err}
	}
	defer client.Close()

	if err := deliver(client, s.cfg.Username, reply.To, raw); err != nil {
		return &email.TransportError{Op: "smtp send", Err: err}
	}

	s.logger.Debug("SMTP delivery accepted", zap.String("to", reply.To))
	return nil
}

func (s *Sender) dial(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	dialer := &net.Dialer{Timeout: s.timeout}
	tlsConfig := &tls.Config{ServerName: s.cfg.Host}

	var conn net.Conn
	var err error
	if s.cfg.TLS {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating SMTP client: %w", err)
	}

	if !s.cfg.TLS {
		if err := client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return nil, fmt.Errorf("SMTP STARTTLS: %w", err)
		}
	}

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	if err := client.Auth(auth); err != nil {
		client.Close()
		return nil, fmt.Errorf("SMTP auth: %w", err)
	}

	return client, nil
}

// deliver runs MAIL, RCPT and DATA on an authenticated client.
func deliver(client *smtp.Client, from, to string, raw []byte) error {
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("SMTP MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("SMTP RCPT TO: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing message: %w", err)
	}

	return client.Quit()
}
