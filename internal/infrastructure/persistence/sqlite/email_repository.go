package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mailtriage/internal/domain/email"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by GetById for unknown message IDs.
var ErrNotFound = errors.New("email not found")

// EmailRepository is the triage ledger: one row per processed message.
type EmailRepository struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS emails (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    mailbox_id TEXT UNIQUE NOT NULL,
    message_id TEXT,
    sender_name TEXT,
    sender_addr TEXT,
    subject TEXT,
    body TEXT,
    intent TEXT NOT NULL,
    replied INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_emails_intent ON emails(intent);
`

func NewEmailRepository(dbPath string) (*EmailRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	for _, pragma := range []string{"PRAGMA journal_mode=WAL;", "PRAGMA busy_timeout = 5000;"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &EmailRepository{db: db}, nil
}

func (r *EmailRepository) GetById(ctx context.Context, mailboxID string) (*email.Email, error) {
	var e email.Email
	var intent string
	var replied int
	var createdAt int64

	err := r.db.QueryRowContext(ctx,
		`SELECT mailbox_id, message_id, sender_name, sender_addr, subject, body, intent, replied, created_at
		 FROM emails WHERE mailbox_id = ?`,
		mailboxID,
	).Scan(&e.ID, &e.MessageID, &e.SenderName, &e.SenderAddress, &e.Subject, &e.Body, &intent, &replied, &createdAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, mailboxID)
	}
	if err != nil {
		return nil, fmt.Errorf("query email: %w", err)
	}

	e.Intent = email.ParseIntent(intent)
	e.Replied = replied != 0
	e.CreatedAt = time.Unix(createdAt, 0)

	return &e, nil
}

func (r *EmailRepository) Save(ctx context.Context, e *email.Email) error {
	replied := 0
	if e.Replied {
		replied = 1
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO emails
         (mailbox_id, message_id, sender_name, sender_addr, subject, body, intent, replied, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.MessageID, e.SenderName, e.SenderAddress, e.Subject, e.Body,
		string(e.Intent), replied, e.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("save email: %w", err)
	}

	return nil
}

func (r *EmailRepository) EmailAlreadyProcessed(ctx context.Context, mailboxID string) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM emails WHERE mailbox_id = ? LIMIT 1`,
		mailboxID,
	).Scan(&exists)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check processed: %w", err)
	}

	return true, nil
}

// CountByIntent summarizes the ledger.
func (r *EmailRepository) CountByIntent(ctx context.Context) (map[email.Intent]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT intent, COUNT(*) FROM emails GROUP BY intent`)
	if err != nil {
		return nil, fmt.Errorf("count by intent: %w", err)
	}
	defer rows.Close()

	counts := make(map[email.Intent]int)
	for rows.Next() {
		var intent string
		var n int
		if err := rows.Scan(&intent, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[email.ParseIntent(intent)] += n
	}

	return counts, rows.Err()
}

func (r *EmailRepository) Close() error {
	return r.db.Close()
}
