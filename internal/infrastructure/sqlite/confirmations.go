package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-storefront-bot/internal/domain"
)

// ConfirmationRepo persists the single pending challenge of each chat.
type ConfirmationRepo struct {
	db *DB
}

func NewConfirmationRepo(db *DB) *ConfirmationRepo {
	return &ConfirmationRepo{db: db}
}

// Replace atomically swaps whatever challenge the chat had for c.
func (r *ConfirmationRepo) Replace(ctx context.Context, c *domain.Confirmation) error {
	_, err := r.db.sqlDB.ExecContext(ctx,
		`INSERT INTO email_confirmations (chat_id, challenge_id, email, code_hash, confirmed, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET
		   challenge_id = excluded.challenge_id,
		   email = excluded.email,
		   code_hash = excluded.code_hash,
		   confirmed = excluded.confirmed,
		   created_at = excluded.created_at,
		   expires_at = excluded.expires_at`,
		c.ChatID, c.ChallengeID, c.Email, c.CodeHash, c.Confirmed, toMillis(c.CreatedAt), c.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("replace confirmation: %w", err)
	}
	return nil
}

func (r *ConfirmationRepo) Get(ctx context.Context, chatID int64) (*domain.Confirmation, error) {
	var (
		c       domain.Confirmation
		created int64
	)
	err := r.db.sqlDB.QueryRowContext(ctx,
		`SELECT chat_id, challenge_id, email, code_hash, confirmed, created_at, expires_at
		 FROM email_confirmations WHERE chat_id = ?`,
		chatID,
	).Scan(&c.ChatID, &c.ChallengeID, &c.Email, &c.CodeHash, &c.Confirmed, &created, &c.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("confirmation not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get confirmation: %w", err)
	}
	c.CreatedAt = fromMillis(created)
	return &c, nil
}

// MarkConfirmed confirms challengeID only while it is the active, unconfirmed challenge.
func (r *ConfirmationRepo) MarkConfirmed(ctx context.Context, chatID int64, challengeID string) error {
	res, err := r.db.sqlDB.ExecContext(ctx,
		`UPDATE email_confirmations SET confirmed = 1
		 WHERE chat_id = ? AND challenge_id = ? AND confirmed = 0`,
		chatID, challengeID,
	)
	if err != nil {
		return fmt.Errorf("mark confirmation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark confirmation: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("challenge superseded or already confirmed: %w", domain.ErrConflict)
	}
	return nil
}
