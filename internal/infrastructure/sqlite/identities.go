package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-storefront-bot/internal/domain"
)

// IdentityRepo persists chat identities.
type IdentityRepo struct {
	db *DB
}

func NewIdentityRepo(db *DB) *IdentityRepo {
	return &IdentityRepo{db: db}
}

func (r *IdentityRepo) Get(ctx context.Context, chatID int64) (*domain.Identity, error) {
	var (
		i       domain.Identity
		email   sql.NullString
		created int64
		updated int64
	)
	err := r.db.sqlDB.QueryRowContext(ctx,
		`SELECT chat_id, username, email, created_at, updated_at FROM identities WHERE chat_id = ?`,
		chatID,
	).Scan(&i.ChatID, &i.Username, &email, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("identity not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	if email.Valid {
		i.Email = &email.String
	}
	i.CreatedAt = fromMillis(created)
	i.UpdatedAt = fromMillis(updated)
	return &i, nil
}

// EnsureExists inserts the identity unless the chat is already known.
func (r *IdentityRepo) EnsureExists(ctx context.Context, i *domain.Identity) error {
	var email sql.NullString
	if i.Email != nil {
		email = sql.NullString{String: *i.Email, Valid: true}
	}
	_, err := r.db.sqlDB.ExecContext(ctx,
		`INSERT INTO identities (chat_id, username, email, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(chat_id) DO NOTHING`,
		i.ChatID, i.Username, email, toMillis(i.CreatedAt), toMillis(i.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("ensure identity: %w", err)
	}
	return nil
}

// SetEmail upserts the verified email; the username of an existing row is kept.
func (r *IdentityRepo) SetEmail(ctx context.Context, chatID int64, email string, now time.Time) error {
	_, err := r.db.sqlDB.ExecContext(ctx,
		`INSERT INTO identities (chat_id, username, email, created_at, updated_at)
		 VALUES (?, '', ?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET email = excluded.email, updated_at = excluded.updated_at`,
		chatID, email, toMillis(now), toMillis(now),
	)
	if err != nil {
		return fmt.Errorf("set identity email: %w", err)
	}
	return nil
}
