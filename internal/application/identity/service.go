// Package identity maps a chat to its optional verified e-mail address.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-storefront-bot/internal/domain"
)

type Service interface {
	// Get returns the verified email; ok is false for unknown or unverified chats.
	Get(ctx context.Context, chatID int64) (email string, ok bool, err error)
	Set(ctx context.Context, chatID int64, email string) error
	EnsureExists(ctx context.Context, chatID int64, username string) error
}

type identityStore interface {
	Get(ctx context.Context, chatID int64) (*domain.Identity, error)
	EnsureExists(ctx context.Context, i *domain.Identity) error
	SetEmail(ctx context.Context, chatID int64, email string, now time.Time) error
}

type service struct {
	repo identityStore
	now  func() time.Time
}

func NewService(repo identityStore) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) Get(ctx context.Context, chatID int64) (string, bool, error) {
	i, err := s.repo.Get(ctx, chatID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get identity: %w", err)
	}
	email, ok := i.VerifiedEmail()
	return email, ok, nil
}

func (s *service) Set(ctx context.Context, chatID int64, email string) error {
	if err := s.repo.SetEmail(ctx, chatID, email, s.now()); err != nil {
		return fmt.Errorf("set identity email: %w", err)
	}
	return nil
}

func (s *service) EnsureExists(ctx context.Context, chatID int64, username string) error {
	now := s.now()
	err := s.repo.EnsureExists(ctx, &domain.Identity{
		ChatID:    chatID,
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("ensure identity: %w", err)
	}
	return nil
}
