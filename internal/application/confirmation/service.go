// Package confirmation issues and checks one-time e-mail codes. Each chat has
// at most one challenge; starting a new one supersedes the previous.
package confirmation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-storefront-bot/internal/domain"
	"github.com/go-storefront-bot/internal/pkg/id"
	"github.com/go-storefront-bot/internal/pkg/keylock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

var tracer = otel.Tracer("github.com/go-storefront-bot/internal/application/confirmation")

type Service interface {
	StartChallenge(ctx context.Context, chatID int64, email, code string) error
	// CheckCode returns the challenged email on a match. Failures wrap
	// domain.ErrNoActiveChallenge or domain.ErrCodeMismatch.
	//
	// On a match, apply (if non-nil) runs before the challenge is marked
	// confirmed. When apply fails the challenge stays answerable.
	CheckCode(ctx context.Context, chatID int64, submitted string, apply func(ctx context.Context, email string) error) (string, error)
}

type confirmationStore interface {
	Replace(ctx context.Context, c *domain.Confirmation) error
	Get(ctx context.Context, chatID int64) (*domain.Confirmation, error)
	MarkConfirmed(ctx context.Context, chatID int64, challengeID string) error
}

type service struct {
	repo     confirmationStore
	locks    *keylock.Locker
	ttl      time.Duration
	hashCost int
	now      func() time.Time
}

type ServiceDeps struct {
	Repo confirmationStore
	// TTL bounds how long a code can be answered; zero disables expiry.
	TTL      time.Duration
	HashCost int
	Now      func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		repo:     deps.Repo,
		locks:    keylock.New(),
		ttl:      deps.TTL,
		hashCost: deps.HashCost,
		now:      deps.Now,
	}
	if s.hashCost == 0 {
		s.hashCost = bcrypt.DefaultCost
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *service) StartChallenge(ctx context.Context, chatID int64, email, code string) error {
	ctx, span := tracer.Start(ctx, "confirmation.StartChallenge")
	defer span.End()
	span.SetAttributes(attribute.Int64("chat_id", chatID))

	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}
	now := s.now()
	c := &domain.Confirmation{
		ChatID:      chatID,
		ChallengeID: id.New(),
		Email:       email,
		CodeHash:    string(hash),
		CreatedAt:   now,
	}
	if s.ttl > 0 {
		c.ExpiresAt = now.Add(s.ttl).Unix()
	}

	unlock := s.locks.Lock(chatID)
	defer unlock()
	if err := s.repo.Replace(ctx, c); err != nil {
		span.RecordError(err)
		return fmt.Errorf("store challenge: %w", err)
	}
	return nil
}

func (s *service) CheckCode(ctx context.Context, chatID int64, submitted string, apply func(ctx context.Context, email string) error) (string, error) {
	ctx, span := tracer.Start(ctx, "confirmation.CheckCode")
	defer span.End()
	span.SetAttributes(attribute.Int64("chat_id", chatID))

	unlock := s.locks.Lock(chatID)
	defer unlock()

	c, err := s.repo.Get(ctx, chatID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.ErrNoActiveChallenge
	}
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("load challenge: %w", err)
	}
	if c.Confirmed {
		return "", fmt.Errorf("already confirmed: %w", domain.ErrNoActiveChallenge)
	}
	if c.Expired(s.now()) {
		return "", fmt.Errorf("expired: %w", domain.ErrNoActiveChallenge)
	}

	err = bcrypt.CompareHashAndPassword([]byte(c.CodeHash), []byte(strings.TrimSpace(submitted)))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return "", domain.ErrCodeMismatch
	}
	if err != nil {
		return "", fmt.Errorf("compare code: %w", err)
	}

	if apply != nil {
		if err := apply(ctx, c.Email); err != nil {
			span.RecordError(err)
			return "", err
		}
	}
	if err := s.repo.MarkConfirmed(ctx, chatID, c.ChallengeID); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return "", fmt.Errorf("superseded: %w", domain.ErrNoActiveChallenge)
		}
		span.RecordError(err)
		return "", fmt.Errorf("confirm challenge: %w", err)
	}
	return c.Email, nil
}
