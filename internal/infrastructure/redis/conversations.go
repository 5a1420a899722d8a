package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-storefront-bot/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	conversationPrefix = "storefront:conv:"
	updatePrefix       = "storefront:update:"
)

// ConversationStore persists the verification state of each chat with a sliding TTL.
type ConversationStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewConversationStore(client redis.UniversalClient, ttl time.Duration) *ConversationStore {
	return &ConversationStore{client: client, ttl: ttl}
}

func conversationKey(chatID int64) string {
	return conversationPrefix + strconv.FormatInt(chatID, 10)
}

// Get returns StateIdle when no state is stored.
func (s *ConversationStore) Get(ctx context.Context, chatID int64) (domain.ConversationState, error) {
	v, err := s.client.Get(ctx, conversationKey(chatID)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.StateIdle, nil
	}
	if err != nil {
		return "", fmt.Errorf("load conversation state: %w", err)
	}
	return parseState(v), nil
}

func (s *ConversationStore) Set(ctx context.Context, chatID int64, state domain.ConversationState) error {
	key := conversationKey(chatID)
	if state == domain.StateIdle {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("clear conversation state: %w", err)
		}
		return nil
	}
	if err := s.client.Set(ctx, key, string(state), s.ttl).Err(); err != nil {
		return fmt.Errorf("persist conversation state: %w", err)
	}
	return nil
}

// parseState maps unknown stored values to idle so a bad key never wedges a chat.
func parseState(v string) domain.ConversationState {
	switch st := domain.ConversationState(v); st {
	case domain.StateAwaitingEmail, domain.StateAwaitingCode:
		return st
	default:
		return domain.StateIdle
	}
}

// UpdateGuard drops Telegram updates that were already handled (webhook retries,
// overlapping pollers).
type UpdateGuard struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewUpdateGuard(client redis.UniversalClient, ttl time.Duration) *UpdateGuard {
	return &UpdateGuard{client: client, ttl: ttl}
}

func updateKey(updateID int) string {
	return updatePrefix + strconv.Itoa(updateID)
}

// FirstSeen records updateID and reports whether this call was the first to do so.
func (g *UpdateGuard) FirstSeen(ctx context.Context, updateID int) (bool, error) {
	ok, err := g.client.SetNX(ctx, updateKey(updateID), 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark update: %w", err)
	}
	return ok, nil
}

// Forget drops the record for updateID so the next delivery is accepted.
func (g *UpdateGuard) Forget(ctx context.Context, updateID int) error {
	if err := g.client.Del(ctx, updateKey(updateID)).Err(); err != nil {
		return fmt.Errorf("forget update: %w", err)
	}
	return nil
}
