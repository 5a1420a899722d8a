package memory

import (
	"context"
	"sync"
	"time"

	"github.com/go-storefront-bot/internal/domain"
)

type conversation struct {
	state     domain.ConversationState
	expiresAt time.Time
}

// ConversationStore keeps each chat's verification state for ttl after its last change.
type ConversationStore struct {
	mu    sync.Mutex
	items map[int64]conversation
	ttl   time.Duration
	now   func() time.Time
}

func NewConversationStore(ttl time.Duration) *ConversationStore {
	return &ConversationStore{items: make(map[int64]conversation), ttl: ttl, now: time.Now}
}

// Get returns StateIdle for unknown or expired chats.
func (s *ConversationStore) Get(_ context.Context, chatID int64) (domain.ConversationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.items[chatID]
	if !ok {
		return domain.StateIdle, nil
	}
	if s.ttl > 0 && !s.now().Before(c.expiresAt) {
		delete(s.items, chatID)
		return domain.StateIdle, nil
	}
	return c.state, nil
}

func (s *ConversationStore) Set(_ context.Context, chatID int64, state domain.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state == domain.StateIdle {
		delete(s.items, chatID)
		return nil
	}
	s.items[chatID] = conversation{state: state, expiresAt: s.now().Add(s.ttl)}
	return nil
}

// UpdateGuard remembers recently seen update ids so redelivered updates are dropped.
// Expired ids are swept at most once per sweepEvery.
type UpdateGuard struct {
	mu         sync.Mutex
	seen       map[int]time.Time
	ttl        time.Duration
	sweepEvery time.Duration
	lastSweep  time.Time
	now        func() time.Time
}

func NewUpdateGuard(ttl time.Duration) *UpdateGuard {
	return &UpdateGuard{seen: make(map[int]time.Time), ttl: ttl, sweepEvery: ttl / 2, now: time.Now}
}

// FirstSeen reports whether updateID has not been seen within ttl, and records it.
func (g *UpdateGuard) FirstSeen(_ context.Context, updateID int) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if now.Sub(g.lastSweep) >= g.sweepEvery {
		g.sweep(now)
	}
	if exp, ok := g.seen[updateID]; ok && now.Before(exp) {
		return false, nil
	}
	g.seen[updateID] = now.Add(g.ttl)
	return true, nil
}

// Forget drops updateID so the next delivery is accepted.
func (g *UpdateGuard) Forget(_ context.Context, updateID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, updateID)
	return nil
}

func (g *UpdateGuard) sweep(now time.Time) {
	for id, exp := range g.seen {
		if !now.Before(exp) {
			delete(g.seen, id)
		}
	}
	g.lastSweep = now
}
