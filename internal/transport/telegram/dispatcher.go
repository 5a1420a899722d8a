package telegram

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-storefront-bot/internal/infrastructure/metrics"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const queueSize = 64

type updateHandler interface {
	Handle(ctx context.Context, u tgbotapi.Update) error
}

// UpdateGuard filters out updates that were already accepted once.
// Forget releases an id whose update never reached a worker.
type UpdateGuard interface {
	FirstSeen(ctx context.Context, updateID int) (bool, error)
	Forget(ctx context.Context, updateID int) error
}

// Dispatcher shards updates over a fixed set of workers by chat id. Each chat
// always lands on the same worker, so its updates are handled in arrival
// order while different chats proceed in parallel.
type Dispatcher struct {
	handler updateHandler
	guard   UpdateGuard
	queues  []chan tgbotapi.Update
	metrics *metrics.Metrics
}

func NewDispatcher(h updateHandler, guard UpdateGuard, workers int, m *metrics.Metrics) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	queues := make([]chan tgbotapi.Update, workers)
	for i := range queues {
		queues[i] = make(chan tgbotapi.Update, queueSize)
	}
	return &Dispatcher{handler: h, guard: guard, queues: queues, metrics: m}
}

// Submit enqueues u on its chat's worker. It blocks while that worker's queue
// is full and returns ctx.Err() if ctx ends first; the update id is then
// released so a redelivery is accepted.
func (d *Dispatcher) Submit(ctx context.Context, u tgbotapi.Update) error {
	if d.guard != nil {
		first, err := d.guard.FirstSeen(ctx, u.UpdateID)
		if err != nil {
			slog.Warn("update dedupe unavailable", "update_id", u.UpdateID, "err", err)
		} else if !first {
			slog.Debug("duplicate update dropped", "update_id", u.UpdateID)
			return nil
		}
	}
	q := d.queues[d.shard(chatOf(u))]
	select {
	case q <- u:
		return nil
	case <-ctx.Done():
		if d.guard != nil {
			if err := d.guard.Forget(context.WithoutCancel(ctx), u.UpdateID); err != nil {
				slog.Warn("release update id", "update_id", u.UpdateID, "err", err)
			}
		}
		return ctx.Err()
	}
}

// Run starts the workers and blocks until ctx is done and every worker has
// finished its current update.
func (d *Dispatcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, q := range d.queues {
		wg.Add(1)
		go func(q <-chan tgbotapi.Update) {
			defer wg.Done()
			d.work(ctx, q)
		}(q)
	}
	wg.Wait()
	return nil
}

func (d *Dispatcher) work(ctx context.Context, q <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-q:
			d.handle(ctx, u)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, u tgbotapi.Update) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic handling update", "update_id", u.UpdateID, "panic", r)
		}
		d.metrics.ObserveUpdate(kindOf(u), start)
	}()
	if err := d.handler.Handle(ctx, u); err != nil {
		slog.Error("handle update", "update_id", u.UpdateID, "chat_id", chatOf(u), "err", err)
	}
}

func (d *Dispatcher) shard(chatID int64) int {
	return int(uint64(chatID) % uint64(len(d.queues)))
}

func chatOf(u tgbotapi.Update) int64 {
	switch {
	case u.Message != nil && u.Message.Chat != nil:
		return u.Message.Chat.ID
	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil && u.CallbackQuery.Message.Chat != nil:
		return u.CallbackQuery.Message.Chat.ID
	case u.CallbackQuery != nil && u.CallbackQuery.From != nil:
		return u.CallbackQuery.From.ID
	default:
		return 0
	}
}

func kindOf(u tgbotapi.Update) string {
	switch {
	case u.CallbackQuery != nil:
		return "callback"
	case u.Message != nil && u.Message.IsCommand():
		return "command"
	case u.Message != nil:
		return "message"
	default:
		return "other"
	}
}
