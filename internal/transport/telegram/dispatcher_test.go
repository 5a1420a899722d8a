package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collectingHandler struct {
	mu   sync.Mutex
	seen map[int64][]int
	wg   sync.WaitGroup
	fail bool
}

func (h *collectingHandler) Handle(_ context.Context, u tgbotapi.Update) error {
	defer h.wg.Done()
	if h.fail {
		panic("boom")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	chat := chatOf(u)
	h.seen[chat] = append(h.seen[chat], u.UpdateID)
	return nil
}

type memGuard struct {
	mu   sync.Mutex
	seen map[int]bool
	err  error
}

func (g *memGuard) FirstSeen(_ context.Context, id int) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seen[id] {
		return false, nil
	}
	g.seen[id] = true
	return true, nil
}

func (g *memGuard) Forget(_ context.Context, id int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, id)
	return nil
}

func msgUpdate(id int, chatID int64) tgbotapi.Update {
	return tgbotapi.Update{UpdateID: id, Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Text: "x"}}
}

func waitTimeout(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("updates were not handled in time")
	}
}

func TestDispatcher_KeepsPerChatOrder(t *testing.T) {
	h := &collectingHandler{seen: map[int64][]int{}}
	d := NewDispatcher(h, nil, 4, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	h.wg.Add(60)
	for i := 0; i < 20; i++ {
		for _, chat := range []int64{1, 2, 3} {
			require.NoError(t, d.Submit(ctx, msgUpdate(int(chat)*1000+i, chat)))
		}
	}
	waitTimeout(t, &h.wg)

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, chat := range []int64{1, 2, 3} {
		got := h.seen[chat]
		require.Len(t, got, 20)
		for i := 1; i < len(got); i++ {
			assert.Less(t, got[i-1], got[i], "chat %d out of order", chat)
		}
	}
}

func TestDispatcher_DropsDuplicates(t *testing.T) {
	h := &collectingHandler{seen: map[int64][]int{}}
	d := NewDispatcher(h, &memGuard{seen: map[int]bool{}}, 2, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	h.wg.Add(2)
	require.NoError(t, d.Submit(ctx, msgUpdate(1, 7)))
	require.NoError(t, d.Submit(ctx, msgUpdate(1, 7)))
	require.NoError(t, d.Submit(ctx, msgUpdate(2, 7)))
	waitTimeout(t, &h.wg)

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Equal(t, []int{1, 2}, h.seen[7])
}

func TestDispatcher_GuardErrorFailsOpen(t *testing.T) {
	h := &collectingHandler{seen: map[int64][]int{}}
	d := NewDispatcher(h, &memGuard{err: errors.New("redis down")}, 1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	h.wg.Add(1)
	require.NoError(t, d.Submit(ctx, msgUpdate(9, 7)))
	waitTimeout(t, &h.wg)
}

func TestDispatcher_RecoversFromPanic(t *testing.T) {
	h := &collectingHandler{seen: map[int64][]int{}, fail: true}
	d := NewDispatcher(h, nil, 1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	h.wg.Add(2)
	require.NoError(t, d.Submit(ctx, msgUpdate(1, 7)))
	require.NoError(t, d.Submit(ctx, msgUpdate(2, 7)))
	waitTimeout(t, &h.wg)
}

func TestDispatcher_SubmitHonoursContext(t *testing.T) {
	d := NewDispatcher(&collectingHandler{seen: map[int64][]int{}}, nil, 1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	for i := 0; i < queueSize; i++ {
		require.NoError(t, d.Submit(ctx, msgUpdate(i, 1)))
	}
	cancel()
	assert.ErrorIs(t, d.Submit(ctx, msgUpdate(queueSize, 1)), context.Canceled)
}

func TestDispatcher_RunReturnsOnCancel(t *testing.T) {
	d := NewDispatcher(&collectingHandler{seen: map[int64][]int{}}, nil, 3, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestShardIsStable(t *testing.T) {
	d := NewDispatcher(nil, nil, 5, nil)
	for _, chat := range []int64{0, 1, 42, -1001234567890} {
		s := d.shard(chat)
		assert.GreaterOrEqual(t, s, 0)
		assert.Less(t, s, 5)
		assert.Equal(t, s, d.shard(chat))
	}
}

func TestChatOfAndKindOf(t *testing.T) {
	cb := callbackUpdate("q", "faq")
	assert.Equal(t, chat, chatOf(cb))
	assert.Equal(t, "callback", kindOf(cb))

	cmd := textUpdate("/start")
	assert.Equal(t, "command", kindOf(cmd))
	assert.Equal(t, "message", kindOf(textUpdate("hello")))
	assert.Equal(t, "other", kindOf(tgbotapi.Update{}))
	assert.Equal(t, int64(0), chatOf(tgbotapi.Update{}))
}

func TestDispatcher_RedeliveryAcceptedAfterFullQueue(t *testing.T) {
	h := &collectingHandler{seen: map[int64][]int{}}
	d := NewDispatcher(h, &memGuard{seen: map[int]bool{}}, 1, nil)

	for i := 0; i < queueSize; i++ {
		require.NoError(t, d.Submit(context.Background(), msgUpdate(i+1, 1)))
	}
	short, cancelShort := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelShort()
	require.ErrorIs(t, d.Submit(short, msgUpdate(9999, 1)), context.DeadlineExceeded)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.wg.Add(queueSize + 1)
	go d.Run(ctx)
	require.NoError(t, d.Submit(ctx, msgUpdate(9999, 1)))
	waitTimeout(t, &h.wg)

	h.mu.Lock()
	defer h.mu.Unlock()
	got := h.seen[1]
	require.Len(t, got, queueSize+1)
	assert.Equal(t, 9999, got[len(got)-1])
}
