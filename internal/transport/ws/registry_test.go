package ws

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	got  []string
	fail error
}

func (r *recorder) Enqueue(data []byte) error {
	if r.fail != nil {
		return r.fail
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, string(data))
	return nil
}

func (r *recorder) received() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.got...)
}

func newTestRegistry() *Registry {
	return NewRegistry(slog.New(slog.DiscardHandler))
}

func TestRegistry_RegisterBroadcastUnregister(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()
	chatA, chatB := uuid.New(), uuid.New()
	a1, a2, b1 := &recorder{}, &recorder{}, &recorder{}

	// Given
	regA1 := r.Register(chatA, a1)
	r.Register(chatA, a2)
	r.Register(chatB, b1)

	// When
	r.Broadcast(chatA, map[string]string{"action": "ping"})

	// Then only chat A subscribers receive it
	req.Equal([]string{`{"action":"ping"}`}, a1.received())
	req.Equal([]string{`{"action":"ping"}`}, a2.received())
	req.Empty(b1.received())

	// When a1 leaves
	r.Unregister(regA1)
	r.Unregister(regA1)
	r.Broadcast(chatA, map[string]string{"action": "pong"})

	// Then
	req.Len(a1.received(), 1)
	req.Len(a2.received(), 2)
	req.Equal(1, r.Count(chatA))
}

func TestRegistry_SlotRemovedWithLastSubscriber(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()
	chatID := uuid.New()

	reg := r.Register(chatID, &recorder{})
	r.Unregister(reg)

	req.Equal(0, r.Count(chatID))
	req.NotContains(r.chats, chatID)
}

func TestRegistry_BroadcastWithoutSubscribersIsNoop(t *testing.T) {
	r := newTestRegistry()
	require.NotPanics(t, func() {
		r.Broadcast(uuid.New(), map[string]string{"action": "ping"})
	})
}

func TestRegistry_FailingSubscriberDoesNotBlockOthers(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()
	chatID := uuid.New()
	bad, good := &recorder{fail: errors.New("send buffer full")}, &recorder{}

	r.Register(chatID, bad)
	r.Register(chatID, good)
	r.Broadcast(chatID, map[string]int{"n": 1})

	req.Equal([]string{`{"n":1}`}, good.received())
}

func TestRegistry_PerChatOrdering(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()
	chatID := uuid.New()
	subs := []*recorder{{}, {}, {}}
	for _, s := range subs {
		r.Register(chatID, s)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Broadcast(chatID, map[string]int{"n": i})
		}(i)
	}
	wg.Wait()

	// Every subscriber sees the same sequence
	first := subs[0].received()
	req.Len(first, 50)
	for _, s := range subs[1:] {
		req.Equal(first, s.received())
	}
}

func TestRegistry_ConcurrentRegisterUnregister(t *testing.T) {
	r := newTestRegistry()
	chatID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			reg := r.Register(chatID, &recorder{})
			r.Unregister(reg)
		}()
		go func(i int) {
			defer wg.Done()
			r.Broadcast(chatID, fmt.Sprint(i))
		}(i)
	}
	wg.Wait()

	require.Equal(t, 0, r.Count(chatID))
}

func TestSession_EnqueueSlowConsumer(t *testing.T) {
	req := require.New(t)
	s := NewSession(nil, uuid.New(), uuid.New(), newTestRegistry(), nil, SessionConfig{SendBuffer: 1}, slog.New(slog.DiscardHandler))

	req.NoError(s.Enqueue([]byte("1")))
	req.ErrorIs(s.Enqueue([]byte("2")), ErrSendBufferFull)
	req.ErrorIs(s.Enqueue([]byte("3")), ErrSessionClosed)
	req.True(s.isClosed())
}
