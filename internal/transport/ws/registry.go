package ws

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Subscriber receives encoded envelopes. Enqueue must not block.
type Subscriber interface {
	Enqueue(data []byte) error
}

// Registration identifies one Register call so it can be undone.
type Registration struct {
	chatID uuid.UUID
	id     uint64
}

type chatSlot struct {
	subs map[uint64]Subscriber
	// seq orders deliveries within the chat.
	seq sync.Mutex
}

// Registry maps chats to their live subscribers. One per process.
type Registry struct {
	mu     sync.Mutex
	chats  map[uuid.UUID]*chatSlot
	nextID uint64
	log    *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		chats: make(map[uuid.UUID]*chatSlot),
		log:   log,
	}
}

func (r *Registry) Register(chatID uuid.UUID, sub Subscriber) Registration {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.chats[chatID]
	if !ok {
		slot = &chatSlot{subs: make(map[uint64]Subscriber)}
		r.chats[chatID] = slot
	}
	r.nextID++
	slot.subs[r.nextID] = sub

	r.log.Debug("subscriber registered", "chat_id", chatID, "subscribers", len(slot.subs))
	return Registration{chatID: chatID, id: r.nextID}
}

// Unregister is idempotent. The chat's slot goes away with its last subscriber.
func (r *Registry) Unregister(reg Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.chats[reg.chatID]
	if !ok {
		return
	}
	delete(slot.subs, reg.id)
	if len(slot.subs) == 0 {
		delete(r.chats, reg.chatID)
	}
	r.log.Debug("subscriber unregistered", "chat_id", reg.chatID, "subscribers", len(slot.subs))
}

// Broadcast encodes event once and enqueues it to every subscriber of the
// chat. A failing subscriber is logged and skipped.
func (r *Registry) Broadcast(chatID uuid.UUID, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		r.log.Error("broadcast marshal failed", "chat_id", chatID, "error", err)
		return
	}

	r.mu.Lock()
	slot, ok := r.chats[chatID]
	r.mu.Unlock()
	if !ok {
		return
	}

	slot.seq.Lock()
	defer slot.seq.Unlock()

	for _, sub := range r.snapshot(slot) {
		if err := sub.Enqueue(data); err != nil {
			r.log.Warn("delivery failed", "chat_id", chatID, "error", err)
		}
	}
}

// snapshot copies the slot's subscribers in registration order.
func (r *Registry) snapshot(slot *chatSlot) []Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]uint64, 0, len(slot.subs))
	for id := range slot.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	subs := make([]Subscriber, len(ids))
	for i, id := range ids {
		subs[i] = slot.subs[id]
	}
	return subs
}

// Count returns the number of live subscribers of a chat.
func (r *Registry) Count(chatID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot, ok := r.chats[chatID]; ok {
		return len(slot.subs)
	}
	return 0
}
