package ws

import (
	"github.com/google/uuid"
	"github.com/vedran77/bittalk/internal/domain"
)

// Dispatcher implements service.Notifier by broadcasting through the Registry.
type Dispatcher struct {
	registry *Registry
}

func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

func (d *Dispatcher) NotifyNewMessage(msg *domain.Message) {
	d.registry.Broadcast(msg.ChatID, NewMessageEvent{ChatID: msg.ChatID, Message: msg})
}

func (d *Dispatcher) NotifyMessageRead(msg *domain.Message, readerID uuid.UUID) {
	d.registry.Broadcast(msg.ChatID, MessageReadEvent{
		ChatID:    msg.ChatID,
		MessageID: msg.ID,
		UserID:    readerID,
		ReadBy:    msg.ReadBy,
	})
}

func (d *Dispatcher) NotifyEditedMessage(msg *domain.Message) {
	d.registry.Broadcast(msg.ChatID, EditMessageEvent{ChatID: msg.ChatID, Message: msg})
}

func (d *Dispatcher) NotifyDeletedMessage(chatID, messageID uuid.UUID) {
	d.registry.Broadcast(chatID, DeleteMessageEvent{ChatID: chatID, MessageID: messageID})
}
