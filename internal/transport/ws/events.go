package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vedran77/bittalk/internal/domain"
)

// Actions - Client → Server
const (
	ActionNewMessage     = "new_message"
	ActionNewFile        = "new_file"
	ActionForwardMessage = "forward_message"
	ActionReadMessage    = "read_message"
	ActionEditMessage    = "edit_message"
	ActionDeleteMessage  = "delete_message"
)

// Actions - Server → Client (new_message, edit_message and delete_message are shared)
const (
	ActionMessageRead = "message_read"
	ActionError       = "error"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrMalformed     = errors.New("malformed envelope")
)

// --- Client → Server ---

// Inbound is one of the client envelope variants below.
type Inbound interface {
	inbound()
}

type InboundMessage struct {
	Content     string               `json:"content"`
	RecipientID *uuid.UUID           `json:"recipient_id,omitempty"`
	Status      domain.MessageStatus `json:"status,omitempty"`
}

type NewMessage struct {
	Message InboundMessage `json:"message"`
}

type NewFile struct {
	Message InboundMessage `json:"message"`
	FileIDs []uuid.UUID    `json:"file_ids"`
}

type ForwardMessage struct {
	MessageID    uuid.UUID `json:"message_id"`
	TargetChatID uuid.UUID `json:"target_chat_id"`
}

type ReadMessage struct {
	MessageID uuid.UUID `json:"message_id"`
}

type EditMessage struct {
	MessageID uuid.UUID `json:"message_id"`
	Content   string    `json:"content"`
}

type DeleteMessage struct {
	MessageID uuid.UUID `json:"message_id"`
}

func (NewMessage) inbound()     {}
func (NewFile) inbound()        {}
func (ForwardMessage) inbound() {}
func (ReadMessage) inbound()    {}
func (EditMessage) inbound()    {}
func (DeleteMessage) inbound()  {}

// DecodeInbound parses a client envelope into its variant.
func DecodeInbound(data []byte) (Inbound, error) {
	var head struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var v Inbound
	var err error
	switch head.Action {
	case ActionNewMessage:
		v, err = decodeAs[NewMessage](data)
	case ActionNewFile:
		v, err = decodeAs[NewFile](data)
	case ActionForwardMessage:
		v, err = decodeAs[ForwardMessage](data)
	case ActionReadMessage:
		v, err = decodeAs[ReadMessage](data)
	case ActionEditMessage:
		v, err = decodeAs[EditMessage](data)
	case ActionDeleteMessage:
		v, err = decodeAs[DeleteMessage](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, head.Action)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, head.Action, err)
	}
	return v, nil
}

func decodeAs[T Inbound](data []byte) (Inbound, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// --- Server → Client ---
// Each event marshals with its action tag alongside its fields.

type NewMessageEvent struct {
	ChatID  uuid.UUID       `json:"chat_id"`
	Message *domain.Message `json:"message"`
}

type MessageReadEvent struct {
	ChatID    uuid.UUID   `json:"chat_id"`
	MessageID uuid.UUID   `json:"message_id"`
	UserID    uuid.UUID   `json:"user_id"`
	ReadBy    []uuid.UUID `json:"read_by"`
}

type EditMessageEvent struct {
	ChatID  uuid.UUID       `json:"chat_id"`
	Message *domain.Message `json:"message"`
}

type DeleteMessageEvent struct {
	ChatID    uuid.UUID `json:"chat_id"`
	MessageID uuid.UUID `json:"message_id"`
}

type ErrorEvent struct {
	ChatID  uuid.UUID `json:"chat_id"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

func (e NewMessageEvent) MarshalJSON() ([]byte, error) {
	type alias NewMessageEvent
	return json.Marshal(struct {
		Action string `json:"action"`
		alias
	}{ActionNewMessage, alias(e)})
}

func (e MessageReadEvent) MarshalJSON() ([]byte, error) {
	type alias MessageReadEvent
	if e.ReadBy == nil {
		e.ReadBy = []uuid.UUID{}
	}
	return json.Marshal(struct {
		Action string `json:"action"`
		alias
	}{ActionMessageRead, alias(e)})
}

func (e EditMessageEvent) MarshalJSON() ([]byte, error) {
	type alias EditMessageEvent
	return json.Marshal(struct {
		Action string `json:"action"`
		alias
	}{ActionEditMessage, alias(e)})
}

func (e DeleteMessageEvent) MarshalJSON() ([]byte, error) {
	type alias DeleteMessageEvent
	return json.Marshal(struct {
		Action string `json:"action"`
		alias
	}{ActionDeleteMessage, alias(e)})
}

func (e ErrorEvent) MarshalJSON() ([]byte, error) {
	type alias ErrorEvent
	return json.Marshal(struct {
		Action string `json:"action"`
		alias
	}{ActionError, alias(e)})
}
