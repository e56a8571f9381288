package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/bittalk/internal/domain"
	"github.com/vedran77/bittalk/internal/service"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 64 * 1024
)

var (
	ErrSendBufferFull = errors.New("send buffer full")
	ErrSessionClosed  = errors.New("session closed")
)

// MessageOps is the slice of the message service a session drives.
type MessageOps interface {
	Send(ctx context.Context, input service.SendMessageInput) (*domain.Message, error)
	MarkRead(ctx context.Context, userID, messageID uuid.UUID) (*domain.Message, error)
	Edit(ctx context.Context, actorID, messageID uuid.UUID, content string) (*domain.Message, error)
	Delete(ctx context.Context, actorID, messageID uuid.UUID) error
	Forward(ctx context.Context, actorID, messageID, targetChatID uuid.UUID) (*domain.Message, error)
}

type SessionState int32

const (
	StateConnecting SessionState = iota
	StateOpen
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

type SessionConfig struct {
	SendBuffer int
	// RateLimit is inbound envelopes per second; 0 disables limiting.
	RateLimit float64
	RateBurst int
}

// Session is one live connection subscribed to one chat.
type Session struct {
	conn     *websocket.Conn
	chatID   uuid.UUID
	userID   uuid.UUID
	registry *Registry
	messages MessageOps
	limiter  *rate.Limiter
	log      *slog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	closeCode websocket.StatusCode
	closeMsg  string
	state     atomic.Int32
}

func NewSession(conn *websocket.Conn, chatID, userID uuid.UUID, registry *Registry, messages MessageOps, cfg SessionConfig, log *slog.Logger) *Session {
	s := &Session{
		conn:     conn,
		chatID:   chatID,
		userID:   userID,
		registry: registry,
		messages: messages,
		log:      log.With("chat_id", chatID, "user_id", userID),
		send:     make(chan []byte, max(cfg.SendBuffer, 1)),
		done:     make(chan struct{}),
	}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.RateBurst, 1))
	}
	return s
}

func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// Enqueue hands data to the write pump without blocking. A full queue
// closes the session as a slow consumer.
func (s *Session) Enqueue(data []byte) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.send <- data:
		return nil
	default:
		s.close(websocket.StatusPolicyViolation, "slow consumer")
		return ErrSendBufferFull
	}
}

// Serve registers the session, runs it until the peer disconnects or ctx
// ends, and always unregisters on the way out.
func (s *Session) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reg := s.registry.Register(s.chatID, s)
	s.state.Store(int32(StateOpen))
	s.log.Info("session opened")

	defer func() {
		s.registry.Unregister(reg)
		s.state.Store(int32(StateClosed))
		s.log.Info("session closed")
	}()

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		s.writePump(ctx)
	}()

	err := s.readLoop(ctx)
	s.close(websocket.StatusNormalClosure, "")
	<-pumpDone
	return err
}

func (s *Session) readLoop(ctx context.Context) error {
	s.conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || ctx.Err() != nil || s.isClosed() {
				s.log.Debug("peer disconnected", "error", err)
				return nil
			}
			return err
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil
			}
		}
		s.handle(ctx, data)
	}
}

func (s *Session) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-s.send:
			wctx, cancel := context.WithTimeout(ctx, writeWait)
			err := s.conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.log.Debug("write failed", "error", err)
				s.close(websocket.StatusGoingAway, "write failed")
				_ = s.conn.CloseNow()
				return
			}

		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeWait)
			err := s.conn.Ping(pctx)
			cancel()
			if err != nil {
				s.log.Debug("ping failed", "error", err)
				s.close(websocket.StatusGoingAway, "ping failed")
				_ = s.conn.CloseNow()
				return
			}

		case <-s.done:
			_ = s.conn.Close(s.closeCode, s.closeMsg)
			return

		case <-ctx.Done():
			_ = s.conn.CloseNow()
			return
		}
	}
}

func (s *Session) close(code websocket.StatusCode, reason string) {
	s.closeOnce.Do(func() {
		s.closeCode = code
		s.closeMsg = reason
		close(s.done)
		if code == websocket.StatusPolicyViolation {
			s.log.Warn("closing session", "reason", reason)
		}
	})
}

func (s *Session) isClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// handle dispatches one inbound envelope. Operation failures go back to
// this session only.
func (s *Session) handle(ctx context.Context, data []byte) {
	in, err := DecodeInbound(data)
	if errors.Is(err, ErrUnknownAction) {
		s.log.Debug("ignoring envelope", "error", err)
		return
	}
	if err != nil {
		s.sendError("INVALID_PAYLOAD", err.Error())
		return
	}

	switch m := in.(type) {
	case NewMessage:
		_, err = s.messages.Send(ctx, service.SendMessageInput{
			ChatID:      &s.chatID,
			SenderID:    s.userID,
			RecipientID: m.Message.RecipientID,
			Content:     m.Message.Content,
			Status:      m.Message.Status,
		})
	case NewFile:
		_, err = s.messages.Send(ctx, service.SendMessageInput{
			ChatID:      &s.chatID,
			SenderID:    s.userID,
			RecipientID: m.Message.RecipientID,
			Content:     m.Message.Content,
			Status:      m.Message.Status,
			FileIDs:     m.FileIDs,
		})
	case ForwardMessage:
		_, err = s.messages.Forward(ctx, s.userID, m.MessageID, m.TargetChatID)
	case ReadMessage:
		_, err = s.messages.MarkRead(ctx, s.userID, m.MessageID)
	case EditMessage:
		_, err = s.messages.Edit(ctx, s.userID, m.MessageID, m.Content)
	case DeleteMessage:
		err = s.messages.Delete(ctx, s.userID, m.MessageID)
	}

	if err != nil {
		s.reportError(err)
	}
}

func (s *Session) reportError(err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		s.sendError("NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrForbidden):
		s.sendError("FORBIDDEN", err.Error())
	case errors.Is(err, service.ErrValidation):
		s.sendError("VALIDATION_ERROR", err.Error())
	default:
		s.log.Error("envelope failed", "error", err)
		s.sendError("INTERNAL_ERROR", "Something went wrong")
	}
}

func (s *Session) sendError(code, message string) {
	data, err := json.Marshal(ErrorEvent{ChatID: s.chatID, Code: code, Message: message})
	if err != nil {
		return
	}
	_ = s.Enqueue(data)
}
