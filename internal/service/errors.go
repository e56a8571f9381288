package service

import (
	"errors"
	"fmt"
)

// Base categories. Transport layers map on these with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation failed")
)

var (
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
	ErrChatNotFound    = fmt.Errorf("chat %w", ErrNotFound)
	ErrMessageNotFound = fmt.Errorf("message %w", ErrNotFound)
	ErrFileNotFound    = fmt.Errorf("file %w", ErrNotFound)

	ErrNotParticipant  = fmt.Errorf("%w: you are not a participant of this chat", ErrForbidden)
	ErrNotMessageOwner = fmt.Errorf("%w: only the message sender can perform this action", ErrForbidden)
	ErrCannotForward   = fmt.Errorf("%w: only the sender or recipient can forward this message", ErrForbidden)

	ErrCannotChatSelf  = fmt.Errorf("%w: cannot start a direct chat with yourself", ErrValidation)
	ErrEmptyContent    = fmt.Errorf("%w: message content is required", ErrValidation)
	ErrContentTooLong  = fmt.Errorf("%w: message content is too long", ErrValidation)
	ErrInvalidStatus   = fmt.Errorf("%w: unknown message status", ErrValidation)
	ErrNoChatTarget    = fmt.Errorf("%w: chat_id or recipient_id is required", ErrValidation)
	ErrFileUnavailable = fmt.Errorf("%w: file is attached elsewhere or belongs to another chat", ErrValidation)
	ErrEmptyFile       = fmt.Errorf("%w: file is empty", ErrValidation)
	ErrEmailTaken      = fmt.Errorf("%w: email is already registered", ErrValidation)
)
