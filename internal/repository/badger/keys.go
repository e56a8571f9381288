package badger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

var userPrefix = []byte("user/")

func userKey(id uuid.UUID) []byte { return []byte("user/" + id.String()) }
func userEmailKey(email string) []byte { return []byte("user-email/" + email) }
func chatKey(id uuid.UUID) []byte { return []byte("chat/" + id.String()) }
func userChatPrefix(u uuid.UUID) []byte { return []byte("user-chat/" + u.String() + "/") }
func msgKey(id uuid.UUID) []byte { return []byte("msg/" + id.String()) }
func chatMsgPrefix(c uuid.UUID) []byte { return []byte("chat-msg/" + c.String() + "/") }
func fileKey(id uuid.UUID) []byte { return []byte("file/" + id.String()) }
func msgFilePrefix(m uuid.UUID) []byte { return []byte("msg-file/" + m.String() + "/") }
func pairLockKey(a, b uuid.UUID) []byte { return []byte("pair-lock/" + a.String() + "/" + b.String()) }
func userChatKey(u, c uuid.UUID) []byte { return append(userChatPrefix(u), c.String()...) }

// Timestamped index keys sort chronologically: zero-padded nanos, then id.
func chatMsgKey(chatID uuid.UUID, at time.Time, msgID uuid.UUID) []byte {
	return fmt.Appendf(chatMsgPrefix(chatID), "%019d/%s", at.UnixNano(), msgID)
}

func msgFileKey(msgID uuid.UUID, at time.Time, fileID uuid.UUID) []byte {
	return fmt.Appendf(msgFilePrefix(msgID), "%019d/%s", at.UnixNano(), fileID)
}
