package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vedran77/bittalk/internal/domain"
)

type MessageRepo struct {
	q querier
}

const messageColumns = `id, chat_id, sender_id, recipient_id, content, status, edited_at, is_file, created_at`

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (id, chat_id, sender_id, recipient_id, content, status, edited_at, is_file, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		msg.ID, msg.ChatID, msg.SenderID, msg.RecipientID, msg.Content,
		string(msg.Status), msg.EditedAt, msg.IsFile, msg.CreatedAt,
	)
	if err != nil {
		return err
	}

	for _, userID := range msg.ReadBy {
		if err := r.AddReader(ctx, msg.ID, userID); err != nil {
			return err
		}
	}
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	return r.get(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id)
}

// GetByIDForUpdate takes a row lock, so read_by and content are read after
// any concurrent writer has committed.
func (r *MessageRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	return r.get(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1 FOR UPDATE`, id)
}

func (r *MessageRepo) get(ctx context.Context, query string, id uuid.UUID) (*domain.Message, error) {
	row := r.q.QueryRow(ctx, query, id)
	msg, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *MessageRepo) ListByChat(ctx context.Context, chatID uuid.UUID) ([]domain.Message, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE chat_id = $1 ORDER BY created_at, id`, chatID,
	)
	if err != nil {
		return nil, err
	}

	var messages []domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		messages = append(messages, *msg)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range messages {
		if err := r.hydrate(ctx, &messages[i]); err != nil {
			return nil, err
		}
	}
	return messages, nil
}

func (r *MessageRepo) LastInChat(ctx context.Context, chatID uuid.UUID) (*domain.Message, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE chat_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`, chatID,
	)
	msg, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return msg, err
}

func (r *MessageRepo) UpdateContent(ctx context.Context, id uuid.UUID, content string, editedAt time.Time) error {
	_, err := r.q.Exec(ctx, `UPDATE messages SET content = $1, edited_at = $2 WHERE id = $3`, content, editedAt, id)
	return err
}

func (r *MessageRepo) AddReader(ctx context.Context, id, userID uuid.UUID) error {
	query := `
		INSERT INTO message_reads (message_id, user_id, read_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (message_id, user_id) DO NOTHING`
	_, err := r.q.Exec(ctx, query, id, userID, time.Now())
	return err
}

func (r *MessageRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.q.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	return err
}

func (r *MessageRepo) hydrate(ctx context.Context, msg *domain.Message) error {
	rows, err := r.q.Query(ctx,
		`SELECT user_id FROM message_reads WHERE message_id = $1 ORDER BY read_at, seq`, msg.ID,
	)
	if err != nil {
		return err
	}
	readBy, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return err
	}
	msg.ReadBy = readBy
	if msg.ReadBy == nil {
		msg.ReadBy = []uuid.UUID{}
	}

	files, err := (&FileRepo{q: r.q}).ListByMessage(ctx, msg.ID)
	if err != nil {
		return err
	}
	msg.Files = files
	return nil
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var msg domain.Message
	var status string
	err := row.Scan(
		&msg.ID, &msg.ChatID, &msg.SenderID, &msg.RecipientID, &msg.Content,
		&status, &msg.EditedAt, &msg.IsFile, &msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	msg.Status = domain.MessageStatus(status)
	msg.ReadBy = []uuid.UUID{}
	msg.Files = []domain.File{}
	return &msg, nil
}
