package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vedran77/bittalk/internal/domain"
	"github.com/vedran77/bittalk/internal/repository"
)

type ChatRepo struct {
	q querier
}

func (r *ChatRepo) Create(ctx context.Context, chat *domain.Chat) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO chats (id, name, created_at) VALUES ($1, $2, $3)`,
		chat.ID, chat.Name, chat.CreatedAt,
	)
	if err != nil {
		return err
	}

	for i, userID := range chat.ParticipantIDs {
		_, err := r.q.Exec(ctx,
			`INSERT INTO chat_participants (chat_id, user_id, position) VALUES ($1, $2, $3)`,
			chat.ID, userID, i,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *ChatRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error) {
	var c domain.Chat
	err := r.q.QueryRow(ctx,
		`SELECT id, name, created_at FROM chats WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if c.ParticipantIDs, err = r.participants(ctx, c.ID); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ChatRepo) FindByParticipants(ctx context.Context, a, b uuid.UUID) ([]domain.Chat, error) {
	query := `
		SELECT c.id, c.name, c.created_at
		FROM chats c
		JOIN chat_participants p ON p.chat_id = c.id
		GROUP BY c.id
		HAVING COUNT(*) = 2
			AND COUNT(*) FILTER (WHERE p.user_id IN ($1, $2)) = 2
			AND COUNT(DISTINCT p.user_id) = 2
		ORDER BY c.created_at, c.id`
	return r.list(ctx, query, a, b)
}

func (r *ChatRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Chat, error) {
	query := `
		SELECT c.id, c.name, c.created_at
		FROM chats c
		WHERE EXISTS (
			SELECT 1 FROM chat_participants p WHERE p.chat_id = c.id AND p.user_id = $1
		)
		ORDER BY c.created_at DESC, c.id`
	return r.list(ctx, query, userID)
}

func (r *ChatRepo) LockPair(ctx context.Context, a, b uuid.UUID) error {
	lo, hi := repository.CanonicalPair(a, b)
	_, err := r.q.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		"direct-chat:"+lo.String()+":"+hi.String(),
	)
	return err
}

func (r *ChatRepo) list(ctx context.Context, query string, args ...any) ([]domain.Chat, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	var chats []domain.Chat
	for rows.Next() {
		var c domain.Chat
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		chats = append(chats, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Participants are loaded after the cursor closes; a tx allows one open query.
	for i := range chats {
		if chats[i].ParticipantIDs, err = r.participants(ctx, chats[i].ID); err != nil {
			return nil, err
		}
	}
	return chats, nil
}

func (r *ChatRepo) participants(ctx context.Context, chatID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.q.Query(ctx,
		`SELECT user_id FROM chat_participants WHERE chat_id = $1 ORDER BY position`, chatID,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}
