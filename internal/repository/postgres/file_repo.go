package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vedran77/bittalk/internal/domain"
	"github.com/vedran77/bittalk/internal/repository"
)

type FileRepo struct {
	q querier
}

const fileColumns = `id, filename, file_path, content_type, size, chat_id, message_id, created_at`

func (r *FileRepo) Create(ctx context.Context, file *domain.File) error {
	query := `
		INSERT INTO files (id, filename, file_path, content_type, size, chat_id, message_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		file.ID, file.Filename, file.FilePath, file.ContentType, file.Size,
		file.ChatID, file.MessageID, file.CreatedAt,
	)
	return err
}

func (r *FileRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.File, error) {
	rows, err := r.q.Query(ctx, `SELECT `+fileColumns+` FROM files WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	f, err := pgx.CollectOneRow(rows, scanFile)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FileRepo) AttachToMessage(ctx context.Context, fileID, messageID uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE files SET message_id = $1
		WHERE id = $2 AND (message_id IS NULL OR message_id = $1)`, messageID, fileID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrFileAttached
	}
	return nil
}

func (r *FileRepo) ListByMessage(ctx context.Context, messageID uuid.UUID) ([]domain.File, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+fileColumns+` FROM files WHERE message_id = $1 ORDER BY created_at, id`, messageID,
	)
	if err != nil {
		return nil, err
	}
	files, err := pgx.CollectRows(rows, scanFile)
	if err != nil {
		return nil, err
	}
	if files == nil {
		files = []domain.File{}
	}
	return files, nil
}

func scanFile(row pgx.CollectableRow) (domain.File, error) {
	var f domain.File
	err := row.Scan(
		&f.ID, &f.Filename, &f.FilePath, &f.ContentType, &f.Size,
		&f.ChatID, &f.MessageID, &f.CreatedAt,
	)
	return f, err
}
