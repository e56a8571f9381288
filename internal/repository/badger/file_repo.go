package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/vedran77/bittalk/internal/domain"
	"github.com/vedran77/bittalk/internal/repository"
)

type FileRepo struct {
	s *Store
}

func (r *FileRepo) Create(_ context.Context, file *domain.File) error {
	return r.s.update(func(txn *badger.Txn) error {
		if err := setJSON(txn, fileKey(file.ID), file); err != nil {
			return err
		}
		if file.MessageID != nil {
			return txn.Set(msgFileKey(*file.MessageID, file.CreatedAt, file.ID), nil)
		}
		return nil
	})
}

func (r *FileRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.File, error) {
	var f domain.File
	var found bool
	err := r.s.view(func(txn *badger.Txn) error {
		var err error
		found, err = getJSON(txn, fileKey(id), &f)
		return err
	})
	if err != nil || !found {
		return nil, err
	}
	return &f, nil
}

func (r *FileRepo) AttachToMessage(_ context.Context, fileID, messageID uuid.UUID) error {
	return r.s.update(func(txn *badger.Txn) error {
		var f domain.File
		found, err := getJSON(txn, fileKey(fileID), &f)
		if err != nil || !found {
			return err
		}
		if f.MessageID != nil {
			if *f.MessageID == messageID {
				return nil
			}
			return repository.ErrFileAttached
		}
		f.MessageID = &messageID
		if err := setJSON(txn, fileKey(fileID), f); err != nil {
			return err
		}
		return txn.Set(msgFileKey(messageID, f.CreatedAt, f.ID), nil)
	})
}

func (r *FileRepo) ListByMessage(_ context.Context, messageID uuid.UUID) ([]domain.File, error) {
	var files []domain.File
	err := r.s.view(func(txn *badger.Txn) error {
		var err error
		files, err = filesOf(txn, messageID)
		return err
	})
	return files, err
}

func filesOf(txn *badger.Txn, messageID uuid.UUID) ([]domain.File, error) {
	files := []domain.File{}
	for _, k := range keysWithPrefix(txn, msgFilePrefix(messageID), false) {
		id, err := uuid.Parse(lastSegment(k))
		if err != nil {
			return nil, err
		}
		var f domain.File
		found, err := getJSON(txn, fileKey(id), &f)
		if err != nil {
			return nil, err
		}
		if found {
			files = append(files, f)
		}
	}
	return files, nil
}
