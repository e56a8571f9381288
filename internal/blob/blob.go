// Package blob stores uploaded file bodies outside the entity store.
package blob

import (
	"context"
	"io"
)

//go:generate go run go.uber.org/mock/mockgen -source=blob.go -destination=../mocks/mock_blob_store.go -package=mocks

// Object describes a stored blob. Path is what gets persisted as the
// file's storage path.
type Object struct {
	Path string
	Size int64
}

type Store interface {
	Put(ctx context.Context, filename string, body io.Reader) (Object, error)
}
