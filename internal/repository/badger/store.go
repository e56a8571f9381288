package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/vedran77/bittalk/internal/repository"
)

const maxTxnRetries = 10

// Open opens a badger database at path, or an in-memory one when path is empty.
func Open(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger: %w", err)
	}
	return db, nil
}

// Store is a repository.Store over badger. Inside WithTx, txn is set and
// every repository call joins it.
type Store struct {
	db  *badger.DB
	txn *badger.Txn
}

func NewStore(db *badger.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Users() repository.UserRepository       { return &UserRepo{s: s} }
func (s *Store) Chats() repository.ChatRepository       { return &ChatRepo{s: s} }
func (s *Store) Messages() repository.MessageRepository { return &MessageRepo{s: s} }
func (s *Store) Files() repository.FileRepository       { return &FileRepo{s: s} }

// WithTx runs fn in a read-write transaction. fn is re-run when the commit
// hits a serialization conflict.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.txn != nil {
		return fn(s)
	}

	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		txn := s.db.NewTransaction(true)
		if err := fn(&Store{db: s.db, txn: txn}); err != nil {
			txn.Discard()
			return err
		}
		err := txn.Commit()
		txn.Discard()
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		return err
	}
	return fmt.Errorf("badger transaction: %w", badger.ErrConflict)
}

func (s *Store) view(fn func(txn *badger.Txn) error) error {
	if s.txn != nil {
		return fn(s.txn)
	}
	return s.db.View(fn)
}

func (s *Store) update(fn func(txn *badger.Txn) error) error {
	if s.txn != nil {
		return fn(s.txn)
	}

	var err error
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// getJSON decodes the value at key into v. found is false when the key is absent.
func getJSON(txn *badger.Txn, key []byte, v any) (found bool, err error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return txn.Set(key, data)
}

// keysWithPrefix returns every key under prefix in key order, or reverse order
// when reverse is set. The iterator is closed before returning so callers can
// issue Gets in the same read-write transaction.
func keysWithPrefix(txn *badger.Txn, prefix []byte, reverse bool) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	opts.Reverse = reverse

	it := txn.NewIterator(opts)
	defer it.Close()

	seek := prefix
	if reverse {
		seek = append(append([]byte{}, prefix...), 0xFF)
	}

	var keys [][]byte
	for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}

// lastSegment returns the part of key after its final '/'.
func lastSegment(key []byte) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '/' {
			return string(key[i+1:])
		}
	}
	return string(key)
}
