package badger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/vedran77/bittalk/internal/domain"
)

var ErrEmailTaken = errors.New("email already registered")

type UserRepo struct {
	s *Store
}

func (r *UserRepo) Create(_ context.Context, user *domain.User) error {
	return r.s.update(func(txn *badger.Txn) error {
		emailKey := userEmailKey(user.Email)
		if _, err := txn.Get(emailKey); err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(emailKey, []byte(user.ID.String())); err != nil {
			return err
		}
		return setJSON(txn, userKey(user.ID), user)
	})
}

func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	var found bool
	err := r.s.view(func(txn *badger.Txn) error {
		var err error
		found, err = getJSON(txn, userKey(id), &u)
		return err
	})
	if err != nil || !found {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var id uuid.UUID
	var found bool
	err := r.s.view(func(txn *badger.Txn) error {
		item, err := txn.Get(userEmailKey(email))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			id, err = uuid.ParseBytes(val)
			if err != nil {
				return fmt.Errorf("corrupt email index for %s: %w", email, err)
			}
			return nil
		})
	})
	if err != nil || !found {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepo) Search(_ context.Context, query string, limit int) ([]domain.User, error) {
	needle := strings.ToLower(query)
	users := []domain.User{}
	err := r.s.view(func(txn *badger.Txn) error {
		for _, k := range keysWithPrefix(txn, userPrefix, false) {
			var u domain.User
			found, err := getJSON(txn, k, &u)
			if err != nil {
				return err
			}
			if found && strings.Contains(strings.ToLower(u.Name), needle) {
				users = append(users, u)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(users, func(a, b domain.User) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID.String(), b.ID.String()))
	})
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}
