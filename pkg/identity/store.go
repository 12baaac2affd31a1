package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/loopmetrics/loopmetrics-go/pkg/config"
	pkgerrors "github.com/loopmetrics/loopmetrics-go/pkg/errors"
)

// Store resolves the persisted distinct user ID, creating it on first use.
type Store struct {
	storage Storage
	key     string
	group   singleflight.Group
}

// NewStore creates a Store over storage using the default identity key.
func NewStore(storage Storage) *Store {
	return &Store{storage: storage, key: config.IdentityKey}
}

// Resolve returns the persisted distinct ID. When none exists a random
// version 4 UUID is written and the value read back from storage is
// returned. Concurrent calls share a single resolution.
func (s *Store) Resolve(ctx context.Context) (string, error) {
	v, err, _ := s.group.Do(s.key, func() (any, error) {
		return s.resolve(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *Store) resolve(ctx context.Context) (string, error) {
	id, ok, err := s.storage.Get(ctx, s.key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", pkgerrors.ErrStorage, err)
	}
	if ok && id != "" {
		return id, nil
	}

	if err := s.storage.Set(ctx, s.key, uuid.NewString()); err != nil {
		return "", fmt.Errorf("%w: %w", pkgerrors.ErrStorage, err)
	}

	id, ok, err = s.storage.Get(ctx, s.key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", pkgerrors.ErrStorage, err)
	}
	if !ok || id == "" {
		return "", fmt.Errorf("%w: %s missing after write", pkgerrors.ErrStorage, s.key)
	}
	return id, nil
}

// Close closes the underlying storage.
func (s *Store) Close() error {
	return s.storage.Close()
}
