package identity

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// keyPrefix namespaces identity keys inside a shared database.
const keyPrefix = "identity/"

// BadgerStorage stores values in an embedded BadgerDB.
type BadgerStorage struct {
	db     *badger.DB
	ownsDB bool
}

// OpenBadgerStorage opens a BadgerDB at path. An empty path opens an
// in-memory database.
func OpenBadgerStorage(path string) (*BadgerStorage, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o700); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", path, err)
		}
		opts = badger.DefaultOptions(path).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &BadgerStorage{db: db, ownsDB: true}, nil
}

// NewBadgerStorage wraps an already open database. Close leaves it open.
func NewBadgerStorage(db *badger.DB) *BadgerStorage {
	return &BadgerStorage{db: db}
}

// Get implements Storage.
func (s *BadgerStorage) Get(ctx context.Context, key string) (string, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return string(value), true, nil
}

// Set implements Storage.
func (s *BadgerStorage) Set(ctx context.Context, key, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Close implements Storage.
func (s *BadgerStorage) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

var _ Storage = (*BadgerStorage)(nil)
