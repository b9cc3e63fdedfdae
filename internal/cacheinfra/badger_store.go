package cacheinfra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore is a persistent byte store on top of badger. Entries expire
// through badger's native TTL, so cached state survives restarts until its
// TTL lapses.
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
}

// badgerLogger adapts slog.Logger to badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// NewBadgerStore opens the badger database described by cfg.Badger.
// The caller owns the store and must Close it.
func NewBadgerStore(cfg Config) (*BadgerStore, error) {
	if cfg.TTL <= 0 {
		return nil, &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}
	if err := cfg.Badger.Validate(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if cfg.Badger.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Badger.Path, 0750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Badger.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Badger.Path)
	}

	opts = opts.WithSyncWrites(cfg.Badger.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Badger.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Badger.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}

	return &BadgerStore{db: db, ttl: cfg.TTL}, nil
}

// Get returns the value stored under key.
func (s *BadgerStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badger get %s: %w", key, err)
	}

	return value, true, nil
}

// Set stores value under key for ttl. A ttl that is zero or longer than the
// configured TTL is clamped to the configured TTL.
func (s *BadgerStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if ttl <= 0 || ttl > s.ttl {
		ttl = s.ttl
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), value).WithTTL(ttl))
	})
	if err != nil {
		return fmt.Errorf("badger set %s: %w", key, err)
	}
	return nil
}

// Delete removes a single entry. Deleting a missing key is not an error.
func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("badger delete %s: %w", key, err)
	}
	return nil
}

// DeleteByPrefix removes all entries whose key starts with prefix.
func (s *BadgerStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.db.DropPrefix([]byte(prefix)); err != nil {
		return fmt.Errorf("badger drop prefix %s: %w", prefix, err)
	}
	return nil
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
