package kvstore

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// badgerStore backs the cache with an embedded Badger database, for hosts
// without an external store.
type badgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (creating if needed) a Badger database at path.
func NewBadgerStore(path string, logger *zap.Logger) (Store, error) {
	if path == "" {
		return nil, errors.New("badger store requires a path")
	}
	if err := os.MkdirAll(path, 0o750); err != nil {
		return nil, fmt.Errorf("create badger directory %s: %w", path, err)
	}

	opts := badger.DefaultOptions(path).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerZapLogger{logger: logger.Named("badger").Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	return &badgerStore{db: db}, nil
}

var _ Store = (*badgerStore)(nil)

func (s *badgerStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
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
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger get %q: %w", key, err)
	}
	return value, nil
}

func (s *badgerStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("badger set %q: %w", key, err)
	}
	return nil
}

func (s *badgerStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("badger delete %q: %w", key, err)
	}
	return nil
}

func (s *badgerStore) Close() error {
	return s.db.Close()
}

// badgerZapLogger adapts zap to Badger's Logger interface.
type badgerZapLogger struct {
	logger *zap.SugaredLogger
}

func (l *badgerZapLogger) Errorf(format string, args ...any)   { l.logger.Errorf(format, args...) }
func (l *badgerZapLogger) Warningf(format string, args ...any) { l.logger.Warnf(format, args...) }
func (l *badgerZapLogger) Infof(format string, args ...any)    { l.logger.Debugf(format, args...) }
func (l *badgerZapLogger) Debugf(format string, args ...any)   { l.logger.Debugf(format, args...) }
