package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

const badgerKeyPrefix = "secret:"

type badgerRecord struct {
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BadgerStore persists secrets in an embedded Badger database.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a database under dir.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{slog.Default()})
	return openBadger(opts)
}

// OpenBadgerInMemory opens a database that never touches disk.
func OpenBadgerInMemory() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	return openBadger(opts)
}

func openBadger(opts badger.Options) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Get(_ context.Context, key string) (string, error) {
	var rec badgerRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return "", err
	}
	return rec.Value, nil
}

func (s *BadgerStore) SetAll(_ context.Context, values map[string]string) error {
	now := time.Now().UTC()
	return s.db.Update(func(txn *badger.Txn) error {
		for k, v := range values {
			data, err := json.Marshal(badgerRecord{Value: v, UpdatedAt: now})
			if err != nil {
				return fmt.Errorf("marshal %s: %w", k, err)
			}
			if err := txn.Set([]byte(badgerKeyPrefix+k), data); err != nil {
				return fmt.Errorf("set %s: %w", k, err)
			}
		}
		return nil
	})
}

func (s *BadgerStore) Delete(_ context.Context, keys ...string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete([]byte(badgerKeyPrefix + k)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("delete %s: %w", k, err)
			}
		}
		return nil
	})
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// badgerLogger routes Badger's printf-style logging through slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(trim(format, args), slog.String("component", "badger"))
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(trim(format, args), slog.String("component", "badger"))
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(trim(format, args), slog.String("component", "badger"))
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(trim(format, args), slog.String("component", "badger"))
}

func trim(format string, args []any) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}
