// Package secrets persists the session credentials of the Rift client.
//
// A Store is an opaque string key/value store. Writes of several keys through
// SetAll are atomic so an access token is never persisted without its refresh
// token.
package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/rift/client/internal/config"
	"github.com/rift/client/internal/db"
)

// Keys used by the session layer.
const (
	KeyAccessToken  = "rift.accessToken"
	KeyRefreshToken = "rift.refreshToken"
	KeyUserID       = "rift.userId"
)

// SessionKeys lists every key a logout removes.
var SessionKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUserID}

// ErrNotFound indicates the key holds no value.
var ErrNotFound = errors.New("secret not found")

// Store is safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	// SetAll writes every pair or none of them.
	SetAll(ctx context.Context, values map[string]string) error
	// Delete removes keys; missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Set writes a single key.
func Set(ctx context.Context, s Store, key, value string) error {
	return s.SetAll(ctx, map[string]string{key: value})
}

// Lookup returns the value for key or "" when it is absent.
func Lookup(ctx context.Context, s Store, key string) (string, error) {
	v, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

// Open builds the store selected by cfg, sealing values when a passphrase is
// configured.
func Open(ctx context.Context, cfg config.SecretsConfig) (Store, error) {
	var (
		store Store
		err   error
	)
	switch cfg.Backend {
	case config.SecretsMemory:
		store = NewMemoryStore()
	case config.SecretsBadger, "":
		store, err = OpenBadger(cfg.Dir)
	case config.SecretsPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("secrets: postgres backend requires database_url")
		}
		pool, cerr := db.Connect(ctx, cfg.DatabaseURL)
		if cerr != nil {
			return nil, fmt.Errorf("secrets: %w", cerr)
		}
		pg := NewPostgresStore(pool)
		if err = pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("secrets: %w", err)
		}
		store = pg
	default:
		return nil, fmt.Errorf("secrets: unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("secrets: open %s: %w", cfg.Backend, err)
	}

	if cfg.Passphrase != "" {
		sealed, err := NewSealed(store, cfg.Passphrase)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		return sealed, nil
	}
	return store, nil
}
