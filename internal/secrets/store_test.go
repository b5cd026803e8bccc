package secrets

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rift/client/internal/config"
)

func storeFactories() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(*testing.T) Store { return NewMemoryStore() },
		"badger": func(t *testing.T) Store {
			s, err := OpenBadgerInMemory()
			require.NoError(t, err)
			return s
		},
		"sealed": func(t *testing.T) Store {
			s, err := NewSealed(NewMemoryStore(), "correct horse battery staple")
			require.NoError(t, err)
			return s
		},
	}
}

func TestStoreContract(t *testing.T) {
	for name, open := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })

			_, err := s.Get(ctx, KeyAccessToken)
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.SetAll(ctx, map[string]string{
				KeyAccessToken:  "access-1",
				KeyRefreshToken: "refresh-1",
				KeyUserID:       "u1",
			}))
			v, err := s.Get(ctx, KeyRefreshToken)
			require.NoError(t, err)
			require.Equal(t, "refresh-1", v)

			require.NoError(t, Set(ctx, s, KeyAccessToken, "access-2"))
			v, err = s.Get(ctx, KeyAccessToken)
			require.NoError(t, err)
			require.Equal(t, "access-2", v)

			require.NoError(t, s.Delete(ctx, SessionKeys...))
			require.NoError(t, s.Delete(ctx, "never-written"))
			for _, k := range SessionKeys {
				_, err := s.Get(ctx, k)
				require.ErrorIs(t, err, ErrNotFound, k)
			}

			v, err = Lookup(ctx, s, KeyUserID)
			require.NoError(t, err)
			require.Empty(t, v)
		})
	}
}

func TestStoreConcurrentWrites(t *testing.T) {
	for name, open := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })

			var wg sync.WaitGroup
			for i := range 20 {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					val := strings.Repeat("x", i+1)
					_ = s.SetAll(ctx, map[string]string{KeyAccessToken: val, KeyRefreshToken: val})
				}(i)
			}
			wg.Wait()

			access, err := s.Get(ctx, KeyAccessToken)
			require.NoError(t, err)
			refresh, err := s.Get(ctx, KeyRefreshToken)
			require.NoError(t, err)
			require.Equal(t, access, refresh)
		})
	}
}

func TestSealedHidesPlaintext(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	sealed, err := NewSealed(inner, "pass")
	require.NoError(t, err)

	require.NoError(t, Set(ctx, sealed, KeyAccessToken, "super-secret-token"))

	raw, err := inner.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	require.NotContains(t, raw, "super-secret-token")
	require.True(t, strings.HasPrefix(raw, sealPrefix))

	other, err := NewSealed(inner, "wrong")
	require.NoError(t, err)
	_, err = other.Get(ctx, KeyAccessToken)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestSealedBindsValueToKey(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	sealed, err := NewSealed(inner, "pass")
	require.NoError(t, err)
	require.NoError(t, Set(ctx, sealed, KeyAccessToken, "token"))

	raw, err := inner.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	require.NoError(t, Set(ctx, inner, KeyRefreshToken, raw))

	_, err = sealed.Get(ctx, KeyRefreshToken)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestNewSealedRejectsEmptyPassphrase(t *testing.T) {
	_, err := NewSealed(NewMemoryStore(), "")
	require.Error(t, err)
}

func TestBadgerPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := OpenBadger(dir)
	require.NoError(t, err)
	require.NoError(t, Set(ctx, s, KeyUserID, "u42"))
	require.NoError(t, s.Close())

	s, err = OpenBadger(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	v, err := s.Get(ctx, KeyUserID)
	require.NoError(t, err)
	require.Equal(t, "u42", v)
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.SecretsConfig{Backend: config.SecretsMemory})
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, config.SecretsConfig{Backend: config.SecretsMemory, Passphrase: "p"})
	require.NoError(t, err)
	require.IsType(t, &Sealed{}, s)

	s, err = Open(ctx, config.SecretsConfig{Backend: config.SecretsBadger, Dir: t.TempDir()})
	require.NoError(t, err)
	require.IsType(t, &BadgerStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.SecretsConfig{Backend: config.SecretsPostgres})
	require.Error(t, err)

	_, err = Open(ctx, config.SecretsConfig{Backend: "keychain"})
	require.Error(t, err)
}
