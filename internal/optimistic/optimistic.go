// Package optimistic applies local state changes before the server confirms
// them and restores the captured state when it refuses.
package optimistic

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rift/client/internal/logging"
	"github.com/rift/client/internal/metrics"
)

// Mutation describes one optimistic change of an entity whose snapshot type
// is T.
type Mutation[T any] struct {
	// Kind labels logs and metrics, e.g. "like" or "follow".
	Kind string
	// Capture returns the current state of the entity. ok=false means the
	// entity is gone and the mutation is skipped.
	Capture func() (prior T, ok bool)
	// Apply changes local state based on prior. It must not block.
	Apply func(prior T)
	// Commit asks the server for the change that Apply made locally.
	Commit func(ctx context.Context, prior T) error
	// Rollback restores prior exactly.
	Rollback func(prior T)
}

// Runner serialises mutations that share a key so that a second toggle
// always captures the state left by the first one. Different keys run
// concurrently.
type Runner struct {
	metrics *metrics.Collector

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

// NewRunner constructs a runner. m may be nil.
func NewRunner(m *metrics.Collector) *Runner {
	return &Runner{metrics: m, locks: make(map[string]*keyLock)}
}

// Run executes m under the lock for key. The commit error is returned after
// the rollback has been applied; callers usually only log it.
func Run[T any](ctx context.Context, r *Runner, key string, m Mutation[T]) error {
	release, err := r.acquire(ctx, key)
	if err != nil {
		return err
	}
	defer release()

	prior, ok := m.Capture()
	if !ok {
		return nil
	}

	m.Apply(prior)

	if err := m.Commit(ctx, prior); err != nil {
		m.Rollback(prior)
		r.metrics.ObserveRollback(m.Kind)
		logging.FromContext(ctx).Warn("optimistic update rolled back",
			slog.String("kind", m.Kind),
			slog.String("key", key),
			slog.Any("error", err))
		return err
	}
	return nil
}

func (r *Runner) acquire(ctx context.Context, key string) (func(), error) {
	r.mu.Lock()
	l, ok := r.locks[key]
	if !ok {
		l = &keyLock{sem: make(chan struct{}, 1)}
		r.locks[key] = l
	}
	l.refs++
	r.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		r.unref(key, l)
		return nil, ctx.Err()
	}

	return func() {
		<-l.sem
		r.unref(key, l)
	}, nil
}

func (r *Runner) unref(key string, l *keyLock) {
	r.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(r.locks, key)
	}
	r.mu.Unlock()
}

// pending reports how many keys currently have holders or waiters.
func (r *Runner) pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}
