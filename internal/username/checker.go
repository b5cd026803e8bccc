// Package username checks availability while the user types and claims or
// changes the account handle.
package username

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rift/client/internal/api"
	"github.com/rift/client/internal/logging"
	"github.com/rift/client/internal/models"
	"github.com/rift/client/internal/validation"
)

const (
	MinLength = 3
	MaxLength = 30

	// DefaultDebounce is used when NewChecker is given a non-positive delay.
	DefaultDebounce = 500 * time.Millisecond
)

// Status messages shown next to the input.
const (
	MsgTooShort   = "Too short (min 3 characters)"
	MsgTooLong    = "Too long (max 30 characters)"
	MsgCheckError = "Error checking username"
)

// ErrInvalid is returned by Setup and Change for names failing local checks.
var ErrInvalid = errors.New("invalid username")

// Status is the observable state of the availability check.
type Status struct {
	Checking  bool
	Available bool
	Message   string
}

// Checker debounces availability lookups. Only the latest input may update
// the status; earlier pending lookups are cancelled.
type Checker struct {
	api      api.Doer
	debounce time.Duration

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	status Status
}

func NewChecker(client api.Doer, debounce time.Duration) *Checker {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Checker{api: client, debounce: debounce}
}

// formatMessage returns the local validation message for name, or "" when the
// format is acceptable.
func formatMessage(name string) string {
	if validation.Var("username", name, "min=3") != nil {
		return MsgTooShort
	}
	if validation.Var("username", name, "max=30") != nil {
		return MsgTooLong
	}
	return ""
}

// Check schedules a lookup for name. The returned channel is closed once this
// input has settled, whether it was answered, rejected locally or superseded.
func (c *Checker) Check(ctx context.Context, name string) <-chan struct{} {
	name = strings.TrimSpace(name)
	done := make(chan struct{})

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	gen := c.gen

	if name == "" {
		c.status = Status{}
		c.mu.Unlock()
		close(done)
		return done
	}
	if msg := formatMessage(name); msg != "" {
		c.status = Status{Message: msg}
		c.mu.Unlock()
		close(done)
		return done
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.status = Status{Checking: true}
	c.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()

		timer := time.NewTimer(c.debounce)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		var res models.UsernameCheck
		err := c.api.Do(ctx, api.Request{
			Method:    http.MethodGet,
			Path:      api.UsernameCheckPath(name),
			Anonymous: true,
		}, &res)

		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.gen || ctx.Err() != nil {
			return
		}
		c.cancel = nil
		if err != nil {
			logging.FromContext(ctx).Warn("check username", slog.String("username", name), slog.Any("error", err))
			c.status = Status{Message: MsgCheckError}
			return
		}
		c.status = Status{Available: res.Available, Message: res.Message}
	}()
	return done
}

// Status returns the current check state.
func (c *Checker) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Stop cancels any pending lookup.
func (c *Checker) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.status.Checking = false
}
