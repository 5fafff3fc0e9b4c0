// Package views holds the per-screen state machines: each view fetches,
// normalizes and derives its own state, and re-runs that pipeline when the
// inventory-updated signal arrives while it is mounted.
package views

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"librarydesk/pkg/apiclient"
	"librarydesk/pkg/broadcast"
	"librarydesk/pkg/circuitbreaker"
	"librarydesk/pkg/models"
)

var (
	ErrNotLoggedIn        = errors.New("not logged in")
	ErrCopyOnLoan         = errors.New("copy is on loan")
	ErrReserveNotOffered  = errors.New("reservation is only offered when no copy is available")
	ErrNotCancellable     = errors.New("only pending reservations can be cancelled")
	ErrReservationUnknown = errors.New("reservation not found")
)

// ActionError is a failed user action. Message is what the user sees: the
// server's own message when it sent one, otherwise a fixed fallback.
type ActionError struct {
	Message string
	Err     error
}

func (e *ActionError) Error() string { return e.Message }

func (e *ActionError) Unwrap() error { return e.Err }

func actionError(err error, fallback string) error {
	return &ActionError{Message: apiclient.Message(err, fallback), Err: err}
}

// PartialCopyError reports an "add N copies" run that stopped early. The
// Created copies stay; nothing is rolled back.
type PartialCopyError struct {
	Requested int
	Created   int
	Err       error
}

func (e *PartialCopyError) Error() string {
	return fmt.Sprintf("created %d of %d copies: %v", e.Created, e.Requested, e.Err)
}

func (e *PartialCopyError) Unwrap() error { return e.Err }

// Deps is what every view needs. Zero-valued optional fields get defaults.
type Deps struct {
	API         *apiclient.Client
	Broadcaster *broadcast.Broadcaster
	Logger      *log.Logger
	Now         func() time.Time

	// Breaker guards secondary fetches; nil means a fresh breaker per view.
	Breaker *circuitbreaker.CircuitBreaker
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = log.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Broadcaster == nil {
		d.Broadcaster = broadcast.New(d.Logger)
	}
	if d.Breaker == nil {
		d.Breaker = circuitbreaker.New(2, 30*time.Second)
	}
	return d
}

func (d Deps) member() (models.User, error) {
	user, ok := d.API.Session().Current()
	if !ok {
		return models.User{}, ErrNotLoggedIn
	}
	return user, nil
}

// secondary runs a non-critical fetch. Failures are logged and swallowed and
// an open breaker skips the call entirely.
func (d Deps) secondary(what string, fn func() error) {
	err := d.Breaker.Execute(fn, func() error {
		d.Logger.Printf("skipping %s: circuit open", what)
		return nil
	})
	if err != nil {
		d.Logger.Printf("failed to load %s: %v", what, err)
	}
}

// mount ties a view's refresh to the broadcaster for as long as it is mounted.
type mount struct {
	mu  sync.Mutex
	sub *broadcast.Subscription
	gen uint64
}

func (m *mount) attach(b *broadcast.Broadcaster, logger *log.Logger, name string, refresh func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sub != nil {
		return
	}
	m.gen++
	gen := m.gen
	m.sub = b.Subscribe(func() {
		if !m.current(gen) {
			return
		}
		if err := refresh(context.Background()); err != nil {
			logger.Printf("%s refresh after %s failed: %v", name, broadcast.InventoryUpdated, err)
		}
	})
}

func (m *mount) detach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sub == nil {
		return
	}
	m.sub.Unsubscribe()
	m.sub = nil
	m.gen++
}

// current is false for deliveries that arrive after the mount they were
// scheduled for has ended.
func (m *mount) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sub != nil && m.gen == gen
}

// addCopies creates n copies one at a time and stops at the first failure.
func addCopies(ctx context.Context, api *apiclient.Client, bookID int64, n int) (int, error) {
	for i := 0; i < n; i++ {
		if _, err := api.AddCopy(ctx, bookID, ""); err != nil {
			return i, &PartialCopyError{Requested: n, Created: i, Err: err}
		}
	}
	return n, nil
}
