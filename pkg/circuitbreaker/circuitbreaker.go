package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

var ErrOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreaker skips a failing call for a cool-down period. It never
// retries: while open, fallback runs in place of the call.
type CircuitBreaker struct {
	maxFailures int
	window      time.Duration
	cooldown    time.Duration
	now         func() time.Time

	mu       sync.Mutex
	state    State
	failures []time.Time
	openedAt time.Time
}

type Option func(*CircuitBreaker)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(cb *CircuitBreaker) { cb.now = now }
}

// WithWindow sets how far back failures are counted. Default one minute.
func WithWindow(window time.Duration) Option {
	return func(cb *CircuitBreaker) { cb.window = window }
}

// New opens the breaker once more than maxFailures failures land inside the
// window; it stays open for cooldown.
func New(maxFailures int, cooldown time.Duration, opts ...Option) *CircuitBreaker {
	cb := &CircuitBreaker{
		maxFailures: maxFailures,
		window:      time.Minute,
		cooldown:    cooldown,
		now:         time.Now,
		state:       StateClosed,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// Execute runs fn unless the breaker is open. When open, fallback runs
// instead; with no fallback the result is ErrOpen.
func (cb *CircuitBreaker) Execute(fn func() error, fallback func() error) error {
	if !cb.allow() {
		if fallback != nil {
			return fallback()
		}
		return ErrOpen
	}

	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return true
	}
	if cb.now().Sub(cb.openedAt) < cb.cooldown {
		return false
	}
	cb.state = StateHalfOpen
	cb.failures = cb.failures[:0]
	return true
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	if err == nil {
		if cb.state == StateHalfOpen {
			cb.state = StateClosed
			cb.failures = cb.failures[:0]
		}
		cb.prune(now)
		return
	}

	cb.failures = append(cb.failures, now)
	cb.prune(now)
	if cb.state == StateHalfOpen || len(cb.failures) > cb.maxFailures {
		cb.state = StateOpen
		cb.openedAt = now
	}
}

func (cb *CircuitBreaker) prune(now time.Time) {
	cutoff := now.Add(-cb.window)
	keep := 0
	for keep < len(cb.failures) && !cb.failures[keep].After(cutoff) {
		keep++
	}
	cb.failures = cb.failures[keep:]
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
