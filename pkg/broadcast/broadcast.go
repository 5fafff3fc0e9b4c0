package broadcast

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// InventoryUpdated is the only signal: some borrow or return succeeded and
// any view showing book or loan data should re-fetch.
const InventoryUpdated = "inventory-updated"

// Broadcaster is a same-process publish/subscribe channel for the
// inventory-updated signal. Publish never waits for subscribers.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]func()
	inflight    sync.WaitGroup
	logger      *log.Logger
}

type Subscription struct {
	ID   string
	b    *Broadcaster
	once sync.Once
}

func New(logger *log.Logger) *Broadcaster {
	if logger == nil {
		logger = log.Default()
	}
	return &Broadcaster{
		subscribers: make(map[string]func()),
		logger:      logger,
	}
}

func (b *Broadcaster) Subscribe(fn func()) *Subscription {
	id := uuid.NewString()
	b.mu.Lock()
	b.subscribers[id] = fn
	b.mu.Unlock()
	return &Subscription{ID: id, b: b}
}

// Unsubscribe is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.b.mu.Lock()
		delete(s.b.subscribers, s.ID)
		s.b.mu.Unlock()
	})
}

// Publish hands the signal to every current subscriber on its own goroutine
// and returns immediately.
func (b *Broadcaster) Publish() {
	b.mu.RLock()
	targets := make(map[string]func(), len(b.subscribers))
	for id, fn := range b.subscribers {
		targets[id] = fn
	}
	b.mu.RUnlock()

	for id, fn := range targets {
		b.inflight.Add(1)
		go b.deliver(id, fn)
	}
}

func (b *Broadcaster) deliver(id string, fn func()) {
	defer b.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Printf("%s subscriber %s panicked: %v", InventoryUpdated, id, r)
		}
	}()
	fn()
}

// Wait blocks until every delivery started so far has returned.
func (b *Broadcaster) Wait() {
	b.inflight.Wait()
}

func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
