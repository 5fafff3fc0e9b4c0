package session

import (
	"errors"
	"sync"

	"librarydesk/pkg/models"
)

var ErrNoSession = errors.New("no persisted session")

// Store persists the token and user record between runs.
type Store interface {
	Load() (*models.User, error)
	Save(user models.User) error
	Clear() error
}

// Session is the explicit session context handed to the API client and the
// views. It is the only place the token lives.
type Session struct {
	store Store

	mu   sync.RWMutex
	user *models.User
}

func New(store Store) *Session {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Session{store: store}
}

// Restore loads a previously persisted session. A missing session is not an
// error; the session simply stays logged out.
func (s *Session) Restore() error {
	user, err := s.store.Load()
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	return nil
}

func (s *Session) Set(user models.User) error {
	if err := s.store.Save(user); err != nil {
		return err
	}
	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()
	return nil
}

// Clear drops token and user wholesale, in memory and in the store.
func (s *Session) Clear() error {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
	return s.store.Clear()
}

func (s *Session) Current() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.Token
}

func (s *Session) IsAuthenticated() bool {
	return s.Token() != ""
}

func (s *Session) IsAdmin() bool {
	user, ok := s.Current()
	return ok && user.Role == models.RoleAdmin
}

type MemoryStore struct {
	mu   sync.Mutex
	user *models.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil, ErrNoSession
	}
	u := *m.user
	return &u, nil
}

func (m *MemoryStore) Save(user models.User) error {
	m.mu.Lock()
	m.user = &user
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	m.user = nil
	m.mu.Unlock()
	return nil
}
