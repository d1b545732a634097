package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/terra-clan/survey-admin/internal/authoring"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps sessions in an expiring LRU inside the process.
// Snapshots are stored encoded so callers never share a wizard.
type MemoryStore struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, []byte]
	now   func() time.Time
}

// NewMemoryStore creates a store holding at most maxEntries sessions,
// each evicted after ttl without a write
func NewMemoryStore(maxEntries int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: expirable.NewLRU[string, []byte](maxEntries, nil, ttl),
		now:   time.Now,
	}
}

func (m *MemoryStore) Create(ctx context.Context, w *authoring.Wizard) (*Session, error) {
	s, err := newSession(w, m.now().UTC())
	if err != nil {
		return nil, err
	}
	data, err := encode(s)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Add(s.ID, data)

	return decode(data)
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	data, ok := m.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return decode(data)
}

func (m *MemoryStore) Update(ctx context.Context, id string, fn func(s *Session) error) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s, err := decode(data)
	if err != nil {
		return nil, err
	}

	if err := fn(s); err != nil {
		return nil, err
	}
	s.ID = id
	s.UpdatedAt = m.now().UTC()

	data, err = encode(s)
	if err != nil {
		return nil, err
	}
	m.cache.Add(id, data)
	return s, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.cache.Remove(id) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// Len returns the number of live sessions
func (m *MemoryStore) Len() int {
	return m.cache.Len()
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryStore) Close() error {
	m.cache.Purge()
	return nil
}
