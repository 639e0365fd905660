// Package session caches enriched series between a full analysis and later
// re-decisions on the same data.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"synapse/internal/logger"
	"synapse/internal/series"
	"synapse/internal/strategy"
)

const DefaultCapacity = 20

var ErrNotFound = errors.New("session expired or not found")

// Session is write-once: nothing in it changes after Create.
type Session struct {
	ID        string
	Series    series.Series
	Config    strategy.Config
	CreatedAt time.Time
}

type Store interface {
	Create(s series.Series, cfg strategy.Config) string
	Get(id string) (Session, error)
	Len() int
}

type Option func(*MemoryStore)

// WithCapacity bounds the number of live sessions. Values below 1 are ignored.
func WithCapacity(n int) Option {
	return func(m *MemoryStore) {
		if n > 0 {
			m.capacity = n
		}
	}
}

func WithIDGenerator(gen func() string) Option {
	return func(m *MemoryStore) {
		if gen != nil {
			m.newID = gen
		}
	}
}

// WithEvictHook is called, outside the lock, with each evicted session id.
func WithEvictHook(fn func(id string)) Option {
	return func(m *MemoryStore) { m.onEvict = fn }
}

// MemoryStore keeps sessions in insertion order and evicts the oldest once
// capacity is exceeded.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]Session
	order    []string
	newID    func() string
	now      func() time.Time
	onEvict  func(id string)
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	m := &MemoryStore{
		capacity: DefaultCapacity,
		entries:  make(map[string]Session),
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryStore) Create(s series.Series, cfg strategy.Config) string {
	m.mu.Lock()
	id := m.newID()
	for {
		if _, taken := m.entries[id]; !taken {
			break
		}
		id = m.newID()
	}
	m.entries[id] = Session{ID: id, Series: s, Config: cfg, CreatedAt: m.now()}
	m.order = append(m.order, id)
	var evicted []string
	for len(m.order) > m.capacity {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
		evicted = append(evicted, oldest)
	}
	hook := m.onEvict
	m.mu.Unlock()

	for _, old := range evicted {
		logger.Debugf("session: evicted %s", old)
		if hook != nil {
			hook(old)
		}
	}
	return id
}

func (m *MemoryStore) Get(id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.entries[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryStore) Capacity() int {
	return m.capacity
}
