package session

import (
	"fmt"
	"sync"
	"testing"

	"synapse/internal/series"
	"synapse/internal/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("s%02d", n)
	}
}

func TestCreateAndGet(t *testing.T) {
	store := NewMemoryStore()
	cfg := strategy.Default()
	id := store.Create(series.Series{Symbol: "BTCUSDT"}, cfg)
	require.NotEmpty(t, id)

	s, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", s.Series.Symbol)
	assert.Equal(t, cfg, s.Config)
	assert.Equal(t, DefaultCapacity, store.Capacity())

	_, err = store.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualError(t, err, "session expired or not found")
}

func TestEvictsOldestBeyondCapacity(t *testing.T) {
	var evicted []string
	store := NewMemoryStore(WithIDGenerator(seqIDs()), WithEvictHook(func(id string) {
		evicted = append(evicted, id)
	}))

	ids := make([]string, 0, 21)
	for i := 0; i < 21; i++ {
		ids = append(ids, store.Create(series.Series{}, strategy.Default()))
	}

	assert.Equal(t, 20, store.Len())
	assert.Equal(t, []string{"s01"}, evicted)
	_, err := store.Get(ids[0])
	assert.ErrorIs(t, err, ErrNotFound)
	for _, id := range ids[1:] {
		_, err := store.Get(id)
		assert.NoError(t, err, id)
	}
}

func TestCustomCapacity(t *testing.T) {
	store := NewMemoryStore(WithCapacity(2), WithIDGenerator(seqIDs()))
	store.Create(series.Series{}, strategy.Default())
	store.Create(series.Series{}, strategy.Default())
	third := store.Create(series.Series{}, strategy.Default())

	assert.Equal(t, 2, store.Len())
	_, err := store.Get("s01")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(third)
	assert.NoError(t, err)
}

func TestIDCollisionRetries(t *testing.T) {
	calls := 0
	gen := func() string {
		calls++
		if calls <= 2 {
			return "same"
		}
		return "other"
	}
	store := NewMemoryStore(WithIDGenerator(gen))
	assert.Equal(t, "same", store.Create(series.Series{}, strategy.Default()))
	assert.Equal(t, "other", store.Create(series.Series{}, strategy.Default()))
}

func TestConcurrentCreate(t *testing.T) {
	store := NewMemoryStore(WithCapacity(5))
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := store.Create(series.Series{}, strategy.Default())
			_, _ = store.Get(id)
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, store.Len())
}
