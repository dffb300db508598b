package database_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/connectingdocs/treatment-engine/internal/adapters/database"
	"github.com/connectingdocs/treatment-engine/internal/domain/entities"
)

type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) ListProtocols(ctx context.Context) ([]*entities.Protocol, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Protocol), args.Error(1)
}

func (m *MockCatalogRepository) ListSolutions(ctx context.Context) ([]*entities.ProviderSolution, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ProviderSolution), args.Error(1)
}

func (m *MockCatalogRepository) TrendingKeywords(ctx context.Context) (entities.TrendingCatalog, error) {
	args := m.Called(ctx)
	return args.Get(0).(entities.TrendingCatalog), args.Error(1)
}

// recordingCache stores entries in memory and signals every write so
// tests can wait for the asynchronous fill.
type recordingCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	sets    chan string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{
		entries: map[string][]byte{},
		sets:    make(chan string, 8),
	}
}

func (c *recordingCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if data, ok := c.entries[key]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("key not found: %s", key)
}

func (c *recordingCache) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	c.mu.Lock()
	c.entries[key] = value
	c.mu.Unlock()
	c.sets <- key
	return nil
}

func (c *recordingCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *recordingCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok, nil
}

func (c *recordingCache) waitForSet(t *testing.T, key string) []byte {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case written := <-c.sets:
			if written == key {
				c.mu.Lock()
				defer c.mu.Unlock()
				return c.entries[key]
			}
		case <-deadline:
			t.Fatalf("cache fill for %s never happened", key)
		}
	}
}

func catalogFixture() []*entities.Protocol {
	return []*entities.Protocol{
		{ID: "p1", Name: "Gentle Laser Tone-Up", GoalPrimary: "anti-aging"},
		{ID: "p2", Name: "Rejuran Healing Course", GoalPrimary: "texture"},
	}
}

func TestCachedCatalogAdapter_ListProtocols(t *testing.T) {
	t.Run("cached payload is a snapshot taken before callers can mutate", func(t *testing.T) {
		repo := new(MockCatalogRepository)
		repo.On("ListProtocols", mock.Anything).Return(catalogFixture(), nil)
		cache := newRecordingCache()
		adapter := database.NewCachedCatalogAdapter(repo, cache, nil)

		protocols, err := adapter.ListProtocols(context.Background())
		require.NoError(t, err)
		require.Len(t, protocols, 2)

		// The ranker annotates the returned values in place as soon as it
		// has them. That must never leak into the cached payload.
		for _, p := range protocols {
			p.Trending = true
		}

		data := cache.waitForSet(t, "catalog:protocols")
		var cached []*entities.Protocol
		require.NoError(t, json.Unmarshal(data, &cached))
		require.Len(t, cached, 2)
		for _, p := range cached {
			assert.False(t, p.Trending, "cache captured a caller-side mutation for %s", p.ID)
		}
	})

	t.Run("cache hit skips the repository", func(t *testing.T) {
		cache := newRecordingCache()
		seeded, err := json.Marshal(catalogFixture())
		require.NoError(t, err)
		cache.entries["catalog:protocols"] = seeded

		repo := new(MockCatalogRepository)
		adapter := database.NewCachedCatalogAdapter(repo, cache, nil)

		protocols, err := adapter.ListProtocols(context.Background())
		require.NoError(t, err)
		assert.Len(t, protocols, 2)
		repo.AssertNotCalled(t, "ListProtocols", mock.Anything)
	})

	t.Run("corrupt cache entry falls through to the repository", func(t *testing.T) {
		cache := newRecordingCache()
		cache.entries["catalog:protocols"] = []byte("{not json")

		repo := new(MockCatalogRepository)
		repo.On("ListProtocols", mock.Anything).Return(catalogFixture(), nil)
		adapter := database.NewCachedCatalogAdapter(repo, cache, nil)

		protocols, err := adapter.ListProtocols(context.Background())
		require.NoError(t, err)
		assert.Len(t, protocols, 2)
		repo.AssertExpectations(t)

		// The bad entry gets replaced by a decodable one.
		data := cache.waitForSet(t, "catalog:protocols")
		var cached []*entities.Protocol
		assert.NoError(t, json.Unmarshal(data, &cached))
	})
}

func TestCachedCatalogAdapter_TrendingKeywords(t *testing.T) {
	repo := new(MockCatalogRepository)
	repo.On("TrendingKeywords", mock.Anything).Return(entities.TrendingCatalog{
		Version:  "2026-08",
		Keywords: []string{"rejuran"},
	}, nil).Once()
	cache := newRecordingCache()
	adapter := database.NewCachedCatalogAdapter(repo, cache, nil)

	first, err := adapter.TrendingKeywords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-08", first.Version)
	cache.waitForSet(t, "catalog:trending")

	second, err := adapter.TrendingKeywords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	repo.AssertExpectations(t)
}
