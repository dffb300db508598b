package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/connectingdocs/treatment-engine/internal/domain/entities"
	"github.com/connectingdocs/treatment-engine/internal/domain/providers"
	"github.com/connectingdocs/treatment-engine/internal/domain/repositories"
	"github.com/connectingdocs/treatment-engine/internal/infrastructure/observability"
)

const (
	protocolsCacheKey = "catalog:protocols"
	solutionsCacheKey = "catalog:solutions"
	trendingCacheKey  = "catalog:trending"

	catalogCacheTTLSeconds  = 180
	trendingCacheTTLSeconds = 600
)

// CachedCatalogAdapter wraps a CatalogRepository with a cache-aside layer.
// Cache failures are treated as misses; the source of truth is always the
// wrapped repository.
type CachedCatalogAdapter struct {
	repo    repositories.CatalogRepository
	cache   providers.CacheProvider
	metrics *observability.Metrics
}

// NewCachedCatalogAdapter creates a caching wrapper around repo.
func NewCachedCatalogAdapter(repo repositories.CatalogRepository, cache providers.CacheProvider, metrics *observability.Metrics) repositories.CatalogRepository {
	return &CachedCatalogAdapter{
		repo:    repo,
		cache:   cache,
		metrics: metrics,
	}
}

func (a *CachedCatalogAdapter) ListProtocols(ctx context.Context) ([]*entities.Protocol, error) {
	logger := observability.LoggerFromContext(ctx)

	if data, err := a.cache.Get(ctx, protocolsCacheKey); err == nil {
		var protocols []*entities.Protocol
		decodeErr := json.Unmarshal(data, &protocols)
		if decodeErr == nil {
			observability.RecordCacheHit(ctx, a.metrics, "protocols")
			return protocols, nil
		}
		logger.Warn().Err(decodeErr).Msg("Failed to decode cached protocols, falling through")
	}
	observability.RecordCacheMiss(ctx, a.metrics, "protocols")

	protocols, err := a.repo.ListProtocols(ctx)
	if err != nil {
		return nil, err
	}

	a.fill(protocolsCacheKey, protocols, catalogCacheTTLSeconds)
	return protocols, nil
}

func (a *CachedCatalogAdapter) ListSolutions(ctx context.Context) ([]*entities.ProviderSolution, error) {
	if data, err := a.cache.Get(ctx, solutionsCacheKey); err == nil {
		var solutions []*entities.ProviderSolution
		if err := json.Unmarshal(data, &solutions); err == nil {
			observability.RecordCacheHit(ctx, a.metrics, "solutions")
			return solutions, nil
		}
	}
	observability.RecordCacheMiss(ctx, a.metrics, "solutions")

	solutions, err := a.repo.ListSolutions(ctx)
	if err != nil {
		return nil, err
	}

	a.fill(solutionsCacheKey, solutions, catalogCacheTTLSeconds)
	return solutions, nil
}

func (a *CachedCatalogAdapter) TrendingKeywords(ctx context.Context) (entities.TrendingCatalog, error) {
	if data, err := a.cache.Get(ctx, trendingCacheKey); err == nil {
		var catalog entities.TrendingCatalog
		if err := json.Unmarshal(data, &catalog); err == nil && catalog.Version != "" {
			observability.RecordCacheHit(ctx, a.metrics, "trending")
			return catalog, nil
		}
	}
	observability.RecordCacheMiss(ctx, a.metrics, "trending")

	catalog, err := a.repo.TrendingKeywords(ctx)
	if err != nil {
		return entities.TrendingCatalog{}, err
	}

	a.fill(trendingCacheKey, catalog, trendingCacheTTLSeconds)
	return catalog, nil
}

// fill writes a cache entry off the request path. Encoding happens
// synchronously because callers are free to mutate the returned values
// the moment they have them; only the cache write is deferred. The
// parent context may already be cancelled once the response is sent, so
// the write uses a fresh one.
func (a *CachedCatalogAdapter) fill(key string, value any, ttlSeconds int) {
	data, err := json.Marshal(value)
	if err != nil {
		observability.GetLogger().Warn().Err(err).Str("key", key).Msg("Failed to encode cache entry")
		return
	}

	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := a.cache.Set(cacheCtx, key, data, ttlSeconds); err != nil {
			observability.GetLogger().Warn().Err(err).Str("key", key).Msg("Failed to fill cache entry")
		}
	}()
}
