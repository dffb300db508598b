package repositories

import (
	"context"

	"github.com/connectingdocs/treatment-engine/internal/domain/entities"
)

// CatalogRepository is the read-only view of the external knowledge
// store: the protocol catalog, the provider-solution roster, and the
// trending keyword list. Implementations must tolerate schema drift by
// defaulting missing fields rather than dropping entries.
type CatalogRepository interface {
	// ListProtocols returns the full protocol catalog in stable order.
	ListProtocols(ctx context.Context) ([]*entities.Protocol, error)

	// ListSolutions returns the full provider-solution roster in stable
	// order; that order is the tie-break for match ranking.
	ListSolutions(ctx context.Context) ([]*entities.ProviderSolution, error)

	// TrendingKeywords returns the current versioned trending catalog.
	TrendingKeywords(ctx context.Context) (entities.TrendingCatalog, error)
}

// SolutionSearchRepository is the provider-solution discovery index
// (e.g. Typesense), maintained out-of-band by the indexer.
type SolutionSearchRepository interface {
	// InitSchema ensures the collection exists.
	InitSchema(ctx context.Context) error

	// Index upserts a solution document.
	Index(ctx context.Context, solution *entities.ProviderSolution) error

	// Delete removes a solution from the index.
	Delete(ctx context.Context, id string) error

	// SearchByFocus returns solutions whose focus category matches the query.
	SearchByFocus(ctx context.Context, focus string, limit int) ([]*entities.ProviderSolution, error)
}
