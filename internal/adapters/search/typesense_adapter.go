package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/connectingdocs/treatment-engine/internal/domain/entities"
	"github.com/connectingdocs/treatment-engine/internal/domain/repositories"
	tsclient "github.com/connectingdocs/treatment-engine/internal/infrastructure/clients/typesense"
)

// collectionName aliases the client-level constant so the indexer's
// reset path and this schema can never name different collections.
const collectionName = tsclient.SolutionsCollection

// TypesenseAdapter implements provider-solution search using Typesense.
type TypesenseAdapter struct {
	client *tsclient.Client
}

// Ensure TypesenseAdapter implements SolutionSearchRepository
var _ repositories.SolutionSearchRepository = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// InitSchema ensures the collection exists
func (a *TypesenseAdapter) InitSchema(ctx context.Context) error {
	_, err := a.client.Client().Collection(collectionName).Retrieve(ctx)
	if err == nil {
		return nil // Collection exists
	}

	schema := &api.CollectionSchema{
		Name: collectionName,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "provider_id", Type: "string", Facet: pointer.True()},
			{Name: "provider_name", Type: "string"},
			{Name: "title", Type: "string"},
			{Name: "description", Type: "string"},
			{Name: "focus_category", Type: "string", Facet: pointer.True()},
			{Name: "devices", Type: "string[]"},
			{Name: "boosters", Type: "string[]"},
			{Name: "pain_level", Type: "int32"},
			{Name: "downtime_level", Type: "int32"},
			{Name: "indexed_at", Type: "int64"},
		},
		DefaultSortingField: pointer.String("indexed_at"),
	}

	_, err = a.client.Client().Collections().Create(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create typesense collection: %w", err)
	}

	return nil
}

// Index upserts a provider solution into the search index.
func (a *TypesenseAdapter) Index(ctx context.Context, solution *entities.ProviderSolution) error {
	document := map[string]interface{}{
		"id":             solution.ID,
		"provider_id":    solution.ProviderID,
		"provider_name":  solution.ProviderName,
		"title":          solution.Title,
		"description":    solution.Description,
		"focus_category": strings.ToLower(solution.FocusCategory),
		"devices":        lowerAll(solution.Devices),
		"boosters":       lowerAll(solution.Boosters),
		"pain_level":     int32(solution.PainLevel),
		"downtime_level": int32(solution.DowntimeLevel),
		"indexed_at":     time.Now().Unix(),
	}

	_, err := a.client.Client().Collection(collectionName).Documents().Upsert(ctx, document)
	if err != nil {
		return fmt.Errorf("failed to index provider solution: %w", err)
	}

	return nil
}

// Delete removes a solution from the index.
func (a *TypesenseAdapter) Delete(ctx context.Context, id string) error {
	_, err := a.client.Client().Collection(collectionName).Document(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete provider solution from index: %w", err)
	}
	return nil
}

// SearchByFocus returns solutions whose focus category or free text
// matches the query. Hits carry partial entities; callers that need the
// full roster row re-fetch it from the catalog by ID.
func (a *TypesenseAdapter) SearchByFocus(ctx context.Context, focus string, limit int) ([]*entities.ProviderSolution, error) {
	if limit <= 0 {
		limit = 50
	}
	query := strings.ToLower(strings.TrimSpace(focus))
	if query == "" {
		query = "*"
	}

	searchParams := &api.SearchCollectionParams{
		Q:       pointer.String(query),
		QueryBy: pointer.String("focus_category,title,description"),
		PerPage: pointer.Int(limit),
	}

	result, err := a.client.Client().Collection(collectionName).Documents().Search(ctx, searchParams)
	if err != nil {
		return nil, fmt.Errorf("failed to search provider solutions: %w", err)
	}

	solutions := []*entities.ProviderSolution{}
	if result.Hits == nil {
		return solutions, nil
	}
	for _, hit := range *result.Hits {
		doc := *hit.Document

		// Typesense returns map[string]interface{}, so cast field by field.
		solution := &entities.ProviderSolution{}
		if val, ok := doc["id"].(string); ok {
			solution.ID = val
		}
		if val, ok := doc["provider_id"].(string); ok {
			solution.ProviderID = val
		}
		if val, ok := doc["provider_name"].(string); ok {
			solution.ProviderName = val
		}
		if val, ok := doc["title"].(string); ok {
			solution.Title = val
		}
		if val, ok := doc["description"].(string); ok {
			solution.Description = val
		}
		if val, ok := doc["focus_category"].(string); ok {
			solution.FocusCategory = val
		}
		solution.Devices = stringSlice(doc["devices"])
		solution.Boosters = stringSlice(doc["boosters"])
		if val, ok := doc["pain_level"].(float64); ok {
			solution.PainLevel = entities.ToleranceLevel(int(val))
		}
		if val, ok := doc["downtime_level"].(float64); ok {
			solution.DowntimeLevel = entities.ToleranceLevel(int(val))
		}

		solutions = append(solutions, solution)
	}

	return solutions, nil
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}

func stringSlice(raw interface{}) []string {
	values, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
