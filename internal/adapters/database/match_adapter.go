package database

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	"github.com/connectingdocs/treatment-engine/internal/domain/entities"
	"github.com/connectingdocs/treatment-engine/internal/domain/repositories"
	"github.com/connectingdocs/treatment-engine/internal/infrastructure/clients/postgres"
	apperrors "github.com/connectingdocs/treatment-engine/pkg/errors"
)

// MatchAdapter persists provider match results.
type MatchAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewMatchAdapter creates a new match adapter.
func NewMatchAdapter(client *postgres.Client) repositories.MatchRepository {
	return &MatchAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// CreateBatch stores the match results for a report in one insert.
func (a *MatchAdapter) CreateBatch(ctx context.Context, matches []*entities.MatchResult) error {
	if len(matches) == 0 {
		return nil
	}

	records := make([]goqu.Record, 0, len(matches))
	for _, m := range matches {
		records = append(records, goqu.Record{
			"id":            m.ID,
			"report_id":     m.ReportID,
			"solution_id":   m.SolutionID,
			"provider_id":   m.ProviderID,
			"provider_name": m.ProviderName,
			"score":         m.Score,
			"match_details": pq.Array(m.MatchDetails),
			"created_at":    m.CreatedAt,
		})
	}

	query, args, err := a.db.Insert("match_results").Rows(records).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build match insert", err)
	}
	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to store match results", err)
	}
	return nil
}

// ListByReport returns stored matches for a report, best score first.
func (a *MatchAdapter) ListByReport(ctx context.Context, reportID string) ([]*entities.MatchResult, error) {
	query, args, err := a.db.From("match_results").
		Select("id", "report_id", "solution_id", "provider_id",
			"provider_name", "score", "match_details", "created_at").
		Where(goqu.C("report_id").Eq(reportID)).
		Order(goqu.C("score").Desc(), goqu.C("created_at").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build match query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list match results", err)
	}
	defer rows.Close()

	var matches []*entities.MatchResult
	for rows.Next() {
		var (
			m       entities.MatchResult
			details pq.StringArray
		)
		if err := rows.Scan(&m.ID, &m.ReportID, &m.SolutionID, &m.ProviderID,
			&m.ProviderName, &m.Score, &details, &m.CreatedAt); err != nil {
			return nil, apperrors.NewInternalError("failed to scan match result", err)
		}
		m.MatchDetails = details
		matches = append(matches, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate match results", err)
	}

	return matches, nil
}
