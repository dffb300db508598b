package database

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	"github.com/connectingdocs/treatment-engine/internal/domain/entities"
	"github.com/connectingdocs/treatment-engine/internal/domain/repositories"
	"github.com/connectingdocs/treatment-engine/internal/infrastructure/clients/postgres"
	apperrors "github.com/connectingdocs/treatment-engine/pkg/errors"
)

// CatalogAdapter implements the CatalogRepository against the Postgres
// mirror of the knowledge store. Nullable fields are defaulted, never
// dropped: an incomplete protocol is still a candidate.
type CatalogAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewCatalogAdapter creates a new catalog adapter.
func NewCatalogAdapter(client *postgres.Client) repositories.CatalogRepository {
	return &CatalogAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// ListProtocols returns the full protocol catalog in stable order.
func (a *CatalogAdapter) ListProtocols(ctx context.Context) ([]*entities.Protocol, error) {
	query, args, err := a.db.From("protocols").
		Select(
			"id", "name", "goal_primary", "goal_additional",
			"pain_level", "downtime_level", "target_layers",
			"devices", "boosters", "sessions_total",
			"session_interval_weeks", "notes",
		).
		Order(goqu.C("name").Asc(), goqu.C("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build protocol query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewCatalogUnavailableError("protocol catalog unreachable", err)
	}
	defer rows.Close()

	var protocols []*entities.Protocol
	for rows.Next() {
		var (
			p                entities.Protocol
			goalPrimary      sql.NullString
			painLevel        sql.NullString
			downtimeLevel    sql.NullString
			sessionsTotal    sql.NullInt64
			intervalWeeks    sql.NullInt64
			notes            sql.NullString
			goalAdditional   pq.StringArray
			targetLayers     pq.StringArray
			devices          pq.StringArray
			boosters         pq.StringArray
		)

		if err := rows.Scan(
			&p.ID, &p.Name, &goalPrimary, &goalAdditional,
			&painLevel, &downtimeLevel, &targetLayers,
			&devices, &boosters, &sessionsTotal,
			&intervalWeeks, &notes,
		); err != nil {
			return nil, apperrors.NewInternalError("failed to scan protocol", err)
		}

		p.GoalPrimary = goalPrimary.String
		p.GoalAdditional = goalAdditional
		p.TargetLayers = targetLayers
		p.Devices = devices
		p.Boosters = boosters
		p.Notes = notes.String
		p.PainLevel = entities.ParseToleranceLevel(painLevel.String, entities.DefaultProtocolPainLevel)
		p.DowntimeLevel = entities.ParseToleranceLevel(downtimeLevel.String, entities.DefaultProtocolDowntimeLevel)
		p.SessionsTotal = entities.DefaultProtocolSessions
		if sessionsTotal.Valid && sessionsTotal.Int64 > 0 {
			p.SessionsTotal = int(sessionsTotal.Int64)
		}
		if intervalWeeks.Valid {
			p.SessionIntervalWeeks = int(intervalWeeks.Int64)
		}

		protocols = append(protocols, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate protocols", err)
	}

	return protocols, nil
}

// ListSolutions returns the provider-solution roster. The ORDER BY here
// defines the stable roster order used for match tie-breaking.
func (a *CatalogAdapter) ListSolutions(ctx context.Context) ([]*entities.ProviderSolution, error) {
	query, args, err := a.db.From("provider_solutions").
		Select(
			"id", "provider_id", "provider_name", "clinic_name",
			"title", "description", "focus_category",
			"devices", "boosters", "pain_level", "downtime_level",
			"price_range", "location",
		).
		Order(goqu.C("created_at").Asc(), goqu.C("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build solution query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewCatalogUnavailableError("provider solution roster unreachable", err)
	}
	defer rows.Close()

	var solutions []*entities.ProviderSolution
	for rows.Next() {
		var (
			s             entities.ProviderSolution
			clinicName    sql.NullString
			description   sql.NullString
			focusCategory sql.NullString
			painLevel     sql.NullString
			downtimeLevel sql.NullString
			priceRange    sql.NullString
			location      sql.NullString
			devices       pq.StringArray
			boosters      pq.StringArray
		)

		if err := rows.Scan(
			&s.ID, &s.ProviderID, &s.ProviderName, &clinicName,
			&s.Title, &description, &focusCategory,
			&devices, &boosters, &painLevel, &downtimeLevel,
			&priceRange, &location,
		); err != nil {
			return nil, apperrors.NewInternalError("failed to scan provider solution", err)
		}

		s.ClinicName = clinicName.String
		s.Description = description.String
		s.FocusCategory = focusCategory.String
		s.Devices = devices
		s.Boosters = boosters
		s.PriceRange = priceRange.String
		s.Location = location.String
		s.PainLevel = entities.ParseToleranceLevel(painLevel.String, entities.DefaultProtocolPainLevel)
		s.DowntimeLevel = entities.ParseToleranceLevel(downtimeLevel.String, entities.DefaultProtocolDowntimeLevel)

		solutions = append(solutions, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate provider solutions", err)
	}

	return solutions, nil
}

// TrendingKeywords returns the newest trending catalog version. When the
// table is empty the compiled-in default list is returned so ranking can
// always annotate candidates.
func (a *CatalogAdapter) TrendingKeywords(ctx context.Context) (entities.TrendingCatalog, error) {
	query, args, err := a.db.From("trending_catalog").
		Select("version", "keywords").
		Order(goqu.C("updated_at").Desc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return entities.TrendingCatalog{}, apperrors.NewInternalError("failed to build trending query", err)
	}

	var (
		version  string
		keywords pq.StringArray
	)
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(&version, &keywords)
	if err == sql.ErrNoRows {
		return entities.DefaultTrendingCatalog(), nil
	}
	if err != nil {
		return entities.TrendingCatalog{}, apperrors.NewInternalError("failed to load trending catalog", err)
	}

	return entities.TrendingCatalog{Version: version, Keywords: keywords}, nil
}
