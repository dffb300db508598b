package database

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/doug-martin/goqu/v9"

	"github.com/connectingdocs/treatment-engine/internal/domain/entities"
	"github.com/connectingdocs/treatment-engine/internal/domain/repositories"
	"github.com/connectingdocs/treatment-engine/internal/infrastructure/clients/postgres"
	apperrors "github.com/connectingdocs/treatment-engine/pkg/errors"
)

// ReportAdapter persists generated reports. The profile snapshot and the
// ranked recommendations are stored as JSON documents so a report can be
// replayed exactly as it was served.
type ReportAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewReportAdapter creates a new report adapter.
func NewReportAdapter(client *postgres.Client) repositories.ReportRepository {
	return &ReportAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create stores a report.
func (a *ReportAdapter) Create(ctx context.Context, report *entities.Report) error {
	profileJSON, err := json.Marshal(report.Profile)
	if err != nil {
		return apperrors.NewInternalError("failed to encode profile snapshot", err)
	}
	recsJSON, err := json.Marshal(report.Recommendations)
	if err != nil {
		return apperrors.NewInternalError("failed to encode recommendations", err)
	}

	record := goqu.Record{
		"id":               report.ID,
		"patient_id":       report.PatientID,
		"cache_key":        report.CacheKey,
		"profile":          string(profileJSON),
		"recommendations":  string(recsJSON),
		"source_mode":      string(report.SourceMode),
		"trending_version": report.TrendingVersion,
		"generated_at":     report.GeneratedAt,
	}

	query, args, err := a.db.Insert("reports").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build report insert", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to store report", err)
	}
	return nil
}

// GetByID returns a report by its identifier.
func (a *ReportAdapter) GetByID(ctx context.Context, id string) (*entities.Report, error) {
	query, args, err := a.db.From("reports").
		Select("id", "patient_id", "cache_key", "profile", "recommendations",
			"source_mode", "trending_version", "generated_at").
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build report query", err)
	}
	return a.scanReport(a.client.DB().QueryRowContext(ctx, query, args...), id)
}

// LatestByPatient returns the most recently generated report for a patient.
func (a *ReportAdapter) LatestByPatient(ctx context.Context, patientID string) (*entities.Report, error) {
	query, args, err := a.db.From("reports").
		Select("id", "patient_id", "cache_key", "profile", "recommendations",
			"source_mode", "trending_version", "generated_at").
		Where(goqu.C("patient_id").Eq(patientID)).
		Order(goqu.C("generated_at").Desc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build latest report query", err)
	}
	return a.scanReport(a.client.DB().QueryRowContext(ctx, query, args...), patientID)
}

func (a *ReportAdapter) scanReport(row *sql.Row, key string) (*entities.Report, error) {
	var (
		report      entities.Report
		profileJSON []byte
		recsJSON    []byte
		sourceMode  string
	)
	err := row.Scan(&report.ID, &report.PatientID, &report.CacheKey,
		&profileJSON, &recsJSON, &sourceMode,
		&report.TrendingVersion, &report.GeneratedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("report not found: " + key)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load report", err)
	}

	if err := json.Unmarshal(profileJSON, &report.Profile); err != nil {
		return nil, apperrors.NewInternalError("failed to decode profile snapshot", err)
	}
	if err := json.Unmarshal(recsJSON, &report.Recommendations); err != nil {
		return nil, apperrors.NewInternalError("failed to decode recommendations", err)
	}
	report.SourceMode = entities.SourceMode(sourceMode)

	return &report, nil
}
