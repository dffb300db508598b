package repositories

import (
	"context"

	"github.com/connectingdocs/treatment-engine/internal/domain/entities"
)

// ReportRepository persists report snapshots. Reports are append-only:
// a re-tune writes a new row, never an update.
type ReportRepository interface {
	// Create inserts a report snapshot with its recommendations.
	Create(ctx context.Context, report *entities.Report) error

	// GetByID retrieves a report by its identifier.
	GetByID(ctx context.Context, id string) (*entities.Report, error)

	// LatestByPatient retrieves the most recently generated report for a
	// patient, or a not-found error when none exists.
	LatestByPatient(ctx context.Context, patientID string) (*entities.Report, error)
}

// MatchRepository persists provider match records. Matches are
// append-only, one row per shortlisted offering per run.
type MatchRepository interface {
	// CreateBatch inserts the shortlist in one statement.
	CreateBatch(ctx context.Context, matches []*entities.MatchResult) error

	// ListByReport returns the match history for a report.
	ListByReport(ctx context.Context, reportID string) ([]*entities.MatchResult, error)
}
