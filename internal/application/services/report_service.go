package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/connectingdocs/treatment-engine/internal/domain/entities"
	"github.com/connectingdocs/treatment-engine/internal/domain/providers"
	"github.com/connectingdocs/treatment-engine/internal/domain/repositories"
	"github.com/connectingdocs/treatment-engine/internal/infrastructure/observability"
	apperrors "github.com/connectingdocs/treatment-engine/pkg/errors"
)

const (
	reportContentKeyPrefix = "report:"
	reportIDKeyPrefix      = "report:id:"
	reportCacheTTLSeconds  = 3600
)

// anonymousPatientID is used for tier-3 synthesis when a lookup carries
// no patient identity at all.
const anonymousPatientID = "anonymous"

// ReportService owns the report lifecycle: idempotent generation keyed by
// content identity, tiered lookup, and fire-and-forget persistence.
// Concurrent writers for the same key may race; computation is
// deterministic, so last-writer-wins needs no locking.
type ReportService struct {
	profiles *ProfileService
	ranker   *RecommendationService
	reports  repositories.ReportRepository
	cache    providers.CacheProvider
	events   providers.EventBus
	metrics  *observability.Metrics
}

// NewReportService creates a report service. cache and events may be nil
// when Redis is unavailable; caching and publishing are then skipped.
func NewReportService(
	profiles *ProfileService,
	ranker *RecommendationService,
	reports repositories.ReportRepository,
	cache providers.CacheProvider,
	events providers.EventBus,
	metrics *observability.Metrics,
) *ReportService {
	return &ReportService{
		profiles: profiles,
		ranker:   ranker,
		reports:  reports,
		cache:    cache,
		events:   events,
		metrics:  metrics,
	}
}

// GenerateReportRequest is an inbound scoring request: either a canonical
// profile or a raw survey, plus optional re-tune overrides.
type GenerateReportRequest struct {
	PatientID    string
	Profile      *entities.PatientProfile
	Survey       *entities.RawSurvey
	Overrides    *entities.RetuneOverrides
	ForceRefresh bool
}

// Generate produces a report for the request. Identical (patient,
// profile) pairs resolve to the cached report unless a force refresh is
// requested; a re-tune always lands on a different content key and so
// always produces a new snapshot.
func (s *ReportService) Generate(ctx context.Context, req *GenerateReportRequest) (*entities.Report, error) {
	logger := observability.LoggerFromContext(ctx)

	profile := req.Profile
	if profile == nil {
		survey := req.Survey
		if survey == nil {
			survey = &entities.RawSurvey{}
		}
		profile = s.profiles.Normalize(ctx, survey)
	}
	profile = s.profiles.ApplyOverrides(profile, req.Overrides)

	patientID := req.PatientID
	if patientID == "" {
		patientID = anonymousPatientID
	}
	cacheKey := reportContentKeyPrefix + profile.SnapshotKey(patientID)

	if !req.ForceRefresh {
		if report, ok := s.cachedReport(ctx, cacheKey); ok {
			observability.RecordCacheHit(ctx, s.metrics, "report")
			return report, nil
		}
		observability.RecordCacheMiss(ctx, s.metrics, "report")
	}

	result, err := s.ranker.Rank(ctx, profile)
	if err != nil {
		return nil, err
	}

	report := &entities.Report{
		ID:              uuid.NewString(),
		PatientID:       patientID,
		Profile:         *profile,
		Recommendations: result.Recommendations,
		SourceMode:      result.SourceMode,
		CacheKey:        cacheKey,
		TrendingVersion: result.TrendingVersion,
		GeneratedAt:     time.Now().UTC(),
	}

	// Persistence is fire-and-forget: a report the patient never sees is
	// worse than a report the database never sees.
	if err := s.reports.Create(ctx, report); err != nil {
		logger.Warn().Err(err).Str("report_id", report.ID).Msg("Failed to persist report")
	}
	go s.fillCache(report)
	go s.publishGenerated(report)

	observability.RecordReportGenerated(ctx, s.metrics, string(report.SourceMode))
	return report, nil
}

// Resolve looks a report up through three tiers: by explicit id, by the
// patient's most recent report, and finally by synthesizing a fresh one
// from the catalog. Only catalog unavailability at the last tier is a
// hard error.
func (s *ReportService) Resolve(ctx context.Context, reportID, patientID string) (*entities.Report, error) {
	logger := observability.LoggerFromContext(ctx)

	if reportID != "" {
		if report, ok := s.cachedReport(ctx, reportIDKeyPrefix+reportID); ok {
			observability.RecordCacheHit(ctx, s.metrics, "report")
			return report, nil
		}
		report, err := s.reports.GetByID(ctx, reportID)
		if err == nil {
			go s.fillCache(report)
			return report, nil
		}
		if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			logger.Warn().Err(err).Str("report_id", reportID).Msg("Report lookup failed, falling through")
		}
	}

	if patientID != "" {
		report, err := s.reports.LatestByPatient(ctx, patientID)
		if err == nil {
			return report, nil
		}
		if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			logger.Warn().Err(err).Str("patient_id", patientID).Msg("Latest-report lookup failed, falling through")
		}
	}

	return s.Generate(ctx, &GenerateReportRequest{PatientID: patientID})
}

// cachedReport reads and decodes a cached report. Cache failures of any
// kind count as a miss.
func (s *ReportService) cachedReport(ctx context.Context, key string) (*entities.Report, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	var report entities.Report
	if err := json.Unmarshal(data, &report); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("Failed to decode cached report")
		return nil, false
	}
	return &report, true
}

// fillCache writes the report under both its content key and its id key,
// off the request path.
func (s *ReportService) fillCache(report *entities.Report) {
	if s.cache == nil {
		return
	}
	cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := json.Marshal(report)
	if err != nil {
		observability.GetLogger().Warn().Err(err).Str("report_id", report.ID).Msg("Failed to encode report for cache")
		return
	}
	if err := s.cache.Set(cacheCtx, report.CacheKey, data, reportCacheTTLSeconds); err != nil {
		observability.GetLogger().Warn().Err(err).Str("report_id", report.ID).Msg("Failed to cache report by content key")
	}
	if err := s.cache.Set(cacheCtx, reportIDKeyPrefix+report.ID, data, reportCacheTTLSeconds); err != nil {
		observability.GetLogger().Warn().Err(err).Str("report_id", report.ID).Msg("Failed to cache report by id")
	}
}

// publishGenerated fans the generation event out on the bus.
func (s *ReportService) publishGenerated(report *entities.Report) {
	if s.events == nil {
		return
	}
	publishCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	event := &entities.ReportEvent{
		ID:         uuid.NewString(),
		Type:       entities.ReportEventGenerated,
		ReportID:   report.ID,
		PatientID:  report.PatientID,
		SourceMode: report.SourceMode,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.events.Publish(publishCtx, providers.EventChannelReports, event); err != nil {
		observability.GetLogger().Warn().Err(err).Str("report_id", report.ID).Msg("Failed to publish report event")
	}
	if err := s.events.Publish(publishCtx, providers.GetPatientChannel(report.PatientID), event); err != nil {
		observability.GetLogger().Warn().Err(err).Str("report_id", report.ID).Msg("Failed to publish patient event")
	}
}
