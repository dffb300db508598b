package services

import (
	"context"
	"strings"

	"github.com/connectingdocs/treatment-engine/internal/domain/entities"
	"github.com/connectingdocs/treatment-engine/internal/infrastructure/observability"
)

// Normalizer default tolerances for absent survey answers.
const (
	defaultPainTolerance     = entities.ToleranceMedium
	defaultDowntimeTolerance = entities.ToleranceLow
)

// noneSentinel marks a "none of the above" multi-select option. When it
// appears alongside real values the sentinel wins, because a contradictory
// answer most likely means the patient changed their mind.
const noneSentinel = "none"

// ProfileService normalizes raw survey payloads into canonical patient
// profiles. It never rejects input: missing or malformed answers get
// defaults, because this is a pre-consultation tool.
type ProfileService struct{}

// NewProfileService creates a new profile service.
func NewProfileService() *ProfileService {
	return &ProfileService{}
}

// Normalize turns a raw survey into a canonical profile.
func (s *ProfileService) Normalize(ctx context.Context, survey *entities.RawSurvey) *entities.PatientProfile {
	logger := observability.LoggerFromContext(ctx)

	language := entities.ParseLanguage(survey.Language)

	profile := &entities.PatientProfile{
		Age:               strings.TrimSpace(survey.Age),
		Gender:            strings.TrimSpace(survey.Gender),
		Country:           strings.TrimSpace(survey.Country),
		PrimaryGoal:       strings.TrimSpace(survey.PrimaryGoal),
		SecondaryGoal:     strings.TrimSpace(survey.SecondaryGoal),
		Risks:             normalizeMultiSelect(survey.Risks),
		Areas:             normalizeMultiSelect(survey.Areas),
		SkinType:          strings.TrimSpace(survey.SkinType),
		PainTolerance:     entities.ParseToleranceLevel(survey.PainTolerance.Resolve(language), defaultPainTolerance),
		DowntimeTolerance: entities.ParseToleranceLevel(survey.DowntimeTolerance.Resolve(language), defaultDowntimeTolerance),
		BudgetTier:        strings.TrimSpace(survey.BudgetTier),
		TreatmentHistory:  normalizeMultiSelect(survey.TreatmentHistory),
		Language:          language,
	}

	if profile.PrimaryGoal == "" {
		logger.Warn().Msg("Survey arrived without a primary goal, defaulting")
		profile.PrimaryGoal = entities.DefaultPrimaryGoal
	}

	return profile
}

// ApplyOverrides returns a new profile with re-tune overrides applied.
// The input profile is never mutated; a re-tune produces a new snapshot.
func (s *ProfileService) ApplyOverrides(profile *entities.PatientProfile, overrides *entities.RetuneOverrides) *entities.PatientProfile {
	tuned := profile.Clone()
	if overrides == nil {
		return tuned
	}
	if overrides.PainTolerance != nil {
		tuned.PainTolerance = *overrides.PainTolerance
	}
	if overrides.DowntimeTolerance != nil {
		tuned.DowntimeTolerance = *overrides.DowntimeTolerance
	}
	return tuned
}

// normalizeMultiSelect trims, deduplicates, and re-enforces the "none"
// sentinel's mutual exclusivity. The wizard should prevent contradictory
// selections, but the normalizer does not trust it.
func normalizeMultiSelect(values []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(values))
	hasNone := false

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if seen[key] {
			continue
		}
		seen[key] = true
		if key == noneSentinel {
			hasNone = true
			continue
		}
		out = append(out, trimmed)
	}

	if hasNone {
		return []string{noneSentinel}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
