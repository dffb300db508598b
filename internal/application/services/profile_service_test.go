package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/connectingdocs/treatment-engine/internal/application/services"
	"github.com/connectingdocs/treatment-engine/internal/domain/entities"
)

func TestProfileService_Normalize(t *testing.T) {
	service := services.NewProfileService()
	ctx := context.Background()

	t.Run("empty survey gets defaults", func(t *testing.T) {
		profile := service.Normalize(ctx, &entities.RawSurvey{})

		assert.Equal(t, entities.DefaultPrimaryGoal, profile.PrimaryGoal)
		assert.Equal(t, entities.ToleranceMedium, profile.PainTolerance)
		assert.Equal(t, entities.ToleranceLow, profile.DowntimeTolerance)
		assert.Equal(t, entities.LanguageEN, profile.Language)
	})

	t.Run("localized tolerance answers resolve per language", func(t *testing.T) {
		profile := service.Normalize(ctx, &entities.RawSurvey{
			Language: "ko",
			PainTolerance: entities.LocalizedText{
				entities.LanguageEN: "I prefer minimal pain",
				entities.LanguageKO: "high tolerance",
			},
			DowntimeTolerance: entities.LocalizedText{
				entities.LanguageEN: "None (back to daily life immediately)",
			},
		})

		assert.Equal(t, entities.ToleranceHigh, profile.PainTolerance)
		assert.Equal(t, entities.ToleranceNone, profile.DowntimeTolerance)
	})

	t.Run("multi-selects are deduplicated", func(t *testing.T) {
		profile := service.Normalize(ctx, &entities.RawSurvey{
			Risks: []string{"keloid", "Keloid", " keloid ", "pregnancy"},
			Areas: []string{"cheeks", "forehead"},
		})

		assert.Equal(t, []string{"keloid", "pregnancy"}, profile.Risks)
		assert.Equal(t, []string{"cheeks", "forehead"}, profile.Areas)
	})

	t.Run("none sentinel wins over other selections", func(t *testing.T) {
		profile := service.Normalize(ctx, &entities.RawSurvey{
			Risks:            []string{"keloid", "none", "pregnancy"},
			TreatmentHistory: []string{"None"},
		})

		assert.Equal(t, []string{"none"}, profile.Risks)
		assert.Equal(t, []string{"none"}, profile.TreatmentHistory)
	})

	t.Run("provided fields survive", func(t *testing.T) {
		profile := service.Normalize(ctx, &entities.RawSurvey{
			Age:         "34",
			Gender:      "female",
			PrimaryGoal: "lifting",
			BudgetTier:  "premium",
			Language:    "JP",
		})

		assert.Equal(t, "34", profile.Age)
		assert.Equal(t, "lifting", profile.PrimaryGoal)
		assert.Equal(t, "premium", profile.BudgetTier)
		assert.Equal(t, entities.LanguageJP, profile.Language)
	})
}

func TestProfileService_ApplyOverrides(t *testing.T) {
	service := services.NewProfileService()
	base := &entities.PatientProfile{
		PrimaryGoal:       "lifting",
		PainTolerance:     entities.ToleranceMedium,
		DowntimeTolerance: entities.ToleranceLow,
	}

	t.Run("nil overrides clone unchanged", func(t *testing.T) {
		tuned := service.ApplyOverrides(base, nil)
		assert.Equal(t, *base, *tuned)
		assert.NotSame(t, base, tuned)
	})

	t.Run("overrides replace tolerances without mutating the original", func(t *testing.T) {
		pain := entities.ToleranceHigh
		tuned := service.ApplyOverrides(base, &entities.RetuneOverrides{PainTolerance: &pain})

		assert.Equal(t, entities.ToleranceHigh, tuned.PainTolerance)
		assert.Equal(t, entities.ToleranceLow, tuned.DowntimeTolerance)
		assert.Equal(t, entities.ToleranceMedium, base.PainTolerance)
	})

	t.Run("retuned profile hashes to a different snapshot key", func(t *testing.T) {
		pain := entities.ToleranceHigh
		tuned := service.ApplyOverrides(base, &entities.RetuneOverrides{PainTolerance: &pain})
		assert.NotEqual(t, base.SnapshotKey("patient-1"), tuned.SnapshotKey("patient-1"))
	})
}
