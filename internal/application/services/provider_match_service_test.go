package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/connectingdocs/treatment-engine/internal/application/services"
	"github.com/connectingdocs/treatment-engine/internal/domain/entities"
)

type MockMatchRepository struct {
	mock.Mock
}

func (m *MockMatchRepository) CreateBatch(ctx context.Context, matches []*entities.MatchResult) error {
	args := m.Called(ctx, matches)
	return args.Error(0)
}

func (m *MockMatchRepository) ListByReport(ctx context.Context, reportID string) ([]*entities.MatchResult, error) {
	args := m.Called(ctx, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.MatchResult), args.Error(1)
}

func liftingReport() *entities.Report {
	return &entities.Report{
		ID:        "report-1",
		PatientID: "patient-1",
		Profile: entities.PatientProfile{
			PrimaryGoal:       "lifting",
			PainTolerance:     entities.ToleranceHigh,
			DowntimeTolerance: entities.ToleranceMedium,
		},
		Recommendations: []entities.RankedRecommendation{
			{ProtocolID: "p1", ProtocolName: "Ulthera Deep Lift", Rank: 1, Role: entities.RoleClinicalFit, Score: 92},
		},
	}
}

func TestProviderMatchService_Match(t *testing.T) {
	t.Run("perfect alignment scores one hundred", func(t *testing.T) {
		// Focus, device, pain, downtime, and the participation bonus all
		// line up: 40+30+15+10+5.
		solution := &entities.ProviderSolution{
			ID: "s1", ProviderID: "prov-1", ProviderName: "Dr. Kim",
			Title: "Signature Lift", FocusCategory: "Lifting",
			Devices:       []string{"Ulthera", "Exosome"},
			PainLevel:     entities.ToleranceMedium,
			DowntimeLevel: entities.ToleranceLow,
		}
		catalog := new(MockCatalogRepository)
		catalog.On("ListSolutions", mock.Anything).Return([]*entities.ProviderSolution{solution}, nil)
		matchRepo := new(MockMatchRepository)
		matchRepo.On("CreateBatch", mock.Anything, mock.Anything).Return(nil)

		service := services.NewProviderMatchService(catalog, nil, matchRepo)
		results, err := service.Match(context.Background(), liftingReport())
		require.NoError(t, err)
		require.Len(t, results, 1)

		match := results[0]
		assert.Equal(t, 100, match.Score)
		assert.Equal(t, "Dr. Kim", match.ProviderName)
		assert.Equal(t, "report-1", match.ReportID)
		require.Len(t, match.MatchDetails, 4)
		assert.Contains(t, match.MatchDetails[0], "lifting")
		assert.Contains(t, match.MatchDetails[1], "ulthera")
	})

	t.Run("pain above tolerance contributes exactly zero", func(t *testing.T) {
		report := liftingReport()
		report.Profile.PainTolerance = entities.ToleranceLow

		tooPainful := &entities.ProviderSolution{
			ID: "s1", ProviderName: "A", Title: "Strong Lift", FocusCategory: "lifting",
			PainLevel:     entities.ToleranceHigh,
			DowntimeLevel: entities.ToleranceLow,
		}
		catalog := new(MockCatalogRepository)
		catalog.On("ListSolutions", mock.Anything).Return([]*entities.ProviderSolution{tooPainful}, nil)
		matchRepo := new(MockMatchRepository)
		matchRepo.On("CreateBatch", mock.Anything, mock.Anything).Return(nil)

		service := services.NewProviderMatchService(catalog, nil, matchRepo)
		results, err := service.Match(context.Background(), report)
		require.NoError(t, err)
		require.Len(t, results, 1)

		// focus 40 + downtime 10 + participation 5; pain adds nothing.
		assert.Equal(t, 55, results[0].Score)
		for _, detail := range results[0].MatchDetails {
			assert.NotContains(t, detail, "pain")
		}
	})

	t.Run("synonym bridge satisfies pore goal via texture focus", func(t *testing.T) {
		report := liftingReport()
		report.Profile.PrimaryGoal = "pore tightening"

		solution := &entities.ProviderSolution{
			ID: "s1", ProviderName: "B", Title: "Texture Reset", FocusCategory: "Texture",
			PainLevel:     entities.ToleranceLow,
			DowntimeLevel: entities.ToleranceLow,
		}
		catalog := new(MockCatalogRepository)
		catalog.On("ListSolutions", mock.Anything).Return([]*entities.ProviderSolution{solution}, nil)
		matchRepo := new(MockMatchRepository)
		matchRepo.On("CreateBatch", mock.Anything, mock.Anything).Return(nil)

		service := services.NewProviderMatchService(catalog, nil, matchRepo)
		results, err := service.Match(context.Background(), report)
		require.NoError(t, err)
		assert.Contains(t, results[0].MatchDetails[0], "pore tightening")
	})

	t.Run("returns top three with roster order breaking ties", func(t *testing.T) {
		roster := []*entities.ProviderSolution{
			{ID: "s1", ProviderName: "First", Title: "Plain Care", FocusCategory: "soothing",
				PainLevel: entities.ToleranceNone, DowntimeLevel: entities.ToleranceNone},
			{ID: "s2", ProviderName: "Second", Title: "Plain Care Too", FocusCategory: "soothing",
				PainLevel: entities.ToleranceNone, DowntimeLevel: entities.ToleranceNone},
			{ID: "s3", ProviderName: "Best", Title: "Ulthera Lift Pro", FocusCategory: "lifting",
				Devices:   []string{"Ulthera"},
				PainLevel: entities.ToleranceLow, DowntimeLevel: entities.ToleranceLow},
			{ID: "s4", ProviderName: "Third", Title: "Plain Care Three", FocusCategory: "soothing",
				PainLevel: entities.ToleranceNone, DowntimeLevel: entities.ToleranceNone},
		}
		catalog := new(MockCatalogRepository)
		catalog.On("ListSolutions", mock.Anything).Return(roster, nil)
		matchRepo := new(MockMatchRepository)
		matchRepo.On("CreateBatch", mock.Anything, mock.Anything).Return(nil)

		service := services.NewProviderMatchService(catalog, nil, matchRepo)
		results, err := service.Match(context.Background(), liftingReport())
		require.NoError(t, err)
		require.Len(t, results, 3)

		assert.Equal(t, "s3", results[0].SolutionID)
		// s1, s2, s4 tie; roster order keeps s1 then s2.
		assert.Equal(t, "s1", results[1].SolutionID)
		assert.Equal(t, "s2", results[2].SolutionID)
	})

	t.Run("persistence failure does not block the result", func(t *testing.T) {
		solution := &entities.ProviderSolution{
			ID: "s1", ProviderName: "A", Title: "Lift", FocusCategory: "lifting",
			PainLevel: entities.ToleranceLow, DowntimeLevel: entities.ToleranceLow,
		}
		catalog := new(MockCatalogRepository)
		catalog.On("ListSolutions", mock.Anything).Return([]*entities.ProviderSolution{solution}, nil)
		matchRepo := new(MockMatchRepository)
		matchRepo.On("CreateBatch", mock.Anything, mock.Anything).Return(errors.New("db down"))

		service := services.NewProviderMatchService(catalog, nil, matchRepo)
		results, err := service.Match(context.Background(), liftingReport())
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("report without recommendations is rejected", func(t *testing.T) {
		service := services.NewProviderMatchService(new(MockCatalogRepository), nil, new(MockMatchRepository))
		_, err := service.Match(context.Background(), &entities.Report{ID: "r"})
		assert.Error(t, err)
	})
}
