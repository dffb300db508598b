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
	"github.com/connectingdocs/treatment-engine/pkg/config"
	apperrors "github.com/connectingdocs/treatment-engine/pkg/errors"
)

// Mocks

type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) ListProtocols(ctx context.Context) ([]*entities.Protocol, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Protocol), args.Error(1)
}

func (m *MockCatalogRepository) ListSolutions(ctx context.Context) ([]*entities.ProviderSolution, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ProviderSolution), args.Error(1)
}

func (m *MockCatalogRepository) TrendingKeywords(ctx context.Context) (entities.TrendingCatalog, error) {
	args := m.Called(ctx)
	return args.Get(0).(entities.TrendingCatalog), args.Error(1)
}

type StubReasoningProvider struct {
	resp *entities.ReasoningResponse
	err  error

	lastRequest *entities.ReasoningRequest
}

func (s *StubReasoningProvider) GenerateRecommendations(_ context.Context, req *entities.ReasoningRequest) (*entities.ReasoningResponse, error) {
	s.lastRequest = req
	return s.resp, s.err
}

// Fixtures

func engineConfig() config.EngineConfig {
	return config.EngineConfig{
		GapOne:                  3,
		GapTwo:                  2,
		RankOneFloor:            88,
		ReasoningEnabled:        false,
		ReasoningTimeoutSeconds: 1,
	}
}

func antiAgingCatalog() []*entities.Protocol {
	return []*entities.Protocol{
		{
			ID: "p1", Name: "Gentle Laser Tone-Up", GoalPrimary: "antiAging",
			PainLevel: entities.ToleranceLow, DowntimeLevel: entities.ToleranceNone,
			Devices: []string{"LDM"}, SessionsTotal: 3,
		},
		{
			ID: "p2", Name: "Calm Repair Facial", GoalPrimary: "soothing",
			PainLevel: entities.ToleranceVeryLow, DowntimeLevel: entities.ToleranceNone,
			SessionsTotal: 4,
		},
		{
			ID: "p3", Name: "Ulthera Deep Lift", GoalPrimary: "lifting",
			PainLevel: entities.ToleranceMedium, DowntimeLevel: entities.ToleranceLow,
			Devices: []string{"Ulthera"}, SessionsTotal: 1,
		},
		{
			ID: "p4", Name: "Exosome Glow Booster", GoalPrimary: "antiAging",
			PainLevel: entities.ToleranceMedium, DowntimeLevel: entities.ToleranceMedium,
			Boosters: []string{"Exosome"}, SessionsTotal: 5,
		},
		{
			ID: "p5", Name: "Potenza Rebuild", GoalPrimary: "texture",
			PainLevel: entities.ToleranceHigh, DowntimeLevel: entities.ToleranceHigh,
			Devices: []string{"Potenza"}, SessionsTotal: 3,
		},
	}
}

func lowToleranceProfile() *entities.PatientProfile {
	return &entities.PatientProfile{
		PrimaryGoal:       "antiAging",
		PainTolerance:     entities.ToleranceLow,
		DowntimeTolerance: entities.ToleranceNone,
		Language:          entities.LanguageEN,
	}
}

func newRankerWithCatalog(t *testing.T, protocols []*entities.Protocol) *services.RecommendationService {
	t.Helper()
	catalog := new(MockCatalogRepository)
	catalog.On("ListProtocols", mock.Anything).Return(protocols, nil)
	catalog.On("TrendingKeywords", mock.Anything).Return(entities.DefaultTrendingCatalog(), nil)
	return services.NewRecommendationService(catalog, nil, engineConfig(), nil)
}

// Tests

func TestRecommendationService_Rank_Invariants(t *testing.T) {
	service := newRankerWithCatalog(t, antiAgingCatalog())

	result, err := service.Rank(context.Background(), lowToleranceProfile())
	require.NoError(t, err)

	recs := result.Recommendations
	require.Len(t, recs, 3)

	ids := map[string]bool{}
	roles := map[entities.RankRole]bool{}
	for i, rec := range recs {
		assert.Equal(t, i+1, rec.Rank)
		assert.False(t, ids[rec.ProtocolID], "protocol ids must be distinct")
		assert.False(t, roles[rec.Role], "roles must be distinct")
		ids[rec.ProtocolID] = true
		roles[rec.Role] = true
		assert.GreaterOrEqual(t, rec.Score, entities.ScoreMin)
		assert.LessOrEqual(t, rec.Score, entities.ScoreMax)
	}

	assert.GreaterOrEqual(t, recs[0].Score, 88)
	assert.GreaterOrEqual(t, recs[0].Score, recs[1].Score+3)
	assert.GreaterOrEqual(t, recs[1].Score, recs[2].Score+2)
	assert.Equal(t, entities.SourceDeterministic, result.SourceMode)
}

func TestRecommendationService_Rank_ScenarioLowTolerance(t *testing.T) {
	// Five protocols, only two satisfy Low pain / None downtime: widening
	// kicks in, and the truly eligible pair still takes the top slots.
	service := newRankerWithCatalog(t, antiAgingCatalog())

	result, err := service.Rank(context.Background(), lowToleranceProfile())
	require.NoError(t, err)

	recs := result.Recommendations
	require.Len(t, recs, 3)

	assert.Equal(t, "p1", recs[0].ProtocolID)
	assert.Equal(t, "p2", recs[1].ProtocolID)
	assert.GreaterOrEqual(t, recs[0].Score, 88)
	assert.LessOrEqual(t, recs[1].Score, recs[0].Score-3)
	assert.LessOrEqual(t, recs[2].Score, recs[1].Score-2)
}

func TestRecommendationService_Rank_Deterministic(t *testing.T) {
	service := newRankerWithCatalog(t, antiAgingCatalog())

	first, err := service.Rank(context.Background(), lowToleranceProfile())
	require.NoError(t, err)
	second, err := service.Rank(context.Background(), lowToleranceProfile())
	require.NoError(t, err)

	assert.Equal(t, first.Recommendations, second.Recommendations)
	assert.Equal(t, first.SourceMode, second.SourceMode)
}

func TestRecommendationService_Rank_WideningStillFillsSlots(t *testing.T) {
	protocols := []*entities.Protocol{
		{ID: "a", Name: "Soft Glow", PainLevel: entities.ToleranceNone, DowntimeLevel: entities.ToleranceNone},
		{ID: "b", Name: "Deep Resurfacing", PainLevel: entities.ToleranceVeryHigh, DowntimeLevel: entities.ToleranceVeryHigh},
		{ID: "c", Name: "Thermage Firm", PainLevel: entities.ToleranceHigh, DowntimeLevel: entities.ToleranceMedium},
	}
	service := newRankerWithCatalog(t, protocols)

	result, err := service.Rank(context.Background(), &entities.PatientProfile{
		PrimaryGoal:       "lifting",
		PainTolerance:     entities.ToleranceNone,
		DowntimeTolerance: entities.ToleranceNone,
	})
	require.NoError(t, err)

	require.Len(t, result.Recommendations, 3)
	seen := map[string]bool{}
	for _, rec := range result.Recommendations {
		seen[rec.ProtocolID] = true
	}
	assert.Len(t, seen, 3)
}

func TestRecommendationService_Rank_TrendingTakesRankTwo(t *testing.T) {
	protocols := []*entities.Protocol{
		{ID: "fit", Name: "Lifting Master Plan", GoalPrimary: "lifting",
			PainLevel: entities.ToleranceMedium, DowntimeLevel: entities.ToleranceLow},
		{ID: "trend", Name: "Rejuran Healer Course", GoalPrimary: "texture",
			PainLevel: entities.ToleranceLow, DowntimeLevel: entities.ToleranceLow,
			Boosters: []string{"Rejuran"}},
		{ID: "plain", Name: "Classic Peel", GoalPrimary: "lifting",
			PainLevel: entities.ToleranceLow, DowntimeLevel: entities.ToleranceLow},
		{ID: "other", Name: "Hydra Calm", GoalPrimary: "soothing",
			PainLevel: entities.ToleranceNone, DowntimeLevel: entities.ToleranceNone},
	}
	service := newRankerWithCatalog(t, protocols)

	result, err := service.Rank(context.Background(), &entities.PatientProfile{
		PrimaryGoal:       "lifting",
		PainTolerance:     entities.ToleranceMedium,
		DowntimeTolerance: entities.ToleranceMedium,
	})
	require.NoError(t, err)

	assert.Equal(t, entities.RoleTrendingMatch, result.Recommendations[1].Role)
	assert.Equal(t, "trend", result.Recommendations[1].ProtocolID)
}

func TestRecommendationService_Rank_StretchGoalOneStepAbove(t *testing.T) {
	protocols := []*entities.Protocol{
		{ID: "e1", Name: "Mild Tone", GoalPrimary: "antiAging",
			PainLevel: entities.ToleranceLow, DowntimeLevel: entities.ToleranceLow},
		{ID: "e2", Name: "Soft Rejuran", GoalPrimary: "antiAging",
			PainLevel: entities.ToleranceLow, DowntimeLevel: entities.ToleranceLow,
			Boosters: []string{"Rejuran"}},
		{ID: "e3", Name: "Even Skin", GoalPrimary: "antiAging",
			PainLevel: entities.ToleranceVeryLow, DowntimeLevel: entities.ToleranceNone},
		{ID: "stretch", Name: "Potenza Push", GoalPrimary: "antiAging",
			PainLevel: entities.ToleranceMedium, DowntimeLevel: entities.ToleranceLow,
			Devices: []string{"Potenza"}},
	}
	service := newRankerWithCatalog(t, protocols)

	profile := &entities.PatientProfile{
		PrimaryGoal:       "antiAging",
		PainTolerance:     entities.ToleranceLow,
		DowntimeTolerance: entities.ToleranceLow,
	}
	result, err := service.Rank(context.Background(), profile)
	require.NoError(t, err)

	stretch := result.Recommendations[2]
	assert.Equal(t, entities.RoleStretchGoal, stretch.Role)
	assert.Equal(t, "stretch", stretch.ProtocolID)
	oneAbovePain := stretch.PainLevel == profile.PainTolerance.StepAbove()
	oneAboveDowntime := stretch.DowntimeLevel == profile.DowntimeTolerance.StepAbove()
	assert.True(t, oneAbovePain || oneAboveDowntime)
}

func TestRecommendationService_Rank_EmptyCatalogIsHardError(t *testing.T) {
	catalog := new(MockCatalogRepository)
	catalog.On("ListProtocols", mock.Anything).Return([]*entities.Protocol{}, nil)
	service := services.NewRecommendationService(catalog, nil, engineConfig(), nil)

	_, err := service.Rank(context.Background(), lowToleranceProfile())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeCatalogUnavailable))
}

func TestRecommendationService_Rank_TrendingFeedFailureIsSoft(t *testing.T) {
	catalog := new(MockCatalogRepository)
	catalog.On("ListProtocols", mock.Anything).Return(antiAgingCatalog(), nil)
	catalog.On("TrendingKeywords", mock.Anything).Return(entities.TrendingCatalog{}, errors.New("feed down"))
	service := services.NewRecommendationService(catalog, nil, engineConfig(), nil)

	result, err := service.Rank(context.Background(), lowToleranceProfile())
	require.NoError(t, err)
	require.Len(t, result.Recommendations, 3)
	assert.Equal(t, "builtin", result.TrendingVersion)
}

func TestRecommendationService_Rank_ReasoningValidation(t *testing.T) {
	reasoningConfig := engineConfig()
	reasoningConfig.ReasoningEnabled = true

	newService := func(stub *StubReasoningProvider) *services.RecommendationService {
		catalog := new(MockCatalogRepository)
		catalog.On("ListProtocols", mock.Anything).Return(antiAgingCatalog(), nil)
		catalog.On("TrendingKeywords", mock.Anything).Return(entities.DefaultTrendingCatalog(), nil)
		return services.NewRecommendationService(catalog, stub, reasoningConfig, nil)
	}

	t.Run("fabricated protocol is rejected", func(t *testing.T) {
		stub := &StubReasoningProvider{resp: &entities.ReasoningResponse{
			Rank1: entities.ReasoningSlot{Protocol: "Miracle Cure 3000", Reason: "made up"},
			Rank2: entities.ReasoningSlot{Protocol: "Calm Repair Facial"},
			Rank3: entities.ReasoningSlot{Protocol: "Ulthera Deep Lift"},
		}}
		result, err := newService(stub).Rank(context.Background(), lowToleranceProfile())
		require.NoError(t, err)

		assert.Equal(t, entities.SourceDeterministic, result.SourceMode)
		for _, rec := range result.Recommendations {
			assert.NotEqual(t, "Miracle Cure 3000", rec.ProtocolName)
		}
	})

	t.Run("duplicate picks are rejected", func(t *testing.T) {
		stub := &StubReasoningProvider{resp: &entities.ReasoningResponse{
			Rank1: entities.ReasoningSlot{Protocol: "Gentle Laser Tone-Up"},
			Rank2: entities.ReasoningSlot{Protocol: "gentle laser tone-up"},
			Rank3: entities.ReasoningSlot{Protocol: "Ulthera Deep Lift"},
		}}
		result, err := newService(stub).Rank(context.Background(), lowToleranceProfile())
		require.NoError(t, err)
		assert.Equal(t, entities.SourceDeterministic, result.SourceMode)
	})

	t.Run("provider error falls back", func(t *testing.T) {
		stub := &StubReasoningProvider{err: errors.New("timeout")}
		result, err := newService(stub).Rank(context.Background(), lowToleranceProfile())
		require.NoError(t, err)
		assert.Equal(t, entities.SourceDeterministic, result.SourceMode)
		require.Len(t, result.Recommendations, 3)
	})

	t.Run("valid response keeps rationale and enforces scores", func(t *testing.T) {
		stub := &StubReasoningProvider{resp: &entities.ReasoningResponse{
			Rank1: entities.ReasoningSlot{Protocol: "Gentle Laser Tone-Up", Score: 5, Reason: "Matches your anti-aging goal gently."},
			Rank2: entities.ReasoningSlot{Protocol: "Exosome Glow Booster", Score: 120, Reason: "Popular regenerative option."},
			Rank3: entities.ReasoningSlot{Protocol: "Ulthera Deep Lift", Reason: ""},
		}}
		result, err := newService(stub).Rank(context.Background(), lowToleranceProfile())
		require.NoError(t, err)

		assert.Equal(t, entities.SourceAIAssisted, result.SourceMode)
		recs := result.Recommendations
		assert.Equal(t, "Matches your anti-aging goal gently.", recs[0].Rationale)
		assert.Equal(t, "Popular regenerative option.", recs[1].Rationale)
		assert.NotEmpty(t, recs[2].Rationale, "missing rationale falls back to the deterministic one")

		// Echoed scores are advisory; invariants still hold.
		assert.GreaterOrEqual(t, recs[0].Score, 88)
		assert.GreaterOrEqual(t, recs[0].Score, recs[1].Score+3)
		assert.GreaterOrEqual(t, recs[1].Score, recs[2].Score+2)

		// The request carried only catalog candidates.
		require.NotNil(t, stub.lastRequest)
		assert.Len(t, stub.lastRequest.Candidates, 5)
		assert.NotEmpty(t, stub.lastRequest.RoleRules)
	})
}
