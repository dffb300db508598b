package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/connectingdocs/treatment-engine/internal/domain/entities"
	"github.com/connectingdocs/treatment-engine/internal/domain/providers"
	"github.com/connectingdocs/treatment-engine/internal/domain/repositories"
	"github.com/connectingdocs/treatment-engine/internal/infrastructure/observability"
	"github.com/connectingdocs/treatment-engine/pkg/config"
	apperrors "github.com/connectingdocs/treatment-engine/pkg/errors"
)

// minimumCandidates is the slot count every report must fill. When the
// eligibility filter leaves fewer than this, the filter is discarded and
// ranking widens to the full catalog.
const minimumCandidates = 3

// RecommendationService is the constraint filter plus tiered ranker. It
// is a pure function of (profile, catalog snapshot) unless the reasoning
// provider contributes rationale, and even then every score and ordering
// invariant is enforced deterministically afterwards.
type RecommendationService struct {
	catalog   repositories.CatalogRepository
	reasoning providers.ReasoningProvider
	cfg       config.EngineConfig
	metrics   *observability.Metrics
	rules     []ScoringRule
}

// NewRecommendationService creates a recommendation service. reasoning
// may be nil, which disables the AI-assisted path entirely.
func NewRecommendationService(
	catalog repositories.CatalogRepository,
	reasoning providers.ReasoningProvider,
	cfg config.EngineConfig,
	metrics *observability.Metrics,
) *RecommendationService {
	return &RecommendationService{
		catalog:   catalog,
		reasoning: reasoning,
		cfg:       cfg,
		metrics:   metrics,
		rules:     defaultScoringRules(),
	}
}

// RankingResult is the output of one ranking run.
type RankingResult struct {
	Recommendations []entities.RankedRecommendation
	SourceMode      entities.SourceMode
	TrendingVersion string
}

// Rank produces exactly three role-assigned recommendations for the
// profile. Catalog emptiness is the only hard error; every other failure
// degrades to the deterministic path.
func (s *RecommendationService) Rank(ctx context.Context, profile *entities.PatientProfile) (*RankingResult, error) {
	logger := observability.LoggerFromContext(ctx)

	protocols, err := s.catalog.ListProtocols(ctx)
	if err != nil {
		return nil, err
	}
	if len(protocols) == 0 {
		return nil, apperrors.NewCatalogUnavailableError("protocol catalog is empty", nil)
	}

	trending, err := s.catalog.TrendingKeywords(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Trending catalog unavailable, using builtin list")
		trending = entities.DefaultTrendingCatalog()
	}
	for _, p := range protocols {
		p.Trending = trending.Matches(p)
	}

	candidates, widened := s.filterAndScore(profile, protocols)
	if widened {
		logger.Info().
			Int("catalog_size", len(protocols)).
			Msg("Eligibility filter widened to full catalog")
	}

	picks := s.selectSlots(profile, candidates, protocols)
	recommendations := s.finalize(profile, picks)

	sourceMode := entities.SourceDeterministic
	if s.reasoning != nil && s.cfg.ReasoningEnabled {
		if assisted, ok := s.tryReasoning(ctx, profile, candidates); ok {
			recommendations = assisted
			sourceMode = entities.SourceAIAssisted
		}
	}

	return &RankingResult{
		Recommendations: recommendations,
		SourceMode:      sourceMode,
		TrendingVersion: trending.Version,
	}, nil
}

// filterAndScore applies the pain/downtime eligibility ceilings and
// scores every candidate in the resulting pool. When fewer than three
// protocols survive, the filter is discarded and the full catalog is
// scored, with the truly eligible ones still marked so they sort first.
func (s *RecommendationService) filterAndScore(profile *entities.PatientProfile, protocols []*entities.Protocol) ([]scoredCandidate, bool) {
	eligible := 0
	candidates := make([]scoredCandidate, 0, len(protocols))
	for _, p := range protocols {
		ok := p.PainLevel <= profile.PainTolerance && p.DowntimeLevel <= profile.DowntimeTolerance
		if ok {
			eligible++
		}
		candidates = append(candidates, scoredCandidate{
			protocol: p,
			score:    fitScore(s.rules, profile, p),
			eligible: ok,
		})
	}

	widened := eligible < minimumCandidates
	if !widened {
		filtered := candidates[:0]
		for _, c := range candidates {
			if c.eligible {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
	}

	sortCandidates(candidates)
	return candidates, widened
}

// slotPick is one selected protocol before score finalization.
type slotPick struct {
	candidate scoredCandidate
	role      entities.RankRole
}

// selectSlots assigns the three role slots. Distinct protocol ids win
// over strict role fidelity: a mismatched-but-distinct protocol beats an
// empty or duplicate slot.
func (s *RecommendationService) selectSlots(profile *entities.PatientProfile, candidates []scoredCandidate, catalog []*entities.Protocol) []slotPick {
	used := map[string]bool{}

	// Rank 1: best clinical fit in the pool.
	rank1 := candidates[0]
	used[rank1.protocol.ID] = true

	// Rank 2: prefer a trending protocol among the truly eligible
	// remainder; if the remainder has no eligible entries, consider the
	// widened pool; fall back to the next-best fit.
	rank2, ok := pickTrending(candidates, used)
	if !ok {
		rank2, ok = pickNext(candidates, used)
	}
	if !ok {
		rank2, ok = pickFromCatalog(s.rules, profile, catalog, used)
	}
	if !ok {
		// Single-protocol catalog; the 3-slot contract outranks
		// distinctness here.
		rank2 = rank1
	}
	used[rank2.protocol.ID] = true

	// Rank 3: prefer a protocol exactly one step above the declared
	// ceiling, else the best unused eligible candidate, else anything
	// distinct from the whole catalog.
	rank3, ok := pickStretch(s.rules, profile, catalog, used)
	if !ok {
		rank3, ok = pickNext(candidates, used)
	}
	if !ok {
		rank3, ok = pickFromCatalog(s.rules, profile, catalog, used)
	}
	if !ok {
		// Catalog has fewer than three distinct protocols; the 3-slot
		// contract outranks distinctness here.
		rank3 = rank1
	}

	return []slotPick{
		{candidate: rank1, role: entities.RoleClinicalFit},
		{candidate: rank2, role: entities.RoleTrendingMatch},
		{candidate: rank3, role: entities.RoleStretchGoal},
	}
}

// pickTrending returns the best unused trending candidate, restricted to
// the truly eligible subset whenever that subset still has unused
// entries. Candidates are already in selection order.
func pickTrending(candidates []scoredCandidate, used map[string]bool) (scoredCandidate, bool) {
	eligibleRemain := false
	for _, c := range candidates {
		if c.eligible && !used[c.protocol.ID] {
			eligibleRemain = true
			break
		}
	}
	for _, c := range candidates {
		if used[c.protocol.ID] || !c.protocol.Trending {
			continue
		}
		if eligibleRemain && !c.eligible {
			continue
		}
		return c, true
	}
	return scoredCandidate{}, false
}

// pickNext returns the best unused candidate in selection order.
func pickNext(candidates []scoredCandidate, used map[string]bool) (scoredCandidate, bool) {
	for _, c := range candidates {
		if !used[c.protocol.ID] {
			return c, true
		}
	}
	return scoredCandidate{}, false
}

// pickStretch returns the best unused protocol whose pain or downtime
// level sits exactly one ordinal step above the patient's ceiling. The
// search deliberately runs over the full catalog: the stretch slot lives
// outside the eligibility filter.
func pickStretch(rules []ScoringRule, profile *entities.PatientProfile, catalog []*entities.Protocol, used map[string]bool) (scoredCandidate, bool) {
	painAbove := profile.PainTolerance.StepAbove()
	downtimeAbove := profile.DowntimeTolerance.StepAbove()

	var best scoredCandidate
	found := false
	for _, p := range catalog {
		if used[p.ID] {
			continue
		}
		oneAbovePain := profile.PainTolerance < entities.ToleranceVeryHigh && p.PainLevel == painAbove
		oneAboveDowntime := profile.DowntimeTolerance < entities.ToleranceVeryHigh && p.DowntimeLevel == downtimeAbove
		if !oneAbovePain && !oneAboveDowntime {
			continue
		}
		c := scoredCandidate{protocol: p, score: fitScore(rules, profile, p)}
		if !found || lessPick(best, c) {
			best = c
			found = true
		}
	}
	return best, found
}

// pickFromCatalog returns the best unused protocol from the full catalog
// regardless of eligibility.
func pickFromCatalog(rules []ScoringRule, profile *entities.PatientProfile, catalog []*entities.Protocol, used map[string]bool) (scoredCandidate, bool) {
	var best scoredCandidate
	found := false
	for _, p := range catalog {
		if used[p.ID] {
			continue
		}
		c := scoredCandidate{protocol: p, score: fitScore(rules, profile, p)}
		if !found || lessPick(best, c) {
			best = c
			found = true
		}
	}
	return best, found
}

// lessPick reports whether candidate b should replace a under the stable
// selection order (score desc, hash, id).
func lessPick(a, b scoredCandidate) bool {
	if a.score != b.score {
		return b.score > a.score
	}
	ha, hb := fnv32a(a.protocol.ID), fnv32a(b.protocol.ID)
	if ha != hb {
		return hb < ha
	}
	return b.protocol.ID < a.protocol.ID
}

// finalize turns slot picks into recommendations with the ordering
// invariants enforced: rank1 floored, then strictly descending with the
// configured gaps, all within the score bounds.
func (s *RecommendationService) finalize(profile *entities.PatientProfile, picks []slotPick) []entities.RankedRecommendation {
	scores := s.enforceScoreInvariants(picks[0].candidate.score, picks[1].candidate.score, picks[2].candidate.score)

	recommendations := make([]entities.RankedRecommendation, 0, len(picks))
	for i, pick := range picks {
		p := pick.candidate.protocol
		recommendations = append(recommendations, entities.RankedRecommendation{
			ProtocolID:    p.ID,
			ProtocolName:  p.Name,
			Rank:          i + 1,
			Role:          pick.role,
			Score:         scores[i],
			Rationale:     deterministicRationale(pick.role, profile, p),
			Devices:       append([]string(nil), p.Devices...),
			Boosters:      append([]string(nil), p.Boosters...),
			PainLevel:     p.PainLevel,
			DowntimeLevel: p.DowntimeLevel,
			SessionsTotal: p.SessionsTotal,
		})
	}
	return recommendations
}

// enforceScoreInvariants applies the product constraints to raw fit
// scores: rank1 >= floor, rank1 >= rank2+gap1, rank2 >= rank3+gap2, all
// scores within bounds. Lower slots keep their own score when it already
// satisfies the gap, so a genuinely weaker candidate stays visibly weaker.
func (s *RecommendationService) enforceScoreInvariants(raw1, raw2, raw3 int) [3]int {
	rank1 := raw1
	if rank1 < s.cfg.RankOneFloor {
		rank1 = s.cfg.RankOneFloor
	}
	rank1 = clampScore(rank1)

	rank2 := raw2
	if rank2 > rank1-s.cfg.GapOne {
		rank2 = rank1 - s.cfg.GapOne
	}
	if rank2 < entities.ScoreMin+s.cfg.GapTwo {
		rank2 = entities.ScoreMin + s.cfg.GapTwo
	}

	rank3 := raw3
	if rank3 > rank2-s.cfg.GapTwo {
		rank3 = rank2 - s.cfg.GapTwo
	}
	if rank3 < entities.ScoreMin {
		rank3 = entities.ScoreMin
	}

	return [3]int{rank1, rank2, rank3}
}

// deterministicRationale builds the fallback rationale used whenever the
// reasoning service does not contribute one.
func deterministicRationale(role entities.RankRole, profile *entities.PatientProfile, p *entities.Protocol) string {
	goal := profile.PrimaryGoal
	if goal == "" {
		goal = entities.DefaultPrimaryGoal
	}
	switch role {
	case entities.RoleClinicalFit:
		return fmt.Sprintf("%s is the closest clinical fit for %s within your pain and downtime comfort zone.", p.Name, goal)
	case entities.RoleTrendingMatch:
		return fmt.Sprintf("%s addresses %s and is currently one of the most requested treatments.", p.Name, goal)
	case entities.RoleStretchGoal:
		return fmt.Sprintf("%s goes one step beyond your stated comfort level and may offer stronger results for %s.", p.Name, goal)
	default:
		return fmt.Sprintf("%s is a suitable option for %s.", p.Name, goal)
	}
}

// roleRules are the hard constraints echoed to the reasoning service.
var roleRules = []string{
	"rank1 (clinical_fit): the strongest clinical match for the primary goal within the patient's pain and downtime tolerance",
	"rank2 (trending_match): a currently popular treatment that still addresses the primary goal; must differ from rank1",
	"rank3 (stretch_goal): a treatment one step above the patient's pain or downtime ceiling, framed as aspirational; must differ from rank1 and rank2",
}

// tryReasoning asks the reasoning provider to pick and explain the three
// slots. The response is accepted only when every referenced protocol
// name exists in the supplied candidate list and all three are distinct;
// scores are always recomputed deterministically. Any failure falls back
// to the deterministic picks.
func (s *RecommendationService) tryReasoning(ctx context.Context, profile *entities.PatientProfile, candidates []scoredCandidate) ([]entities.RankedRecommendation, bool) {
	logger := observability.LoggerFromContext(ctx)

	timeout := time.Duration(s.cfg.ReasoningTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	reasoningCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := &entities.ReasoningRequest{
		Profile:    *profile,
		Candidates: make([]entities.ReasoningCandidate, 0, len(candidates)),
		RoleRules:  roleRules,
	}
	byName := make(map[string]scoredCandidate, len(candidates))
	for _, c := range candidates {
		req.Candidates = append(req.Candidates, entities.ReasoningCandidate{
			Name:          c.protocol.Name,
			GoalPrimary:   c.protocol.GoalPrimary,
			PainLevel:     c.protocol.PainLevel,
			DowntimeLevel: c.protocol.DowntimeLevel,
			Devices:       c.protocol.Devices,
			Boosters:      c.protocol.Boosters,
			Trending:      c.protocol.Trending,
		})
		byName[strings.ToLower(c.protocol.Name)] = c
	}

	resp, err := s.reasoning.GenerateRecommendations(reasoningCtx, req)
	if err != nil {
		logger.Warn().Err(err).Msg("Reasoning service failed, using deterministic ranking")
		observability.RecordReasoningFallback(ctx, s.metrics, "error")
		return nil, false
	}

	picks, err := validateReasoning(resp, byName)
	if err != nil {
		logger.Warn().Err(err).Msg("Reasoning response rejected, using deterministic ranking")
		observability.RecordReasoningFallback(ctx, s.metrics, "validation")
		return nil, false
	}

	recommendations := s.finalize(profile, picks)
	for i, slot := range resp.Slots() {
		if reason := strings.TrimSpace(slot.Reason); reason != "" {
			recommendations[i].Rationale = reason
		}
	}
	return recommendations, true
}

// validateReasoning enforces the hallucination guard: every protocol the
// service names must appear verbatim (case-insensitive) in the candidate
// list, and the three picks must be distinct.
func validateReasoning(resp *entities.ReasoningResponse, byName map[string]scoredCandidate) ([]slotPick, error) {
	roles := []entities.RankRole{entities.RoleClinicalFit, entities.RoleTrendingMatch, entities.RoleStretchGoal}
	seen := map[string]bool{}
	picks := make([]slotPick, 0, 3)

	for i, slot := range resp.Slots() {
		key := strings.ToLower(strings.TrimSpace(slot.Protocol))
		candidate, ok := byName[key]
		if !ok {
			return nil, fmt.Errorf("protocol %q is not in the candidate list", slot.Protocol)
		}
		if seen[candidate.protocol.ID] {
			return nil, fmt.Errorf("protocol %q referenced twice", slot.Protocol)
		}
		seen[candidate.protocol.ID] = true
		picks = append(picks, slotPick{candidate: candidate, role: roles[i]})
	}
	return picks, nil
}
