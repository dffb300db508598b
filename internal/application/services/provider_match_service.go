package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/connectingdocs/treatment-engine/internal/domain/entities"
	"github.com/connectingdocs/treatment-engine/internal/domain/repositories"
	"github.com/connectingdocs/treatment-engine/internal/infrastructure/observability"
	apperrors "github.com/connectingdocs/treatment-engine/pkg/errors"
)

// Compatibility score composition. The participation bonus is a flat
// placeholder for unmodeled factors, not a real signal.
const (
	focusPoints         = 40
	devicePoints        = 30
	painPoints          = 15
	downtimePoints      = 10
	participationPoints = 5

	matchShortlistSize = 3
	searchNarrowLimit  = 50
)

// deviceVocabulary is the fixed keyword list bridging protocol names and
// provider-listed equipment. First match wins; no double counting.
var deviceVocabulary = []string{
	"ulthera", "shurink", "inmode", "forma", "titan", "potenza",
	"rejuran", "juvelook", "ldm", "pico", "thermage", "exosome",
}

// focusSynonyms bridges a provider's focus category to goal terms it
// also satisfies.
var focusSynonyms = map[string][]string{
	"texture": {"pore", "scar"},
	"lifting": {"sagging", "elasticity"},
}

// ProviderMatchService scores provider offerings against a report's
// profile and top protocol, shortlists the best three, and persists the
// shortlist as append-only match records.
type ProviderMatchService struct {
	catalog repositories.CatalogRepository
	search  repositories.SolutionSearchRepository
	matches repositories.MatchRepository
}

// NewProviderMatchService creates a provider match service. search may be
// nil; matching then scores the full roster.
func NewProviderMatchService(
	catalog repositories.CatalogRepository,
	search repositories.SolutionSearchRepository,
	matches repositories.MatchRepository,
) *ProviderMatchService {
	return &ProviderMatchService{
		catalog: catalog,
		search:  search,
		matches: matches,
	}
}

// Match scores the roster against the report and returns the top three
// offerings by descending score, ties broken by stable roster order.
func (s *ProviderMatchService) Match(ctx context.Context, report *entities.Report) ([]*entities.MatchResult, error) {
	logger := observability.LoggerFromContext(ctx)

	if len(report.Recommendations) == 0 {
		return nil, apperrors.NewValidationError("report has no recommendations to match against")
	}
	chosenProtocol := report.Recommendations[0].ProtocolName

	solutions, err := s.catalog.ListSolutions(ctx)
	if err != nil {
		return nil, err
	}
	if len(solutions) == 0 {
		return nil, apperrors.NewCatalogUnavailableError("provider roster is empty", nil)
	}

	solutions = s.narrowByFocus(ctx, report.Profile.PrimaryGoal, solutions)

	type scored struct {
		solution *entities.ProviderSolution
		score    int
		details  []string
	}
	results := make([]scored, 0, len(solutions))
	for _, solution := range solutions {
		score, details := scoreSolution(&report.Profile, chosenProtocol, solution)
		results = append(results, scored{solution: solution, score: score, details: details})
	}

	// Stable sort keeps roster order as the tie-break.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	if len(results) > matchShortlistSize {
		results = results[:matchShortlistSize]
	}

	now := time.Now().UTC()
	records := make([]*entities.MatchResult, 0, len(results))
	for _, r := range results {
		records = append(records, &entities.MatchResult{
			ID:           uuid.NewString(),
			ReportID:     report.ID,
			SolutionID:   r.solution.ID,
			ProviderID:   r.solution.ProviderID,
			ProviderName: r.solution.ProviderName,
			Score:        r.score,
			MatchDetails: r.details,
			CreatedAt:    now,
		})
	}

	if err := s.matches.CreateBatch(ctx, records); err != nil {
		logger.Warn().Err(err).Str("report_id", report.ID).Msg("Failed to persist match results")
	}

	return records, nil
}

// History returns previously persisted matches for a report.
func (s *ProviderMatchService) History(ctx context.Context, reportID string) ([]*entities.MatchResult, error) {
	return s.matches.ListByReport(ctx, reportID)
}

// narrowByFocus pre-narrows the roster through the discovery index when
// one is wired. Any index failure, or a shortlist too small to fill all
// slots, falls back to the full roster; roster order is preserved.
func (s *ProviderMatchService) narrowByFocus(ctx context.Context, goal string, roster []*entities.ProviderSolution) []*entities.ProviderSolution {
	if s.search == nil || strings.TrimSpace(goal) == "" {
		return roster
	}

	hits, err := s.search.SearchByFocus(ctx, goal, searchNarrowLimit)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("Solution search failed, scoring full roster")
		return roster
	}

	hitIDs := make(map[string]bool, len(hits))
	for _, h := range hits {
		hitIDs[h.ID] = true
	}
	narrowed := make([]*entities.ProviderSolution, 0, len(hits))
	for _, solution := range roster {
		if hitIDs[solution.ID] {
			narrowed = append(narrowed, solution)
		}
	}
	if len(narrowed) < matchShortlistSize {
		return roster
	}
	return narrowed
}

// scoreSolution computes the multi-factor compatibility score and the
// human-readable detail line for each satisfied sub-criterion.
func scoreSolution(profile *entities.PatientProfile, chosenProtocol string, solution *entities.ProviderSolution) (int, []string) {
	score := 0
	details := []string{}

	if focusMatchesGoal(solution.FocusCategory, profile.PrimaryGoal) {
		score += focusPoints
		details = append(details, fmt.Sprintf("Addresses your goal of %s", profile.PrimaryGoal))
	}

	if device, ok := deviceOverlap(chosenProtocol, solution); ok {
		score += devicePoints
		details = append(details, fmt.Sprintf("Uses %s as recommended in your treatment plan", device))
	}

	// Tolerance sub-scores are all-or-nothing: an offering above the
	// patient's ceiling contributes exactly zero, never a partial credit.
	if profile.PainTolerance >= solution.PainLevel {
		score += painPoints
		details = append(details, "Fits your pain tolerance")
	}
	if profile.DowntimeTolerance >= solution.DowntimeLevel {
		score += downtimePoints
		details = append(details, "Fits your downtime preference")
	}

	score += participationPoints
	return score, details
}

// focusMatchesGoal checks focus-category overlap with the primary goal,
// including the synonym bridges (a "texture" focus also satisfies pore
// and scar goals).
func focusMatchesGoal(focus, goal string) bool {
	f := strings.ToLower(strings.TrimSpace(focus))
	g := strings.ToLower(strings.TrimSpace(goal))
	if f == "" || g == "" {
		return false
	}
	if strings.Contains(g, f) || strings.Contains(f, g) {
		return true
	}
	for _, synonym := range focusSynonyms[f] {
		if strings.Contains(g, synonym) {
			return true
		}
	}
	return false
}

// deviceOverlap returns the first vocabulary device mentioned by both the
// chosen protocol's name and the offering.
func deviceOverlap(chosenProtocol string, solution *entities.ProviderSolution) (string, bool) {
	protocolName := strings.ToLower(chosenProtocol)
	for _, device := range deviceVocabulary {
		if !strings.Contains(protocolName, device) {
			continue
		}
		if solutionMentions(solution, device) {
			return device, true
		}
	}
	return "", false
}

func solutionMentions(solution *entities.ProviderSolution, keyword string) bool {
	if strings.Contains(strings.ToLower(solution.Title), keyword) {
		return true
	}
	for _, d := range solution.Devices {
		if strings.Contains(strings.ToLower(d), keyword) {
			return true
		}
	}
	for _, b := range solution.Boosters {
		if strings.Contains(strings.ToLower(b), keyword) {
			return true
		}
	}
	return false
}
