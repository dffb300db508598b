package services

import (
	"hash/fnv"
	"sort"
	"strings"

	"github.com/connectingdocs/treatment-engine/internal/domain/entities"
)

// Point values for the fit-score rules. The goal link dominates on
// purpose: a protocol built for the patient's stated goal should beat a
// merely comfortable one.
const (
	goalLinkPoints    = 40
	goalKeywordPoints = 20
	alignmentPoints   = 10
	tieBreakModulus   = 3
)

// ScoringRule is a named, independently testable pure rule. Rules are
// applied in a fixed order and their deltas summed onto the baseline.
type ScoringRule struct {
	Name  string
	Apply func(profile *entities.PatientProfile, candidate *entities.Protocol) int
}

// defaultScoringRules returns the fit-score pipeline in application order.
func defaultScoringRules() []ScoringRule {
	return []ScoringRule{
		{Name: "goal-link", Apply: goalLinkDelta},
		{Name: "pain-alignment", Apply: painAlignmentDelta},
		{Name: "downtime-alignment", Apply: downtimeAlignmentDelta},
		{Name: "identifier-tiebreak", Apply: identifierTiebreakDelta},
	}
}

// goalLinkDelta awards the full link bonus when the knowledge store ties
// the protocol to the patient's primary goal, or a partial bonus on a
// name/keyword overlap.
func goalLinkDelta(profile *entities.PatientProfile, candidate *entities.Protocol) int {
	goal := strings.TrimSpace(profile.PrimaryGoal)
	if goal == "" {
		return 0
	}
	if strings.EqualFold(candidate.GoalPrimary, goal) {
		return goalLinkPoints
	}
	for _, g := range candidate.GoalAdditional {
		if strings.EqualFold(g, goal) {
			return goalLinkPoints
		}
	}
	if keywordOverlap(goal, candidate) {
		return goalKeywordPoints
	}
	return 0
}

// keywordOverlap checks whether any word of the goal appears in the
// protocol's name or goal fields. Short words are skipped to avoid
// matching on articles.
func keywordOverlap(goal string, candidate *entities.Protocol) bool {
	haystack := strings.ToLower(candidate.Name + " " + candidate.GoalPrimary + " " + strings.Join(candidate.GoalAdditional, " "))
	for _, word := range strings.Fields(strings.ToLower(goal)) {
		if len(word) < 3 {
			continue
		}
		if strings.Contains(haystack, word) {
			return true
		}
	}
	return false
}

func painAlignmentDelta(profile *entities.PatientProfile, candidate *entities.Protocol) int {
	return alignmentDelta(profile.PainTolerance, candidate.PainLevel)
}

func downtimeAlignmentDelta(profile *entities.PatientProfile, candidate *entities.Protocol) int {
	return alignmentDelta(profile.DowntimeTolerance, candidate.DowntimeLevel)
}

// alignmentDelta rewards an exact tolerance match and penalizes levels
// two or more steps away from the declared tolerance. A one-step
// difference is neutral.
func alignmentDelta(tolerance, level entities.ToleranceLevel) int {
	switch {
	case tolerance == level:
		return alignmentPoints
	case tolerance.Distance(level) >= 2:
		return -alignmentPoints
	default:
		return 0
	}
}

// identifierTiebreakDelta adds a small identifier-derived term so equal
// candidates order reproducibly across runs and processes.
func identifierTiebreakDelta(_ *entities.PatientProfile, candidate *entities.Protocol) int {
	return int(fnv32a(candidate.ID) % tieBreakModulus)
}

func fnv32a(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

// clampScore clamps a raw score into the slot score bounds.
func clampScore(score int) int {
	if score < entities.ScoreMin {
		return entities.ScoreMin
	}
	if score > entities.ScoreMax {
		return entities.ScoreMax
	}
	return score
}

// fitScore runs the rule pipeline against a candidate and returns the
// clamped fit score.
func fitScore(rules []ScoringRule, profile *entities.PatientProfile, candidate *entities.Protocol) int {
	score := entities.ScoreMin
	for _, rule := range rules {
		score += rule.Apply(profile, candidate)
	}
	return clampScore(score)
}

// scoredCandidate pairs a catalog protocol with its fit score and whether
// it passed the eligibility filter before any widening.
type scoredCandidate struct {
	protocol *entities.Protocol
	score    int
	eligible bool
}

// sortCandidates orders candidates for slot selection: truly eligible
// first, then score descending, then the identifier hash, then the raw
// identifier. The last two terms make the order byte-stable.
func sortCandidates(candidates []scoredCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.eligible != b.eligible {
			return a.eligible
		}
		if a.score != b.score {
			return a.score > b.score
		}
		ha, hb := fnv32a(a.protocol.ID), fnv32a(b.protocol.ID)
		if ha != hb {
			return ha < hb
		}
		return a.protocol.ID < b.protocol.ID
	})
}
