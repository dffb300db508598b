package entities

// ReasoningCandidate is one entry of the trending-annotated candidate
// list handed to the reasoning service. The service may only reference
// protocols from this list; anything else is rejected as hallucination.
type ReasoningCandidate struct {
	Name          string         `json:"name"`
	GoalPrimary   string         `json:"goal_primary"`
	PainLevel     ToleranceLevel `json:"pain_level"`
	DowntimeLevel ToleranceLevel `json:"downtime_level"`
	Devices       []string       `json:"devices,omitempty"`
	Boosters      []string       `json:"boosters,omitempty"`
	Trending      bool           `json:"trending"`
}

// ReasoningRequest carries everything the reasoning service is allowed
// to see: the canonical profile, the candidate list, and the three role
// rules expressed as hard constraints.
type ReasoningRequest struct {
	Profile    PatientProfile       `json:"profile"`
	Candidates []ReasoningCandidate `json:"candidates"`
	RoleRules  []string             `json:"role_rules"`
}

// ReasoningSlot is one ranked pick in the reasoning response. The echoed
// score is advisory only; deterministic invariant enforcement overrides it.
type ReasoningSlot struct {
	Protocol string `json:"protocol"`
	Score    int    `json:"score"`
	Reason   string `json:"reason"`
	Pain     string `json:"pain"`
	Downtime string `json:"downtime"`
}

// ReasoningResponse maps onto the {rank1, rank2, rank3} contract.
type ReasoningResponse struct {
	Rank1 ReasoningSlot `json:"rank1"`
	Rank2 ReasoningSlot `json:"rank2"`
	Rank3 ReasoningSlot `json:"rank3"`
}

// Slots returns the ranked picks in order.
func (r *ReasoningResponse) Slots() []ReasoningSlot {
	return []ReasoningSlot{r.Rank1, r.Rank2, r.Rank3}
}
