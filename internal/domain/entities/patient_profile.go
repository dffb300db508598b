package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// DefaultPrimaryGoal is substituted when a survey arrives without a
// primary goal. This is a pre-consultation tool, so a generic label beats
// a rejected request.
const DefaultPrimaryGoal = "Skin Improvement"

// PatientProfile is the canonical, normalized form of a survey submission.
// It is frozen into a Report at generation time; re-tunes produce a new
// profile copy rather than mutating this one.
type PatientProfile struct {
	Age               string         `json:"age,omitempty"`
	Gender            string         `json:"gender,omitempty"`
	Country           string         `json:"country,omitempty"`
	PrimaryGoal       string         `json:"primary_goal"`
	SecondaryGoal     string         `json:"secondary_goal,omitempty"`
	Risks             []string       `json:"risks,omitempty"`
	Areas             []string       `json:"areas,omitempty"`
	SkinType          string         `json:"skin_type,omitempty"`
	PainTolerance     ToleranceLevel `json:"pain_tolerance"`
	DowntimeTolerance ToleranceLevel `json:"downtime_tolerance"`
	BudgetTier        string         `json:"budget_tier,omitempty"`
	TreatmentHistory  []string       `json:"treatment_history,omitempty"`
	Language          Language       `json:"language"`
}

// Clone returns a deep copy of the profile.
func (p *PatientProfile) Clone() *PatientProfile {
	cloned := *p
	cloned.Risks = append([]string(nil), p.Risks...)
	cloned.Areas = append([]string(nil), p.Areas...)
	cloned.TreatmentHistory = append([]string(nil), p.TreatmentHistory...)
	return &cloned
}

// SnapshotKey derives the content-addressed cache key for this profile
// belonging to the given patient. Identical (patient, profile) pairs hash
// to the same key, which is what makes concurrent report writes safe to
// resolve by last-writer-wins.
func (p *PatientProfile) SnapshotKey(patientID string) string {
	canonical, _ := json.Marshal(p)
	sum := sha256.Sum256(append([]byte(patientID+"|"), canonical...))
	return hex.EncodeToString(sum[:])
}

// RetuneOverrides carries the sliders a patient can move after an initial
// report without resubmitting the survey.
type RetuneOverrides struct {
	PainTolerance     *ToleranceLevel `json:"pain_tolerance,omitempty"`
	DowntimeTolerance *ToleranceLevel `json:"downtime_tolerance,omitempty"`
}

// RawSurvey is the unvalidated wizard payload. Conditional questions may
// be absent and multi-selects may contain duplicates or contradictory
// sentinels; the normalizer owns cleaning all of that up.
type RawSurvey struct {
	Age               string        `json:"age"`
	Gender            string        `json:"gender"`
	Country           string        `json:"country"`
	PrimaryGoal       string        `json:"primary_goal"`
	SecondaryGoal     string        `json:"secondary_goal"`
	Risks             []string      `json:"risks"`
	Areas             []string      `json:"areas"`
	SkinType          string        `json:"skin_type"`
	PainTolerance     LocalizedText `json:"pain_tolerance"`
	DowntimeTolerance LocalizedText `json:"downtime_tolerance"`
	SkinThickness     LocalizedText `json:"skin_thickness"`
	BudgetTier        string        `json:"budget_tier"`
	TreatmentHistory  []string      `json:"treatment_history"`
	Language          string        `json:"language"`
}
