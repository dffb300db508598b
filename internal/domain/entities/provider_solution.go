package entities

import "time"

// ProviderSolution is a provider-authored signature treatment offering.
// Solutions are externally owned and read-only within the engine; the
// roster order they are loaded in is the tie-break order for matching.
type ProviderSolution struct {
	ID            string         `json:"id"`
	ProviderID    string         `json:"provider_id"`
	ProviderName  string         `json:"provider_name"`
	ClinicName    string         `json:"clinic_name,omitempty"`
	Title         string         `json:"title"`
	Description   string         `json:"description,omitempty"`
	FocusCategory string         `json:"focus_category"`
	Devices       []string       `json:"devices,omitempty"`
	Boosters      []string       `json:"boosters,omitempty"`
	PainLevel     ToleranceLevel `json:"pain_level"`
	DowntimeLevel ToleranceLevel `json:"downtime_level"`
	PriceRange    string         `json:"price_range,omitempty"`
	Location      string         `json:"location,omitempty"`
}

// MatchResult links a report to a shortlisted provider solution. Match
// records are append-only: one row per shortlisted offering per run.
type MatchResult struct {
	ID           string    `json:"id"`
	ReportID     string    `json:"report_id"`
	SolutionID   string    `json:"solution_id"`
	ProviderID   string    `json:"provider_id"`
	ProviderName string    `json:"provider_name"`
	Score        int       `json:"score"`
	MatchDetails []string  `json:"match_details"`
	CreatedAt    time.Time `json:"created_at"`
}
