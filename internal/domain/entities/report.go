package entities

import "time"

// RankRole is the fixed semantic meaning of an output slot, independent
// of raw score.
type RankRole string

const (
	RoleClinicalFit   RankRole = "clinical_fit"
	RoleTrendingMatch RankRole = "trending_match"
	RoleStretchGoal   RankRole = "stretch_goal"
)

// SourceMode records whether the reasoning service contributed to a
// report. The deterministic ranker is always the system of record.
type SourceMode string

const (
	SourceDeterministic SourceMode = "deterministic"
	SourceAIAssisted    SourceMode = "ai_assisted"
)

// Score bounds shared by every recommendation slot.
const (
	ScoreMin = 60
	ScoreMax = 99
)

// RankedRecommendation is one of the three output slots of a report.
// Devices and Boosters are a composition snapshot taken at generation
// time so later catalog edits do not rewrite history.
type RankedRecommendation struct {
	ProtocolID    string         `json:"protocol_id"`
	ProtocolName  string         `json:"protocol_name"`
	Rank          int            `json:"rank"`
	Role          RankRole       `json:"role"`
	Score         int            `json:"score"`
	Rationale     string         `json:"rationale"`
	Devices       []string       `json:"devices"`
	Boosters      []string       `json:"boosters"`
	PainLevel     ToleranceLevel `json:"pain_level"`
	DowntimeLevel ToleranceLevel `json:"downtime_level"`
	SessionsTotal int            `json:"sessions_total"`
}

// Report is an immutable recommendation snapshot: the frozen profile plus
// exactly three ranked recommendations. Re-tuning creates a new Report so
// patients can compare before and after.
type Report struct {
	ID              string                 `json:"id"`
	PatientID       string                 `json:"patient_id"`
	Profile         PatientProfile         `json:"profile"`
	Recommendations []RankedRecommendation `json:"recommendations"`
	SourceMode      SourceMode             `json:"source_mode"`
	CacheKey        string                 `json:"cache_key"`
	TrendingVersion string                 `json:"trending_version"`
	GeneratedAt     time.Time              `json:"generated_at"`
}

// ReportEventType identifies report lifecycle events on the bus.
type ReportEventType string

const (
	ReportEventGenerated ReportEventType = "report.generated"
)

// ReportEvent is published after a report is written, for downstream
// consumers such as analytics or notification fan-out.
type ReportEvent struct {
	ID         string          `json:"id"`
	Type       ReportEventType `json:"type"`
	ReportID   string          `json:"report_id"`
	PatientID  string          `json:"patient_id"`
	SourceMode SourceMode      `json:"source_mode"`
	CreatedAt  time.Time       `json:"created_at"`
}
