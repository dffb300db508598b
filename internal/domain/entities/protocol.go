package entities

// Protocol is a named treatment definition from the knowledge store:
// devices, boosters, intensity levels, and session plan. Protocols are
// externally owned and read-only within the engine.
type Protocol struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	GoalPrimary          string         `json:"goal_primary"`
	GoalAdditional       []string       `json:"goal_additional,omitempty"`
	PainLevel            ToleranceLevel `json:"pain_level"`
	DowntimeLevel        ToleranceLevel `json:"downtime_level"`
	TargetLayers         []string       `json:"target_layers,omitempty"`
	Devices              []string       `json:"devices,omitempty"`
	Boosters             []string       `json:"boosters,omitempty"`
	SessionsTotal        int            `json:"sessions_total"`
	SessionIntervalWeeks int            `json:"session_interval_weeks,omitempty"`
	Notes                string         `json:"notes,omitempty"`

	// Trending is derived at load time from the injected trending catalog,
	// never stored.
	Trending bool `json:"trending"`
}

// Defaults applied by the catalog loader when optional knowledge-store
// fields are missing. Incomplete entries are defaulted, never discarded.
const (
	DefaultProtocolPainLevel     = ToleranceMedium
	DefaultProtocolDowntimeLevel = ToleranceLow
	DefaultProtocolSessions      = 3
)
