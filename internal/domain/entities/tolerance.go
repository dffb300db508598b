package entities

import (
	"encoding/json"
	"strings"
)

// ToleranceLevel is the ordered scale shared by patient tolerances and
// protocol intensities: None < VeryLow < Low < Medium < High < VeryHigh.
type ToleranceLevel int

const (
	ToleranceNone ToleranceLevel = iota
	ToleranceVeryLow
	ToleranceLow
	ToleranceMedium
	ToleranceHigh
	ToleranceVeryHigh
)

var toleranceNames = [...]string{"None", "Very Low", "Low", "Medium", "High", "Very High"}

// String returns the display name for the level.
func (l ToleranceLevel) String() string {
	if l < ToleranceNone || l > ToleranceVeryHigh {
		return "Medium"
	}
	return toleranceNames[l]
}

// StepAbove returns the next level up the scale, capped at VeryHigh.
func (l ToleranceLevel) StepAbove() ToleranceLevel {
	if l >= ToleranceVeryHigh {
		return ToleranceVeryHigh
	}
	return l + 1
}

// Distance returns the absolute ordinal distance between two levels.
func (l ToleranceLevel) Distance(other ToleranceLevel) int {
	d := int(l) - int(other)
	if d < 0 {
		return -d
	}
	return d
}

// MarshalJSON encodes the level as its display name.
func (l ToleranceLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON decodes a level name, defaulting unknowns to Medium.
func (l *ToleranceLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l = ParseToleranceLevel(s, ToleranceMedium)
	return nil
}

// surveyAliases maps phrases seen in survey answers onto scale levels.
// The wizard renders localized option text, so matching is substring-based
// on the lowercased answer.
var surveyAliases = []struct {
	phrase string
	level  ToleranceLevel
}{
	{"prefer minimal pain", ToleranceLow},
	{"moderate is okay", ToleranceMedium},
	{"high tolerance", ToleranceHigh},
	{"daily life immediately", ToleranceNone},
	{"3-4 days", ToleranceLow},
	{"3–4 days", ToleranceLow},
	{"1 week+", ToleranceHigh},
}

// ParseToleranceLevel parses level names ("Low", "very_high") and survey
// phrase aliases. Unrecognized input returns the supplied default: a
// malformed answer must never reject a request.
func ParseToleranceLevel(s string, def ToleranceLevel) ToleranceLevel {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "_", " ")
	switch normalized {
	case "none":
		return ToleranceNone
	case "very low", "verylow":
		return ToleranceVeryLow
	case "low", "short":
		return ToleranceLow
	case "medium", "mid", "moderate":
		return ToleranceMedium
	case "high", "long":
		return ToleranceHigh
	case "very high", "veryhigh":
		return ToleranceVeryHigh
	}

	for _, alias := range surveyAliases {
		if strings.Contains(normalized, alias.phrase) {
			return alias.level
		}
	}
	return def
}
