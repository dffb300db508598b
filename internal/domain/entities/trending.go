package entities

import "strings"

// TrendingCatalog is the externally maintained list of currently popular
// treatment keywords. It is injected into the ranker at call time as a
// versioned value so it can be refreshed without redeploying the engine.
type TrendingCatalog struct {
	Version  string   `json:"version"`
	Keywords []string `json:"keywords"`
}

// Matches reports whether a protocol's name, devices, or boosters contain
// any trending keyword.
func (c TrendingCatalog) Matches(p *Protocol) bool {
	if p == nil || len(c.Keywords) == 0 {
		return false
	}
	haystack := strings.ToLower(p.Name + " " + strings.Join(p.Devices, " ") + " " + strings.Join(p.Boosters, " "))
	for _, keyword := range c.Keywords {
		k := strings.ToLower(strings.TrimSpace(keyword))
		if k != "" && strings.Contains(haystack, k) {
			return true
		}
	}
	return false
}

// DefaultTrendingCatalog is the compiled-in fallback used when the
// knowledge store has no trending list. Version "builtin" marks reports
// generated without an external trend feed.
func DefaultTrendingCatalog() TrendingCatalog {
	return TrendingCatalog{
		Version: "builtin",
		Keywords: []string{
			"exosome",
			"rejuran",
			"pico",
			"potenza",
			"shurink",
			"juvelook",
			"skin booster",
			"collagen",
		},
	}
}
