package entities

import "testing"

func TestTrendingCatalog_Matches(t *testing.T) {
	catalog := TrendingCatalog{
		Version:  "2026-08",
		Keywords: []string{"rejuran", "exosome"},
	}

	byName := &Protocol{Name: "Rejuran Healing Course"}
	if !catalog.Matches(byName) {
		t.Error("expected match on protocol name")
	}

	byBooster := &Protocol{Name: "Glow Program", Boosters: []string{"Exosome"}}
	if !catalog.Matches(byBooster) {
		t.Error("expected match on booster")
	}

	byDevice := &Protocol{Name: "Deep Lift", Devices: []string{"Ulthera"}}
	if catalog.Matches(byDevice) {
		t.Error("did not expect match for untracked device")
	}

	if catalog.Matches(nil) {
		t.Error("nil protocol must not match")
	}

	empty := TrendingCatalog{Version: "empty"}
	if empty.Matches(byName) {
		t.Error("empty keyword list must not match")
	}
}

func TestDefaultTrendingCatalog_MarksBuiltinVersion(t *testing.T) {
	catalog := DefaultTrendingCatalog()
	if catalog.Version != "builtin" {
		t.Errorf("expected version builtin, got %q", catalog.Version)
	}
	if len(catalog.Keywords) == 0 {
		t.Error("builtin catalog must carry keywords")
	}
}

func TestLocalizedText_Resolve(t *testing.T) {
	text := LocalizedText{
		LanguageEN: "anti-aging",
		LanguageKO: "안티에이징",
	}

	if got := text.Resolve(LanguageKO); got != "안티에이징" {
		t.Errorf("expected KO variant, got %q", got)
	}
	// JP is absent, falls back through the priority order to EN
	if got := text.Resolve(LanguageJP); got != "anti-aging" {
		t.Errorf("expected EN fallback, got %q", got)
	}

	empty := LocalizedText{}
	if got := empty.Resolve(LanguageEN); got != "" {
		t.Errorf("expected empty resolution, got %q", got)
	}
}

func TestParseLanguage_DefaultsToEN(t *testing.T) {
	if got := ParseLanguage("ko"); got != LanguageKO {
		t.Errorf("expected KO, got %v", got)
	}
	if got := ParseLanguage("fr"); got != LanguageEN {
		t.Errorf("expected EN default, got %v", got)
	}
	if got := ParseLanguage(""); got != LanguageEN {
		t.Errorf("expected EN for empty input, got %v", got)
	}
}
