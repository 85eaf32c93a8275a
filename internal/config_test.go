package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestWeeklyConfig_EmptyMarkersRejected(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Weekly.StartMarker = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty start marker should fail validation")
	}

	cfg = NewDefaultConfig()
	cfg.Weekly.EndMarker = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty end marker should fail validation")
	}
}

func TestWatchConfig_NegativeDebounceRejected(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Watch.DebounceMs = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative debounce should fail validation")
	}
}

func TestLinkerConfig_Mapping(t *testing.T) {
	cfg := NewDefaultConfig()
	lc := cfg.LinkerConfig()
	if lc.DailyFormat != "YYYY-MM-DD" {
		t.Errorf("DailyFormat = %q", lc.DailyFormat)
	}
	if lc.StartMarker != cfg.Weekly.StartMarker || lc.EndMarker != cfg.Weekly.EndMarker {
		t.Error("markers not mapped")
	}
	if !lc.EnsureHeading {
		t.Error("EnsureHeading not mapped")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}
