package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.DB.Host != "localhost" || cfg.DB.Port != 5432 {
		t.Errorf("unexpected DB defaults: %+v", cfg.DB)
	}
	if cfg.DB.MaxDBConnections != 4 {
		t.Errorf("MaxDBConnections default = %d, want 4", cfg.DB.MaxDBConnections)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := `
db:
  host: dbhost
  port: 6543
  user: dirbs_core_power_user
  max_db_connections: 8

conditions:
  - label: local_stolen
    grace_period_days: 0
    blocking: true
    sticky: false
    reason: "stolen device"
    max_allowed_matching_ratio: 0.1
    amnesty_eligible: false
    dimensions:
      - module: stolen_list
        parameters: {}
        invert: false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DB.Host != "dbhost" || cfg.DB.Port != 6543 {
		t.Errorf("unexpected DB config: %+v", cfg.DB)
	}
	if len(cfg.Conditions) != 1 || cfg.Conditions[0].Label != "local_stolen" {
		t.Errorf("unexpected conditions: %+v", cfg.Conditions)
	}
}

func TestLoadFromEnvOverridesDBHost(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("DIRBS_DB_HOST", "envhost")
	t.Setenv("DIRBS_DB_PORT", "1111")
	cfg.LoadFromEnv()
	if cfg.DB.Host != "envhost" {
		t.Errorf("DB.Host = %q, want envhost", cfg.DB.Host)
	}
	if cfg.DB.Port != 1111 {
		t.Errorf("DB.Port = %d, want 1111", cfg.DB.Port)
	}
}

func TestLoadFromEnvInvalidPortKeepsDefault(t *testing.T) {
	cfg := DefaultConfig()
	original := cfg.DB.Port
	t.Setenv("DIRBS_DB_PORT", "not-a-port")
	cfg.LoadFromEnv()
	if cfg.DB.Port != original {
		t.Errorf("DB.Port = %d, want unchanged %d", cfg.DB.Port, original)
	}
}

func TestValidateRejectsPipeInReason(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Conditions = []ConditionConfig{{
		Label: "bad", GracePeriodDays: 0, Blocking: true, Reason: "a|b",
		MaxAllowedMatchingRatio: 0.1,
		Dimensions:              []DimensionConfig{{Module: "stolen_list"}},
	}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for pipe in reason")
	}
}

func TestValidateRejectsAmnestyOnInformational(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Conditions = []ConditionConfig{{
		Label: "informational", GracePeriodDays: 0, Blocking: false, Reason: "info",
		MaxAllowedMatchingRatio: 0.1, AmnestyEligible: true,
		Dimensions: []DimensionConfig{{Module: "gsma_not_found"}},
	}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for amnesty on non-blocking condition")
	}
}

func TestValidateRejectsOverlappingOperatorPrefixes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Region.Operators = map[string][]string{
		"mno_a": {"31026"},
		"mno_b": {"3102"},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for overlapping MCC+MNC prefixes")
	}
}

func TestResolvePathUsesEnvFirst(t *testing.T) {
	t.Setenv("DIRBS_CONFIG_FILE", "/tmp/explicit.yml")
	if got := ResolvePath(); got != "/tmp/explicit.yml" {
		t.Errorf("ResolvePath() = %q, want /tmp/explicit.yml", got)
	}
}
