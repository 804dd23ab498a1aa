package app

import (
	"testing"
	"time"

	"sitewatch/internal/alerting/rules"
	"sitewatch/internal/config"
)

func TestMapStorageConfig(t *testing.T) {
	t.Parallel()

	if _, enabled, err := mapStorageConfig(&config.Config{}); err != nil || enabled {
		t.Fatalf("no storage section: enabled=%v err=%v", enabled, err)
	}

	sc, enabled, err := mapStorageConfig(&config.Config{
		Storage: &config.StorageConfig{Driver: "sqlite", Path: "./db", BusyTimeout: "5s"},
	})
	if err != nil || !enabled {
		t.Fatalf("enabled=%v err=%v", enabled, err)
	}
	if sc.Driver != "sqlite" || sc.BusyTimeout != 5*time.Second {
		t.Fatalf("mapped = %+v", sc)
	}

	if _, enabled, err := mapStorageConfig(&config.Config{
		Storage: &config.StorageConfig{Driver: "none"},
	}); err != nil || enabled {
		t.Fatalf("driver none: enabled=%v err=%v", enabled, err)
	}

	if _, _, err := mapStorageConfig(&config.Config{
		Storage: &config.StorageConfig{Driver: "file", BusyTimeout: "soon"},
	}); err == nil {
		t.Fatalf("bad busy_timeout accepted")
	}
}

func TestEngineDefaultsMerge(t *testing.T) {
	t.Parallel()
	reg := rules.Builtin()

	cfg, err := engineDefaults("rail", reg, nil)
	if err != nil {
		t.Fatalf("nil defaults: %v", err)
	}
	if !cfg.Active || cfg.EvaluationIntervalMinutes != 15 {
		t.Fatalf("hardcoded defaults = %+v", cfg)
	}

	inactive := false
	limit := 3
	cfg, err = engineDefaults("rail", reg, &config.EngineDefaults{
		Active:                    &inactive,
		EvaluationIntervalMinutes: 30,
		DailyLimit:                &limit,
		QuietHours:                &config.QuietHours{Active: true, Start: "21:00", End: "06:00"},
		Channels:                  map[string]bool{"telegram": true},
		RuleTypes:                 map[string]bool{rules.TypeRiskUnmitigated: false},
	})
	if err != nil {
		t.Fatalf("engineDefaults: %v", err)
	}
	if cfg.Active || cfg.EvaluationIntervalMinutes != 30 || cfg.DailyLimit != 3 {
		t.Fatalf("merged = %+v", cfg)
	}
	if !cfg.QuietHours.Active || cfg.QuietHours.Start != "21:00" {
		t.Fatalf("quiet hours = %+v", cfg.QuietHours)
	}
	// Seeded maps overlay the defaults; the rest of the rule set stays on.
	if !cfg.Channels["inproc"] || !cfg.Channels["telegram"] {
		t.Fatalf("channels = %v", cfg.Channels)
	}
	if cfg.RuleTypes[rules.TypeRiskUnmitigated] || !cfg.RuleTypes[rules.TypeInspectionOverdue] {
		t.Fatalf("rule types = %v", cfg.RuleTypes)
	}

	if _, err := engineDefaults("rail", reg, &config.EngineDefaults{
		QuietHours: &config.QuietHours{Active: true, Start: "25:00", End: "06:00"},
	}); err == nil {
		t.Fatalf("invalid seeded quiet hours accepted")
	}
}
