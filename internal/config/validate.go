package config

import (
	"fmt"
	"strings"
)

// Validate checks process-level constraints before a config is committed.
// Engine-level settings get their own validation inside the engine.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if cfg.Storage != nil {
		switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
		case "", "none", "file", "sqlite", "sqlite3":
		default:
			return fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver)
		}
		if _, err := ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
			return err
		}
	}

	if cfg.Telegram != nil && cfg.Telegram.Enabled {
		if strings.TrimSpace(cfg.Telegram.Token) == "" {
			return fmt.Errorf("telegram.token is required when telegram is enabled")
		}
		if cfg.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	if cfg.Dispatch.RatePerSec < 0 {
		return fmt.Errorf("dispatch.rate_per_sec: must be >= 0")
	}

	for name, d := range cfg.Domains {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("domains: empty domain name")
		}
		if _, err := ParseDurationField("domains."+name+".fixture_ttl", d.FixtureTTL); err != nil {
			return err
		}
		if d.Capacity < 0 {
			return fmt.Errorf("domains.%s.capacity: must be >= 0", name)
		}
		if def := d.Defaults; def != nil {
			if def.EvaluationIntervalMinutes < 0 {
				return fmt.Errorf("domains.%s.defaults.evaluation_interval_minutes: must be >= 1", name)
			}
			if def.DailyLimit != nil && *def.DailyLimit < 0 {
				return fmt.Errorf("domains.%s.defaults.daily_limit: must be >= 0", name)
			}
			if def.DedupWindowMinutes < 0 {
				return fmt.Errorf("domains.%s.defaults.dedup_window_minutes: must be >= 0", name)
			}
		}
	}
	return nil
}
