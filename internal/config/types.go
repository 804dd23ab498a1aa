package config

// Config is the application-level configuration file (YAML or JSON).
//
// Engine runtime settings (interval, gates, quiet hours, ...) are NOT
// here: each engine persists its own config through the storage layer
// and is updated via the engine API. This file only carries initial
// defaults plus process-level wiring.
type Config struct {
	Logging LoggingConfig `json:"logging"`

	// Storage controls the persistence layer shared by all engines.
	Storage *StorageConfig `json:"storage,omitempty"`

	// Telegram enables the telegram delivery channel.
	Telegram *TelegramConfig `json:"telegram,omitempty"`

	// Email enables the (stub) email delivery channel.
	Email *EmailConfig `json:"email,omitempty"`

	// Dispatch tunes the channel dispatcher.
	Dispatch DispatchConfig `json:"dispatch,omitempty"`

	// Domains maps engine namespace -> domain wiring. Each entry becomes
	// one independent engine instance.
	Domains map[string]DomainConfig `json:"domains"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the persistence layer.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./sitewatch.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  int64  `json:"chat_id"`
}

type EmailConfig struct {
	Enabled bool   `json:"enabled"`
	To      string `json:"to"`
}

type DispatchConfig struct {
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

// DomainConfig wires one engine instance.
type DomainConfig struct {
	Enabled bool `json:"enabled"`

	// FixturePath points the engine at a YAML fixture data file. Real
	// deployments register providers programmatically instead.
	FixturePath string `json:"fixture_path,omitempty"`
	// FixtureTTL is a Go duration string bounding fixture re-reads.
	FixtureTTL string `json:"fixture_ttl,omitempty"`

	// Capacity bounds the notification log (default 100).
	Capacity int `json:"capacity,omitempty"`

	// Defaults seed the engine config when nothing is persisted yet.
	Defaults *EngineDefaults `json:"defaults,omitempty"`
}

// EngineDefaults is the subset of engine settings an operator may seed
// from the file. Omitted fields keep the hardcoded defaults.
type EngineDefaults struct {
	Active                    *bool           `json:"active,omitempty"`
	EvaluationIntervalMinutes int             `json:"evaluation_interval_minutes,omitempty"`
	DailyLimit                *int            `json:"daily_limit,omitempty"`
	DedupWindowMinutes        int             `json:"dedup_window_minutes,omitempty"`
	QuietHours                *QuietHours     `json:"quiet_hours,omitempty"`
	Channels                  map[string]bool `json:"channels,omitempty"`
	RuleTypes                 map[string]bool `json:"rule_types,omitempty"`
}

type QuietHours struct {
	Active bool   `json:"active"`
	Start  string `json:"start"`
	End    string `json:"end"`
}
