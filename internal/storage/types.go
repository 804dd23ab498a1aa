package storage

import (
	"encoding/json"
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// SchemaVersion is the current on-disk envelope version.
// Records with a higher version are treated as unreadable (not an error).
const SchemaVersion = 1

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (json snapshot + jsonl log)
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled and engines run
// memory-only.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// ConfigRecord is the persisted engine configuration envelope.
type ConfigRecord struct {
	SchemaVersion int             `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NotificationRecord is one persisted notification envelope.
// Corrupt records are skipped individually on load; the log never
// fails wholesale because one entry is unreadable.
type NotificationRecord struct {
	SchemaVersion int             `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}
