// Package domain defines the read-only quality-record shapes the alerting
// engine evaluates, and the provider contract for fetching them.
//
// The engine never writes back to domain data.
package domain

import "time"

// ConditionState classifies the observed condition of an asset.
type ConditionState string

const (
	ConditionGood     ConditionState = "good"
	ConditionFair     ConditionState = "fair"
	ConditionPoor     ConditionState = "poor"
	ConditionCritical ConditionState = "critical"
)

// Asset is a tracked construction asset (track section, bridge, tunnel, ...).
type Asset struct {
	ID             string         `yaml:"id" json:"id"`
	Name           string         `yaml:"name" json:"name"`
	Kind           string         `yaml:"kind" json:"kind"` // "track", "bridge", "tunnel", ...
	Condition      ConditionState `yaml:"condition" json:"condition"`
	LastInspection time.Time      `yaml:"last_inspection" json:"last_inspection"`
	NextInspection time.Time      `yaml:"next_inspection" json:"next_inspection"`
}

// Measurement is a single instrumented reading against a fixed limit
// (settlement, deflection, gauge deviation, ...).
type Measurement struct {
	ID      string    `yaml:"id" json:"id"`
	AssetID string    `yaml:"asset_id" json:"asset_id"`
	Kind    string    `yaml:"kind" json:"kind"`
	Value   float64   `yaml:"value" json:"value"`
	Limit   float64   `yaml:"limit" json:"limit"`
	Unit    string    `yaml:"unit" json:"unit"`
	TakenAt time.Time `yaml:"taken_at" json:"taken_at"`
}

// CompactionTrial records a field compaction result against its spec.
type CompactionTrial struct {
	ID            string    `yaml:"id" json:"id"`
	AssetID       string    `yaml:"asset_id" json:"asset_id"`
	Location      string    `yaml:"location" json:"location"`
	RatioPercent  float64   `yaml:"ratio_percent" json:"ratio_percent"`   // achieved compaction ratio
	RequiredRatio float64   `yaml:"required_ratio" json:"required_ratio"` // spec minimum
	TestedAt      time.Time `yaml:"tested_at" json:"tested_at"`
}

// Nonconformity is an open quality deviation with a resolution deadline.
type Nonconformity struct {
	ID       string    `yaml:"id" json:"id"`
	AssetID  string    `yaml:"asset_id" json:"asset_id"`
	Title    string    `yaml:"title" json:"title"`
	Severity string    `yaml:"severity" json:"severity"` // "minor", "major", "critical"
	Open     bool      `yaml:"open" json:"open"`
	DueDate  time.Time `yaml:"due_date" json:"due_date"`
}

// Audit is a quality audit with outstanding findings.
type Audit struct {
	ID           string    `yaml:"id" json:"id"`
	AssetID      string    `yaml:"asset_id" json:"asset_id"`
	Title        string    `yaml:"title" json:"title"`
	OpenFindings int       `yaml:"open_findings" json:"open_findings"`
	FollowUpDue  time.Time `yaml:"follow_up_due" json:"follow_up_due"`
}

// Risk is a risk-register entry scored 1..25 (likelihood x impact).
type Risk struct {
	ID        string `yaml:"id" json:"id"`
	AssetID   string `yaml:"asset_id" json:"asset_id"`
	Title     string `yaml:"title" json:"title"`
	Score     int    `yaml:"score" json:"score"`
	Open      bool   `yaml:"open" json:"open"`
	Mitigated bool   `yaml:"mitigated" json:"mitigated"`
}

// Snapshot is one immutable view of the domain state, taken at the start
// of an evaluation tick. Rules only ever read it.
type Snapshot struct {
	TakenAt time.Time

	Assets          []Asset
	Measurements    []Measurement
	Compactions     []CompactionTrial
	Nonconformities []Nonconformity
	Audits          []Audit
	Risks           []Risk
}
