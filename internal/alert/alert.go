// Package alert holds the notification model shared by the engine,
// the rule set, and the delivery channels.
package alert

import "time"

// Priority classifies how urgently a notification needs attention.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Priorities lists all valid priorities.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}
}

// Category groups notifications by domain area.
type Category string

const (
	CategoryStructural Category = "structural"
	CategoryInspection Category = "inspection"
	CategoryMonitoring Category = "monitoring"
	CategoryQuality    Category = "quality"
	CategorySafety     Category = "safety"
	CategorySystem     Category = "system"
)

// Categories lists all valid categories.
func Categories() []Category {
	return []Category{
		CategoryStructural, CategoryInspection, CategoryMonitoring,
		CategoryQuality, CategorySafety, CategorySystem,
	}
}

// Candidate is a rule's output before admission gating. It carries no id
// and no creation time; those are assigned on admission.
type Candidate struct {
	RuleType         string
	Title            string
	Message          string
	Priority         Priority
	Category         Category
	TargetEntityID   string
	TargetEntityKind string
	ActionRequired   bool
	ActionRef        string
	Extra            map[string]any
}

// Notification is an admitted, persisted alert.
//
// Immutable after creation except for the read transition (ReadAt is set
// exactly once).
type Notification struct {
	ID               string         `json:"id"`
	RuleType         string         `json:"rule_type"`
	Title            string         `json:"title"`
	Message          string         `json:"message"`
	Priority         Priority       `json:"priority"`
	Category         Category       `json:"category"`
	TargetEntityID   string         `json:"target_entity_id,omitempty"`
	TargetEntityKind string         `json:"target_entity_kind,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	ReadAt           *time.Time     `json:"read_at,omitempty"`
	ActionRequired   bool           `json:"action_required"`
	ActionRef        string         `json:"action_ref,omitempty"`
	Extra            map[string]any `json:"extra,omitempty"`
}

// Read reports whether the notification has been acknowledged.
func (n Notification) Read() bool { return n.ReadAt != nil }

// Stats is the derived summary of a notification store. Nothing here is
// stored; every count is computed from the log on demand.
type Stats struct {
	Total      int              `json:"total"`
	Unread     int              `json:"unread"`
	Today      int              `json:"today"`
	ThisWeek   int              `json:"this_week"`
	ByPriority map[Priority]int `json:"by_priority"`
	ByRuleType map[string]int   `json:"by_rule_type"`
}
