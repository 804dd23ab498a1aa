package alerting

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"sitewatch/internal/alert"
)

// Minimum scheduler period. Anything lower is a validation error, not a clamp.
const minIntervalMinutes = 1

// QuietHours is a daily time-of-day window during which alert creation is
// suppressed. The window wraps past midnight when Start > End.
type QuietHours struct {
	Active bool   `json:"active"`
	Start  string `json:"start"` // "HH:MM"
	End    string `json:"end"`   // "HH:MM"
}

// Contains reports whether t falls inside the window (local time of t).
func (q QuietHours) Contains(t time.Time) bool {
	if !q.Active {
		return false
	}
	sh, sm, err := parseHHMM(q.Start)
	if err != nil {
		return false
	}
	eh, em, err := parseHHMM(q.End)
	if err != nil {
		return false
	}
	cur := t.Hour()*60 + t.Minute()
	start := sh*60 + sm
	end := eh*60 + em
	if start <= end {
		return cur >= start && cur < end
	}
	// wraps past midnight, e.g. 22:00 -> 07:00
	return cur >= start || cur < end
}

// EngineConfig is the single persisted configuration record of one engine
// instance. Gating maps treat a missing key as disabled.
type EngineConfig struct {
	Active                    bool                    `json:"active"`
	Channels                  map[string]bool         `json:"channels"`
	RuleTypes                 map[string]bool         `json:"rule_types"`
	Priorities                map[alert.Priority]bool `json:"priorities"`
	Categories                map[alert.Category]bool `json:"categories"`
	EvaluationIntervalMinutes int                     `json:"evaluation_interval_minutes"`
	DailyLimit                int                     `json:"daily_limit"`
	QuietHours                QuietHours              `json:"quiet_hours"`
	DedupWindowMinutes        int                     `json:"dedup_window_minutes"`
}

// DefaultConfig returns the hardcoded fallback configuration: everything
// enabled, 15 minute ticks, 20 notifications per day, 60 minute dedup.
func DefaultConfig(ruleTypes []string) EngineConfig {
	cfg := EngineConfig{
		Active:                    true,
		Channels:                  map[string]bool{"inproc": true},
		RuleTypes:                 map[string]bool{},
		Priorities:                map[alert.Priority]bool{},
		Categories:                map[alert.Category]bool{},
		EvaluationIntervalMinutes: 15,
		DailyLimit:                20,
		QuietHours:                QuietHours{Active: false, Start: "22:00", End: "07:00"},
		DedupWindowMinutes:        60,
	}
	for _, rt := range ruleTypes {
		cfg.RuleTypes[rt] = true
	}
	for _, p := range alert.Priorities() {
		cfg.Priorities[p] = true
	}
	for _, c := range alert.Categories() {
		cfg.Categories[c] = true
	}
	return cfg
}

// Interval returns the evaluation period as a duration.
func (c EngineConfig) Interval() time.Duration {
	return time.Duration(c.EvaluationIntervalMinutes) * time.Minute
}

// DedupWindow returns the dedup suppression window as a duration.
func (c EngineConfig) DedupWindow() time.Duration {
	return time.Duration(c.DedupWindowMinutes) * time.Minute
}

// Clone returns a deep copy; callers get copies so nobody mutates the
// engine's maps behind the lock.
func (c EngineConfig) Clone() EngineConfig {
	cp := c
	cp.Channels = cloneMap(c.Channels)
	cp.RuleTypes = cloneMap(c.RuleTypes)
	cp.Priorities = cloneMap(c.Priorities)
	cp.Categories = cloneMap(c.Categories)
	return cp
}

func cloneMap[K comparable](m map[K]bool) map[K]bool {
	if m == nil {
		return nil
	}
	cp := make(map[K]bool, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// ValidationError rejects a config update; the prior config stays in effect.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

// Validate checks the full (post-merge) configuration.
func (c EngineConfig) Validate() error {
	if c.EvaluationIntervalMinutes < minIntervalMinutes {
		return &ValidationError{
			Field:  "evaluation_interval_minutes",
			Reason: fmt.Sprintf("must be >= %d", minIntervalMinutes),
		}
	}
	if c.DailyLimit < 0 {
		return &ValidationError{Field: "daily_limit", Reason: "must be >= 0"}
	}
	if c.DedupWindowMinutes < 0 {
		return &ValidationError{Field: "dedup_window_minutes", Reason: "must be >= 0"}
	}
	// Window bounds only need to parse when the window can actually apply.
	if c.QuietHours.Active || strings.TrimSpace(c.QuietHours.Start) != "" {
		if _, _, err := parseHHMM(c.QuietHours.Start); err != nil {
			return &ValidationError{Field: "quiet_hours.start", Reason: err.Error()}
		}
	}
	if c.QuietHours.Active || strings.TrimSpace(c.QuietHours.End) != "" {
		if _, _, err := parseHHMM(c.QuietHours.End); err != nil {
			return &ValidationError{Field: "quiet_hours.end", Reason: err.Error()}
		}
	}
	for p := range c.Priorities {
		if !validPriority(p) {
			return &ValidationError{Field: "priorities", Reason: "unknown priority " + strconv.Quote(string(p))}
		}
	}
	for cat := range c.Categories {
		if !validCategory(cat) {
			return &ValidationError{Field: "categories", Reason: "unknown category " + strconv.Quote(string(cat))}
		}
	}
	return nil
}

func validPriority(p alert.Priority) bool {
	for _, v := range alert.Priorities() {
		if p == v {
			return true
		}
	}
	return false
}

func validCategory(c alert.Category) bool {
	for _, v := range alert.Categories() {
		if c == v {
			return true
		}
	}
	return false
}

// ConfigPatch is a partial update. Nil fields leave the current value
// untouched; non-nil maps replace the current map wholesale (shallow merge).
type ConfigPatch struct {
	Active                    *bool                   `json:"active,omitempty"`
	Channels                  map[string]bool         `json:"channels,omitempty"`
	RuleTypes                 map[string]bool         `json:"rule_types,omitempty"`
	Priorities                map[alert.Priority]bool `json:"priorities,omitempty"`
	Categories                map[alert.Category]bool `json:"categories,omitempty"`
	EvaluationIntervalMinutes *int                    `json:"evaluation_interval_minutes,omitempty"`
	DailyLimit                *int                    `json:"daily_limit,omitempty"`
	QuietHours                *QuietHours             `json:"quiet_hours,omitempty"`
	DedupWindowMinutes        *int                    `json:"dedup_window_minutes,omitempty"`
}

// apply merges the patch into cfg and returns the result. It does not
// validate; callers validate the merged config before committing.
func (p ConfigPatch) apply(cfg EngineConfig) EngineConfig {
	out := cfg.Clone()
	if p.Active != nil {
		out.Active = *p.Active
	}
	if p.Channels != nil {
		out.Channels = cloneMap(p.Channels)
	}
	if p.RuleTypes != nil {
		out.RuleTypes = cloneMap(p.RuleTypes)
	}
	if p.Priorities != nil {
		out.Priorities = cloneMap(p.Priorities)
	}
	if p.Categories != nil {
		out.Categories = cloneMap(p.Categories)
	}
	if p.EvaluationIntervalMinutes != nil {
		out.EvaluationIntervalMinutes = *p.EvaluationIntervalMinutes
	}
	if p.DailyLimit != nil {
		out.DailyLimit = *p.DailyLimit
	}
	if p.QuietHours != nil {
		out.QuietHours = *p.QuietHours
	}
	if p.DedupWindowMinutes != nil {
		out.DedupWindowMinutes = *p.DedupWindowMinutes
	}
	return out
}

func parseHHMM(s string) (hour int, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}
