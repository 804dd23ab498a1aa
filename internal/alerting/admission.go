package alerting

import (
	"time"

	"github.com/google/uuid"

	"sitewatch/internal/alert"
)

// Suppression reasons reported on the event bus when a candidate is
// dropped by an admission gate.
const (
	reasonPriorityDisabled = "priority_disabled"
	reasonCategoryDisabled = "category_disabled"
	reasonQuietHours       = "quiet_hours"
	reasonDuplicate        = "duplicate_in_window"
	reasonDailyLimit       = "daily_limit_reached"
)

type suppression struct {
	Candidate alert.Candidate
	Reason    string
}

// admit runs the five gates over each candidate, in order: priority,
// category, quiet hours, dedup window, daily cap. Survivors are assigned
// an id and createdAt=now and appended to the store, so later candidates
// in the same batch see earlier admissions for dedup and the daily cap.
//
// Caller holds the engine mutex.
func admit(candidates []alert.Candidate, store *notifStore, cfg EngineConfig, now time.Time) (admitted []alert.Notification, dropped []suppression) {
	for _, c := range candidates {
		if !cfg.Priorities[c.Priority] {
			dropped = append(dropped, suppression{c, reasonPriorityDisabled})
			continue
		}
		if !cfg.Categories[c.Category] {
			dropped = append(dropped, suppression{c, reasonCategoryDisabled})
			continue
		}
		// Quiet hours suppress creation entirely, not merely delivery.
		if cfg.QuietHours.Contains(now) {
			dropped = append(dropped, suppression{c, reasonQuietHours})
			continue
		}
		if store.hasRecent(c.RuleType, c.TargetEntityID, cfg.DedupWindow(), now) {
			dropped = append(dropped, suppression{c, reasonDuplicate})
			continue
		}
		if cfg.DailyLimit > 0 && store.countOnDay(now) >= cfg.DailyLimit {
			dropped = append(dropped, suppression{c, reasonDailyLimit})
			continue
		}

		n := alert.Notification{
			ID:               uuid.NewString(),
			RuleType:         c.RuleType,
			Title:            c.Title,
			Message:          c.Message,
			Priority:         c.Priority,
			Category:         c.Category,
			TargetEntityID:   c.TargetEntityID,
			TargetEntityKind: c.TargetEntityKind,
			CreatedAt:        now,
			ActionRequired:   c.ActionRequired,
			ActionRef:        c.ActionRef,
			Extra:            c.Extra,
		}
		store.append(n)
		admitted = append(admitted, n)
	}
	return admitted, dropped
}
