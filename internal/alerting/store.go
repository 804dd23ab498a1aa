package alerting

import (
	"sort"
	"time"

	"sitewatch/internal/alert"
)

// DefaultCapacity bounds the notification log when no explicit capacity
// is configured.
const DefaultCapacity = 100

// notifStore is the in-memory notification log.
//
// It is NOT safe for concurrent use on its own: every caller goes through
// the engine mutex (single-writer discipline), which is what keeps
// capacity eviction and dedup-window checks free of lost updates.
//
// Items are kept oldest-first internally; all read paths return
// newest-first copies.
type notifStore struct {
	capacity int
	items    []alert.Notification
}

func newNotifStore(capacity int) *notifStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &notifStore{capacity: capacity}
}

// restore replaces the log with persisted notifications, re-sorting by
// CreatedAt and re-applying the capacity bound.
func (s *notifStore) restore(items []alert.Notification) {
	s.items = append([]alert.Notification(nil), items...)
	sort.SliceStable(s.items, func(i, j int) bool {
		return s.items[i].CreatedAt.Before(s.items[j].CreatedAt)
	})
	if n := len(s.items) - s.capacity; n > 0 {
		s.items = append([]alert.Notification(nil), s.items[n:]...)
	}
}

// append adds a notification, evicting the oldest entries past capacity.
func (s *notifStore) append(n alert.Notification) {
	s.items = append(s.items, n)
	if over := len(s.items) - s.capacity; over > 0 {
		s.items = append([]alert.Notification(nil), s.items[over:]...)
	}
}

// list returns all notifications newest-first.
func (s *notifStore) list() []alert.Notification {
	out := make([]alert.Notification, 0, len(s.items))
	for i := len(s.items) - 1; i >= 0; i-- {
		out = append(out, s.items[i])
	}
	return out
}

// listUnread returns unacknowledged notifications newest-first.
func (s *notifStore) listUnread() []alert.Notification {
	var out []alert.Notification
	for i := len(s.items) - 1; i >= 0; i-- {
		if !s.items[i].Read() {
			out = append(out, s.items[i])
		}
	}
	return out
}

// snapshot returns the log oldest-first, for persistence.
func (s *notifStore) snapshot() []alert.Notification {
	return append([]alert.Notification(nil), s.items...)
}

// markRead sets ReadAt once. Returns (found, changed); re-reading an
// already-read notification is a no-op.
func (s *notifStore) markRead(id string, now time.Time) (found, changed bool) {
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		if s.items[i].ReadAt == nil {
			t := now
			s.items[i].ReadAt = &t
			return true, true
		}
		return true, false
	}
	return false, false
}

// markAllRead acknowledges every unread notification. Returns the count
// of notifications transitioned.
func (s *notifStore) markAllRead(now time.Time) int {
	changed := 0
	for i := range s.items {
		if s.items[i].ReadAt == nil {
			t := now
			s.items[i].ReadAt = &t
			changed++
		}
	}
	return changed
}

func (s *notifStore) remove(id string) bool {
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

func (s *notifStore) clear() { s.items = nil }

func (s *notifStore) len() int { return len(s.items) }

// hasRecent reports whether a non-evicted notification with the same
// (ruleType, targetEntityID) was created within window of now.
func (s *notifStore) hasRecent(ruleType, entityID string, window time.Duration, now time.Time) bool {
	if window <= 0 {
		return false
	}
	cutoff := now.Add(-window)
	for i := len(s.items) - 1; i >= 0; i-- {
		n := s.items[i]
		if n.CreatedAt.Before(cutoff) {
			// items are ordered by CreatedAt; everything older is out of window
			return false
		}
		if n.RuleType == ruleType && n.TargetEntityID == entityID {
			return true
		}
	}
	return false
}

// countOnDay counts notifications created on the same calendar day as now.
func (s *notifStore) countOnDay(now time.Time) int {
	y, m, d := now.Date()
	count := 0
	for i := len(s.items) - 1; i >= 0; i-- {
		cy, cm, cd := s.items[i].CreatedAt.In(now.Location()).Date()
		if cy == y && cm == m && cd == d {
			count++
		}
	}
	return count
}

// stats derives the store summary at the given instant. "This week" is a
// rolling 7-day window ending at now.
func (s *notifStore) stats(now time.Time) alert.Stats {
	st := alert.Stats{
		ByPriority: map[alert.Priority]int{},
		ByRuleType: map[string]int{},
	}
	y, m, d := now.Date()
	weekCutoff := now.Add(-7 * 24 * time.Hour)

	for _, n := range s.items {
		st.Total++
		if !n.Read() {
			st.Unread++
		}
		st.ByPriority[n.Priority]++
		st.ByRuleType[n.RuleType]++

		cy, cm, cd := n.CreatedAt.In(now.Location()).Date()
		if cy == y && cm == m && cd == d {
			st.Today++
		}
		if n.CreatedAt.After(weekCutoff) {
			st.ThisWeek++
		}
	}
	return st
}
