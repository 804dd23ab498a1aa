package alerting

import (
	"testing"
	"time"

	"sitewatch/internal/alert"
)

func mkCandidate(entity string) alert.Candidate {
	return alert.Candidate{
		RuleType:         "inspection_overdue",
		Title:            "inspection overdue",
		Message:          "asset " + entity + " is overdue",
		Priority:         alert.PriorityHigh,
		Category:         alert.CategoryInspection,
		TargetEntityID:   entity,
		TargetEntityKind: "track_segment",
	}
}

func dropReasons(dropped []suppression) []string {
	out := make([]string, 0, len(dropped))
	for _, d := range dropped {
		out = append(out, d.Reason)
	}
	return out
}

func TestAdmitAssignsIdentity(t *testing.T) {
	t.Parallel()
	store := newNotifStore(10)
	cfg := DefaultConfig([]string{"inspection_overdue"})
	now := time.Now()

	admitted, dropped := admit([]alert.Candidate{mkCandidate("a1")}, store, cfg, now)
	if len(dropped) != 0 {
		t.Fatalf("unexpected drops: %v", dropReasons(dropped))
	}
	if len(admitted) != 1 {
		t.Fatalf("admitted = %d, want 1", len(admitted))
	}
	n := admitted[0]
	if n.ID == "" {
		t.Fatalf("admitted notification has no id")
	}
	if !n.CreatedAt.Equal(now) {
		t.Fatalf("createdAt = %v, want %v", n.CreatedAt, now)
	}
	if store.len() != 1 {
		t.Fatalf("store not appended")
	}
}

func TestAdmitGateOrder(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 8, 30, 23, 0, 0, 0, time.UTC)

	// All gates would fire; the priority gate must win because it runs first.
	cfg := DefaultConfig([]string{"inspection_overdue"})
	cfg.Priorities[alert.PriorityHigh] = false
	cfg.Categories[alert.CategoryInspection] = false
	cfg.QuietHours = QuietHours{Active: true, Start: "22:00", End: "07:00"}
	cfg.DailyLimit = 0 // 0 means unlimited, keep cap out of the way

	store := newNotifStore(10)
	_, dropped := admit([]alert.Candidate{mkCandidate("a1")}, store, cfg, now)
	if len(dropped) != 1 || dropped[0].Reason != reasonPriorityDisabled {
		t.Fatalf("drops = %v, want [%s]", dropReasons(dropped), reasonPriorityDisabled)
	}

	// Re-enable priority: category gate is next.
	cfg.Priorities[alert.PriorityHigh] = true
	_, dropped = admit([]alert.Candidate{mkCandidate("a1")}, store, cfg, now)
	if len(dropped) != 1 || dropped[0].Reason != reasonCategoryDisabled {
		t.Fatalf("drops = %v, want [%s]", dropReasons(dropped), reasonCategoryDisabled)
	}

	// Then quiet hours.
	cfg.Categories[alert.CategoryInspection] = true
	_, dropped = admit([]alert.Candidate{mkCandidate("a1")}, store, cfg, now)
	if len(dropped) != 1 || dropped[0].Reason != reasonQuietHours {
		t.Fatalf("drops = %v, want [%s]", dropReasons(dropped), reasonQuietHours)
	}
}

func TestAdmitDedupWithinWindow(t *testing.T) {
	t.Parallel()
	store := newNotifStore(10)
	cfg := DefaultConfig([]string{"inspection_overdue"})
	now := time.Now()

	admitted, _ := admit([]alert.Candidate{mkCandidate("a1")}, store, cfg, now)
	if len(admitted) != 1 {
		t.Fatalf("first admission failed")
	}

	// Same (rule, entity) inside the window: suppressed.
	_, dropped := admit([]alert.Candidate{mkCandidate("a1")}, store, cfg, now.Add(30*time.Minute))
	if len(dropped) != 1 || dropped[0].Reason != reasonDuplicate {
		t.Fatalf("drops = %v, want [%s]", dropReasons(dropped), reasonDuplicate)
	}

	// Past the window: admitted again.
	admitted, dropped = admit([]alert.Candidate{mkCandidate("a1")}, store, cfg, now.Add(61*time.Minute))
	if len(dropped) != 0 || len(admitted) != 1 {
		t.Fatalf("expected re-admission after window, drops=%v", dropReasons(dropped))
	}

	// Different entity is never a duplicate.
	admitted, _ = admit([]alert.Candidate{mkCandidate("a2")}, store, cfg, now.Add(5*time.Minute))
	if len(admitted) != 1 {
		t.Fatalf("different entity suppressed")
	}
}

func TestAdmitDedupWithinBatch(t *testing.T) {
	t.Parallel()
	store := newNotifStore(10)
	cfg := DefaultConfig([]string{"inspection_overdue"})
	now := time.Now()

	admitted, dropped := admit(
		[]alert.Candidate{mkCandidate("a1"), mkCandidate("a1")},
		store, cfg, now,
	)
	if len(admitted) != 1 || len(dropped) != 1 || dropped[0].Reason != reasonDuplicate {
		t.Fatalf("batch dedup: admitted=%d drops=%v", len(admitted), dropReasons(dropped))
	}
}

func TestAdmitDailyCap(t *testing.T) {
	t.Parallel()
	store := newNotifStore(10)
	cfg := DefaultConfig([]string{"inspection_overdue"})
	cfg.DailyLimit = 2
	cfg.DedupWindowMinutes = 0
	now := time.Now()

	admitted, dropped := admit(
		[]alert.Candidate{mkCandidate("a1"), mkCandidate("a2"), mkCandidate("a3")},
		store, cfg, now,
	)
	if len(admitted) != 2 {
		t.Fatalf("admitted = %d, want 2", len(admitted))
	}
	if len(dropped) != 1 || dropped[0].Reason != reasonDailyLimit {
		t.Fatalf("drops = %v, want [%s]", dropReasons(dropped), reasonDailyLimit)
	}

	// A new calendar day resets the cap.
	admitted, _ = admit([]alert.Candidate{mkCandidate("a4")}, store, cfg, now.Add(24*time.Hour))
	if len(admitted) != 1 {
		t.Fatalf("cap not reset on next day")
	}
}

func TestAdmitZeroDailyLimitIsUnlimited(t *testing.T) {
	t.Parallel()
	store := newNotifStore(100)
	cfg := DefaultConfig([]string{"inspection_overdue"})
	cfg.DailyLimit = 0
	cfg.DedupWindowMinutes = 0
	now := time.Now()

	var cands []alert.Candidate
	for i := 0; i < 30; i++ {
		cands = append(cands, mkCandidate("a1"))
	}
	admitted, dropped := admit(cands, store, cfg, now)
	if len(admitted) != 30 || len(dropped) != 0 {
		t.Fatalf("admitted=%d dropped=%d, want 30/0", len(admitted), len(dropped))
	}
}
