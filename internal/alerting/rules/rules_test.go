package rules

import (
	"testing"
	"time"

	"sitewatch/internal/alert"
	"sitewatch/internal/domain"
	logx "sitewatch/pkg/logx"
)

var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func byType(cands []alert.Candidate) map[string][]alert.Candidate {
	out := map[string][]alert.Candidate{}
	for _, c := range cands {
		out[c.RuleType] = append(out[c.RuleType], c)
	}
	return out
}

func TestInspectionOverdue(t *testing.T) {
	t.Parallel()
	snap := domain.Snapshot{
		TakenAt: testNow,
		Assets: []domain.Asset{
			{ID: "t1", Name: "Track km 12", Kind: "track", NextInspection: testNow.Add(-5 * 24 * time.Hour)},
			{ID: "t2", Name: "Bridge B2", Kind: "bridge", NextInspection: testNow.Add(-40 * 24 * time.Hour)},
			{ID: "t3", Name: "Tunnel T3", Kind: "tunnel", NextInspection: testNow.Add(24 * time.Hour)},
			{ID: "t4", Name: "No schedule", Kind: "track"},
		},
	}

	got := inspectionOverdue(snap)
	if len(got) != 2 {
		t.Fatalf("candidates = %d, want 2", len(got))
	}
	if got[0].TargetEntityID != "t1" || got[0].Priority != alert.PriorityHigh {
		t.Fatalf("t1: %+v", got[0])
	}
	if got[1].TargetEntityID != "t2" || got[1].Priority != alert.PriorityCritical {
		t.Fatalf("t2 past 30 days must be critical: %+v", got[1])
	}
	if !got[0].ActionRequired || got[0].Category != alert.CategoryInspection {
		t.Fatalf("t1 metadata: %+v", got[0])
	}
}

func TestConditionDegraded(t *testing.T) {
	t.Parallel()
	snap := domain.Snapshot{
		TakenAt: testNow,
		Assets: []domain.Asset{
			{ID: "a1", Name: "OK", Condition: domain.ConditionGood},
			{ID: "a2", Name: "Worn", Condition: domain.ConditionPoor},
			{ID: "a3", Name: "Failing", Condition: domain.ConditionCritical},
		},
	}

	got := conditionDegraded(snap)
	if len(got) != 2 {
		t.Fatalf("candidates = %d, want 2", len(got))
	}
	if got[0].Priority != alert.PriorityHigh || got[0].ActionRequired {
		t.Fatalf("poor: %+v", got[0])
	}
	if got[1].Priority != alert.PriorityCritical || !got[1].ActionRequired {
		t.Fatalf("critical: %+v", got[1])
	}
}

func TestMeasurementExceeded(t *testing.T) {
	t.Parallel()
	snap := domain.Snapshot{
		TakenAt: testNow,
		Measurements: []domain.Measurement{
			{ID: "m1", AssetID: "a1", Kind: "settlement", Value: 9.0, Limit: 10.0, Unit: "mm"},
			{ID: "m2", AssetID: "a1", Kind: "settlement", Value: 11.0, Limit: 10.0, Unit: "mm"},
			{ID: "m3", AssetID: "a2", Kind: "deflection", Value: 13.0, Limit: 10.0, Unit: "mm"},
			{ID: "m4", AssetID: "a3", Kind: "gauge", Value: 5.0, Limit: 0, Unit: "mm"},
		},
	}

	got := measurementExceeded(snap)
	if len(got) != 2 {
		t.Fatalf("candidates = %d, want 2", len(got))
	}
	if got[0].Extra["measurement_id"] != "m2" || got[0].Priority != alert.PriorityHigh {
		t.Fatalf("m2: %+v", got[0])
	}
	if got[1].Extra["measurement_id"] != "m3" || got[1].Priority != alert.PriorityCritical {
		t.Fatalf("m3 at 130%% must be critical: %+v", got[1])
	}
}

func TestCompactionBelowSpec(t *testing.T) {
	t.Parallel()
	snap := domain.Snapshot{
		TakenAt: testNow,
		Compactions: []domain.CompactionTrial{
			{ID: "c1", AssetID: "a1", Location: "km 3+200", RatioPercent: 96.0, RequiredRatio: 95.0},
			{ID: "c2", AssetID: "a1", Location: "km 3+400", RatioPercent: 93.0, RequiredRatio: 95.0},
			{ID: "c3", AssetID: "a2", Location: "km 4+000", RatioPercent: 80.0, RequiredRatio: 95.0},
			{ID: "c4", AssetID: "a3", Location: "km 5+000", RatioPercent: 50.0, RequiredRatio: 0},
		},
	}

	got := compactionBelowSpec(snap)
	if len(got) != 2 {
		t.Fatalf("candidates = %d, want 2", len(got))
	}
	if got[0].Extra["trial_id"] != "c2" || got[0].Priority != alert.PriorityHigh {
		t.Fatalf("c2: %+v", got[0])
	}
	if got[1].Extra["trial_id"] != "c3" || got[1].Priority != alert.PriorityCritical {
		t.Fatalf("c3 below 90%% of spec must be critical: %+v", got[1])
	}
}

func TestNonconformityOverdue(t *testing.T) {
	t.Parallel()
	snap := domain.Snapshot{
		TakenAt: testNow,
		Nonconformities: []domain.Nonconformity{
			{ID: "n1", Title: "Weld defect", Severity: "major", Open: true, DueDate: testNow.Add(-48 * time.Hour)},
			{ID: "n2", Title: "Doc gap", Severity: "minor", Open: true, DueDate: testNow.Add(48 * time.Hour)},
			{ID: "n3", Title: "Closed", Severity: "critical", Open: false, DueDate: testNow.Add(-48 * time.Hour)},
			{ID: "n4", Title: "Crack", Severity: "critical", Open: true, DueDate: testNow.Add(-time.Hour)},
		},
	}

	got := nonconformityOverdue(snap)
	if len(got) != 2 {
		t.Fatalf("candidates = %d, want 2", len(got))
	}
	if got[0].TargetEntityID != "n1" || got[0].Priority != alert.PriorityHigh {
		t.Fatalf("n1: %+v", got[0])
	}
	if got[1].TargetEntityID != "n4" || got[1].Priority != alert.PriorityCritical {
		t.Fatalf("critical severity must escalate: %+v", got[1])
	}
}

func TestAuditFollowupDue(t *testing.T) {
	t.Parallel()
	snap := domain.Snapshot{
		TakenAt: testNow,
		Audits: []domain.Audit{
			{ID: "q1", Title: "Q2 audit", OpenFindings: 3, FollowUpDue: testNow.Add(-24 * time.Hour)},
			{ID: "q2", Title: "Q1 audit", OpenFindings: 1, FollowUpDue: testNow.Add(-20 * 24 * time.Hour)},
			{ID: "q3", Title: "Clean", OpenFindings: 0, FollowUpDue: testNow.Add(-24 * time.Hour)},
		},
	}

	got := auditFollowupDue(snap)
	if len(got) != 2 {
		t.Fatalf("candidates = %d, want 2", len(got))
	}
	if got[0].Priority != alert.PriorityMedium {
		t.Fatalf("fresh follow-up must be medium: %+v", got[0])
	}
	if got[1].Priority != alert.PriorityHigh {
		t.Fatalf("follow-up 20 days late must be high: %+v", got[1])
	}
}

func TestRiskUnmitigated(t *testing.T) {
	t.Parallel()
	snap := domain.Snapshot{
		TakenAt: testNow,
		Risks: []domain.Risk{
			{ID: "r1", Title: "Low", Score: 6, Open: true},
			{ID: "r2", Title: "Settlement risk", Score: 15, Open: true},
			{ID: "r3", Title: "Flooding", Score: 20, Open: true},
			{ID: "r4", Title: "Handled", Score: 25, Open: true, Mitigated: true},
			{ID: "r5", Title: "Closed", Score: 25, Open: false},
		},
	}

	got := riskUnmitigated(snap)
	if len(got) != 2 {
		t.Fatalf("candidates = %d, want 2", len(got))
	}
	if got[0].TargetEntityID != "r2" || got[0].Priority != alert.PriorityHigh {
		t.Fatalf("r2: %+v", got[0])
	}
	if got[1].TargetEntityID != "r3" || got[1].Priority != alert.PriorityCritical {
		t.Fatalf("r3 at score 20 must be critical: %+v", got[1])
	}
}

func TestEvaluateAllSkipsDisabled(t *testing.T) {
	t.Parallel()
	invoked := false
	reg := NewRegistry(
		Rule{Type: "off", Run: func(domain.Snapshot) []alert.Candidate {
			invoked = true
			return []alert.Candidate{{RuleType: "off"}}
		}},
		Rule{Type: "on", Run: func(domain.Snapshot) []alert.Candidate {
			return []alert.Candidate{{RuleType: "on"}}
		}},
	)

	got := reg.EvaluateAll(domain.Snapshot{TakenAt: testNow},
		func(rt string) bool { return rt == "on" }, logx.Nop())

	if invoked {
		t.Fatalf("disabled rule was invoked")
	}
	if len(got) != 1 || got[0].RuleType != "on" {
		t.Fatalf("candidates = %+v", got)
	}
}

func TestEvaluateAllIsolatesPanics(t *testing.T) {
	t.Parallel()
	reg := NewRegistry(
		Rule{Type: "boom", Run: func(domain.Snapshot) []alert.Candidate {
			panic("rule bug")
		}},
		Rule{Type: "steady", Run: func(domain.Snapshot) []alert.Candidate {
			return []alert.Candidate{{RuleType: "steady"}}
		}},
	)

	got := reg.EvaluateAll(domain.Snapshot{TakenAt: testNow}, nil, logx.Nop())
	if len(got) != 1 || got[0].RuleType != "steady" {
		t.Fatalf("panicking rule leaked into results: %+v", got)
	}
}

func TestEvaluateAllKeepsRegistrationOrder(t *testing.T) {
	t.Parallel()
	mk := func(rt string) Rule {
		return Rule{Type: rt, Run: func(domain.Snapshot) []alert.Candidate {
			return []alert.Candidate{{RuleType: rt}}
		}}
	}
	reg := NewRegistry(mk("first"), mk("second"), mk("third"))

	for i := 0; i < 20; i++ {
		got := reg.EvaluateAll(domain.Snapshot{TakenAt: testNow}, nil, logx.Nop())
		if len(got) != 3 || got[0].RuleType != "first" || got[1].RuleType != "second" || got[2].RuleType != "third" {
			t.Fatalf("order broke: %+v", got)
		}
	}
}

func TestBuiltinTypes(t *testing.T) {
	t.Parallel()
	types := Builtin().Types()
	want := []string{
		TypeInspectionOverdue, TypeConditionDegraded, TypeMeasurementExceeded,
		TypeCompactionBelowSpec, TypeNonconformityOverdue, TypeAuditFollowupDue,
		TypeRiskUnmitigated,
	}
	if len(types) != len(want) {
		t.Fatalf("types = %v", types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("types[%d] = %s, want %s", i, types[i], want[i])
		}
	}
}
