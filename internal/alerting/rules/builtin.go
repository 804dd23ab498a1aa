package rules

import (
	"fmt"
	"time"

	"sitewatch/internal/alert"
	"sitewatch/internal/domain"
)

// Threshold knobs for priority escalation. Simple fixed comparisons only;
// anything statistical belongs upstream in the data service.
const (
	overdueCriticalAfter  = 30 * 24 * time.Hour
	followupHighAfter     = 14 * 24 * time.Hour
	exceedCriticalRatio   = 1.20 // >120% of limit
	compactionCriticalPct = 0.90 // <90% of required ratio
	riskHighScore         = 12
	riskCriticalScore     = 20
)

func inspectionOverdue(snap domain.Snapshot) []alert.Candidate {
	var out []alert.Candidate
	for _, a := range snap.Assets {
		if a.NextInspection.IsZero() || !a.NextInspection.Before(snap.TakenAt) {
			continue
		}
		overdue := snap.TakenAt.Sub(a.NextInspection)
		prio := alert.PriorityHigh
		if overdue > overdueCriticalAfter {
			prio = alert.PriorityCritical
		}
		days := int(overdue.Hours() / 24)
		out = append(out, alert.Candidate{
			RuleType:         TypeInspectionOverdue,
			Title:            fmt.Sprintf("Inspection overdue: %s", a.Name),
			Message:          fmt.Sprintf("%s %q is %d day(s) past its scheduled inspection", a.Kind, a.Name, days),
			Priority:         prio,
			Category:         alert.CategoryInspection,
			TargetEntityID:   a.ID,
			TargetEntityKind: a.Kind,
			ActionRequired:   true,
			ActionRef:        "/assets/" + a.ID + "/inspections",
			Extra: map[string]any{
				"overdue_days":    days,
				"next_inspection": a.NextInspection,
			},
		})
	}
	return out
}

func conditionDegraded(snap domain.Snapshot) []alert.Candidate {
	var out []alert.Candidate
	for _, a := range snap.Assets {
		var prio alert.Priority
		switch a.Condition {
		case domain.ConditionPoor:
			prio = alert.PriorityHigh
		case domain.ConditionCritical:
			prio = alert.PriorityCritical
		default:
			continue
		}
		out = append(out, alert.Candidate{
			RuleType:         TypeConditionDegraded,
			Title:            fmt.Sprintf("Condition %s: %s", a.Condition, a.Name),
			Message:          fmt.Sprintf("%s %q is classified %s and needs assessment", a.Kind, a.Name, a.Condition),
			Priority:         prio,
			Category:         alert.CategoryStructural,
			TargetEntityID:   a.ID,
			TargetEntityKind: a.Kind,
			ActionRequired:   prio == alert.PriorityCritical,
			ActionRef:        "/assets/" + a.ID,
			Extra:            map[string]any{"condition": string(a.Condition)},
		})
	}
	return out
}

func measurementExceeded(snap domain.Snapshot) []alert.Candidate {
	var out []alert.Candidate
	for _, m := range snap.Measurements {
		if m.Limit <= 0 || m.Value <= m.Limit {
			continue
		}
		ratio := m.Value / m.Limit
		prio := alert.PriorityHigh
		if ratio > exceedCriticalRatio {
			prio = alert.PriorityCritical
		}
		out = append(out, alert.Candidate{
			RuleType:         TypeMeasurementExceeded,
			Title:            fmt.Sprintf("%s over limit", m.Kind),
			Message:          fmt.Sprintf("%s reading %.2f%s exceeds limit %.2f%s (%.0f%%)", m.Kind, m.Value, m.Unit, m.Limit, m.Unit, ratio*100),
			Priority:         prio,
			Category:         alert.CategoryMonitoring,
			TargetEntityID:   m.AssetID,
			TargetEntityKind: "asset",
			ActionRequired:   prio == alert.PriorityCritical,
			ActionRef:        "/measurements/" + m.ID,
			Extra: map[string]any{
				"measurement_id": m.ID,
				"value":          m.Value,
				"limit":          m.Limit,
				"ratio":          ratio,
			},
		})
	}
	return out
}

func compactionBelowSpec(snap domain.Snapshot) []alert.Candidate {
	var out []alert.Candidate
	for _, c := range snap.Compactions {
		if c.RequiredRatio <= 0 || c.RatioPercent >= c.RequiredRatio {
			continue
		}
		prio := alert.PriorityHigh
		if c.RatioPercent < c.RequiredRatio*compactionCriticalPct {
			prio = alert.PriorityCritical
		}
		out = append(out, alert.Candidate{
			RuleType:         TypeCompactionBelowSpec,
			Title:            fmt.Sprintf("Compaction below spec at %s", c.Location),
			Message:          fmt.Sprintf("Compaction trial %s achieved %.1f%% against required %.1f%%", c.ID, c.RatioPercent, c.RequiredRatio),
			Priority:         prio,
			Category:         alert.CategoryQuality,
			TargetEntityID:   c.AssetID,
			TargetEntityKind: "asset",
			ActionRequired:   true,
			ActionRef:        "/compactions/" + c.ID,
			Extra: map[string]any{
				"trial_id": c.ID,
				"achieved": c.RatioPercent,
				"required": c.RequiredRatio,
			},
		})
	}
	return out
}

func nonconformityOverdue(snap domain.Snapshot) []alert.Candidate {
	var out []alert.Candidate
	for _, nc := range snap.Nonconformities {
		if !nc.Open || nc.DueDate.IsZero() || !nc.DueDate.Before(snap.TakenAt) {
			continue
		}
		prio := alert.PriorityHigh
		if nc.Severity == "critical" {
			prio = alert.PriorityCritical
		}
		out = append(out, alert.Candidate{
			RuleType:         TypeNonconformityOverdue,
			Title:            "Nonconformity past due: " + nc.Title,
			Message:          fmt.Sprintf("Nonconformity %q (%s) passed its resolution deadline", nc.Title, nc.Severity),
			Priority:         prio,
			Category:         alert.CategoryQuality,
			TargetEntityID:   nc.ID,
			TargetEntityKind: "nonconformity",
			ActionRequired:   true,
			ActionRef:        "/nonconformities/" + nc.ID,
			Extra:            map[string]any{"severity": nc.Severity, "due_date": nc.DueDate},
		})
	}
	return out
}

func auditFollowupDue(snap domain.Snapshot) []alert.Candidate {
	var out []alert.Candidate
	for _, a := range snap.Audits {
		if a.OpenFindings <= 0 || a.FollowUpDue.IsZero() || !a.FollowUpDue.Before(snap.TakenAt) {
			continue
		}
		prio := alert.PriorityMedium
		if snap.TakenAt.Sub(a.FollowUpDue) > followupHighAfter {
			prio = alert.PriorityHigh
		}
		out = append(out, alert.Candidate{
			RuleType:         TypeAuditFollowupDue,
			Title:            "Audit follow-up due: " + a.Title,
			Message:          fmt.Sprintf("Audit %q has %d open finding(s) past the follow-up date", a.Title, a.OpenFindings),
			Priority:         prio,
			Category:         alert.CategoryInspection,
			TargetEntityID:   a.ID,
			TargetEntityKind: "audit",
			ActionRequired:   false,
			ActionRef:        "/audits/" + a.ID,
			Extra:            map[string]any{"open_findings": a.OpenFindings},
		})
	}
	return out
}

func riskUnmitigated(snap domain.Snapshot) []alert.Candidate {
	var out []alert.Candidate
	for _, r := range snap.Risks {
		if !r.Open || r.Mitigated || r.Score < riskHighScore {
			continue
		}
		prio := alert.PriorityHigh
		if r.Score >= riskCriticalScore {
			prio = alert.PriorityCritical
		}
		out = append(out, alert.Candidate{
			RuleType:         TypeRiskUnmitigated,
			Title:            "Unmitigated risk: " + r.Title,
			Message:          fmt.Sprintf("Risk %q scores %d with no mitigation in place", r.Title, r.Score),
			Priority:         prio,
			Category:         alert.CategorySafety,
			TargetEntityID:   r.ID,
			TargetEntityKind: "risk",
			ActionRequired:   true,
			ActionRef:        "/risks/" + r.ID,
			Extra:            map[string]any{"score": r.Score},
		})
	}
	return out
}
