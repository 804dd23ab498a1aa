// Package rules is the closed set of detection rules the alerting engine
// evaluates each tick.
//
// Every rule is a pure function over an immutable domain snapshot: no rule
// reads another rule's output, performs I/O, or mutates shared state. That
// keeps evaluation safe to fan out across goroutines.
package rules

import (
	"runtime/debug"
	"sync"

	"sitewatch/internal/alert"
	"sitewatch/internal/domain"
	logx "sitewatch/pkg/logx"
)

// Rule type identifiers. The set is fixed at compile time; new detections
// are added here, not configured at runtime.
const (
	TypeInspectionOverdue    = "inspection_overdue"
	TypeConditionDegraded    = "condition_degraded"
	TypeMeasurementExceeded  = "measurement_exceeded"
	TypeCompactionBelowSpec  = "compaction_below_spec"
	TypeNonconformityOverdue = "nonconformity_overdue"
	TypeAuditFollowupDue     = "audit_followup_due"
	TypeRiskUnmitigated      = "risk_unmitigated"
)

// Rule couples a rule type with its detection function.
type Rule struct {
	Type     string
	Category alert.Category
	Run      func(snap domain.Snapshot) []alert.Candidate
}

// Registry is an ordered, fixed collection of rules.
type Registry struct {
	rules []Rule
}

// NewRegistry builds a registry from the given rules. Rules run (and their
// candidates are reported) in registration order.
func NewRegistry(rules ...Rule) *Registry {
	return &Registry{rules: rules}
}

// Builtin returns the full construction-quality rule set.
func Builtin() *Registry {
	return NewRegistry(
		Rule{Type: TypeInspectionOverdue, Category: alert.CategoryInspection, Run: inspectionOverdue},
		Rule{Type: TypeConditionDegraded, Category: alert.CategoryStructural, Run: conditionDegraded},
		Rule{Type: TypeMeasurementExceeded, Category: alert.CategoryMonitoring, Run: measurementExceeded},
		Rule{Type: TypeCompactionBelowSpec, Category: alert.CategoryQuality, Run: compactionBelowSpec},
		Rule{Type: TypeNonconformityOverdue, Category: alert.CategoryQuality, Run: nonconformityOverdue},
		Rule{Type: TypeAuditFollowupDue, Category: alert.CategoryInspection, Run: auditFollowupDue},
		Rule{Type: TypeRiskUnmitigated, Category: alert.CategorySafety, Run: riskUnmitigated},
	)
}

// Types returns the rule types in registration order.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.rules))
	for _, rl := range r.rules {
		out = append(out, rl.Type)
	}
	return out
}

// EvaluateAll runs every enabled rule against the snapshot and returns the
// combined candidates in registration order.
//
// Disabled rules are skipped entirely (never invoked). A panicking rule is
// recovered, logged, and excluded without affecting its siblings.
func (r *Registry) EvaluateAll(snap domain.Snapshot, enabled func(ruleType string) bool, log logx.Logger) []alert.Candidate {
	results := make([][]alert.Candidate, len(r.rules))

	var wg sync.WaitGroup
	for i, rl := range r.rules {
		if enabled != nil && !enabled(rl.Type) {
			continue
		}
		wg.Add(1)
		go func(i int, rl Rule) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("rule evaluation panicked",
						logx.String("rule", rl.Type),
						logx.Any("panic", rec),
						logx.String("stack", string(debug.Stack())))
					results[i] = nil
				}
			}()
			results[i] = rl.Run(snap)
		}(i, rl)
	}
	wg.Wait()

	var out []alert.Candidate
	for _, batch := range results {
		out = append(out, batch...)
	}
	return out
}
