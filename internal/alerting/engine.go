// Package alerting implements the condition-based alerting engine: a
// background process that periodically re-evaluates construction-quality
// records against a fixed rule set and turns matches into deduplicated,
// rate-capped, priority-classified notifications.
//
// One Engine serves one domain namespace (trackwork, structures, ...);
// multiple domains run as independent instances, each with its own
// persisted config and notification log.
package alerting

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"sitewatch/internal/alert"
	"sitewatch/internal/alerting/rules"
	"sitewatch/internal/domain"
	"sitewatch/internal/eventbus"
	"sitewatch/internal/storage"
	logx "sitewatch/pkg/logx"
)

var ErrNotFound = errors.New("notification not found")

// Dispatcher hands an admitted notification to delivery channels.
// Delivery is best-effort and never affects admission.
type Dispatcher interface {
	Dispatch(ctx context.Context, n alert.Notification, channels map[string]bool)
}

// Options wires one engine instance. Namespace is required; everything
// else has a usable zero value (memory-only, builtin rules, no delivery).
type Options struct {
	Namespace  string
	Capacity   int
	Log        logx.Logger
	Bus        eventbus.Bus
	Store      storage.Store
	Registry   *rules.Registry
	Providers  domain.Providers
	Dispatcher Dispatcher
	Defaults   *EngineConfig // initial config when nothing is persisted
}

// Engine is the public operational surface consumed by the view layer.
//
// All config and notification mutation is serialized behind one mutex;
// rule evaluation runs outside it over an immutable snapshot.
type Engine struct {
	ns         string
	log        logx.Logger
	bus        eventbus.Bus
	persist    storage.Store
	registry   *rules.Registry
	providers  domain.Providers
	dispatcher Dispatcher
	defaults   EngineConfig

	mu    sync.Mutex
	cfg   EngineConfig
	store *notifStore

	sched    *scheduler
	evalBusy atomic.Bool

	runMu     sync.Mutex
	runCtx    context.Context
	runCancel context.CancelFunc
}

func New(opts Options) *Engine {
	log := opts.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	reg := opts.Registry
	if reg == nil {
		reg = rules.Builtin()
	}
	defaults := DefaultConfig(reg.Types())
	if opts.Defaults != nil {
		defaults = opts.Defaults.Clone()
	}
	e := &Engine{
		ns:         opts.Namespace,
		log:        log.With(logx.String("engine", opts.Namespace)),
		bus:        opts.Bus,
		persist:    opts.Store,
		registry:   reg,
		providers:  opts.Providers,
		dispatcher: opts.Dispatcher,
		defaults:   defaults,
		cfg:        defaults.Clone(),
		store:      newNotifStore(opts.Capacity),
	}
	e.sched = newScheduler(e.log, e.timerTick)
	return e
}

// Start restores persisted state and arms the periodic timer when the
// engine is active. Ticks run until Stop.
func (e *Engine) Start(ctx context.Context) error {
	e.runMu.Lock()
	if e.runCtx != nil {
		e.runMu.Unlock()
		return nil // already running
	}
	e.runCtx, e.runCancel = context.WithCancel(context.WithoutCancel(ctx))
	e.runMu.Unlock()

	cfg := e.loadConfig(ctx, e.defaults)
	restored := e.loadNotifications(ctx)

	e.mu.Lock()
	e.cfg = cfg
	e.store.restore(restored)
	count := e.store.len()
	e.mu.Unlock()

	e.sched.apply(cfg.Active, cfg.Interval())
	e.log.Info("engine started",
		logx.Bool("active", cfg.Active),
		logx.Duration("interval", cfg.Interval()),
		logx.Int("restored", count))
	return nil
}

// Stop cancels future ticks. An in-flight tick finishes rather than being
// aborted, so the notification log never ends up half-written.
func (e *Engine) Stop(ctx context.Context) {
	e.sched.stop(ctx)

	e.runMu.Lock()
	cancel := e.runCancel
	e.runCtx = nil
	e.runCancel = nil
	e.runMu.Unlock()
	if cancel != nil {
		cancel()
	}
	e.log.Info("engine stopped")
}

// ForceEvaluate runs one out-of-band evaluation tick. It shares the
// single evaluation slot with the periodic timer: when a tick is already
// running the request is coalesced, not queued. Internal faults are
// contained and logged, never returned.
func (e *Engine) ForceEvaluate() {
	e.runTick(e.tickContext())
}

func (e *Engine) timerTick() {
	e.runTick(e.tickContext())
}

func (e *Engine) tickContext() context.Context {
	e.runMu.Lock()
	ctx := e.runCtx
	e.runMu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

func (e *Engine) runTick(ctx context.Context) {
	if !e.evalBusy.CompareAndSwap(false, true) {
		e.log.Debug("evaluation already running; tick coalesced")
		return
	}
	defer e.evalBusy.Store(false)

	start := time.Now()

	e.mu.Lock()
	cfg := e.cfg.Clone()
	e.mu.Unlock()

	if !cfg.Active {
		e.log.Debug("engine inactive; skipping evaluation")
		return
	}

	// Snapshot fetch is the only blocking step of a tick.
	snap := e.providers.Collect(ctx, e.log)

	candidates := e.registry.EvaluateAll(snap, func(rt string) bool {
		return cfg.RuleTypes[rt]
	}, e.log)

	now := time.Now()
	e.mu.Lock()
	admitted, dropped := admit(candidates, e.store, e.cfg, now)
	if len(admitted) > 0 {
		e.saveNotificationsLocked(ctx)
	}
	channels := cloneMap(e.cfg.Channels)
	e.mu.Unlock()

	for _, sup := range dropped {
		e.publish(eventbus.TypeAlertSuppressed, map[string]any{
			"rule_type": sup.Candidate.RuleType,
			"entity_id": sup.Candidate.TargetEntityID,
			"reason":    sup.Reason,
		})
	}
	for _, n := range admitted {
		e.publish(eventbus.TypeAlertAdmitted, n)
		if e.dispatcher != nil {
			e.dispatcher.Dispatch(ctx, n, channels)
		}
	}

	e.log.Debug("tick completed",
		logx.Int("candidates", len(candidates)),
		logx.Int("admitted", len(admitted)),
		logx.Int("suppressed", len(dropped)),
		logx.Duration("took", time.Since(start)))
	e.publish(eventbus.TypeTickCompleted, map[string]any{
		"namespace":  e.ns,
		"candidates": len(candidates),
		"admitted":   len(admitted),
		"suppressed": len(dropped),
	})
}

func (e *Engine) publish(typ string, data any) {
	if e.bus != nil {
		e.bus.Publish(eventbus.Event{Type: typ, Time: time.Now(), Data: data})
	}
}

// ---- Operational surface ----

// Notifications returns the full log, newest-first.
func (e *Engine) Notifications() []alert.Notification {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.list()
}

// UnreadNotifications returns unacknowledged notifications, newest-first.
func (e *Engine) UnreadNotifications() []alert.Notification {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.listUnread()
}

// MarkAsRead acknowledges one notification. Idempotent: re-reading an
// already-read notification leaves ReadAt at its first-set value.
func (e *Engine) MarkAsRead(id string) error {
	e.mu.Lock()
	found, changed := e.store.markRead(id, time.Now())
	if changed {
		e.saveNotificationsLocked(e.tickContext())
	}
	e.mu.Unlock()
	if !found {
		return ErrNotFound
	}
	return nil
}

// MarkAllAsRead acknowledges every unread notification.
func (e *Engine) MarkAllAsRead() {
	e.mu.Lock()
	if e.store.markAllRead(time.Now()) > 0 {
		e.saveNotificationsLocked(e.tickContext())
	}
	e.mu.Unlock()
}

// RemoveNotification deletes one notification from the log.
func (e *Engine) RemoveNotification(id string) error {
	e.mu.Lock()
	removed := e.store.remove(id)
	if removed {
		e.saveNotificationsLocked(e.tickContext())
	}
	e.mu.Unlock()
	if !removed {
		return ErrNotFound
	}
	return nil
}

// ClearAll empties the notification log.
func (e *Engine) ClearAll() {
	e.mu.Lock()
	e.store.clear()
	e.saveNotificationsLocked(e.tickContext())
	e.mu.Unlock()
}

// Config returns the effective engine configuration.
func (e *Engine) Config() EngineConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.Clone()
}

// UpdateConfig merges the patch into the current config, validates,
// persists, and re-arms the scheduler when the interval or active flag
// changed. Invalid patches are rejected and the prior config stays.
func (e *Engine) UpdateConfig(patch ConfigPatch) (EngineConfig, error) {
	e.mu.Lock()
	merged := patch.apply(e.cfg)
	if err := merged.Validate(); err != nil {
		e.mu.Unlock()
		return EngineConfig{}, err
	}
	e.cfg = merged
	e.saveConfigLocked(e.tickContext())
	e.mu.Unlock()

	// Only re-arm the timer while the engine is running; a stopped engine
	// picks the new interval up on its next Start.
	e.runMu.Lock()
	running := e.runCtx != nil
	e.runMu.Unlock()
	if running {
		e.sched.apply(merged.Active, merged.Interval())
	}
	e.log.Info("config updated",
		logx.Bool("active", merged.Active),
		logx.Duration("interval", merged.Interval()),
		logx.Int("daily_limit", merged.DailyLimit))
	return merged.Clone(), nil
}

// Stats derives the store summary (counts by priority and rule type,
// today, rolling week, total, unread).
func (e *Engine) Stats() alert.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.stats(time.Now())
}
