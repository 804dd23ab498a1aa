package alerting

import (
	"context"
	"encoding/json"
	"time"

	"sitewatch/internal/alert"
	"sitewatch/internal/storage"
	logx "sitewatch/pkg/logx"
)

// Persistence is best-effort: reads fall back to defaults/empty, writes
// are logged on failure and in-memory state stays authoritative.

func (e *Engine) loadConfig(ctx context.Context, defaults EngineConfig) EngineConfig {
	if e.persist == nil {
		return defaults
	}
	rec, ok, err := e.persist.LoadConfig(ctx, e.ns)
	if err != nil {
		e.log.Warn("loading persisted config failed; using defaults", logx.Err(err))
		return defaults
	}
	if !ok {
		return defaults
	}
	var cfg EngineConfig
	if err := json.Unmarshal(rec.Payload, &cfg); err != nil {
		e.log.Warn("persisted config unreadable; using defaults", logx.Err(err))
		return defaults
	}
	if err := cfg.Validate(); err != nil {
		e.log.Warn("persisted config invalid; using defaults", logx.Err(err))
		return defaults
	}
	return cfg
}

func (e *Engine) saveConfigLocked(ctx context.Context) {
	if e.persist == nil {
		return
	}
	payload, err := json.Marshal(e.cfg)
	if err != nil {
		e.log.Error("marshaling config failed", logx.Err(err))
		return
	}
	rec := storage.ConfigRecord{
		SchemaVersion: storage.SchemaVersion,
		Payload:       payload,
		UpdatedAt:     time.Now(),
	}
	if err := e.persist.SaveConfig(ctx, e.ns, rec); err != nil {
		e.log.Warn("persisting config failed; in-memory config stays authoritative", logx.Err(err))
	}
}

func (e *Engine) loadNotifications(ctx context.Context) []alert.Notification {
	if e.persist == nil {
		return nil
	}
	recs, err := e.persist.LoadNotifications(ctx, e.ns)
	if err != nil {
		e.log.Warn("loading persisted notifications failed; starting empty", logx.Err(err))
		return nil
	}
	out := make([]alert.Notification, 0, len(recs))
	skipped := 0
	for _, rec := range recs {
		var n alert.Notification
		if err := json.Unmarshal(rec.Payload, &n); err != nil || n.ID == "" {
			skipped++
			continue
		}
		out = append(out, n)
	}
	if skipped > 0 {
		e.log.Warn("discarded corrupt notification entries", logx.Int("skipped", skipped))
	}
	return out
}

func (e *Engine) saveNotificationsLocked(ctx context.Context) {
	if e.persist == nil {
		return
	}
	items := e.store.snapshot()
	recs := make([]storage.NotificationRecord, 0, len(items))
	for _, n := range items {
		payload, err := json.Marshal(n)
		if err != nil {
			e.log.Error("marshaling notification failed", logx.String("id", n.ID), logx.Err(err))
			continue
		}
		recs = append(recs, storage.NotificationRecord{
			SchemaVersion: storage.SchemaVersion,
			Payload:       payload,
		})
	}
	if err := e.persist.SaveNotifications(ctx, e.ns, recs); err != nil {
		e.log.Warn("persisting notifications failed; in-memory log stays authoritative", logx.Err(err))
	}
}
