package alerting

import (
	"context"
	"testing"
	"time"

	"sitewatch/internal/domain"
	"sitewatch/internal/storage"
	logx "sitewatch/pkg/logx"
)

func TestEngineRestorePersistedState(t *testing.T) {
	t.Parallel()
	st, err := storage.Open(storage.Config{Driver: "file", Path: t.TempDir()}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	providers := fixedProviders([]domain.Asset{overdueAsset("a1", 5 * 24 * time.Hour)})

	e1 := New(Options{Namespace: "rail", Store: st, Providers: providers})
	if err := e1.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	e1.ForceEvaluate()

	limit := 7
	if _, err := e1.UpdateConfig(ConfigPatch{DailyLimit: &limit}); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	id := e1.Notifications()[0].ID
	if err := e1.MarkAsRead(id); err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}
	e1.Stop(context.Background())

	// A fresh engine over the same store picks everything back up.
	e2 := New(Options{Namespace: "rail", Store: st, Providers: providers})
	if err := e2.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer e2.Stop(context.Background())

	notifs := e2.Notifications()
	if len(notifs) != 1 || notifs[0].ID != id {
		t.Fatalf("restored notifications = %+v", notifs)
	}
	if !notifs[0].Read() {
		t.Fatalf("read state lost across restart")
	}
	if cfg := e2.Config(); cfg.DailyLimit != 7 {
		t.Fatalf("restored dailyLimit = %d, want 7", cfg.DailyLimit)
	}

	// The restored log still backs dedup: same finding is suppressed.
	e2.ForceEvaluate()
	if got := len(e2.Notifications()); got != 1 {
		t.Fatalf("dedup against restored log failed: %d notifications", got)
	}
}

func TestEngineIgnoresInvalidPersistedConfig(t *testing.T) {
	t.Parallel()
	st, err := storage.Open(storage.Config{Driver: "file", Path: t.TempDir()}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	// interval 0 never validates, so Start must fall back to defaults.
	bad := storage.ConfigRecord{
		SchemaVersion: storage.SchemaVersion,
		Payload:       []byte(`{"active":true,"evaluation_interval_minutes":0}`),
		UpdatedAt:     time.Now(),
	}
	if err := st.SaveConfig(context.Background(), "rail", bad); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	e := New(Options{Namespace: "rail", Store: st})
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop(context.Background())

	if cfg := e.Config(); cfg.EvaluationIntervalMinutes != 15 {
		t.Fatalf("interval = %d, want default 15", cfg.EvaluationIntervalMinutes)
	}
}

func TestEngineMemoryOnlyWithoutStore(t *testing.T) {
	t.Parallel()
	providers := fixedProviders([]domain.Asset{overdueAsset("a1", 5 * 24 * time.Hour)})

	e := New(Options{Namespace: "rail", Providers: providers})
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	e.ForceEvaluate()
	if len(e.Notifications()) != 1 {
		t.Fatalf("memory-only engine did not evaluate")
	}
	e.Stop(context.Background())

	e2 := New(Options{Namespace: "rail", Providers: providers})
	if err := e2.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer e2.Stop(context.Background())
	if len(e2.Notifications()) != 0 {
		t.Fatalf("memory-only engine restored state from nowhere")
	}
}
