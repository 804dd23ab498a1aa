package domain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "sitewatch/pkg/logx"
)

const fixtureYAML = `
assets:
  - id: t1
    name: Track km 12
    kind: track
    condition: poor
    next_inspection: 2026-08-01T00:00:00Z
measurements:
  - id: m1
    asset_id: t1
    kind: settlement
    value: 12.5
    limit: 10.0
    unit: mm
risks:
  - id: r1
    asset_id: t1
    title: Embankment settlement
    score: 16
    open: true
`

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestFileProvidersLoad(t *testing.T) {
	t.Parallel()
	p := FileProviders(writeFixture(t, fixtureYAML), time.Minute)

	snap := p.Collect(context.Background(), logx.Nop())
	if snap.TakenAt.IsZero() {
		t.Fatalf("snapshot has no timestamp")
	}
	if len(snap.Assets) != 1 || snap.Assets[0].Condition != ConditionPoor {
		t.Fatalf("assets = %+v", snap.Assets)
	}
	if len(snap.Measurements) != 1 || snap.Measurements[0].Value != 12.5 {
		t.Fatalf("measurements = %+v", snap.Measurements)
	}
	if len(snap.Risks) != 1 || snap.Risks[0].Score != 16 {
		t.Fatalf("risks = %+v", snap.Risks)
	}
	if len(snap.Compactions) != 0 || len(snap.Audits) != 0 {
		t.Fatalf("absent families must be empty")
	}
}

func TestFileProvidersTTLCache(t *testing.T) {
	t.Parallel()
	path := writeFixture(t, fixtureYAML)
	p := FileProviders(path, time.Hour)

	if _, err := p.Assets(context.Background()); err != nil {
		t.Fatalf("first load: %v", err)
	}

	// Within the ttl the cached copy survives even file deletion.
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	assets, err := p.Assets(context.Background())
	if err != nil || len(assets) != 1 {
		t.Fatalf("cached load = %v, %v", assets, err)
	}
}

func TestFileProvidersMissingFile(t *testing.T) {
	t.Parallel()
	p := FileProviders(filepath.Join(t.TempDir(), "nope.yaml"), time.Minute)
	if _, err := p.Assets(context.Background()); err == nil {
		t.Fatalf("missing fixture did not error")
	}

	// Collect degrades to an empty snapshot instead of failing.
	snap := p.Collect(context.Background(), logx.Nop())
	if len(snap.Assets) != 0 {
		t.Fatalf("snapshot not empty: %+v", snap.Assets)
	}
}

func TestFileProvidersCancelledContext(t *testing.T) {
	t.Parallel()
	p := FileProviders(writeFixture(t, fixtureYAML), time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Assets(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestCollectToleratesFailingProvider(t *testing.T) {
	t.Parallel()
	p := Providers{
		Assets: func(ctx context.Context) ([]Asset, error) {
			return nil, errors.New("backend down")
		},
		Risks: func(ctx context.Context) ([]Risk, error) {
			return []Risk{{ID: "r1", Score: 20, Open: true}}, nil
		},
	}

	snap := p.Collect(context.Background(), logx.Nop())
	if len(snap.Assets) != 0 {
		t.Fatalf("failed family not empty")
	}
	if len(snap.Risks) != 1 {
		t.Fatalf("healthy family lost: %+v", snap.Risks)
	}
}
