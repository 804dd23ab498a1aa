package domain

import (
	"context"
	"time"

	logx "sitewatch/pkg/logx"
)

// Providers supplies the per-family fetch functions the engine calls at the
// start of every tick. Nil funcs yield an empty family. A failing provider
// is logged and its family left empty; it never aborts the tick.
//
// Fetching is the only blocking step of a tick; callers needing hard
// cancellation should enforce timeouts inside their provider funcs.
type Providers struct {
	Assets          func(ctx context.Context) ([]Asset, error)
	Measurements    func(ctx context.Context) ([]Measurement, error)
	Compactions     func(ctx context.Context) ([]CompactionTrial, error)
	Nonconformities func(ctx context.Context) ([]Nonconformity, error)
	Audits          func(ctx context.Context) ([]Audit, error)
	Risks           func(ctx context.Context) ([]Risk, error)
}

// Collect fetches all families and assembles a snapshot.
func (p Providers) Collect(ctx context.Context, log logx.Logger) Snapshot {
	snap := Snapshot{TakenAt: time.Now()}

	snap.Assets = fetch(ctx, log, "assets", p.Assets)
	snap.Measurements = fetch(ctx, log, "measurements", p.Measurements)
	snap.Compactions = fetch(ctx, log, "compactions", p.Compactions)
	snap.Nonconformities = fetch(ctx, log, "nonconformities", p.Nonconformities)
	snap.Audits = fetch(ctx, log, "audits", p.Audits)
	snap.Risks = fetch(ctx, log, "risks", p.Risks)

	return snap
}

func fetch[T any](ctx context.Context, log logx.Logger, family string, fn func(ctx context.Context) ([]T, error)) []T {
	if fn == nil {
		return nil
	}
	items, err := fn(ctx)
	if err != nil {
		log.Warn("provider fetch failed; family left empty",
			logx.String("family", family), logx.Err(err))
		return nil
	}
	return items
}
