// Package channel implements notification delivery: a dispatcher fanning
// admitted notifications out to the enabled channels, plus the channel
// implementations themselves (in-process surface, telegram, email stub).
//
// Delivery is best-effort, at-most-once per channel per notification. A
// failing channel never blocks its siblings and never rolls back the
// already-persisted notification.
package channel

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"sitewatch/internal/alert"
	"sitewatch/internal/eventbus"
	logx "sitewatch/pkg/logx"
)

const sendTimeout = 10 * time.Second

// Channel delivers one notification to one external surface.
type Channel interface {
	Name() string
	Send(ctx context.Context, n alert.Notification) error
}

// Dispatcher fans admitted notifications out to registered channels,
// gated by the engine's per-channel enable map and a per-channel token
// bucket so a noisy tick cannot flood an external surface.
type Dispatcher struct {
	log        logx.Logger
	bus        eventbus.Bus
	ratePerSec int

	mu       sync.Mutex
	channels map[string]Channel
	limiters map[string]*rate.Limiter
}

func NewDispatcher(log logx.Logger, bus eventbus.Bus, ratePerSec int) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	if ratePerSec <= 0 {
		ratePerSec = 3
	}
	return &Dispatcher{
		log:        log,
		bus:        bus,
		ratePerSec: ratePerSec,
		channels:   map[string]Channel{},
		limiters:   map[string]*rate.Limiter{},
	}
}

// Register adds a channel. Registering the same name again replaces the
// previous implementation but keeps its rate limiter.
func (d *Dispatcher) Register(c Channel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels[c.Name()] = c
	if _, ok := d.limiters[c.Name()]; !ok {
		// Token bucket: burst = rate per sec, so short spikes don't block too hard.
		d.limiters[c.Name()] = rate.NewLimiter(rate.Limit(d.ratePerSec), d.ratePerSec)
	}
}

// Names returns the registered channel names.
func (d *Dispatcher) Names() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.channels))
	for name := range d.channels {
		out = append(out, name)
	}
	return out
}

// Dispatch delivers n to every registered channel enabled in the map.
// Failures are isolated per channel: logged, reported on the bus, and
// otherwise swallowed.
func (d *Dispatcher) Dispatch(ctx context.Context, n alert.Notification, enabled map[string]bool) {
	d.mu.Lock()
	targets := make([]Channel, 0, len(d.channels))
	limiters := make([]*rate.Limiter, 0, len(d.channels))
	for name, c := range d.channels {
		if !enabled[name] {
			continue
		}
		targets = append(targets, c)
		limiters = append(limiters, d.limiters[name])
	}
	d.mu.Unlock()

	for i, c := range targets {
		if lim := limiters[i]; lim != nil && !lim.Allow() {
			d.log.Debug("channel throttled; delivery dropped",
				logx.String("channel", c.Name()), logx.String("id", n.ID))
			continue
		}
		sctx, cancel := context.WithTimeout(ctx, sendTimeout)
		err := c.Send(sctx, n)
		cancel()
		if err != nil {
			d.log.Warn("channel delivery failed",
				logx.String("channel", c.Name()), logx.String("id", n.ID), logx.Err(err))
			if d.bus != nil {
				d.bus.Publish(eventbus.Event{
					Type: eventbus.TypeDeliveryFailed,
					Data: map[string]any{"channel": c.Name(), "id": n.ID, "error": err.Error()},
				})
			}
		}
	}
}
