package channel

import (
	"context"
	"sync"
	"time"

	"sitewatch/internal/alert"
	"sitewatch/internal/eventbus"
)

// InProc is the always-available in-process surface. It keeps a bounded
// history and republishes deliveries on the event bus so the view layer
// can subscribe without touching the engine.
type InProc struct {
	bus eventbus.Bus

	mu      sync.Mutex
	history []delivered
	maxKeep int
}

type delivered struct {
	At time.Time
	N  alert.Notification
}

func NewInProc(bus eventbus.Bus, keep int) *InProc {
	if keep <= 0 {
		keep = 100
	}
	return &InProc{bus: bus, maxKeep: keep}
}

func (c *InProc) Name() string { return "inproc" }

func (c *InProc) Send(ctx context.Context, n alert.Notification) error {
	_ = ctx
	c.mu.Lock()
	c.history = append(c.history, delivered{At: time.Now(), N: n})
	if len(c.history) > c.maxKeep {
		c.history = c.history[len(c.history)-c.maxKeep:]
	}
	c.mu.Unlock()

	if c.bus != nil {
		c.bus.Publish(eventbus.Event{Type: "channel.inproc.delivered", Data: n})
	}
	return nil
}

// Recent returns the delivered notifications, newest-first.
func (c *InProc) Recent() []alert.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]alert.Notification, 0, len(c.history))
	for i := len(c.history) - 1; i >= 0; i-- {
		out = append(out, c.history[i].N)
	}
	return out
}
