package alerting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "sitewatch/pkg/logx"
)

// scheduler drives periodic evaluation ticks. It only owns the timer; the
// single-evaluation-slot guarantee (coalescing) lives in Engine.runTick so
// forced and periodic ticks share it.
type scheduler struct {
	log  logx.Logger
	tick func()

	mu       sync.Mutex
	c        *cron.Cron
	entry    cron.EntryID
	armed    bool
	interval time.Duration
}

func newScheduler(log logx.Logger, tick func()) *scheduler {
	return &scheduler{log: log, tick: tick}
}

// apply arms or disarms the periodic timer to match (active, interval).
// Re-arming takes effect on the next scheduled tick; an in-flight tick is
// never interrupted.
func (s *scheduler) apply(active bool, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !active {
		if s.armed {
			s.c.Remove(s.entry)
			s.armed = false
			s.log.Debug("evaluation timer disarmed")
		}
		return
	}

	if s.armed && s.interval == interval {
		return
	}

	if s.c == nil {
		s.c = cron.New()
		s.c.Start()
	}
	if s.armed {
		s.c.Remove(s.entry)
		s.armed = false
	}

	spec := fmt.Sprintf("@every %s", interval)
	id, err := s.c.AddFunc(spec, s.tick)
	if err != nil {
		// "@every <duration>" only fails on a non-positive interval, which
		// config validation already rejects.
		s.log.Error("failed to arm evaluation timer", logx.String("spec", spec), logx.Err(err))
		return
	}
	s.entry = id
	s.armed = true
	s.interval = interval
	s.log.Debug("evaluation timer armed", logx.Duration("interval", interval))
}

// stop cancels future ticks. A tick already running is allowed to finish;
// the wait is bounded by ctx.
func (s *scheduler) stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.armed = false
	s.mu.Unlock()

	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
}
