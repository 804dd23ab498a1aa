// Package app wires the sitewatch process: config file, logging, storage,
// delivery channels, and one alerting engine per configured domain.
package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"sitewatch/internal/alerting"
	"sitewatch/internal/channel"
	"sitewatch/internal/config"
	"sitewatch/internal/domain"
	"sitewatch/internal/eventbus"
	"sitewatch/internal/storage"
	logx "sitewatch/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.Manager

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	store      storage.Store
	dispatcher *channel.Dispatcher
	inproc     *channel.InProc

	mu        sync.Mutex
	engines   map[string]*alerting.Engine
	providers map[string]domain.Providers

	watchCancel context.CancelFunc
	watchWG     sync.WaitGroup
	cfgCh       chan *config.Config
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	cfgm.SetLogger(log.With(logx.String("comp", "config")))
	cfgm.SetValidator(func(ctx context.Context, c *config.Config) error {
		_ = ctx
		return config.Validate(c)
	})

	a := &App{
		cfgPath:   cfgPath,
		cfgm:      cfgm,
		log:       log,
		logs:      logSvc,
		bus:       eventbus.New(),
		engines:   map[string]*alerting.Engine{},
		providers: map[string]domain.Providers{},
	}
	return a, nil
}

// Bus exposes the in-process event bus (engine + delivery events).
func (a *App) Bus() eventbus.Bus { return a.bus }

// Logger returns the root application logger.
func (a *App) Logger() logx.Logger { return a.log }

// Engine returns the engine for a domain namespace, or nil.
func (a *App) Engine(name string) *alerting.Engine {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engines[name]
}

// Engines returns all engines keyed by namespace.
func (a *App) Engines() map[string]*alerting.Engine {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]*alerting.Engine, len(a.engines))
	for k, v := range a.engines {
		out[k] = v
	}
	return out
}

// InProc returns the in-process delivery surface.
func (a *App) InProc() *channel.InProc { return a.inproc }

// RegisterProviders injects real data providers for a domain before Start.
// They take precedence over any fixture_path configured for that domain.
func (a *App) RegisterProviders(name string, p domain.Providers) {
	a.mu.Lock()
	a.providers[name] = p
	a.mu.Unlock()
}

func (a *App) Start(ctx context.Context) error {
	cfg := a.cfgm.Get()
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}

	// Storage (optional)
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return err
	} else if enabled {
		st, err := storage.Open(sc, a.log.With(logx.String("comp", "storage")))
		if err != nil {
			return err
		}
		a.store = st
		a.log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	if err := a.buildChannels(cfg); err != nil {
		return err
	}
	if err := a.buildEngines(cfg); err != nil {
		return err
	}

	a.mu.Lock()
	names := make([]string, 0, len(a.engines))
	for name := range a.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	engines := make([]*alerting.Engine, 0, len(names))
	for _, name := range names {
		engines = append(engines, a.engines[name])
	}
	a.mu.Unlock()

	for i, e := range engines {
		if err := e.Start(ctx); err != nil {
			return fmt.Errorf("starting engine %s: %w", names[i], err)
		}
	}

	// Config hot reload: logging applies live; structural sections
	// (storage, domains, channels) take effect on restart and are logged
	// so the change doesn't go unnoticed.
	wctx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel
	a.cfgCh = a.cfgm.Subscribe(4)
	a.watchWG.Add(2)
	go func() {
		defer a.watchWG.Done()
		_ = a.cfgm.Watch(wctx)
	}()
	go func() {
		defer a.watchWG.Done()
		a.reloadLoop(wctx)
	}()

	a.log.Info("app started", logx.Int("engines", len(engines)))
	return nil
}

func (a *App) reloadLoop(ctx context.Context) {
	prev := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-a.cfgCh:
			if !ok {
				return
			}
			changed, attrs := config.SummarizeChange(prev, cfg)
			if len(changed) == 0 {
				continue
			}
			a.log.Info("config reloaded",
				append([]logx.Field{logx.String("sections", strings.Join(changed, ","))}, attrs...)...)

			a.logs.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.Logging.Console,
				File: logx.FileConfig{
					Enabled: cfg.Logging.File.Enabled,
					Path:    cfg.Logging.File.Path,
				},
			})
			for _, section := range changed {
				if section != "logging" {
					a.log.Warn("config section changed; restart required to apply",
						logx.String("section", section))
				}
			}
			prev = cfg
		}
	}
}

func (a *App) Stop(ctx context.Context) error {
	if a.watchCancel != nil {
		a.watchCancel()
	}

	a.mu.Lock()
	engines := make([]*alerting.Engine, 0, len(a.engines))
	for _, e := range a.engines {
		engines = append(engines, e)
	}
	a.mu.Unlock()

	for _, e := range engines {
		e.Stop(ctx)
	}

	done := make(chan struct{})
	go func() {
		a.watchWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
	}

	if a.cfgCh != nil {
		a.cfgm.Unsubscribe(a.cfgCh)
		a.cfgCh = nil
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	_ = a.logs.Close()
	return nil
}
