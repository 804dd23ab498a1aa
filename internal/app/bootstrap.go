package app

import (
	"fmt"
	"time"

	"sitewatch/internal/alerting"
	"sitewatch/internal/alerting/rules"
	"sitewatch/internal/channel"
	"sitewatch/internal/config"
	"sitewatch/internal/domain"
	"sitewatch/internal/storage"
	logx "sitewatch/pkg/logx"
)

const (
	defaultFixtureTTL = 30 * time.Second
	inprocHistory     = 50
)

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 0)
	if err != nil {
		return storage.Config{}, false, err
	}
	sc := storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}
	return sc, sc.Driver != "" && sc.Driver != "none", nil
}

func (a *App) buildChannels(cfg *config.Config) error {
	a.dispatcher = channel.NewDispatcher(
		a.log.With(logx.String("comp", "dispatch")),
		a.bus,
		cfg.Dispatch.RatePerSec,
	)

	// The in-process channel always exists: it backs the notification
	// surface even when no external channel is configured.
	a.inproc = channel.NewInProc(a.bus, inprocHistory)
	a.dispatcher.Register(a.inproc)

	if tc := cfg.Telegram; tc != nil && tc.Enabled {
		tg, err := channel.NewTelegram(channel.TelegramConfig{
			Token:  tc.Token,
			ChatID: tc.ChatID,
		}, a.log.With(logx.String("comp", "telegram")))
		if err != nil {
			return fmt.Errorf("telegram channel: %w", err)
		}
		a.dispatcher.Register(tg)
	}
	if ec := cfg.Email; ec != nil && ec.Enabled {
		a.dispatcher.Register(channel.NewEmail(ec.To, a.log.With(logx.String("comp", "email"))))
	}

	a.log.Info("channels registered", logx.Any("names", a.dispatcher.Names()))
	return nil
}

func (a *App) buildEngines(cfg *config.Config) error {
	registry := rules.Builtin()

	a.mu.Lock()
	defer a.mu.Unlock()

	for name, dc := range cfg.Domains {
		if !dc.Enabled {
			a.log.Debug("domain disabled", logx.String("domain", name))
			continue
		}

		providers, ok := a.providers[name]
		if !ok {
			if dc.FixturePath == "" {
				return fmt.Errorf("domain %s: no providers registered and no fixture_path", name)
			}
			ttl, err := config.ParseDurationOrDefault(
				"domains."+name+".fixture_ttl", dc.FixtureTTL, defaultFixtureTTL)
			if err != nil {
				return err
			}
			providers = domain.FileProviders(dc.FixturePath, ttl)
		}

		defaults, err := engineDefaults(name, registry, dc.Defaults)
		if err != nil {
			return err
		}

		a.engines[name] = alerting.New(alerting.Options{
			Namespace:  name,
			Capacity:   dc.Capacity,
			Log:        a.log,
			Bus:        a.bus,
			Store:      a.store,
			Registry:   registry,
			Providers:  providers,
			Dispatcher: a.dispatcher,
			Defaults:   &defaults,
		})
	}

	if len(a.engines) == 0 {
		return fmt.Errorf("no enabled domains configured")
	}
	return nil
}

// engineDefaults layers operator-seeded defaults from the config file on
// top of the hardcoded ones. The result must still validate: a bad seed
// is a startup error, not a silent fallback.
func engineDefaults(name string, registry *rules.Registry, d *config.EngineDefaults) (alerting.EngineConfig, error) {
	cfg := alerting.DefaultConfig(registry.Types())
	if d == nil {
		return cfg, nil
	}
	if d.Active != nil {
		cfg.Active = *d.Active
	}
	if d.EvaluationIntervalMinutes > 0 {
		cfg.EvaluationIntervalMinutes = d.EvaluationIntervalMinutes
	}
	if d.DailyLimit != nil {
		cfg.DailyLimit = *d.DailyLimit
	}
	if d.DedupWindowMinutes > 0 {
		cfg.DedupWindowMinutes = d.DedupWindowMinutes
	}
	if d.QuietHours != nil {
		cfg.QuietHours = alerting.QuietHours{
			Active: d.QuietHours.Active,
			Start:  d.QuietHours.Start,
			End:    d.QuietHours.End,
		}
	}
	for ch, on := range d.Channels {
		cfg.Channels[ch] = on
	}
	for rt, on := range d.RuleTypes {
		cfg.RuleTypes[rt] = on
	}
	if err := cfg.Validate(); err != nil {
		return alerting.EngineConfig{}, fmt.Errorf("domain %s defaults: %w", name, err)
	}
	return cfg, nil
}
