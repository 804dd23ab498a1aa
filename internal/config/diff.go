package config

import (
	"reflect"
	"strings"

	logx "sitewatch/pkg/logx"
)

// SummarizeChange returns (1) a compact list of changed sections and
// (2) safe structured attrs for logging (never includes secrets like tokens).
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 12)

	// Logging
	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	// Storage (takes effect on restart; surfaced so operators notice)
	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
		if newCfg.Storage != nil {
			attrs = append(attrs,
				logx.String("storage.driver", strings.TrimSpace(newCfg.Storage.Driver)),
			)
		}
	}

	// Telegram (never log token)
	oldTg, newTg := oldCfg.Telegram, newCfg.Telegram
	if (oldTg == nil) != (newTg == nil) ||
		(oldTg != nil && newTg != nil &&
			(oldTg.Enabled != newTg.Enabled || oldTg.ChatID != newTg.ChatID ||
				(strings.TrimSpace(oldTg.Token) != "") != (strings.TrimSpace(newTg.Token) != ""))) {
		changed = append(changed, "telegram")
		if newTg != nil {
			attrs = append(attrs,
				logx.Bool("telegram.enabled", newTg.Enabled),
				logx.Bool("telegram.token_set", strings.TrimSpace(newTg.Token) != ""),
			)
		}
	}

	// Domains
	if !reflect.DeepEqual(oldCfg.Domains, newCfg.Domains) {
		changed = append(changed, "domains")
		attrs = append(attrs, logx.Int("domains.count", len(newCfg.Domains)))
	}

	return changed, attrs
}
