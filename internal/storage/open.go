package storage

import (
	"context"
	"errors"
	"strings"

	logx "sitewatch/pkg/logx"
)

// Store is the minimal persistence API used by alerting engines.
//
// Load methods return (zero, nil) when the record is absent or
// unreadable; persistence read failures are never fatal.
type Store interface {
	LoadConfig(ctx context.Context, namespace string) (ConfigRecord, bool, error)
	SaveConfig(ctx context.Context, namespace string, rec ConfigRecord) error
	LoadNotifications(ctx context.Context, namespace string) ([]NotificationRecord, error)
	SaveNotifications(ctx context.Context, namespace string, recs []NotificationRecord) error
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
