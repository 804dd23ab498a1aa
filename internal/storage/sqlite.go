package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	logx "sitewatch/pkg/logx"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) LoadConfig(ctx context.Context, ns string) (ConfigRecord, bool, error) {
	if s == nil || s.db == nil {
		return ConfigRecord{}, false, ErrDisabled
	}
	var (
		version int
		payload string
		updated string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT schema_version, payload, updated_at FROM engine_config WHERE namespace = ?`, ns,
	).Scan(&version, &payload, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return ConfigRecord{}, false, nil
	}
	if err != nil {
		return ConfigRecord{}, false, err
	}
	if version > SchemaVersion || !json.Valid([]byte(payload)) {
		s.log.Warn("config record unreadable; falling back to defaults",
			logx.String("namespace", ns), logx.Int("version", version))
		return ConfigRecord{}, false, nil
	}
	rec := ConfigRecord{SchemaVersion: version, Payload: json.RawMessage(payload)}
	if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		rec.UpdatedAt = t
	}
	return rec, true, nil
}

func (s *sqliteStore) SaveConfig(ctx context.Context, ns string, rec ConfigRecord) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO engine_config(namespace, schema_version, payload, updated_at) VALUES(?,?,?,?)
		 ON CONFLICT(namespace) DO UPDATE SET
		   schema_version=excluded.schema_version,
		   payload=excluded.payload,
		   updated_at=excluded.updated_at`,
		ns, rec.SchemaVersion, string(rec.Payload), rec.UpdatedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) LoadNotifications(ctx context.Context, ns string) ([]NotificationRecord, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT schema_version, payload FROM notifications WHERE namespace = ? ORDER BY seq`, ns)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []NotificationRecord
	skipped := 0
	for rows.Next() {
		var (
			version int
			payload string
		)
		if err := rows.Scan(&version, &payload); err != nil {
			skipped++
			continue
		}
		if version > SchemaVersion || !json.Valid([]byte(payload)) {
			skipped++
			continue
		}
		out = append(out, NotificationRecord{SchemaVersion: version, Payload: json.RawMessage(payload)})
	}
	if skipped > 0 {
		s.log.Warn("skipped corrupt notification records",
			logx.String("namespace", ns), logx.Int("skipped", skipped))
	}
	return out, rows.Err()
}

func (s *sqliteStore) SaveNotifications(ctx context.Context, ns string, recs []NotificationRecord) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM notifications WHERE namespace = ?`, ns); err != nil {
		return err
	}
	for i, rec := range recs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO notifications(namespace, seq, schema_version, payload) VALUES(?,?,?,?)`,
			ns, i, rec.SchemaVersion, string(rec.Payload),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}
