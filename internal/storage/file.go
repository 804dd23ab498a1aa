package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "sitewatch/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files per engine namespace:
//   - <dir>/<ns>.config.json         (single versioned record)
//   - <dir>/<ns>.notifications.jsonl (one envelope per line)
//
// Both are replaced atomically (tmp + rename) on save; the notification
// log is small (capacity-bounded upstream) so a full rewrite is cheap.
type fileStore struct {
	log logx.Logger

	mu  sync.Mutex
	dir string
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	dir := strings.TrimSpace(cfg.Path)
	if dir == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &fileStore{log: log, dir: dir}, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) configPath(ns string) string {
	return filepath.Join(s.dir, sanitizeNamespace(ns)+".config.json")
}

func (s *fileStore) notifPath(ns string) string {
	return filepath.Join(s.dir, sanitizeNamespace(ns)+".notifications.jsonl")
}

func (s *fileStore) LoadConfig(ctx context.Context, ns string) (ConfigRecord, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.configPath(ns))
	if err != nil {
		if os.IsNotExist(err) {
			return ConfigRecord{}, false, nil
		}
		return ConfigRecord{}, false, err
	}
	var rec ConfigRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		s.log.Warn("config record unreadable; falling back to defaults",
			logx.String("namespace", ns), logx.Err(err))
		return ConfigRecord{}, false, nil
	}
	if rec.SchemaVersion > SchemaVersion {
		s.log.Warn("config record from newer schema; falling back to defaults",
			logx.String("namespace", ns), logx.Int("version", rec.SchemaVersion))
		return ConfigRecord{}, false, nil
	}
	return rec, true, nil
}

func (s *fileStore) SaveConfig(ctx context.Context, ns string, rec ConfigRecord) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return writeAtomic(s.configPath(ns), append(b, '\n'))
}

func (s *fileStore) LoadNotifications(ctx context.Context, ns string) ([]NotificationRecord, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.notifPath(ns))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []NotificationRecord
	skipped := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var rec NotificationRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			skipped++
			continue
		}
		if rec.SchemaVersion > SchemaVersion || len(rec.Payload) == 0 {
			skipped++
			continue
		}
		out = append(out, rec)
	}
	if skipped > 0 {
		s.log.Warn("skipped corrupt notification records",
			logx.String("namespace", ns), logx.Int("skipped", skipped))
	}
	return out, sc.Err()
}

func (s *fileStore) SaveNotifications(ctx context.Context, ns string, recs []NotificationRecord) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	enc := json.NewEncoder(&b)
	for _, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return writeAtomic(s.notifPath(ns), []byte(b.String()))
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// sanitizeNamespace keeps namespace-derived filenames path-safe.
func sanitizeNamespace(ns string) string {
	ns = strings.TrimSpace(ns)
	if ns == "" {
		return "default"
	}
	var b strings.Builder
	for _, r := range ns {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
