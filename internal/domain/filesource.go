package domain

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// fixtureFile is the YAML shape of a fixture data file.
type fixtureFile struct {
	Assets          []Asset           `yaml:"assets"`
	Measurements    []Measurement     `yaml:"measurements"`
	Compactions     []CompactionTrial `yaml:"compactions"`
	Nonconformities []Nonconformity   `yaml:"nonconformities"`
	Audits          []Audit           `yaml:"audits"`
	Risks           []Risk            `yaml:"risks"`
}

// FileProviders returns Providers backed by a YAML fixture file.
//
// Intended for pilots and the demo binary; production deployments inject
// providers backed by the real data service. The file is re-read at most
// once per ttl so edits show up on the next tick without a restart.
func FileProviders(path string, ttl time.Duration) Providers {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	src := &fileSource{path: path, ttl: ttl}
	return Providers{
		Assets: func(ctx context.Context) ([]Asset, error) {
			f, err := src.load(ctx)
			if err != nil {
				return nil, err
			}
			return f.Assets, nil
		},
		Measurements: func(ctx context.Context) ([]Measurement, error) {
			f, err := src.load(ctx)
			if err != nil {
				return nil, err
			}
			return f.Measurements, nil
		},
		Compactions: func(ctx context.Context) ([]CompactionTrial, error) {
			f, err := src.load(ctx)
			if err != nil {
				return nil, err
			}
			return f.Compactions, nil
		},
		Nonconformities: func(ctx context.Context) ([]Nonconformity, error) {
			f, err := src.load(ctx)
			if err != nil {
				return nil, err
			}
			return f.Nonconformities, nil
		},
		Audits: func(ctx context.Context) ([]Audit, error) {
			f, err := src.load(ctx)
			if err != nil {
				return nil, err
			}
			return f.Audits, nil
		},
		Risks: func(ctx context.Context) ([]Risk, error) {
			f, err := src.load(ctx)
			if err != nil {
				return nil, err
			}
			return f.Risks, nil
		},
	}
}

type fileSource struct {
	path string
	ttl  time.Duration

	mu       sync.Mutex
	cached   *fixtureFile
	loadedAt time.Time
}

func (s *fileSource) load(ctx context.Context) (*fixtureFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil && time.Since(s.loadedAt) < s.ttl {
		return s.cached, nil
	}

	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", s.path, err)
	}
	var f fixtureFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", s.path, err)
	}
	s.cached = &f
	s.loadedAt = time.Now()
	return &f, nil
}
