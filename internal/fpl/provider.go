// ABOUTME: SnapshotProvider keeps a merged reference-data Snapshot fresh
// ABOUTME: Concurrent refreshes collapse into one fetch; a stale snapshot beats none

package fpl

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultSnapshotTTL is how long a Snapshot is served before refreshing.
const DefaultSnapshotTTL = 15 * time.Minute

// Source is the subset of Client a SnapshotProvider needs.
type Source interface {
	Bootstrap(ctx context.Context) (*Bootstrap, error)
	Fixtures(ctx context.Context) ([]Fixture, error)
}

// SnapshotProvider caches the Snapshot built from a Source.
type SnapshotProvider struct {
	source Source
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	group singleflight.Group
	mu    sync.RWMutex
	snap  *Snapshot
}

// NewSnapshotProvider creates a provider. A zero ttl selects DefaultSnapshotTTL.
func NewSnapshotProvider(source Source, ttl time.Duration, logger *slog.Logger) *SnapshotProvider {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotProvider{
		source: source,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.With("component", "snapshot"),
	}
}

// Snapshot returns a fresh snapshot, refreshing it if it has expired. When a
// refresh fails and an older snapshot exists, the older one is returned.
func (p *SnapshotProvider) Snapshot(ctx context.Context) (*Snapshot, error) {
	p.mu.RLock()
	cur := p.snap
	p.mu.RUnlock()

	if cur != nil && p.now().Sub(cur.FetchedAt) < p.ttl {
		return cur, nil
	}

	v, err, _ := p.group.Do("snapshot", func() (any, error) {
		return p.refresh(ctx)
	})
	if err != nil {
		if cur != nil {
			p.logger.Warn("snapshot refresh failed, serving stale data",
				"error", err,
				"age", p.now().Sub(cur.FetchedAt))
			return cur, nil
		}
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (p *SnapshotProvider) refresh(ctx context.Context) (*Snapshot, error) {
	bootstrap, err := p.source.Bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching bootstrap: %w", err)
	}
	fixtures, err := p.source.Fixtures(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching fixtures: %w", err)
	}

	snap := NewSnapshot(bootstrap, fixtures, p.now())

	p.mu.Lock()
	p.snap = snap
	p.mu.Unlock()

	p.logger.Info("snapshot refreshed",
		"players", len(snap.Players),
		"teams", len(snap.Teams),
		"fixtures", len(snap.Fixtures))
	return snap, nil
}
