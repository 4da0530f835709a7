package mediastore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Scheduler arms delayed, cancellable evictions. The delay is the store's
// retention window in the default policy; the interface takes it as a
// parameter so tests can run with short windows.
type Scheduler struct {
	evict func(id string)
}

// Handle identifies one scheduled eviction.
type Handle struct {
	timer *time.Timer
}

func NewScheduler(evict func(id string)) *Scheduler {
	return &Scheduler{evict: evict}
}

// Schedule arms an eviction for id that fires once delay has elapsed, never
// earlier. The returned handle can be passed to Cancel.
func (s *Scheduler) Schedule(id string, delay time.Duration) (*Handle, error) {
	if delay <= 0 {
		return nil, fmt.Errorf("eviction delay must be positive, got %v", delay)
	}
	t := time.AfterFunc(delay, func() {
		s.evict(id)
	})
	return &Handle{timer: t}, nil
}

// Cancel stops a scheduled eviction. If the eviction is already executing it
// runs to completion; cancelling twice, or cancelling a fired handle, is safe.
func (s *Scheduler) Cancel(h *Handle) {
	if h == nil || h.timer == nil {
		return
	}
	h.timer.Stop()
}

// RunSweeper periodically removes files in the data directory that are older
// than the retention window but no longer indexed, i.e. objects whose
// eviction timer failed to arm or fire. Best-effort hardening; eviction
// timers remain the primary mechanism.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	slog.Info("media sweep starting", slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("media sweep stopped")
			return
		case <-ticker.C:
			s.sweepOnce()
		}
	}
}

func (s *Store) sweepOnce() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		slog.Warn("reading media dir for sweep", slog.Any("err", err))
		return
	}

	now := s.now()
	var removed int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))

		s.mu.RLock()
		_, indexed := s.objects[id]
		s.mu.RUnlock()
		if indexed {
			continue
		}

		fi, err := e.Info()
		if err != nil || now.Sub(fi.ModTime()) <= s.retention {
			continue
		}

		path := filepath.Join(s.dir, e.Name())
		if err := os.Remove(path); err != nil {
			slog.Warn("removing orphaned media file", slog.String("path", path), slog.Any("err", err))
			continue
		}
		removed++
	}

	if removed > 0 {
		slog.Info("media sweep removed orphans", slog.Int("count", removed))
	}
}
