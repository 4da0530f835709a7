// Package mediastore persists binary media objects for a fixed retention
// window and serves them behind per-object capability tokens. Payloads live
// on disk under a single data directory; the id -> record index and the
// token gate are the only shared mutable state, and every mutation funnels
// through the Store API.
package mediastore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chia-ai0924/line-gpt-chatbot/pkg/telemetry"
	"github.com/chia-ai0924/line-gpt-chatbot/pkg/token"
)

type objectState int

const (
	stateActive objectState = iota
	stateEvicted
)

type record struct {
	id        string
	path      string
	createdAt time.Time
	expiresAt time.Time
	state     objectState
	eviction  *Handle
}

// Store owns all media objects. Once an object is evicted its payload and
// token are gone for good; ids are never reused.
type Store struct {
	mu        sync.RWMutex
	dir       string
	retention time.Duration
	gate      *token.Gate
	sched     *Scheduler
	objects   map[string]*record
	now       func() time.Time
}

// New creates a store rooted at dir. Objects are evicted retention after Put.
func New(dir string, retention time.Duration) (*Store, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("retention window must be positive, got %v", retention)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating media dir: %w", err)
	}

	s := &Store{
		dir:       dir,
		retention: retention,
		gate:      token.NewGate(),
		objects:   make(map[string]*record),
		now:       time.Now,
	}
	s.sched = NewScheduler(s.EvictNow)
	return s, nil
}

// Retention returns the configured retention window.
func (s *Store) Retention() time.Duration { return s.retention }

// Put persists payload under a fresh id and returns the id together with a
// newly minted capability token. The payload is flushed to disk before Put
// returns, so a Get racing ahead of the write is impossible. Eviction is
// armed before returning; if arming fails the object is left for the sweep.
func (s *Store) Put(payload []byte) (id, tok string, err error) {
	id = uuid.NewString()
	path := filepath.Join(s.dir, id+".jpg")

	if err := writeFileSync(path, payload); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	tok, err = s.gate.Mint(id)
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			slog.Warn("removing orphan after mint failure", slog.String("path", path), slog.Any("err", rmErr))
		}
		return "", "", fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	now := s.now()
	rec := &record{
		id:        id,
		path:      path,
		createdAt: now,
		expiresAt: now.Add(s.retention),
		state:     stateActive,
	}

	s.mu.Lock()
	s.objects[id] = rec
	s.mu.Unlock()

	handle, err := s.sched.Schedule(id, s.retention)
	if err != nil {
		// Not fatal: the object leaks until the sweep catches it.
		slog.Warn("arming eviction timer failed", slog.String("id", id), slog.Any("err", err))
	} else {
		s.mu.Lock()
		rec.eviction = handle
		s.mu.Unlock()
	}

	telemetry.ObjectsStored.Inc()
	return id, tok, nil
}

// Get returns the payload for id if the object is still active and presented
// verifies against its token. Reading never extends the expiry. An evicted
// or unknown id yields ErrNotFound regardless of the presented token, so an
// expired object is indistinguishable from one that never existed.
func (s *Store) Get(id, presented string) ([]byte, error) {
	s.mu.RLock()
	rec, ok := s.objects[id]
	if !ok || rec.state != stateActive || !s.now().Before(rec.expiresAt) {
		s.mu.RUnlock()
		telemetry.ObjectsNotFound.Inc()
		return nil, ErrNotFound
	}
	if !s.gate.Verify(id, presented) {
		s.mu.RUnlock()
		telemetry.ObjectsDenied.Inc()
		return nil, ErrAccessDenied
	}

	// Read under the lock: a concurrent eviction takes the write lock, so a
	// get either sees the whole payload or ErrNotFound, never a torn file.
	payload, err := os.ReadFile(rec.path)
	s.mu.RUnlock()
	if err != nil {
		return nil, ErrNotFound
	}

	telemetry.ObjectsServed.Inc()
	return payload, nil
}

// EvictNow deletes id immediately. It is idempotent and safe to call
// concurrently with the scheduled eviction for the same id; whichever runs
// first wins and the other is a no-op.
func (s *Store) EvictNow(id string) {
	s.mu.Lock()
	rec, ok := s.objects[id]
	if !ok || rec.state == stateEvicted {
		s.mu.Unlock()
		return
	}
	rec.state = stateEvicted
	if rec.eviction != nil {
		s.sched.Cancel(rec.eviction)
	}
	s.gate.Revoke(id)
	delete(s.objects, id)
	path := rec.path
	s.mu.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("removing evicted object file", slog.String("path", path), slog.Any("err", err))
	}
	telemetry.ObjectsEvicted.Inc()
	slog.Debug("media object evicted", slog.String("id", id))
}

// Close cancels all pending evictions and deletes every remaining object.
func (s *Store) Close() {
	s.mu.RLock()
	ids := make([]string, 0, len(s.objects))
	for id := range s.objects {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	for _, id := range ids {
		s.EvictNow(id)
	}
}

func writeFileSync(path string, payload []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(payload); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
