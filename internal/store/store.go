// Package store remembers which notification ids have already raised a
// desktop alert, so restarts and later polls do not alert twice.
package store

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jmylchreest/cmsnotifs/internal/model"
)

// DefaultMaxEntries bounds the history. Moodle returns at most 100
// notifications per fetch, so this leaves plenty of headroom.
const DefaultMaxEntries = 1000

// ErrStoreClosed is returned when operations are attempted on a closed store.
var ErrStoreClosed = errors.New("store is closed")

// Seen is the thread-safe set of already-alerted notification ids.
type Seen struct {
	mu     sync.RWMutex
	seen   map[int64]int64 // id -> seen_at
	logger *slog.Logger

	persistence Persistence
	maxEntries  int
	closed      bool
}

// NewSeen creates a Seen set and loads any persisted records. persistence
// may be nil for a memory-only set.
func NewSeen(persistence Persistence, logger *slog.Logger) (*Seen, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Seen{
		seen:        make(map[int64]int64),
		logger:      logger,
		persistence: persistence,
		maxEntries:  DefaultMaxEntries,
	}

	if persistence != nil {
		records, err := persistence.Load()
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			s.seen[r.ID] = r.SeenAt
		}
		logger.Debug("loaded seen history", "count", len(s.seen))
	}
	return s, nil
}

// SetMaxEntries changes the prune threshold.
func (s *Seen) SetMaxEntries(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxEntries = n
}

// Count returns the number of remembered ids.
func (s *Seen) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}

// Has reports whether id was already alerted.
func (s *Seen) Has(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[id]
	return ok
}

// Unseen returns the notifications whose ids are not yet remembered, in
// their original order.
func (s *Seen) Unseen(ns []model.Notification) []model.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var fresh []model.Notification
	for _, n := range ns {
		if _, ok := s.seen[n.ID]; !ok {
			fresh = append(fresh, n)
		}
	}
	return fresh
}

// Mark remembers ids as seen at now. Ids already present keep their
// original time.
func (s *Seen) Mark(ids []int64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	var added []Record
	for _, id := range ids {
		if _, ok := s.seen[id]; ok {
			continue
		}
		r := Record{ID: id, SeenAt: now.Unix()}
		s.seen[id] = r.SeenAt
		added = append(added, r)
	}
	if len(added) == 0 {
		return nil
	}

	if s.persistence != nil {
		if err := s.persistence.AppendBatch(added); err != nil {
			return err
		}
	}

	if s.maxEntries > 0 && len(s.seen) > s.maxEntries {
		return s.pruneLocked(s.maxEntries / 2)
	}
	return nil
}

// Prune keeps only the keep most recently seen ids and rewrites storage.
// It returns the number removed.
func (s *Seen) Prune(keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}
	before := len(s.seen)
	if err := s.pruneLocked(keep); err != nil {
		return 0, err
	}
	return before - len(s.seen), nil
}

func (s *Seen) pruneLocked(keep int) error {
	if keep < 0 {
		keep = 0
	}
	if len(s.seen) <= keep {
		return nil
	}

	records := make([]Record, 0, len(s.seen))
	for id, at := range s.seen {
		records = append(records, Record{ID: id, SeenAt: at})
	}
	// Newest first; ids break ties so the result is deterministic.
	sort.Slice(records, func(i, j int) bool {
		if records[i].SeenAt != records[j].SeenAt {
			return records[i].SeenAt > records[j].SeenAt
		}
		return records[i].ID > records[j].ID
	})
	records = records[:keep]

	s.seen = make(map[int64]int64, len(records))
	for _, r := range records {
		s.seen[r.ID] = r.SeenAt
	}
	s.logger.Debug("pruned seen history", "kept", len(records))

	if s.persistence != nil {
		return s.persistence.Rewrite(records)
	}
	return nil
}

// Close closes the underlying persistence.
func (s *Seen) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.persistence != nil {
		return s.persistence.Close()
	}
	return nil
}
