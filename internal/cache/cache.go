// Package cache provides the content-addressed extraction result cache.
//
// The cache is process-local: it is not shared across serving processes and
// carries no TTL or eviction. That is a documented limitation of the current
// deployment shape, not an accident.
package cache

import (
	"sync"
	"time"

	"github.com/sells-group/submission-intake/internal/model"
)

type entry struct {
	result    *model.ExtractionResult
	createdAt time.Time
}

// Store maps request fingerprints to previously computed extraction results.
// It is safe for concurrent use; Lookup and Put are atomic with respect to
// each other.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
}

// New creates an empty Store.
func New() *Store {
	return &Store{entries: make(map[string]entry)}
}

// Lookup returns a copy of the cached result for key with Cached set, or nil
// on a miss. Latency is zeroed since no model call happened; everything else
// is returned as stored. The stored entry itself is never handed out, so
// callers cannot mutate it.
func (s *Store) Lookup(key string) *model.ExtractionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	out := e.result.Clone()
	out.Cached = true
	out.LatencyMS = 0
	return out
}

// Put stores a copy of result under key. Writes are insert-or-ignore: once a
// key is populated it is never overwritten, so concurrent identical requests
// converge on one stored result.
func (s *Store) Put(key string, result *model.ExtractionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; ok {
		return
	}
	stored := result.Clone()
	stored.Cached = false
	s.entries[key] = entry{result: stored, createdAt: time.Now().UTC()}
}

// Len reports the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
