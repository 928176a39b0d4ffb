package server

import "sync"

// recentCapacity bounds the in-memory recent-logs buffer.
const recentCapacity = 100

// RecentLogsStore keeps the newest writes for the observability
// endpoints. Fixed-size ring: the oldest entry falls off first.
type RecentLogsStore struct {
	mu      sync.Mutex
	entries []map[string]any
}

func newRecentLogsStore() *RecentLogsStore {
	return &RecentLogsStore{entries: make([]map[string]any, 0, recentCapacity)}
}

// AddEntry records one write.
func (s *RecentLogsStore) AddEntry(rec map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) >= recentCapacity {
		s.entries = s.entries[1:]
	}
	s.entries = append(s.entries, rec)
}

// GetRecent returns the buffered entries, newest last.
func (s *RecentLogsStore) GetRecent() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, len(s.entries))
	copy(out, s.entries)
	return out
}
