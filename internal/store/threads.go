// Package store holds the in-memory read models: the recency-ordered thread
// list with unread counters, and the active conversation's message list.
//
// Both structures are mutated only through their methods, so every state
// transition is funneled through one auditable path. Projections (filters,
// search) copy and never mutate.
package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/NahoooMac/wedhabesha-sub006/internal/chat"
)

// ReorderResult reports what ReorderOnNewMessage did.
type ReorderResult int

const (
	// ReorderApplied means the thread moved to the head of the list.
	ReorderApplied ReorderResult = iota
	// ReorderStale means the event's timestamp did not advance the thread's
	// last activity; the store was left untouched.
	ReorderStale
	// ReorderUnknownThread means no thread with that identifier is cached;
	// the caller should refresh the thread list from the durable store.
	ReorderUnknownThread
)

// ThreadStore caches the vendor's threads ordered by last activity
// descending.
type ThreadStore struct {
	mu      sync.RWMutex
	threads []chat.Thread
	index   map[string]int
}

// NewThreadStore returns an empty store.
func NewThreadStore() *ThreadStore {
	return &ThreadStore{index: make(map[string]int)}
}

// Load replaces the cache with the given threads, used after the initial
// fetch or a full refresh. Input order is not trusted; the store re-sorts.
func (s *ThreadStore) Load(threads []chat.Thread) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.threads = make([]chat.Thread, len(threads))
	copy(s.threads, threads)
	sort.SliceStable(s.threads, func(i, j int) bool {
		return s.threads[i].LastActivity.After(s.threads[j].LastActivity)
	})
	s.reindex()
}

// Threads returns a copy of the cached list in display order.
func (s *ThreadStore) Threads() []chat.Thread {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]chat.Thread, len(s.threads))
	copy(out, s.threads)
	return out
}

// Get returns the cached thread with the given identifier.
func (s *ThreadStore) Get(threadID string) (chat.Thread, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[threadID]
	if !ok {
		return chat.Thread{}, false
	}
	return s.threads[i], true
}

// Len returns the number of cached threads.
func (s *ThreadStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.threads)
}

// ReorderOnNewMessage moves the thread to the head of the list and updates
// its preview, activity time, and (optionally) unread count. Events whose
// timestamp does not advance the thread's last activity are rejected as
// stale duplicates per the ordering rules, leaving the store untouched.
func (s *ThreadStore) ReorderOnNewMessage(threadID, preview string, at time.Time, incrementUnread bool) ReorderResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[threadID]
	if !ok {
		return ReorderUnknownThread
	}
	thread := s.threads[i]
	if !at.After(thread.LastActivity) {
		return ReorderStale
	}

	thread.Preview = preview
	thread.LastActivity = at
	if incrementUnread {
		thread.UnreadCount++
	}

	// O(n) remove-and-prepend; thread lists are dozens long, not millions.
	s.threads = append(s.threads[:i], s.threads[i+1:]...)
	s.threads = append([]chat.Thread{thread}, s.threads...)
	s.reindex()
	return ReorderApplied
}

// ClearUnread zeroes the thread's unread counter and returns the number of
// messages that were unread, so the badge can decrease by exactly that much.
func (s *ThreadStore) ClearUnread(threadID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[threadID]
	if !ok {
		return 0
	}
	cleared := s.threads[i].UnreadCount
	s.threads[i].UnreadCount = 0
	return cleared
}

// TotalUnread sums unread counts over every thread except the excluded one
// (pass "" to include all). This is the badge invariant: the global counter
// equals this sum with the open thread excluded.
func (s *ThreadStore) TotalUnread(excludeThreadID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, t := range s.threads {
		if t.ID == excludeThreadID {
			continue
		}
		total += t.UnreadCount
	}
	return total
}

// FilterByStatus returns threads matching the given status, preserving
// display order. The cache is not mutated.
func (s *ThreadStore) FilterByStatus(status chat.ThreadStatus) []chat.Thread {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []chat.Thread
	for _, t := range s.threads {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

// Search returns threads whose counterpart name, preview, or service
// category contains the query, case-insensitively. The cache is not mutated.
func (s *ThreadStore) Search(query string) []chat.Thread {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return s.Threads()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []chat.Thread
	for _, t := range s.threads {
		if strings.Contains(strings.ToLower(t.CounterpartName), q) ||
			strings.Contains(strings.ToLower(t.Preview), q) ||
			strings.Contains(strings.ToLower(t.ServiceCategory), q) {
			out = append(out, t)
		}
	}
	return out
}

// reindex rebuilds the id → position map. Callers hold the write lock.
func (s *ThreadStore) reindex() {
	if s.index == nil || len(s.index) > 0 {
		s.index = make(map[string]int, len(s.threads))
	}
	for i, t := range s.threads {
		s.index[t.ID] = i
	}
}
