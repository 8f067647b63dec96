package wizard

import (
	"sync"
	"time"
)

type draftKey struct {
	userID   string
	schemeID string
}

type draftEntry struct {
	draft   *Draft
	touched time.Time
}

// DraftStore holds open application drafts in process memory, one per user
// and scheme. Drafts idle longer than the TTL are dropped on the next access.
type DraftStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[draftKey]*draftEntry
}

func NewDraftStore(ttl time.Duration) *DraftStore {
	return &DraftStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[draftKey]*draftEntry),
	}
}

// Get returns the open draft for user and scheme, if any.
func (s *DraftStore) Get(userID, schemeID string) (*Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()

	entry, ok := s.entries[draftKey{userID, schemeID}]
	if !ok {
		return nil, false
	}

	entry.touched = s.now()
	return entry.draft, true
}

// Open returns the existing draft or stores the one built by create.
func (s *DraftStore) Open(userID, schemeID string, create func() *Draft) *Draft {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()

	key := draftKey{userID, schemeID}
	if entry, ok := s.entries[key]; ok {
		entry.touched = s.now()
		return entry.draft
	}

	draft := create()
	s.entries[key] = &draftEntry{draft: draft, touched: s.now()}
	return draft
}

// Discard drops the draft. Called on successful submission and on cancel.
func (s *DraftStore) Discard(userID, schemeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, draftKey{userID, schemeID})
}

func (s *DraftStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	return len(s.entries)
}

func (s *DraftStore) sweep() {
	if s.ttl <= 0 {
		return
	}

	cutoff := s.now().Add(-s.ttl)
	for key, entry := range s.entries {
		if entry.touched.Before(cutoff) && !entry.draft.Submitting() {
			delete(s.entries, key)
		}
	}
}
