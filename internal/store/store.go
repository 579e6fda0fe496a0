package store

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// Policy selects how incoming updates are merged into the store.
type Policy int

const (
	// UpsertByKey keeps one record per natural key; a later record with
	// the same key fully replaces the earlier one. Nothing is ever
	// deleted through the stream.
	UpsertByKey Policy = iota

	// ReplaceGroup keys full ordered lists by a group identifier; each
	// update for a group replaces the prior list outright. A single new
	// match can additionally be appended if its key is absent.
	ReplaceGroup

	// PrependDedup keeps one ordered feed; new entries are inserted at
	// the front unless an entry with the same key is already present.
	PrependDedup
)

// Errors returned by store operations.
var (
	ErrPolicy     = errors.New("operation not supported by store policy")
	ErrMissingKey = errors.New("record has no natural key")
)

// Store is a keyed in-memory collection that accepts a bootstrap snapshot
// followed by an unbounded sequence of incremental updates under one merge
// policy. Every mutation is applied atomically under the store lock; reads
// return copies, so callers never observe a partially applied update.
type Store[V any] struct {
	policy Policy
	key    func(V) string

	mu      sync.RWMutex
	records map[string]V   // UpsertByKey
	groups  map[string][]V // ReplaceGroup
	feed    []V            // PrependDedup
	feedKey map[string]struct{}
}

// New creates a store with the given merge policy. key extracts the natural
// key of a record; it is folded case-insensitively. ReplaceGroup stores use
// the key only for the insert-if-absent path.
func New[V any](policy Policy, key func(V) string) *Store[V] {
	return &Store[V]{
		policy:  policy,
		key:     key,
		records: make(map[string]V),
		groups:  make(map[string][]V),
		feedKey: make(map[string]struct{}),
	}
}

// Policy returns the store's merge policy.
func (s *Store[V]) Policy() Policy { return s.policy }

func (s *Store[V]) fold(v V) (string, error) {
	k := strings.ToLower(s.key(v))
	if k == "" {
		return "", ErrMissingKey
	}
	return k, nil
}

// Upsert installs or replaces the record under its natural key.
func (s *Store[V]) Upsert(v V) error {
	if s.policy != UpsertByKey {
		return ErrPolicy
	}
	k, err := s.fold(v)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.records[k] = v
	s.mu.Unlock()
	return nil
}

// UpsertAll installs a snapshot of records. Records with no key are skipped;
// the rest are installed.
func (s *Store[V]) UpsertAll(vs []V) error {
	if s.policy != UpsertByKey {
		return ErrPolicy
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vs {
		k, err := s.fold(v)
		if err != nil {
			continue
		}
		s.records[k] = v
	}
	return nil
}

// Get returns the record under the given natural key.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[strings.ToLower(key)]
	return v, ok
}

// Records returns all records ordered by natural key.
func (s *Store[V]) Records() []V {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.records[k])
	}
	return out
}

// Replace installs the full ordered list for a group, replacing whatever was
// there. A group not yet seen is created.
func (s *Store[V]) Replace(group string, vs []V) error {
	if s.policy != ReplaceGroup {
		return ErrPolicy
	}
	if group == "" {
		return ErrMissingKey
	}

	cp := make([]V, len(vs))
	copy(cp, vs)

	s.mu.Lock()
	s.groups[group] = cp
	s.mu.Unlock()
	return nil
}

// ReplaceAll installs a snapshot of all groups.
func (s *Store[V]) ReplaceAll(groups map[string][]V) error {
	if s.policy != ReplaceGroup {
		return ErrPolicy
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for group, vs := range groups {
		if group == "" {
			continue
		}
		cp := make([]V, len(vs))
		copy(cp, vs)
		s.groups[group] = cp
	}
	return nil
}

// Append adds a single record to the end of a group unless an entry with
// the same natural key is already present. Existing entries are never
// reordered. Returns true if the record was inserted.
func (s *Store[V]) Append(group string, v V) (bool, error) {
	if s.policy != ReplaceGroup {
		return false, ErrPolicy
	}
	if group == "" {
		return false, ErrMissingKey
	}
	k, err := s.fold(v)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.groups[group]
	for _, existing := range cur {
		ek, err := s.fold(existing)
		if err == nil && ek == k {
			return false, nil
		}
	}

	next := make([]V, len(cur), len(cur)+1)
	copy(next, cur)
	s.groups[group] = append(next, v)
	return true, nil
}

// Group returns a copy of the list held for a group.
func (s *Store[V]) Group(group string) []V {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cur, ok := s.groups[group]
	if !ok {
		return nil
	}
	out := make([]V, len(cur))
	copy(out, cur)
	return out
}

// Groups returns a copy of every group list keyed by group identifier.
func (s *Store[V]) Groups() map[string][]V {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]V, len(s.groups))
	for group, vs := range s.groups {
		cp := make([]V, len(vs))
		copy(cp, vs)
		out[group] = cp
	}
	return out
}

// Prepend inserts a record at the front of the feed unless an entry with
// the same natural key is already present. Returns true if inserted.
func (s *Store[V]) Prepend(v V) (bool, error) {
	if s.policy != PrependDedup {
		return false, ErrPolicy
	}
	k, err := s.fold(v)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.feedKey[k]; ok {
		return false, nil
	}

	next := make([]V, 0, len(s.feed)+1)
	next = append(next, v)
	next = append(next, s.feed...)
	s.feed = next
	s.feedKey[k] = struct{}{}
	return true, nil
}

// SetFeed installs a snapshot of the feed, preserving its order. Entries
// whose key repeats an earlier entry (or is empty) are skipped.
func (s *Store[V]) SetFeed(vs []V) error {
	if s.policy != PrependDedup {
		return ErrPolicy
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	feed := make([]V, 0, len(vs))
	keys := make(map[string]struct{}, len(vs))
	for _, v := range vs {
		k, err := s.fold(v)
		if err != nil {
			continue
		}
		if _, ok := keys[k]; ok {
			continue
		}
		keys[k] = struct{}{}
		feed = append(feed, v)
	}

	s.feed = feed
	s.feedKey = keys
	return nil
}

// Feed returns a copy of the feed, newest first.
func (s *Store[V]) Feed() []V {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]V, len(s.feed))
	copy(out, s.feed)
	return out
}

// Len returns the number of records, groups, or feed entries depending on
// the store's policy.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch s.policy {
	case UpsertByKey:
		return len(s.records)
	case ReplaceGroup:
		return len(s.groups)
	default:
		return len(s.feed)
	}
}
