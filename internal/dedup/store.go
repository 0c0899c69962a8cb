package dedup

import (
	"encoding/json"
	"fmt"
	"os"

	"kakaocal/internal/fsutil"
	appLog "kakaocal/internal/log"
	"kakaocal/internal/model"
)

// Store is the set of message identities already emitted by earlier runs.
// Insertion order is kept only so the persisted file reads chronologically.
type Store struct {
	ids   []string
	index map[string]struct{}
}

// stateFile is the on-disk shape of the store.
type stateFile struct {
	KnownIDs []string `json:"knownIds"`
}

// New returns an empty store.
func New() *Store {
	return &Store{index: make(map[string]struct{})}
}

// Load reads the store at path. A missing or malformed file yields an empty
// store; Load never fails.
func Load(path string) *Store {
	s := New()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			appLog.Debug("dedup store unreadable, starting empty", "path", path, "err", err)
		}
		return s
	}

	var f stateFile
	if err := json.Unmarshal(data, &f); err != nil || f.KnownIDs == nil {
		appLog.Debug("dedup store malformed, starting empty", "path", path)
		return s
	}

	for _, id := range f.KnownIDs {
		s.Add(id)
	}
	appLog.Debug("dedup store loaded", "path", path, "known_ids", s.Len())
	return s
}

// Save overwrites path with the full store contents.
func (s *Store) Save(path string) error {
	ids := s.ids
	if ids == nil {
		ids = []string{}
	}

	data, err := json.MarshalIndent(stateFile{KnownIDs: ids}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dedup store: %w", err)
	}

	if err := fsutil.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write dedup store: %w", err)
	}
	return nil
}

// Contains reports whether id was seen before.
func (s *Store) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Add records id. Adding a known id is a no-op.
func (s *Store) Add(id string) {
	if s.Contains(id) {
		return
	}
	s.index[id] = struct{}{}
	s.ids = append(s.ids, id)
}

// Len returns the number of known identities.
func (s *Store) Len() int {
	return len(s.ids)
}

// IDs returns a copy of the known identities in insertion order.
func (s *Store) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Filter returns the messages whose identity is not yet known, recording
// each accepted identity immediately so duplicates later in msgs (from the
// same or another file) are dropped as well. msgs should already be in
// (timestamp, identity) order.
func (s *Store) Filter(msgs []model.Message) []model.Message {
	fresh := make([]model.Message, 0, len(msgs))
	for _, m := range msgs {
		if s.Contains(m.ID) {
			continue
		}
		s.Add(m.ID)
		fresh = append(fresh, m)
	}
	return fresh
}
