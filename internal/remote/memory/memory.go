// Package memory provides an in-process remote.Store, used by tests and
// for offline dry runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/klauern/docsync/internal/remote"
)

type revision struct {
	text    string
	author  string
	comment string
	at      time.Time
}

// Store keeps every revision of every page in memory.
type Store struct {
	mu     sync.Mutex
	pages  map[string][]revision
	author string
	writes int

	// Fail, when set, is returned by every call for the named page.
	Fail map[string]error
	// ListErr, when set, is returned by ListNames.
	ListErr error
}

var _ remote.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		pages:  make(map[string][]revision),
		author: "docsync",
		Fail:   make(map[string]error),
	}
}

// Seed adds a revision without counting it as a write.
func (s *Store) Seed(name, text string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[name] = append(s.pages[name], revision{text: text, author: "seed", at: time.Now()})
	return len(s.pages[name])
}

// Writes returns how many PutContent calls succeeded.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Latest returns the newest text for a page.
func (s *Store) Latest(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	revs := s.pages[name]
	if len(revs) == 0 {
		return "", false
	}
	return revs[len(revs)-1].text, true
}

// ListNames returns page names in sorted order.
func (s *Store) ListNames(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	names := make([]string, 0, len(s.pages))
	for n := range s.pages {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// GetContent returns the text of a revision.
func (s *Store) GetContent(_ context.Context, name string, rev *int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, _, err := s.lookup(name, rev)
	if err != nil {
		return "", err
	}
	return r.text, nil
}

// GetInfo returns metadata for a revision.
func (s *Store) GetInfo(_ context.Context, name string, rev *int) (remote.PageInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, v, err := s.lookup(name, rev)
	if err != nil {
		return remote.PageInfo{}, err
	}
	return remote.PageInfo{Name: name, Version: v, Author: r.author, LastModified: r.at}, nil
}

// PutContent appends a revision. A non-nil rev must match the latest
// version; a nil rev requires the page not to exist yet.
func (s *Store) PutContent(_ context.Context, name, text, comment string, rev *int) (remote.PageInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Fail[name]; err != nil {
		return remote.PageInfo{}, err
	}

	current := len(s.pages[name])
	switch {
	case rev == nil && current > 0:
		return remote.PageInfo{}, &remote.Fault{Code: 1, Message: fmt.Sprintf("page %q already exists", name)}
	case rev != nil && *rev != current:
		return remote.PageInfo{}, &remote.Fault{
			Code:    1,
			Message: fmt.Sprintf("page %q was modified: version %d is not the latest (%d)", name, *rev, current),
		}
	}

	r := revision{text: text, author: s.author, comment: comment, at: time.Now()}
	s.pages[name] = append(s.pages[name], r)
	s.writes++

	return remote.PageInfo{Name: name, Version: current + 1, Author: r.author, LastModified: r.at}, nil
}

// Comment returns the comment stored with the newest revision.
func (s *Store) Comment(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	revs := s.pages[name]
	if len(revs) == 0 {
		return ""
	}
	return revs[len(revs)-1].comment
}

func (s *Store) lookup(name string, rev *int) (revision, int, error) {
	if err := s.Fail[name]; err != nil {
		return revision{}, 0, err
	}
	revs := s.pages[name]
	if len(revs) == 0 {
		return revision{}, 0, fmt.Errorf("page %q: %w", name, remote.ErrNotFound)
	}
	v := len(revs)
	if rev != nil {
		v = *rev
	}
	if v < 1 || v > len(revs) {
		return revision{}, 0, fmt.Errorf("page %q version %d: %w", name, v, remote.ErrNotFound)
	}
	return revs[v-1], v, nil
}
