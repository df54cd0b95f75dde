package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofrs/flock"
)

// DefaultDir is the state directory used when a profile does not set one.
const DefaultDir = ".docsync"

// ErrLocked is returned when another run holds the profile lock.
var ErrLocked = errors.New("profile locked by another sync run")

// Store loads and saves state files under a single directory.
type Store struct {
	dir string

	// rename is swapped in tests to simulate a failed commit.
	rename func(oldpath, newpath string) error
	now    func() time.Time
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	return &Store{
		dir:    dir,
		rename: os.Rename,
		now:    time.Now,
	}
}

// Dir returns the directory holding state files.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the state file path for a profile.
func (s *Store) Path(profile string) string {
	return filepath.Join(s.dir, "sync_"+profile+".json")
}

// Load reads the state for a profile. A missing file yields an empty state.
func (s *Store) Load(profile string) (*State, error) {
	// #nosec G304 - path is built from the configured state dir and profile name
	data, err := os.ReadFile(s.Path(profile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(profile), nil
		}
		return nil, fmt.Errorf("failed to read state for profile %s: %w", profile, err)
	}

	st := New(profile)
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", s.Path(profile), err)
	}
	if st.Entries == nil {
		st.Entries = make(map[string]Entry)
	}
	if st.Version == 0 {
		st.Version = SchemaVersion
	}
	return st, nil
}

// Save stamps LastSync and atomically replaces the profile's state file.
// On failure the temporary file is removed and the previous file is left
// as it was.
func (s *Store) Save(profile string, st *State) (err error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	stamp := Timestamp(s.now())
	st.LastSync = &stamp
	st.Profile = profile
	if st.Version == 0 {
		st.Version = SchemaVersion
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "sync_*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to flush temp state file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err = s.rename(tmpPath, s.Path(profile)); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Lock guards a profile against concurrent runs.
type Lock struct {
	fl *flock.Flock
}

// Lock takes the profile lock without blocking.
func (s *Store) Lock(profile string) (*Lock, error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	fl := flock.New(filepath.Join(s.dir, "sync_"+profile+".lock"))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock profile %s: %w", profile, err)
	}
	if !locked {
		return nil, ErrLocked
	}
	return &Lock{fl: fl}, nil
}

// Unlock releases the lock and removes the lock file.
func (l *Lock) Unlock() error {
	if l == nil || !l.fl.Locked() {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock profile: %w", err)
	}
	return os.Remove(l.fl.Path())
}
