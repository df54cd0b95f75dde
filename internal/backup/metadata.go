package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Metadata describes one saved copy of a local file.
type Metadata struct {
	ID         string    `json:"id"`
	Profile    string    `json:"profile"`
	SourcePath string    `json:"source_path"`
	BackupPath string    `json:"backup_path"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	Hash       string    `json:"hash"`
	Size       int64     `json:"size"`
}

// Index lists every backup in a store, keyed by ID.
type Index struct {
	Version string              `json:"version"`
	Updated time.Time           `json:"updated"`
	Backups map[string]Metadata `json:"backups"`
}

const (
	// IndexVersion is the current version of the backup index format.
	IndexVersion = "1.0"
	// IndexFilename is the name of the index file inside the store.
	IndexFilename = "index.json"
)

func newIndex() *Index {
	return &Index{
		Version: IndexVersion,
		Updated: time.Now(),
		Backups: make(map[string]Metadata),
	}
}

func (s *Store) indexPath() string {
	return filepath.Join(s.dir, IndexFilename)
}

// loadIndex reads the index. A missing index is empty.
func (s *Store) loadIndex() (*Index, error) {
	// #nosec G304 - the index lives in the configured state directory
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return newIndex(), nil
		}
		return nil, fmt.Errorf("failed to read index file: %w", err)
	}

	index := newIndex()
	if err := json.Unmarshal(data, index); err != nil {
		return nil, fmt.Errorf("failed to parse index file: %w", err)
	}
	if index.Backups == nil {
		index.Backups = make(map[string]Metadata)
	}
	return index, nil
}

func (s *Store) saveIndex(index *Index) error {
	if err := os.MkdirAll(s.dir, DirPerm); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	index.Updated = time.Now()
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	// #nosec G306 - index.json is metadata and can be group-readable
	if err := os.WriteFile(s.indexPath(), data, FilePerm); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}
	return nil
}

// sorted returns the backups newest first.
func (idx *Index) sorted() []Metadata {
	backups := make([]Metadata, 0, len(idx.Backups))
	for _, b := range idx.Backups {
		backups = append(backups, b)
	}
	slices.SortFunc(backups, func(a, b Metadata) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return backups
}
