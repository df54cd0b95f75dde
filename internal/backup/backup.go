// Package backup keeps copies of local documents before a sync overwrites
// them, so a bad pull can be undone.
package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const (
	// DirPerm is the permission for backup directories (rwxr-x---)
	DirPerm = 0o750
	// FilePerm is the permission for backup files (rw-r-----)
	FilePerm = 0o640

	// DirName is the backup directory inside a profile's state directory.
	DirName = "backups"
)

// ErrNotFound is returned for an unknown backup ID.
var ErrNotFound = errors.New("backup not found")

// Options labels a backup.
type Options struct {
	Profile string
}

// Store is a directory of backups with a JSON index.
type Store struct {
	dir string
	now func() time.Time
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Create copies sourcePath into the store.
func (s *Store) Create(sourcePath string, opts Options) (*Metadata, error) {
	sourceInfo, err := os.Stat(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source path %q: %w", sourcePath, err)
	}

	// #nosec G304 - sourcePath is a document inside the configured source tree
	content, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read source file %q: %w", sourcePath, err)
	}

	hash := sha256.Sum256(content)
	hashStr := hex.EncodeToString(hash[:])

	created := s.now()
	backupID := created.Format("20060102-150405.000-") + hashStr[:8]

	profileDir := filepath.Join(s.dir, profileDirName(opts.Profile))
	if err := os.MkdirAll(profileDir, DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	backupPath := filepath.Join(profileDir, backupID+filepath.Ext(sourcePath))
	if err := os.WriteFile(backupPath, content, FilePerm); err != nil {
		return nil, fmt.Errorf("failed to write backup file: %w", err)
	}

	metadata := &Metadata{
		ID:         backupID,
		Profile:    opts.Profile,
		SourcePath: sourcePath,
		BackupPath: backupPath,
		CreatedAt:  created,
		ModifiedAt: sourceInfo.ModTime(),
		Hash:       hashStr,
		Size:       sourceInfo.Size(),
	}

	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	index.Backups[metadata.ID] = *metadata
	if err := s.saveIndex(index); err != nil {
		return nil, err
	}
	return metadata, nil
}

// Get returns the metadata of one backup.
func (s *Store) Get(backupID string) (Metadata, error) {
	index, err := s.loadIndex()
	if err != nil {
		return Metadata{}, err
	}
	metadata, ok := index.Backups[backupID]
	if !ok {
		return Metadata{}, fmt.Errorf("%w: %s", ErrNotFound, backupID)
	}
	return metadata, nil
}

// Restore writes a backup to targetPath, or to its original path when
// targetPath is empty. The backup is verified first.
func (s *Store) Restore(backupID, targetPath string) (string, error) {
	metadata, err := s.Get(backupID)
	if err != nil {
		return "", err
	}
	if targetPath == "" {
		targetPath = metadata.SourcePath
	}

	// #nosec G304 - BackupPath comes from the store's own index
	content, err := os.ReadFile(metadata.BackupPath)
	if err != nil {
		return "", fmt.Errorf("failed to read backup file: %w", err)
	}
	hash := sha256.Sum256(content)
	if hex.EncodeToString(hash[:]) != metadata.Hash {
		return "", fmt.Errorf("backup file corrupted: hash mismatch")
	}

	if err := os.MkdirAll(filepath.Dir(targetPath), DirPerm); err != nil {
		return "", fmt.Errorf("failed to create target directory: %w", err)
	}
	if err := os.WriteFile(targetPath, content, FilePerm); err != nil {
		return "", fmt.Errorf("failed to write target file: %w", err)
	}
	return targetPath, nil
}

// List returns backups newest first, optionally only those of profile.
func (s *Store) List(profile string) ([]Metadata, error) {
	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}

	backups := index.sorted()
	if profile == "" {
		return backups, nil
	}
	filtered := make([]Metadata, 0, len(backups))
	for _, b := range backups {
		if b.Profile == profile {
			filtered = append(filtered, b)
		}
	}
	return filtered, nil
}

// History returns the backups of one source file, newest first.
func (s *Store) History(sourcePath string) ([]Metadata, error) {
	backups, err := s.List("")
	if err != nil {
		return nil, err
	}
	var history []Metadata
	for _, b := range backups {
		if b.SourcePath == sourcePath {
			history = append(history, b)
		}
	}
	return history, nil
}

// Delete removes a backup file and its index entry.
func (s *Store) Delete(backupID string) error {
	index, err := s.loadIndex()
	if err != nil {
		return err
	}
	if err := s.deleteFrom(index, backupID); err != nil {
		return err
	}
	return s.saveIndex(index)
}

func (s *Store) deleteFrom(index *Index, backupID string) error {
	metadata, ok := index.Backups[backupID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, backupID)
	}
	if err := os.Remove(metadata.BackupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete backup file: %w", err)
	}
	delete(index.Backups, backupID)
	return nil
}

// Verify checks that a backup file is present and matches its hash.
func (s *Store) Verify(backupID string) (err error) {
	metadata, err := s.Get(backupID)
	if err != nil {
		return err
	}

	// #nosec G304 - BackupPath comes from the store's own index
	file, err := os.Open(metadata.BackupPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("backup file missing: %s", metadata.BackupPath)
		}
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close backup file: %w", closeErr)
		}
	}()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return fmt.Errorf("failed to read backup file: %w", err)
	}

	hashStr := hex.EncodeToString(hash.Sum(nil))
	if hashStr != metadata.Hash {
		return fmt.Errorf("backup file corrupted: hash mismatch (expected %s, got %s)", metadata.Hash, hashStr)
	}
	return nil
}

func profileDirName(profile string) string {
	if profile == "" {
		return "default"
	}
	return profile
}
