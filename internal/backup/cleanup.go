package backup

import (
	"time"
)

// CleanupOptions configures backup retention.
type CleanupOptions struct {
	// MaxPerFile limits the number of backups kept per source file
	// (0 = unlimited).
	MaxPerFile int

	// MaxAge is the maximum age of backups to keep (0 = unlimited).
	MaxAge time.Duration

	// KeepAtLeastOne keeps the newest backup of every source file even
	// when it is too old.
	KeepAtLeastOne bool

	// Profile limits cleanup to one profile (empty = all profiles).
	Profile string

	// DryRun reports what would be deleted without deleting.
	DryRun bool
}

// DefaultCleanupOptions returns the retention used after every sync.
func DefaultCleanupOptions() CleanupOptions {
	return CleanupOptions{
		MaxPerFile:     10,
		MaxAge:         30 * 24 * time.Hour,
		KeepAtLeastOne: true,
	}
}

// Cleanup removes backups that fall outside opts and returns their IDs.
func (s *Store) Cleanup(opts CleanupOptions) ([]string, error) {
	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}

	// Newest first, grouped by source file.
	groups := make(map[string][]Metadata)
	var order []string
	for _, b := range index.sorted() {
		if opts.Profile != "" && b.Profile != opts.Profile {
			continue
		}
		key := b.Profile + ":" + b.SourcePath
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], b)
	}

	now := s.now()
	var toDelete []string
	for _, key := range order {
		var doomed []string
		kept := 0
		for i, b := range groups[key] {
			expired := opts.MaxAge > 0 && now.Sub(b.CreatedAt) > opts.MaxAge
			overLimit := opts.MaxPerFile > 0 && i >= opts.MaxPerFile
			if expired || overLimit {
				doomed = append(doomed, b.ID)
				continue
			}
			kept++
		}
		if opts.KeepAtLeastOne && kept == 0 && len(doomed) > 0 {
			doomed = doomed[1:]
		}
		toDelete = append(toDelete, doomed...)
	}

	if opts.DryRun || len(toDelete) == 0 {
		return toDelete, nil
	}

	var deleted []string
	for _, id := range toDelete {
		if err := s.deleteFrom(index, id); err != nil {
			_ = s.saveIndex(index)
			return deleted, err
		}
		deleted = append(deleted, id)
	}
	return deleted, s.saveIndex(index)
}

// Stats summarizes a store.
type Stats struct {
	TotalBackups     int
	TotalSize        int64
	BackupsByProfile map[string]int
	OldestBackup     time.Time
	NewestBackup     time.Time
}

// Stats returns counts and sizes for the whole store.
func (s *Store) Stats() (*Stats, error) {
	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalBackups:     len(index.Backups),
		BackupsByProfile: make(map[string]int),
	}
	for _, b := range index.Backups {
		stats.TotalSize += b.Size
		stats.BackupsByProfile[b.Profile]++
		if stats.OldestBackup.IsZero() || b.CreatedAt.Before(stats.OldestBackup) {
			stats.OldestBackup = b.CreatedAt
		}
		if b.CreatedAt.After(stats.NewestBackup) {
			stats.NewestBackup = b.CreatedAt
		}
	}
	return stats, nil
}
