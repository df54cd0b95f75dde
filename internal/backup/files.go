package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/klauern/docsync/internal/fileio"
	"github.com/klauern/docsync/internal/logging"
)

// Files is a fileio.Store that backs up a file's current content before
// overwriting it with different text. New files are written as is.
type Files struct {
	inner fileio.Store
	store *Store
	opts  Options
	log   *slog.Logger

	created []Metadata
}

var _ fileio.Store = (*Files)(nil)

// NewFiles wraps inner. A nil logger discards.
func NewFiles(inner fileio.Store, store *Store, opts Options, log *slog.Logger) *Files {
	if log == nil {
		log = logging.Discard()
	}
	return &Files{inner: inner, store: store, opts: opts, log: log}
}

// Read implements fileio.Store.
func (f *Files) Read(path string) (string, error) {
	return f.inner.Read(path)
}

// Write implements fileio.Store. The write is refused when the backup
// cannot be made.
func (f *Files) Write(path, text string) error {
	current, err := f.inner.Read(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read before backup: %w", err)
	case current != text:
		m, err := f.store.Create(path, f.opts)
		if err != nil {
			return fmt.Errorf("backup %s: %w", path, err)
		}
		f.created = append(f.created, *m)
		f.log.Debug("backed up local file", logging.Path(path), slog.String("backup_id", m.ID))
	}
	return f.inner.Write(path, text)
}

// Created returns the backups made through f.
func (f *Files) Created() []Metadata {
	return append([]Metadata(nil), f.created...)
}
