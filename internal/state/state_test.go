package state

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestContentHashNormalization(t *testing.T) {
	base := ContentHash("# Title\nbody\n")

	tests := map[string]string{
		"bom":                "\ufeff# Title\nbody\n",
		"crlf":               "# Title\r\nbody\r\n",
		"trailing spaces":    "# Title   \nbody\t\n",
		"trailing blanks":    "# Title\nbody\n\n\n\n",
		"no final newline":   "# Title\nbody",
		"everything at once": "\ufeff# Title \r\nbody\r\n\r\n  \r\n",
		"no-break space":     "# Title\u00a0\nbody\n",
		"ideographic space":  "# Title\nbody\u3000\n",
		"unicode blank line": "# Title\nbody\n\u2003\u00a0\n",
		"unit separator":     "# Title\x1f\nbody\n",
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			if got := ContentHash(input); got != base {
				t.Errorf("ContentHash(%q) = %s, want %s", input, got, base)
			}
		})
	}
}

func TestContentHashDistinguishesContent(t *testing.T) {
	if ContentHash("a\nb") == ContentHash("a\n\nb") {
		t.Error("interior blank lines should change the hash")
	}
	if ContentHash("\u00a0indented") == ContentHash("indented") {
		t.Error("leading no-break space should change the hash")
	}
	if ContentHash("  indented") == ContentHash("indented") {
		t.Error("leading whitespace should change the hash")
	}
	if len(ContentHash("")) != 64 {
		t.Errorf("ContentHash length = %d, want 64 hex chars", len(ContentHash("")))
	}
}

func TestContentHashIdempotent(t *testing.T) {
	inputs := []string{"x\r\n\r\n", "\ufeffa  \nb", "", "\n\n"}
	for _, in := range inputs {
		if ContentHash(in) != ContentHash(Normalize(in)) {
			t.Errorf("ContentHash(%q) != ContentHash(Normalize(%q))", in, in)
		}
	}
}

func TestStoreLoadMissing(t *testing.T) {
	store := NewStore(t.TempDir())

	st, err := store.Load("docs")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if st.Version != SchemaVersion {
		t.Errorf("Version = %d, want %d", st.Version, SchemaVersion)
	}
	if st.LastSync != nil {
		t.Errorf("LastSync = %v, want nil", *st.LastSync)
	}
	if st.Profile != "docs" {
		t.Errorf("Profile = %q, want docs", st.Profile)
	}
	if len(st.Entries) != 0 {
		t.Errorf("Entries has %d items, want 0", len(st.Entries))
	}
}

func TestStoreSaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	store := NewStore(dir)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	st := New("docs")
	version := 4
	st.SetEntry("guide/intro.md", Entry{
		RemoteName:    "Docs/intro",
		LocalHash:     HashPtr("local"),
		RemoteHash:    HashPtr("remote"),
		RemoteVersion: &version,
	})

	if err := store.Save("docs", st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "sync_docs.json")); err != nil {
		t.Fatalf("state file not written: %v", err)
	}

	loaded, err := store.Load("docs")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.LastSync == nil || *loaded.LastSync != "2026-03-01T12:00:00Z" {
		t.Errorf("LastSync = %v, want 2026-03-01T12:00:00Z", loaded.LastSync)
	}
	e, ok := loaded.Entry("guide/intro.md")
	if !ok {
		t.Fatal("entry for guide/intro.md missing after reload")
	}
	if e.RemoteName != "Docs/intro" {
		t.Errorf("RemoteName = %q, want Docs/intro", e.RemoteName)
	}
	if e.RemoteVersion == nil || *e.RemoteVersion != 4 {
		t.Errorf("RemoteVersion = %v, want 4", e.RemoteVersion)
	}
	if e.LocalHash == nil || *e.LocalHash != ContentHash("local") {
		t.Error("LocalHash did not survive reload")
	}
	if e.LastSynced == "" {
		t.Error("LastSynced was not stamped")
	}
}

func TestStoreSaveWritesExpectedShape(t *testing.T) {
	store := NewStore(t.TempDir())
	st := New("docs")
	st.SetEntry("a.md", Entry{RemoteName: "Docs/a"})
	if err := store.Save("docs", st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(store.Path("docs"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	for _, key := range []string{`"version"`, `"last_sync"`, `"profile"`, `"entries"`, `"remote_name"`, `"local_hash"`, `"remote_hash"`, `"remote_version"`, `"last_synced"`, `"conflicted"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("state file missing key %s:\n%s", key, data)
		}
	}
}

func TestStoreSaveAtomicOnRenameFailure(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	first := New("docs")
	first.SetEntry("a.md", Entry{RemoteName: "Docs/a"})
	if err := store.Save("docs", first); err != nil {
		t.Fatalf("initial Save() error = %v", err)
	}
	before, err := os.ReadFile(store.Path("docs"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	renameErr := errors.New("rename refused")
	store.rename = func(string, string) error { return renameErr }

	second := New("docs")
	second.SetEntry("b.md", Entry{RemoteName: "Docs/b"})
	err = store.Save("docs", second)
	if !errors.Is(err, renameErr) {
		t.Fatalf("Save() error = %v, want wrapped rename error", err)
	}

	after, err := os.ReadFile(store.Path("docs"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(after) != string(before) {
		t.Errorf("state file changed after failed save:\nbefore: %s\nafter: %s", before, after)
	}

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestStoreLoadCorrupt(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := os.WriteFile(store.Path("docs"), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := store.Load("docs"); err == nil {
		t.Error("Load() of corrupt file expected error")
	}
}

func TestStateAccessors(t *testing.T) {
	st := New("docs")
	st.SetEntry("b.md", Entry{RemoteName: "Docs/b", Conflicted: true})
	st.SetEntry("a.md", Entry{RemoteName: "Docs/a"})

	if !st.IsConflicted("b.md") {
		t.Error("IsConflicted(b.md) = false, want true")
	}
	if st.IsConflicted("a.md") {
		t.Error("IsConflicted(a.md) = true, want false")
	}
	if st.IsConflicted("missing.md") {
		t.Error("IsConflicted(missing.md) = true, want false")
	}

	paths := st.Paths()
	if len(paths) != 2 || paths[0] != "a.md" || paths[1] != "b.md" {
		t.Errorf("Paths() = %v, want [a.md b.md]", paths)
	}
	if got := st.ConflictedPaths(); len(got) != 1 || got[0] != "b.md" {
		t.Errorf("ConflictedPaths() = %v, want [b.md]", got)
	}

	if !st.ClearConflict("b.md") {
		t.Error("ClearConflict(b.md) = false, want true")
	}
	if st.ClearConflict("b.md") {
		t.Error("second ClearConflict(b.md) = true, want false")
	}
	if st.IsConflicted("b.md") {
		t.Error("b.md still conflicted after ClearConflict")
	}

	st.RemoveEntry("a.md")
	if _, ok := st.Entry("a.md"); ok {
		t.Error("a.md still present after RemoveEntry")
	}
}

func TestStoreLock(t *testing.T) {
	store := NewStore(t.TempDir())

	lock, err := store.Lock("docs")
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	if _, err := store.Lock("docs"); !errors.Is(err, ErrLocked) {
		t.Errorf("second Lock() error = %v, want ErrLocked", err)
	}

	other, err := store.Lock("wiki")
	if err != nil {
		t.Fatalf("Lock(wiki) error = %v", err)
	}
	_ = other.Unlock()

	if err := lock.Unlock(); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}

	again, err := store.Lock("docs")
	if err != nil {
		t.Fatalf("Lock() after Unlock error = %v", err)
	}
	_ = again.Unlock()
}
