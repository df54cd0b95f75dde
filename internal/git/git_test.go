package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(dir))
	cmd := exec.Command("git", "init", "-q", dir)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git init: %v: %s", err, out)
	}
	return dir
}

func TestHasUncommittedChanges(t *testing.T) {
	requireGit(t)
	dir := initRepo(t)
	ctx := context.Background()
	c := Checker{}

	dirty, err := c.HasUncommittedChanges(ctx, dir)
	if err != nil {
		t.Fatalf("HasUncommittedChanges() error = %v", err)
	}
	if dirty {
		t.Error("HasUncommittedChanges() = true for a fresh repository")
	}

	if err := os.WriteFile(filepath.Join(dir, "readme.md"), []byte("# Hi\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	dirty, err = c.HasUncommittedChanges(ctx, dir)
	if err != nil {
		t.Fatalf("HasUncommittedChanges() error = %v", err)
	}
	if !dirty {
		t.Error("HasUncommittedChanges() = false with an untracked file")
	}
}

func TestHasUncommittedChangesNotARepository(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(dir))

	_, err := Checker{}.HasUncommittedChanges(context.Background(), dir)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("HasUncommittedChanges() error = %v, want ErrUnavailable", err)
	}
}

func TestHasUncommittedChangesMissingBinary(t *testing.T) {
	c := Checker{Binary: "docsync-no-such-git"}
	_, err := c.HasUncommittedChanges(context.Background(), t.TempDir())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("HasUncommittedChanges() error = %v, want ErrUnavailable", err)
	}
}

func TestHasUncommittedChangesTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script")
	}
	bin := filepath.Join(t.TempDir(), "slowgit")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\nexec sleep 5\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	c := Checker{Binary: bin, Timeout: 50 * time.Millisecond}
	start := time.Now()
	_, err := c.HasUncommittedChanges(context.Background(), t.TempDir())
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("HasUncommittedChanges() error = %v, want ErrTimeout", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Errorf("check took %s, expected the timeout to cut it short", time.Since(start))
	}
}
