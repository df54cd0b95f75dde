// Package e2e provides testing infrastructure for end-to-end CLI tests.
// It runs docsync commands in an isolated workspace against an in-process
// fake Trac wiki.
package e2e

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauern/docsync/internal/cli"
)

// Profile is the profile name written by NewHarness.
const Profile = "docs"

// Result contains the outcome of running a CLI command.
type Result struct {
	// Stdout contains the captured standard output.
	Stdout string
	// Err is the error returned by the CLI command, if any.
	Err error
	// ExitCode is the inferred exit code (0 for success, 1 for error).
	ExitCode int
}

// Success returns true if the command completed without error.
func (r *Result) Success() bool {
	return r.Err == nil
}

// Harness provides a test harness for running E2E CLI tests.
// It manages environment isolation, the workspace and output capture.
type Harness struct {
	t          *testing.T
	workDir    string
	configPath string
	wiki       *FakeWiki
}

// NewHarness creates a workspace holding an empty docs/ tree and a config
// file whose "docs" profile maps docs/ onto the Docs/ namespace of a fresh
// fake wiki. Extra YAML lines are appended to the profile.
func NewHarness(t *testing.T, profileYAML ...string) *Harness {
	t.Helper()

	workDir := t.TempDir()
	t.Chdir(workDir)
	for _, key := range []string{
		"DOCSYNC_CONFIG", "DOCSYNC_REMOTE_URL", "DOCSYNC_REMOTE_USERNAME",
		"DOCSYNC_REMOTE_PASSWORD", "DOCSYNC_STATE_DIR", "DOCSYNC_BACKUP_ENABLED",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("NO_COLOR", "1")

	wiki := NewFakeWiki()
	srv := httptest.NewServer(wiki)
	t.Cleanup(srv.Close)

	h := &Harness{
		t:          t,
		workDir:    workDir,
		configPath: filepath.Join(workDir, "docsync.yaml"),
		wiki:       wiki,
	}

	var extra string
	for _, line := range profileYAML {
		extra += "    " + line + "\n"
	}
	h.Workspace().MkdirAll("docs")
	h.Workspace().WriteFile("docsync.yaml", fmt.Sprintf(`remote:
  url: %s/rpc
  username: bot
default_profile: %s
sync:
  %s:
    source: docs
    destination: Docs
    format: tracwiki
    git_safety: none
    state_dir: .docsync
%s`, srv.URL, Profile, Profile, extra))

	return h
}

// WorkDir returns the workspace directory, which is also the working
// directory of every command.
func (h *Harness) WorkDir() string {
	return h.workDir
}

// Wiki returns the fake wiki the workspace syncs with.
func (h *Harness) Wiki() *FakeWiki {
	return h.wiki
}

// Workspace returns a fixture rooted at the workspace.
func (h *Harness) Workspace() *Fixture {
	return NewFixture(h.t, h.workDir)
}

// Docs returns a fixture rooted at the profile's source tree.
func (h *Harness) Docs() *Fixture {
	return NewFixture(h.t, filepath.Join(h.workDir, "docs"))
}

// Run executes a CLI command with the given arguments and captures the output.
func (h *Harness) Run(args ...string) *Result {
	h.t.Helper()
	return h.run(args)
}

// RunWithStdin executes a CLI command with stdin input and captures output.
// This is useful for testing commands that prompt.
func (h *Harness) RunWithStdin(stdin string, args ...string) *Result {
	h.t.Helper()

	oldStdin := os.Stdin
	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		h.t.Fatalf("failed to create stdin pipe: %v", err)
	}
	go func() {
		defer func() {
			_ = stdinW.Close()
		}()
		_, _ = stdinW.WriteString(stdin)
	}()
	os.Stdin = stdinR
	defer func() {
		os.Stdin = oldStdin
		_ = stdinR.Close()
	}()

	return h.run(args)
}

func (h *Harness) run(args []string) *Result {
	h.t.Helper()

	full := append([]string{"docsync", "--no-color", "--config", h.configPath}, args...)

	oldStdout := os.Stdout
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		h.t.Fatalf("failed to create stdout pipe: %v", err)
	}
	os.Stdout = stdoutW

	// Read concurrently so output larger than the pipe buffer cannot
	// block the command.
	var stdoutBuf bytes.Buffer
	var copyErr error
	copyDone := make(chan struct{})
	go func() {
		defer close(copyDone)
		_, copyErr = io.Copy(&stdoutBuf, stdoutR)
	}()

	cmdErr := cli.Run(context.Background(), full)

	if err := stdoutW.Close(); err != nil {
		h.t.Fatalf("failed to close stdout pipe writer: %v", err)
	}
	os.Stdout = oldStdout

	<-copyDone
	if copyErr != nil {
		h.t.Fatalf("failed to read captured stdout: %v", copyErr)
	}

	exitCode := 0
	if cmdErr != nil {
		exitCode = 1
	}
	return &Result{
		Stdout:   stdoutBuf.String(),
		Err:      cmdErr,
		ExitCode: exitCode,
	}
}
