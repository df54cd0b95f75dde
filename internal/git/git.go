// Package git inspects the working tree that holds the local documents.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a single status check.
const DefaultTimeout = 10 * time.Second

var (
	// ErrTimeout is returned when git did not answer within the timeout.
	ErrTimeout = errors.New("git status timed out")
	// ErrUnavailable is returned when git is not installed or the
	// directory is not inside a repository.
	ErrUnavailable = errors.New("git is not available")
)

// Checker runs git status against a directory.
type Checker struct {
	// Timeout bounds each check. Zero means DefaultTimeout.
	Timeout time.Duration
	// Binary overrides the git executable name.
	Binary string
}

// HasUncommittedChanges reports whether `git status --porcelain` prints
// anything for dir.
func (c Checker) HasUncommittedChanges(ctx context.Context, dir string) (bool, error) {
	bin := c.Binary
	if bin == "" {
		bin = "git"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return false, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	// #nosec G204 - binary is git or an explicit test override
	cmd := exec.CommandContext(ctx, bin, "status", "--porcelain")
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return false, fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		return false, fmt.Errorf("%w: %q: %w", ErrUnavailable, strings.TrimSpace(stderr.String()), err)
	}
	return strings.TrimSpace(stdout.String()) != "", nil
}
