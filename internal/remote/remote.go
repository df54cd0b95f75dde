// Package remote defines the contract for the remote page store that
// documents are synchronized with.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a page (or page revision) does not exist.
var ErrNotFound = errors.New("page not found")

// Fault is an error reported by the remote server.
type Fault struct {
	Code    int
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("remote fault %d: %s", f.Code, f.Message)
}

// IsNotFound reports whether err means "the page is absent". Server
// faults that say the page does not exist count as not found.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var f *Fault
	if errors.As(err, &f) {
		msg := strings.ToLower(f.Message)
		return strings.Contains(msg, "does not exist") || strings.Contains(msg, "not found")
	}
	return false
}

// PageInfo describes one revision of a page.
type PageInfo struct {
	Name         string    `json:"name"`
	Version      int       `json:"version"`
	Author       string    `json:"author,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store is the remote collection of named pages.
//
// rev selects a specific revision where it is accepted; nil means the
// latest. For PutContent rev is the revision the caller last saw and is
// used for optimistic concurrency; nil creates a new page.
type Store interface {
	ListNames(ctx context.Context) ([]string, error)
	GetContent(ctx context.Context, name string, rev *int) (string, error)
	GetInfo(ctx context.Context, name string, rev *int) (PageInfo, error)
	PutContent(ctx context.Context, name, text, comment string, rev *int) (PageInfo, error)
}
