package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/klauern/docsync/internal/remote"
)

func TestStorePutAndGet(t *testing.T) {
	ctx := context.Background()
	s := New()

	info, err := s.PutContent(ctx, "Docs/a", "one", "first", nil)
	if err != nil {
		t.Fatalf("PutContent() error = %v", err)
	}
	if info.Version != 1 {
		t.Errorf("Version = %d, want 1", info.Version)
	}

	v := 1
	if _, err := s.PutContent(ctx, "Docs/a", "two", "second", &v); err != nil {
		t.Fatalf("PutContent(rev 1) error = %v", err)
	}

	got, err := s.GetContent(ctx, "Docs/a", nil)
	if err != nil || got != "two" {
		t.Errorf("GetContent(latest) = %q, %v; want two", got, err)
	}
	old, err := s.GetContent(ctx, "Docs/a", &v)
	if err != nil || old != "one" {
		t.Errorf("GetContent(rev 1) = %q, %v; want one", old, err)
	}
	if s.Writes() != 2 {
		t.Errorf("Writes() = %d, want 2", s.Writes())
	}
	if s.Comment("Docs/a") != "second" {
		t.Errorf("Comment() = %q, want second", s.Comment("Docs/a"))
	}
}

func TestStoreOptimisticConcurrency(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Seed("Docs/a", "one")
	s.Seed("Docs/a", "two")

	stale := 1
	_, err := s.PutContent(ctx, "Docs/a", "three", "", &stale)
	var fault *remote.Fault
	if !errors.As(err, &fault) {
		t.Fatalf("PutContent(stale) error = %v, want *remote.Fault", err)
	}
	if _, err := s.PutContent(ctx, "Docs/a", "three", "", nil); err == nil {
		t.Error("PutContent(nil rev) on existing page expected error")
	}
}

func TestStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, err := s.GetContent(ctx, "missing", nil); !remote.IsNotFound(err) {
		t.Errorf("GetContent(missing) error = %v, want not found", err)
	}
	s.Seed("Docs/a", "x")
	v := 9
	if _, err := s.GetInfo(ctx, "Docs/a", &v); !remote.IsNotFound(err) {
		t.Errorf("GetInfo(rev 9) error = %v, want not found", err)
	}
}

func TestIsNotFoundFaultMessages(t *testing.T) {
	tests := map[string]struct {
		err  error
		want bool
	}{
		"sentinel":        {err: remote.ErrNotFound, want: true},
		"trac fault":      {err: &remote.Fault{Code: 1, Message: "Wiki page \"X\" does not exist"}, want: true},
		"permission":      {err: &remote.Fault{Code: 403, Message: "WIKI_VIEW privileges are required"}, want: false},
		"unrelated error": {err: errors.New("connection reset"), want: false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := remote.IsNotFound(tt.err); got != tt.want {
				t.Errorf("IsNotFound(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
