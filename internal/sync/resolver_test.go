package sync

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/klauern/docsync/internal/model"
)

func conflictInfo(base *string, local, remote string) *model.ConflictInfo {
	return &model.ConflictInfo{
		LocalPath:  "guide.md",
		RemoteName: "Docs/guide",
		Action:     model.ActionConflict,
		Base:       base,
		Local:      local,
		Remote:     remote,
	}
}

func ptr[T any](v T) *T {
	return &v
}

func TestNewResolver(t *testing.T) {
	tests := map[Strategy]string{
		StrategyInteractive: "*sync.Interactive",
		StrategyMarkers:     "*sync.MarkInFile",
		StrategyLocalWins:   "sync.PreferLocal",
		StrategyRemoteWins:  "sync.PreferRemote",
	}
	for strategy, want := range tests {
		t.Run(string(strategy), func(t *testing.T) {
			r, err := NewResolver(strategy, nil)
			if err != nil {
				t.Fatalf("NewResolver(%q) error = %v", strategy, err)
			}
			if got := typeName(r); got != want {
				t.Errorf("NewResolver(%q) = %s, want %s", strategy, got, want)
			}
		})
	}

	if _, err := NewResolver("newest", nil); err == nil {
		t.Error("NewResolver(newest) expected error")
	}
}

func typeName(r Resolver) string {
	switch r.(type) {
	case *Interactive:
		return "*sync.Interactive"
	case *MarkInFile:
		return "*sync.MarkInFile"
	case PreferLocal:
		return "sync.PreferLocal"
	case PreferRemote:
		return "sync.PreferRemote"
	default:
		return "unknown"
	}
}

func TestPreferLocalAndRemote(t *testing.T) {
	ctx := context.Background()
	info := conflictInfo(nil, "mine", "theirs")

	res, err := PreferLocal{}.Resolve(ctx, info)
	if err != nil || res != model.ResolutionLocal {
		t.Fatalf("PreferLocal.Resolve() = %v, %v", res, err)
	}
	if got, ok := (PreferLocal{}).ResolvedContent(info, res); !ok || got != "mine" {
		t.Errorf("PreferLocal.ResolvedContent() = %q, %v", got, ok)
	}

	res, err = PreferRemote{}.Resolve(ctx, info)
	if err != nil || res != model.ResolutionRemote {
		t.Fatalf("PreferRemote.Resolve() = %v, %v", res, err)
	}
	if got, ok := (PreferRemote{}).ResolvedContent(info, res); !ok || got != "theirs" {
		t.Errorf("PreferRemote.ResolvedContent() = %q, %v", got, ok)
	}

	if _, ok := (PreferRemote{}).ResolvedContent(info, model.ResolutionSkip); ok {
		t.Error("ResolvedContent(skip) ok = true, want false")
	}
}

func TestMarkInFile(t *testing.T) {
	ctx := context.Background()

	t.Run("clean merge", func(t *testing.T) {
		r := NewMarkInFile()
		info := conflictInfo(ptr("a\nb\nc"), "A\nb\nc", "a\nb\nC")

		res, err := r.Resolve(ctx, info)
		if err != nil || res != model.ResolutionMerged {
			t.Fatalf("Resolve() = %v, %v, want merged", res, err)
		}
		got, ok := r.ResolvedContent(info, res)
		if !ok || got != "A\nb\nC" {
			t.Errorf("ResolvedContent() = %q, %v", got, ok)
		}
		if len(r.Pending()) != 0 {
			t.Errorf("Pending() = %d, want 0", len(r.Pending()))
		}
	})

	t.Run("conflicting merge", func(t *testing.T) {
		r := NewMarkInFile()
		info := conflictInfo(ptr("a\nb"), "a\nlocal", "a\nremote")

		res, err := r.Resolve(ctx, info)
		if err != nil || res != model.ResolutionMarkers {
			t.Fatalf("Resolve() = %v, %v, want markers", res, err)
		}
		if !info.HasMarkers {
			t.Error("HasMarkers = false after conflicting merge")
		}
		got, _ := r.ResolvedContent(info, res)
		if !strings.Contains(got, MarkerLocal+"\nlocal\n"+MarkerSeparator+"\nremote\n"+MarkerRemote) {
			t.Errorf("ResolvedContent() = %q", got)
		}
		if len(r.Pending()) != 1 {
			t.Errorf("Pending() = %d, want 1", len(r.Pending()))
		}
	})

	t.Run("no base", func(t *testing.T) {
		r := NewMarkInFile()
		info := conflictInfo(nil, "L", "R")

		res, err := r.Resolve(ctx, info)
		if err != nil || res != model.ResolutionMarkers {
			t.Fatalf("Resolve() = %v, %v, want markers", res, err)
		}
		got, _ := r.ResolvedContent(info, res)
		if got != WholeFileMarkers("L", "R") {
			t.Errorf("ResolvedContent() = %q", got)
		}
	})
}

func TestInteractive(t *testing.T) {
	ctx := context.Background()

	t.Run("clean merge needs no prompt", func(t *testing.T) {
		asked := false
		r := NewInteractive(PromptFunc(func(context.Context, *model.ConflictInfo) (model.Resolution, error) {
			asked = true
			return model.ResolutionSkip, nil
		}))
		info := conflictInfo(ptr("a\nb\nc"), "A\nb\nc", "a\nb\nC")

		res, err := r.Resolve(ctx, info)
		if err != nil || res != model.ResolutionMerged {
			t.Fatalf("Resolve() = %v, %v, want merged", res, err)
		}
		if asked {
			t.Error("prompter called for a clean merge")
		}
	})

	t.Run("no prompter skips", func(t *testing.T) {
		r := NewInteractive(nil)
		info := conflictInfo(nil, "L", "R")

		res, err := r.Resolve(ctx, info)
		if err != nil || res != model.ResolutionSkip {
			t.Fatalf("Resolve() = %v, %v, want skip", res, err)
		}
		if _, ok := r.ResolvedContent(info, res); ok {
			t.Error("ResolvedContent(skip) ok = true")
		}
		pending := r.Pending()
		if len(pending) != 1 || pending[0].LocalPath != "guide.md" {
			t.Errorf("Pending() = %+v", pending)
		}
		if pending[0].Merged == nil || !pending[0].HasMarkers {
			t.Error("pending conflict has no merge preview")
		}
	})

	t.Run("prompter picks remote", func(t *testing.T) {
		r := NewInteractive(PromptFunc(func(_ context.Context, info *model.ConflictInfo) (model.Resolution, error) {
			if info.Merged == nil {
				t.Error("prompter saw no merge preview")
			}
			return model.ResolutionRemote, nil
		}))
		info := conflictInfo(ptr("a\nb"), "a\nlocal", "a\nremote")

		res, err := r.Resolve(ctx, info)
		if err != nil || res != model.ResolutionRemote {
			t.Fatalf("Resolve() = %v, %v, want remote", res, err)
		}
		if got, _ := r.ResolvedContent(info, res); got != "a\nremote" {
			t.Errorf("ResolvedContent() = %q", got)
		}
		if len(r.Pending()) != 0 {
			t.Errorf("Pending() = %d, want 0", len(r.Pending()))
		}
	})

	t.Run("unsupported choice", func(t *testing.T) {
		r := NewInteractive(PromptFunc(func(context.Context, *model.ConflictInfo) (model.Resolution, error) {
			return model.ResolutionMarkers, nil
		}))
		if _, err := r.Resolve(ctx, conflictInfo(nil, "L", "R")); err == nil {
			t.Error("Resolve() expected error for markers choice")
		}
	})

	t.Run("prompt error", func(t *testing.T) {
		boom := errors.New("stdin closed")
		r := NewInteractive(PromptFunc(func(context.Context, *model.ConflictInfo) (model.Resolution, error) {
			return "", boom
		}))
		if _, err := r.Resolve(ctx, conflictInfo(nil, "L", "R")); !errors.Is(err, boom) {
			t.Errorf("Resolve() error = %v, want %v", err, boom)
		}
	})
}
