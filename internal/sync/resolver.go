package sync

import (
	"context"
	"fmt"
	gosync "sync"

	"github.com/klauern/docsync/internal/logging"
	"github.com/klauern/docsync/internal/model"
)

// Resolver decides how a conflicted pair is settled.
type Resolver interface {
	// Resolve picks a resolution. It may fill in info.Merged and
	// info.HasMarkers.
	Resolve(ctx context.Context, info *model.ConflictInfo) (model.Resolution, error)

	// ResolvedContent returns the local-format text to write for res. The
	// bool is false when nothing should be written.
	ResolvedContent(info *model.ConflictInfo, res model.Resolution) (string, bool)
}

// Prompter asks a human to settle a conflict. Implementations must return
// local, remote or skip.
type Prompter interface {
	Choose(ctx context.Context, info *model.ConflictInfo) (model.Resolution, error)
}

// PromptFunc adapts a function to the Prompter interface.
type PromptFunc func(ctx context.Context, info *model.ConflictInfo) (model.Resolution, error)

// Choose calls f.
func (f PromptFunc) Choose(ctx context.Context, info *model.ConflictInfo) (model.Resolution, error) {
	return f(ctx, info)
}

// NewResolver returns the resolver for strategy. prompter is only used by
// the interactive strategy and may be nil.
func NewResolver(strategy Strategy, prompter Prompter) (Resolver, error) {
	switch strategy {
	case StrategyInteractive:
		return NewInteractive(prompter), nil
	case StrategyMarkers:
		return NewMarkInFile(), nil
	case StrategyLocalWins:
		return PreferLocal{}, nil
	case StrategyRemoteWins:
		return PreferRemote{}, nil
	default:
		return nil, fmt.Errorf("unknown conflict strategy: %q (want one of %v)", strategy, AllStrategies())
	}
}

// PreferLocal always keeps the local document.
type PreferLocal struct{}

// Resolve implements Resolver.
func (PreferLocal) Resolve(context.Context, *model.ConflictInfo) (model.Resolution, error) {
	return model.ResolutionLocal, nil
}

// ResolvedContent implements Resolver.
func (PreferLocal) ResolvedContent(info *model.ConflictInfo, res model.Resolution) (string, bool) {
	return resolvedContent(nil, info, res)
}

// PreferRemote always takes the remote page.
type PreferRemote struct{}

// Resolve implements Resolver.
func (PreferRemote) Resolve(context.Context, *model.ConflictInfo) (model.Resolution, error) {
	return model.ResolutionRemote, nil
}

// ResolvedContent implements Resolver.
func (PreferRemote) ResolvedContent(info *model.ConflictInfo, res model.Resolution) (string, bool) {
	return resolvedContent(nil, info, res)
}

// MarkInFile merges when it can and otherwise leaves conflict markers in
// the local file. Every pair it flags is remembered for follow-up.
type MarkInFile struct {
	merger *Merger

	mu      gosync.Mutex
	flagged []model.ConflictInfo
}

// NewMarkInFile returns a MarkInFile resolver.
func NewMarkInFile() *MarkInFile {
	return &MarkInFile{merger: NewMerger()}
}

// Resolve implements Resolver.
func (r *MarkInFile) Resolve(_ context.Context, info *model.ConflictInfo) (model.Resolution, error) {
	if info.HasBase() {
		result := r.merger.ThreeWayMerge(*info.Base, info.Local, info.Remote)
		info.Merged = &result.Content
		info.HasMarkers = result.HasConflictMarkers
		if result.Success {
			logging.Info("clean three-way merge", logging.Path(info.LocalPath))
			return model.ResolutionMerged, nil
		}
		logging.Info("conflict markers written", logging.Path(info.LocalPath), logging.Count(len(result.Conflicts)))
	} else {
		logging.Warn("no merge base, marking whole file", logging.Path(info.LocalPath))
		content := WholeFileMarkers(info.Local, info.Remote)
		info.Merged = &content
		info.HasMarkers = true
	}

	r.mu.Lock()
	r.flagged = append(r.flagged, *info)
	r.mu.Unlock()
	return model.ResolutionMarkers, nil
}

// ResolvedContent implements Resolver.
func (r *MarkInFile) ResolvedContent(info *model.ConflictInfo, res model.Resolution) (string, bool) {
	return resolvedContent(r.merger, info, res)
}

// Pending returns the conflicts that were left with markers.
func (r *MarkInFile) Pending() []model.ConflictInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ConflictInfo(nil), r.flagged...)
}

// Interactive merges cleanly when a base exists and otherwise defers to a
// Prompter. Conflicts that end up skipped are remembered so they can be
// shown to the user after the run.
type Interactive struct {
	merger   *Merger
	prompter Prompter

	mu      gosync.Mutex
	pending []model.ConflictInfo
}

// NewInteractive returns an interactive resolver. A nil prompter skips
// every conflict that cannot be merged automatically.
func NewInteractive(p Prompter) *Interactive {
	return &Interactive{merger: NewMerger(), prompter: p}
}

// Resolve implements Resolver.
func (r *Interactive) Resolve(ctx context.Context, info *model.ConflictInfo) (model.Resolution, error) {
	var preview MergeResult
	if info.HasBase() {
		preview = r.merger.ThreeWayMerge(*info.Base, info.Local, info.Remote)
		if preview.Success {
			info.Merged = &preview.Content
			info.HasMarkers = false
			logging.Info("clean three-way merge", logging.Path(info.LocalPath))
			return model.ResolutionMerged, nil
		}
	} else {
		preview = r.merger.TwoWayMerge(info.Local, info.Remote)
	}
	info.Merged = &preview.Content
	info.HasMarkers = preview.HasConflictMarkers

	if r.prompter == nil {
		logging.Info("conflict pending review", logging.Path(info.LocalPath))
		r.remember(info)
		return model.ResolutionSkip, nil
	}

	choice, err := r.prompter.Choose(ctx, info)
	if err != nil {
		return "", fmt.Errorf("prompt for %s: %w", info.LocalPath, err)
	}
	switch choice {
	case model.ResolutionLocal, model.ResolutionRemote:
		return choice, nil
	case model.ResolutionSkip:
		r.remember(info)
		return choice, nil
	default:
		return "", fmt.Errorf("prompt for %s returned unsupported resolution %q", info.LocalPath, choice)
	}
}

// ResolvedContent implements Resolver.
func (r *Interactive) ResolvedContent(info *model.ConflictInfo, res model.Resolution) (string, bool) {
	return resolvedContent(r.merger, info, res)
}

// Pending returns the conflicts left unresolved.
func (r *Interactive) Pending() []model.ConflictInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ConflictInfo(nil), r.pending...)
}

func (r *Interactive) remember(info *model.ConflictInfo) {
	r.mu.Lock()
	r.pending = append(r.pending, *info)
	r.mu.Unlock()
}

func resolvedContent(m *Merger, info *model.ConflictInfo, res model.Resolution) (string, bool) {
	switch res {
	case model.ResolutionLocal:
		return info.Local, true
	case model.ResolutionRemote:
		return info.Remote, true
	case model.ResolutionMerged, model.ResolutionMarkers:
		if info.Merged != nil {
			return *info.Merged, true
		}
		if info.HasBase() {
			if m == nil {
				m = NewMerger()
			}
			return m.ThreeWayMerge(*info.Base, info.Local, info.Remote).Content, true
		}
		if res == model.ResolutionMarkers {
			return WholeFileMarkers(info.Local, info.Remote), true
		}
		return "", false
	default:
		return "", false
	}
}
