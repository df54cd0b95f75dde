package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/klauern/docsync/internal/logging"
	"github.com/klauern/docsync/internal/model"
	"github.com/klauern/docsync/internal/state"
)

// execute performs action for one pair. It is the only place that
// dispatches on SyncAction.
func (e *Engine) execute(ctx context.Context, st *state.State, pair model.SyncPair, action model.SyncAction, ps pairState, log *slog.Logger) model.SyncResult {
	log = log.With(logging.Action(action))

	switch action {
	case model.ActionSkip:
		return note(pair, action, "")
	case model.ActionPush, model.ActionCreateRemote:
		return e.push(ctx, st, pair, action, ps, log)
	case model.ActionPull, model.ActionCreateLocal:
		return e.pull(st, pair, action, ps, log)
	case model.ActionDeleteRemote, model.ActionDeleteLocal:
		log.Info("delete propagation disabled")
		return note(pair, action, NoteDeleteDisabled)
	case model.ActionConflict:
		return e.conflict(ctx, st, pair, ps, log)
	default:
		return failure(pair, action, fmt.Errorf("unhandled action %s", action))
	}
}

func (e *Engine) push(ctx context.Context, st *state.State, pair model.SyncPair, action model.SyncAction, ps pairState, log *slog.Logger) model.SyncResult {
	if ps.local == nil {
		return failure(pair, action, errors.New("no local content to push"))
	}

	var rev *int
	if action == model.ActionPush {
		rev = ps.remoteVersion
	}

	hash, version, err := e.write(ctx, pair, e.conv.ToRemote(*ps.local), rev)
	if err != nil {
		return failure(pair, action, err)
	}

	if err := e.persist(st, pair.LocalPath, state.Entry{
		RemoteName:    pair.RemoteName,
		LocalHash:     ps.localHash,
		RemoteHash:    hash,
		RemoteVersion: version,
	}); err != nil {
		return failure(pair, action, err)
	}

	log.Info("pushed", slog.Any("version", deref(version)))
	return note(pair, action, "")
}

func (e *Engine) pull(st *state.State, pair model.SyncPair, action model.SyncAction, ps pairState, log *slog.Logger) model.SyncResult {
	if ps.remote == nil {
		return failure(pair, action, errors.New("no remote content to pull"))
	}

	text, warnings := e.conv.ToLocal(*ps.remote)
	if err := e.files.Write(e.localPath(pair), text); err != nil {
		res := failure(pair, action, fmt.Errorf("write local %s: %w", pair.LocalPath, err))
		res.Warnings = warnings
		return res
	}

	if err := e.persist(st, pair.LocalPath, state.Entry{
		RemoteName:    pair.RemoteName,
		LocalHash:     state.HashPtr(text),
		RemoteHash:    ps.remoteHash,
		RemoteVersion: ps.remoteVersion,
	}); err != nil {
		return failure(pair, action, err)
	}

	for _, w := range warnings {
		log.Warn("lossy conversion", slog.String("warning", w))
	}
	log.Info("pulled")
	res := note(pair, action, "")
	res.Warnings = warnings
	return res
}

func (e *Engine) conflict(ctx context.Context, st *state.State, pair model.SyncPair, ps pairState, log *slog.Logger) model.SyncResult {
	action := model.ActionConflict

	info := &model.ConflictInfo{
		LocalPath:  pair.LocalPath,
		RemoteName: pair.RemoteName,
		Action:     action,
		Base:       e.baseContent(ctx, pair, ps, log),
		Local:      deref(ps.local),
	}
	var warnings []string
	if ps.remote != nil {
		info.Remote, warnings = e.conv.ToLocal(*ps.remote)
	}

	resolution, err := e.resolver.Resolve(ctx, info)
	if err != nil {
		return failure(pair, action, fmt.Errorf("resolve conflict: %w", err))
	}
	log = log.With(slog.String("resolution", string(resolution)))

	content, ok := e.resolver.ResolvedContent(info, resolution)
	if resolution == model.ResolutionSkip || !ok {
		log.Info("conflict skipped")
		return note(pair, action, fmt.Sprintf("conflict skipped (resolution=%s)", resolution))
	}

	// A side that vanished is a deletion; keeping it would propagate it.
	if deletedSide(resolution, ps) {
		log.Info("conflict skipped, resolution keeps a deleted side")
		return note(pair, action, fmt.Sprintf("conflict skipped (resolution=%s keeps a deleted side, %s)", resolution, NoteDeleteDisabled))
	}

	writeLocal := ps.local == nil || content != *ps.local
	if writeLocal && !e.opts.Direction.WritesLocal() {
		log.Warn("resolution needs a local write, leaving conflict in place")
		return note(pair, action, fmt.Sprintf("conflict skipped (resolution=%s needs a local write, direction=%s)", resolution, e.opts.Direction))
	}

	entry := state.Entry{
		RemoteName:    pair.RemoteName,
		LocalHash:     state.HashPtr(content),
		RemoteHash:    ps.remoteHash,
		RemoteVersion: ps.remoteVersion,
	}

	switch resolution {
	case model.ResolutionLocal, model.ResolutionMerged:
		if e.opts.Direction.Allows(model.ActionPush) {
			remoteText := e.conv.ToRemote(content)
			if ps.remoteHash == nil || state.ContentHash(remoteText) != *ps.remoteHash {
				hash, version, err := e.write(ctx, pair, remoteText, ps.remoteVersion)
				if err != nil {
					return failure(pair, action, err)
				}
				entry.RemoteHash, entry.RemoteVersion = hash, version
			}
		}
	case model.ResolutionRemote:
	case model.ResolutionMarkers:
		entry.LocalHash = ps.localHash
		entry.Conflicted = true
	default:
		return failure(pair, action, fmt.Errorf("unhandled resolution %q", resolution))
	}

	if writeLocal {
		if err := e.files.Write(e.localPath(pair), content); err != nil {
			return failure(pair, action, fmt.Errorf("write local %s: %w", pair.LocalPath, err))
		}
	}

	if err := e.persist(st, pair.LocalPath, entry); err != nil {
		return failure(pair, action, err)
	}

	log.Info("conflict resolved")
	res := note(pair, action, "")
	if resolution == model.ResolutionMarkers {
		res.Error = NoteMarkersWritten
	}
	res.Warnings = warnings
	return res
}

// deletedSide reports whether resolution picks a side that no longer exists.
func deletedSide(resolution model.Resolution, ps pairState) bool {
	switch resolution {
	case model.ResolutionLocal, model.ResolutionMerged:
		return ps.local == nil
	case model.ResolutionRemote:
		return ps.remote == nil
	}
	return false
}

// baseContent fetches the remote text at the archived revision, converted
// to local format. Any failure means no base.
func (e *Engine) baseContent(ctx context.Context, pair model.SyncPair, ps pairState, log *slog.Logger) *string {
	if ps.entry == nil || ps.entry.RemoteVersion == nil {
		return nil
	}
	text, err := e.remote.GetContent(ctx, pair.RemoteName, ps.entry.RemoteVersion)
	if err != nil {
		log.Warn("could not fetch merge base",
			slog.Int("version", *ps.entry.RemoteVersion),
			logging.Err(err),
		)
		return nil
	}
	base, _ := e.conv.ToLocal(text)
	return &base
}

// write puts text on the remote page and returns the hash and revision to
// archive.
func (e *Engine) write(ctx context.Context, pair model.SyncPair, text string, rev *int) (*string, *int, error) {
	comment := "Synced from " + pair.LocalPath
	put, err := e.remote.PutContent(ctx, pair.RemoteName, text, comment, rev)
	if err != nil {
		return nil, nil, fmt.Errorf("write remote %s: %w", pair.RemoteName, err)
	}

	version := put.Version
	if info, err := e.remote.GetInfo(ctx, pair.RemoteName, nil); err == nil {
		version = info.Version
	} else {
		e.log.Debug("could not refresh remote version", logging.Page(pair.RemoteName), logging.Err(err))
	}
	return state.HashPtr(text), &version, nil
}

// persist records entry and saves the state file.
func (e *Engine) persist(st *state.State, localPath string, entry state.Entry) error {
	st.SetEntry(localPath, entry)
	if err := e.state.Save(e.opts.Profile, st); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (e *Engine) localPath(pair model.SyncPair) string {
	return filepath.Join(e.opts.SourceRoot, filepath.FromSlash(pair.LocalPath))
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
