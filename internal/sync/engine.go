package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"

	"github.com/klauern/docsync/internal/convert"
	"github.com/klauern/docsync/internal/fileio"
	"github.com/klauern/docsync/internal/git"
	"github.com/klauern/docsync/internal/logging"
	"github.com/klauern/docsync/internal/model"
	"github.com/klauern/docsync/internal/remote"
	"github.com/klauern/docsync/internal/state"
)

// Result notes recorded on successful results.
const (
	NoteUnresolvedConflict = "path has unresolved conflict"
	NoteDeleteDisabled     = "delete propagation disabled"
	NoteMarkersWritten     = "conflict markers written"

	// SafetyBlockedMessage is the error text of the single result returned
	// when the git safety check blocks a run.
	SafetyBlockedMessage = "Git safety check failed: uncommitted changes"
)

// ErrSafetyBlocked is reported when uncommitted local changes block a run.
var ErrSafetyBlocked = errors.New("git safety check failed: uncommitted changes")

// PairSource discovers the pairs a run considers. *mapper.Mapper
// satisfies it.
type PairSource interface {
	BuildPairs(root string, remoteNames []string) ([]model.SyncPair, error)
}

// StateStore loads and saves per-profile state. *state.Store satisfies it.
type StateStore interface {
	Load(profile string) (*state.State, error)
	Save(profile string, st *state.State) error
}

// SafetyChecker reports uncommitted changes in the local tree.
// git.Checker satisfies it.
type SafetyChecker interface {
	HasUncommittedChanges(ctx context.Context, dir string) (bool, error)
}

// Observer is notified as pairs are processed.
type Observer interface {
	PairStarted(pair model.SyncPair, index, total int)
	PairFinished(result model.SyncResult)
}

// Options configures a single engine.
type Options struct {
	Profile    string
	SourceRoot string
	Direction  model.Direction
	GitSafety  model.GitSafety
	DryRun     bool
}

// Deps are the collaborators an engine works through.
type Deps struct {
	Pairs     PairSource
	State     StateStore
	Remote    remote.Store
	Converter convert.Converter
	Resolver  Resolver

	// Files defaults to fileio.OS.
	Files fileio.Store
	// Safety defaults to git.Checker with its default timeout.
	Safety SafetyChecker
	// Logger defaults to a discarding logger.
	Logger *slog.Logger
	// Observer is optional.
	Observer Observer
}

// Engine reconciles one profile's local tree with its remote pages.
type Engine struct {
	opts Options

	pairs    PairSource
	state    StateStore
	remote   remote.Store
	conv     convert.Converter
	resolver Resolver
	files    fileio.Store
	safety   SafetyChecker
	log      *slog.Logger
	observer Observer
}

// New validates opts and deps and returns an engine.
func New(opts Options, deps Deps) (*Engine, error) {
	if opts.Direction == "" {
		opts.Direction = model.DirectionBidirectional
	}
	if opts.GitSafety == "" {
		opts.GitSafety = model.GitSafetyBlock
	}

	var errs []error
	if opts.Profile == "" {
		errs = append(errs, errors.New("profile name is required"))
	}
	if opts.SourceRoot == "" {
		errs = append(errs, errors.New("source root is required"))
	}
	if !opts.Direction.IsValid() {
		errs = append(errs, fmt.Errorf("invalid direction %q", opts.Direction))
	}
	if !opts.GitSafety.IsValid() {
		errs = append(errs, fmt.Errorf("invalid git safety policy %q", opts.GitSafety))
	}
	if deps.Pairs == nil {
		errs = append(errs, errors.New("pair source is required"))
	}
	if deps.State == nil {
		errs = append(errs, errors.New("state store is required"))
	}
	if deps.Remote == nil {
		errs = append(errs, errors.New("remote store is required"))
	}
	if deps.Converter == nil {
		errs = append(errs, errors.New("converter is required"))
	}
	if deps.Resolver == nil {
		errs = append(errs, errors.New("conflict resolver is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid engine configuration: %w", err)
	}

	e := &Engine{
		opts:     opts,
		pairs:    deps.Pairs,
		state:    deps.State,
		remote:   deps.Remote,
		conv:     deps.Converter,
		resolver: deps.Resolver,
		files:    deps.Files,
		safety:   deps.Safety,
		log:      deps.Logger,
		observer: deps.Observer,
	}
	if e.files == nil {
		e.files = fileio.OS{}
	}
	if e.safety == nil {
		e.safety = git.Checker{}
	}
	if e.log == nil {
		e.log = logging.Discard()
	}
	return e, nil
}

// Options returns the effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// Run performs one reconciliation pass. Failures are reported as results;
// Run itself never fails.
func (e *Engine) Run(ctx context.Context) *model.SyncReport {
	report := &model.SyncReport{
		RunID:     uuid.NewString(),
		Profile:   e.opts.Profile,
		DryRun:    e.opts.DryRun,
		Results:   []model.SyncResult{},
		StartedAt: time.Now().UTC(),
	}
	defer func() { report.FinishedAt = time.Now().UTC() }()

	log := e.log.With(logging.Profile(e.opts.Profile), slog.String("run_id", report.RunID))
	log.Info("sync started",
		slog.String("direction", string(e.opts.Direction)),
		slog.Bool("dry_run", e.opts.DryRun),
	)

	if err := e.checkSafety(ctx, log); err != nil {
		report.Add(model.SyncResult{Action: model.ActionSkip, Success: false, Error: SafetyBlockedMessage})
		return report
	}

	st, err := e.state.Load(e.opts.Profile)
	if err != nil {
		log.Error("failed to load sync state", logging.Err(err))
		report.Add(model.SyncResult{Action: model.ActionSkip, Success: false, Error: fmt.Sprintf("load state: %v", err)})
		return report
	}

	pairs, err := e.discover(ctx, st, log)
	if err != nil {
		log.Error("failed to discover pairs", logging.Err(err))
		report.Add(model.SyncResult{Action: model.ActionSkip, Success: false, Error: fmt.Sprintf("discover pairs: %v", err)})
		return report
	}

	for i, pair := range pairs {
		if e.observer != nil {
			e.observer.PairStarted(pair, i, len(pairs))
		}

		var res model.SyncResult
		if err := ctx.Err(); err != nil {
			res = failure(pair, model.ActionSkip, fmt.Errorf("sync cancelled: %w", err))
		} else {
			res = e.syncPairSafely(ctx, st, pair, log)
		}
		report.Add(res)

		if e.observer != nil {
			e.observer.PairFinished(res)
		}
	}

	log.Info("sync finished",
		logging.Count(len(report.Results)),
		slog.Int("errors", len(report.Errors())),
		logging.Duration(time.Since(report.StartedAt)),
	)
	return report
}

// IsSafetyBlocked reports whether report is the result of a blocked run.
func IsSafetyBlocked(report *model.SyncReport) bool {
	return report != nil && len(report.Results) == 1 &&
		!report.Results[0].Success && report.Results[0].Error == SafetyBlockedMessage
}

// checkSafety applies the git safety policy. It only runs when the run may
// write local files.
func (e *Engine) checkSafety(ctx context.Context, log *slog.Logger) error {
	if !e.opts.Direction.WritesLocal() || e.opts.GitSafety == model.GitSafetyNone {
		return nil
	}

	dirty, err := e.safety.HasUncommittedChanges(ctx, e.opts.SourceRoot)
	if err != nil {
		if errors.Is(err, git.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			if e.opts.GitSafety == model.GitSafetyBlock {
				log.Error("git status timed out, treating tree as dirty", logging.Err(err))
				return fmt.Errorf("%w: %w", ErrSafetyBlocked, err)
			}
			log.Warn("git status timed out", logging.Err(err))
			return nil
		}
		log.Warn("git safety check unavailable, continuing", logging.Err(err))
		return nil
	}
	if !dirty {
		return nil
	}

	if e.opts.GitSafety == model.GitSafetyWarn {
		log.Warn("uncommitted changes in source root", logging.Path(e.opts.SourceRoot))
		return nil
	}
	log.Error("uncommitted changes in source root, refusing to sync", logging.Path(e.opts.SourceRoot))
	return ErrSafetyBlocked
}

// discover lists remote pages, builds pairs and adds tracked paths that
// neither side produced any more, so deletions can be detected.
func (e *Engine) discover(ctx context.Context, st *state.State, log *slog.Logger) ([]model.SyncPair, error) {
	names, err := e.remote.ListNames(ctx)
	if err != nil {
		log.Warn("failed to list remote pages, continuing with local files only", logging.Err(err))
		names = nil
	}

	pairs, err := e.pairs.BuildPairs(e.opts.SourceRoot, names)
	if err != nil {
		return nil, err
	}

	seen := mapset.NewThreadUnsafeSet[string]()
	for _, p := range pairs {
		seen.Add(p.LocalPath)
	}
	for _, path := range st.Paths() {
		if seen.Contains(path) {
			continue
		}
		entry, _ := st.Entry(path)
		if entry.RemoteName == "" {
			continue
		}
		pairs = append(pairs, model.SyncPair{LocalPath: path, RemoteName: entry.RemoteName})
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].LocalPath < pairs[j].LocalPath
	})
	log.Debug("pairs discovered", logging.Count(len(pairs)), slog.Int("remote_pages", len(names)))
	return pairs, nil
}

func (e *Engine) syncPairSafely(ctx context.Context, st *state.State, pair model.SyncPair, log *slog.Logger) (res model.SyncResult) {
	log = log.With(logging.Path(pair.LocalPath), logging.Page(pair.RemoteName))
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while syncing pair", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
			res = failure(pair, model.ActionSkip, fmt.Errorf("panic: %v", r))
		}
	}()

	res = e.syncPair(ctx, st, pair, log)
	if !res.Success {
		log.Error("pair failed", logging.Action(res.Action), slog.String("error", res.Error))
	}
	return res
}

func (e *Engine) syncPair(ctx context.Context, st *state.State, pair model.SyncPair, log *slog.Logger) model.SyncResult {
	if st.IsConflicted(pair.LocalPath) {
		log.Warn("skipping path with unresolved conflict")
		return note(pair, model.ActionSkip, NoteUnresolvedConflict)
	}

	ps, err := e.snapshot(ctx, st, pair)
	if err != nil {
		return failure(pair, model.ActionSkip, err)
	}

	action := Classify(Sides{LocalHash: ps.localHash, RemoteHash: ps.remoteHash}, ps.entry)
	if filtered := FilterByDirection(action, e.opts.Direction); filtered != action {
		log.Debug("action downgraded by direction",
			logging.Action(action),
			slog.String("direction", string(e.opts.Direction)),
		)
		action = filtered
	}
	log.Debug("pair classified", logging.Action(action))

	if e.opts.DryRun {
		return note(pair, action, "")
	}
	return e.execute(ctx, st, pair, action, ps, log)
}

// pairState is what both sides and the archive looked like when a pair
// was examined.
type pairState struct {
	local     *string
	localHash *string

	remote        *string
	remoteHash    *string
	remoteVersion *int

	entry *state.Entry
}

func (e *Engine) snapshot(ctx context.Context, st *state.State, pair model.SyncPair) (pairState, error) {
	var ps pairState
	if entry, ok := st.Entry(pair.LocalPath); ok {
		ps.entry = &entry
	}

	text, err := e.files.Read(e.localPath(pair))
	switch {
	case err == nil:
		ps.local = &text
		ps.localHash = state.HashPtr(text)
	case isNotExist(err):
	default:
		return ps, fmt.Errorf("read local %s: %w", pair.LocalPath, err)
	}

	info, err := e.remote.GetInfo(ctx, pair.RemoteName, nil)
	if err != nil {
		if remote.IsNotFound(err) {
			return ps, nil
		}
		return ps, fmt.Errorf("read remote info %s: %w", pair.RemoteName, err)
	}
	version := info.Version
	content, err := e.remote.GetContent(ctx, pair.RemoteName, &version)
	if err != nil {
		if remote.IsNotFound(err) {
			return ps, nil
		}
		return ps, fmt.Errorf("read remote page %s: %w", pair.RemoteName, err)
	}
	ps.remote = &content
	ps.remoteHash = state.HashPtr(content)
	ps.remoteVersion = &version
	return ps, nil
}

func note(pair model.SyncPair, action model.SyncAction, msg string) model.SyncResult {
	return model.SyncResult{
		LocalPath:  pair.LocalPath,
		RemoteName: pair.RemoteName,
		Action:     action,
		Success:    true,
		Error:      msg,
	}
}

func failure(pair model.SyncPair, action model.SyncAction, err error) model.SyncResult {
	return model.SyncResult{
		LocalPath:  pair.LocalPath,
		RemoteName: pair.RemoteName,
		Action:     action,
		Success:    false,
		Error:      err.Error(),
	}
}
