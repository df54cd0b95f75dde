package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/klauern/docsync/internal/backup"
	"github.com/klauern/docsync/internal/config"
	"github.com/klauern/docsync/internal/convert"
	"github.com/klauern/docsync/internal/fileio"
	"github.com/klauern/docsync/internal/git"
	"github.com/klauern/docsync/internal/logging"
	"github.com/klauern/docsync/internal/mapper"
	"github.com/klauern/docsync/internal/model"
	"github.com/klauern/docsync/internal/progress"
	"github.com/klauern/docsync/internal/remote"
	"github.com/klauern/docsync/internal/remote/trac"
	"github.com/klauern/docsync/internal/report"
	"github.com/klauern/docsync/internal/state"
	"github.com/klauern/docsync/internal/sync"
	"github.com/klauern/docsync/internal/ui"
)

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Reconcile the local tree of a profile with its wiki pages",
		UsageText: `docsync sync [options]

   Examples:
     docsync sync                        # sync the default profile
     docsync sync --profile docs --dry-run
     docsync sync --direction push       # only write to the wiki
     docsync sync --strategy markers     # leave conflict markers in files`,
		Flags: []cli.Flag{
			profileFlag(),
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"d"},
				Usage:   "Show what would change without writing anything",
			},
			&cli.StringFlag{
				Name:  "source-root",
				Usage: "Override the profile's local document root",
			},
			&cli.StringFlag{
				Name:  "strategy",
				Usage: "Conflict strategy: interactive, markers, local-wins, remote-wins",
			},
			&cli.StringFlag{
				Name:  "direction",
				Usage: "Sync direction: bidirectional, push, pull",
			},
			jsonFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runSync(ctx, cmd)
		},
	}
}

// syncPlan is everything a run needs, resolved from config and flags.
type syncPlan struct {
	profile    string
	prof       config.Profile
	sourceRoot string
	stateDir   string
	strategy   sync.Strategy
	direction  model.Direction
	safety     model.GitSafety
	dryRun     bool
	backup     config.BackupConfig
}

// syncOutcome is what a run produced.
type syncOutcome struct {
	report  *model.SyncReport
	pending []model.ConflictInfo
	backups []backup.Metadata
}

func planSync(cmd *cli.Command, name string, p config.Profile) (syncPlan, error) {
	if v := cmd.String("strategy"); v != "" {
		p.ConflictStrategy = v
	}
	if v := cmd.String("direction"); v != "" {
		p.Direction = v
	}
	if v := cmd.String("source-root"); v != "" {
		p.Source = v
	}
	if err := p.Validate(); err != nil {
		return syncPlan{}, fmt.Errorf("profile %s: %w", name, err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return syncPlan{}, fmt.Errorf("failed to get working directory: %w", err)
	}

	strategy, _ := sync.ParseStrategy(p.ConflictStrategy)
	direction, _ := model.ParseDirection(p.Direction)
	safety, _ := model.ParseGitSafety(p.GitSafety)

	return syncPlan{
		profile:    name,
		prof:       p,
		sourceRoot: p.SourceRoot(cwd),
		stateDir:   p.StatePath(cwd),
		strategy:   strategy,
		direction:  direction,
		safety:     safety,
		dryRun:     cmd.Bool("dry-run"),
	}, nil
}

func runSync(ctx context.Context, cmd *cli.Command) error {
	cfg, name, p, err := loadProfile(cmd)
	if err != nil {
		return err
	}
	plan, err := planSync(cmd, name, p)
	if err != nil {
		return err
	}
	plan.backup = cfg.Backup
	if info, err := os.Stat(plan.sourceRoot); err != nil || !info.IsDir() {
		return fmt.Errorf("source root %s is not a directory", plan.sourceRoot)
	}

	client, err := newRemote(cfg.Remote)
	if err != nil {
		return err
	}

	store := state.NewStore(plan.stateDir)
	// Dry runs only read, so they neither create the state dir nor wait
	// on a running sync.
	if !plan.dryRun {
		unlock, err := lockProfile(store, name)
		if err != nil {
			return err
		}
		defer unlock()
	}

	out, err := executeSync(ctx, plan, store, client)
	if err != nil {
		return err
	}
	return printSyncReport(out, cmd.Bool("json"))
}

// lockProfile takes the per-profile lock and returns its release func.
func lockProfile(store *state.Store, name string) (func(), error) {
	lock, err := store.Lock(name)
	if err != nil {
		if errors.Is(err, state.ErrLocked) {
			return nil, fmt.Errorf("profile %s is already being synced by another process", name)
		}
		return nil, err
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			logging.Warn("failed to release profile lock", logging.Profile(name), logging.Err(err))
		}
	}, nil
}

// newRemote builds the wiki client from the remote config section.
func newRemote(rc config.RemoteConfig) (*trac.Client, error) {
	if rc.URL == "" {
		return nil, errors.New("remote.url is not configured (set it in the config file or DOCSYNC_REMOTE_URL)")
	}
	return trac.New(trac.Options{
		URL:       rc.URL,
		Username:  rc.Username,
		Password:  rc.Password,
		Insecure:  rc.Insecure,
		Timeout:   rc.Timeout,
		CacheSize: rc.CacheSize,
	})
}

// pendingConflicts is implemented by resolvers that leave conflicts for
// the user to look at after the run.
type pendingConflicts interface {
	Pending() []model.ConflictInfo
}

// executeSync wires the engine for plan and runs it once.
func executeSync(ctx context.Context, plan syncPlan, store *state.Store, rs remote.Store) (*syncOutcome, error) {
	mp, err := mapper.New(plan.prof.MapperOptions())
	if err != nil {
		return nil, err
	}
	conv, err := convert.ForFormat(plan.prof.Format)
	if err != nil {
		return nil, err
	}

	var prompter sync.Prompter
	if plan.strategy == sync.StrategyInteractive && !plan.dryRun {
		prompter = newPrompter()
	}
	resolver, err := sync.NewResolver(plan.strategy, prompter)
	if err != nil {
		return nil, err
	}

	bar := progress.New(progress.Options{Description: "Syncing " + plan.profile})
	log := logging.Default().With(logging.Strategy(plan.strategy.String()))

	var files fileio.Store = fileio.OS{}
	var backups *backup.Store
	var tracked *backup.Files
	if plan.backup.Enabled && !plan.dryRun {
		backups = backup.NewStore(filepath.Join(plan.stateDir, backup.DirName))
		tracked = backup.NewFiles(fileio.OS{}, backups, backup.Options{Profile: plan.profile}, log)
		files = tracked
	}

	engine, err := sync.New(sync.Options{
		Profile:    plan.profile,
		SourceRoot: plan.sourceRoot,
		Direction:  plan.direction,
		GitSafety:  plan.safety,
		DryRun:     plan.dryRun,
	}, sync.Deps{
		Pairs:     mp,
		State:     store,
		Remote:    rs,
		Converter: conv,
		Resolver:  resolver,
		Files:     files,
		Safety:    git.Checker{Timeout: plan.prof.GitTimeout},
		Logger:    log,
		Observer:  bar,
	})
	if err != nil {
		return nil, err
	}

	out := &syncOutcome{report: engine.Run(logging.NewContext(ctx, log))}
	if err := bar.Finish(); err != nil {
		log.Debug("failed to finish progress bar", logging.Err(err))
	}

	if pc, ok := resolver.(pendingConflicts); ok {
		out.pending = pc.Pending()
	}
	if tracked != nil {
		out.backups = tracked.Created()
		pruneBackups(backups, plan, log)
	}
	return out, nil
}

// pruneBackups applies the retention policy. Failures only cost disk space.
func pruneBackups(store *backup.Store, plan syncPlan, log *slog.Logger) {
	opts := backup.DefaultCleanupOptions()
	opts.Profile = plan.profile
	opts.MaxPerFile = plan.backup.MaxPerFile
	opts.MaxAge = plan.backup.MaxAge

	deleted, err := store.Cleanup(opts)
	if err != nil {
		log.Warn("failed to prune old backups", logging.Err(err))
		return
	}
	if len(deleted) > 0 {
		log.Debug("pruned old backups", logging.Count(len(deleted)))
	}
}

func printSyncReport(out *syncOutcome, asJSON bool) error {
	rep, pending := out.report, out.pending
	if asJSON {
		out, err := report.JSON(rep)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	} else {
		if rep.DryRun {
			fmt.Println(report.FormatDryRun(rep))
		} else {
			fmt.Println(report.FormatReport(rep))
		}
		for i := range pending {
			fmt.Println()
			fmt.Println(report.FormatConflictDiff(&pending[i]))
		}
		if len(pending) > 0 {
			fmt.Println()
			fmt.Println(ui.Warning(fmt.Sprintf("%d conflict(s) need attention. Edit the files, then run 'docsync resolve <path>'.", len(pending))))
		}
		if len(out.backups) > 0 {
			fmt.Println()
			fmt.Println(ui.Dim(fmt.Sprintf("Backed up %d overwritten file(s); see 'docsync backups list'.", len(out.backups))))
		}
	}

	if sync.IsSafetyBlocked(rep) {
		return fmt.Errorf("%w (commit or stash them, or set git_safety: warn)", sync.ErrSafetyBlocked)
	}
	if errs := rep.Errors(); len(errs) > 0 {
		return fmt.Errorf("sync finished with %d error(s)", len(errs))
	}
	return nil
}
