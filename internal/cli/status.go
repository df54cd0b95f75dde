package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/klauern/docsync/internal/fileio"
	"github.com/klauern/docsync/internal/logging"
	"github.com/klauern/docsync/internal/report"
	"github.com/klauern/docsync/internal/state"
	"github.com/klauern/docsync/internal/sync"
	"github.com/klauern/docsync/internal/ui"
)

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the last sync and unresolved conflicts of a profile",
		Flags: []cli.Flag{
			profileFlag(),
			jsonFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, name, p, err := loadProfile(cmd)
			if err != nil {
				return err
			}
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}

			st, err := state.NewStore(p.StatePath(cwd)).Load(name)
			if err != nil {
				return err
			}

			s := report.StatusFromState(st)
			s.Profile = name
			s.Direction = p.Direction
			s.Source = p.SourceRoot(cwd)
			s.Destination = p.Destination

			if cmd.Bool("json") {
				out, err := report.StatusJSON(s)
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}
			fmt.Println(report.FormatStatus(s, time.Now()))
			return nil
		},
	}
}

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Mark conflicted files as resolved after editing them",
		ArgsUsage: "<path>...",
		Flags: []cli.Flag{
			profileFlag(),
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Clear the conflict even if the file still contains conflict markers",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				return errors.New("at least one path is required")
			}

			_, name, p, err := loadProfile(cmd)
			if err != nil {
				return err
			}
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
			root := p.SourceRoot(cwd)

			store := state.NewStore(p.StatePath(cwd))
			lock, err := store.Lock(name)
			if err != nil {
				if errors.Is(err, state.ErrLocked) {
					return fmt.Errorf("profile %s is being synced, try again when it finishes", name)
				}
				return err
			}
			defer func() { _ = lock.Unlock() }()

			st, err := store.Load(name)
			if err != nil {
				return err
			}

			cleared, err := resolvePaths(st, root, paths, fileio.OS{}, cmd.Bool("force"))
			if cleared > 0 {
				if saveErr := store.Save(name, st); saveErr != nil {
					return errors.Join(err, saveErr)
				}
			}
			return err
		},
	}
}

// resolvePaths clears the conflicted flag of each path. A path whose file
// still holds conflict markers is refused unless force is set.
func resolvePaths(st *state.State, root string, paths []string, files fileio.Store, force bool) (int, error) {
	var errs []error
	cleared := 0
	for _, arg := range paths {
		rel := relToRoot(root, arg)
		if !st.IsConflicted(rel) {
			errs = append(errs, fmt.Errorf("%s: not in conflict", rel))
			continue
		}

		text, err := files.Read(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("%s: %w", rel, err))
			continue
		}
		if !force && sync.ContainsMarkers(text) {
			errs = append(errs, fmt.Errorf("%s: file still contains conflict markers (use --force to clear anyway)", rel))
			continue
		}

		st.ClearConflict(rel)
		cleared++
		logging.Debug("conflict cleared", logging.Profile(st.Profile), logging.Path(rel))
		fmt.Println(ui.StatusSuccess("resolved " + rel))
	}
	return cleared, errors.Join(errs...)
}

// relToRoot turns a user-supplied path into the slash-separated path
// relative to root that state entries are keyed by. Paths outside root are
// taken as already relative.
func relToRoot(root, p string) string {
	abs := p
	if !filepath.IsAbs(abs) {
		if cwd, err := os.Getwd(); err == nil {
			abs = filepath.Join(cwd, p)
		}
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(filepath.Clean(p))
	}
	return filepath.ToSlash(rel)
}

func profilesCommand() *cli.Command {
	return &cli.Command{
		Name:  "profiles",
		Usage: "List the configured sync profiles",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			names := cfg.ProfileNames()
			if len(names) == 0 {
				fmt.Println("No sync profiles configured.")
				return nil
			}

			for _, name := range names {
				p, marker := cfg.Sync[name], " "
				if name == cfg.DefaultProfile {
					marker = "*"
				}
				fmt.Printf("%s %s  %s -> %s (%s)\n", marker, ui.Bold(name), p.Source, p.Destination, p.Direction)
			}

			if err := cfg.Validate(); err != nil {
				fmt.Println()
				fmt.Println(ui.Warning("Configuration problems:"))
				for _, line := range strings.Split(err.Error(), "\n") {
					fmt.Println("  " + line)
				}
			}
			return nil
		},
	}
}
