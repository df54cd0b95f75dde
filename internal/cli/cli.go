// Package cli provides the command-line interface for docsync.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/klauern/docsync/internal/config"
	"github.com/klauern/docsync/internal/logging"
	"github.com/klauern/docsync/internal/ui"
)

var (
	// Version is the current version of the application.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// BuildDate is the date and time of the build.
	BuildDate = "unknown"
)

// Run executes the CLI application with the given context and arguments.
func Run(ctx context.Context, args []string) error {
	app := &cli.Command{
		Name:    "docsync",
		Usage:   "Keep a tree of Markdown files in sync with wiki pages",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the config file (default: $DOCSYNC_CONFIG or ~/.config/docsync/config.yaml)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose output (info level logging)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug output (debug level logging, implies verbose)",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored output",
			},
			&cli.BoolFlag{
				Name:  "log-json",
				Usage: "Write logs as JSON",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			configureColors(cmd)
			return ctx, configureLogging(cmd)
		},
		Commands: []*cli.Command{
			versionCommand(),
			syncCommand(),
			statusCommand(),
			resolveCommand(),
			profilesCommand(),
			backupsCommand(),
		},
	}
	return app.Run(ctx, args)
}

// configureColors sets up color output based on CLI flags.
func configureColors(cmd *cli.Command) {
	ui.Configure(cmd.Bool("no-color"))
}

// configureLogging sets up the logger from the config file's log section
// and the CLI flags. Flags win over the file.
func configureLogging(cmd *cli.Command) error {
	opts := logging.DefaultOptions()

	// A broken config file is reported by the command that needs it.
	if cfg, err := loadConfig(cmd); err == nil {
		if lvl, err := logging.ParseLevel(cfg.Log.Level); err == nil {
			opts.Level = lvl
		}
		opts.JSON = cfg.Log.JSON
		opts.File = cfg.Log.File
		opts.MaxSizeMB = cfg.Log.MaxSizeMB
		opts.MaxBackups = cfg.Log.MaxBackups
	}

	if cmd.Bool("debug") {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	} else if cmd.Bool("verbose") {
		opts.Level = slog.LevelInfo
	}
	if cmd.Bool("log-json") {
		opts.JSON = true
	}
	opts.Color = !opts.JSON && ui.IsColorEnabled() && term.IsTerminal(int(os.Stderr.Fd()))

	logger := logging.New(opts)
	logging.SetDefault(logger)

	logging.Debug("logging configured",
		slog.String("level", opts.Level.String()),
		slog.Bool("json", opts.JSON),
		slog.String("file", opts.File),
	)

	return nil
}

// loadConfig reads the config file named by --config, or the default one.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	path := cmd.Root().String("config")
	if path == "" {
		return config.Load()
	}
	return config.LoadFromPath(path)
}

// loadProfile loads the config and resolves the --profile flag.
func loadProfile(cmd *cli.Command) (*config.Config, string, config.Profile, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, "", config.Profile{}, fmt.Errorf("failed to load config: %w", err)
	}
	name, p, err := cfg.Profile(cmd.String("profile"))
	if err != nil {
		return nil, "", config.Profile{}, err
	}
	return cfg, name, p, nil
}

func profileFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "profile",
		Aliases: []string{"p"},
		Usage:   "Sync profile to use (default: default_profile, or the only profile)",
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Print machine-readable JSON",
	}
}
