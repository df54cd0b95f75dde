package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/klauern/docsync/internal/backup"
	"github.com/klauern/docsync/internal/ui"
)

func backupsCommand() *cli.Command {
	return &cli.Command{
		Name:  "backups",
		Usage: "List and restore copies of local files overwritten by sync",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List backups of a profile, newest first",
				Flags: []cli.Flag{profileFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					name, store, err := backupStore(cmd)
					if err != nil {
						return err
					}
					backups, err := store.List(name)
					if err != nil {
						return err
					}
					if len(backups) == 0 {
						fmt.Printf("No backups for profile '%s'.\n", name)
						return nil
					}

					fmt.Println(ui.Header(fmt.Sprintf("Backups for profile '%s'", name)))
					for _, b := range backups {
						fmt.Printf("  %s  %s  %s (%s)\n",
							ui.Bold(b.ID),
							b.SourcePath,
							humanize.Time(b.CreatedAt),
							humanize.Bytes(uint64(max(b.Size, 0))),
						)
					}
					return nil
				},
			},
			{
				Name:      "restore",
				Usage:     "Restore a backup over its original file",
				ArgsUsage: "<backup-id>",
				Flags: []cli.Flag{
					profileFlag(),
					&cli.StringFlag{
						Name:  "to",
						Usage: "Write the backup here instead of its original path",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id := cmd.Args().First()
					if id == "" {
						return errors.New("a backup ID is required (see 'docsync backups list')")
					}
					_, store, err := backupStore(cmd)
					if err != nil {
						return err
					}
					target, err := store.Restore(id, cmd.String("to"))
					if err != nil {
						return err
					}
					fmt.Println(ui.StatusSuccess("restored " + target))
					return nil
				},
			},
		},
	}
}

// backupStore opens the backup store of the selected profile.
func backupStore(cmd *cli.Command) (string, *backup.Store, error) {
	_, name, p, err := loadProfile(cmd)
	if err != nil {
		return "", nil, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return name, backup.NewStore(filepath.Join(p.StatePath(cwd), backup.DirName)), nil
}
