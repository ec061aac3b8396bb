package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pawan-ai/pawan/pkg/model"
	"github.com/pawan-ai/pawan/pkg/usecase/archive"
	"github.com/urfave/cli/v3"
)

func archiveCommand() *cli.Command {
	var (
		cfg  config
		uid  string
		list bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "uid",
			Aliases:     []string{"u"},
			Usage:       "User ID whose conversations are archived",
			Sources:     cli.EnvVars("PAWAN_UID"),
			Destination: &uid,
			Required:    true,
		},
		&cli.BoolFlag{
			Name:        "list",
			Aliases:     []string{"l"},
			Usage:       "List existing archives instead of creating one",
			Destination: &list,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, storageFlags(&cfg)...)

	return &cli.Command{
		Name:  "archive",
		Usage: "Export a user's conversations to Cloud Storage as JSON",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := cfg.setupLogger(); err != nil {
				return err
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			storage, err := cfg.newStorage(ctx)
			if err != nil {
				return err
			}

			uc := archive.New(repo, storage)

			if list {
				keys, err := uc.List(ctx, model.UserID(uid))
				if err != nil {
					return goerr.Wrap(err, "failed to list archives")
				}
				for _, key := range keys {
					fmt.Fprintf(c.Root().Writer, "gs://%s/%s\n", cfg.bucket, key)
				}
				return nil
			}

			key, err := uc.Archive(ctx, model.UserID(uid))
			if err != nil {
				return goerr.Wrap(err, "failed to archive conversations")
			}

			fmt.Fprintf(c.Root().Writer, "Archived to gs://%s/%s\n", cfg.bucket, key)
			return nil
		},
	}
}
