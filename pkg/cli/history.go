package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pawan-ai/pawan/pkg/model"
	"github.com/urfave/cli/v3"
)

func historyCommand() *cli.Command {
	var (
		cfg config
		uid string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "uid",
			Aliases:     []string{"u"},
			Usage:       "User ID to list conversations of",
			Sources:     cli.EnvVars("PAWAN_UID"),
			Destination: &uid,
			Required:    true,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "history",
		Usage: "List saved conversations of a user, newest first",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := cfg.setupLogger(); err != nil {
				return err
			}

			// Initialize repository
			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			// List conversations
			convs, err := repo.ListConversations(ctx, model.UserID(uid))
			if err != nil {
				return goerr.Wrap(err, "failed to list conversations")
			}

			if len(convs) == 0 {
				fmt.Fprintf(c.Root().Writer, "This user has no saved chat sessions.\n")
				return nil
			}

			// Display conversations
			for i, conv := range convs {
				fmt.Fprintf(c.Root().Writer, "[%d] %s\t%s\t%d messages\t%s\n",
					i, conv.SessionID, formatCreatedAt(conv.CreatedAt), len(conv.Messages), conv.Title)
			}

			return nil
		},
	}
}
