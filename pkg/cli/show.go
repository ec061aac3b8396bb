package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pawan-ai/pawan/pkg/model"
	"github.com/urfave/cli/v3"
)

func showCommand() *cli.Command {
	var (
		cfg       config
		uid       string
		sessionID string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "uid",
			Aliases:     []string{"u"},
			Usage:       "User ID owning the conversation",
			Sources:     cli.EnvVars("PAWAN_UID"),
			Destination: &uid,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "session-id",
			Aliases:     []string{"id"},
			Usage:       "Session ID of the conversation to show",
			Destination: &sessionID,
			Required:    true,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "show",
		Usage: "Show a conversation as JSON",
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

			conv, err := repo.GetConversation(ctx, model.UserID(uid), model.SessionID(sessionID))
			if err != nil {
				return goerr.Wrap(err, "failed to get conversation")
			}

			// Display conversation details
			data, err := json.MarshalIndent(conv, "", "  ")
			if err != nil {
				return goerr.Wrap(err, "failed to marshal conversation")
			}

			fmt.Fprintf(c.Root().Writer, "%s\n", string(data))
			return nil
		},
	}
}
