package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func usersCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, authFlags(&cfg)...)

	return &cli.Command{
		Name:  "users",
		Usage: "List registered users",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := cfg.setupLogger(); err != nil {
				return err
			}

			identity, err := cfg.newIdentity(ctx)
			if err != nil {
				return err
			}

			users, err := identity.ListUsers(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to list users")
			}

			if len(users) == 0 {
				fmt.Fprintf(c.Root().Writer, "No users found in Firebase Authentication.\n")
				return nil
			}

			for _, user := range users {
				email := user.Email
				if email == "" {
					email = "(no email)"
				}
				fmt.Fprintf(c.Root().Writer, "%s\t%s\n", user.ID, email)
			}

			return nil
		},
	}
}
