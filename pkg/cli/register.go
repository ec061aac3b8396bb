package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pawan-ai/pawan/pkg/usecase/account"
	"github.com/urfave/cli/v3"
)

func registerCommand() *cli.Command {
	var (
		cfg      config
		email    string
		password string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "email",
			Aliases:     []string{"e"},
			Usage:       "Email address of the new account",
			Destination: &email,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "password",
			Usage:       "Password of the new account (at least 6 characters)",
			Sources:     cli.EnvVars("PAWAN_PASSWORD"),
			Destination: &password,
			Required:    true,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, authFlags(&cfg)...)

	return &cli.Command{
		Name:  "register",
		Usage: "Register a new user account",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := cfg.setupLogger(); err != nil {
				return err
			}

			identity, err := cfg.newIdentity(ctx)
			if err != nil {
				return err
			}

			user, err := account.New(identity).Register(ctx, email, password)
			if err != nil {
				return goerr.Wrap(err, "registration failed")
			}

			fmt.Fprintf(c.Root().Writer, "User registered: %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
}
