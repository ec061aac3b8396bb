package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pawan-ai/pawan/pkg/server"
	"github.com/pawan-ai/pawan/pkg/usecase/account"
	"github.com/pawan-ai/pawan/pkg/usecase/admin"
	"github.com/pawan-ai/pawan/pkg/usecase/chat"
	"github.com/pawan-ai/pawan/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	var (
		cfg          config
		addr         string
		secret       string
		sessionTTL   time.Duration
		secureCookie bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address",
			Value:       ":8080",
			Sources:     cli.EnvVars("PAWAN_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "session-secret",
			Usage:       "Secret key signing session cookies",
			Sources:     cli.EnvVars("PAWAN_SESSION_SECRET"),
			Destination: &secret,
			Required:    true,
		},
		&cli.DurationFlag{
			Name:        "session-ttl",
			Usage:       "Session lifetime without activity",
			Value:       server.DefaultSessionTTL,
			Sources:     cli.EnvVars("PAWAN_SESSION_TTL"),
			Destination: &sessionTTL,
		},
		&cli.BoolFlag{
			Name:        "secure-cookie",
			Usage:       "Send the session cookie over HTTPS only",
			Sources:     cli.EnvVars("PAWAN_SECURE_COOKIE"),
			Destination: &secureCookie,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, authFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the chatbot web application",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := cfg.setupLogger(); err != nil {
				return err
			}

			// Initialize dependencies
			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}

			identity, err := cfg.newIdentity(ctx)
			if err != nil {
				return err
			}

			personas, err := cfg.newPersonas()
			if err != nil {
				return err
			}

			pol, err := cfg.newPolicy(ctx)
			if err != nil {
				return err
			}

			srv, err := server.New(repo,
				account.New(identity),
				chat.New(repo, gemini, chat.WithPersonas(personas)),
				admin.New(identity, repo, pol),
				[]byte(secret),
				server.WithSessionTTL(sessionTTL),
				server.WithSecureCookie(secureCookie),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create server")
			}

			httpServer := &http.Server{
				Addr:              addr,
				Handler:           srv,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("server started", "addr", addr)
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return goerr.Wrap(err, "server stopped", goerr.V("addr", addr))
				}
				return nil
			case <-ctx.Done():
			}

			logging.Default().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shut down server")
			}
			return nil
		},
	}
}
