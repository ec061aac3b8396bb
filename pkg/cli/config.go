package cli

import (
	"context"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pawan-ai/pawan/pkg/adapter"
	"github.com/pawan-ai/pawan/pkg/persona"
	"github.com/pawan-ai/pawan/pkg/policy"
	"github.com/pawan-ai/pawan/pkg/repository"
	"github.com/pawan-ai/pawan/pkg/utils/logging"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

// config holds configuration values
type config struct {
	// Google Cloud
	project         string
	database        string
	credentialsFile string

	// Logging
	logLevel  string
	logFormat string

	// Generation
	geminiAPIKey   string
	geminiProject  string
	geminiLocation string
	geminiModel    string
	personaFile    string

	// Authentication
	firebaseAPIKey string
	adminEmails    []string
	policyDir      string

	// Archive
	bucket string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "credentials",
			Usage:       "Path to a service account key file (default: application default credentials)",
			Sources:     cli.EnvVars("PAWAN_CREDENTIALS_FILE"),
			Destination: &cfg.credentialsFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("PAWAN_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       string(logging.FormatConsole),
			Sources:     cli.EnvVars("PAWAN_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "Gemini API key (takes precedence over Vertex AI)",
			Sources:     cli.EnvVars("GEMINI_API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini on Vertex AI",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini on Vertex AI",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Gemini model name",
			Value:       "gemini-2.5-flash",
			Sources:     cli.EnvVars("GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
		&cli.StringFlag{
			Name:        "persona-file",
			Usage:       "YAML file defining chatbot modes (default: built-in modes)",
			Sources:     cli.EnvVars("PAWAN_PERSONA_FILE"),
			Destination: &cfg.personaFile,
		},
	}
}

// authFlags returns flags for the identity provider and admin access
func authFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "firebase-api-key",
			Usage:       "Firebase web API key used for password sign-in",
			Sources:     cli.EnvVars("FIREBASE_API_KEY"),
			Destination: &cfg.firebaseAPIKey,
		},
		&cli.StringSliceFlag{
			Name:        "admin-email",
			Usage:       "Email address allowed to use the admin page (repeatable)",
			Sources:     cli.EnvVars("PAWAN_ADMIN_EMAILS"),
			Destination: &cfg.adminEmails,
		},
		&cli.StringFlag{
			Name:        "policy-dir",
			Usage:       "Directory of Rego files replacing the built-in admin policy",
			Sources:     cli.EnvVars("PAWAN_POLICY_DIR"),
			Destination: &cfg.policyDir,
		},
	}
}

// storageFlags returns flags for the archive bucket
func storageFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "bucket",
			Aliases:     []string{"b"},
			Usage:       "Cloud Storage bucket for conversation archives",
			Sources:     cli.EnvVars("PAWAN_ARCHIVE_BUCKET"),
			Destination: &cfg.bucket,
		},
	}
}

// setupLogger installs the default logger according to the log flags
func (cfg *config) setupLogger() error {
	format, err := logging.ParseFormat(cfg.logFormat)
	if err != nil {
		return err
	}
	logging.SetDefault(logging.New(cfg.logLevel, os.Stderr, logging.WithFormat(format)))
	return nil
}

func (cfg *config) clientOptions() []option.ClientOption {
	if cfg.credentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cfg.credentialsFile)}
}

// newRepository creates a new repository instance
func (cfg *config) newRepository(ctx context.Context) (*repository.Firestore, error) {
	if cfg.project == "" {
		return nil, goerr.New("project is required")
	}
	if cfg.database == "" {
		return nil, goerr.New("database is required")
	}

	repo, err := repository.NewFirestore(ctx, cfg.project, cfg.database, cfg.clientOptions()...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create repository")
	}
	return repo, nil
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	backend := adapter.GeminiBackend{
		APIKey:   cfg.geminiAPIKey,
		Project:  cfg.geminiProject,
		Location: cfg.geminiLocation,
	}
	if backend.APIKey == "" && backend.Project == "" {
		return nil, goerr.New("gemini-api-key or gemini-project is required")
	}

	gemini, err := adapter.NewGemini(ctx, backend, adapter.WithGenerativeModel(cfg.geminiModel))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create gemini client")
	}
	return gemini, nil
}

// newIdentity creates the Firebase identity adapter
func (cfg *config) newIdentity(ctx context.Context) (adapter.Identity, error) {
	if cfg.project == "" {
		return nil, goerr.New("project is required")
	}

	identity, err := adapter.NewFirebaseIdentity(ctx, cfg.project, cfg.firebaseAPIKey, cfg.clientOptions()...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create identity client")
	}
	return identity, nil
}

func (cfg *config) newPersonas() (*persona.Catalog, error) {
	if cfg.personaFile == "" {
		return persona.Default(), nil
	}
	return persona.Load(cfg.personaFile)
}

func (cfg *config) newPolicy(ctx context.Context) (*policy.Policy, error) {
	var emails []string
	for _, email := range cfg.adminEmails {
		// env sources arrive as one comma separated value
		for _, e := range strings.Split(email, ",") {
			if e = strings.TrimSpace(e); e != "" {
				emails = append(emails, e)
			}
		}
	}

	var opts []policy.Option
	if cfg.policyDir != "" {
		opts = append(opts, policy.WithPolicyDir(cfg.policyDir))
	}
	return policy.New(ctx, emails, opts...)
}

// newStorage creates a new Storage adapter instance
func (cfg *config) newStorage(ctx context.Context) (adapter.Storage, error) {
	if cfg.bucket == "" {
		return nil, goerr.New("bucket name is required")
	}

	storage, err := adapter.NewStorage(ctx, cfg.bucket, cfg.clientOptions()...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage")
	}
	return storage, nil
}
