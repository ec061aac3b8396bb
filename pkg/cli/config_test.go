package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/pawan-ai/pawan/pkg/model"
	"github.com/pawan-ai/pawan/pkg/utils/logging"
)

func TestNewPolicySplitsAdminEmails(t *testing.T) {
	ctx := context.Background()
	cfg := config{adminEmails: []string{"a@example.com, b@example.com", "c@example.com"}}

	p, err := cfg.newPolicy(ctx)
	gt.NoError(t, err)

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		allowed, err := p.AllowAdmin(ctx, &model.User{ID: "u", Email: email})
		gt.NoError(t, err)
		gt.True(t, allowed)
	}

	allowed, err := p.AllowAdmin(ctx, &model.User{ID: "u", Email: "d@example.com"})
	gt.NoError(t, err)
	gt.False(t, allowed)
}

func TestNewPersonas(t *testing.T) {
	var cfg config
	catalog, err := cfg.newPersonas()
	gt.NoError(t, err)
	gt.Equal(t, string(catalog.Default().ID), "interview")

	path := filepath.Join(t.TempDir(), "modes.yaml")
	gt.NoError(t, os.WriteFile(path, []byte("modes:\n  - id: plain\n    label: Plain\n"), 0o600))
	cfg.personaFile = path
	catalog, err = cfg.newPersonas()
	gt.NoError(t, err)
	gt.Equal(t, string(catalog.Default().ID), "plain")
}

func TestConfigValidation(t *testing.T) {
	ctx := context.Background()

	_, err := (&config{database: "(default)"}).newRepository(ctx)
	gt.Error(t, err)

	_, err = (&config{}).newGemini(ctx)
	gt.Error(t, err)

	_, err = (&config{}).newStorage(ctx)
	gt.Error(t, err)

	_, err = (&config{}).newIdentity(ctx)
	gt.Error(t, err)
}

func TestSetupLogger(t *testing.T) {
	prev := logging.Default()
	t.Cleanup(func() { logging.SetDefault(prev) })

	gt.NoError(t, (&config{logLevel: "debug", logFormat: "json"}).setupLogger())
	gt.Error(t, (&config{logLevel: "info", logFormat: "xml"}).setupLogger())
}
