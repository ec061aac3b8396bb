package policy

import (
	"context"
	_ "embed"

	"github.com/m-mizutani/goerr/v2"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/storage/inmem"
	"github.com/pawan-ai/pawan/pkg/model"
)

//go:embed admin.rego
var adminPolicy string

const adminQuery = "data.pawan.admin.allow"

// Policy decides who may use the admin read path. Admin emails are exposed
// to the policy as data.admins.
type Policy struct {
	admin *rego.PreparedEvalQuery
}

type options struct {
	policyDir string
}

type Option func(*options)

// WithPolicyDir replaces the built-in policy with the *.rego files in dir.
// The files must define data.pawan.admin.allow.
func WithPolicyDir(dir string) Option {
	return func(o *options) {
		o.policyDir = dir
	}
}

func New(ctx context.Context, admins []string, opts ...Option) (*Policy, error) {
	var cfg options
	for _, opt := range opts {
		opt(&cfg)
	}

	modules := []func(*rego.Rego){rego.Module("admin.rego", adminPolicy)}
	if cfg.policyDir != "" {
		loaded, err := loadModules(cfg.policyDir)
		if err != nil {
			return nil, err
		}
		modules = loaded
	}

	adminList := make([]any, 0, len(admins))
	for _, email := range admins {
		if email != "" {
			adminList = append(adminList, email)
		}
	}
	store := inmem.NewFromObject(map[string]any{"admins": adminList})

	query, err := prepareQuery(ctx, modules, adminQuery, rego.Store(store))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare admin policy")
	}

	return &Policy{admin: query}, nil
}

// AllowAdmin evaluates the admin policy for user. Any evaluation failure
// denies access.
func (p *Policy) AllowAdmin(ctx context.Context, user *model.User) (bool, error) {
	if user == nil {
		return false, nil
	}

	input := map[string]any{
		"uid":   string(user.ID),
		"email": user.Email,
	}
	rs, err := p.admin.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, goerr.Wrap(err, "failed to evaluate admin policy", goerr.V("uid", user.ID))
	}

	return rs.Allowed(), nil
}
