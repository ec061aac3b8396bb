package account

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pawan-ai/pawan/pkg/adapter"
	"github.com/pawan-ai/pawan/pkg/model"
	"github.com/pawan-ai/pawan/pkg/utils/logging"
)

// MinPasswordLength is the shortest password the identity provider accepts
const MinPasswordLength = 6

// UseCase provides registration and password login
type UseCase struct {
	identity adapter.Identity
}

func New(identity adapter.Identity) *UseCase {
	return &UseCase{identity: identity}
}

// Register creates a new identity. The user has to log in afterwards.
func (u *UseCase) Register(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, goerr.Wrap(&model.AuthError{
			Kind:   model.ErrMissingCredentials,
			Reason: "Please enter both email and password to register.",
		}, "cannot register")
	}

	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, goerr.Wrap(&model.AuthError{
			Kind:   model.ErrWeakPassword,
			Reason: "Password should be at least 6 characters.",
		}, "cannot register", goerr.V("email", email))
	}

	user, err := u.identity.SignUp(ctx, email, password)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to register", goerr.V("email", email))
	}

	logging.From(ctx).Info("user registered", "uid", user.ID, "email", user.Email)
	return user, nil
}

// Login verifies the password and returns the user record from the identity
// provider.
func (u *UseCase) Login(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, goerr.Wrap(&model.AuthError{
			Kind:   model.ErrMissingCredentials,
			Reason: "Please enter both email and password.",
		}, "cannot log in")
	}

	user, err := u.identity.SignIn(ctx, email, password)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to log in", goerr.V("email", email))
	}

	logging.From(ctx).Info("user logged in", "uid", user.ID)
	return user, nil
}
