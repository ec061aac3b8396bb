package adapter

import (
	"context"
	"errors"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pawan-ai/pawan/pkg/model"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Identity is the boundary to the hosted identity provider
type Identity interface {
	// SignUp creates a new identity record
	SignUp(ctx context.Context, email, password string) (*model.User, error)

	// SignIn verifies the password and returns the canonical user record
	SignIn(ctx context.Context, email, password string) (*model.User, error)

	// GetUser retrieves a user by uid
	GetUser(ctx context.Context, uid model.UserID) (*model.User, error)

	// ListUsers retrieves every registered identity
	ListUsers(ctx context.Context) ([]*model.User, error)
}

// FirebaseIdentity uses the Firebase Admin SDK for account management and the
// Identity Toolkit REST API, authorized by the web API key, for password
// verification.
type FirebaseIdentity struct {
	auth         *auth.Client
	relyingParty *identitytoolkit.RelyingpartyService
}

// NewFirebaseIdentity creates the identity adapter. opts are used for the
// Admin SDK (e.g. a service account credentials file).
func NewFirebaseIdentity(ctx context.Context, projectID, apiKey string, opts ...option.ClientOption) (*FirebaseIdentity, error) {
	if apiKey == "" {
		return nil, goerr.New("firebase web API key is required")
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firebase app", goerr.V("project", projectID))
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firebase auth client")
	}

	svc, err := identitytoolkit.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create identity toolkit service")
	}

	return &FirebaseIdentity{
		auth:         authClient,
		relyingParty: svc.Relyingparty,
	}, nil
}

func (f *FirebaseIdentity) SignUp(ctx context.Context, email, password string) (*model.User, error) {
	params := (&auth.UserToCreate{}).Email(email).Password(password)
	record, err := f.auth.CreateUser(ctx, params)
	if err != nil {
		return nil, signUpError(err, email)
	}

	return toUser(record), nil
}

func (f *FirebaseIdentity) SignIn(ctx context.Context, email, password string) (*model.User, error) {
	req := &identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}
	resp, err := f.relyingParty.VerifyPassword(req).Context(ctx).Do()
	if err != nil {
		return nil, signInError(err, email)
	}
	if resp.LocalId == "" {
		return nil, goerr.Wrap(&model.AuthError{
			Kind:   model.ErrInvalidCredentials,
			Reason: "Unknown error",
		}, "identity provider returned no user ID", goerr.V("email", email))
	}

	// The admin record is the source of truth for uid and email
	user, err := f.GetUser(ctx, model.UserID(resp.LocalId))
	if errors.Is(err, model.ErrUserNotFound) {
		return nil, goerr.Wrap(&model.AuthError{
			Kind:   model.ErrInvalidCredentials,
			Reason: "User not found",
		}, "signed in user has no record", goerr.V("email", email))
	}
	return user, err
}

func (f *FirebaseIdentity) GetUser(ctx context.Context, uid model.UserID) (*model.User, error) {
	record, err := f.auth.GetUser(ctx, string(uid))
	if err != nil {
		if auth.IsUserNotFound(err) {
			return nil, goerr.Wrap(model.ErrUserNotFound, "no such user", goerr.V("uid", uid))
		}
		return nil, goerr.Wrap(errors.Join(model.ErrAuthFailure, err), "failed to get user", goerr.V("uid", uid))
	}

	return toUser(record), nil
}

func (f *FirebaseIdentity) ListUsers(ctx context.Context) ([]*model.User, error) {
	var users []*model.User

	iter := f.auth.Users(ctx, "")
	for {
		record, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(errors.Join(model.ErrAuthFailure, err), "failed to list users")
		}
		users = append(users, toUser(record.UserRecord))
	}

	return users, nil
}

func toUser(record *auth.UserRecord) *model.User {
	return &model.User{
		ID:    model.UserID(record.UID),
		Email: record.Email,
	}
}

func signUpError(err error, email string) error {
	switch {
	case auth.IsEmailAlreadyExists(err):
		return goerr.Wrap(&model.AuthError{
			Kind:   model.ErrEmailExists,
			Reason: "This email address is already in use.",
		}, "failed to create user", goerr.V("email", email))

	case strings.Contains(err.Error(), "WEAK_PASSWORD"),
		strings.Contains(err.Error(), "at least 6 characters"):
		return goerr.Wrap(&model.AuthError{
			Kind:   model.ErrWeakPassword,
			Reason: "Password should be at least 6 characters.",
		}, "failed to create user", goerr.V("email", email))

	default:
		return goerr.Wrap(&model.AuthError{
			Kind:   errors.Join(model.ErrAuthFailure, err),
			Reason: err.Error(),
		}, "failed to create user", goerr.V("email", email))
	}
}

func signInError(err error, email string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code < 500 {
		return goerr.Wrap(&model.AuthError{
			Kind:   model.ErrInvalidCredentials,
			Reason: DescribeProviderCode(apiErr.Message),
		}, "password sign-in rejected",
			goerr.V("email", email),
			goerr.V("code", apiErr.Code),
		)
	}

	return goerr.Wrap(&model.AuthError{
		Kind:   errors.Join(model.ErrAuthFailure, err),
		Reason: "A network error occurred: " + err.Error(),
	}, "password sign-in failed", goerr.V("email", email))
}

// DescribeProviderCode turns a provider code such as "INVALID_PASSWORD" or
// "TOO_MANY_ATTEMPTS_TRY_LATER : detail" into "Invalid password" style text.
func DescribeProviderCode(code string) string {
	code, _, _ = strings.Cut(code, " : ")
	code = strings.TrimSpace(code)
	if code == "" {
		return "Unknown error"
	}

	text := strings.ToLower(strings.ReplaceAll(code, "_", " "))
	return strings.ToUpper(text[:1]) + text[1:]
}
