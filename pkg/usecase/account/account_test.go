package account_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/pawan-ai/pawan/pkg/model"
	"github.com/pawan-ai/pawan/pkg/usecase/account"
)

// mockIdentity keeps accounts in memory
type mockIdentity struct {
	users     map[string]string
	signUps   int
	signInErr error
}

func newMockIdentity() *mockIdentity {
	return &mockIdentity{users: map[string]string{}}
}

func (m *mockIdentity) SignUp(ctx context.Context, email, password string) (*model.User, error) {
	m.signUps++
	if _, ok := m.users[email]; ok {
		return nil, &model.AuthError{Kind: model.ErrEmailExists, Reason: "This email address is already in use."}
	}
	m.users[email] = password
	return &model.User{ID: model.UserID("uid-" + email), Email: email}, nil
}

func (m *mockIdentity) SignIn(ctx context.Context, email, password string) (*model.User, error) {
	if m.signInErr != nil {
		return nil, m.signInErr
	}
	if stored, ok := m.users[email]; !ok || stored != password {
		return nil, &model.AuthError{Kind: model.ErrInvalidCredentials, Reason: "Invalid password"}
	}
	return &model.User{ID: model.UserID("uid-" + email), Email: email}, nil
}

func (m *mockIdentity) GetUser(ctx context.Context, uid model.UserID) (*model.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockIdentity) ListUsers(ctx context.Context) ([]*model.User, error) {
	return nil, errors.New("not implemented")
}

func reason(t *testing.T, err error) string {
	t.Helper()
	var authErr *model.AuthError
	gt.True(t, errors.As(err, &authErr))
	return authErr.Reason
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	uc := account.New(newMockIdentity())

	registered, err := uc.Register(ctx, " alice@example.com ", "secret1")
	gt.NoError(t, err)
	gt.Equal(t, registered.Email, "alice@example.com")

	user, err := uc.Login(ctx, "alice@example.com", "secret1")
	gt.NoError(t, err)
	gt.Equal(t, user.ID, registered.ID)
}

func TestRegisterValidation(t *testing.T) {
	testCases := []struct {
		name     string
		email    string
		password string
		kind     error
		reason   string
	}{
		{"missing email", "", "secret1", model.ErrMissingCredentials, "Please enter both email and password to register."},
		{"missing password", "a@example.com", "", model.ErrMissingCredentials, "Please enter both email and password to register."},
		{"short password", "a@example.com", "12345", model.ErrWeakPassword, "Password should be at least 6 characters."},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			identity := newMockIdentity()
			_, err := account.New(identity).Register(context.Background(), tc.email, tc.password)
			gt.True(t, errors.Is(err, tc.kind))
			gt.True(t, errors.Is(err, model.ErrAuthFailure))
			gt.Equal(t, reason(t, err), tc.reason)
			gt.Equal(t, identity.signUps, 0)
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	uc := account.New(newMockIdentity())

	_, err := uc.Register(ctx, "bob@example.com", "secret1")
	gt.NoError(t, err)

	_, err = uc.Register(ctx, "bob@example.com", "secret2")
	gt.True(t, errors.Is(err, model.ErrEmailExists))
	gt.Equal(t, reason(t, err), "This email address is already in use.")
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()
	identity := newMockIdentity()
	uc := account.New(identity)
	_, err := uc.Register(ctx, "carol@example.com", "secret1")
	gt.NoError(t, err)

	_, err = uc.Login(ctx, "carol@example.com", "wrong-password")
	gt.True(t, errors.Is(err, model.ErrInvalidCredentials))
	gt.Equal(t, reason(t, err), "Invalid password")

	_, err = uc.Login(ctx, "", "")
	gt.True(t, errors.Is(err, model.ErrMissingCredentials))
	gt.Equal(t, reason(t, err), "Please enter both email and password.")

	identity.signInErr = &model.AuthError{
		Kind:   errors.Join(model.ErrAuthFailure, errors.New("dial tcp: timeout")),
		Reason: "A network error occurred: dial tcp: timeout",
	}
	_, err = uc.Login(ctx, "carol@example.com", "secret1")
	gt.True(t, errors.Is(err, model.ErrAuthFailure))
	gt.False(t, errors.Is(err, model.ErrInvalidCredentials))
}
