package model

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrAuthFailure is the parent of every credential related failure.
	ErrAuthFailure        = goerr.New("authentication failed")
	ErrInvalidCredentials = goerr.Wrap(ErrAuthFailure, "invalid credentials")
	ErrEmailExists        = goerr.Wrap(ErrAuthFailure, "email address is already in use")
	ErrWeakPassword       = goerr.Wrap(ErrAuthFailure, "password is too weak")
	ErrMissingCredentials = goerr.Wrap(ErrAuthFailure, "email and password are required")

	ErrStoreUnavailable  = goerr.New("conversation store is unavailable")
	ErrGenerationFailure = goerr.New("response generation failed")
	ErrAccessDenied      = goerr.New("access denied")
	ErrUserNotFound      = goerr.New("user not found")

	ErrIndexOutOfRange      = goerr.New("conversation index out of range")
	ErrConversationNotFound = goerr.New("conversation not found")
	ErrInvalidConversation  = goerr.New("invalid conversation record")
	ErrEmptyMessage         = goerr.New("message is empty")
)

// AuthError carries the identity provider's reason in a form that can be
// shown to the user. Kind is one of the ErrAuthFailure family.
type AuthError struct {
	Kind   error
	Reason string
}

func (e *AuthError) Error() string {
	return e.Reason
}

func (e *AuthError) Unwrap() error {
	return e.Kind
}
