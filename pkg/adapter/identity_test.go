package adapter_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/pawan-ai/pawan/pkg/adapter"
	"github.com/pawan-ai/pawan/pkg/model"
)

func TestDescribeProviderCode(t *testing.T) {
	testCases := map[string]string{
		"INVALID_PASSWORD":          "Invalid password",
		"EMAIL_NOT_FOUND":           "Email not found",
		"INVALID_LOGIN_CREDENTIALS": "Invalid login credentials",
		"TOO_MANY_ATTEMPTS_TRY_LATER : Access to this account has been temporarily disabled": "Too many attempts try later",
		"":  "Unknown error",
		" ": "Unknown error",
	}

	for input, want := range testCases {
		t.Run(input, func(t *testing.T) {
			gt.Equal(t, adapter.DescribeProviderCode(input), want)
		})
	}
}

func TestFirebaseIdentity(t *testing.T) {
	projectID := os.Getenv("TEST_FIREBASE_PROJECT")
	apiKey := os.Getenv("TEST_FIREBASE_API_KEY")
	if projectID == "" || apiKey == "" {
		t.Skip("TEST_FIREBASE_PROJECT and TEST_FIREBASE_API_KEY must be set")
	}

	ctx := context.Background()
	identity, err := adapter.NewFirebaseIdentity(ctx, projectID, apiKey)
	gt.NoError(t, err)

	email := "test-" + uuid.NewString() + "@example.com"
	password := "correct-horse"

	created, err := identity.SignUp(ctx, email, password)
	gt.NoError(t, err)
	gt.Equal(t, created.Email, email)

	_, err = identity.SignUp(ctx, email, password)
	gt.Error(t, err)

	signedIn, err := identity.SignIn(ctx, email, password)
	gt.NoError(t, err)
	gt.Equal(t, signedIn.ID, created.ID)

	_, err = identity.SignIn(ctx, email, "wrong-password")
	gt.Error(t, err)

	_, err = identity.GetUser(ctx, model.UserID("missing-"+uuid.NewString()))
	gt.True(t, errors.Is(err, model.ErrUserNotFound))
}
