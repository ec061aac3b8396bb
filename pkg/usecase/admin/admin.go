package admin

import (
	"context"
	"slices"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pawan-ai/pawan/pkg/adapter"
	"github.com/pawan-ai/pawan/pkg/model"
	"github.com/pawan-ai/pawan/pkg/repository"
	"github.com/pawan-ai/pawan/pkg/utils/logging"
)

// Authorizer decides whether a user may read other users' conversations
type Authorizer interface {
	AllowAdmin(ctx context.Context, user *model.User) (bool, error)
}

// UseCase provides the read-only admin view. Every operation checks the
// actor first and fails with model.ErrAccessDenied before touching data.
type UseCase struct {
	identity adapter.Identity
	repo     repository.Repository
	policy   Authorizer
}

func New(identity adapter.Identity, repo repository.Repository, policy Authorizer) *UseCase {
	return &UseCase{
		identity: identity,
		repo:     repo,
		policy:   policy,
	}
}

func (u *UseCase) Authorize(ctx context.Context, actor *model.User) error {
	allowed, err := u.policy.AllowAdmin(ctx, actor)
	if err != nil {
		logging.From(ctx).Error("admin policy evaluation failed", "error", err)
		return goerr.Wrap(model.ErrAccessDenied, "policy evaluation failed")
	}
	if !allowed {
		var email string
		if actor != nil {
			email = actor.Email
		}
		return goerr.Wrap(model.ErrAccessDenied, "not an admin", goerr.V("email", email))
	}
	return nil
}

// ListUsers returns registered identities that have an email, sorted by email
func (u *UseCase) ListUsers(ctx context.Context, actor *model.User) ([]*model.User, error) {
	if err := u.Authorize(ctx, actor); err != nil {
		return nil, err
	}

	users, err := u.identity.ListUsers(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list users")
	}

	filtered := make([]*model.User, 0, len(users))
	for _, user := range users {
		if user.Email != "" {
			filtered = append(filtered, user)
		}
	}
	slices.SortFunc(filtered, func(a, b *model.User) int {
		return strings.Compare(a.Email, b.Email)
	})

	return filtered, nil
}

// UserConversations returns the user and their conversations, newest first
func (u *UseCase) UserConversations(ctx context.Context, actor *model.User, uid model.UserID) (*model.User, []*model.Conversation, error) {
	if err := u.Authorize(ctx, actor); err != nil {
		return nil, nil, err
	}

	user, err := u.identity.GetUser(ctx, uid)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to get user", goerr.V("uid", uid))
	}

	convs, err := u.repo.ListConversations(ctx, uid)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to list conversations", goerr.V("uid", uid))
	}

	logging.From(ctx).Info("admin read conversations",
		"admin", actor.Email,
		"uid", uid,
		"count", len(convs),
	)
	return user, convs, nil
}
