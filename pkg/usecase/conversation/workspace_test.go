package conversation_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/pawan-ai/pawan/pkg/model"
	"github.com/pawan-ai/pawan/pkg/repository"
	"github.com/pawan-ai/pawan/pkg/usecase/conversation"
)

type countingRepo struct {
	repository.Repository
	lists atomic.Int32
	err   error
}

func (r *countingRepo) ListConversations(ctx context.Context, uid model.UserID) ([]*model.Conversation, error) {
	r.lists.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return r.Repository.ListConversations(ctx, uid)
}

func newUser() *model.User {
	id := uuid.NewString()
	return &model.User{ID: model.UserID(id), Email: id + "@example.com"}
}

func seed(t *testing.T, repo repository.Repository, uid model.UserID, titles ...string) {
	t.Helper()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, title := range titles {
		conv := model.NewConversation(title, base)
		conv.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		conv.Append(model.RoleUser, title)
		conv.Append(model.RoleAssistant, "reply to "+title)
		gt.NoError(t, repo.SaveConversation(context.Background(), uid, conv))
	}
}

func TestEnsureLoadsOncePerUser(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{Repository: repository.NewMemory()}
	alice, bob := newUser(), newUser()
	seed(t, repo, alice.ID, "first", "second")
	seed(t, repo, bob.ID, "bob only")

	ws := conversation.New(repo)
	gt.NoError(t, ws.Ensure(ctx, alice))
	gt.NoError(t, ws.Ensure(ctx, alice))
	gt.Equal(t, repo.lists.Load(), int32(1))

	convs := ws.Conversations()
	gt.A(t, convs).Length(2)
	gt.Equal(t, convs[0].Title, "second")
	gt.Equal(t, convs[1].Title, "first")
	gt.Equal(t, ws.ActiveIndex(), conversation.NewConversation)
	gt.Nil(t, ws.Active())

	gt.NoError(t, ws.SelectExisting(1))
	gt.NoError(t, ws.Ensure(ctx, bob))
	gt.Equal(t, repo.lists.Load(), int32(2))
	gt.Equal(t, ws.User().ID, bob.ID)
	gt.A(t, ws.Conversations()).Length(1)
	gt.Equal(t, ws.ActiveIndex(), conversation.NewConversation)
}

func TestEnsureEmptyHistory(t *testing.T) {
	ws := conversation.New(repository.NewMemory())
	gt.NoError(t, ws.Ensure(context.Background(), newUser()))
	gt.A(t, ws.Conversations()).Length(0)
	gt.Nil(t, ws.Active())
}

func TestEnsureStoreFailure(t *testing.T) {
	repo := &countingRepo{
		Repository: repository.NewMemory(),
		err:        goerr.Wrap(model.ErrStoreUnavailable, "down"),
	}
	ws := conversation.New(repo)
	err := ws.Ensure(context.Background(), newUser())
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrStoreUnavailable))
}

func TestSelectExisting(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	user := newUser()
	seed(t, repo, user.ID, "a", "b", "c")

	ws := conversation.New(repo)
	gt.NoError(t, ws.Ensure(ctx, user))

	gt.NoError(t, ws.SelectExisting(2))
	gt.Equal(t, ws.Active().Title, "a")

	for _, index := range []int{-1, 3, 100} {
		err := ws.SelectExisting(index)
		gt.True(t, errors.Is(err, model.ErrIndexOutOfRange))
	}
	gt.Equal(t, ws.ActiveIndex(), 2)

	ws.SelectNew()
	gt.Nil(t, ws.Active())
}

func TestStartActivatesFront(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	user := newUser()
	seed(t, repo, user.ID, "old")

	ws := conversation.New(repo)
	gt.NoError(t, ws.Ensure(ctx, user))

	conv := model.NewConversation("fresh", time.Now())
	ws.Start(conv)

	gt.Equal(t, ws.ActiveIndex(), 0)
	gt.Equal(t, ws.Active(), conv)
	convs := ws.Conversations()
	gt.A(t, convs).Length(2)
	gt.Equal(t, convs[1].Title, "old")
}

func TestReloadResetsSelection(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{Repository: repository.NewMemory()}
	user := newUser()
	seed(t, repo, user.ID, "a")

	ws := conversation.New(repo)
	gt.NoError(t, ws.Ensure(ctx, user))
	gt.NoError(t, ws.SelectExisting(0))

	gt.NoError(t, ws.Reload(ctx, user))
	gt.Equal(t, repo.lists.Load(), int32(2))
	gt.Equal(t, ws.ActiveIndex(), conversation.NewConversation)
}

func TestReadersGetCopies(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	user := newUser()
	seed(t, repo, user.ID, "a")

	ws := conversation.New(repo)
	gt.NoError(t, ws.Ensure(ctx, user))
	gt.NoError(t, ws.SelectExisting(0))

	active := ws.Active()
	active.Append(model.RoleUser, "not committed")
	active.Title = "changed"
	ws.Conversations()[0].Append(model.RoleUser, "not committed either")

	gt.Equal(t, ws.Active().Title, "a")
	gt.A(t, ws.Active().Messages).Length(2)
	gt.A(t, ws.Conversations()[0].Messages).Length(2)
}

func TestCommit(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	user := newUser()
	seed(t, repo, user.ID, "old")

	ws := conversation.New(repo)
	gt.NoError(t, ws.Ensure(ctx, user))

	fresh := model.NewConversation("fresh", time.Now())
	fresh.Append(model.RoleUser, "fresh")
	ws.Commit(fresh)
	gt.Equal(t, ws.ActiveIndex(), 0)
	gt.A(t, ws.Conversations()).Length(2)

	fresh.Append(model.RoleAssistant, "reply")
	gt.A(t, ws.Active().Messages).Length(1)

	ws.Commit(fresh)
	gt.A(t, ws.Conversations()).Length(2)
	gt.Equal(t, ws.Active().Messages, fresh.Messages)
	gt.Equal(t, ws.Conversations()[1].Title, "old")
}

func TestEnsureConcurrentLoadsOnce(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{Repository: repository.NewMemory()}
	user := newUser()
	seed(t, repo, user.ID, "a")

	ws := conversation.New(repo)

	errs := make([]error, 8)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = ws.Ensure(ctx, user)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		gt.NoError(t, err)
	}

	gt.Equal(t, repo.lists.Load(), int32(1))
	gt.A(t, ws.Conversations()).Length(1)
}

func TestEnsureDuringTurnKeepsStartedConversation(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{Repository: repository.NewMemory()}
	user := newUser()

	ws := conversation.New(repo)
	gt.NoError(t, ws.Ensure(ctx, user))

	ws.Lock()
	ws.Start(model.NewConversation("in flight", time.Now()))
	done := make(chan error)
	go func() {
		done <- ws.Ensure(ctx, user)
	}()
	ws.Unlock()
	gt.NoError(t, <-done)

	gt.Equal(t, repo.lists.Load(), int32(1))
	gt.A(t, ws.Conversations()).Length(1)
	gt.Equal(t, ws.Active().Title, "in flight")
}
