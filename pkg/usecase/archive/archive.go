package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pawan-ai/pawan/pkg/adapter"
	"github.com/pawan-ai/pawan/pkg/model"
	"github.com/pawan-ai/pawan/pkg/repository"
	"github.com/pawan-ai/pawan/pkg/utils/logging"
)

// UseCase exports a user's conversations to object storage as JSON
type UseCase struct {
	repo    repository.Repository
	storage adapter.Storage
	now     func() time.Time
}

type Option func(*UseCase)

func WithClock(now func() time.Time) Option {
	return func(u *UseCase) {
		u.now = now
	}
}

func New(repo repository.Repository, storage adapter.Storage, opts ...Option) *UseCase {
	uc := &UseCase{
		repo:    repo,
		storage: storage,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func prefix(uid model.UserID) string {
	return "archives/" + string(uid) + "/"
}

// Archive writes every conversation of uid into a new object and returns its
// key. Existing archives are never overwritten.
func (u *UseCase) Archive(ctx context.Context, uid model.UserID) (string, error) {
	convs, err := u.repo.ListConversations(ctx, uid)
	if err != nil {
		return "", goerr.Wrap(err, "failed to list conversations", goerr.V("uid", uid))
	}

	key := fmt.Sprintf("%s%d.json", prefix(uid), u.now().UnixMilli())
	writer, err := u.storage.Put(ctx, key, "application/json")
	if err != nil {
		return "", goerr.Wrap(err, "failed to create storage writer", goerr.V("key", key))
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(convs); err != nil {
		_ = writer.Close()
		return "", goerr.Wrap(err, "failed to write archive", goerr.V("key", key))
	}

	if err := writer.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to close storage writer", goerr.V("key", key))
	}

	logging.From(ctx).Info("conversations archived", "uid", uid, "key", key, "count", len(convs))
	return key, nil
}

// List returns archive keys of uid, oldest first
func (u *UseCase) List(ctx context.Context, uid model.UserID) ([]string, error) {
	keys, err := u.storage.List(ctx, prefix(uid))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list archives", goerr.V("uid", uid))
	}
	return keys, nil
}

// Load reads an archive back
func (u *UseCase) Load(ctx context.Context, key string) ([]*model.Conversation, error) {
	reader, err := u.storage.Get(ctx, key)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open archive", goerr.V("key", key))
	}
	defer reader.Close()

	var convs []*model.Conversation
	if err := json.NewDecoder(reader).Decode(&convs); err != nil {
		return nil, goerr.Wrap(err, "failed to decode archive", goerr.V("key", key))
	}
	return convs, nil
}
