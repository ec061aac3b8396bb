package archive_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/pawan-ai/pawan/pkg/model"
	"github.com/pawan-ai/pawan/pkg/repository"
	"github.com/pawan-ai/pawan/pkg/usecase/archive"
)

// mockStorage is an in-memory object store
type mockStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMockStorage() *mockStorage {
	return &mockStorage{
		objects: map[string][]byte{},
		types:   map[string]string{},
	}
}

type objectWriter struct {
	bytes.Buffer
	commit func([]byte)
}

func (w *objectWriter) Close() error {
	w.commit(w.Bytes())
	return nil
}

func (m *mockStorage) Put(ctx context.Context, key, contentType string) (io.WriteCloser, error) {
	return &objectWriter{commit: func(data []byte) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.objects[key] = slices.Clone(data)
		m.types[key] = contentType
	}}, nil
}

func (m *mockStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *mockStorage) List(ctx context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func TestArchive(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	storage := newMockStorage()
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	uc := archive.New(repo, storage, archive.WithClock(func() time.Time { return now }))

	conv := model.NewConversation("Hello", now)
	conv.Append(model.RoleUser, "Hello")
	conv.Append(model.RoleAssistant, "Hi there")
	gt.NoError(t, repo.SaveConversation(ctx, "u1", conv))

	key, err := uc.Archive(ctx, "u1")
	gt.NoError(t, err)
	gt.Equal(t, key, "archives/u1/1751371200000.json")
	gt.Equal(t, storage.types[key], "application/json")

	raw := string(storage.objects[key])
	gt.S(t, raw).Contains(`"session_id": "`)
	gt.S(t, raw).Contains(`"created_at": "`)
	gt.S(t, raw).Contains(`"role": "assistant"`)

	keys, err := uc.List(ctx, "u1")
	gt.NoError(t, err)
	gt.Equal(t, keys, []string{key})

	loaded, err := uc.Load(ctx, key)
	gt.NoError(t, err)
	gt.A(t, loaded).Length(1)
	gt.Equal(t, loaded[0].SessionID, conv.SessionID)
	gt.Equal(t, loaded[0].Messages, conv.Messages)

	other, err := uc.List(ctx, "u2")
	gt.NoError(t, err)
	gt.A(t, other).Length(0)
}

func TestArchiveEmpty(t *testing.T) {
	storage := newMockStorage()
	uc := archive.New(repository.NewMemory(), storage)

	key, err := uc.Archive(context.Background(), "nobody")
	gt.NoError(t, err)
	gt.Equal(t, strings.TrimSpace(string(storage.objects[key])), "[]")
}
