package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pawan-ai/pawan/pkg/model"
)

// Memory is an in-process Repository with the same ordering and overwrite
// semantics as Firestore. Stored values are copies, so mutating a
// conversation after saving it does not change the stored record.
type Memory struct {
	mu    sync.Mutex
	users map[model.UserID]map[model.SessionID]*model.Conversation
	now   func() time.Time
}

type MemoryOption func(*Memory)

// WithClock sets the clock used as the server timestamp
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		users: make(map[model.UserID]map[model.SessionID]*model.Conversation),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) ListConversations(ctx context.Context, uid model.UserID) ([]*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	convs := make([]*model.Conversation, 0, len(m.users[uid]))
	for _, conv := range m.users[uid] {
		convs = append(convs, conv.Clone())
	}

	slices.SortStableFunc(convs, func(a, b *model.Conversation) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if a.SessionID > b.SessionID {
			return -1
		}
		if a.SessionID < b.SessionID {
			return 1
		}
		return 0
	})

	return convs, nil
}

func (m *Memory) SaveConversation(ctx context.Context, uid model.UserID, conv *model.Conversation) error {
	if conv.SessionID == "" {
		return goerr.Wrap(model.ErrInvalidConversation, "session_id is empty", goerr.V("uid", uid))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = m.now()
	}

	if m.users[uid] == nil {
		m.users[uid] = make(map[model.SessionID]*model.Conversation)
	}
	m.users[uid][conv.SessionID] = conv.Clone()

	return nil
}

func (m *Memory) GetConversation(ctx context.Context, uid model.UserID, id model.SessionID) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.users[uid][id]
	if !ok {
		return nil, goerr.Wrap(model.ErrConversationNotFound, "no such conversation",
			goerr.V("uid", uid),
			goerr.V("session_id", id),
		)
	}
	return conv.Clone(), nil
}
