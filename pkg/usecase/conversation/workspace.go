package conversation

import (
	"context"
	"slices"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pawan-ai/pawan/pkg/model"
	"github.com/pawan-ai/pawan/pkg/repository"
)

// NewConversation is the active index meaning "nothing selected yet". The
// next turn starts a new conversation.
const NewConversation = -1

// Workspace is the conversation state of one logged-in session: the user's
// loaded conversation list and which of them is active. It belongs to one
// browser session or one terminal and is never shared between users.
type Workspace struct {
	repo repository.Repository

	turn sync.Mutex

	mu            sync.Mutex
	user          *model.User
	conversations []*model.Conversation
	active        int
	loaded        bool
}

func New(repo repository.Repository) *Workspace {
	return &Workspace{
		repo:   repo,
		active: NewConversation,
	}
}

// Ensure loads the conversation list of user unless it has already been
// loaded for the same uid. A different uid replaces the state. Loading waits
// for a running turn to finish.
func (w *Workspace) Ensure(ctx context.Context, user *model.User) error {
	if w.loadedFor(user) {
		return nil
	}

	w.turn.Lock()
	defer w.turn.Unlock()

	if w.loadedFor(user) {
		return nil
	}
	return w.reload(ctx, user)
}

// Reload fetches the conversation list from the store and resets the
// selection to NewConversation.
func (w *Workspace) Reload(ctx context.Context, user *model.User) error {
	w.turn.Lock()
	defer w.turn.Unlock()
	return w.reload(ctx, user)
}

func (w *Workspace) loadedFor(user *model.User) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return user != nil && w.loaded && w.user != nil && w.user.ID == user.ID
}

func (w *Workspace) reload(ctx context.Context, user *model.User) error {
	if user == nil || user.ID == "" {
		return goerr.New("user is required to load conversations")
	}

	convs, err := w.repo.ListConversations(ctx, user.ID)
	if err != nil {
		return goerr.Wrap(err, "failed to load conversations", goerr.V("uid", user.ID))
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.user = user
	w.conversations = convs
	w.active = NewConversation
	w.loaded = true

	return nil
}

func (w *Workspace) SelectNew() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.active = NewConversation
}

// SelectExisting activates the conversation at index in list order
func (w *Workspace) SelectExisting(index int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if index < 0 || index >= len(w.conversations) {
		return goerr.Wrap(model.ErrIndexOutOfRange, "cannot select conversation",
			goerr.V("index", index),
			goerr.V("count", len(w.conversations)),
		)
	}

	w.active = index
	return nil
}

// Start puts a copy of conv at the front of the list and activates it
func (w *Workspace) Start(conv *model.Conversation) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.conversations = slices.Insert(w.conversations, 0, conv.Clone())
	w.active = 0
}

// Commit replaces the listed conversation having the same session ID with a
// copy of conv. An unlisted conversation is started instead.
func (w *Workspace) Commit(conv *model.Conversation) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, listed := range w.conversations {
		if listed.SessionID == conv.SessionID {
			w.conversations[i] = conv.Clone()
			return
		}
	}
	w.conversations = slices.Insert(w.conversations, 0, conv.Clone())
	w.active = 0
}

// Active returns a copy of the selected conversation, or nil for
// NewConversation
func (w *Workspace) Active() *model.Conversation {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.active == NewConversation {
		return nil
	}
	return w.conversations[w.active].Clone()
}

func (w *Workspace) ActiveIndex() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// Conversations returns copies of the listed conversations in store order
func (w *Workspace) Conversations() []*model.Conversation {
	w.mu.Lock()
	defer w.mu.Unlock()

	convs := make([]*model.Conversation, 0, len(w.conversations))
	for _, conv := range w.conversations {
		convs = append(convs, conv.Clone())
	}
	return convs
}

func (w *Workspace) User() *model.User {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.user
}

// Lock serializes turns and loads of this workspace
func (w *Workspace) Lock() {
	w.turn.Lock()
}

func (w *Workspace) Unlock() {
	w.turn.Unlock()
}
