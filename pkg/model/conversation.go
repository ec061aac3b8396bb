package model

import (
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Validate checks if the role is one of the known roles
func (r Role) Validate() error {
	switch r {
	case RoleUser, RoleAssistant:
		return nil
	default:
		return goerr.Wrap(ErrInvalidConversation, "unknown role", goerr.V("role", r))
	}
}

type Message struct {
	Role    Role   `firestore:"role" json:"role"`
	Content string `firestore:"content" json:"content"`
}

type SessionID string

var lastSessionID atomic.Int64

// NewSessionID derives a session ID from the creation time in epoch
// milliseconds. IDs issued by one process are strictly increasing even when
// the clock has not advanced between two calls.
func NewSessionID(now time.Time) SessionID {
	ms := now.UnixMilli()
	for {
		last := lastSessionID.Load()
		next := ms
		if next <= last {
			next = last + 1
		}
		if lastSessionID.CompareAndSwap(last, next) {
			return SessionID(strconv.FormatInt(next, 10))
		}
	}
}

const (
	// TitleMaxLength is the maximum title length in characters, ellipsis included
	TitleMaxLength = 30
	titleEllipsis  = "..."
)

// NewTitle derives a conversation title from the first utterance
func NewTitle(utterance string) string {
	runes := []rune(utterance)
	if len(runes) <= TitleMaxLength {
		return utterance
	}
	return string(runes[:TitleMaxLength-len(titleEllipsis)]) + titleEllipsis
}

// Conversation is one titled chat session of a user. The firestore field
// names are the persisted record layout and must not change.
type Conversation struct {
	SessionID SessionID `firestore:"session_id" json:"session_id"`
	Title     string    `firestore:"title" json:"title"`
	Messages  []Message `firestore:"messages" json:"messages"`

	// Zero CreatedAt is replaced with the server time on the first write
	CreatedAt time.Time `firestore:"created_at,serverTimestamp" json:"created_at"`
}

// NewConversation creates an empty conversation started by utterance
func NewConversation(utterance string, now time.Time) *Conversation {
	return &Conversation{
		SessionID: NewSessionID(now),
		Title:     NewTitle(utterance),
		Messages:  []Message{},
	}
}

// Clone returns a deep copy that shares no message storage with c
func (c *Conversation) Clone() *Conversation {
	copied := *c
	copied.Messages = slices.Clone(c.Messages)
	if copied.Messages == nil {
		copied.Messages = []Message{}
	}
	return &copied
}

func (c *Conversation) Append(role Role, content string) {
	c.Messages = append(c.Messages, Message{Role: role, Content: content})
}

// Settled reports whether every user message has its assistant reply
func (c *Conversation) Settled() bool {
	return len(c.Messages)%2 == 0
}

// Validate checks the record read from the store. Messages must alternate
// user and assistant starting with user, and every user message must have
// content.
func (c *Conversation) Validate() error {
	if c.SessionID == "" {
		return goerr.Wrap(ErrInvalidConversation, "session_id is empty")
	}

	for i, msg := range c.Messages {
		if err := msg.Role.Validate(); err != nil {
			return goerr.Wrap(err, "invalid message", goerr.V("index", i))
		}

		expected := RoleUser
		if i%2 == 1 {
			expected = RoleAssistant
		}
		if msg.Role != expected {
			return goerr.Wrap(ErrInvalidConversation, "messages are not paired",
				goerr.V("index", i), goerr.V("role", msg.Role))
		}

		if msg.Role == RoleUser && msg.Content == "" {
			return goerr.Wrap(ErrInvalidConversation, "user message is empty", goerr.V("index", i))
		}
	}

	if !c.Settled() {
		return goerr.Wrap(ErrInvalidConversation, "last user message has no reply",
			goerr.V("messages", len(c.Messages)))
	}

	return nil
}
