package repository

import (
	"context"

	"github.com/pawan-ai/pawan/pkg/model"
)

// Repository defines durable per-user storage of conversations
type Repository interface {
	// ListConversations retrieves all conversations of a user, newest first.
	// It returns an empty slice when the user has none.
	ListConversations(ctx context.Context, uid model.UserID) ([]*model.Conversation, error)

	// SaveConversation overwrites the whole conversation document
	SaveConversation(ctx context.Context, uid model.UserID, conv *model.Conversation) error

	// GetConversation retrieves a conversation by session ID
	GetConversation(ctx context.Context, uid model.UserID, id model.SessionID) (*model.Conversation, error)
}
