package repository

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pawan-ai/pawan/pkg/model"
	"github.com/pawan-ai/pawan/pkg/utils/logging"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	collectionUsers        = "users"
	collectionChatSessions = "chat_sessions"
	fieldCreatedAt         = "created_at"
)

// Firestore stores conversations at users/{uid}/chat_sessions/{session_id}
type Firestore struct {
	client *firestore.Client
}

// NewFirestore creates a new Firestore repository
func NewFirestore(ctx context.Context, projectID, databaseID string, opts ...option.ClientOption) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID),
			goerr.V("database", databaseID),
		)
	}

	return &Firestore{client: client}, nil
}

func (r *Firestore) Close() error {
	if err := r.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close firestore client")
	}
	return nil
}

func (r *Firestore) sessions(uid model.UserID) *firestore.CollectionRef {
	return r.client.Collection(collectionUsers).Doc(string(uid)).Collection(collectionChatSessions)
}

func (r *Firestore) ListConversations(ctx context.Context, uid model.UserID) ([]*model.Conversation, error) {
	iter := r.sessions(uid).OrderBy(fieldCreatedAt, firestore.Desc).Documents(ctx)
	defer iter.Stop()

	convs := []*model.Conversation{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, unavailable(err, "failed to list conversations", uid)
		}

		conv, err := decodeConversation(doc)
		if err != nil {
			// Malformed records are left in the store and kept out of the listing
			logging.From(ctx).Warn("skip malformed conversation",
				"uid", uid,
				"doc_id", doc.Ref.ID,
				"error", err,
			)
			continue
		}
		convs = append(convs, conv)
	}

	return convs, nil
}

func (r *Firestore) SaveConversation(ctx context.Context, uid model.UserID, conv *model.Conversation) error {
	if conv.SessionID == "" {
		return goerr.Wrap(model.ErrInvalidConversation, "session_id is empty", goerr.V("uid", uid))
	}

	result, err := r.sessions(uid).Doc(string(conv.SessionID)).Set(ctx, conv)
	if err != nil {
		return unavailable(err, "failed to save conversation", uid)
	}

	// Keep the server assigned creation time so that later overwrites do not move it
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = result.UpdateTime
	}

	return nil
}

func (r *Firestore) GetConversation(ctx context.Context, uid model.UserID, id model.SessionID) (*model.Conversation, error) {
	doc, err := r.sessions(uid).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrConversationNotFound, "no such conversation",
				goerr.V("uid", uid),
				goerr.V("session_id", id),
			)
		}
		return nil, unavailable(err, "failed to get conversation", uid)
	}

	return decodeConversation(doc)
}

func decodeConversation(doc *firestore.DocumentSnapshot) (*model.Conversation, error) {
	var conv model.Conversation
	if err := doc.DataTo(&conv); err != nil {
		return nil, goerr.Wrap(model.ErrInvalidConversation, "failed to decode conversation document",
			goerr.V("doc_id", doc.Ref.ID),
			goerr.V("cause", err.Error()),
		)
	}

	if err := checkConversation(doc.Ref.ID, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// checkConversation rejects a decoded record stored under docID that must
// not be listed. Nothing is defaulted.
func checkConversation(docID string, conv *model.Conversation) error {
	if string(conv.SessionID) != docID {
		return goerr.Wrap(model.ErrInvalidConversation, "session_id does not match document ID",
			goerr.V("doc_id", docID),
			goerr.V("session_id", conv.SessionID),
		)
	}

	if err := conv.Validate(); err != nil {
		return goerr.Wrap(err, "conversation document failed validation", goerr.V("doc_id", docID))
	}

	return nil
}

func unavailable(err error, msg string, uid model.UserID) error {
	return goerr.Wrap(errors.Join(model.ErrStoreUnavailable, err), msg,
		goerr.V("uid", uid),
		goerr.V("code", status.Code(err).String()),
	)
}
