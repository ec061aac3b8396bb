package repository

import (
	"context"

	"github.com/pawan-ai/pawan/pkg/model"
)

var CheckConversation = checkConversation

// PutRawConversation writes data as is, bypassing SaveConversation
func PutRawConversation(ctx context.Context, r *Firestore, uid model.UserID, docID string, data map[string]any) error {
	_, err := r.sessions(uid).Doc(docID).Set(ctx, data)
	return err
}
