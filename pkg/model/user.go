package model

// UserID is the opaque identifier assigned by the identity provider. It is
// used as the storage partition key for conversations.
type UserID string

type User struct {
	ID    UserID
	Email string
}
