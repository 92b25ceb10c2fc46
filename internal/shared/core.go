// Package shared holds the cross-package contracts that would otherwise create
// import cycles between user, auth, listing and transaction.
package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is the profile view other packages work with.
type User struct {
	ID                uuid.UUID
	FirebaseUID       string
	Email             string
	Username          string
	ProfilePicture    string // blob path in the profile_pictures bucket
	ProfilePictureURL string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	LastLoginAt       *time.Time
}

// Service defines the user lookups needed outside the user package.
type Service interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*User, error)
}

// Identity is what a verified ID token tells us about the caller.
type Identity struct {
	UID   string
	Email string
}

// TokenVerifier validates bearer tokens issued by the identity provider.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, idToken string) (*Identity, error)
}
