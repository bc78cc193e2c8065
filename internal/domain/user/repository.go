package user

import (
	"context"
	"time"
)

// Repository defines the interface for user persistence.
type Repository interface {
	// Add inserts a new user and returns its ID.
	Add(ctx context.Context, data User) (string, error)

	// Get retrieves a user by ID.
	Get(ctx context.Context, id string) (User, error)

	// GetByCredential retrieves a user by username or email.
	GetByCredential(ctx context.Context, credential string) (User, error)

	// Update modifies profile fields of an existing user.
	Update(ctx context.Context, id string, data User) error

	// UpdateLastLogin records a successful authentication.
	UpdateLastLogin(ctx context.Context, id string, loginTime time.Time) error

	// CredentialExists checks whether a username or email is taken.
	CredentialExists(ctx context.Context, username, email string) (bool, error)
}
