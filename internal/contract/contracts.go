package contract

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserDirectory is the user lookup/creation capability. Two implementations
// exist: direct (same-process database) and remote (HTTP peer). Both are
// safe for concurrent use from many request-handling goroutines.
type UserDirectory interface {
	// Count returns the total number of users in the store.
	Count(ctx context.Context) (int64, error)
	// FindByEmail loads a user including the password hash, or ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*User, error)
	// FindByID loads a user including the password hash, or ErrNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	// Create inserts a new user. A duplicate email yields ErrAlreadyExists.
	Create(ctx context.Context, email, name, passwordHash string, orgID *uuid.UUID, role Role) (*User, error)
	// UpdatePassword replaces the stored password hash in one statement.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// RefreshTokenStore manages the refresh token lifecycle. Rotation reuses
// the existing row: Update swaps hash and expiry in place so the old token
// becomes invalid the moment the new one exists.
type RefreshTokenStore interface {
	// Create persists a new token hash and returns the row id.
	Create(ctx context.Context, userID uuid.UUID, orgID *uuid.UUID, tokenHash string, expiresAt time.Time) (uuid.UUID, error)
	// FindByHash resolves a presented token's hash, or ErrNotFound.
	FindByHash(ctx context.Context, tokenHash string) (*RefreshTokenInfo, error)
	// Update rotates the token: same row, new hash and expiry, atomically.
	Update(ctx context.Context, id uuid.UUID, newHash string, newExpiresAt time.Time) error
	// DeleteByHash removes a token row; deleting an absent hash is not an error.
	DeleteByHash(ctx context.Context, tokenHash string) error
	// Delete removes a token row by id; deleting an absent id is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
}
