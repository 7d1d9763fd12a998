package identity

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no matching row exists.
var ErrNotFound = errors.New("identity: not found")

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByGoogleSubject(ctx context.Context, subject string) (*User, error)
	Update(ctx context.Context, u *User) error
}

type RefreshTokenRepository interface {
	// Rotate overwrites the row for (userID, deviceID) with the new token
	// value and expiry, inserting one if none exists.
	Rotate(ctx context.Context, t *RefreshToken) error
	Find(ctx context.Context, userID int64, deviceID string) (*RefreshToken, error)
	// Revoke deletes the row for (userID, deviceID) and returns ErrNotFound
	// when there is nothing to revoke.
	Revoke(ctx context.Context, userID int64, deviceID string) error
}
