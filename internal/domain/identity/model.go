package identity

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"time"
)

// Role names carried in access-token claims. Self-registered accounts start
// with no roles; an operator grants them out of band.
const (
	RoleAdmin   = "admin"
	RoleDoctor  = "doctor"
	RolePatient = "patient"
)

// User is the authentication-facing account record. PasswordHash is nil for
// accounts created through Google sign-in that never set a local password.
type User struct {
	ID             int64    `db:"id" json:"id"`
	Email          string   `db:"email" json:"email"`
	Username       string   `db:"username" json:"username"`
	PasswordHash   *string  `db:"password_hash" json:"-"`
	EmailConfirmed bool     `db:"email_confirmed" json:"email_confirmed"`
	PhoneConfirmed bool     `db:"phone_confirmed" json:"phone_confirmed"`
	Roles          []string `db:"roles" json:"roles"`

	// Pending email confirmation code. Cleared once the account is confirmed.
	ConfirmationCode *string    `db:"confirmation_code" json:"-"`
	CodeExpiresAt    *time.Time `db:"code_expires_at" json:"-"`

	// Pending password reset token.
	ResetToken          *string    `db:"reset_token" json:"-"`
	ResetTokenExpiresAt *time.Time `db:"reset_token_expires_at" json:"-"`

	// External login link (Google subject id).
	GoogleSubject *string `db:"google_subject" json:"-"`

	BannedUntil *time.Time `db:"banned_until" json:"banned_until,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// HasPassword reports whether the account has a local password set.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// RefreshToken is one session row per (device, user) pair. The token value
// is rotated in place; there is never more than one active token per device.
type RefreshToken struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	DeviceID  string    `db:"device_id" json:"device_id"`
	Token     string    `db:"token" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Expired reports whether the token is past its expiry at the given instant.
func (t *RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

const refreshTokenBytes = 64

// NewRefreshTokenValue returns an opaque token value from a cryptographically
// secure random source.
func NewRefreshTokenValue() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// NewConfirmationCode returns a random 6-digit numeric code.
func NewConfirmationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate confirmation code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
