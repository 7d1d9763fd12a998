package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

type RegistrationStep1Request struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// RegistrationStep1Result carries the short-lived registration token that
// authenticates the remaining steps.
type RegistrationStep1Result struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type RegistrationStep2Request struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	BirthDate string `json:"birth_date"`
}

type RegistrationStep3Request struct {
	Code string `json:"code"`
}

type LoginRequest struct {
	// Login is the email or the username; an '@' means email.
	Login    string `json:"login"`
	Password string `json:"password"`
	DeviceID string `json:"device_id"`
}

type GoogleLoginRequest struct {
	// Either the authorization code (exchanged server-side) or a ready
	// id token.
	Code     string `json:"code,omitempty"`
	IDToken  string `json:"id_token,omitempty"`
	DeviceID string `json:"device_id"`
}

type RefreshRequest struct {
	AccessToken string `json:"access_token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
	// ClientURI is the frontend page the reset link points at; the token and
	// email are appended as query parameters.
	ClientURI string `json:"client_uri"`
}

type ResetPasswordRequest struct {
	Email           string `json:"email"`
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// AuthResponse is the profile snapshot returned on every successful sign-in.
type AuthResponse struct {
	ID          int64    `json:"id"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	AvatarURL   string   `json:"avatar_url"`
	Roles       []string `json:"roles"`
	AccessToken string   `json:"token"`
}

// Session pairs the client-facing auth response with the refresh token the
// handler moves into an http-only cookie.
type Session struct {
	Auth             AuthResponse
	RefreshToken     string
	RefreshExpiresAt time.Time
}

const resetTokenBytes = 32

// newResetToken returns a URL-safe opaque password reset token.
func newResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
