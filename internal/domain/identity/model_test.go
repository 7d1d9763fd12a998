package identity

import (
	"encoding/base64"
	"regexp"
	"testing"
	"time"
)

func TestNewRefreshTokenValue(t *testing.T) {
	v1, err := NewRefreshTokenValue()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	v2, err := NewRefreshTokenValue()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if v1 == v2 {
		t.Error("expected distinct token values")
	}

	raw, err := base64.StdEncoding.DecodeString(v1)
	if err != nil {
		t.Fatalf("token is not base64: %v", err)
	}
	if len(raw) != 64 {
		t.Errorf("token entropy = %d bytes, want 64", len(raw))
	}
}

func TestNewConfirmationCode(t *testing.T) {
	re := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 50; i++ {
		code, err := NewConfirmationCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !re.MatchString(code) {
			t.Fatalf("code %q is not 6 digits", code)
		}
	}
}

func TestRefreshToken_Expired(t *testing.T) {
	now := time.Now()
	tok := RefreshToken{ExpiresAt: now.Add(time.Hour)}
	if tok.Expired(now) {
		t.Error("token should not be expired an hour before expiry")
	}
	if !tok.Expired(now.Add(2 * time.Hour)) {
		t.Error("token should be expired an hour after expiry")
	}
}

func TestUser_HasPassword(t *testing.T) {
	var u User
	if u.HasPassword() {
		t.Error("nil hash should not count as a password")
	}
	empty := ""
	u.PasswordHash = &empty
	if u.HasPassword() {
		t.Error("empty hash should not count as a password")
	}
	hash := "$2a$10$abcdefg"
	u.PasswordHash = &hash
	if !u.HasPassword() {
		t.Error("expected HasPassword for a set hash")
	}
}
