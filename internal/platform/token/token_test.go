package token

import (
	"errors"
	"testing"
	"time"
)

func newTestService() *Service {
	return NewService("0123456789abcdef0123456789abcdef", "dosehub", "dosehub-clients")
}

func TestIssueAndParse(t *testing.T) {
	svc := newTestService()

	raw, err := svc.Issue(Claims{
		UserID:   42,
		Email:    "ada@example.com",
		Username: "ada",
		Roles:    []string{"patient"},
		Purpose:  PurposeAccess,
	}, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := svc.Parse(raw, PurposeAccess, false)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "ada@example.com" || claims.Username != "ada" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "patient" {
		t.Errorf("roles = %v, want [patient]", claims.Roles)
	}
	if claims.ID == "" {
		t.Error("expected a token id")
	}
}

func TestParse_WrongPurpose(t *testing.T) {
	svc := newTestService()

	raw, err := svc.Issue(Claims{Email: "ada@example.com", Purpose: PurposeRegistration}, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := svc.Parse(raw, PurposeAccess, false); !errors.Is(err, ErrWrongPurpose) {
		t.Errorf("expected ErrWrongPurpose, got %v", err)
	}
}

func TestParse_Expired(t *testing.T) {
	svc := newTestService()

	raw, err := svc.Issue(Claims{UserID: 7, Purpose: PurposeAccess}, -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := svc.Parse(raw, PurposeAccess, false); err == nil {
		t.Fatal("expected error for expired token")
	}

	claims, err := svc.Parse(raw, PurposeAccess, true)
	if err != nil {
		t.Fatalf("parse ignoring expiry: %v", err)
	}
	if claims.UserID != 7 {
		t.Errorf("UserID = %d, want 7", claims.UserID)
	}
}

func TestParse_WrongKey(t *testing.T) {
	svc := newTestService()
	other := NewService("ffffffffffffffffffffffffffffffff", "dosehub", "dosehub-clients")

	raw, err := other.Issue(Claims{UserID: 1, Purpose: PurposeAccess}, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := svc.Parse(raw, PurposeAccess, false); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParse_WrongIssuerIgnoringExpiry(t *testing.T) {
	svc := newTestService()
	other := NewService("0123456789abcdef0123456789abcdef", "someone-else", "dosehub-clients")

	raw, err := other.Issue(Claims{UserID: 1, Purpose: PurposeAccess}, -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := svc.Parse(raw, PurposeAccess, true); err == nil {
		t.Fatal("expected error for wrong issuer even when ignoring expiry")
	}
}

func TestParse_Garbage(t *testing.T) {
	svc := newTestService()
	if _, err := svc.Parse("not-a-token", PurposeAccess, false); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}
