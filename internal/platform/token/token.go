// Package token issues and verifies the signed tokens used across the
// authentication flows: access tokens, registration tokens and password
// reset tokens. All of them are HS256 JWTs signed with the same key and
// distinguished by their purpose claim.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Purpose tags what a token is good for. A registration token must never be
// accepted where an access token is expected.
type Purpose string

const (
	PurposeAccess        Purpose = "access"
	PurposeRegistration  Purpose = "registration"
	PurposePasswordReset Purpose = "password_reset"
)

var (
	ErrInvalidToken = errors.New("token: invalid token")
	ErrWrongPurpose = errors.New("token: wrong token purpose")
)

// Claims is the payload carried by every token this service issues.
type Claims struct {
	UserID   int64    `json:"uid,omitempty"`
	Email    string   `json:"email,omitempty"`
	Username string   `json:"username,omitempty"`
	DeviceID string   `json:"device_id,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	Purpose  Purpose  `json:"purpose"`
	jwt.RegisteredClaims
}

// Service signs and parses tokens with a single symmetric key.
type Service struct {
	key      []byte
	issuer   string
	audience string
}

func NewService(key, issuer, audience string) *Service {
	return &Service{key: []byte(key), issuer: issuer, audience: audience}
}

// Issue signs a token for the given claims. The registered claims are filled
// in here; callers only provide identity fields and the purpose.
func (s *Service) Issue(c Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	c.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Audience:  jwt.ClaimStrings{s.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
	if c.Purpose == "" {
		c.Purpose = PurposeAccess
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := tok.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and registered claims of a token and returns
// its payload. When ignoreExpiry is true an expired token still parses as
// long as everything else checks out; the refresh flow relies on this to
// read the identity out of an expired access token.
func (s *Service) Parse(raw string, purpose Purpose, ignoreExpiry bool) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
	}
	if ignoreExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return s.key, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}
	if ignoreExpiry {
		// WithoutClaimsValidation skips issuer/audience checks too, so redo
		// them by hand.
		if iss, _ := claims.GetIssuer(); iss != s.issuer {
			return nil, ErrInvalidToken
		}
		if aud, _ := claims.GetAudience(); !containsAudience(aud, s.audience) {
			return nil, ErrInvalidToken
		}
	}
	if claims.Purpose != purpose {
		return nil, ErrWrongPurpose
	}
	return claims, nil
}

func containsAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
