// Package googleauth verifies Google sign-in credentials. It exchanges an
// authorization code for tokens and validates the returned ID token against
// Google's published signing keys.
package googleauth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenEndpoint = "https://oauth2.googleapis.com/token"
	certsEndpoint = "https://www.googleapis.com/oauth2/v3/certs"

	jwksCacheTTL = 5 * time.Minute
)

var ErrInvalidIDToken = errors.New("googleauth: invalid id token")

// Payload is the identity asserted by a verified Google ID token.
type Payload struct {
	Subject       string
	Email         string
	EmailVerified bool
	GivenName     string
	FamilyName    string
	Picture       string
}

// Verifier turns a Google credential into a verified identity.
type Verifier interface {
	ExchangeCode(ctx context.Context, code string) (string, error)
	VerifyIDToken(ctx context.Context, idToken string) (*Payload, error)
}

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Client is the production Verifier backed by Google's OAuth endpoints.
type Client struct {
	cfg   Config
	http  *resty.Client
	jwks  *jwksCache
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: resty.New().SetTimeout(10 * time.Second),
		jwks: newJWKSCache(certsEndpoint, jwksCacheTTL),
	}
}

type tokenResponse struct {
	IDToken     string `json:"id_token"`
	AccessToken string `json:"access_token"`
}

// ExchangeCode trades an authorization code for an ID token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	var body tokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"code":          code,
			"client_id":     c.cfg.ClientID,
			"client_secret": c.cfg.ClientSecret,
			"redirect_uri":  c.cfg.RedirectURI,
			"grant_type":    "authorization_code",
		}).
		SetResult(&body).
		Post(tokenEndpoint)
	if err != nil {
		return "", fmt.Errorf("google token exchange: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("google token exchange: status %d", resp.StatusCode())
	}
	if body.IDToken == "" {
		return "", fmt.Errorf("google token exchange: response missing id_token")
	}
	return body.IDToken, nil
}

type idTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

// VerifyIDToken checks the token signature against Google's JWKS and the
// audience against our client id.
func (c *Client) VerifyIDToken(ctx context.Context, idToken string) (*Payload, error) {
	claims := &idTokenClaims{}
	tok, err := jwt.ParseWithClaims(idToken, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token has no kid header")
		}
		return c.jwks.getKey(ctx, kid)
	},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(c.cfg.ClientID),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}
	if !tok.Valid {
		return nil, ErrInvalidIDToken
	}
	if iss, _ := claims.GetIssuer(); iss != "accounts.google.com" && iss != "https://accounts.google.com" {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidIDToken, iss)
	}

	return &Payload{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		GivenName:     claims.GivenName,
		FamilyName:    claims.FamilyName,
		Picture:       claims.Picture,
	}, nil
}

type jwksKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksResponse struct {
	Keys []jwksKey `json:"keys"`
}

// jwksCache caches Google's signing keys and refreshes them on expiry or on
// an unknown key id, which happens during key rotation.
type jwksCache struct {
	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	url       string
	ttl       time.Duration
	fetchedAt time.Time
	client    *http.Client
}

func newJWKSCache(url string, ttl time.Duration) *jwksCache {
	return &jwksCache{
		keys:   make(map[string]*rsa.PublicKey),
		url:    url,
		ttl:    ttl,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *jwksCache) getKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	expired := time.Since(c.fetchedAt) > c.ttl
	c.mu.RUnlock()

	if ok && !expired {
		return key, nil
	}

	if err := c.fetch(ctx); err != nil {
		return nil, fmt.Errorf("fetching JWKS: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok = c.keys[kid]
	if !ok {
		return nil, fmt.Errorf("key with kid %q not found in JWKS", kid)
	}
	return key, nil
}

func (c *jwksCache) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var jwks jwksResponse
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return fmt.Errorf("decoding JWKS response: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, k := range jwks.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := parseRSAPublicKey(k)
		if err != nil {
			continue // skip malformed keys
		}
		keys[k.Kid] = pub
	}

	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	return nil
}

func parseRSAPublicKey(k jwksKey) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decoding modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decoding exponent: %w", err)
	}

	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes)

	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}
