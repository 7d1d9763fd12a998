package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dosehub/dosehub/internal/platform/httperr"
	"github.com/dosehub/dosehub/internal/platform/token"
)

const claimsContextKey = "auth_claims"

// RequireAuth verifies the bearer access token and stores its claims on the
// request context for handlers to read through CurrentClaims.
func RequireAuth(tokens *token.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return httperr.Unauthorized("missing authorization header")
			}
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				return httperr.Unauthorized("malformed authorization header")
			}
			claims, err := tokens.Parse(raw, token.PurposeAccess, false)
			if err != nil {
				return httperr.Unauthorized("invalid access token").WithCause(err)
			}
			c.Set(claimsContextKey, claims)
			return next(c)
		}
	}
}

// CurrentClaims returns the verified claims set by RequireAuth, or nil when
// the route is unauthenticated.
func CurrentClaims(c echo.Context) *token.Claims {
	claims, _ := c.Get(claimsContextKey).(*token.Claims)
	return claims
}

// RequireRole gates a route on one of the given roles being present in the
// access token.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := CurrentClaims(c)
			if claims == nil {
				return httperr.Unauthorized("missing access token")
			}
			for _, want := range roles {
				for _, have := range claims.Roles {
					if have == want {
						return next(c)
					}
				}
			}
			return httperr.Forbidden("insufficient role")
		}
	}
}
