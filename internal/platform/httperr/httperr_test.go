package httperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func invoke(t *testing.T, err error) (*httptest.ResponseRecorder, Problem) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	Handler(zerolog.Nop())(err, c)

	var p Problem
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("invalid problem body: %v", err)
	}
	return rec, p
}

func TestHandler_BadRequestWithFields(t *testing.T) {
	rec, p := invoke(t, BadRequest("Invalid registration",
		FieldError{Field: "Password", Message: "Password must contain at least one number."}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if p.Title != "Bad Request" {
		t.Errorf("title = %q", p.Title)
	}
	if len(p.Errors) != 1 || p.Errors[0].Field != "Password" {
		t.Errorf("field errors = %+v", p.Errors)
	}
}

func TestHandler_Unauthorized(t *testing.T) {
	rec, p := invoke(t, Unauthorized("Token validation failed"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if p.Detail != "Token validation failed" {
		t.Errorf("detail = %q", p.Detail)
	}
}

func TestHandler_EmailUnavailable(t *testing.T) {
	rec, _ := invoke(t, EmailUnavailable("confirmation code could not be sent"))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestHandler_InternalHidesDetail(t *testing.T) {
	rec, p := invoke(t, Internal("refresh token row update failed").WithCause(errors.New("pq: deadlock")))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if p.Detail != "" {
		t.Errorf("internal detail leaked: %q", p.Detail)
	}
}

func TestHandler_UnknownErrorNormalized(t *testing.T) {
	rec, p := invoke(t, fmt.Errorf("driver: bad connection"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if p.Detail != "" {
		t.Errorf("detail leaked: %q", p.Detail)
	}
}

func TestHandler_EchoErrorPassthrough(t *testing.T) {
	rec, _ := invoke(t, echo.NewHTTPError(http.StatusMethodNotAllowed, "method not allowed"))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestIsKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NotFound("device not found"))
	if !IsKind(err, KindNotFound) {
		t.Error("expected KindNotFound through wrapping")
	}
	if IsKind(err, KindForbidden) {
		t.Error("unexpected KindForbidden")
	}
}
