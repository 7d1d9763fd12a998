package db

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestExtractTenantID_FromHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-ID", "mainstreet")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	tid := extractTenantID(c, "default")
	if tid != "mainstreet" {
		t.Errorf("expected mainstreet, got %s", tid)
	}
}

func TestExtractTenantID_FromSubdomain(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "mainstreet.dosehub.example:8000"
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	tid := extractTenantID(c, "default")
	if tid != "mainstreet" {
		t.Errorf("expected mainstreet, got %s", tid)
	}
}

func TestExtractTenantID_HeaderBeatsSubdomain(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "mainstreet.dosehub.example"
	req.Header.Set("X-Tenant-ID", "corner_pharmacy")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	tid := extractTenantID(c, "default")
	if tid != "corner_pharmacy" {
		t.Errorf("expected corner_pharmacy, got %s", tid)
	}
}

func TestExtractTenantID_FromQuery(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?tenant_id=corner_pharmacy", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	tid := extractTenantID(c, "default")
	if tid != "corner_pharmacy" {
		t.Errorf("expected corner_pharmacy, got %s", tid)
	}
}

func TestExtractTenantID_Default(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "localhost:8000"
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	tid := extractTenantID(c, "default")
	if tid != "default" {
		t.Errorf("expected default, got %s", tid)
	}
}

func TestTenantFromHost(t *testing.T) {
	cases := []struct {
		host string
		want string
	}{
		{"mainstreet.dosehub.example", "mainstreet"},
		{"mainstreet.dosehub.example:443", "mainstreet"},
		{"www.dosehub.example", ""},
		{"api.dosehub.example", ""},
		{"localhost", ""},
		{"localhost:8000", ""},
		{"10.0.0.1", ""},
		{"10.0.0.1:8000", ""},
		{"bad-tenant.dosehub.example", ""},
	}
	for _, tc := range cases {
		if got := tenantFromHost(tc.host); got != tc.want {
			t.Errorf("tenantFromHost(%q) = %q, want %q", tc.host, got, tc.want)
		}
	}
}

func TestSchemaForTenant(t *testing.T) {
	if got := SchemaForTenant("mainstreet"); got != "tenant_mainstreet" {
		t.Errorf("SchemaForTenant = %q, want tenant_mainstreet", got)
	}
}
