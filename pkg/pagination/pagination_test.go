package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextWithQuery(query string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(contextWithQuery(""))
	if p.Limit != DefaultLimit || p.Offset != 0 {
		t.Errorf("got %+v, want limit=%d offset=0", p, DefaultLimit)
	}
}

func TestFromContext_Explicit(t *testing.T) {
	p := FromContext(contextWithQuery("limit=50&offset=10"))
	if p.Limit != 50 || p.Offset != 10 {
		t.Errorf("got %+v, want limit=50 offset=10", p)
	}
}

func TestFromContext_ClampsLimit(t *testing.T) {
	p := FromContext(contextWithQuery("limit=5000"))
	if p.Limit != MaxLimit {
		t.Errorf("limit = %d, want %d", p.Limit, MaxLimit)
	}
}

func TestSQL(t *testing.T) {
	p := Params{Limit: 25, Offset: 75}
	if got := p.SQL(); got != "LIMIT 25 OFFSET 75" {
		t.Errorf("SQL() = %q", got)
	}
}

func TestNewResponse_HasMore(t *testing.T) {
	r := NewResponse(nil, 100, 20, 60)
	if !r.HasMore {
		t.Error("expected HasMore at offset 60 of 100")
	}
	r = NewResponse(nil, 100, 20, 80)
	if r.HasMore {
		t.Error("expected no more results at offset 80 of 100")
	}
}
