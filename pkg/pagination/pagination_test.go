package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	rec := httptest.NewRecorder()
	return FromContext(e.NewContext(req, rec))
}

func TestFromContext_Defaults(t *testing.T) {
	p := paramsFor(t, "")
	if p.Limit != DefaultLimit {
		t.Errorf("expected limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset)
	}
}

func TestFromContext_Explicit(t *testing.T) {
	p := paramsFor(t, "limit=5&offset=10")
	if p.Limit != 5 {
		t.Errorf("expected limit 5, got %d", p.Limit)
	}
	if p.Offset != 10 {
		t.Errorf("expected offset 10, got %d", p.Offset)
	}
}

func TestFromContext_ClampsLimit(t *testing.T) {
	p := paramsFor(t, "limit=9999")
	if p.Limit != MaxLimit {
		t.Errorf("expected limit clamped to %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_NegativeValues(t *testing.T) {
	p := paramsFor(t, "limit=-1&offset=-5")
	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit, got %d", p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset)
	}
}

func TestNewResponse_HasMore(t *testing.T) {
	resp := NewResponse([]int{1, 2, 3}, 10, 3, 0)
	if !resp.HasMore {
		t.Error("expected HasMore true")
	}

	resp = NewResponse([]int{1}, 1, 20, 0)
	if resp.HasMore {
		t.Error("expected HasMore false")
	}
}

func TestParams_NextOffset(t *testing.T) {
	p := Params{Limit: 20, Offset: 40}
	if p.NextOffset() != 60 {
		t.Errorf("expected 60, got %d", p.NextOffset())
	}
	if !p.HasNext(100) {
		t.Error("expected HasNext true for total 100")
	}
	if p.HasNext(50) {
		t.Error("expected HasNext false for total 50")
	}
}
