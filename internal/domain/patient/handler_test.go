package patient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo, *mockRepo) {
	svc, repo, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	return h, e, repo
}

func TestHandler_RegisterPatient(t *testing.T) {
	h, e, _ := newTestHandler()
	body := `{"name":"walk-in","age":30}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.RegisterPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var result RegisterResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Patient.QueueNumber != 1 {
		t.Errorf("expected queue number 1, got %d", result.Patient.QueueNumber)
	}
	if result.AutoServed {
		t.Error("regular patient must not be auto-served")
	}
}

func TestHandler_RegisterPatient_Emergency(t *testing.T) {
	h, e, _ := newTestHandler()
	body := `{"name":"hurt","age":10,"is_emergency":true}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.RegisterPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result RegisterResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.AutoServed || result.Reason != ReasonEmergency {
		t.Errorf("expected emergency auto-serve, got %+v", result)
	}
}

func TestHandler_RegisterPatient_ValidationError(t *testing.T) {
	h, e, _ := newTestHandler()
	body := `{"name":"","age":-3}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.RegisterPatient(c)
	if err == nil {
		t.Fatal("expected validation error")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", httpErr.Code)
	}
	verr, ok := httpErr.Message.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError message, got %T", httpErr.Message)
	}
	if len(verr.Violations) != 2 {
		t.Errorf("expected 2 violations, got %d", len(verr.Violations))
	}
}

func TestHandler_ServePatient(t *testing.T) {
	h, e, repo := newTestHandler()
	r := &Record{Name: "a", Age: 30}
	repo.Create(nil, r)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(r.ID.String())

	if err := h.ServePatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !repo.records[r.ID].IsServed {
		t.Error("expected record to be served")
	}
}

func TestHandler_ServePatient_NotFound(t *testing.T) {
	h, e, _ := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.ServePatient(c)
	if err == nil {
		t.Fatal("expected not found error")
	}
	httpErr := err.(*echo.HTTPError)
	if httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", httpErr.Code)
	}
}

func TestHandler_ServePatient_InvalidID(t *testing.T) {
	h, e, _ := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	err := h.ServePatient(c)
	if err == nil {
		t.Fatal("expected bad request error")
	}
	httpErr := err.(*echo.HTTPError)
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", httpErr.Code)
	}
}

func TestHandler_GetQueue(t *testing.T) {
	h, e, _ := newTestHandler()

	// Seed through the handler so queue dates match the service clock.
	for _, body := range []string{
		`{"name":"regular","age":30}`,
		`{"name":"senior-waiting","age":64}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		c := e.NewContext(req, httptest.NewRecorder())
		if err := h.RegisterPatient(c); err != nil {
			t.Fatalf("seed registration failed: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GetQueue(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var entries []*QueueEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

func TestHandler_GetQueue_Empty(t *testing.T) {
	h, e, _ := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GetQueue(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty JSON array, got %s", rec.Body.String())
	}
}

func TestHandler_GetStats(t *testing.T) {
	h, e, _ := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GetStats(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var stats Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHandler_ListPatients(t *testing.T) {
	h, e, repo := newTestHandler()
	repo.Create(nil, &Record{Name: "a", Age: 30})
	repo.Create(nil, &Record{Name: "b", Age: 70, IsServed: true})

	req := httptest.NewRequest(http.MethodGet, "/?limit=10", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListPatients(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("expected total 2, got %d", resp.Total)
	}
}
