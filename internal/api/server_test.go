package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/fxprep/internal/fixed"
	"github.com/samcharles93/fxprep/internal/model"
	"github.com/samcharles93/fxprep/pkg/quant"
)

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	qm := make(quant.Model)
	for _, p := range []quant.Tensor{
		{Name: model.ParamW1, Shape: []int{2, 2}, Data: []float32{1, 0, 0, 1}},
		{Name: model.ParamB1, Shape: []int{2}, Data: []float32{0, 0}},
		{Name: model.ParamW2, Shape: []int{2, 2}, Data: []float32{1, -1, -1, 1}},
		{Name: model.ParamB2, Shape: []int{2}, Data: []float32{0, 0}},
	} {
		qm[p.Name] = quant.Quantize(p)
	}
	engine, err := fixed.NewEngine(qm)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	e := echo.New()
	NewServer(engine).Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	e := newTestEcho(t)
	rec := doJSON(t, e, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "2-2-2") {
		t.Fatalf("expected model dims in body, got %s", rec.Body.String())
	}
}

func TestClassify(t *testing.T) {
	e := newTestEcho(t)
	rec := doJSON(t, e, http.MethodPost, "/v1/classify", `{"pixels":[1,0]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp ClassifyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	// First input unit dominates the first class.
	if resp.Label != 0 {
		t.Fatalf("label = %d, want 0", resp.Label)
	}
	if len(resp.Scores) != 2 {
		t.Fatalf("scores = %v, want 2 entries", resp.Scores)
	}
	if resp.HiddenScale <= 0 {
		t.Fatalf("hidden scale = %v, want positive", resp.HiddenScale)
	}
}

func TestClassifyRejectsWrongLength(t *testing.T) {
	e := newTestEcho(t)
	rec := doJSON(t, e, http.MethodPost, "/v1/classify", `{"pixels":[1,0,0]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestClassifyRejectsOutOfRangePixels(t *testing.T) {
	e := newTestEcho(t)
	rec := doJSON(t, e, http.MethodPost, "/v1/classify", `{"pixels":[2,0]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestClassifyRejectsBadJSON(t *testing.T) {
	e := newTestEcho(t)
	rec := doJSON(t, e, http.MethodPost, "/v1/classify", `{"pixels":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
