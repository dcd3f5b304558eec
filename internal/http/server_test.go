package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ingresos/internal/core"
	"ingresos/internal/services"
	"ingresos/internal/store/kv"
	"ingresos/internal/store/local"
)

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Details string          `json:"details"`
}

func newTestServer(t *testing.T) (*Server, *local.Adapter) {
	t.Helper()
	adapter := local.New(kv.NewMemory())
	svc := services.NewIncomeService(adapter, nil)
	srv := NewServer(":0", svc, 100, 5*time.Minute)
	t.Cleanup(func() { srv.caches.Stop(); srv.rateLimiter.stop() })
	return srv, adapter
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	var env testEnvelope
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope: %v (body: %s)", err, rec.Body.String())
		}
	}
	return rec, env
}

func createCategory(t *testing.T, srv *Server, name string) core.Category {
	t.Helper()
	rec, env := doJSON(t, srv, http.MethodPost, "/api/income/categories", map[string]string{"name": name})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category: status %d, body %s", rec.Code, rec.Body.String())
	}
	var cat core.Category
	if err := json.Unmarshal(env.Data, &cat); err != nil {
		t.Fatalf("decode category: %v", err)
	}
	return cat
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec, _ := doJSON(t, srv, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d", path, rec.Code)
		}
	}

	rec, env := doJSON(t, srv, http.MethodGet, "/api/income/health", nil)
	if rec.Code != http.StatusOK || !env.Success {
		t.Errorf("api health: status %d, success %v", rec.Code, env.Success)
	}
}

func TestCategoryLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	cat := createCategory(t, srv, "Sueldo")
	if cat.ID == "" || cat.Name != "Sueldo" {
		t.Fatalf("unexpected category %+v", cat)
	}

	rec, env := doJSON(t, srv, http.MethodGet, "/api/income/categories", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	var cats []core.Category
	if err := json.Unmarshal(env.Data, &cats); err != nil {
		t.Fatalf("decode categories: %v", err)
	}
	if len(cats) != 1 {
		t.Fatalf("expected 1 category, got %d", len(cats))
	}

	rec, _ = doJSON(t, srv, http.MethodPatch, "/api/income/categories/"+cat.ID, map[string]string{"name": "Sueldo base"})
	if rec.Code != http.StatusOK {
		t.Fatalf("rename: status %d", rec.Code)
	}

	rec, _ = doJSON(t, srv, http.MethodDelete, "/api/income/categories/"+cat.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d", rec.Code)
	}

	rec, env = doJSON(t, srv, http.MethodGet, "/api/income/categories", nil)
	_ = json.Unmarshal(env.Data, &cats)
	if len(cats) != 0 {
		t.Errorf("expected empty registry after delete, got %d", len(cats))
	}
}

func TestCreateCategoryValidationErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	createCategory(t, srv, "Sueldo")

	tests := []struct {
		name string
		body map[string]string
	}{
		{"empty name", map[string]string{"name": "  "}},
		{"duplicate name", map[string]string{"name": "sueldo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := doJSON(t, srv, http.MethodPost, "/api/income/categories", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status %d, want 400", rec.Code)
			}
			if env.Success {
				t.Error("expected success=false")
			}
			if env.Error == "" {
				t.Error("expected error message in envelope")
			}
		})
	}
}

func TestRenameUnknownCategoryReturns404(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, env := doJSON(t, srv, http.MethodPatch, "/api/income/categories/nope", map[string]string{"name": "X"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status %d, want 404", rec.Code)
	}
	if env.Success {
		t.Error("expected success=false")
	}
}

func TestReorderRejectsPartialSet(t *testing.T) {
	srv, _ := newTestServer(t)
	a := createCategory(t, srv, "Sueldo")
	b := createCategory(t, srv, "Turnos")

	rec, _ := doJSON(t, srv, http.MethodPatch, "/api/income/categories/reorder",
		map[string][]string{"order": {a.ID}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("partial reorder: status %d, want 400", rec.Code)
	}

	rec, _ = doJSON(t, srv, http.MethodPatch, "/api/income/categories/reorder",
		map[string][]string{"order": {b.ID, a.ID}})
	if rec.Code != http.StatusOK {
		t.Errorf("full reorder: status %d, want 200", rec.Code)
	}

	_, env := doJSON(t, srv, http.MethodGet, "/api/income/categories", nil)
	var cats []core.Category
	_ = json.Unmarshal(env.Data, &cats)
	if len(cats) != 2 || cats[0].ID != b.ID {
		t.Errorf("expected %s first after reorder, got %+v", b.ID, cats)
	}
}

func TestMatrixRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)
	cat := createCategory(t, srv, "Arriendos")

	rec, _ := doJSON(t, srv, http.MethodPatch, "/api/income/matrix", map[string]any{
		"year": 2024, "categoryId": cat.ID, "month": 3, "value": int64(350000),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("set cell: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec, env := doJSON(t, srv, http.MethodGet, "/api/income/matrix?year=2024", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get matrix: status %d", rec.Code)
	}
	var m core.Matrix
	if err := json.Unmarshal(env.Data, &m); err != nil {
		t.Fatalf("decode matrix: %v", err)
	}
	if got := m.Cell(cat.ID, 3); got != 350000 {
		t.Errorf("cell = %d, want 350000", got)
	}
}

func TestSetCellInvalidMonth(t *testing.T) {
	srv, _ := newTestServer(t)
	cat := createCategory(t, srv, "Turnos")

	rec, _ := doJSON(t, srv, http.MethodPatch, "/api/income/matrix", map[string]any{
		"year": 2024, "categoryId": cat.ID, "month": 13, "value": int64(100),
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", rec.Code)
	}
}

func TestSetCellRoundsFractionalValues(t *testing.T) {
	srv, _ := newTestServer(t)
	cat := createCategory(t, srv, "Turnos")

	tests := []struct {
		name  string
		value float64
		want  int64
	}{
		{"rounds up", 3.7, 4},
		{"rounds down", 3.2, 3},
		{"negative floors to zero", -5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := doJSON(t, srv, http.MethodPatch, "/api/income/matrix", map[string]any{
				"year": 2024, "categoryId": cat.ID, "month": 5, "value": tt.value,
			})
			if rec.Code != http.StatusOK {
				t.Fatalf("set cell: status %d, body %s", rec.Code, rec.Body.String())
			}

			_, env := doJSON(t, srv, http.MethodGet, "/api/income/matrix?year=2024", nil)
			var m core.Matrix
			if err := json.Unmarshal(env.Data, &m); err != nil {
				t.Fatalf("decode matrix: %v", err)
			}
			if got := m.Cell(cat.ID, 5); got != tt.want {
				t.Errorf("stored %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBulkRowRoundsFractionalValues(t *testing.T) {
	srv, _ := newTestServer(t)
	cat := createCategory(t, srv, "UMed")

	rec, _ := doJSON(t, srv, http.MethodPost, "/api/income/matrix/bulk-row", map[string]any{
		"year":       2024,
		"categoryId": cat.ID,
		"values":     map[string]float64{"1": 100.6, "2": 200.4},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("bulk row: status %d, body %s", rec.Code, rec.Body.String())
	}

	_, env := doJSON(t, srv, http.MethodGet, "/api/income/matrix?year=2024", nil)
	var m core.Matrix
	_ = json.Unmarshal(env.Data, &m)
	if got := m.Cell(cat.ID, 1); got != 101 {
		t.Errorf("month 1 = %d, want 101", got)
	}
	if got := m.Cell(cat.ID, 2); got != 200 {
		t.Errorf("month 2 = %d, want 200", got)
	}
}

func TestMatrixCacheInvalidatedOnWrite(t *testing.T) {
	srv, _ := newTestServer(t)
	cat := createCategory(t, srv, "Dividendos")

	// Prime the cache.
	doJSON(t, srv, http.MethodGet, "/api/income/matrix?year=2024", nil)

	doJSON(t, srv, http.MethodPatch, "/api/income/matrix", map[string]any{
		"year": 2024, "categoryId": cat.ID, "month": 1, "value": int64(42000),
	})

	_, env := doJSON(t, srv, http.MethodGet, "/api/income/matrix?year=2024", nil)
	var m core.Matrix
	_ = json.Unmarshal(env.Data, &m)
	if got := m.Cell(cat.ID, 1); got != 42000 {
		t.Errorf("stale cache: cell = %d, want 42000", got)
	}
}

func TestBulkRowAndTotals(t *testing.T) {
	srv, _ := newTestServer(t)
	cat := createCategory(t, srv, "Sueldo")

	rec, _ := doJSON(t, srv, http.MethodPost, "/api/income/matrix/bulk-row", map[string]any{
		"year":       2024,
		"categoryId": cat.ID,
		"values":     map[string]int64{"1": 500000, "2": 520000, "15": 999},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("bulk row: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec, env := doJSON(t, srv, http.MethodGet, "/api/income/totals?year=2024", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("totals: status %d", rec.Code)
	}
	var report services.TotalsReport
	if err := json.Unmarshal(env.Data, &report); err != nil {
		t.Fatalf("decode totals: %v", err)
	}
	if report.GrandTotal != 1020000 {
		t.Errorf("grand total = %d, want 1020000 (out-of-range month must be dropped)", report.GrandTotal)
	}
	if report.MonthlyTotals[2] != 520000 {
		t.Errorf("month 2 total = %d, want 520000", report.MonthlyTotals[2])
	}
}

func TestPasteRow(t *testing.T) {
	srv, _ := newTestServer(t)
	cat := createCategory(t, srv, "UMed")

	rec, env := doJSON(t, srv, http.MethodPost, "/api/income/matrix/paste-row", map[string]any{
		"year":       2024,
		"categoryId": cat.ID,
		"text":       "$500.000\t$120.000",
		"startMonth": 2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("paste row: status %d, body %s", rec.Code, rec.Body.String())
	}

	var result map[string]int
	_ = json.Unmarshal(env.Data, &result)
	if result["cellsApplied"] != 2 {
		t.Errorf("cellsApplied = %d, want 2", result["cellsApplied"])
	}

	_, env = doJSON(t, srv, http.MethodGet, "/api/income/matrix?year=2024", nil)
	var m core.Matrix
	_ = json.Unmarshal(env.Data, &m)
	if got := m.Cell(cat.ID, 2); got != 500000 {
		t.Errorf("month 2 = %d, want 500000", got)
	}
	if got := m.Cell(cat.ID, 3); got != 120000 {
		t.Errorf("month 3 = %d, want 120000", got)
	}
}

func TestPasteMatrix(t *testing.T) {
	srv, _ := newTestServer(t)
	a := createCategory(t, srv, "Sueldo")
	b := createCategory(t, srv, "Turnos")

	rec, env := doJSON(t, srv, http.MethodPost, "/api/income/matrix/paste", map[string]any{
		"year":       2024,
		"text":       "100\t200\n300",
		"startIndex": 0,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("paste matrix: status %d, body %s", rec.Code, rec.Body.String())
	}

	var result map[string]int
	_ = json.Unmarshal(env.Data, &result)
	if result["rowsApplied"] != 2 {
		t.Errorf("rowsApplied = %d, want 2", result["rowsApplied"])
	}

	_, env = doJSON(t, srv, http.MethodGet, "/api/income/matrix?year=2024", nil)
	var m core.Matrix
	_ = json.Unmarshal(env.Data, &m)
	if got := m.Cell(a.ID, 2); got != 200 {
		t.Errorf("first row month 2 = %d, want 200", got)
	}
	if got := m.Cell(b.ID, 1); got != 300 {
		t.Errorf("second row month 1 = %d, want 300", got)
	}
}

func TestReset(t *testing.T) {
	srv, _ := newTestServer(t)
	createCategory(t, srv, "Sueldo")

	rec, _ := doJSON(t, srv, http.MethodPost, "/api/income/reset", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset: status %d", rec.Code)
	}

	_, env := doJSON(t, srv, http.MethodGet, "/api/income/categories", nil)
	var cats []core.Category
	_ = json.Unmarshal(env.Data, &cats)
	if len(cats) != 0 {
		t.Errorf("expected empty registry after reset, got %d", len(cats))
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPut, "/api/income/categories"},
		{http.MethodDelete, "/api/income/matrix"},
		{http.MethodGet, "/api/income/reset"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s", tt.method, tt.path), func(t *testing.T) {
			rec, _ := doJSON(t, srv, tt.method, tt.path, nil)
			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("status %d, want 405", rec.Code)
			}
			if rec.Header().Get("Allow") == "" {
				t.Error("expected Allow header")
			}
		})
	}
}

func TestInvalidYearParam(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, _ := doJSON(t, srv, http.MethodGet, "/api/income/matrix?year=abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", rec.Code)
	}
}
