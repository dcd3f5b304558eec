package http

import (
	"net/http"
	"strconv"
	"time"

	"ingresos/internal/core"
)

// yearParam reads ?year=YYYY, defaulting to the current year.
func yearParam(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return time.Now().Year(), true
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1900 || year > 9999 {
		return 0, false
	}
	return year, true
}

func (s *Server) handleMatrix(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.getMatrix(w, r)
	case http.MethodPatch:
		s.setCell(w, r)
	default:
		methodNotAllowed(w, "GET, PATCH")
	}
}

func (s *Server) getMatrix(w http.ResponseWriter, r *http.Request) {
	year, ok := yearParam(r)
	if !ok {
		writeBadRequest(w, "invalid year")
		return
	}

	if cached, hit := s.matrixCache.Get(matrixCacheKey(year)); hit {
		writeSuccess(w, http.StatusOK, cached)
		return
	}

	matrix, err := s.service.GetMatrix(r.Context(), year)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.matrixCache.Set(matrixCacheKey(year), matrix)
	writeSuccess(w, http.StatusOK, matrix)
}

func (s *Server) setCell(w http.ResponseWriter, r *http.Request) {
	// Value arrives as any non-negative number; rounding and the zero floor
	// are applied here, before the store sees it.
	var req struct {
		Year       int     `json:"year"`
		CategoryID string  `json:"categoryId"`
		Month      int     `json:"month"`
		Value      float64 `json:"value"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.CategoryID == "" {
		writeBadRequest(w, "categoryId is required")
		return
	}

	if err := s.service.SetCell(r.Context(), req.Year, req.CategoryID, req.Month, core.ClampAmount(req.Value)); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateYear(req.Year)
	writeSuccess(w, http.StatusOK, nil)
}

func (s *Server) handleBulkRow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req struct {
		Year       int             `json:"year"`
		CategoryID string          `json:"categoryId"`
		Values     map[int]float64 `json:"values"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.CategoryID == "" {
		writeBadRequest(w, "categoryId is required")
		return
	}

	values := make(map[int]int64, len(req.Values))
	for month, v := range req.Values {
		values[month] = core.ClampAmount(v)
	}

	if err := s.service.BulkSetRow(r.Context(), req.Year, req.CategoryID, values); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateYear(req.Year)
	writeSuccess(w, http.StatusOK, nil)
}

func (s *Server) handlePasteRow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req struct {
		Year       int    `json:"year"`
		CategoryID string `json:"categoryId"`
		Text       string `json:"text"`
		StartMonth int    `json:"startMonth"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.CategoryID == "" {
		writeBadRequest(w, "categoryId is required")
		return
	}
	if req.StartMonth == 0 {
		req.StartMonth = 1
	}

	applied, err := s.service.PasteRow(r.Context(), req.Year, req.CategoryID, req.Text, req.StartMonth)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateYear(req.Year)
	writeSuccess(w, http.StatusOK, map[string]int{"cellsApplied": applied})
}

func (s *Server) handlePasteMatrix(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req struct {
		Year       int    `json:"year"`
		Text       string `json:"text"`
		StartIndex int    `json:"startIndex"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.StartIndex < 0 {
		writeBadRequest(w, "startIndex must not be negative")
		return
	}

	applied, err := s.service.PasteMatrix(r.Context(), req.Year, req.Text, req.StartIndex)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateYear(req.Year)
	writeSuccess(w, http.StatusOK, map[string]int{"rowsApplied": applied})
}
