package http

import (
	"net/http"
)

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	year, ok := yearParam(r)
	if !ok {
		writeBadRequest(w, "invalid year")
		return
	}

	if cached, hit := s.totalsCache.Get(totalsCacheKey(year)); hit {
		writeSuccess(w, http.StatusOK, cached)
		return
	}

	report, err := s.service.Totals(r.Context(), year)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.totalsCache.Set(totalsCacheKey(year), report)
	writeSuccess(w, http.StatusOK, report)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	if err := s.service.Reset(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateAll()
	writeSuccess(w, http.StatusOK, nil)
}
