package http

import (
	"net/http"
	"strings"
)

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listCategories(w, r)
	case http.MethodPost:
		s.createCategory(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

// handleCategoryByID routes /api/income/categories/{id} and the reorder
// sub-resource.
func (s *Server) handleCategoryByID(w http.ResponseWriter, r *http.Request) {
	suffix := strings.TrimPrefix(r.URL.Path, "/api/income/categories/")
	if suffix == "" || strings.Contains(suffix, "/") {
		writeJSON(w, http.StatusNotFound, envelope{Success: false, Error: "not found"})
		return
	}

	if suffix == "reorder" {
		if r.Method != http.MethodPatch {
			methodNotAllowed(w, "PATCH")
			return
		}
		s.reorderCategories(w, r)
		return
	}

	switch r.Method {
	case http.MethodPatch:
		s.renameCategory(w, r, suffix)
	case http.MethodDelete:
		s.deleteCategory(w, r, suffix)
	default:
		methodNotAllowed(w, "PATCH, DELETE")
	}
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.service.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, cats)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	cat, err := s.service.CreateCategory(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateAll()
	writeSuccess(w, http.StatusCreated, cat)
}

func (s *Server) renameCategory(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	if err := s.service.RenameCategory(r.Context(), id, req.Name); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateAll()
	writeSuccess(w, http.StatusOK, nil)
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.service.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateAll()
	writeSuccess(w, http.StatusOK, nil)
}

func (s *Server) reorderCategories(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Order []string `json:"order"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	if err := s.service.ReorderCategories(r.Context(), req.Order); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateAll()
	writeSuccess(w, http.StatusOK, nil)
}
