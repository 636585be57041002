package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"shorturl-backend/internal/repository"
	"shorturl-backend/internal/service"
)

const (
	defaultPage    = 1
	defaultPerPage = 20
	maxPerPage     = 100
)

// PageMeta describes one page of a paginated listing.
type PageMeta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Count      int   `json:"count"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

func newPageMeta(page, perPage, count int, total int64) PageMeta {
	totalPages := total / int64(perPage)
	if total%int64(perPage) != 0 {
		totalPages++
	}
	return PageMeta{
		Page:       page,
		PerPage:    perPage,
		Count:      count,
		Total:      total,
		TotalPages: totalPages,
	}
}

func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeServiceError maps service and repository errors onto HTTP statuses.
// Anything unrecognized becomes a 500 without leaking internals.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, repository.ErrURLNotFound):
		writeError(w, "Short URL not found", http.StatusNotFound)
	case errors.Is(err, repository.ErrCodeExists):
		writeError(w, "Code already exists", http.StatusConflict)
	default:
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// parsePagination reads page and per_page query parameters with sane
// defaults and an upper bound on page size.
func parsePagination(r *http.Request) (page, perPage int) {
	page = defaultPage
	perPage = defaultPerPage

	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			perPage = n
		}
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

// parseIDList parses a comma separated list of numeric IDs.
func parseIDList(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func optionalQuery(r *http.Request, name string) *string {
	if v := r.URL.Query().Get(name); v != "" {
		return &v
	}
	return nil
}
