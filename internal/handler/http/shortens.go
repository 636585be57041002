package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"shorturl-backend/internal/config"
	"shorturl-backend/internal/domain"
	"shorturl-backend/internal/repository"
	"shorturl-backend/internal/service"
)

// ShortensHandler serves the short URL management API.
type ShortensHandler struct {
	shortener *service.ShortenService
	log       *zap.Logger
	baseURL   string
}

// NewShortensHandler creates a new short URL handler.
func NewShortensHandler(shortener *service.ShortenService, cfg *config.Shortener, log *zap.Logger) *ShortensHandler {
	return &ShortensHandler{
		shortener: shortener,
		log:       log,
		baseURL:   cfg.BaseURL,
	}
}

// CreateShortenRequest is the creation request body.
type CreateShortenRequest struct {
	OriginalURL string  `json:"original_url"`
	CustomCode  *string `json:"custom_code,omitempty"`
	Description *string `json:"description,omitempty"`
}

// UpdateShortenRequest is a partial update; absent fields stay untouched.
type UpdateShortenRequest struct {
	OriginalURL *string `json:"original_url,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *int32  `json:"status,omitempty"`
}

// ShortenInfo is the API representation of a short URL record.
type ShortenInfo struct {
	ID          int64   `json:"id"`
	Code        string  `json:"code"`
	ShortURL    string  `json:"short_url"`
	OriginalURL string  `json:"original_url"`
	Description *string `json:"description,omitempty"`
	Status      int32   `json:"status"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// ListShortensResponse is one page of short URL records.
type ListShortensResponse struct {
	Data []ShortenInfo `json:"data"`
	Meta PageMeta      `json:"meta"`
}

// BatchDeleteResponse reports how many records a batch delete removed.
type BatchDeleteResponse struct {
	Deleted int64 `json:"deleted"`
}

// Create handles POST /api/shortens.
func (h *ShortensHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateShortenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid create request", zap.Error(err))
		writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	url, err := h.shortener.Create(r.Context(), req.OriginalURL, req.CustomCode, req.Description)
	if err != nil {
		h.log.Debug("failed to create short url", zap.Error(err))
		writeServiceError(w, err)
		return
	}

	h.log.Info("created short url", zap.String("code", url.Code), zap.Int64("id", url.ID))
	writeJSON(w, h.toInfo(url), http.StatusCreated)
}

// Get handles GET /api/shortens/{code}.
func (h *ShortensHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	url, err := h.shortener.Get(r.Context(), code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, h.toInfo(url), http.StatusOK)
}

// List handles GET /api/shortens.
func (h *ShortensHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := parsePagination(r)

	params := repository.ListURLParams{
		Page:        page,
		PerPage:     perPage,
		Code:        optionalQuery(r, "code"),
		OriginalURL: optionalQuery(r, "original_url"),
		SortBy:      r.URL.Query().Get("sort_by"),
		Order:       r.URL.Query().Get("order"),
	}
	if v := r.URL.Query().Get("status"); v != "" {
		raw, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			writeError(w, "Invalid status filter", http.StatusBadRequest)
			return
		}
		status := domain.ParseURLStatus(int32(raw))
		params.Status = &status
	}

	urls, total, err := h.shortener.List(r.Context(), params)
	if err != nil {
		h.log.Error("failed to list short urls", zap.Error(err))
		writeServiceError(w, err)
		return
	}

	data := make([]ShortenInfo, len(urls))
	for i, url := range urls {
		data[i] = h.toInfo(url)
	}

	writeJSON(w, ListShortensResponse{
		Data: data,
		Meta: newPageMeta(page, perPage, len(data), total),
	}, http.StatusOK)
}

// Update handles PUT /api/shortens/{code}.
func (h *ShortensHandler) Update(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	var req UpdateShortenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid update request", zap.Error(err))
		writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	fields := repository.UpdateURLFields{
		OriginalURL: req.OriginalURL,
		Description: req.Description,
	}
	if req.Status != nil {
		status := domain.ParseURLStatus(*req.Status)
		fields.Status = &status
	}

	url, err := h.shortener.Update(r.Context(), code, fields)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.log.Info("updated short url", zap.String("code", code))
	writeJSON(w, h.toInfo(url), http.StatusOK)
}

// Delete handles DELETE /api/shortens/{code}.
func (h *ShortensHandler) Delete(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	if err := h.shortener.Delete(r.Context(), code); err != nil {
		writeServiceError(w, err)
		return
	}

	h.log.Info("deleted short url", zap.String("code", code))
	w.WriteHeader(http.StatusNoContent)
}

// DeleteBatch handles DELETE /api/shortens with an ids query parameter.
func (h *ShortensHandler) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ids")
	if raw == "" {
		writeError(w, "ids parameter is required", http.StatusBadRequest)
		return
	}

	ids, err := parseIDList(raw)
	if err != nil || len(ids) == 0 {
		writeError(w, "Invalid ids parameter", http.StatusBadRequest)
		return
	}

	deleted, err := h.shortener.DeleteBatch(r.Context(), ids)
	if err != nil {
		h.log.Error("failed to batch delete short urls", zap.Error(err))
		writeServiceError(w, err)
		return
	}

	h.log.Info("batch deleted short urls", zap.Int("requested", len(ids)), zap.Int64("deleted", deleted))
	writeJSON(w, BatchDeleteResponse{Deleted: deleted}, http.StatusOK)
}

func (h *ShortensHandler) toInfo(url *domain.URL) ShortenInfo {
	return ShortenInfo{
		ID:          url.ID,
		Code:        url.Code,
		ShortURL:    h.baseURL + "/" + url.Code,
		OriginalURL: url.OriginalURL,
		Description: url.Description,
		Status:      int32(url.Status),
		CreatedAt:   url.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   url.UpdatedAt.Format(time.RFC3339),
	}
}
