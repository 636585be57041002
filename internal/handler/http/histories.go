package http

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"shorturl-backend/internal/domain"
	"shorturl-backend/internal/repository"
	"shorturl-backend/internal/service"
)

// HistoriesHandler serves the access history API.
type HistoriesHandler struct {
	histories *service.HistoryService
	log       *zap.Logger
}

// NewHistoriesHandler creates a new access history handler.
func NewHistoriesHandler(histories *service.HistoryService, log *zap.Logger) *HistoriesHandler {
	return &HistoriesHandler{
		histories: histories,
		log:       log,
	}
}

// HistoryInfo is the API representation of one recorded visit.
type HistoryInfo struct {
	ID         int64   `json:"id"`
	URLID      int64   `json:"url_id"`
	Code       string  `json:"code"`
	IPAddress  string  `json:"ip_address"`
	UserAgent  *string `json:"user_agent,omitempty"`
	Referer    *string `json:"referer,omitempty"`
	Country    *string `json:"country,omitempty"`
	Region     *string `json:"region,omitempty"`
	Province   *string `json:"province,omitempty"`
	City       *string `json:"city,omitempty"`
	ISP        *string `json:"isp,omitempty"`
	DeviceType *string `json:"device_type,omitempty"`
	OS         *string `json:"os,omitempty"`
	Browser    *string `json:"browser,omitempty"`
	AccessedAt string  `json:"accessed_at"`
}

// ListHistoriesResponse is one page of access history records.
type ListHistoriesResponse struct {
	Data []HistoryInfo `json:"data"`
	Meta PageMeta      `json:"meta"`
}

// List handles GET /api/histories.
func (h *HistoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := parsePagination(r)

	params := repository.ListHistoryParams{
		Page:      page,
		PerPage:   perPage,
		Code:      optionalQuery(r, "code"),
		IPAddress: optionalQuery(r, "ip_address"),
	}
	if v := r.URL.Query().Get("url_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, "Invalid url_id filter", http.StatusBadRequest)
			return
		}
		params.URLID = &id
	}

	records, total, err := h.histories.List(r.Context(), params)
	if err != nil {
		h.log.Error("failed to list access histories", zap.Error(err))
		writeServiceError(w, err)
		return
	}

	data := make([]HistoryInfo, len(records))
	for i, record := range records {
		data[i] = toHistoryInfo(record)
	}

	writeJSON(w, ListHistoriesResponse{
		Data: data,
		Meta: newPageMeta(page, perPage, len(data), total),
	}, http.StatusOK)
}

// DeleteBatch handles DELETE /api/histories with an ids query parameter.
func (h *HistoriesHandler) DeleteBatch(w http.ResponseWriter, r *http.Request) {
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

	deleted, err := h.histories.DeleteBatch(r.Context(), ids)
	if err != nil {
		h.log.Error("failed to batch delete histories", zap.Error(err))
		writeServiceError(w, err)
		return
	}

	h.log.Info("batch deleted histories", zap.Int("requested", len(ids)), zap.Int64("deleted", deleted))
	writeJSON(w, BatchDeleteResponse{Deleted: deleted}, http.StatusOK)
}

func toHistoryInfo(record *domain.AccessHistory) HistoryInfo {
	return HistoryInfo{
		ID:         record.ID,
		URLID:      record.URLID,
		Code:       record.Code,
		IPAddress:  record.IPAddress,
		UserAgent:  record.UserAgent,
		Referer:    record.Referer,
		Country:    record.Country,
		Region:     record.Region,
		Province:   record.Province,
		City:       record.City,
		ISP:        record.ISP,
		DeviceType: record.DeviceType,
		OS:         record.OS,
		Browser:    record.Browser,
		AccessedAt: record.AccessedAt.Format(time.RFC3339),
	}
}
