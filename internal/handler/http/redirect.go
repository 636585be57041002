package http

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"shorturl-backend/internal/analytics"
	"shorturl-backend/internal/domain"
	"shorturl-backend/internal/repository"
	"shorturl-backend/internal/service"
)

// RedirectHandler resolves short codes and issues permanent redirects.
// Visit recording is handed to the analytics processor and never delays
// or fails the redirect itself.
type RedirectHandler struct {
	shortener *service.ShortenService
	processor *analytics.Processor
	log       *zap.Logger
}

// NewRedirectHandler creates a new redirect handler.
func NewRedirectHandler(shortener *service.ShortenService, processor *analytics.Processor, log *zap.Logger) *RedirectHandler {
	return &RedirectHandler{
		shortener: shortener,
		processor: processor,
		log:       log,
	}
}

// HandleRedirect handles GET /{code}.
func (h *RedirectHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		http.NotFound(w, r)
		return
	}

	url, err := h.shortener.Resolve(r.Context(), code)
	if err != nil {
		if errors.Is(err, repository.ErrURLNotFound) {
			h.log.Debug("code did not resolve", zap.String("code", code), zap.Error(err))
			http.NotFound(w, r)
			return
		}
		h.log.Error("failed to resolve code", zap.String("code", code), zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.submitAccessEvent(r, url)

	h.log.Info("redirect",
		zap.String("code", code),
		zap.String("original_url", url.OriginalURL))

	http.Redirect(w, r, url.OriginalURL, http.StatusPermanentRedirect)
}

// submitAccessEvent queues the visit for background enrichment. A full
// queue drops the event; the redirect is already on its way out.
func (h *RedirectHandler) submitAccessEvent(r *http.Request, url *domain.URL) {
	event := &domain.AccessEvent{
		URLID:      url.ID,
		Code:       url.Code,
		IPAddress:  extractIPAddress(r),
		AccessedAt: time.Now(),
	}
	if ua := r.UserAgent(); ua != "" {
		event.UserAgent = &ua
	}
	if ref := r.Referer(); ref != "" {
		event.Referer = &ref
	}

	if err := h.processor.Submit(event); err != nil {
		h.log.Debug("access event dropped", zap.String("code", url.Code), zap.Error(err))
	}
}

// extractIPAddress finds the client IP, trusting proxy headers in order
// of priority before falling back to the connection address.
func extractIPAddress(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		ips := strings.Split(ip, ",")
		if len(ips) > 0 && strings.TrimSpace(ips[0]) != "" {
			return strings.TrimSpace(ips[0])
		}
	}

	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}

	if ip := r.Header.Get("X-Client-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
	return ip
}
