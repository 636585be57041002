package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shorturl-backend/internal/analytics"
	"shorturl-backend/internal/auth"
	"shorturl-backend/internal/cache"
	"shorturl-backend/internal/config"
	"shorturl-backend/internal/domain"
	"shorturl-backend/internal/geoip"
	"shorturl-backend/internal/repository"
	"shorturl-backend/internal/repository/memory"
	"shorturl-backend/internal/service"
	"shorturl-backend/pkg/useragent"
)

const testAPIKey = "test-api-key"

type testEnv struct {
	handler   http.Handler
	storage   *memory.MemStorage
	processor *analytics.Processor
}

func newTestEnv(t *testing.T, geo geoip.GeoIP) *testEnv {
	t.Helper()
	log := zap.NewNop()

	shortenerCfg := &config.Shortener{
		CodeLength:  6,
		CodeCharset: "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ",
		BaseURL:     "http://sho.rt",
	}
	authCfg := &config.Auth{
		JWTSecret:     "test-secret",
		TokenTTL:      time.Hour,
		APIKey:        testAPIKey,
		AdminUsername: "admin",
		AdminPassword: "password123",
	}
	analyticsCfg := config.Analytics{
		Workers:         2,
		BufferSize:      64,
		RetryAttempts:   2,
		RetryDelay:      time.Millisecond,
		ShutdownTimeout: 5 * time.Second,
	}

	storage := memory.New()
	shortener := service.NewShorten(storage, cache.NewNull(), shortenerCfg, log)
	histories := service.NewHistory(storage, geo, useragent.NewParser(), log)

	processor := analytics.NewProcessor(histories, analyticsCfg, log)
	require.NoError(t, processor.Start())
	t.Cleanup(func() { _ = processor.Stop() })

	jwtService := auth.NewJWTService(authCfg)
	tokens := auth.NewTokenStore(time.Minute)
	authHandlers, err := auth.NewHandlers(authCfg, jwtService, tokens, log)
	require.NoError(t, err)
	authMiddleware := auth.NewMiddleware(jwtService, tokens, authCfg.APIKey, log)

	server := NewServer(storage, shortener, histories, processor, authHandlers, authMiddleware, shortenerCfg, log)

	return &testEnv{
		handler:   server.SetupRoutes(),
		storage:   storage,
		processor: processor,
	}
}

func (e *testEnv) do(method, target string, body interface{}, authenticated bool) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	if authenticated {
		req.Header.Set("X-API-Key", testAPIKey)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createShorten(t *testing.T, originalURL string, customCode *string) ShortenInfo {
	t.Helper()
	w := e.do(http.MethodPost, "/api/shortens", CreateShortenRequest{
		OriginalURL: originalURL,
		CustomCode:  customCode,
	}, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var info ShortenInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&info))
	return info
}

func TestShortensAPI(t *testing.T) {
	t.Run("create_returns_short_url", func(t *testing.T) {
		env := newTestEnv(t, geoip.NewNull())

		info := env.createShorten(t, "https://example.com", nil)
		assert.Len(t, info.Code, 6)
		assert.Equal(t, "http://sho.rt/"+info.Code, info.ShortURL)
		assert.EqualValues(t, 0, info.Status)
	})

	t.Run("create_with_custom_code", func(t *testing.T) {
		env := newTestEnv(t, geoip.NewNull())

		code := "launch"
		info := env.createShorten(t, "https://example.com", &code)
		assert.Equal(t, "launch", info.Code)

		// Second create with the same code conflicts.
		w := env.do(http.MethodPost, "/api/shortens", CreateShortenRequest{
			OriginalURL: "https://other.com",
			CustomCode:  &code,
		}, true)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("create_rejects_bad_input", func(t *testing.T) {
		env := newTestEnv(t, geoip.NewNull())

		w := env.do(http.MethodPost, "/api/shortens", CreateShortenRequest{OriginalURL: "not-a-url"}, true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("requires_authentication", func(t *testing.T) {
		env := newTestEnv(t, geoip.NewNull())

		w := env.do(http.MethodPost, "/api/shortens", CreateShortenRequest{OriginalURL: "https://example.com"}, false)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = env.do(http.MethodGet, "/api/shortens", nil, false)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("get_update_delete_by_code", func(t *testing.T) {
		env := newTestEnv(t, geoip.NewNull())
		info := env.createShorten(t, "https://example.com", nil)

		w := env.do(http.MethodGet, "/api/shortens/"+info.Code, nil, true)
		require.Equal(t, http.StatusOK, w.Code)

		newURL := "https://example.com/v2"
		w = env.do(http.MethodPut, "/api/shortens/"+info.Code, UpdateShortenRequest{OriginalURL: &newURL}, true)
		require.Equal(t, http.StatusOK, w.Code)
		var updated ShortenInfo
		require.NoError(t, json.NewDecoder(w.Body).Decode(&updated))
		assert.Equal(t, newURL, updated.OriginalURL)

		w = env.do(http.MethodDelete, "/api/shortens/"+info.Code, nil, true)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = env.do(http.MethodGet, "/api/shortens/"+info.Code, nil, true)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("list_with_pagination_meta", func(t *testing.T) {
		env := newTestEnv(t, geoip.NewNull())
		for i := 0; i < 5; i++ {
			env.createShorten(t, fmt.Sprintf("https://example.com/%d", i), nil)
		}

		w := env.do(http.MethodGet, "/api/shortens?page=2&per_page=2&sort_by=id&order=asc", nil, true)
		require.Equal(t, http.StatusOK, w.Code)

		var resp ListShortensResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Len(t, resp.Data, 2)
		assert.Equal(t, 2, resp.Meta.Page)
		assert.Equal(t, 2, resp.Meta.PerPage)
		assert.EqualValues(t, 5, resp.Meta.Total)
		assert.EqualValues(t, 3, resp.Meta.TotalPages)
	})

	t.Run("list_filters_by_original_url_substring", func(t *testing.T) {
		env := newTestEnv(t, geoip.NewNull())
		env.createShorten(t, "https://example.com/docs", nil)
		env.createShorten(t, "https://other.net/page", nil)

		w := env.do(http.MethodGet, "/api/shortens?original_url=example.com", nil, true)
		require.Equal(t, http.StatusOK, w.Code)

		var resp ListShortensResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.EqualValues(t, 1, resp.Meta.Total)
	})

	t.Run("batch_delete_by_ids", func(t *testing.T) {
		env := newTestEnv(t, geoip.NewNull())
		first := env.createShorten(t, "https://example.com/1", nil)
		second := env.createShorten(t, "https://example.com/2", nil)

		w := env.do(http.MethodDelete, fmt.Sprintf("/api/shortens?ids=%d,%d,9999", first.ID, second.ID), nil, true)
		require.Equal(t, http.StatusOK, w.Code)

		var resp BatchDeleteResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.EqualValues(t, 2, resp.Deleted)
	})

	t.Run("batch_delete_rejects_malformed_ids", func(t *testing.T) {
		env := newTestEnv(t, geoip.NewNull())

		w := env.do(http.MethodDelete, "/api/shortens?ids=abc", nil, true)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = env.do(http.MethodDelete, "/api/shortens", nil, true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRedirect(t *testing.T) {
	t.Run("permanent_redirect_to_destination", func(t *testing.T) {
		env := newTestEnv(t, geoip.NewNull())
		info := env.createShorten(t, "https://example.com/landing", nil)

		w := env.do(http.MethodGet, "/"+info.Code, nil, false)
		assert.Equal(t, http.StatusPermanentRedirect, w.Code)
		assert.Equal(t, "https://example.com/landing", w.Header().Get("Location"))
	})

	t.Run("unknown_code_is_404", func(t *testing.T) {
		env := newTestEnv(t, geoip.NewNull())

		w := env.do(http.MethodGet, "/nosuch", nil, false)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("disabled_code_is_404", func(t *testing.T) {
		env := newTestEnv(t, geoip.NewNull())
		info := env.createShorten(t, "https://example.com", nil)

		disabled := int32(1)
		w := env.do(http.MethodPut, "/api/shortens/"+info.Code, UpdateShortenRequest{Status: &disabled}, true)
		require.Equal(t, http.StatusOK, w.Code)

		w = env.do(http.MethodGet, "/"+info.Code, nil, false)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("store_failure_is_internal_error", func(t *testing.T) {
		log := zap.NewNop()
		cfg := &config.Shortener{
			CodeLength:  6,
			CodeCharset: "abcdef",
			BaseURL:     "http://sho.rt",
		}
		shortener := service.NewShorten(failingStorage{}, cache.NewNull(), cfg, log)
		processor := analytics.NewProcessor(nil, config.Analytics{Workers: 1, BufferSize: 1, RetryAttempts: 1}, log)
		handler := NewRedirectHandler(shortener, processor, log)

		req := httptest.NewRequest(http.MethodGet, "/abc123", nil)
		req.SetPathValue("code", "abc123")
		w := httptest.NewRecorder()
		handler.HandleRedirect(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Empty(t, w.Header().Get("Location"))
	})

	t.Run("root_is_404", func(t *testing.T) {
		env := newTestEnv(t, geoip.NewNull())
		w := env.do(http.MethodGet, "/", nil, false)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("visit_is_recorded_in_background", func(t *testing.T) {
		env := newTestEnv(t, geoip.NewNull())
		info := env.createShorten(t, "https://example.com", nil)

		req := httptest.NewRequest(http.MethodGet, "/"+info.Code, nil)
		req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Mobile Safari/604.1")
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		req.Header.Set("Referer", "https://news.example.com")
		w := httptest.NewRecorder()
		env.handler.ServeHTTP(w, req)
		require.Equal(t, http.StatusPermanentRedirect, w.Code)

		assert.Eventually(t, func() bool {
			_, total, err := env.storage.ListHistories(req.Context(), repository.ListHistoryParams{})
			return err == nil && total == 1
		}, 2*time.Second, 10*time.Millisecond)

		records, _, err := env.storage.ListHistories(req.Context(), repository.ListHistoryParams{})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, info.Code, records[0].Code)
		assert.Equal(t, "203.0.113.9", records[0].IPAddress)
		require.NotNil(t, records[0].DeviceType)
		assert.Equal(t, useragent.DeviceMobile, *records[0].DeviceType)
	})

	t.Run("slow_geo_lookup_does_not_delay_redirect", func(t *testing.T) {
		env := newTestEnv(t, slowGeoIP{delay: 500 * time.Millisecond})
		info := env.createShorten(t, "https://example.com", nil)

		start := time.Now()
		w := env.do(http.MethodGet, "/"+info.Code, nil, false)
		elapsed := time.Since(start)

		assert.Equal(t, http.StatusPermanentRedirect, w.Code)
		assert.Less(t, elapsed, 200*time.Millisecond, "redirect waited on enrichment")
	})
}

// failingStorage reports a backend outage for every read.
type failingStorage struct {
	repository.Storage
}

func (failingStorage) GetURLByCode(_ context.Context, _ string) (*domain.URL, error) {
	return nil, errors.New("connection refused")
}

type slowGeoIP struct {
	delay time.Duration
}

func (g slowGeoIP) Lookup(_ string) (geoip.Info, error) {
	time.Sleep(g.delay)
	return geoip.Info{}, nil
}

func TestHistoriesAPI(t *testing.T) {
	env := newTestEnv(t, geoip.NewNull())
	info := env.createShorten(t, "https://example.com", nil)

	for i := 0; i < 3; i++ {
		w := env.do(http.MethodGet, "/"+info.Code, nil, false)
		require.Equal(t, http.StatusPermanentRedirect, w.Code)
	}

	require.Eventually(t, func() bool {
		w := env.do(http.MethodGet, "/api/histories", nil, true)
		if w.Code != http.StatusOK {
			return false
		}
		var resp ListHistoriesResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			return false
		}
		return resp.Meta.Total == 3
	}, 2*time.Second, 10*time.Millisecond)

	t.Run("filter_by_code", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/histories?code="+info.Code, nil, true)
		require.Equal(t, http.StatusOK, w.Code)
		var resp ListHistoriesResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.EqualValues(t, 3, resp.Meta.Total)
	})

	t.Run("batch_delete", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/histories", nil, true)
		require.Equal(t, http.StatusOK, w.Code)
		var resp ListHistoriesResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.NotEmpty(t, resp.Data)

		w = env.do(http.MethodDelete, fmt.Sprintf("/api/histories?ids=%d", resp.Data[0].ID), nil, true)
		require.Equal(t, http.StatusOK, w.Code)

		var del BatchDeleteResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&del))
		assert.EqualValues(t, 1, del.Deleted)
	})
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, geoip.NewNull())

	t.Run("health", func(t *testing.T) {
		w := env.do(http.MethodGet, "/health", nil, false)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp HealthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "healthy", resp.DatabaseStatus)
	})

	t.Run("ready", func(t *testing.T) {
		w := env.do(http.MethodGet, "/ready", nil, false)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("metrics_include_analytics_stats", func(t *testing.T) {
		w := env.do(http.MethodGet, "/metrics", nil, false)
		require.Equal(t, http.StatusOK, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Contains(t, resp, "analytics")
	})
}

func TestExtractIPAddress(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name:       "forwarded_for_first_hop_wins",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1", "X-Real-IP": "198.51.100.1"},
			remoteAddr: "192.0.2.1:1234",
			want:       "203.0.113.9",
		},
		{
			name:       "real_ip_fallback",
			headers:    map[string]string{"X-Real-IP": "198.51.100.1"},
			remoteAddr: "192.0.2.1:1234",
			want:       "198.51.100.1",
		},
		{
			name:       "client_ip_fallback",
			headers:    map[string]string{"X-Client-IP": "198.51.100.7"},
			remoteAddr: "192.0.2.1:1234",
			want:       "198.51.100.7",
		},
		{
			name:       "remote_addr_host_part",
			remoteAddr: "192.0.2.1:1234",
			want:       "192.0.2.1",
		},
		{
			name:       "remote_addr_without_port",
			remoteAddr: "192.0.2.1",
			want:       "192.0.2.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/abc123", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, extractIPAddress(req))
		})
	}
}
