package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"shorturl-backend/internal/cache"
	"shorturl-backend/internal/config"
	"shorturl-backend/internal/domain"
	"shorturl-backend/internal/repository"
	"shorturl-backend/pkg/random"
)

// maxCodeAttempts bounds the auto-allocation retry loop. Hitting it
// means the code space is close to exhausted for the configured
// alphabet and length.
const maxCodeAttempts = 10

// cacheKeyPrefix namespaces URL snapshots in the cache.
const cacheKeyPrefix = "url:"

// ShortenService orchestrates validation, code allocation, durable
// persistence and cache maintenance for short URLs. The durable store
// is authoritative everywhere; cache failures are logged and swallowed.
type ShortenService struct {
	storage repository.Storage
	cache   cache.Cache
	cfg     *config.Shortener
	log     *zap.Logger
}

func NewShorten(storage repository.Storage, c cache.Cache, cfg *config.Shortener, log *zap.Logger) *ShortenService {
	return &ShortenService{
		storage: storage,
		cache:   c,
		cfg:     cfg,
		log:     log,
	}
}

// Create validates the destination, resolves a short code (custom or
// auto-generated) and persists the new record. The cache is populated
// best-effort only after the durable insert succeeded.
func (s *ShortenService) Create(ctx context.Context, originalURL string, customCode, description *string) (*domain.URL, error) {
	if err := validateOriginalURL(originalURL); err != nil {
		return nil, err
	}

	var code string
	if customCode != nil && *customCode != "" {
		if err := s.validateCustomCode(*customCode); err != nil {
			return nil, err
		}
		exists, err := s.storage.CodeExists(ctx, *customCode)
		if err != nil {
			return nil, fmt.Errorf("failed to check code existence: %w", err)
		}
		if exists {
			return nil, repository.ErrCodeExists
		}
		code = *customCode
	} else {
		var err error
		code, err = s.allocateCode(ctx)
		if err != nil {
			return nil, err
		}
	}

	url := &domain.URL{
		Code:        code,
		OriginalURL: originalURL,
		Description: description,
		Status:      domain.StatusEnabled,
	}

	// Two concurrent creates may race past the pre-checks with the
	// same code; the store's unique constraint decides the winner and
	// the loser comes back as ErrCodeExists.
	if err := s.storage.SaveURL(ctx, url); err != nil {
		return nil, err
	}

	s.log.Info("created short url", zap.String("code", code), zap.String("original_url", originalURL))

	s.cacheURL(ctx, url)

	return url, nil
}

// Get returns a record by code using the cache-aside protocol: cache
// hit wins, a miss (or any cache error) falls through to the store and
// repopulates the cache best-effort.
func (s *ShortenService) Get(ctx context.Context, code string) (*domain.URL, error) {
	if url := s.cachedURL(ctx, code); url != nil {
		return url, nil
	}

	url, err := s.storage.GetURLByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	s.cacheURL(ctx, url)

	return url, nil
}

// Resolve is Get for the redirect path: records whose status is not
// Enabled are indistinguishable from absent ones.
func (s *ShortenService) Resolve(ctx context.Context, code string) (*domain.URL, error) {
	url, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if !url.IsEnabled() {
		return nil, repository.ErrURLNotFound
	}
	return url, nil
}

// List queries the durable store directly. Result sets depend on
// filters, sorting and paging, so they are never cached.
func (s *ShortenService) List(ctx context.Context, params repository.ListURLParams) ([]*domain.URL, int64, error) {
	return s.storage.ListURLs(ctx, params)
}

// Update applies a partial update. The cache entry is overwritten only
// after the durable write succeeded, so a following Get observes the
// new value immediately.
func (s *ShortenService) Update(ctx context.Context, code string, fields repository.UpdateURLFields) (*domain.URL, error) {
	if fields.OriginalURL != nil {
		if err := validateOriginalURL(*fields.OriginalURL); err != nil {
			return nil, err
		}
	}

	url, err := s.storage.UpdateURL(ctx, code, fields)
	if err != nil {
		return nil, err
	}

	s.log.Info("updated short url", zap.String("code", code))

	s.cacheURL(ctx, url)

	return url, nil
}

// Delete removes the record durably first, then invalidates the cache
// entry. A failed invalidation leaves a stale entry at most until its
// TTL expires.
func (s *ShortenService) Delete(ctx context.Context, code string) error {
	if err := s.storage.DeleteURL(ctx, code); err != nil {
		return err
	}

	s.log.Info("deleted short url", zap.String("code", code))

	s.dropCachedURL(ctx, code)

	return nil
}

// DeleteBatch removes records by id. Codes are resolved up front for
// cache cleanup because the bulk delete works by id and does not
// report which codes went away.
func (s *ShortenService) DeleteBatch(ctx context.Context, ids []int64) (int64, error) {
	var codes []string
	for _, id := range ids {
		url, err := s.storage.GetURLByID(ctx, id)
		if err != nil {
			continue
		}
		codes = append(codes, url.Code)
	}

	deleted, err := s.storage.DeleteURLBatch(ctx, ids)
	if err != nil {
		return 0, err
	}

	s.log.Info("batch deleted short urls", zap.Int64("deleted", deleted))

	for _, code := range codes {
		s.dropCachedURL(ctx, code)
	}

	return deleted, nil
}

// --- Code allocation ---

// allocateCode draws random candidates from the configured alphabet
// and checks each against the durable store (never the cache: only the
// store is authoritative for uniqueness). The pre-check is an
// optimization, not the guarantee; see Create.
func (s *ShortenService) allocateCode(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := random.NewRandomString(s.cfg.CodeCharset, s.cfg.CodeLength)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}

		exists, err := s.storage.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check code existence: %w", err)
		}
		if !exists {
			return code, nil
		}

		s.log.Debug("code collision, retrying",
			zap.String("code", code),
			zap.Int("attempt", attempt),
		)
	}

	return "", fmt.Errorf("%w after %d attempts", ErrCodeSpaceExhausted, maxCodeAttempts)
}

func (s *ShortenService) validateCustomCode(code string) error {
	if utf8.RuneCountInString(code) > 16 {
		return fmt.Errorf("%w: code %q exceeds 16 characters", ErrInvalidInput, code)
	}
	for _, r := range code {
		if !strings.ContainsRune(s.cfg.CodeCharset, r) {
			return fmt.Errorf("%w: code %q contains character %q outside the configured alphabet", ErrInvalidInput, code, r)
		}
	}
	return nil
}

func validateOriginalURL(originalURL string) error {
	if originalURL == "" {
		return fmt.Errorf("%w: original url must not be empty", ErrInvalidInput)
	}
	if !strings.HasPrefix(originalURL, "http://") && !strings.HasPrefix(originalURL, "https://") {
		return fmt.Errorf("%w: original url must start with http:// or https://", ErrInvalidInput)
	}
	return nil
}

// --- Cache maintenance ---

// cacheTTL scales the entry lifetime with the configured code length:
// longer codes mean a larger, colder key space.
func (s *ShortenService) cacheTTL() time.Duration {
	return time.Duration(s.cfg.CodeLength) * time.Hour
}

func (s *ShortenService) cacheURL(ctx context.Context, url *domain.URL) {
	payload, err := json.Marshal(url)
	if err != nil {
		s.log.Warn("failed to serialize url for cache", zap.String("code", url.Code), zap.Error(err))
		return
	}

	if err := s.cache.Set(ctx, cacheKeyPrefix+url.Code, string(payload), s.cacheTTL()); err != nil {
		s.log.Warn("failed to cache url", zap.String("code", url.Code), zap.Error(err))
	}
}

// cachedURL returns the cached snapshot or nil. Deserialization
// failures and backend errors both count as misses.
func (s *ShortenService) cachedURL(ctx context.Context, code string) *domain.URL {
	payload, err := s.cache.Get(ctx, cacheKeyPrefix+code)
	if err != nil {
		if err != cache.ErrNotFound {
			s.log.Warn("cache get failed, treating as miss", zap.String("code", code), zap.Error(err))
		}
		return nil
	}

	var url domain.URL
	if err := json.Unmarshal([]byte(payload), &url); err != nil {
		s.log.Warn("failed to deserialize cached url, treating as miss", zap.String("code", code), zap.Error(err))
		return nil
	}

	s.log.Debug("cache hit", zap.String("code", code))
	return &url
}

func (s *ShortenService) dropCachedURL(ctx context.Context, code string) {
	if err := s.cache.Delete(ctx, cacheKeyPrefix+code); err != nil {
		s.log.Warn("failed to invalidate cached url", zap.String("code", code), zap.Error(err))
	}
}
