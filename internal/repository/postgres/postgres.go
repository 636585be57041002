package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shorturl-backend/internal/domain"
	"shorturl-backend/internal/repository"
)

// PostgresStorage implements the Storage interface on top of GORM.
type PostgresStorage struct {
	db  *gorm.DB
	log *zap.Logger
}

// New creates a new PostgreSQL storage instance.
func New(db *gorm.DB, log *zap.Logger) *PostgresStorage {
	return &PostgresStorage{
		db:  db,
		log: log,
	}
}

// --- URL Methods ---

// SaveURL persists a new URL record. The unique index on code is the
// real uniqueness guarantee: a losing concurrent insert surfaces as
// ErrCodeExists here, regardless of any earlier existence pre-check.
func (s *PostgresStorage) SaveURL(ctx context.Context, url *domain.URL) error {
	if err := s.db.WithContext(ctx).Create(url).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repository.ErrCodeExists
		}
		s.log.Error("failed to save url", zap.String("code", url.Code), zap.Error(err))
		return fmt.Errorf("failed to save url: %w", err)
	}

	s.log.Info("saved new url", zap.String("code", url.Code), zap.Int64("id", url.ID))
	return nil
}

// GetURLByCode fetches a URL record by its short code.
func (s *PostgresStorage) GetURLByCode(ctx context.Context, code string) (*domain.URL, error) {
	var url domain.URL

	err := s.db.WithContext(ctx).Where("code = ?", code).First(&url).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrURLNotFound
	}
	if err != nil {
		s.log.Error("failed to get url by code", zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to get url: %w", err)
	}

	return &url, nil
}

// GetURLByID fetches a URL record by its database identity.
func (s *PostgresStorage) GetURLByID(ctx context.Context, id int64) (*domain.URL, error) {
	var url domain.URL

	err := s.db.WithContext(ctx).First(&url, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrURLNotFound
	}
	if err != nil {
		s.log.Error("failed to get url by id", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get url: %w", err)
	}

	return &url, nil
}

// ListURLs returns a page of URL records plus the unfiltered total for
// the same predicate set.
func (s *PostgresStorage) ListURLs(ctx context.Context, params repository.ListURLParams) ([]*domain.URL, int64, error) {
	query := s.db.WithContext(ctx).Model(&domain.URL{})

	if params.Code != nil && *params.Code != "" {
		query = query.Where("code = ?", *params.Code)
	}
	if params.OriginalURL != nil && *params.OriginalURL != "" {
		query = query.Where("original_url LIKE ?", "%"+*params.OriginalURL+"%")
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		s.log.Error("failed to count urls", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count urls: %w", err)
	}

	query = query.Order(orderClause(params.SortBy, params.Order))

	page, perPage := normalizePage(params.Page, params.PerPage)
	var urls []*domain.URL
	err := query.Offset((page - 1) * perPage).Limit(perPage).Find(&urls).Error
	if err != nil {
		s.log.Error("failed to list urls", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list urls: %w", err)
	}

	return urls, total, nil
}

// UpdateURL applies a partial update and returns the fresh record.
// UpdatedAt is touched on every call, including an all-nil field set,
// matching the in-memory backend.
func (s *PostgresStorage) UpdateURL(ctx context.Context, code string, fields repository.UpdateURLFields) (*domain.URL, error) {
	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if fields.OriginalURL != nil {
		updates["original_url"] = *fields.OriginalURL
	}
	if fields.Description != nil {
		updates["description"] = *fields.Description
	}
	if fields.Status != nil {
		updates["status"] = *fields.Status
	}

	result := s.db.WithContext(ctx).Model(&domain.URL{}).Where("code = ?", code).Updates(updates)
	if result.Error != nil {
		s.log.Error("failed to update url", zap.String("code", code), zap.Error(result.Error))
		return nil, fmt.Errorf("failed to update url: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, repository.ErrURLNotFound
	}

	return s.GetURLByCode(ctx, code)
}

// DeleteURL removes a URL record; histories cascade with it.
func (s *PostgresStorage) DeleteURL(ctx context.Context, code string) error {
	result := s.db.WithContext(ctx).Where("code = ?", code).Delete(&domain.URL{})
	if result.Error != nil {
		s.log.Error("failed to delete url", zap.String("code", code), zap.Error(result.Error))
		return fmt.Errorf("failed to delete url: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrURLNotFound
	}

	s.log.Info("deleted url", zap.String("code", code))
	return nil
}

// DeleteURLBatch removes the given ids and reports how many existed.
func (s *PostgresStorage) DeleteURLBatch(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&domain.URL{})
	if result.Error != nil {
		s.log.Error("failed to batch delete urls", zap.Int("requested", len(ids)), zap.Error(result.Error))
		return 0, fmt.Errorf("failed to batch delete urls: %w", result.Error)
	}

	s.log.Info("batch deleted urls", zap.Int64("deleted", result.RowsAffected))
	return result.RowsAffected, nil
}

// CodeExists checks whether a short code is already taken. This reads
// the durable store, never the cache: the point of the check is
// authoritative uniqueness.
func (s *PostgresStorage) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.URL{}).Where("code = ?", code).Count(&count).Error
	if err != nil {
		s.log.Error("failed to check code existence", zap.String("code", code), zap.Error(err))
		return false, fmt.Errorf("failed to check code: %w", err)
	}

	return count > 0, nil
}

// --- Access History Methods ---

// SaveHistory persists one access record.
func (s *PostgresStorage) SaveHistory(ctx context.Context, history *domain.AccessHistory) error {
	if err := s.db.WithContext(ctx).Create(history).Error; err != nil {
		s.log.Error("failed to save history", zap.String("code", history.Code), zap.Error(err))
		return fmt.Errorf("failed to save history: %w", err)
	}

	return nil
}

// ListHistories returns a page of access records, newest first.
func (s *PostgresStorage) ListHistories(ctx context.Context, params repository.ListHistoryParams) ([]*domain.AccessHistory, int64, error) {
	query := s.db.WithContext(ctx).Model(&domain.AccessHistory{})

	if params.Code != nil && *params.Code != "" {
		query = query.Where("code = ?", *params.Code)
	}
	if params.URLID != nil {
		query = query.Where("url_id = ?", *params.URLID)
	}
	if params.IPAddress != nil && *params.IPAddress != "" {
		query = query.Where("ip_address = ?", *params.IPAddress)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		s.log.Error("failed to count histories", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count histories: %w", err)
	}

	page, perPage := normalizePage(params.Page, params.PerPage)
	var histories []*domain.AccessHistory
	err := query.Order("accessed_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).Find(&histories).Error
	if err != nil {
		s.log.Error("failed to list histories", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list histories: %w", err)
	}

	return histories, total, nil
}

// DeleteHistoryBatch removes the given history ids.
func (s *PostgresStorage) DeleteHistoryBatch(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&domain.AccessHistory{})
	if result.Error != nil {
		s.log.Error("failed to batch delete histories", zap.Int("requested", len(ids)), zap.Error(result.Error))
		return 0, fmt.Errorf("failed to batch delete histories: %w", result.Error)
	}

	s.log.Info("batch deleted histories", zap.Int64("deleted", result.RowsAffected))
	return result.RowsAffected, nil
}

// --- Helper Methods ---

// orderClause maps requested sorting onto the allow-listed columns,
// defaulting to created_at desc for anything unrecognized.
func orderClause(sortBy, order string) string {
	switch sortBy {
	case repository.SortByID, repository.SortByCode, repository.SortByCreatedAt, repository.SortByUpdatedAt:
	default:
		return "created_at DESC"
	}

	dir := "DESC"
	if order == repository.OrderAsc {
		dir = "ASC"
	}

	return fmt.Sprintf("%s %s", sortBy, dir)
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	return page, perPage
}
