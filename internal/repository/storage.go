package repository

import (
	"context"
	"errors"

	"shorturl-backend/internal/domain"
)

var (
	ErrURLNotFound = errors.New("url not found")
	ErrCodeExists  = errors.New("code already exists")
)

// Sort columns accepted by ListURLs. Anything else falls back to the
// default ordering (created_at desc).
const (
	SortByID        = "id"
	SortByCode      = "code"
	SortByCreatedAt = "created_at"
	SortByUpdatedAt = "updated_at"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ListURLParams filters, sorts and paginates ListURLs queries.
type ListURLParams struct {
	Page        int
	PerPage     int
	Code        *string           // exact match
	OriginalURL *string           // substring match
	Status      *domain.URLStatus // equality
	SortBy      string
	Order       string
}

// UpdateURLFields carries a partial update; nil fields stay untouched.
type UpdateURLFields struct {
	OriginalURL *string
	Description *string
	Status      *domain.URLStatus
}

// ListHistoryParams filters and paginates ListHistories queries.
// Results are always ordered by accessed_at desc.
type ListHistoryParams struct {
	Page      int
	PerPage   int
	Code      *string
	URLID     *int64
	IPAddress *string
}

// Storage is the durable store behind the shortener. It is the sole
// source of truth; the cache only ever holds derived snapshots of it.
type Storage interface {
	// URL methods
	SaveURL(ctx context.Context, url *domain.URL) error
	GetURLByCode(ctx context.Context, code string) (*domain.URL, error)
	GetURLByID(ctx context.Context, id int64) (*domain.URL, error)
	ListURLs(ctx context.Context, params ListURLParams) ([]*domain.URL, int64, error)
	UpdateURL(ctx context.Context, code string, fields UpdateURLFields) (*domain.URL, error)
	DeleteURL(ctx context.Context, code string) error
	DeleteURLBatch(ctx context.Context, ids []int64) (int64, error)
	CodeExists(ctx context.Context, code string) (bool, error)

	// Access history methods
	SaveHistory(ctx context.Context, history *domain.AccessHistory) error
	ListHistories(ctx context.Context, params ListHistoryParams) ([]*domain.AccessHistory, int64, error)
	DeleteHistoryBatch(ctx context.Context, ids []int64) (int64, error)
}
