package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"shorturl-backend/internal/domain"
	"shorturl-backend/internal/repository"
)

// MemStorage is an in-memory Storage implementation used in tests and
// local development. It mirrors the relational semantics, including
// the unique code constraint and history cascade on URL deletion.
type MemStorage struct {
	mu             sync.RWMutex
	urlsByCode     map[string]*domain.URL
	histories      map[int64]*domain.AccessHistory
	urlCounter     int64
	historyCounter int64
}

func New() *MemStorage {
	return &MemStorage{
		urlsByCode: make(map[string]*domain.URL),
		histories:  make(map[int64]*domain.AccessHistory),
	}
}

// --- URL Methods ---

func (s *MemStorage) SaveURL(_ context.Context, url *domain.URL) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.urlsByCode[url.Code]; exists {
		return repository.ErrCodeExists
	}

	s.urlCounter++
	url.ID = s.urlCounter
	now := time.Now()
	url.CreatedAt = now
	url.UpdatedAt = now

	stored := *url
	s.urlsByCode[url.Code] = &stored
	return nil
}

func (s *MemStorage) GetURLByCode(_ context.Context, code string) (*domain.URL, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	url, ok := s.urlsByCode[code]
	if !ok {
		return nil, repository.ErrURLNotFound
	}
	copied := *url
	return &copied, nil
}

func (s *MemStorage) GetURLByID(_ context.Context, id int64) (*domain.URL, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, url := range s.urlsByCode {
		if url.ID == id {
			copied := *url
			return &copied, nil
		}
	}
	return nil, repository.ErrURLNotFound
}

func (s *MemStorage) ListURLs(_ context.Context, params repository.ListURLParams) ([]*domain.URL, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.URL
	for _, url := range s.urlsByCode {
		if params.Code != nil && *params.Code != "" && url.Code != *params.Code {
			continue
		}
		if params.OriginalURL != nil && *params.OriginalURL != "" &&
			!strings.Contains(url.OriginalURL, *params.OriginalURL) {
			continue
		}
		if params.Status != nil && url.Status != *params.Status {
			continue
		}
		copied := *url
		matched = append(matched, &copied)
	}

	sortURLs(matched, params.SortBy, params.Order)

	total := int64(len(matched))
	page, perPage := normalizePage(params.Page, params.PerPage)

	start := (page - 1) * perPage
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + perPage
	if end > len(matched) {
		end = len(matched)
	}

	return matched[start:end], total, nil
}

func (s *MemStorage) UpdateURL(_ context.Context, code string, fields repository.UpdateURLFields) (*domain.URL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	url, ok := s.urlsByCode[code]
	if !ok {
		return nil, repository.ErrURLNotFound
	}

	if fields.OriginalURL != nil {
		url.OriginalURL = *fields.OriginalURL
	}
	if fields.Description != nil {
		desc := *fields.Description
		url.Description = &desc
	}
	if fields.Status != nil {
		url.Status = *fields.Status
	}
	url.UpdatedAt = time.Now()

	copied := *url
	return &copied, nil
}

func (s *MemStorage) DeleteURL(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	url, ok := s.urlsByCode[code]
	if !ok {
		return repository.ErrURLNotFound
	}

	delete(s.urlsByCode, code)
	s.cascadeHistories(url.ID)
	return nil
}

func (s *MemStorage) DeleteURLBatch(_ context.Context, ids []int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for _, id := range ids {
		for code, url := range s.urlsByCode {
			if url.ID == id {
				delete(s.urlsByCode, code)
				s.cascadeHistories(id)
				deleted++
				break
			}
		}
	}
	return deleted, nil
}

func (s *MemStorage) CodeExists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.urlsByCode[code]
	return ok, nil
}

// --- Access History Methods ---

func (s *MemStorage) SaveHistory(_ context.Context, history *domain.AccessHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.historyCounter++
	history.ID = s.historyCounter
	history.CreatedAt = time.Now()

	stored := *history
	s.histories[history.ID] = &stored
	return nil
}

func (s *MemStorage) ListHistories(_ context.Context, params repository.ListHistoryParams) ([]*domain.AccessHistory, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.AccessHistory
	for _, h := range s.histories {
		if params.Code != nil && *params.Code != "" && h.Code != *params.Code {
			continue
		}
		if params.URLID != nil && h.URLID != *params.URLID {
			continue
		}
		if params.IPAddress != nil && *params.IPAddress != "" && h.IPAddress != *params.IPAddress {
			continue
		}
		copied := *h
		matched = append(matched, &copied)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].AccessedAt.After(matched[j].AccessedAt)
	})

	total := int64(len(matched))
	page, perPage := normalizePage(params.Page, params.PerPage)

	start := (page - 1) * perPage
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + perPage
	if end > len(matched) {
		end = len(matched)
	}

	return matched[start:end], total, nil
}

func (s *MemStorage) DeleteHistoryBatch(_ context.Context, ids []int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for _, id := range ids {
		if _, ok := s.histories[id]; ok {
			delete(s.histories, id)
			deleted++
		}
	}
	return deleted, nil
}

// --- Helpers ---

// cascadeHistories mirrors the relational ON DELETE CASCADE. Callers
// must hold the write lock.
func (s *MemStorage) cascadeHistories(urlID int64) {
	for id, h := range s.histories {
		if h.URLID == urlID {
			delete(s.histories, id)
		}
	}
}

func sortURLs(urls []*domain.URL, sortBy, order string) {
	asc := order == repository.OrderAsc

	less := func(i, j int) bool {
		var cmp bool
		switch sortBy {
		case repository.SortByID:
			cmp = urls[i].ID < urls[j].ID
		case repository.SortByCode:
			cmp = urls[i].Code < urls[j].Code
		case repository.SortByUpdatedAt:
			cmp = urls[i].UpdatedAt.Before(urls[j].UpdatedAt)
		case repository.SortByCreatedAt:
			cmp = urls[i].CreatedAt.Before(urls[j].CreatedAt)
		default:
			// default ordering is created_at desc
			return urls[i].CreatedAt.After(urls[j].CreatedAt)
		}
		if asc {
			return cmp
		}
		return !cmp
	}

	sort.SliceStable(urls, less)
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
