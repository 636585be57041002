package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"shorturl-backend/internal/domain"
	"shorturl-backend/internal/geoip"
	"shorturl-backend/internal/repository"
	"shorturl-backend/pkg/useragent"
)

// HistoryService enriches and records short URL accesses. It runs
// entirely off the redirect's critical path: the analytics worker pool
// calls RecordAccess, never the HTTP handler itself.
type HistoryService struct {
	storage repository.Storage
	geo     geoip.GeoIP
	ua      *useragent.Parser
	log     *zap.Logger
}

func NewHistory(storage repository.Storage, geo geoip.GeoIP, ua *useragent.Parser, log *zap.Logger) *HistoryService {
	return &HistoryService{
		storage: storage,
		geo:     geo,
		ua:      ua,
		log:     log,
	}
}

// RecordAccess looks up geo data for the visitor IP, classifies the
// User-Agent and writes one history row. Geo failures degrade to empty
// fields; only the durable write can fail the call.
func (s *HistoryService) RecordAccess(ctx context.Context, event *domain.AccessEvent) error {
	info := geoip.LookupOrEmpty(s.geo, s.log, event.IPAddress)

	history := &domain.AccessHistory{
		URLID:      event.URLID,
		Code:       event.Code,
		IPAddress:  event.IPAddress,
		UserAgent:  event.UserAgent,
		Referer:    event.Referer,
		Country:    optional(info.Country),
		Region:     optional(info.Region),
		Province:   optional(info.Province),
		City:       optional(info.City),
		ISP:        optional(info.ISP),
		AccessedAt: event.AccessedAt,
	}

	if event.UserAgent != nil && *event.UserAgent != "" {
		client := s.ua.Parse(*event.UserAgent)
		history.DeviceType = optional(client.DeviceType)
		history.OS = optional(client.OS)
		history.Browser = optional(client.Browser)
	}

	if err := s.storage.SaveHistory(ctx, history); err != nil {
		return fmt.Errorf("failed to record access for code %s: %w", event.Code, err)
	}

	s.log.Debug("recorded access",
		zap.String("code", event.Code),
		zap.String("ip", event.IPAddress),
	)

	return nil
}

// List returns a page of access records, newest first.
func (s *HistoryService) List(ctx context.Context, params repository.ListHistoryParams) ([]*domain.AccessHistory, int64, error) {
	return s.storage.ListHistories(ctx, params)
}

// DeleteBatch removes history records by id.
func (s *HistoryService) DeleteBatch(ctx context.Context, ids []int64) (int64, error) {
	deleted, err := s.storage.DeleteHistoryBatch(ctx, ids)
	if err != nil {
		return 0, err
	}

	s.log.Info("batch deleted histories", zap.Int64("deleted", deleted))
	return deleted, nil
}

// optional maps empty strings to nil so absent data stays NULL in the
// store instead of an empty string.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
