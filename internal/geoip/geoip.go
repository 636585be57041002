// Package geoip resolves visitor IP addresses to coarse location data
// for access-history enrichment. Like the cache, it is an optional
// backend: when the database file is missing or a lookup fails, the
// pipeline records empty geo fields instead of failing the request.
package geoip

import (
	"errors"

	"go.uber.org/zap"

	"shorturl-backend/internal/config"
	"shorturl-backend/pkg/resilient"
)

// ErrInvalidIP is returned for lookups on empty or unparseable input.
var ErrInvalidIP = errors.New("geoip: invalid ip address")

// Info is the result of a geo lookup. Any field may be empty.
type Info struct {
	Country  string `json:"country"`
	Region   string `json:"region"`
	Province string `json:"province"`
	City     string `json:"city"`
	ISP      string `json:"isp"`
}

// IsEmpty reports whether the lookup produced no data at all.
func (i Info) IsEmpty() bool {
	return i.Country == "" && i.Region == "" && i.Province == "" && i.City == "" && i.ISP == ""
}

// GeoIP answers coarse location queries for IP address strings.
type GeoIP interface {
	Lookup(ip string) (Info, error)
}

// LookupOrEmpty swallows lookup failures into an empty Info so callers
// on the enrichment path never have to handle a geo error.
func LookupOrEmpty(g GeoIP, log *zap.Logger, ip string) Info {
	info, err := g.Lookup(ip)
	if err != nil {
		log.Warn("geoip lookup failed, recording empty geo fields",
			zap.String("ip", ip),
			zap.Error(err),
		)
		return Info{}
	}
	return info
}

// Null is the no-op GeoIP used when the backend is disabled or could
// not be initialized. Every lookup succeeds with empty data.
type Null struct{}

func NewNull() *Null {
	return &Null{}
}

func (*Null) Lookup(_ string) (Info, error) {
	return Info{}, nil
}

// New selects the geo backend from configuration, falling back to the
// null implementation when the database cannot be opened.
func New(cfg *config.GeoIP, log *zap.Logger) GeoIP {
	if !cfg.Enabled {
		log.Info("geoip is disabled, using null backend")
		return NewNull()
	}

	return resilient.New[GeoIP](log, "ip2region geoip", func() (GeoIP, error) {
		g, err := NewIP2Region(cfg.Path, cfg.Mode)
		if err != nil {
			return nil, err
		}
		log.Info("initialized ip2region database",
			zap.String("path", cfg.Path),
			zap.String("mode", cfg.Mode),
		)
		return g, nil
	}, NewNull())
}
