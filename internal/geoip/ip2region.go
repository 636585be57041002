package geoip

import (
	"fmt"
	"strings"
	"sync"

	"github.com/lionsoul2014/ip2region/binding/golang/xdb"
)

// ip2region load modes. "vector" keeps the vector index in memory,
// "memory" loads the whole xdb file; anything else searches the file
// directly on every lookup.
const (
	ModeFile   = "file"
	ModeVector = "vector"
	ModeMemory = "memory"
)

// regionSearcher is the xdb searcher surface used by IP2Region.
type regionSearcher interface {
	Search(ip any) (string, error)
	Close()
}

// IP2Region implements GeoIP on an ip2region xdb database file.
// The xdb searcher seeks and reads a single shared file handle in the
// file and vector modes, so lookups are serialized with a mutex.
type IP2Region struct {
	mu       sync.Mutex
	searcher regionSearcher
}

// NewIP2Region opens the xdb database at path with the given mode.
func NewIP2Region(path, mode string) (*IP2Region, error) {
	var (
		searcher *xdb.Searcher
		err      error
	)

	switch mode {
	case ModeVector:
		var vIndex []byte
		vIndex, err = xdb.LoadVectorIndexFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load vector index from %s: %w", path, err)
		}
		searcher, err = xdb.NewWithVectorIndex(xdb.IPv4, path, vIndex)
	case ModeMemory:
		var content []byte
		content, err = xdb.LoadContentFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load xdb content from %s: %w", path, err)
		}
		searcher, err = xdb.NewWithBuffer(xdb.IPv4, content)
	default:
		searcher, err = xdb.NewWithFileOnly(xdb.IPv4, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create xdb searcher for %s: %w", path, err)
	}

	return &IP2Region{searcher: searcher}, nil
}

// Lookup resolves an IP string to location info. Empty input fails
// cleanly; callers on the enrichment path go through LookupOrEmpty.
func (g *IP2Region) Lookup(ip string) (Info, error) {
	if strings.TrimSpace(ip) == "" {
		return Info{}, ErrInvalidIP
	}

	g.mu.Lock()
	region, err := g.searcher.Search(ip)
	g.mu.Unlock()
	if err != nil {
		return Info{}, fmt.Errorf("geoip lookup failed for %s: %w", ip, err)
	}

	return parseRegion(region), nil
}

// Close releases the searcher's file handle.
func (g *IP2Region) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.searcher.Close()
}

// parseRegion splits the xdb region string. The format is
// "country|region|province|city|isp" with "0" marking absent fields.
func parseRegion(region string) Info {
	parts := strings.Split(region, "|")
	field := func(i int) string {
		if i >= len(parts) || parts[i] == "0" {
			return ""
		}
		return parts[i]
	}

	return Info{
		Country:  field(0),
		Region:   field(1),
		Province: field(2),
		City:     field(3),
		ISP:      field(4),
	}
}
