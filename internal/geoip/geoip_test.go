package geoip

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shorturl-backend/internal/config"
)

type failingGeoIP struct{}

func (failingGeoIP) Lookup(_ string) (Info, error) {
	return Info{}, errors.New("database corrupted")
}

func TestNull(t *testing.T) {
	g := NewNull()

	info, err := g.Lookup("8.8.8.8")
	require.NoError(t, err)
	assert.True(t, info.IsEmpty())
}

func TestLookupOrEmpty(t *testing.T) {
	log := zap.NewNop()

	t.Run("failure_becomes_empty_info", func(t *testing.T) {
		info := LookupOrEmpty(failingGeoIP{}, log, "8.8.8.8")
		assert.True(t, info.IsEmpty())
	})

	t.Run("success_passes_through", func(t *testing.T) {
		g := stubGeoIP{info: Info{Country: "United States", ISP: "Google"}}
		info := LookupOrEmpty(g, log, "8.8.8.8")
		assert.Equal(t, "United States", info.Country)
		assert.Equal(t, "Google", info.ISP)
		assert.False(t, info.IsEmpty())
	})
}

type stubGeoIP struct {
	info Info
}

func (s stubGeoIP) Lookup(_ string) (Info, error) {
	return s.info, nil
}

func TestNewIP2Region(t *testing.T) {
	t.Run("missing_database_file_fails", func(t *testing.T) {
		_, err := NewIP2Region("testdata/does-not-exist.xdb", "vector")
		assert.Error(t, err)
	})
}

// overlapSearcher flags any two Search calls running at once.
// The xdb searcher seeks and reads one shared file handle, so
// overlapping calls would corrupt each other's reads.
type overlapSearcher struct {
	inFlight    atomic.Int32
	overlapped  atomic.Bool
	searchCount atomic.Int32
}

func (s *overlapSearcher) Search(_ any) (string, error) {
	if s.inFlight.Add(1) > 1 {
		s.overlapped.Store(true)
	}
	time.Sleep(time.Millisecond)
	s.inFlight.Add(-1)
	s.searchCount.Add(1)
	return "China|0|Guangdong|Shenzhen|Telecom", nil
}

func (s *overlapSearcher) Close() {}

func TestIP2RegionSerializesLookups(t *testing.T) {
	searcher := &overlapSearcher{}
	g := &IP2Region{searcher: searcher}

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			info, err := g.Lookup("8.8.8.8")
			assert.NoError(t, err)
			assert.Equal(t, "China", info.Country)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, workers, searcher.searchCount.Load())
	assert.False(t, searcher.overlapped.Load(), "searcher must never be entered concurrently")
}

func TestNew(t *testing.T) {
	log := zap.NewNop()

	t.Run("disabled_yields_null_backend", func(t *testing.T) {
		g := New(&config.GeoIP{Enabled: false}, log)
		assert.IsType(t, &Null{}, g)
	})

	t.Run("missing_database_falls_back_to_null_backend", func(t *testing.T) {
		cfg := &config.GeoIP{
			Enabled: true,
			Path:    "testdata/does-not-exist.xdb",
			Mode:    "vector",
		}

		g := New(cfg, log)
		assert.IsType(t, &Null{}, g)

		info, err := g.Lookup("8.8.8.8")
		require.NoError(t, err)
		assert.True(t, info.IsEmpty())
	})
}

func TestParseRegion(t *testing.T) {
	tests := []struct {
		name   string
		region string
		want   Info
	}{
		{
			name:   "full_record",
			region: "China|0|Guangdong|Shenzhen|Telecom",
			want:   Info{Country: "China", Province: "Guangdong", City: "Shenzhen", ISP: "Telecom"},
		},
		{
			name:   "zero_fields_are_absent",
			region: "0|0|0|0|0",
			want:   Info{},
		},
		{
			name:   "short_record",
			region: "Australia",
			want:   Info{Country: "Australia"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseRegion(tt.region))
		})
	}
}
