package solver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dragonseats/optimizer/pkg/geo"
)

var (
	locCleveland = geo.LatLng{Lat: 41.4993, Lng: -81.6944, Label: "Cleveland Hub"}
	locBrowns    = geo.LatLng{Lat: 41.5061, Lng: -81.6995, Label: "Browns Stadium"}
	locAkron     = geo.LatLng{Lat: 41.0753, Lng: -81.5097, Label: "Akron Field"}
)

// ─── Fakes ──────────────────────────────────────────────────

type fakeCache struct {
	rows      []CachedDistance
	lookupErr error
	stored    [][]CachedDistance
}

func (f *fakeCache) Lookup(ctx context.Context) ([]CachedDistance, error) {
	return f.rows, f.lookupErr
}

func (f *fakeCache) Store(ctx context.Context, entries []CachedDistance) error {
	f.stored = append(f.stored, entries)
	return nil
}

type fakeProvider struct {
	enabled bool
	results []ProviderResult
	err     error
	calls   int
}

func (f *fakeProvider) Enabled() bool { return f.enabled }

func (f *fakeProvider) FetchBatch(ctx context.Context, origins, destinations []geo.LatLng) ([]ProviderResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

// ─── Matrix ─────────────────────────────────────────────────

func TestMatrix_Diagonal(t *testing.T) {
	m := NewMatrix([]geo.LatLng{locCleveland, locBrowns})
	assert.Equal(t, 2, m.Size())
	assert.Equal(t, 0.0, m.DistanceMiles(0, 0))
	assert.Equal(t, 0.0, m.DistanceMiles(1, 1))
	assert.Equal(t, 0.0, m.DurationMinutes(1, 1))
}

func TestMatrix_SetAndGet(t *testing.T) {
	m := NewMatrix([]geo.LatLng{locCleveland, locBrowns})
	m.Set(0, 1, DistanceEntry{DistanceMiles: 5.2, DurationMinutes: 12.0})

	got := m.Get(0, 1)
	assert.Equal(t, 5.2, got.DistanceMiles)
	assert.Equal(t, 12.0, got.DurationMinutes)
}

func TestMatrix_FallbackOnMissing(t *testing.T) {
	m := NewMatrix([]geo.LatLng{locCleveland, locAkron})
	// (0,1) never set — haversine road estimate applies.
	got := m.Get(0, 1)
	assert.Greater(t, got.DistanceMiles, 0.0)
	assert.Greater(t, got.DurationMinutes, 0.0)
	// Cleveland to Akron is ~31 straight-line miles; the road estimate
	// lands near 1.3x that (about 40).
	assert.InDelta(t, 45, got.DistanceMiles, 20)
}

func TestMatrix_LocationIndex(t *testing.T) {
	m := NewMatrix([]geo.LatLng{locCleveland, locBrowns, locAkron})

	idx, ok := m.LocationIndex(geo.LatLng{Lat: 41.5061, Lng: -81.6995})
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	// Within the 1e-6 identity tolerance.
	idx, ok = m.LocationIndex(geo.LatLng{Lat: 41.5061000004, Lng: -81.6995000004})
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = m.LocationIndex(geo.LatLng{Lat: 0, Lng: 0})
	assert.False(t, ok)
}

// ─── Builder ────────────────────────────────────────────────

func TestBuild_NoProviderEverywherePositive(t *testing.T) {
	b := NewMatrixBuilder(nil, nil, 0.001, 25, 0)
	locs := []geo.LatLng{locCleveland, locBrowns, locAkron}
	m := b.Build(context.Background(), locs)

	for i := 0; i < m.Size(); i++ {
		for j := 0; j < m.Size(); j++ {
			if i == j {
				continue
			}
			e := m.Get(i, j)
			assert.Greater(t, e.DistanceMiles, 0.0, "pair (%d,%d)", i, j)
			assert.Greater(t, e.DurationMinutes, 0.0, "pair (%d,%d)", i, j)
		}
	}
}

func TestBuild_CacheHit(t *testing.T) {
	cache := &fakeCache{rows: []CachedDistance{{
		OriginLat: 41.4993, OriginLng: -81.6944,
		DestLat: 41.5061, DestLng: -81.6995,
		DistanceMiles: 1.2, DurationMinutes: 4.0,
	}}}
	b := NewMatrixBuilder(cache, nil, 0.001, 25, 0)

	m := b.Build(context.Background(), []geo.LatLng{locCleveland, locBrowns})
	assert.Equal(t, 1.2, m.DistanceMiles(0, 1))
	assert.Equal(t, 4.0, m.DurationMinutes(0, 1))
	// Reverse direction was not cached — falls back to the estimate.
	assert.Greater(t, m.DistanceMiles(1, 0), 0.0)
}

func TestBuild_CacheToleranceMatch(t *testing.T) {
	// Cached endpoints are off by less than the 0.001 tolerance.
	cache := &fakeCache{rows: []CachedDistance{{
		OriginLat: 41.4998, OriginLng: -81.6940,
		DestLat: 41.5057, DestLng: -81.6991,
		DistanceMiles: 1.5, DurationMinutes: 5.0,
	}}}
	b := NewMatrixBuilder(cache, nil, 0.001, 25, 0)

	m := b.Build(context.Background(), []geo.LatLng{locCleveland, locBrowns})
	assert.Equal(t, 1.5, m.DistanceMiles(0, 1))
}

func TestBuild_ProviderFillsMissingPairs(t *testing.T) {
	cache := &fakeCache{}
	provider := &fakeProvider{
		enabled: true,
		results: []ProviderResult{
			{Origin: locCleveland, Destination: locBrowns, DistanceMiles: 1.4, DurationMinutes: 5.1},
			{Origin: locBrowns, Destination: locCleveland, DistanceMiles: 1.6, DurationMinutes: 5.4},
		},
	}
	b := NewMatrixBuilder(cache, provider, 0.001, 25, 0)

	m := b.Build(context.Background(), []geo.LatLng{locCleveland, locBrowns})
	assert.Equal(t, 1.4, m.DistanceMiles(0, 1))
	assert.Equal(t, 1.6, m.DistanceMiles(1, 0))
	assert.Equal(t, 1, provider.calls)
}

func TestBuild_ProviderFailureFallsThrough(t *testing.T) {
	provider := &fakeProvider{enabled: true, err: errors.New("quota exceeded")}
	b := NewMatrixBuilder(nil, provider, 0.001, 25, 0)

	m := b.Build(context.Background(), []geo.LatLng{locCleveland, locAkron})
	// The batch failed; haversine keeps the matrix total.
	assert.Greater(t, m.DistanceMiles(0, 1), 0.0)
	assert.Greater(t, m.DistanceMiles(1, 0), 0.0)
}

func TestBuild_SingleLocation(t *testing.T) {
	b := NewMatrixBuilder(nil, nil, 0.001, 25, 0)
	m := b.Build(context.Background(), []geo.LatLng{locCleveland})
	assert.Equal(t, 1, m.Size())
	assert.Equal(t, 0.0, m.DistanceMiles(0, 0))
}
