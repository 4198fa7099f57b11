package solver

import (
	"context"
	"log"
	"math"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/dragonseats/optimizer/pkg/geo"
)

// ─── Matrix ─────────────────────────────────────────────────

// DistanceEntry is the distance and duration between two points.
type DistanceEntry struct {
	DistanceMiles   float64
	DurationMinutes float64
}

// Matrix is an NxN distance/duration table for a list of locations.
//
// Get never fails: the diagonal is (0,0) and any pair that was neither
// cached nor fetched falls back to a haversine road estimate.
type Matrix struct {
	locations []geo.LatLng
	entries   [][]*DistanceEntry
}

// NewMatrix creates a matrix with zeros on the diagonal and every
// other pair unset.
func NewMatrix(locations []geo.LatLng) *Matrix {
	n := len(locations)
	entries := make([][]*DistanceEntry, n)
	for i := range entries {
		entries[i] = make([]*DistanceEntry, n)
		entries[i][i] = &DistanceEntry{}
	}
	return &Matrix{locations: locations, entries: entries}
}

// Size returns the number of locations.
func (m *Matrix) Size() int { return len(m.locations) }

// Locations returns the location list backing the matrix.
func (m *Matrix) Locations() []geo.LatLng { return m.locations }

// Get returns the entry for (i, j), estimating with haversine when the
// pair was never set.
func (m *Matrix) Get(i, j int) DistanceEntry {
	if e := m.entries[i][j]; e != nil {
		return *e
	}
	return haversineEstimate(m.locations[i], m.locations[j])
}

// Set stores the entry for (i, j).
func (m *Matrix) Set(i, j int, e DistanceEntry) {
	m.entries[i][j] = &e
}

// DistanceMiles returns road miles between locations i and j.
func (m *Matrix) DistanceMiles(i, j int) float64 {
	return m.Get(i, j).DistanceMiles
}

// DurationMinutes returns drive minutes between locations i and j.
func (m *Matrix) DurationMinutes(i, j int) float64 {
	return m.Get(i, j).DurationMinutes
}

// LocationIndex finds the index of a location by tolerant equality.
func (m *Matrix) LocationIndex(loc geo.LatLng) (int, bool) {
	for i, l := range m.locations {
		if l.Equal(loc) {
			return i, true
		}
	}
	return 0, false
}

func haversineEstimate(a, b geo.LatLng) DistanceEntry {
	miles, minutes := geo.RoadEstimate(a, b)
	return DistanceEntry{DistanceMiles: miles, DurationMinutes: minutes}
}

// ─── External collaborators ─────────────────────────────────

// CachedDistance is one row of the persistent cross-run distance cache.
type CachedDistance struct {
	OriginLat       float64 `json:"origin_lat"`
	OriginLng       float64 `json:"origin_lng"`
	DestLat         float64 `json:"dest_lat"`
	DestLng         float64 `json:"dest_lng"`
	DistanceMiles   float64 `json:"distance_miles"`
	DurationMinutes float64 `json:"duration_minutes"`
}

// DistanceCache reads and writes the persistent distance cache.
type DistanceCache interface {
	Lookup(ctx context.Context) ([]CachedDistance, error)
	Store(ctx context.Context, entries []CachedDistance) error
}

// ProviderResult is one origin/destination pair answered by the
// external driving-distance provider.
type ProviderResult struct {
	Origin          geo.LatLng
	Destination     geo.LatLng
	DistanceMiles   float64
	DurationMinutes float64
}

// DistanceProvider queries the external driving-distance service for
// a batch of origins × destinations.
type DistanceProvider interface {
	Enabled() bool
	FetchBatch(ctx context.Context, origins, destinations []geo.LatLng) ([]ProviderResult, error)
}

// ─── Builder ────────────────────────────────────────────────

// MatrixBuilder assembles a complete distance matrix from the cache,
// the external provider, and the haversine fallback, in that priority
// order. Cache and Provider may be nil.
type MatrixBuilder struct {
	Cache     DistanceCache
	Provider  DistanceProvider
	Tolerance float64 // cache coordinate match tolerance per axis
	BatchSize int     // provider batch limit per side (25 × 25)
	Limiter   *rate.Limiter
}

// NewMatrixBuilder creates a builder with the given rate-limit delay
// between provider batches.
func NewMatrixBuilder(cache DistanceCache, provider DistanceProvider, tolerance float64, batchSize int, rateDelay time.Duration) *MatrixBuilder {
	if rateDelay <= 0 {
		rateDelay = time.Millisecond
	}
	return &MatrixBuilder{
		Cache:     cache,
		Provider:  provider,
		Tolerance: tolerance,
		BatchSize: batchSize,
		Limiter:   rate.NewLimiter(rate.Every(rateDelay), 1),
	}
}

// Build produces the complete NxN matrix for the given locations.
//
// Strategy:
//  1. Load the distance cache and match rows against our locations
//  2. Identify pairs still missing
//  3. Fetch missing pairs from the provider in rate-limited batches
//  4. Write newly obtained entries back to the cache asynchronously
//  5. Fill remaining gaps with haversine estimates (Get's fallback)
//
// Provider and cache failures are never fatal — affected pairs fall
// through to the haversine estimate.
func (b *MatrixBuilder) Build(ctx context.Context, locations []geo.LatLng) *Matrix {
	matrix := NewMatrix(locations)
	n := len(locations)
	if n <= 1 {
		return matrix
	}

	b.applyCache(ctx, matrix)

	missing := missingPairs(matrix)
	if len(missing) == 0 {
		return matrix
	}

	results := b.fetchMissing(ctx, matrix, missing)
	if len(results) > 0 {
		newEntries := make([]CachedDistance, 0, len(results))
		for _, res := range results {
			i, iok := matrix.LocationIndex(res.Origin)
			j, jok := matrix.LocationIndex(res.Destination)
			if !iok || !jok {
				continue
			}
			matrix.Set(i, j, DistanceEntry{
				DistanceMiles:   res.DistanceMiles,
				DurationMinutes: res.DurationMinutes,
			})
			newEntries = append(newEntries, CachedDistance{
				OriginLat:       res.Origin.Lat,
				OriginLng:       res.Origin.Lng,
				DestLat:         res.Destination.Lat,
				DestLng:         res.Destination.Lng,
				DistanceMiles:   res.DistanceMiles,
				DurationMinutes: res.DurationMinutes,
			})
		}
		b.storeAsync(newEntries)
	}

	return matrix
}

// applyCache loads the persistent cache and fills every pair whose
// endpoints match a cached row within the tolerance.
func (b *MatrixBuilder) applyCache(ctx context.Context, matrix *Matrix) {
	if b.Cache == nil {
		return
	}
	rows, err := b.Cache.Lookup(ctx)
	if err != nil {
		log.Printf("[matrix] cache lookup failed: %v", err)
		return
	}

	tol := b.Tolerance
	locations := matrix.Locations()
	for _, row := range rows {
		for i, a := range locations {
			if math.Abs(a.Lat-row.OriginLat) > tol || math.Abs(a.Lng-row.OriginLng) > tol {
				continue
			}
			for j, c := range locations {
				if i == j {
					continue
				}
				if math.Abs(c.Lat-row.DestLat) > tol || math.Abs(c.Lng-row.DestLng) > tol {
					continue
				}
				matrix.Set(i, j, DistanceEntry{
					DistanceMiles:   row.DistanceMiles,
					DurationMinutes: row.DurationMinutes,
				})
			}
		}
	}
}

// fetchMissing batch-queries the provider for the unique origins ×
// destinations still missing. Any batch failure is swallowed — those
// pairs stay on the haversine fallback.
func (b *MatrixBuilder) fetchMissing(ctx context.Context, matrix *Matrix, missing [][2]int) []ProviderResult {
	if b.Provider == nil || !b.Provider.Enabled() {
		return nil
	}

	origins := uniqueSide(matrix, missing, 0)
	dests := uniqueSide(matrix, missing, 1)

	var results []ProviderResult
	for oStart := 0; oStart < len(origins); oStart += b.BatchSize {
		oBatch := origins[oStart:minInt(oStart+b.BatchSize, len(origins))]
		for dStart := 0; dStart < len(dests); dStart += b.BatchSize {
			dBatch := dests[dStart:minInt(dStart+b.BatchSize, len(dests))]

			if b.Limiter != nil {
				if err := b.Limiter.Wait(ctx); err != nil {
					return results
				}
			}

			batch, err := b.Provider.FetchBatch(ctx, oBatch, dBatch)
			if err != nil {
				log.Printf("[matrix] provider batch failed (%dx%d): %v", len(oBatch), len(dBatch), err)
				continue
			}
			results = append(results, batch...)
		}
	}
	return results
}

// storeAsync writes newly obtained entries back to the cache in the
// background; failures are non-fatal.
func (b *MatrixBuilder) storeAsync(entries []CachedDistance) {
	if b.Cache == nil || len(entries) == 0 {
		return
	}
	go func() {
		if err := b.Cache.Store(context.Background(), entries); err != nil {
			log.Printf("[matrix] cache store failed: %v", err)
		}
	}()
}

func missingPairs(matrix *Matrix) [][2]int {
	var missing [][2]int
	n := matrix.Size()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j && matrix.entries[i][j] == nil {
				missing = append(missing, [2]int{i, j})
			}
		}
	}
	return missing
}

// uniqueSide collects the unique locations on one side (0 = origin,
// 1 = destination) of the missing pairs, in index order.
func uniqueSide(matrix *Matrix, missing [][2]int, side int) []geo.LatLng {
	seen := make(map[int]bool)
	var idx []int
	for _, pair := range missing {
		if !seen[pair[side]] {
			seen[pair[side]] = true
			idx = append(idx, pair[side])
		}
	}
	sort.Ints(idx)
	out := make([]geo.LatLng, 0, len(idx))
	for _, i := range idx {
		out = append(out, matrix.locations[i])
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
