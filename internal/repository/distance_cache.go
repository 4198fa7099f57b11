package repository

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dragonseats/optimizer/internal/solver"
)

const (
	distanceCacheSnapshotKey = "optimizer:distance_cache"
	distanceCacheSnapshotTTL = 10 * time.Minute
)

// DistanceCacheRepository persists distance pairs in the store's
// distance_cache table, with an optional Redis hot layer in front:
// the full-table read is the expensive call per request, so a short-
// lived snapshot of it is kept in Redis and invalidated on writes.
// Rows are immutable content (same key → same value within tolerance),
// so last-write-wins is safe.
type DistanceCacheRepository struct {
	store *StoreClient
	redis *redis.Client // nil disables the hot layer
}

// NewDistanceCacheRepository creates the cache repository. redisClient
// may be nil.
func NewDistanceCacheRepository(store *StoreClient, redisClient *redis.Client) *DistanceCacheRepository {
	return &DistanceCacheRepository{store: store, redis: redisClient}
}

// Lookup returns all cached distance rows, serving from the Redis
// snapshot when it is fresh.
func (r *DistanceCacheRepository) Lookup(ctx context.Context) ([]solver.CachedDistance, error) {
	if r.redis != nil {
		if raw, err := r.redis.Get(ctx, distanceCacheSnapshotKey).Bytes(); err == nil {
			var rows []solver.CachedDistance
			if err := json.Unmarshal(raw, &rows); err == nil {
				return rows, nil
			}
		}
	}

	tableRows, err := r.store.Get(ctx, "distance_cache", url.Values{
		"select": {"origin_lat,origin_lng,dest_lat,dest_lng,distance_miles,duration_minutes"},
	})
	if err != nil {
		return nil, err
	}

	rows := make([]solver.CachedDistance, 0, len(tableRows))
	for _, row := range tableRows {
		rows = append(rows, solver.CachedDistance{
			OriginLat:       rowFloat(row, "origin_lat"),
			OriginLng:       rowFloat(row, "origin_lng"),
			DestLat:         rowFloat(row, "dest_lat"),
			DestLng:         rowFloat(row, "dest_lng"),
			DistanceMiles:   rowFloat(row, "distance_miles"),
			DurationMinutes: rowFloat(row, "duration_minutes"),
		})
	}

	if r.redis != nil && len(rows) > 0 {
		if raw, err := json.Marshal(rows); err == nil {
			if err := r.redis.Set(ctx, distanceCacheSnapshotKey, raw, distanceCacheSnapshotTTL).Err(); err != nil {
				log.Printf("[cache] snapshot write failed: %v", err)
			}
		}
	}

	return rows, nil
}

// Store inserts newly obtained distance rows and invalidates the
// snapshot so the next lookup sees them.
func (r *DistanceCacheRepository) Store(ctx context.Context, entries []solver.CachedDistance) error {
	if len(entries) == 0 {
		return nil
	}
	if _, err := r.store.Post(ctx, "distance_cache", entries); err != nil {
		return err
	}
	if r.redis != nil {
		if err := r.redis.Del(ctx, distanceCacheSnapshotKey).Err(); err != nil {
			log.Printf("[cache] snapshot invalidation failed: %v", err)
		}
	}
	return nil
}
