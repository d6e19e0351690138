// Package analytics serves per-item engagement signals (CTR, CVR, views)
// from a Redis cache backed by the PostgreSQL engagement table.
package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	apperrors "commerce-search-workers/internal/common/errors"
	"commerce-search-workers/internal/common/logger"
	"commerce-search-workers/internal/common/metrics"
	"commerce-search-workers/internal/models"
)

const (
	keyPrefix = "engagement:item:"

	batchQuery = `SELECT item_id, ctr, cvr, views FROM item_engagement WHERE item_id = ANY($1)`
)

// Lookup implements batched engagement lookups. db may be nil, in which case
// only the cache is consulted.
type Lookup struct {
	redis  *redis.Client
	db     *sql.DB
	ttl    time.Duration
	logger logger.Logger
}

func NewLookup(redisClient *redis.Client, db *sql.DB, ttl time.Duration, log logger.Logger) *Lookup {
	return &Lookup{
		redis:  redisClient,
		db:     db,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "analytics"}),
	}
}

func cacheKey(id string) string {
	return keyPrefix + id
}

// BatchLookup returns engagement rows keyed by item id. Ids without data are
// absent from the map. One MGET serves the cache; misses go to PostgreSQL in
// one query and are written back with the configured TTL. An error is
// returned only when no backend could be consulted.
func (l *Lookup) BatchLookup(ctx context.Context, ids []string) (map[string]models.Engagement, error) {
	ids = dedupe(ids)
	result := make(map[string]models.Engagement, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	misses, cacheErr := l.fromCache(ctx, ids, result)
	if cacheErr != nil {
		l.logger.Warn("engagement cache unavailable", map[string]interface{}{"error": cacheErr})
		misses = ids
	}
	if len(misses) == 0 {
		return result, nil
	}

	if l.db == nil {
		if cacheErr != nil {
			return nil, apperrors.NewAnalyticsUnavailableError(cacheErr)
		}
		return result, nil
	}

	fetched, err := l.fromDatabase(ctx, misses)
	if err != nil {
		if cacheErr != nil {
			return nil, apperrors.NewAnalyticsUnavailableError(err)
		}
		l.logger.Warn("engagement database query failed, serving cache hits only", map[string]interface{}{
			"error":  err,
			"misses": len(misses),
		})
		return result, nil
	}

	for id, e := range fetched {
		result[id] = e
	}

	if cacheErr == nil && len(fetched) > 0 {
		l.fill(ctx, fetched)
	}

	return result, nil
}

func (l *Lookup) fromCache(ctx context.Context, ids []string, into map[string]models.Engagement) ([]string, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cacheKey(id)
	}

	vals, err := l.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var misses []string
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			misses = append(misses, ids[i])
			continue
		}
		var e models.Engagement
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			misses = append(misses, ids[i])
			continue
		}
		into[ids[i]] = e
	}

	metrics.AnalyticsCacheResults.WithLabelValues("hit").Add(float64(len(ids) - len(misses)))
	metrics.AnalyticsCacheResults.WithLabelValues("miss").Add(float64(len(misses)))
	return misses, nil
}

func (l *Lookup) fromDatabase(ctx context.Context, ids []string) (map[string]models.Engagement, error) {
	rows, err := l.db.QueryContext(ctx, batchQuery, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query engagement: %w", err)
	}
	defer rows.Close()

	out := make(map[string]models.Engagement, len(ids))
	for rows.Next() {
		var (
			id string
			e  models.Engagement
		)
		if err := rows.Scan(&id, &e.CTR, &e.CVR, &e.Views); err != nil {
			return nil, fmt.Errorf("scan engagement: %w", err)
		}
		out[id] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate engagement: %w", err)
	}
	return out, nil
}

func (l *Lookup) fill(ctx context.Context, rows map[string]models.Engagement) {
	pipe := l.redis.Pipeline()
	for id, e := range rows {
		data, err := json.Marshal(e)
		if err != nil {
			continue
		}
		pipe.Set(ctx, cacheKey(id), data, l.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Warn("engagement cache fill failed", map[string]interface{}{"error": err})
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
