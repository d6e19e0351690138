// internal/workers/search/rerank-results/reranker.go
package rerankresults

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"commerce-search-workers/internal/common/logger"
	"commerce-search-workers/internal/common/metrics"
	"commerce-search-workers/internal/common/observability"
	"commerce-search-workers/internal/models"
)

const (
	DefaultMaxPerStore    = 3
	DefaultMaxPerCategory = 5
	DefaultMaxResults     = 20
)

// EngagementSource serves click analytics keyed by candidate id.
type EngagementSource interface {
	BatchLookup(ctx context.Context, ids []string) (map[string]models.Engagement, error)
}

type RerankRequest struct {
	Candidates []models.Candidate
	Query      string
	Filters    map[string]interface{}
	UserID     string
	Location   *models.GeoPoint
}

// Reranker blends retrieval score with engagement and catalog signals. It
// holds no per-request state.
type Reranker struct {
	scoring    ScoringConfig
	engagement EngagementSource
	logger     logger.Logger
	now        func() time.Time
}

// NewReranker builds a reranker. engagement may be nil, in which case every
// candidate gets the default CTR.
func NewReranker(scoring ScoringConfig, engagement EngagementSource, log logger.Logger) *Reranker {
	return &Reranker{
		scoring:    scoring,
		engagement: engagement,
		logger:     log,
		now:        time.Now,
	}
}

// Rerank scores every candidate and returns them sorted by final score,
// highest first. Candidates with equal scores keep their retrieval order.
func (r *Reranker) Rerank(ctx context.Context, req RerankRequest) []models.ScoredCandidate {
	if len(req.Candidates) == 0 {
		return []models.ScoredCandidate{}
	}

	ctx, span := observability.StartSpan(ctx, "rerank",
		attribute.Int("candidates", len(req.Candidates)),
		attribute.Bool("hasLocation", req.Location != nil),
	)
	defer observability.EndSpan(span, nil)

	start := time.Now()
	defer func() { metrics.RerankDuration.Observe(time.Since(start).Seconds()) }()

	ctrs := r.lookupCTR(ctx, req.Candidates)
	now := r.now()

	scored := make([]models.ScoredCandidate, len(req.Candidates))
	for i, c := range req.Candidates {
		ctr, ok := ctrs[c.ID]
		if !ok {
			ctr = r.scoring.Defaults.CTR
		}
		scored[i] = r.scoring.score(c, ctr, req.Location, now)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].FinalScore > scored[j].FinalScore
	})

	r.logger.Debug("candidates reranked", map[string]interface{}{
		"query":      req.Query,
		"userId":     req.UserID,
		"count":      len(scored),
		"topScore":   scored[0].FinalScore,
		"durationMs": time.Since(start).Milliseconds(),
	})

	return scored
}

// lookupCTR makes the single batched analytics call for a rerank. Any error
// or timeout yields an empty map so that defaults apply.
func (r *Reranker) lookupCTR(ctx context.Context, candidates []models.Candidate) map[string]float64 {
	out := make(map[string]float64)
	if r.engagement == nil {
		metrics.CTRLookups.WithLabelValues("skipped").Inc()
		return out
	}

	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.scoring.CTRTimeout)
	defer cancel()

	rows, err := r.engagement.BatchLookup(lookupCtx, ids)
	if err != nil {
		metrics.CTRLookups.WithLabelValues("fallback").Inc()
		r.logger.Warn("ctr lookup failed, using defaults", map[string]interface{}{
			"error":      err,
			"candidates": len(ids),
		})
		return out
	}

	metrics.CTRLookups.WithLabelValues("ok").Inc()
	for id, e := range rows {
		out[id] = e.CTR
	}
	return out
}

// Diversify applies the store and category caps with this reranker's
// configured result limit.
func (r *Reranker) Diversify(scored []models.ScoredCandidate, maxPerStore, maxPerCategory int) []models.ScoredCandidate {
	return diversify(scored, maxPerStore, maxPerCategory, r.scoring.MaxResults)
}

// Diversify walks an already sorted list and admits a candidate only while
// its store and category are under their caps, stopping at 20 admitted.
// Non-positive caps fall back to 3 per store and 5 per category. Candidates
// without a store or category id are not capped on that dimension.
func Diversify(scored []models.ScoredCandidate, maxPerStore, maxPerCategory int) []models.ScoredCandidate {
	return diversify(scored, maxPerStore, maxPerCategory, DefaultMaxResults)
}

func diversify(scored []models.ScoredCandidate, maxPerStore, maxPerCategory, limit int) []models.ScoredCandidate {
	if maxPerStore <= 0 {
		maxPerStore = DefaultMaxPerStore
	}
	if maxPerCategory <= 0 {
		maxPerCategory = DefaultMaxPerCategory
	}
	if limit <= 0 {
		limit = DefaultMaxResults
	}

	perStore := make(map[string]int)
	perCategory := make(map[string]int)
	out := make([]models.ScoredCandidate, 0, min(len(scored), limit))

	for _, sc := range scored {
		if len(out) >= limit {
			break
		}
		if sc.StoreID != "" && perStore[sc.StoreID] >= maxPerStore {
			continue
		}
		if sc.CategoryID != "" && perCategory[sc.CategoryID] >= maxPerCategory {
			continue
		}
		if sc.StoreID != "" {
			perStore[sc.StoreID]++
		}
		if sc.CategoryID != "" {
			perCategory[sc.CategoryID]++
		}
		out = append(out, sc)
	}

	return out
}
