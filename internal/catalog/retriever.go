// Package catalog adapts the Elasticsearch item and store indices to the
// retrieval contract used by the search and cart workers.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	apperrors "commerce-search-workers/internal/common/errors"
	"commerce-search-workers/internal/common/logger"
	"commerce-search-workers/internal/common/metrics"
	"commerce-search-workers/internal/models"
)

const (
	DefaultSize = 20
	MaxSize     = 100

	currentLocation = "current location"
)

// Retrieval is the contract consumers depend on.
type Retrieval interface {
	Search(ctx context.Context, text string, filters models.SearchFilters) ([]models.Candidate, error)
	FindStoreByName(ctx context.Context, name, moduleID string) (*models.StoreRef, error)
}

type Config struct {
	ItemIndex  string
	StoreIndex string
}

type Retriever struct {
	client *elasticsearch.Client
	config Config
	logger logger.Logger
}

func NewRetriever(client *elasticsearch.Client, cfg Config, log logger.Logger) *Retriever {
	if cfg.ItemIndex == "" {
		cfg.ItemIndex = "items"
	}
	if cfg.StoreIndex == "" {
		cfg.StoreIndex = "stores"
	}
	return &Retriever{
		client: client,
		config: cfg,
		logger: log.WithFields(map[string]interface{}{"component": "catalog"}),
	}
}

type searchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Hits []struct {
			ID     string          `json:"_id"`
			Score  *float64        `json:"_score"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type geoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type itemDocument struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	StoreID    string     `json:"store_id"`
	StoreName  string     `json:"store_name"`
	CategoryID string     `json:"category_id"`
	Price      float64    `json:"price"`
	Rating     *float64   `json:"avg_rating"`
	OrderCount *int64     `json:"order_count"`
	CreatedAt  *time.Time `json:"created_at"`
	Location   *geoPoint  `json:"location"`
}

type storeDocument struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Search returns up to filters.Size candidates in index score order. A blank
// query returns an empty result without calling the index.
func (r *Retriever) Search(ctx context.Context, text string, filters models.SearchFilters) ([]models.Candidate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []models.Candidate{}, nil
	}

	size := filters.Size
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}

	res, err := r.search(ctx, r.config.ItemIndex, BuildItemQuery(text, filters), size)
	if err != nil {
		return nil, err
	}

	candidates := make([]models.Candidate, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var doc itemDocument
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			r.logger.Warn("skipping malformed item document", map[string]interface{}{"id": hit.ID, "error": err})
			continue
		}

		c := models.Candidate{
			ID:         doc.ID,
			Name:       doc.Name,
			TextScore:  hit.Score,
			StoreID:    doc.StoreID,
			StoreName:  doc.StoreName,
			Rating:     doc.Rating,
			OrderCount: doc.OrderCount,
			CreatedAt:  doc.CreatedAt,
			CategoryID: doc.CategoryID,
			Price:      doc.Price,
		}
		if c.ID == "" {
			c.ID = hit.ID
		}
		if doc.Location != nil {
			lat, lon := doc.Location.Lat, doc.Location.Lon
			c.Lat, c.Lon = &lat, &lon
		}
		candidates = append(candidates, c)
	}

	return candidates, nil
}

// FindStoreByName resolves a spoken store name to its id. It returns nil
// without error when nothing matches.
func (r *Retriever) FindStoreByName(ctx context.Context, name, moduleID string) (*models.StoreRef, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	res, err := r.search(ctx, r.config.StoreIndex, BuildStoreQuery(name, moduleID), 1)
	if err != nil {
		return nil, err
	}
	if len(res.Hits.Hits) == 0 {
		return nil, nil
	}

	hit := res.Hits.Hits[0]
	var doc storeDocument
	if err := json.Unmarshal(hit.Source, &doc); err != nil {
		return nil, apperrors.NewSearchQueryFailedError(r.config.StoreIndex, err)
	}
	if doc.ID == "" {
		doc.ID = hit.ID
	}
	return &models.StoreRef{StoreID: doc.ID, StoreName: doc.Name}, nil
}

func (r *Retriever) search(ctx context.Context, index string, query map[string]interface{}, size int) (*searchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, apperrors.NewSearchQueryFailedError(index, err)
	}

	req := esapi.SearchRequest{
		Index: []string{index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}

	start := time.Now()
	status := "ok"
	defer func() {
		metrics.CatalogSearchDuration.WithLabelValues(index, status).Observe(time.Since(start).Seconds())
	}()

	res, err := req.Do(ctx, r.client)
	if err != nil {
		status = "error"
		if ctx.Err() == context.DeadlineExceeded {
			return nil, apperrors.NewSearchTimeoutError(index)
		}
		return nil, apperrors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		status = "error"
		return nil, apperrors.NewIndexNotFoundError(index)
	}
	if res.IsError() {
		status = "error"
		return nil, apperrors.NewSearchQueryFailedError(index, fmt.Errorf("status %s", res.Status()))
	}

	var out searchResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		status = "error"
		return nil, apperrors.NewSearchQueryFailedError(index, err)
	}

	r.logger.Debug("catalog search", map[string]interface{}{
		"index": index,
		"hits":  len(out.Hits.Hits),
		"took":  out.Took,
	})
	return &out, nil
}

func formatKm(km float64) string {
	return strconv.FormatFloat(km, 'f', -1, 64) + "km"
}
