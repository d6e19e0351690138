// test/e2e/pipeline_test.go
package e2e

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce-search-workers/internal/analytics"
	"commerce-search-workers/internal/catalog"
	"commerce-search-workers/internal/common/config"
	"commerce-search-workers/internal/common/database"
	"commerce-search-workers/internal/common/logger"
	"commerce-search-workers/internal/models"
	buildcart "commerce-search-workers/internal/workers/cart/build-cart"
	commercesearch "commerce-search-workers/internal/workers/search/commerce-search"
	rerankresults "commerce-search-workers/internal/workers/search/rerank-results"
)

// ==========================================
// Fake catalog cluster
// ==========================================

// catalogCluster routes _search requests by index and by a substring of the
// request body, standing in for an Elasticsearch node.
type catalogCluster struct {
	mu     sync.Mutex
	items  map[string]string
	stores string
	bodies []string
}

const noHits = `{"hits":{"hits":[]}}`

func (c *catalogCluster) RoundTrip(req *http.Request) (*http.Response, error) {
	var body string
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		body = string(raw)
	}

	c.mu.Lock()
	c.bodies = append(c.bodies, body)
	c.mu.Unlock()

	resp := noHits
	switch {
	case strings.HasPrefix(req.URL.Path, "/stores/"):
		if c.stores != "" {
			resp = c.stores
		}
	case strings.HasPrefix(req.URL.Path, "/items/"):
		for needle, hits := range c.items {
			if strings.Contains(body, needle) {
				resp = hits
				break
			}
		}
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("X-Elastic-Product", "Elasticsearch")
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(resp)),
		Request:    req,
	}, nil
}

func newRetriever(t *testing.T, cluster *catalogCluster) *catalog.Retriever {
	t.Helper()
	es, err := database.NewElasticsearch(config.ElasticsearchConfig{URL: "http://catalog.e2e:9200"}, cluster)
	require.NoError(t, err)
	return catalog.NewRetriever(es.Client, catalog.Config{ItemIndex: "items", StoreIndex: "stores"}, logger.NewTestLogger(t))
}

const biryaniHits = `{"hits":{"hits":[
  {"_id":"b1","_score":8.0,"_source":{"id":"b1","name":"Hyderabadi Veg Biryani","store_id":"s1","category_id":"biryani","price":180,"avg_rating":4.5,"order_count":900}},
  {"_id":"b2","_score":7.0,"_source":{"id":"b2","name":"Veg Dum Biryani","store_id":"s1","category_id":"biryani","price":160}},
  {"_id":"b3","_score":6.5,"_source":{"id":"b3","name":"Mushroom Biryani","store_id":"s2","category_id":"biryani","price":150,"location":{"lat":12.935,"lon":77.624}}}
]}}`

// ==========================================
// Search pipeline
// ==========================================

func TestSearchPipeline_EndToEnd(t *testing.T) {
	cluster := &catalogCluster{items: map[string]string{"biryani": biryaniHits}}
	retriever := newRetriever(t, cluster)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	require.NoError(t, mr.Set("engagement:item:b3", `{"ctr":0.3,"cvr":0.05,"views":4000}`))

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery(regexp.QuoteMeta("FROM item_engagement")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"item_id", "ctr", "cvr", "views"}).AddRow("b1", 0.02, 0.01, 300))

	lookup := analytics.NewLookup(rdb, db, 10*time.Minute, logger.NewTestLogger(t))

	cfg := commercesearch.LoadConfig()
	cfg.Scoring.CTRTimeout = time.Second
	h := commercesearch.NewHandler(cfg, retriever, lookup, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &commercesearch.Input{
		Text:     "show me veg biryani under 200 rupees",
		Location: &models.GeoPoint{Lat: 12.934, Lon: 77.626},
	})
	require.NoError(t, err)

	assert.Equal(t, "biryani", out.Interpretation.ResidualQueryText)
	assert.Equal(t, "Searching for 'biryani' under ₹200 (veg)", out.Message)
	assert.Equal(t, 3, out.TotalCandidates)
	require.Len(t, out.Results, 3)
	for i := 1; i < len(out.Results); i++ {
		assert.GreaterOrEqual(t, out.Results[i-1].FinalScore, out.Results[i].FinalScore)
	}

	require.Len(t, cluster.bodies, 1)
	assert.Contains(t, cluster.bodies[0], `"lte":200`, "price filter reaches the index")

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.True(t, mr.Exists("engagement:item:b1"), "database rows are written back to the cache")
}

func TestSearchPipeline_AnalyticsDown(t *testing.T) {
	cluster := &catalogCluster{items: map[string]string{"biryani": biryaniHits}}
	retriever := newRetriever(t, cluster)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })
	mr.Close()

	lookup := analytics.NewLookup(rdb, nil, time.Minute, logger.NewTestLogger(t))
	baseline := rerankresults.NewReranker(rerankresults.DefaultScoringConfig(), nil, logger.NewTestLogger(t))

	cfg := commercesearch.LoadConfig()
	h := commercesearch.NewHandler(cfg, retriever, lookup, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &commercesearch.Input{Text: "biryani"})
	require.NoError(t, err)
	require.Len(t, out.Results, 3)

	candidates, err := retriever.Search(context.Background(), "biryani", models.SearchFilters{})
	require.NoError(t, err)
	want := baseline.Rerank(context.Background(), rerankresults.RerankRequest{Candidates: candidates})

	for i := range want {
		assert.Equal(t, want[i].ID, out.Results[i].ID)
		assert.InDelta(t, want[i].FinalScore, out.Results[i].FinalScore, 1e-9)
	}
}

// ==========================================
// Cart assembly
// ==========================================

func TestCartAssembly_EndToEnd(t *testing.T) {
	cluster := &catalogCluster{
		stores: `{"hits":{"hits":[{"_id":"store-1","_score":4.1,"_source":{"id":"store-1","name":"Fresh Mart"}}]}}`,
		items: map[string]string{
			"coke": `{"hits":{"hits":[
			  {"_id":"p1","_score":5,"_source":{"id":"p1","name":"Diet Coke 500ml","store_id":"store-1","price":45}},
			  {"_id":"p2","_score":3,"_source":{"id":"p2","name":"Sprite 500ml","store_id":"store-1","price":40}}
			]}}`,
			"basmati": `{"hits":{"hits":[
			  {"_id":"p7","_score":6,"_source":{"id":"p7","name":"India Gate Basmati Rice 1kg","store_id":"store-1","price":120}}
			]}}`,
		},
	}
	retriever := newRetriever(t, cluster)

	cfg := buildcart.LoadConfig()
	h, err := buildcart.NewHandler(cfg, retriever, logger.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(h.Close)

	out, err := h.Execute(context.Background(), &buildcart.Input{
		Items: []models.NERCartItem{
			{ItemName: "coke", Quantity: 2},
			{ItemName: "basmati rice", Quantity: 1},
			{ItemName: "unicorn", Quantity: 1},
		},
		StoreName: "fresh mart",
	})
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.Equal(t, "store-1", out.Cart.StoreID)
	assert.Equal(t, 4, out.Cart.ItemCount)
	assert.Equal(t, 2, out.Cart.MatchedCount)
	assert.Equal(t, 210.0, out.Cart.Subtotal)
	assert.Equal(t, []string{"unicorn"}, out.Cart.UnmatchedItems)
	assert.Equal(t, []string{"Couldn't find 'unicorn'"}, out.Issues)
	assert.Equal(t,
		"From Fresh Mart: 2x Diet Coke 500ml (₹90), 1x India Gate Basmati Rice 1kg (₹120). Total ₹210. Couldn't find: unicorn",
		out.Message)

	require.Len(t, out.Cart.Items, 3)
	assert.Equal(t, models.StatusMatched, out.Cart.Items[0].Status)
	assert.Equal(t, "p1", out.Cart.Items[0].MatchedProduct.ID)
	assert.Equal(t, models.StatusNotFound, out.Cart.Items[2].Status)

	for _, body := range cluster.bodies[1:] {
		assert.Contains(t, body, "store-1", "item searches are scoped to the resolved store")
	}
}
