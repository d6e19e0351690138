package catalog

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "commerce-search-workers/internal/common/errors"
	"commerce-search-workers/internal/common/logger"
	"commerce-search-workers/internal/models"
)

// ==========================================
// Test Helper Functions
// ==========================================

type capturedRequest struct {
	Path  string
	Query string
	Body  map[string]interface{}
}

// stubTransport answers every request with a canned status and body and
// records what was sent.
type stubTransport struct {
	mu       sync.Mutex
	status   int
	body     string
	err      error
	requests []capturedRequest
}

func (s *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	captured := capturedRequest{Path: req.URL.Path, Query: req.URL.RawQuery}
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(raw, &captured.Body)
	}
	s.requests = append(s.requests, captured)

	if s.err != nil {
		return nil, s.err
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("X-Elastic-Product", "Elasticsearch")

	return &http.Response{
		StatusCode: s.status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(s.body)),
		Request:    req,
	}, nil
}

func newTestRetriever(t *testing.T, transport *stubTransport) *Retriever {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://catalog.test:9200"},
		Transport: transport,
	})
	require.NoError(t, err)
	return NewRetriever(client, Config{ItemIndex: "items", StoreIndex: "stores"}, logger.NewTestLogger(t))
}

const itemHits = `{
  "took": 3,
  "hits": {
    "total": {"value": 2},
    "hits": [
      {"_id": "doc-1", "_score": 7.5, "_source": {
        "id": "item-1", "name": "Veg Biryani", "store_id": "s1", "store_name": "Paradise",
        "category_id": "c1", "price": 180, "avg_rating": 4.4, "order_count": 1200,
        "created_at": "2024-05-01T10:00:00Z", "location": {"lat": 17.44, "lon": 78.39}
      }},
      {"_id": "doc-2", "_score": 5.1, "_source": {
        "name": "Paneer Biryani", "store_id": "s2", "category_id": "c1", "price": 220
      }}
    ]
  }
}`

// ==========================================
// Search Tests
// ==========================================

func TestRetriever_Search_MapsHits(t *testing.T) {
	transport := &stubTransport{status: http.StatusOK, body: itemHits}
	r := newTestRetriever(t, transport)

	got, err := r.Search(context.Background(), "biryani", models.SearchFilters{StoreID: "s1", Size: 5})
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, "item-1", first.ID)
	assert.Equal(t, "Veg Biryani", first.Name)
	require.NotNil(t, first.TextScore)
	assert.Equal(t, 7.5, *first.TextScore)
	require.NotNil(t, first.Rating)
	assert.Equal(t, 4.4, *first.Rating)
	require.NotNil(t, first.OrderCount)
	assert.Equal(t, int64(1200), *first.OrderCount)
	require.NotNil(t, first.CreatedAt)
	loc, ok := first.Location()
	assert.True(t, ok)
	assert.Equal(t, 17.44, loc.Lat)
	assert.Equal(t, 180.0, first.Price)

	second := got[1]
	assert.Equal(t, "doc-2", second.ID, "falls back to _id")
	assert.Nil(t, second.Rating)
	assert.Nil(t, second.CreatedAt)
	_, ok = second.Location()
	assert.False(t, ok)

	require.Len(t, transport.requests, 1)
	assert.Equal(t, "/items/_search", transport.requests[0].Path)
	assert.Contains(t, transport.requests[0].Query, "size=5")
}

func TestRetriever_Search_EmptyQuerySkipsIndex(t *testing.T) {
	transport := &stubTransport{status: http.StatusOK, body: itemHits}
	r := newTestRetriever(t, transport)

	for _, text := range []string{"", "   "} {
		got, err := r.Search(context.Background(), text, models.SearchFilters{})
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
	assert.Empty(t, transport.requests)
}

func TestRetriever_Search_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode apperrors.ErrorCode
	}{
		{"index missing", http.StatusNotFound, `{"error":{"type":"index_not_found_exception"}}`, apperrors.ErrCodeIndexNotFound},
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, apperrors.ErrCodeSearchQueryFailed},
		{"bad body", http.StatusOK, `not-json`, apperrors.ErrCodeSearchQueryFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRetriever(t, &stubTransport{status: tt.status, body: tt.body})

			_, err := r.Search(context.Background(), "milk", models.SearchFilters{})
			require.Error(t, err)

			stdErr, ok := apperrors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, stdErr.Code)
		})
	}
}

func TestRetriever_Search_ConnectionFailure(t *testing.T) {
	r := newTestRetriever(t, &stubTransport{err: io.ErrUnexpectedEOF})

	_, err := r.Search(context.Background(), "milk", models.SearchFilters{})
	require.Error(t, err)

	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeElasticsearchConnectionFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

// ==========================================
// Store Lookup Tests
// ==========================================

func TestRetriever_FindStoreByName(t *testing.T) {
	t.Run("match", func(t *testing.T) {
		transport := &stubTransport{status: http.StatusOK, body: `{"hits":{"hits":[{"_id":"store-9","_score":3.2,"_source":{"name":"Fresh Mart"}}]}}`}
		r := newTestRetriever(t, transport)

		ref, err := r.FindStoreByName(context.Background(), "fresh mart", "grocery")
		require.NoError(t, err)
		require.NotNil(t, ref)
		assert.Equal(t, "store-9", ref.StoreID)
		assert.Equal(t, "Fresh Mart", ref.StoreName)
		assert.Equal(t, "/stores/_search", transport.requests[0].Path)
	})

	t.Run("no match", func(t *testing.T) {
		r := newTestRetriever(t, &stubTransport{status: http.StatusOK, body: `{"hits":{"hits":[]}}`})

		ref, err := r.FindStoreByName(context.Background(), "nowhere", "")
		require.NoError(t, err)
		assert.Nil(t, ref)
	})

	t.Run("blank name", func(t *testing.T) {
		transport := &stubTransport{status: http.StatusOK, body: `{}`}
		r := newTestRetriever(t, transport)

		ref, err := r.FindStoreByName(context.Background(), " ", "")
		require.NoError(t, err)
		assert.Nil(t, ref)
		assert.Empty(t, transport.requests)
	})
}

// ==========================================
// Query Builder Tests
// ==========================================

func TestBuildItemQuery_Filters(t *testing.T) {
	body := BuildItemQuery("biryani", models.SearchFilters{
		StoreID:  "s1",
		ModuleID: "food",
		Near:     &models.GeoPoint{Lat: 12.9, Lon: 77.6},
		Query: map[string]interface{}{
			models.FilterPriceMax:  200.0,
			models.FilterVeg:       true,
			models.FilterRatingMin: 4.0,
			models.FilterRadiusKm:  5.0,
			models.FilterCuisine:   "hyderabadi",
			models.FilterLocation:  "current location",
			models.FilterSort:      models.SortRating,
		},
	})

	boolQuery := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	filters := boolQuery["filter"].([]interface{})

	assert.Equal(t, term(fieldStoreID, "s1"), filters[0])
	assert.Equal(t, term(fieldModuleID, "food"), filters[1])
	assert.Contains(t, filters, map[string]interface{}{
		"range": map[string]interface{}{fieldPrice: map[string]interface{}{"lte": 200.0}},
	})
	assert.Contains(t, filters, term(fieldVeg, true))
	assert.Contains(t, filters, map[string]interface{}{
		"geo_distance": map[string]interface{}{
			"distance":    "5km",
			fieldLocation: map[string]interface{}{"lat": 12.9, "lon": 77.6},
		},
	})

	should := boolQuery["should"].([]interface{})
	assert.Len(t, should, 1, "current location is not a text boost")

	assert.Equal(t, true, body["track_scores"])
	assert.NotNil(t, body["sort"])
}

func TestBuildItemQuery_RadiusWithoutCallerLocation(t *testing.T) {
	body := BuildItemQuery("pizza", models.SearchFilters{
		Query: map[string]interface{}{models.FilterRadiusKm: 3.0},
	})
	boolQuery := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	assert.NotContains(t, boolQuery, "filter")
	assert.NotContains(t, body, "sort")
}

func TestBuildStoreQuery(t *testing.T) {
	body := BuildStoreQuery("fresh mart", "grocery")
	boolQuery := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	assert.Equal(t, []interface{}{term(fieldModuleID, "grocery")}, boolQuery["filter"])

	body = BuildStoreQuery("fresh mart", "")
	boolQuery = body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	assert.NotContains(t, boolQuery, "filter")
}
