package analytics

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "commerce-search-workers/internal/common/errors"
	"commerce-search-workers/internal/common/logger"
	"commerce-search-workers/internal/models"
)

// ==========================================
// Test Helper Functions
// ==========================================

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

var engagementColumns = []string{"item_id", "ctr", "cvr", "views"}

// ==========================================
// Core Functionality Tests
// ==========================================

func TestBatchLookup_CacheHitsAndDatabaseFill(t *testing.T) {
	mr, rdb := newMiniredis(t)
	require.NoError(t, mr.Set("engagement:item:a", `{"ctr":0.05,"cvr":0.01,"views":100}`))

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(batchQuery)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(engagementColumns).AddRow("b", 0.2, 0.04, 50))

	l := NewLookup(rdb, db, 10*time.Minute, logger.NewTestLogger(t))

	got, err := l.BatchLookup(context.Background(), []string{"a", "b", "c", "a"})
	require.NoError(t, err)

	assert.Equal(t, map[string]models.Engagement{
		"a": {CTR: 0.05, CVR: 0.01, Views: 100},
		"b": {CTR: 0.2, CVR: 0.04, Views: 50},
	}, got)
	assert.NotContains(t, got, "c", "partial misses are absent, not errors")
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.True(t, mr.Exists("engagement:item:b"), "database rows are written back")
	assert.Equal(t, 10*time.Minute, mr.TTL("engagement:item:b"))
	assert.False(t, mr.Exists("engagement:item:c"))
}

func TestBatchLookup_AllHitsSkipsDatabase(t *testing.T) {
	mr, rdb := newMiniredis(t)
	require.NoError(t, mr.Set("engagement:item:a", `{"ctr":0.05}`))

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := NewLookup(rdb, db, time.Minute, logger.NewTestLogger(t))

	got, err := l.BatchLookup(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 0.05, got["a"].CTR)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchLookup_EmptyIDs(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	l := NewLookup(rdb, nil, time.Minute, logger.NewTestLogger(t))

	got, err := l.BatchLookup(context.Background(), []string{"", ""})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchLookup_CorruptCacheEntryIsAMiss(t *testing.T) {
	mr, rdb := newMiniredis(t)
	require.NoError(t, mr.Set("engagement:item:a", `not-json`))

	l := NewLookup(rdb, nil, time.Minute, logger.NewTestLogger(t))

	got, err := l.BatchLookup(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

// ==========================================
// Degradation Tests
// ==========================================

func TestBatchLookup_CacheDownNoDatabase(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectMGet("engagement:item:a").SetErr(errors.New("connection refused"))

	l := NewLookup(rdb, nil, time.Minute, logger.NewTestLogger(t))

	got, err := l.BatchLookup(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Nil(t, got)

	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeAnalyticsUnavailable, stdErr.Code)
}

func TestBatchLookup_CacheDownServedFromDatabase(t *testing.T) {
	rdb, redisMock := redismock.NewClientMock()
	redisMock.ExpectMGet("engagement:item:a", "engagement:item:b").SetErr(errors.New("connection refused"))

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(batchQuery)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(engagementColumns).AddRow("a", 0.3, 0.1, 10))

	l := NewLookup(rdb, db, time.Minute, logger.NewTestLogger(t))

	got, err := l.BatchLookup(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]models.Engagement{"a": {CTR: 0.3, CVR: 0.1, Views: 10}}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet(), "no cache fill while the cache is down")
}

func TestBatchLookup_DatabaseErrorKeepsCacheHits(t *testing.T) {
	mr, rdb := newMiniredis(t)
	require.NoError(t, mr.Set("engagement:item:a", `{"ctr":0.07}`))

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(batchQuery)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnError(errors.New("too many connections"))

	l := NewLookup(rdb, db, time.Minute, logger.NewTestLogger(t))

	got, err := l.BatchLookup(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 0.07, got["a"].CTR)
	assert.NotContains(t, got, "b")
}

func TestBatchLookup_BothBackendsDown(t *testing.T) {
	rdb, redisMock := redismock.NewClientMock()
	redisMock.ExpectMGet("engagement:item:a").SetErr(errors.New("connection refused"))

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(batchQuery)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnError(errors.New("database is down"))

	l := NewLookup(rdb, db, time.Minute, logger.NewTestLogger(t))

	_, err = l.BatchLookup(context.Background(), []string{"a"})
	require.Error(t, err)
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeAnalyticsUnavailable, stdErr.Code)
}
