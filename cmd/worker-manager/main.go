// cmd/worker-manager/main.go
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"commerce-search-workers/internal/analytics"
	"commerce-search-workers/internal/catalog"
	"commerce-search-workers/internal/common/camunda"
	"commerce-search-workers/internal/common/config"
	"commerce-search-workers/internal/common/database"
	"commerce-search-workers/internal/common/logger"
	"commerce-search-workers/internal/common/observability"

	bc "commerce-search-workers/internal/workers/cart/build-cart"
	sc "commerce-search-workers/internal/workers/data-access/search-catalog"
	cs "commerce-search-workers/internal/workers/search/commerce-search"
	iq "commerce-search-workers/internal/workers/search/interpret-query"
	rr "commerce-search-workers/internal/workers/search/rerank-results"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// workerTimeout is the per-job deadline, falling back to the handler's own
// default when the workers section leaves it unset.
func workerTimeout(cfg *config.Config, taskType string, fallback time.Duration) time.Duration {
	if w, ok := cfg.Workers[taskType]; ok && w.Timeout > 0 {
		return config.GetDuration(w.Timeout)
	}
	return fallback
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console", "stderr")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)
	zapLog.Info("Starting worker manager...", zap.String("environment", cfg.App.Environment))

	obs := observability.New(cfg.Observability, log)
	defer obs.Shutdown(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Zeebe ---
	zeebe, err := camunda.Connect(ctx, camunda.ClientConfigFrom(cfg.Camunda), log)
	if err != nil {
		zapLog.Fatal("zeebe client failed", zap.Error(err))
	}
	defer zeebe.Close()
	zapLog.Info("Zeebe client connected successfully")

	// --- Elasticsearch ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch, nil)
		if err != nil {
			return err
		}
		return esClient.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	if missing, err := esClient.MissingIndices(ctx, cfg.Search.ItemIndex, cfg.Search.StoreIndex); err != nil {
		zapLog.Warn("could not check catalog indices", zap.Error(err))
	} else if len(missing) > 0 {
		zapLog.Warn("catalog indices missing, searches will fail until they exist", zap.Strings("indices", missing))
	}

	// --- Redis ---
	redis := database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error {
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- PostgreSQL (engagement source, optional) ---
	var pg *database.PostgresClient
	if cfg.Database.Postgres.Enabled() {
		err = retryWithBackoff(func() error {
			var err error
			if pg == nil {
				pg, err = database.NewPostgres(cfg.Database.Postgres)
				if err != nil {
					return err
				}
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		zapLog.Info("PostgreSQL connected successfully")
	} else {
		zapLog.Warn("postgres not configured, engagement lookups use the cache only")
	}

	// --- Shared components ---
	retriever := catalog.NewRetriever(esClient.Client, catalog.Config{
		ItemIndex:  cfg.Search.ItemIndex,
		StoreIndex: cfg.Search.StoreIndex,
	}, log)

	var engagementDB *sql.DB
	if pg != nil {
		engagementDB = pg.DB
	}
	lookup := analytics.NewLookup(redis.Client, engagementDB, time.Duration(cfg.Search.CTRCacheTTL)*time.Second, log)

	scoring := rr.ScoringConfigFrom(cfg.Search)
	client := zeebe.GetClient()
	var workers []*camunda.CamundaWorker
	register := func(w *camunda.CamundaWorker) {
		if w != nil {
			workers = append(workers, w)
		}
	}

	// --- Workers ---
	{
		wcfg := iq.LoadConfig()
		wcfg.Timeout = workerTimeout(cfg, iq.TaskType, wcfg.Timeout)
		h := iq.NewHandler(wcfg, log)
		register(camunda.StartWorker(client, iq.TaskType, config.GetWorkerConfig(cfg, iq.TaskType), h.Handle, obs, log))
	}
	{
		wcfg := sc.LoadConfig()
		wcfg.Timeout = workerTimeout(cfg, sc.TaskType, wcfg.Timeout)
		h := sc.NewHandler(wcfg, retriever, log)
		register(camunda.StartWorker(client, sc.TaskType, config.GetWorkerConfig(cfg, sc.TaskType), h.Handle, obs, log))
	}
	{
		wcfg := rr.LoadConfig()
		wcfg.Timeout = workerTimeout(cfg, rr.TaskType, wcfg.Timeout)
		wcfg.Scoring = scoring
		h := rr.NewHandler(wcfg, lookup, log)
		register(camunda.StartWorker(client, rr.TaskType, config.GetWorkerConfig(cfg, rr.TaskType), h.Handle, obs, log))
	}
	{
		wcfg := cs.LoadConfig()
		wcfg.Timeout = workerTimeout(cfg, cs.TaskType, wcfg.Timeout)
		wcfg.CandidateSize = cfg.Search.CandidateSize
		wcfg.Scoring = scoring
		h := cs.NewHandler(wcfg, retriever, lookup, log)
		register(camunda.StartWorker(client, cs.TaskType, config.GetWorkerConfig(cfg, cs.TaskType), h.Handle, obs, log))
	}

	var cartHandler *bc.Handler
	{
		wcfg := bc.LoadConfig()
		wcfg.Timeout = workerTimeout(cfg, bc.TaskType, wcfg.Timeout)
		wcfg.Match = bc.MatchConfigFrom(cfg.Cart)
		cartHandler, err = bc.NewHandler(wcfg, retriever, log)
		if err != nil {
			zapLog.Fatal("failed to create build-cart handler", zap.Error(err))
		}
		register(camunda.StartWorker(client, bc.TaskType, config.GetWorkerConfig(cfg, bc.TaskType), cartHandler.Handle, obs, log))
	}
	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", nil)
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{"zeebe": "ok", "elasticsearch": "ok", "redis": "ok"}
		status := http.StatusOK
		if err := zeebe.HealthCheck(checkCtx); err != nil {
			checks["zeebe"], status = err.Error(), http.StatusServiceUnavailable
		}
		if err := esClient.Ping(checkCtx); err != nil {
			checks["elasticsearch"], status = err.Error(), http.StatusServiceUnavailable
		}
		if err := redis.Ping(checkCtx); err != nil {
			checks["redis"], status = err.Error(), http.StatusServiceUnavailable
		}

		state := "ready"
		if status != http.StatusOK {
			state = "not ready"
		}
		writeStatus(w, status, state, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.App.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", cfg.App.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping workers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	cartHandler.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, code int, status string, checks map[string]string) {
	body := map[string]interface{}{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	}
	if checks != nil {
		body["checks"] = checks
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
