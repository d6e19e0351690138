// Package commercesearch runs the whole query pipeline in one job:
// interpret, retrieve, rerank and diversify.
package commercesearch

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"commerce-search-workers/internal/catalog"
	apperrors "commerce-search-workers/internal/common/errors"
	"commerce-search-workers/internal/common/logger"
	"commerce-search-workers/internal/common/metrics"
	"commerce-search-workers/internal/common/validation"
	"commerce-search-workers/internal/models"
	interpretquery "commerce-search-workers/internal/workers/search/interpret-query"
	rerankresults "commerce-search-workers/internal/workers/search/rerank-results"
)

const (
	TaskType = "commerce-search"
)

var (
	ErrNilInput = errors.New("input cannot be nil")
)

type Handler struct {
	config     *Config
	extractor  *interpretquery.Extractor
	retrieval  catalog.Retrieval
	reranker   *rerankresults.Reranker
	validator  *validation.Validator
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, retrieval catalog.Retrieval, engagement rerankresults.EngagementSource, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		extractor:  interpretquery.NewExtractor(),
		retrieval:  retrieval,
		reranker:   rerankresults.NewReranker(config.Scoring, engagement, log),
		validator:  validation.MustCompile(GetInputSchema(config.MaxQueryLength)),
		errHandler: apperrors.NewErrorHandler(log),
		logger:     log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job.Variables)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) parseInput(variables string) (*Input, error) {
	if res := h.validator.ValidateJSON([]byte(variables)); !res.Valid {
		return nil, apperrors.NewInvalidQueryInputError(res.Error())
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, apperrors.NewInvalidQueryInputError(err.Error())
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, ErrNilInput
	}

	requestID := uuid.NewString()
	log := h.logger.WithFields(map[string]interface{}{"requestId": requestID})

	interp := h.extractor.Interpret(input.Text)
	for _, ent := range interp.Entities {
		metrics.EntitiesExtracted.WithLabelValues(string(ent.Kind)).Inc()
	}

	out := &Output{
		RequestID:      requestID,
		Interpretation: interp,
		Results:        []models.ScoredCandidate{},
	}

	if strings.TrimSpace(interp.ResidualQueryText) == "" {
		out.Message = "Please tell me what you are looking for."
		return out, nil
	}

	candidates, err := h.retrieval.Search(ctx, interp.ResidualQueryText, models.SearchFilters{
		StoreID:  input.StoreID,
		ZoneID:   input.ZoneID,
		ModuleID: input.ModuleID,
		Size:     h.config.CandidateSize,
		Near:     input.Location,
		Query:    interp.Filters,
	})
	if err != nil {
		log.Error("retrieval failed", map[string]interface{}{"error": err})
		return nil, err
	}

	ranked := h.reranker.Rerank(ctx, rerankresults.RerankRequest{
		Candidates: candidates,
		Query:      interp.ResidualQueryText,
		Filters:    interp.Filters,
		UserID:     input.UserID,
		Location:   input.Location,
	})

	out.Results = h.reranker.Diversify(ranked, input.MaxPerStore, input.MaxPerCategory)
	out.TotalCandidates = len(candidates)
	out.Message = interp.Acknowledgement
	if len(out.Results) == 0 {
		out.Message = interp.Acknowledgement + ". No results found."
	}

	log.Info("search completed", map[string]interface{}{
		"residual":   interp.ResidualQueryText,
		"entities":   len(interp.Entities),
		"candidates": len(candidates),
		"results":    len(out.Results),
	})

	return out, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	code := string(apperrors.ErrCodeInternal)
	if stdErr, ok := apperrors.AsStandardError(err); ok {
		code = string(stdErr.Code)
	}
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
