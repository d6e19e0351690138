// internal/workers/data-access/search-catalog/handler.go
package searchcatalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"commerce-search-workers/internal/catalog"
	apperrors "commerce-search-workers/internal/common/errors"
	"commerce-search-workers/internal/common/logger"
	"commerce-search-workers/internal/common/metrics"
	"commerce-search-workers/internal/common/validation"
	"commerce-search-workers/internal/models"
)

const (
	TaskType = "search-catalog"
)

var (
	ErrNilInput         = errors.New("input cannot be nil")
	ErrUnknownQueryType = errors.New("unknown query type")
)

type Handler struct {
	config     *Config
	retrieval  catalog.Retrieval
	validator  *validation.Validator
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, retrieval catalog.Retrieval, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		retrieval:  retrieval,
		validator:  validation.MustCompile(GetInputSchema()),
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

	switch input.QueryType {
	case "", QueryTypeItems:
		return h.searchItems(ctx, input)
	case QueryTypeStore:
		return h.findStore(ctx, input)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownQueryType, input.QueryType)
	}
}

func (h *Handler) searchItems(ctx context.Context, input *Input) (*Output, error) {
	size := input.Size
	if size <= 0 {
		size = h.config.DefaultSize
	}

	candidates, err := h.retrieval.Search(ctx, input.Text, models.SearchFilters{
		StoreID:  input.StoreID,
		ZoneID:   input.ZoneID,
		ModuleID: input.ModuleID,
		Size:     size,
		Near:     input.Location,
		Query:    input.Filters,
	})
	if err != nil {
		return nil, err
	}

	h.logger.Debug("catalog searched", map[string]interface{}{
		"text":  input.Text,
		"count": len(candidates),
	})

	return &Output{Candidates: candidates, Count: len(candidates)}, nil
}

func (h *Handler) findStore(ctx context.Context, input *Input) (*Output, error) {
	ref, err := h.retrieval.FindStoreByName(ctx, input.Text, input.ModuleID)
	if err != nil {
		return nil, err
	}

	out := &Output{Candidates: []models.Candidate{}, Store: ref}
	if ref != nil {
		out.Count = 1
	}
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
	} else if errors.Is(err, ErrUnknownQueryType) {
		err = apperrors.NewInvalidQueryInputError(err.Error())
		code = string(apperrors.ErrCodeInvalidQueryInput)
	}
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
