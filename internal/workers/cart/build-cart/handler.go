// Package buildcart assembles a priced shopping cart from extracted
// (item, quantity) pairs by fuzzy matching them against catalog results.
package buildcart

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "commerce-search-workers/internal/common/errors"
	"commerce-search-workers/internal/common/logger"
	"commerce-search-workers/internal/common/metrics"
	"commerce-search-workers/internal/common/validation"
)

const (
	TaskType = "build-cart"
)

var (
	ErrNilInput = errors.New("input cannot be nil")
)

type Handler struct {
	config     *Config
	builder    *CartBuilder
	validator  *validation.Validator
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, retrieval Retrieval, log logger.Logger) (*Handler, error) {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	builder, err := NewCartBuilder(retrieval, config.Match, log)
	if err != nil {
		return nil, err
	}

	return &Handler{
		config:     config,
		builder:    builder,
		validator:  validation.MustCompile(GetInputSchema(config.MaxItems)),
		errHandler: apperrors.NewErrorHandler(log),
		logger:     log,
	}, nil
}

// Close releases the retrieval pool.
func (h *Handler) Close() {
	h.builder.Release()
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
		return nil, apperrors.NewInvalidCartInputError(res.Error())
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, apperrors.NewInvalidCartInputError(err.Error())
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, ErrNilInput
	}

	cart, err := h.builder.BuildCart(ctx, input.Items, input.Options())
	if err != nil {
		return nil, err
	}

	return &Output{CartResponse: FormatCartResponse(cart)}, nil
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
