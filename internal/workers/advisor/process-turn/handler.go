// internal/workers/advisor/process-turn/handler.go
package processturn

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"advisor-engine/internal/common/errors"
	"advisor-engine/internal/common/logger"
	"advisor-engine/internal/common/metrics"
	"advisor-engine/internal/common/validation"
	"advisor-engine/internal/coordinator"
)

const (
	TaskType = "advisor-process-turn"
)

// TurnProcessor is the part of the coordinator the worker needs.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, req coordinator.TurnRequest) (*coordinator.TurnResult, error)
}

type Handler struct {
	config       *Config
	processor    TurnProcessor
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, processor TurnProcessor, log logger.Logger) *Handler {
	log = log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:       config,
		processor:    processor,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.fail(ctx, client, job, errors.NewInternalError(err))
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":   job.Key,
		"sequence": output.Sequence,
		"source":   output.Source,
	})
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	var vars map[string]interface{}
	if err := json.Unmarshal([]byte(job.Variables), &vars); err != nil {
		return nil, errors.NewInvalidTurnInputError("variables are not a JSON object")
	}
	if res := validation.ValidateTurnInput(vars); !res.Valid {
		return nil, errors.NewInvalidTurnInputError(res.Error())
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, errors.NewInvalidTurnInputError(err.Error())
	}
	input.TurnID = turnIDForJob(job.Key)
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.processor.ProcessTurn(ctx, coordinator.TurnRequest{
		TurnID:        input.TurnID,
		ProfileID:     input.ProfileID,
		Screen:        input.Screen,
		Input:         input.Input,
		Authenticated: input.Authenticated,
		Situational:   input.Situational,
		Progress:      input.Progress,
	})
	if err != nil {
		return nil, err
	}

	return &Output{
		TurnID:       res.TurnID,
		Sequence:     res.Sequence,
		Intent:       string(res.Intent.Intent),
		IntentScore:  res.Intent.Score,
		Text:         res.Text,
		Source:       string(res.Source),
		QuickChoices: res.QuickChoices,
		Effects:      res.Effects,
		Stuck:        res.Stuck,
		Confidence:   res.Confidence,
	}, nil
}

func turnIDForJob(key int64) string {
	return "zeebe-job-" + strconv.FormatInt(key, 10)
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	code := errors.AsStandard(err).Code
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}
