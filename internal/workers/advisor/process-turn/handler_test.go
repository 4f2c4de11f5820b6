// internal/workers/advisor/process-turn/handler_test.go
package processturn

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisor-engine/internal/common/errors"
	"advisor-engine/internal/common/logger"
	"advisor-engine/internal/coordinator"
	"advisor-engine/internal/engine"
	"advisor-engine/internal/store"
)

func createTestHandler(t *testing.T) *Handler {
	t.Helper()
	log := logger.NewTestLogger(t)
	repo := store.NewContextRepository(store.NewMemoryStore(), 50, log)
	coord := coordinator.New(coordinator.Config{BookingURL: "https://book.example.com"},
		engine.New(engine.DefaultConfig(), log), repo, log)
	return NewHandler(&Config{Timeout: 5 * time.Second}, coord, log)
}

func jobWith(vars string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 42, ProcessInstanceKey: 7, Variables: vars, Retries: 3}}
}

// ==========================
// Input parsing
// ==========================

func TestHandler_ParseInput(t *testing.T) {
	h := createTestHandler(t)

	tests := []struct {
		name    string
		vars    string
		wantErr bool
	}{
		{"valid", `{"profileId":"p-1","screen":"program","input":"show me the tactic","authenticated":false}`, false},
		{"extra process variables", `{"profileId":"p-1","input":"hi","orderId":99}`, false},
		{"not json", `profileId=p-1`, true},
		{"missing input", `{"profileId":"p-1"}`, true},
		{"bad screen", `{"profileId":"p-1","input":"hi","screen":"x"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := h.parseInput(jobWith(tt.vars))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeInvalidTurnInput, errors.AsStandard(err).Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "p-1", in.ProfileID)
			assert.Equal(t, "zeebe-job-42", in.TurnID)
		})
	}
}

// ==========================
// Execution
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	h := createTestHandler(t)

	out, err := h.execute(context.Background(), &Input{ProfileID: "p-1", Screen: "program", Input: "show me the tactic"})
	require.NoError(t, err)

	assert.Equal(t, 1, out.Sequence)
	assert.Equal(t, "showTactic", out.Intent)
	assert.Equal(t, "local", out.Source)
	assert.NotEmpty(t, out.TurnID)
	assert.Contains(t, out.Effects, engine.Effect{Kind: engine.EffectSwitchTab, Value: "tactic"})
	assert.Contains(t, out.Text, "https://book.example.com")

	out, err = h.execute(context.Background(), &Input{ProfileID: "p-1", Screen: "program", Input: "ok next"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Sequence)
	assert.Equal(t, "showExercise", out.Intent)
}

func TestHandler_Execute_RedeliveredJobRunsOnce(t *testing.T) {
	h := createTestHandler(t)

	in, err := h.parseInput(jobWith(`{"profileId":"p-1","screen":"program","input":"show me the tactic"}`))
	require.NoError(t, err)

	first, err := h.execute(context.Background(), in)
	require.NoError(t, err)
	again, err := h.execute(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "zeebe-job-42", first.TurnID)
	assert.Equal(t, 1, first.Sequence)
	assert.Equal(t, first, again)
}

type failingProcessor struct{ err error }

func (f failingProcessor) ProcessTurn(context.Context, coordinator.TurnRequest) (*coordinator.TurnResult, error) {
	return nil, f.err
}

func TestHandler_Execute_Error(t *testing.T) {
	h := NewHandler(LoadConfig(), failingProcessor{err: stderrors.New("boom")}, logger.NewNoOpLogger())

	_, err := h.execute(context.Background(), &Input{ProfileID: "p-1", Input: "hi"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInternal, errors.AsStandard(err).Code)
}
