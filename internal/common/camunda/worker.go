// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"advisor-engine/internal/common/config"
	"advisor-engine/internal/common/logger"
)

// Worker is one open job subscription.
type Worker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// StartWorker opens a job worker for taskType with the per-worker limits.
func StartWorker(client zbc.Client, taskType string, cfg config.WorkerConfig, handler worker.JobHandler, log logger.Logger) *Worker {
	jw := client.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		MaxJobsActive(cfg.MaxJobsActive).
		Timeout(time.Duration(cfg.Timeout) * time.Millisecond).
		Name(taskType).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": cfg.MaxJobsActive,
	})
	return &Worker{worker: jw, logger: log, taskType: taskType}
}

// Stop closes the subscription and waits for in-flight jobs.
func (w *Worker) Stop() {
	w.worker.Close()
	w.worker.AwaitClose()
	w.logger.Info("worker stopped", map[string]interface{}{"taskType": w.taskType})
}
