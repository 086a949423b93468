// Package queue carries ingestion requests from the API process to worker
// processes over Redis.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"docchat-platform/internal/ingest"
	"docchat-platform/internal/logger"
)

const TaskIngestDocument = "document:ingest"

// QueueIngest holds ingestion tasks.
const QueueIngest = "ingest"

// NewIngestTask wraps req as a task. Runs are not retried: a failed run has
// already marked its document failed and removed the upload.
func NewIngestTask(req ingest.Request, timeout time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestDocument,
		payload,
		asynq.MaxRetry(0),
		asynq.Timeout(timeout),
		asynq.Queue(QueueIngest),
		asynq.TaskID(req.DocumentID),
	), nil
}

// Enqueuer submits ingestion tasks. It satisfies ingest.Enqueuer.
type Enqueuer struct {
	client  *asynq.Client
	timeout time.Duration
}

var _ ingest.Enqueuer = (*Enqueuer)(nil)

func NewEnqueuer(client *asynq.Client, timeout time.Duration) *Enqueuer {
	return &Enqueuer{client: client, timeout: timeout}
}

func (e *Enqueuer) Enqueue(ctx context.Context, req ingest.Request) error {
	task, err := NewIngestTask(req, e.timeout)
	if err != nil {
		return err
	}
	info, err := e.client.EnqueueContext(ctx, task)
	if err != nil {
		return err
	}
	logger.Info("Ingestion enqueued", "document_id", req.DocumentID, "task_id", info.ID, "queue", info.Queue)
	return nil
}

// Runner executes an ingestion request.
type Runner interface {
	Run(ctx context.Context, req ingest.Request) error
}

// TaskProcessor handles ingestion tasks on the worker side.
type TaskProcessor struct {
	runner Runner
}

func NewTaskProcessor(runner Runner) *TaskProcessor {
	return &TaskProcessor{runner: runner}
}

func (p *TaskProcessor) ProcessIngest(ctx context.Context, t *asynq.Task) error {
	var req ingest.Request
	if err := json.Unmarshal(t.Payload(), &req); err != nil {
		return fmt.Errorf("unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	logger.Info("Processing document", "document_id", req.DocumentID, "kind", req.Kind)

	if err := p.runner.Run(ctx, req); err != nil {
		return fmt.Errorf("ingest %s: %v: %w", req.DocumentID, err, asynq.SkipRetry)
	}
	return nil
}

// Register wires the processor's handlers into mux.
func (p *TaskProcessor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskIngestDocument, p.ProcessIngest)
}
