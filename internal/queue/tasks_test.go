package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat-platform/internal/ingest"
)

type stubRunner struct {
	got ingest.Request
	err error
}

func (s *stubRunner) Run(_ context.Context, req ingest.Request) error {
	s.got = req
	return s.err
}

func TestNewIngestTaskPayload(t *testing.T) {
	req := ingest.Request{DocumentID: "doc-1", Kind: ingest.KindFile, Path: "/tmp/a.txt", MimeType: "text/plain", DisplayName: "a.txt"}

	task, err := NewIngestTask(req, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, TaskIngestDocument, task.Type())

	var decoded ingest.Request
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, req, decoded)
}

func TestProcessIngestRunsRequest(t *testing.T) {
	runner := &stubRunner{}
	p := NewTaskProcessor(runner)

	task, err := NewIngestTask(ingest.Request{DocumentID: "doc-2", Kind: ingest.KindURL, URL: "https://example.com"}, time.Minute)
	require.NoError(t, err)

	require.NoError(t, p.ProcessIngest(context.Background(), task))
	assert.Equal(t, "doc-2", runner.got.DocumentID)
	assert.Equal(t, "https://example.com", runner.got.URL)
}

func TestProcessIngestFailuresSkipRetry(t *testing.T) {
	p := NewTaskProcessor(&stubRunner{err: errors.New("crawl failed")})

	task, err := NewIngestTask(ingest.Request{DocumentID: "doc-3", Kind: ingest.KindURL}, time.Minute)
	require.NoError(t, err)
	assert.ErrorIs(t, p.ProcessIngest(context.Background(), task), asynq.SkipRetry)

	bad := asynq.NewTask(TaskIngestDocument, []byte("{not json"))
	assert.ErrorIs(t, p.ProcessIngest(context.Background(), bad), asynq.SkipRetry)
}
