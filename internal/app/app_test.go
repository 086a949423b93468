package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat-platform/internal/config"
	"docchat-platform/internal/vectorizer"
	"docchat-platform/models"
)

func memoryConfig(t *testing.T) *config.Config {
	return &config.Config{
		Store:         "memory",
		IngestMode:    "inline",
		UploadDir:     t.TempDir(),
		MaxFileSize:   1 << 20,
		ChunkMaxSize:  6000,
		FileBatchSize: 100,
		PageBatchSize: 50,
		CrawlMaxPages: 10,
		CrawlTimeout:  time.Second,
		Vectorizer:    "hash",
		Composer:      "template",
	}
}

func TestNewMemoryApp(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, memoryConfig(t), nil, nil)
	require.NoError(t, err)
	defer a.Close(ctx)

	assert.NoError(t, a.Ready(ctx))
	assert.Equal(t, vectorizer.Dimensions, a.Vectorizer.Dimensions())

	doc, job, err := a.Ingest.CreateFileDocument(ctx, strings.NewReader("Invoices are due in thirty days."), "terms.txt", "text/plain")
	require.NoError(t, err)
	require.NoError(t, job.Wait(ctx))

	resp, err := a.Chat.Send(ctx, "Invoices are due in thirty days.", "")
	require.NoError(t, err)
	require.NotEmpty(t, resp.AssistantMessage.Sources)
	assert.Equal(t, doc.ID, resp.AssistantMessage.Sources[0].DocumentID)

	stored, err := a.Repo.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
}
