// Package ingest turns uploads and URLs into vectorized chunks. Records are
// created synchronously; extraction, chunking and vectorization run in the
// background and end with the document completed or failed.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"docchat-platform/internal/chunker"
	"docchat-platform/internal/crawler"
	"docchat-platform/internal/extract"
	"docchat-platform/internal/logger"
	"docchat-platform/internal/repository"
	"docchat-platform/internal/telemetry"
	"docchat-platform/internal/vectorizer"
	"docchat-platform/models"
)

// Request kinds
const (
	KindFile = "file"
	KindURL  = "url"
)

const (
	DefaultFileBatchSize = 100
	DefaultPageBatchSize = 50
	DefaultJobTimeout    = 30 * time.Minute
)

var (
	// ErrDocumentDeleted ends a run whose document was removed mid-flight.
	ErrDocumentDeleted = errors.New("document deleted during processing")
	ErrNoChunks        = errors.New("no chunks could be vectorized")
)

// Request describes one ingestion run. It is JSON encoded as the queue
// task payload.
type Request struct {
	DocumentID  string `json:"document_id"`
	Kind        string `json:"kind"`
	Path        string `json:"path,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Extractor turns a stored file into text.
type Extractor interface {
	Supports(mimeType, filename string) bool
	Extract(ctx context.Context, path, mimeType, displayName string) (string, error)
}

// Crawler fetches a site's pages starting from a URL.
type Crawler interface {
	Crawl(ctx context.Context, rawURL string) (*crawler.Result, error)
}

// Enqueuer hands a request to an out-of-process worker.
type Enqueuer interface {
	Enqueue(ctx context.Context, req Request) error
}

// Options tunes an Orchestrator. Zero values take defaults.
type Options struct {
	FileBatchSize int
	PageBatchSize int
	JobTimeout    time.Duration
	Metrics       *telemetry.Metrics
	// Enqueuer, when set, replaces in-process background runs.
	Enqueuer Enqueuer
}

// Orchestrator drives document ingestion.
type Orchestrator struct {
	repo       repository.Repository
	extractor  Extractor
	chunker    *chunker.Chunker
	vectorizer vectorizer.Vectorizer
	crawler    Crawler
	storage    *FileStorage

	fileBatch  int
	pageBatch  int
	jobTimeout time.Duration
	metrics    *telemetry.Metrics
	enqueuer   Enqueuer

	wg sync.WaitGroup
}

func NewOrchestrator(
	repo repository.Repository,
	extractor Extractor,
	ch *chunker.Chunker,
	vec vectorizer.Vectorizer,
	cr Crawler,
	storage *FileStorage,
	opts Options,
) *Orchestrator {
	if opts.FileBatchSize <= 0 {
		opts.FileBatchSize = DefaultFileBatchSize
	}
	if opts.PageBatchSize <= 0 {
		opts.PageBatchSize = DefaultPageBatchSize
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = DefaultJobTimeout
	}
	return &Orchestrator{
		repo:       repo,
		extractor:  extractor,
		chunker:    ch,
		vectorizer: vec,
		crawler:    cr,
		storage:    storage,
		fileBatch:  opts.FileBatchSize,
		pageBatch:  opts.PageBatchSize,
		jobTimeout: opts.JobTimeout,
		metrics:    opts.Metrics,
		enqueuer:   opts.Enqueuer,
	}
}

// CreateFileDocument stores the upload, creates a processing record and
// schedules ingestion. The returned Job is nil when runs are queued.
func (o *Orchestrator) CreateFileDocument(ctx context.Context, r io.Reader, originalName, mimeType string) (*models.Document, *Job, error) {
	stored, err := o.storage.Store(r, originalName)
	if err != nil {
		return nil, nil, err
	}

	doc := &models.Document{
		ID:           uuid.NewString(),
		Filename:     stored.SecureName,
		OriginalName: originalName,
		MimeType:     mimeType,
		Size:         stored.Size,
		Status:       models.StatusProcessing,
		UploadedAt:   time.Now(),
	}
	if err := o.repo.CreateDocument(ctx, doc); err != nil {
		o.storage.Cleanup(stored.Path)
		return nil, nil, fmt.Errorf("failed to create document: %w", err)
	}

	logger.Info("Document created",
		"document_id", doc.ID,
		"name", originalName,
		"mime_type", mimeType,
		"size", stored.Size,
		"md5", stored.Hash,
	)

	job := o.dispatch(ctx, Request{
		DocumentID:  doc.ID,
		Kind:        KindFile,
		Path:        stored.Path,
		MimeType:    mimeType,
		DisplayName: originalName,
	})
	return doc, job, nil
}

// CreateURLDocument validates rawURL, creates a processing record and
// schedules the crawl. Invalid URLs are rejected before any record exists.
func (o *Orchestrator) CreateURLDocument(ctx context.Context, rawURL string) (*models.Document, *Job, error) {
	u, err := crawler.ValidateURL(rawURL)
	if err != nil {
		return nil, nil, err
	}

	doc := &models.Document{
		ID:           uuid.NewString(),
		Filename:     u.Hostname(),
		OriginalName: u.String(),
		MimeType:     "text/html",
		SourceURL:    u.String(),
		Status:       models.StatusProcessing,
		UploadedAt:   time.Now(),
	}
	if err := o.repo.CreateDocument(ctx, doc); err != nil {
		return nil, nil, fmt.Errorf("failed to create document: %w", err)
	}

	logger.Info("URL document created", "document_id", doc.ID, "url", doc.SourceURL)

	job := o.dispatch(ctx, Request{
		DocumentID:  doc.ID,
		Kind:        KindURL,
		URL:         doc.SourceURL,
		DisplayName: doc.SourceURL,
	})
	return doc, job, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, req Request) *Job {
	if o.enqueuer == nil {
		return o.Start(req)
	}
	if err := o.enqueuer.Enqueue(ctx, req); err != nil {
		logger.Error("Failed to enqueue ingestion", "document_id", req.DocumentID, "error", err)
		o.markFailed(req.DocumentID, fmt.Errorf("failed to enqueue: %w", err))
		if req.Kind == KindFile {
			o.storage.Cleanup(req.Path)
		}
	}
	return nil
}

// Start runs req in a background goroutine detached from any request
// context and returns its handle.
func (o *Orchestrator) Start(req Request) *Job {
	job := newJob(req.DocumentID)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), o.jobTimeout)
		defer cancel()
		job.finish(o.Run(ctx, req))
	}()
	return job
}

// Shutdown waits for in-process runs to finish or ctx to end.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes req to a terminal outcome. Any failure marks the document
// failed; ErrDocumentDeleted means there was nothing left to mark. A stored
// upload is always removed.
func (o *Orchestrator) Run(ctx context.Context, req Request) error {
	start := time.Now()
	ctx, span := telemetry.Tracer().Start(ctx, "ingest."+req.Kind, trace.WithAttributes(
		attribute.String("document.id", req.DocumentID),
	))
	defer span.End()

	var stats batchStats
	err := o.safeProcess(ctx, req, &stats)

	if req.Kind == KindFile {
		o.storage.Cleanup(req.Path)
	}

	status := models.StatusCompleted
	switch {
	case errors.Is(err, ErrDocumentDeleted):
		status = "deleted"
		logger.Info("Ingestion aborted, document deleted", "document_id", req.DocumentID, "stored", stats.stored)
	case err != nil:
		status = models.StatusFailed
		o.markFailed(req.DocumentID, err)
	default:
		logger.Info("Ingestion completed",
			"document_id", req.DocumentID,
			"chunks", stats.stored,
			"dropped", stats.dropped,
			"duration", time.Since(start).String(),
		)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(
		attribute.String("ingest.status", status),
		attribute.Int("ingest.chunks", stats.stored),
	)
	o.metrics.RecordIngest(req.Kind, status, time.Since(start).Seconds(), stats.stored, stats.dropped)
	return err
}

type batchStats struct {
	stored  int
	dropped int
}

func (o *Orchestrator) safeProcess(ctx context.Context, req Request, stats *batchStats) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ingestion panicked: %v", r)
		}
	}()
	return o.process(ctx, req, stats)
}

func (o *Orchestrator) process(ctx context.Context, req Request, stats *batchStats) error {
	text, batchSize, err := o.extractText(ctx, req)
	if err != nil {
		return err
	}

	if err := o.repo.UpdateContent(ctx, req.DocumentID, text); err != nil {
		return deletedOr(err)
	}

	pieces := o.chunker.Chunk(text)
	logger.Debug("Document chunked", "document_id", req.DocumentID, "chunks", len(pieces))

	for start := 0; start < len(pieces); start += batchSize {
		end := min(start+batchSize, len(pieces))

		chunks := o.vectorizeBatch(ctx, req, pieces, start, end)
		stats.dropped += (end - start) - len(chunks)
		if len(chunks) == 0 {
			continue
		}

		if _, err := o.repo.GetDocument(ctx, req.DocumentID); err != nil {
			return deletedOr(err)
		}
		if err := o.repo.InsertChunks(ctx, chunks); err != nil {
			return deletedOr(err)
		}
		stats.stored += len(chunks)
	}

	if stats.stored == 0 {
		return ErrNoChunks
	}

	if err := o.repo.SetStatus(ctx, req.DocumentID, models.StatusCompleted, ""); err != nil {
		return deletedOr(err)
	}
	return nil
}

func (o *Orchestrator) extractText(ctx context.Context, req Request) (string, int, error) {
	switch req.Kind {
	case KindFile:
		if !o.extractor.Supports(req.MimeType, req.DisplayName) {
			return "", 0, fmt.Errorf("%w: %s", extract.ErrUnsupported, req.MimeType)
		}
		text, err := o.extractor.Extract(ctx, req.Path, req.MimeType, req.DisplayName)
		return text, o.fileBatch, err

	case KindURL:
		result, err := o.crawler.Crawl(ctx, req.URL)
		if err != nil {
			return "", 0, err
		}
		return result.Content(), o.pageBatch, nil
	}
	return "", 0, fmt.Errorf("unknown ingestion kind %q", req.Kind)
}

// vectorizeBatch vectorizes pieces[start:end] concurrently. A piece whose
// vectorization fails is logged and left out; order is preserved.
func (o *Orchestrator) vectorizeBatch(ctx context.Context, req Request, pieces []string, start, end int) []*models.Chunk {
	vectors := make([][]float32, end-start)

	var g errgroup.Group
	g.SetLimit(end - start)
	for i := start; i < end; i++ {
		g.Go(func() error {
			vec, err := o.safeVectorize(ctx, pieces[i])
			if err == nil && len(vec) != o.vectorizer.Dimensions() {
				err = fmt.Errorf("vector has %d dimensions, want %d", len(vec), o.vectorizer.Dimensions())
			}
			if err != nil {
				logger.Warn("Dropping chunk", "document_id", req.DocumentID, "chunk_index", i, "error", err)
				return nil
			}
			vectors[i-start] = vec
			return nil
		})
	}
	_ = g.Wait()

	now := time.Now()
	chunks := make([]*models.Chunk, 0, len(vectors))
	for offset, vec := range vectors {
		if vec == nil {
			continue
		}
		index := start + offset
		chunks = append(chunks, &models.Chunk{
			ID:         uuid.NewString(),
			DocumentID: req.DocumentID,
			Content:    pieces[index],
			Vector:     vec,
			Metadata: map[string]interface{}{
				models.MetaChunkIndex:  index,
				models.MetaTotalChunks: len(pieces),
				models.MetaSource:      req.Kind,
			},
			CreatedAt: now,
		})
	}
	return chunks
}

func (o *Orchestrator) safeVectorize(ctx context.Context, text string) (vec []float32, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("vectorizer panicked: %v", r)
		}
	}()
	return o.vectorizer.Vectorize(ctx, text)
}

// markFailed records a failure. A document that is gone or already final
// is left alone.
func (o *Orchestrator) markFailed(documentID string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Error("Ingestion failed", "document_id", documentID, "error", cause)
	err := o.repo.SetStatus(ctx, documentID, models.StatusFailed, cause.Error())
	if err != nil && !errors.Is(err, repository.ErrNotFound) && !errors.Is(err, repository.ErrInvalidTransition) {
		logger.Error("Failed to mark document failed", "document_id", documentID, "error", err)
	}
}

func deletedOr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrDocumentDeleted
	}
	return err
}
