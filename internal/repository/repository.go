// Package repository owns document, chunk and chat message records and
// enforces their lifecycle rules. Instances are constructed explicitly and
// passed to the orchestrators.
package repository

import (
	"context"
	"errors"

	"docchat-platform/models"
)

// HistoryLimit is the number of chat messages retained (six turns).
const HistoryLimit = 12

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid document status transition")
	ErrDocumentFinalized = errors.New("document content is final")
)

// Repository is the storage contract shared by the in-memory and Mongo
// implementations.
type Repository interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	// ListDocuments returns documents newest first, without their extracted
	// content.
	ListDocuments(ctx context.Context) ([]*models.Document, error)
	// UpdateContent overwrites content while the document is processing.
	UpdateContent(ctx context.Context, id, content string) error
	// SetStatus moves a processing document to completed or failed.
	SetStatus(ctx context.Context, id, status, errorMessage string) error
	// DeleteDocument removes the document and its chunks. Chat history is
	// cleared when no documents remain.
	DeleteDocument(ctx context.Context, id string) error

	// InsertChunks writes a batch of chunks. The batch is rejected with
	// ErrNotFound when a parent document does not exist.
	InsertChunks(ctx context.Context, chunks []*models.Chunk) error
	// ChunksByDocument returns a document's chunks ordered by chunk index.
	ChunksByDocument(ctx context.Context, documentID string) ([]*models.Chunk, error)
	AllChunks(ctx context.Context) ([]*models.Chunk, error)

	// AppendMessages stores all messages or none, then trims history to
	// HistoryLimit.
	AppendMessages(ctx context.Context, messages ...*models.ChatMessage) error
	// RecentMessages returns up to n messages, oldest first. A negative n
	// returns all of them; zero returns none.
	RecentMessages(ctx context.Context, n int) ([]*models.ChatMessage, error)
	ClearMessages(ctx context.Context) error
}

// CanTransition reports whether a document may move from one status to
// another.
func CanTransition(from, to string) bool {
	return from == models.StatusProcessing && (to == models.StatusCompleted || to == models.StatusFailed)
}
