package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"docchat-platform/models"
)

// MemoryRepository keeps all records in process memory.
type MemoryRepository struct {
	mu        sync.RWMutex
	documents map[string]*models.Document
	docOrder  []string
	chunks    map[string][]*models.Chunk // by document id
	messages  []*models.ChatMessage
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		documents: make(map[string]*models.Document),
		chunks:    make(map[string][]*models.Chunk),
	}
}

func (r *MemoryRepository) CreateDocument(_ context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.documents[doc.ID]; exists {
		return fmt.Errorf("document %s already exists", doc.ID)
	}
	cp := *doc
	r.documents[doc.ID] = &cp
	r.docOrder = append(r.docOrder, doc.ID)
	return nil
}

func (r *MemoryRepository) GetDocument(_ context.Context, id string) (*models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (r *MemoryRepository) ListDocuments(_ context.Context) ([]*models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Document, 0, len(r.documents))
	for i := len(r.docOrder) - 1; i >= 0; i-- {
		if doc, ok := r.documents[r.docOrder[i]]; ok {
			cp := *doc
			cp.Content = ""
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	return out, nil
}

func (r *MemoryRepository) UpdateContent(_ context.Context, id, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.documents[id]
	if !ok {
		return ErrNotFound
	}
	if doc.Status != models.StatusProcessing {
		return ErrDocumentFinalized
	}
	doc.Content = content
	return nil
}

func (r *MemoryRepository) SetStatus(_ context.Context, id, status, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.documents[id]
	if !ok {
		return ErrNotFound
	}
	if !CanTransition(doc.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, doc.Status, status)
	}
	now := time.Now()
	doc.Status = status
	doc.ErrorMessage = errorMessage
	doc.ProcessedAt = &now
	return nil
}

func (r *MemoryRepository) DeleteDocument(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.documents[id]; !ok {
		return ErrNotFound
	}
	delete(r.documents, id)
	delete(r.chunks, id)
	for i, docID := range r.docOrder {
		if docID == id {
			r.docOrder = append(r.docOrder[:i], r.docOrder[i+1:]...)
			break
		}
	}
	if len(r.documents) == 0 {
		r.messages = nil
	}
	return nil
}

func (r *MemoryRepository) InsertChunks(_ context.Context, chunks []*models.Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range chunks {
		if _, ok := r.documents[c.DocumentID]; !ok {
			return fmt.Errorf("chunk %s: document %s: %w", c.ID, c.DocumentID, ErrNotFound)
		}
	}
	for _, c := range chunks {
		cp := *c
		r.chunks[c.DocumentID] = append(r.chunks[c.DocumentID], &cp)
	}
	return nil
}

func (r *MemoryRepository) ChunksByDocument(_ context.Context, documentID string) ([]*models.Chunk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Chunk, 0, len(r.chunks[documentID]))
	for _, c := range r.chunks[documentID] {
		cp := *c
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ChunkIndex() < out[j].ChunkIndex()
	})
	return out, nil
}

func (r *MemoryRepository) AllChunks(_ context.Context) ([]*models.Chunk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Chunk
	for _, id := range r.docOrder {
		for _, c := range r.chunks[id] {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryRepository) AppendMessages(_ context.Context, messages ...*models.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range messages {
		cp := *m
		r.messages = append(r.messages, &cp)
	}
	if over := len(r.messages) - HistoryLimit; over > 0 {
		r.messages = append([]*models.ChatMessage(nil), r.messages[over:]...)
	}
	return nil
}

func (r *MemoryRepository) RecentMessages(_ context.Context, n int) ([]*models.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	start := 0
	if n >= 0 && len(r.messages) > n {
		start = len(r.messages) - n
	}
	out := make([]*models.ChatMessage, 0, len(r.messages)-start)
	for _, m := range r.messages[start:] {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MemoryRepository) ClearMessages(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
	return nil
}
