// Package chat answers questions from the stored chunks and keeps the
// bounded conversation history.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"docchat-platform/internal/logger"
	"docchat-platform/internal/repository"
	"docchat-platform/internal/retrieval"
	"docchat-platform/internal/telemetry"
	"docchat-platform/internal/vectorizer"
	"docchat-platform/models"
)

const (
	// HistoryWindow is how many past messages (eight turns) feed a reply.
	HistoryWindow = 16
	// MaxExcerpts bounds both the excerpts composed and the sources cited.
	MaxExcerpts = 3
)

// NoDocumentsMessage is the reply when nothing has been ingested.
const NoDocumentsMessage = "I don't have any documents to answer from yet. Upload a file or add a URL, then ask again."

var ErrEmptyMessage = errors.New("message content is empty")

// Service is the chat orchestrator.
type Service struct {
	repo       repository.Repository
	vectorizer vectorizer.Vectorizer
	augmenter  *retrieval.Augmenter
	composer   Composer
	metrics    *telemetry.Metrics
}

func NewService(
	repo repository.Repository,
	vec vectorizer.Vectorizer,
	augmenter *retrieval.Augmenter,
	composer Composer,
	metrics *telemetry.Metrics,
) *Service {
	if composer == nil {
		composer = TemplateComposer{}
	}
	return &Service{
		repo:       repo,
		vectorizer: vec,
		augmenter:  augmenter,
		composer:   composer,
		metrics:    metrics,
	}
}

// Send answers content and stores the user and assistant messages together.
// On error neither message is stored.
func (s *Service) Send(ctx context.Context, content, languageHint string) (resp *models.ChatResponse, err error) {
	start := time.Now()
	ctx, span := telemetry.Tracer().Start(ctx, "chat.send")
	defer span.End()

	withContext := false
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		s.metrics.RecordChat(withContext, time.Since(start).Seconds(), err == nil)
	}()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	userMsg := &models.ChatMessage{
		ID:        uuid.NewString(),
		Content:   content,
		Role:      models.RoleUser,
		CreatedAt: time.Now(),
	}

	history, err := s.repo.RecentMessages(ctx, HistoryWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	queryVector, err := s.vectorizer.Vectorize(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("failed to vectorize query: %w", err)
	}

	chunks, err := s.repo.AllChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	matches := s.augmenter.Augment(content, queryVector, chunks)
	span.SetAttributes(
		attribute.Int("chat.candidates", len(chunks)),
		attribute.Int("chat.matches", len(matches)),
	)

	var (
		reply   string
		sources []models.Source
	)
	if len(matches) == 0 {
		reply = NoDocumentsMessage
	} else {
		withContext = true
		top := matches[:min(MaxExcerpts, len(matches))]

		excerpts, srcs, err := s.resolve(ctx, top)
		if err != nil {
			return nil, err
		}
		sources = srcs

		reply, err = s.composer.Compose(ctx, ComposeRequest{
			Query:        content,
			LanguageHint: languageHint,
			Excerpts:     excerpts,
			History:      history,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to compose reply: %w", err)
		}
	}

	assistantMsg := &models.ChatMessage{
		ID:        uuid.NewString(),
		Content:   reply,
		Role:      models.RoleAssistant,
		Sources:   sources,
		CreatedAt: time.Now(),
	}
	if err := s.repo.AppendMessages(ctx, userMsg, assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to store messages: %w", err)
	}

	logger.Debug("Chat answered",
		"matches", len(matches),
		"sources", len(sources),
		"history", len(history),
		"duration", time.Since(start).String(),
	)
	return &models.ChatResponse{UserMessage: userMsg, AssistantMessage: assistantMsg}, nil
}

// resolve maps matches to excerpts and to one source per parent document,
// in match order. Chunks whose document vanished are skipped.
func (s *Service) resolve(ctx context.Context, matches []retrieval.Match) ([]Excerpt, []models.Source, error) {
	names := make(map[string]string, len(matches))
	var (
		excerpts []Excerpt
		sources  []models.Source
	)
	for _, m := range matches {
		docID := m.Chunk.DocumentID
		name, seen := names[docID]
		if !seen {
			doc, err := s.repo.GetDocument(ctx, docID)
			switch {
			case errors.Is(err, repository.ErrNotFound):
				continue
			case err != nil:
				return nil, nil, fmt.Errorf("failed to resolve source: %w", err)
			}
			name = doc.OriginalName
			names[docID] = name
			sources = append(sources, models.Source{
				DocumentID: docID,
				Name:       name,
				Similarity: m.Similarity,
			})
		}
		excerpts = append(excerpts, Excerpt{
			DocumentName: name,
			Content:      m.Chunk.Content,
			Similarity:   m.Similarity,
		})
	}
	return excerpts, sources, nil
}

// History returns the retained messages, oldest first.
func (s *Service) History(ctx context.Context) ([]*models.ChatMessage, error) {
	return s.repo.RecentMessages(ctx, repository.HistoryLimit)
}

func (s *Service) Clear(ctx context.Context) error {
	return s.repo.ClearMessages(ctx)
}
