package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat-platform/models"
)

// runContract exercises the behavior every Repository implementation must
// share. newRepo returns an empty, isolated repository.
func runContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	newDoc := func(name string, at time.Time) *models.Document {
		return &models.Document{
			ID:           uuid.NewString(),
			Filename:     name,
			OriginalName: name,
			MimeType:     "text/plain",
			Size:         42,
			Status:       models.StatusProcessing,
			UploadedAt:   at,
		}
	}
	newChunk := func(docID string, idx, total int) *models.Chunk {
		return &models.Chunk{
			ID:         uuid.NewString(),
			DocumentID: docID,
			Content:    fmt.Sprintf("chunk %d", idx),
			Vector:     []float32{float32(idx), 1},
			Metadata:   map[string]interface{}{models.MetaChunkIndex: idx, models.MetaTotalChunks: total},
			CreatedAt:  time.Now().UTC().Truncate(time.Millisecond),
		}
	}
	newMessage := func(role, content string) *models.ChatMessage {
		return &models.ChatMessage{ID: uuid.NewString(), Role: role, Content: content, CreatedAt: time.Now().UTC()}
	}

	t.Run("CreateAndGet", func(t *testing.T) {
		repo := newRepo(t)
		doc := newDoc("a.txt", time.Now().UTC())
		require.NoError(t, repo.CreateDocument(ctx, doc))

		got, err := repo.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, doc.ID, got.ID)
		assert.Equal(t, models.StatusProcessing, got.Status)

		_, err = repo.GetDocument(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		repo := newRepo(t)
		base := time.Now().UTC().Truncate(time.Millisecond)
		older := newDoc("old.txt", base.Add(-time.Minute))
		newer := newDoc("new.txt", base)
		require.NoError(t, repo.CreateDocument(ctx, older))
		require.NoError(t, repo.CreateDocument(ctx, newer))

		docs, err := repo.ListDocuments(ctx)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, newer.ID, docs[0].ID)
		assert.Equal(t, older.ID, docs[1].ID)
	})

	t.Run("ListOmitsContent", func(t *testing.T) {
		repo := newRepo(t)
		doc := newDoc("body.txt", time.Now().UTC())
		require.NoError(t, repo.CreateDocument(ctx, doc))
		require.NoError(t, repo.UpdateContent(ctx, doc.ID, "full extracted text"))

		docs, err := repo.ListDocuments(ctx)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Empty(t, docs[0].Content)
		assert.Equal(t, "body.txt", docs[0].OriginalName)

		got, err := repo.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, "full extracted text", got.Content)
	})

	t.Run("StatusTransitions", func(t *testing.T) {
		statuses := []string{models.StatusProcessing, models.StatusCompleted, models.StatusFailed}
		for _, to := range statuses {
			for _, second := range statuses {
				t.Run(to+"_then_"+second, func(t *testing.T) {
					repo := newRepo(t)
					doc := newDoc("s.txt", time.Now().UTC())
					require.NoError(t, repo.CreateDocument(ctx, doc))

					err := repo.SetStatus(ctx, doc.ID, to, "")
					if to == models.StatusProcessing {
						assert.ErrorIs(t, err, ErrInvalidTransition)
						return
					}
					require.NoError(t, err)

					// Terminal statuses never move again.
					assert.ErrorIs(t, repo.SetStatus(ctx, doc.ID, second, ""), ErrInvalidTransition)

					got, err := repo.GetDocument(ctx, doc.ID)
					require.NoError(t, err)
					assert.Equal(t, to, got.Status)
					assert.NotNil(t, got.ProcessedAt)
				})
			}
		}
	})

	t.Run("SetStatusMissing", func(t *testing.T) {
		repo := newRepo(t)
		assert.ErrorIs(t, repo.SetStatus(ctx, "missing", models.StatusCompleted, ""), ErrNotFound)
	})

	t.Run("ContentWritableOnlyWhileProcessing", func(t *testing.T) {
		repo := newRepo(t)
		doc := newDoc("c.txt", time.Now().UTC())
		require.NoError(t, repo.CreateDocument(ctx, doc))

		require.NoError(t, repo.UpdateContent(ctx, doc.ID, "first"))
		require.NoError(t, repo.UpdateContent(ctx, doc.ID, "second"))
		got, err := repo.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, "second", got.Content)

		require.NoError(t, repo.SetStatus(ctx, doc.ID, models.StatusCompleted, ""))
		assert.ErrorIs(t, repo.UpdateContent(ctx, doc.ID, "third"), ErrDocumentFinalized)
		assert.ErrorIs(t, repo.UpdateContent(ctx, "missing", "x"), ErrNotFound)
	})

	t.Run("ChunksOrderedAndCascadeDeleted", func(t *testing.T) {
		repo := newRepo(t)
		doc := newDoc("d.txt", time.Now().UTC())
		other := newDoc("e.txt", time.Now().UTC())
		require.NoError(t, repo.CreateDocument(ctx, doc))
		require.NoError(t, repo.CreateDocument(ctx, other))

		require.NoError(t, repo.InsertChunks(ctx, []*models.Chunk{newChunk(doc.ID, 2, 3), newChunk(doc.ID, 0, 3)}))
		require.NoError(t, repo.InsertChunks(ctx, []*models.Chunk{newChunk(doc.ID, 1, 3), newChunk(other.ID, 0, 1)}))

		chunks, err := repo.ChunksByDocument(ctx, doc.ID)
		require.NoError(t, err)
		require.Len(t, chunks, 3)
		for i, c := range chunks {
			assert.Equal(t, i, c.ChunkIndex())
		}

		require.NoError(t, repo.DeleteDocument(ctx, doc.ID))

		chunks, err = repo.ChunksByDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Empty(t, chunks)

		all, err := repo.AllChunks(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, other.ID, all[0].DocumentID)

		_, err = repo.GetDocument(ctx, doc.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, repo.DeleteDocument(ctx, doc.ID), ErrNotFound)
	})

	t.Run("InsertChunksRequiresLiveParent", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.InsertChunks(ctx, []*models.Chunk{newChunk("gone", 0, 1)})
		assert.ErrorIs(t, err, ErrNotFound)

		all, err := repo.AllChunks(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("HistoryBoundedAndOrdered", func(t *testing.T) {
		repo := newRepo(t)
		for i := 0; i < 10; i++ {
			require.NoError(t, repo.AppendMessages(ctx,
				newMessage(models.RoleUser, fmt.Sprintf("q%d", i)),
				newMessage(models.RoleAssistant, fmt.Sprintf("a%d", i)),
			))
		}

		all, err := repo.RecentMessages(ctx, 100)
		require.NoError(t, err)
		require.Len(t, all, HistoryLimit)
		assert.Equal(t, "q4", all[0].Content)
		assert.Equal(t, "a9", all[len(all)-1].Content)

		last, err := repo.RecentMessages(ctx, 4)
		require.NoError(t, err)
		require.Len(t, last, 4)
		assert.Equal(t, []string{"q8", "a8", "q9", "a9"}, []string{last[0].Content, last[1].Content, last[2].Content, last[3].Content})

		none, err := repo.RecentMessages(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("HistoryClearedWhenLastDocumentDeleted", func(t *testing.T) {
		repo := newRepo(t)
		a := newDoc("a.txt", time.Now().UTC())
		b := newDoc("b.txt", time.Now().UTC())
		require.NoError(t, repo.CreateDocument(ctx, a))
		require.NoError(t, repo.CreateDocument(ctx, b))
		require.NoError(t, repo.AppendMessages(ctx, newMessage(models.RoleUser, "hi"), newMessage(models.RoleAssistant, "hello")))

		require.NoError(t, repo.DeleteDocument(ctx, a.ID))
		msgs, err := repo.RecentMessages(ctx, HistoryLimit)
		require.NoError(t, err)
		assert.Len(t, msgs, 2)

		require.NoError(t, repo.DeleteDocument(ctx, b.ID))
		msgs, err = repo.RecentMessages(ctx, HistoryLimit)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("ClearMessages", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.AppendMessages(ctx, newMessage(models.RoleUser, "hi")))
		require.NoError(t, repo.ClearMessages(ctx))
		msgs, err := repo.RecentMessages(ctx, HistoryLimit)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("SourcesRoundTrip", func(t *testing.T) {
		repo := newRepo(t)
		msg := newMessage(models.RoleAssistant, "answer")
		msg.Sources = []models.Source{{DocumentID: "d1", Name: "a.pdf", Similarity: 0.75}}
		require.NoError(t, repo.AppendMessages(ctx, newMessage(models.RoleUser, "q"), msg))

		msgs, err := repo.RecentMessages(ctx, 2)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Nil(t, msgs[0].Sources)
		assert.Equal(t, msg.Sources, msgs[1].Sources)
	})
}
