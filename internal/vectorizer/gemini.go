package vectorizer

import (
	"context"
	"fmt"
)

// Embedder is the subset of the Gemini client used for embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingVectorizer adapts a learned embedding model to the Vectorizer
// contract. Shorter model outputs are zero padded to the system dimension,
// which leaves cosine similarity unchanged.
type EmbeddingVectorizer struct {
	embedder Embedder
	dims     int
}

var _ Vectorizer = (*EmbeddingVectorizer)(nil)

func NewEmbeddingVectorizer(embedder Embedder, dims int) *EmbeddingVectorizer {
	if dims <= 0 {
		dims = Dimensions
	}
	return &EmbeddingVectorizer{embedder: embedder, dims: dims}
}

func (e *EmbeddingVectorizer) Dimensions() int { return e.dims }

func (e *EmbeddingVectorizer) Vectorize(ctx context.Context, text string) ([]float32, error) {
	// Embedding APIs reject empty content.
	if text == "" {
		return make([]float32, e.dims), nil
	}
	values, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	if len(values) > e.dims {
		return nil, fmt.Errorf("embedding has %d dimensions, limit is %d", len(values), e.dims)
	}
	vec := make([]float32, e.dims)
	copy(vec, values)
	return vec, nil
}
