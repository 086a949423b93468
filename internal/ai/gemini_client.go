// Package ai wraps the Gemini API behind a rate limiter and a circuit
// breaker. It backs the optional model-based vectorizer and composer.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"docchat-platform/internal/logger"
	"docchat-platform/internal/telemetry"
)

// ErrUnavailable is returned while the breaker is open or the local budget
// is spent. Callers fall back to non-model behavior.
var ErrUnavailable = errors.New("gemini unavailable")

// Options configures a GeminiClient.
type Options struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	Tier           string
	Metrics        *telemetry.Metrics
}

type GeminiClient struct {
	breaker        *gobreaker.CircuitBreaker
	rateLimiter    *rate.Limiter
	tokenCounter   *TokenCounter
	client         *genai.Client
	model          string
	embeddingModel string
}

func NewGeminiClient(ctx context.Context, opts Options) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, err
	}

	limits := getRateLimits(opts.Tier)
	metrics := opts.Metrics

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.RecordCircuitBreakerState(name, to.String())
		},
	})

	// RPM limit with some buffer
	rateLimiter := rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), max(limits.RPM/10, 1))

	return &GeminiClient{
		breaker:        breaker,
		rateLimiter:    rateLimiter,
		tokenCounter:   NewTokenCounter(limits),
		client:         client,
		model:          opts.Model,
		embeddingModel: opts.EmbeddingModel,
	}, nil
}

// Generate answers prompt with the configured model.
func (gc *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "gemini.generate_content")
	defer span.End()

	estimatedTokens := estimateTokens(prompt)
	span.SetAttributes(
		attribute.Int("gemini.estimated_tokens", estimatedTokens),
		attribute.String("gemini.model", gc.model),
	)

	if err := gc.admit(ctx, estimatedTokens); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return "", err
	}

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		model := gc.client.GenerativeModel(gc.model)
		model.SetTemperature(0.3)
		model.SetMaxOutputTokens(2048)

		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return nil, err
		}
		gc.tokenCounter.RecordUsage(extractTokenUsage(resp), 1)
		return responseText(resp), nil
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return "", err
	}

	text := result.(string)
	if strings.TrimSpace(text) == "" {
		return "", errors.New("gemini returned an empty response")
	}
	return text, nil
}

// Embed returns the embedding of text.
func (gc *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "gemini.embed_content")
	defer span.End()
	span.SetAttributes(attribute.String("gemini.model", gc.embeddingModel))

	if err := gc.admit(ctx, estimateTokens(text)); err != nil {
		return nil, err
	}

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		resp, err := gc.client.EmbeddingModel(gc.embeddingModel).EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return nil, err
		}
		if resp.Embedding == nil {
			return nil, errors.New("no embedding returned")
		}
		gc.tokenCounter.RecordUsage(estimateTokens(text), 1)
		return resp.Embedding.Values, nil
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, err
	}
	return result.([]float32), nil
}

func (gc *GeminiClient) admit(ctx context.Context, tokens int) error {
	if !gc.tokenCounter.CanConsume(tokens, 1) {
		return fmt.Errorf("%w: local quota exhausted", ErrUnavailable)
	}
	return gc.rateLimiter.Wait(ctx)
}

// Close the client
func (gc *GeminiClient) Close() error {
	if gc.client != nil {
		return gc.client.Close()
	}
	return nil
}

// Rough estimate: 1 token ≈ 4 characters
func estimateTokens(text string) int {
	return max(len(text)/4, 1)
}

func extractTokenUsage(resp *genai.GenerateContentResponse) int {
	if resp.UsageMetadata != nil {
		return int(resp.UsageMetadata.TotalTokenCount)
	}
	return estimateTokens(responseText(resp))
}

func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return b.String()
}
