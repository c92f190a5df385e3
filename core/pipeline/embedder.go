package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yf-river/LifeOS/helper"
	"github.com/yf-river/LifeOS/metrics"
	"github.com/yf-river/LifeOS/model"
)

// Gateway wraps an EmbeddingProvider with the absent-on-failure contract:
// blank texts are never sent, failed or malformed results become nil
// vectors, and batch results keep the position of their input.
type Gateway struct {
	provider     EmbeddingProvider
	timeout      time.Duration
	batchTimeout time.Duration
	batchSize    int
	logger       *slog.Logger
}

// NewGateway creates a gateway around provider.
func NewGateway(provider EmbeddingProvider, config model.EmbeddingConfiguration, logger *slog.Logger) *Gateway {
	defaults := model.DefaultEmbeddingConfiguration()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.BatchTimeout <= 0 {
		config.BatchTimeout = defaults.BatchTimeout
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}

	return &Gateway{
		provider:     provider,
		timeout:      config.Timeout,
		batchTimeout: config.BatchTimeout,
		batchSize:    config.BatchSize,
		logger:       logger,
	}
}

// NewEmbeddingProvider selects the provider variant for config.
// Without credentials the offline provider is used.
func NewEmbeddingProvider(config model.EmbeddingConfiguration) (EmbeddingProvider, error) {
	switch {
	case config.Provider == model.EmbeddingProviderLocal:
		provider, err := NewLocalEmbeddingProvider(config.ModelDir, config.LocalModel)
		if err != nil {
			return nil, helper.NewError("local embedding provider", err)
		}
		return provider, nil
	case config.Offline():
		return NewOfflineEmbeddingProvider(config.Dimensions), nil
	default:
		provider, err := NewOpenAIEmbeddingProvider(config)
		if err != nil {
			return nil, helper.NewError("openai embedding provider", err)
		}
		return provider, nil
	}
}

// Model returns the provider model name
func (g *Gateway) Model() string {
	return g.provider.Model()
}

// Dimensions returns the provider vector dimension
func (g *Gateway) Dimensions() int {
	return g.provider.Dimensions()
}

// Embed returns the vector of text, or nil if text is blank or the provider failed.
func (g *Gateway) Embed(ctx context.Context, text string) []float32 {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	vectors, err := g.create(ctx, []string{text})
	if err != nil {
		g.logger.Warn("Embedding failed", slog.String("provider", g.provider.Name()), slog.Any("error", err))
		return nil
	}

	return vectors[0]
}

// EmbedBatch returns one slot per text. Blank texts and texts of failed
// sub-batches get nil slots.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	results := make([][]float32, len(texts))

	positions := make([]int, 0, len(texts))
	inputs := make([]string, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		positions = append(positions, i)
		inputs = append(inputs, text)
	}

	for start := 0; start < len(inputs); start += g.batchSize {
		end := start + g.batchSize
		if end > len(inputs) {
			end = len(inputs)
		}

		vectors, err := g.createBatch(ctx, inputs[start:end])
		if err != nil {
			g.logger.Warn(
				"Batch embedding failed",
				slog.String("provider", g.provider.Name()),
				slog.Int("batch_start", start),
				slog.Int("batch_size", end-start),
				slog.Any("error", err),
			)
			continue
		}

		for j, vector := range vectors {
			results[positions[start+j]] = vector
		}
	}

	return results
}

func (g *Gateway) createBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, g.batchTimeout)
	defer cancel()
	return g.create(ctx, texts)
}

// create calls the provider and validates the shape of the response.
// Vectors with the wrong dimension are replaced by nil.
func (g *Gateway) create(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := g.provider.CreateEmbeddings(ctx, texts)
	if err != nil {
		g.count(err)
		return nil, err
	}
	if len(vectors) != len(texts) {
		err := fmt.Errorf("%w: expected %d vectors, got %d", model.ErrProviderResponseInvalid, len(texts), len(vectors))
		g.count(err)
		return nil, err
	}

	dims := g.provider.Dimensions()
	for i, vector := range vectors {
		if len(vector) == 0 || (dims > 0 && len(vector) != dims) {
			g.logger.Warn(
				"Discarding embedding with unexpected dimension",
				slog.Int("expected", dims),
				slog.Int("got", len(vector)),
			)
			vectors[i] = nil
		}
	}

	g.count(nil)
	return vectors, nil
}

func (g *Gateway) count(err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, model.ErrProviderResponseInvalid):
		outcome = "invalid"
	default:
		outcome = "error"
	}
	metrics.EmbeddingRequests.WithLabelValues(g.provider.Name(), outcome).Inc()
}
