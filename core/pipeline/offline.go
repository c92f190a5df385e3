package pipeline

import (
	"context"
	"math/rand/v2"

	"github.com/yf-river/LifeOS/model"
)

// OfflineModelName marks vectors produced without a provider.
const OfflineModelName = "offline-random"

// OfflineEmbeddingProvider returns random vectors with components in [-1, 1).
// The vectors carry no meaning and only keep the pipeline usable without credentials.
type OfflineEmbeddingProvider struct {
	dimensions int
}

// NewOfflineEmbeddingProvider creates an offline provider, dimensions <= 0 uses 1536.
func NewOfflineEmbeddingProvider(dimensions int) *OfflineEmbeddingProvider {
	if dimensions <= 0 {
		dimensions = model.DefaultEmbeddingConfiguration().Dimensions
	}
	return &OfflineEmbeddingProvider{dimensions: dimensions}
}

func (p *OfflineEmbeddingProvider) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(texts))
	for i := range texts {
		vector := make([]float32, p.dimensions)
		for j := range vector {
			vector[j] = rand.Float32()*2 - 1
		}
		vectors[i] = vector
	}
	return vectors, nil
}

func (p *OfflineEmbeddingProvider) Name() string    { return string(model.EmbeddingProviderOffline) }
func (p *OfflineEmbeddingProvider) Model() string   { return OfflineModelName }
func (p *OfflineEmbeddingProvider) Dimensions() int { return p.dimensions }
