package pipeline

import (
	"context"

	"github.com/yf-river/LifeOS/model"
)

// ChunkFunc splits text into ordered, non-empty chunks.
type ChunkFunc func(text string) []string

// EmbeddingProvider turns texts into vectors, one per input and in input order.
// Implementations return an error instead of partial results.
type EmbeddingProvider interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	// Name identifies the provider kind in logs and metrics
	Name() string
	// Model is the identifier stored next to each vector
	Model() string
	Dimensions() int
}

// Embedder embeds single texts and batches.
// A nil vector means the embedding is absent.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
	EmbedBatch(ctx context.Context, texts []string) [][]float32
	Model() string
	Dimensions() int
}

// Pipeline combines chunking and embedding
type Pipeline struct {
	Chunker  ChunkFunc
	Embedder Embedder
}

// NewPipeline creates a new processing pipeline
func NewPipeline(chunker ChunkFunc, embedder Embedder) *Pipeline {
	return &Pipeline{
		Chunker:  chunker,
		Embedder: embedder,
	}
}

// Process splits text into chunks and embeds them in one batch.
// Chunks whose embedding is absent are returned without vector.
func (p *Pipeline) Process(ctx context.Context, text string) []*model.Chunk {
	texts := p.Chunker(text)
	if len(texts) == 0 {
		return nil
	}

	embeddings := p.Embedder.EmbedBatch(ctx, texts)

	chunks := make([]*model.Chunk, len(texts))
	for i, t := range texts {
		chunk := &model.Chunk{
			ChunkIndex: i,
			ChunkText:  t,
		}
		if i < len(embeddings) && len(embeddings[i]) > 0 {
			chunk.Embedding = embeddings[i]
			chunk.ModelName = p.Embedder.Model()
		}
		chunks[i] = chunk
	}

	return chunks
}
