package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/yf-river/LifeOS/helper"
	"github.com/yf-river/LifeOS/metrics"
	"github.com/yf-river/LifeOS/model"
)

// DefaultTopK is used when a caller passes top_k <= 0.
const DefaultTopK = 5

// ChunkSearcher is the vector store side of retrieval.
type ChunkSearcher interface {
	SelectChunksBySimilarity(ctx context.Context, userID uuid.UUID, embedding []float32, topK int) ([]*model.Chunk, error)
	SelectEmbeddingStats(ctx context.Context, userID uuid.UUID) (*model.EmbeddingStats, error)
}

// QueryEmbedder embeds a query, nil means absent.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) []float32
}

// Engine provides similarity retrieval over a user's note chunks
type Engine struct {
	chunks   ChunkSearcher
	embedder QueryEmbedder
	logger   *slog.Logger
}

// NewEngine creates a new retrieval engine
func NewEngine(chunks ChunkSearcher, embedder QueryEmbedder, logger *slog.Logger) *Engine {
	return &Engine{
		chunks:   chunks,
		embedder: embedder,
		logger:   logger,
	}
}

// Retrieve returns the contexts for query, best similarity first.
// Results at or below model.RelevanceFloor are discarded. An absent query
// embedding or a failing store yields an empty result, never an error.
func (e *Engine) Retrieve(ctx context.Context, query string, userID uuid.UUID, topK int) []model.RetrievedContext {
	contexts := []model.RetrievedContext{}
	defer func() {
		metrics.RetrievedContexts.Observe(float64(len(contexts)))
	}()

	if topK <= 0 {
		topK = DefaultTopK
	}

	embedding := e.embedder.Embed(ctx, query)
	if embedding == nil {
		e.logger.Warn("Query embedding absent, retrieving no context", slog.String("user_id", userID.String()))
		return contexts
	}

	chunks, err := e.chunks.SelectChunksBySimilarity(ctx, userID, embedding, topK)
	if err != nil {
		e.logger.Error("Context retrieval failed", slog.String("user_id", userID.String()), slog.Any("error", err))
		return contexts
	}

	for _, chunk := range chunks {
		if chunk.Similarity <= model.RelevanceFloor {
			continue
		}
		contexts = append(contexts, model.RetrievedContext{
			Text:  chunk.ChunkText,
			Title: chunk.NoteTitle,
			Score: chunk.Similarity,
		})
	}

	return contexts
}

// Search performs an unfiltered semantic search for query.
// Unlike Retrieve it reports a query that cannot be embedded as an error.
func (e *Engine) Search(ctx context.Context, userID uuid.UUID, query string, topK int) ([]*model.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, helper.NewError("query validation", fmt.Errorf("%w: query is empty", model.ErrInvalidInput))
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	embedding := e.embedder.Embed(ctx, query)
	if embedding == nil {
		return nil, helper.NewError("embed query", fmt.Errorf("%w: query embedding unavailable", model.ErrProviderTransport))
	}

	chunks, err := e.chunks.SelectChunksBySimilarity(ctx, userID, embedding, topK)
	if err != nil {
		return nil, helper.NewError("select chunks by similarity", err)
	}

	results := make([]*model.SearchResult, len(chunks))
	for i, chunk := range chunks {
		results[i] = &model.SearchResult{
			NoteID:      chunk.NoteID,
			ChunkText:   chunk.ChunkText,
			Score:       chunk.Similarity,
			NoteTitle:   chunk.NoteTitle,
			NotePreview: chunk.NotePreview,
		}
	}

	return results, nil
}

// Stats returns the embedding coverage of the user's notes
func (e *Engine) Stats(ctx context.Context, userID uuid.UUID) (*model.EmbeddingStats, error) {
	stats, err := e.chunks.SelectEmbeddingStats(ctx, userID)
	if err != nil {
		return nil, helper.NewError("select embedding stats", err)
	}
	return stats, nil
}
