package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/yf-river/LifeOS/helper"
	"github.com/yf-river/LifeOS/model"
)

// LocalEmbeddingProvider runs a sentence transformer model in process with hugot.
// all-MiniLM-L6-v2 produces 384-dimensional embeddings.
type LocalEmbeddingProvider struct {
	mu         sync.Mutex
	session    *hugot.Session
	pipeline   *pipelines.FeatureExtractionPipeline
	model      string
	dimensions int
}

// NewLocalEmbeddingProvider prepares the model (download if needed) and starts a session.
func NewLocalEmbeddingProvider(modelDir string, modelName string) (*LocalEmbeddingProvider, error) {
	if modelDir == "" {
		modelDir = helper.DefaultModelDir
	}
	if modelName == "" {
		modelName = model.DefaultEmbeddingConfiguration().LocalModel
	}

	modelPath, err := helper.PrepareModelIn(modelDir, modelName, "")
	if err != nil {
		return nil, err
	}

	// Initialize hugot session with Go backend
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "lifeos-embedder",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	p := &LocalEmbeddingProvider{
		session:  session,
		pipeline: sentencePipeline,
		model:    modelName,
	}

	// Probe once to learn the vector size of the model
	probe, err := p.CreateEmbeddings(context.Background(), []string{"dimension probe"})
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	p.dimensions = len(probe[0])

	return p, nil
}

func (p *LocalEmbeddingProvider) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	result, err := p.pipeline.RunPipeline(texts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate embedding: %v", model.ErrProviderTransport, err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: no embedding generated", model.ErrProviderResponseInvalid)
	}

	return result.Embeddings, nil
}

func (p *LocalEmbeddingProvider) Name() string    { return string(model.EmbeddingProviderLocal) }
func (p *LocalEmbeddingProvider) Model() string   { return p.model }
func (p *LocalEmbeddingProvider) Dimensions() int { return p.dimensions }

// Close destroys the hugot session
func (p *LocalEmbeddingProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.Destroy()
}
