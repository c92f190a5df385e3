package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/yf-river/LifeOS/model"
)

// OpenAIEmbeddingProvider calls an OpenAI compatible /embeddings endpoint.
type OpenAIEmbeddingProvider struct {
	embedder   *embeddings.EmbedderImpl
	model      string
	dimensions int
}

// NewOpenAIEmbeddingProvider creates a provider for config.
// The HTTP client timeout is the configured batch timeout, single calls are bounded by the caller.
func NewOpenAIEmbeddingProvider(config model.EmbeddingConfiguration) (*OpenAIEmbeddingProvider, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("%w: embedding api key", model.ErrConfigurationAbsent)
	}

	defaults := model.DefaultEmbeddingConfiguration()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.BatchTimeout <= 0 {
		config.BatchTimeout = defaults.BatchTimeout
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}

	llm, err := openai.New(
		openai.WithToken(strings.TrimPrefix(config.APIKey, "Bearer ")),
		openai.WithBaseURL(strings.TrimRight(config.BaseURL, "/")),
		openai.WithModel(config.Model),
		openai.WithEmbeddingModel(config.Model),
		openai.WithHTTPClient(&dimensionsClient{
			client:     &http.Client{Timeout: config.BatchTimeout},
			dimensions: config.Dimensions,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(
		llm,
		embeddings.WithBatchSize(config.BatchSize),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return &OpenAIEmbeddingProvider{
		embedder:   embedder,
		model:      config.Model,
		dimensions: config.Dimensions,
	}, nil
}

// CreateEmbeddings sends texts in one request and returns the vectors in input order.
func (p *OpenAIEmbeddingProvider) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		if errors.Is(err, openai.ErrEmptyResponse) || errors.Is(err, openai.ErrUnexpectedResponseLength) {
			return nil, fmt.Errorf("%w: %v", model.ErrProviderResponseInvalid, err)
		}
		return nil, fmt.Errorf("%w: %v", model.ErrProviderTransport, err)
	}
	return vectors, nil
}

func (p *OpenAIEmbeddingProvider) Name() string    { return string(model.EmbeddingProviderOpenAI) }
func (p *OpenAIEmbeddingProvider) Model() string   { return p.model }
func (p *OpenAIEmbeddingProvider) Dimensions() int { return p.dimensions }

// dimensionsClient asks the endpoint for vectors of the configured size by
// adding "dimensions" to every /embeddings request body.
type dimensionsClient struct {
	client     *http.Client
	dimensions int
}

func (c *dimensionsClient) Do(req *http.Request) (*http.Response, error) {
	if c.dimensions <= 0 || req.Body == nil || !strings.HasSuffix(req.URL.Path, "/embeddings") {
		return c.client.Do(req)
	}

	raw, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode embedding request: %w", err)
	}
	payload["dimensions"] = c.dimensions
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req.Body = io.NopCloser(bytes.NewReader(body))
	req.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(body)), nil }
	req.ContentLength = int64(len(body))
	return c.client.Do(req)
}
