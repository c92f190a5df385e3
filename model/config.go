package model

import (
	"strings"
	"time"
)

const (
	// RelevanceFloor is the similarity at or below which retrieved chunks are discarded.
	RelevanceFloor = 0.5
	// HistoryWindow is the number of most recent conversation turns kept in a prompt.
	HistoryWindow = 6
)

type EmbeddingProviderKind string

const (
	EmbeddingProviderOpenAI  EmbeddingProviderKind = "openai"
	EmbeddingProviderLocal   EmbeddingProviderKind = "local"
	EmbeddingProviderOffline EmbeddingProviderKind = "offline"
)

// EmbeddingConfiguration configures the embedding provider.
type EmbeddingConfiguration struct {
	Provider     EmbeddingProviderKind `json:"provider"`
	APIKey       string                `json:"-"`
	BaseURL      string                `json:"base_url"`
	Model        string                `json:"model"`
	Dimensions   int                   `json:"dimensions"`
	Timeout      time.Duration         `json:"timeout"`
	BatchTimeout time.Duration         `json:"batch_timeout"`
	BatchSize    int                   `json:"batch_size"`
	LocalModel   string                `json:"local_model"`
	ModelDir     string                `json:"model_dir"`
}

// DefaultEmbeddingConfiguration returns the OpenAI compatible defaults without a key.
func DefaultEmbeddingConfiguration() EmbeddingConfiguration {
	return EmbeddingConfiguration{
		Provider:     EmbeddingProviderOpenAI,
		BaseURL:      "https://api.openai.com/v1",
		Model:        "text-embedding-3-small",
		Dimensions:   1536,
		Timeout:      30 * time.Second,
		BatchTimeout: 60 * time.Second,
		BatchSize:    100,
		LocalModel:   "sentence-transformers/all-MiniLM-L6-v2",
		ModelDir:     "./models",
	}
}

// Offline reports whether embeddings fall back to placeholder vectors.
func (c EmbeddingConfiguration) Offline() bool {
	switch c.Provider {
	case EmbeddingProviderOffline:
		return true
	case EmbeddingProviderLocal:
		return false
	}
	return strings.TrimSpace(c.APIKey) == ""
}

// ChatConfiguration configures the chat completion provider.
type ChatConfiguration struct {
	APIKey        string        `json:"-"`
	BaseURL       string        `json:"base_url"`
	Model         string        `json:"model"`
	Timeout       time.Duration `json:"timeout"`
	StreamTimeout time.Duration `json:"stream_timeout"`
	MaxTokens     int           `json:"max_tokens"`
	Temperature   float64       `json:"temperature"`
}

// DefaultChatConfiguration returns the DeepSeek compatible defaults without a key.
func DefaultChatConfiguration() ChatConfiguration {
	return ChatConfiguration{
		BaseURL:       "https://api.deepseek.com/v1",
		Model:         "deepseek-chat",
		Timeout:       60 * time.Second,
		StreamTimeout: 120 * time.Second,
		MaxTokens:     2000,
		Temperature:   0.7,
	}
}

// Offline reports whether answers fall back to the placeholder.
func (c ChatConfiguration) Offline() bool {
	return strings.TrimSpace(c.APIKey) == ""
}

// RAGConfiguration holds chunking and retrieval parameters.
type RAGConfiguration struct {
	ChunkSize    int `json:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap"`
	TopK         int `json:"top_k"`
	ChatTopK     int `json:"chat_top_k"`
}

// DefaultRAGConfiguration returns a sensible default configuration
func DefaultRAGConfiguration() RAGConfiguration {
	return RAGConfiguration{
		ChunkSize:    500,
		ChunkOverlap: 50,
		TopK:         5,
		ChatTopK:     3,
	}
}

// CacheConfiguration configures the redis query embedding cache.
// The cache is disabled when Addr is empty.
type CacheConfiguration struct {
	Addr     string        `json:"addr"`
	Password string        `json:"-"`
	DB       int           `json:"db"`
	TTL      time.Duration `json:"ttl"`
}

// Enabled reports whether a redis address is configured.
func (c CacheConfiguration) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}
