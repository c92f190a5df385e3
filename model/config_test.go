package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRAGConfiguration(t *testing.T) {
	t.Run("Returns correct default values", func(t *testing.T) {
		config := DefaultRAGConfiguration()

		assert.Equal(t, 500, config.ChunkSize, "Default ChunkSize should be 500")
		assert.Equal(t, 50, config.ChunkOverlap, "Default ChunkOverlap should be 50")
		assert.Equal(t, 5, config.TopK, "Default TopK should be 5")
		assert.Equal(t, 3, config.ChatTopK, "Default ChatTopK should be 3")
	})

	t.Run("Relevance floor is fixed", func(t *testing.T) {
		assert.Equal(t, 0.5, RelevanceFloor)
		assert.Equal(t, 6, HistoryWindow)
	})
}

func TestEmbeddingConfiguration(t *testing.T) {
	t.Run("Defaults point at the OpenAI embedding API", func(t *testing.T) {
		config := DefaultEmbeddingConfiguration()

		assert.Equal(t, EmbeddingProviderOpenAI, config.Provider)
		assert.Equal(t, "text-embedding-3-small", config.Model)
		assert.Equal(t, 1536, config.Dimensions)
		assert.Equal(t, 30*time.Second, config.Timeout)
		assert.Equal(t, 60*time.Second, config.BatchTimeout)
	})

	t.Run("Offline without API key", func(t *testing.T) {
		config := DefaultEmbeddingConfiguration()
		assert.True(t, config.Offline())

		config.APIKey = "  "
		assert.True(t, config.Offline(), "Whitespace key should count as absent")

		config.APIKey = "sk-test"
		assert.False(t, config.Offline())
	})

	t.Run("Provider kind overrides key detection", func(t *testing.T) {
		config := DefaultEmbeddingConfiguration()
		config.Provider = EmbeddingProviderLocal
		assert.False(t, config.Offline(), "Local models need no key")

		config.Provider = EmbeddingProviderOffline
		config.APIKey = "sk-test"
		assert.True(t, config.Offline(), "Explicit offline ignores the key")
	})
}

func TestChatConfiguration(t *testing.T) {
	t.Run("Defaults point at the DeepSeek chat API", func(t *testing.T) {
		config := DefaultChatConfiguration()

		assert.Equal(t, "deepseek-chat", config.Model)
		assert.Equal(t, "https://api.deepseek.com/v1", config.BaseURL)
		assert.Equal(t, 60*time.Second, config.Timeout)
		assert.Equal(t, 120*time.Second, config.StreamTimeout)
		assert.True(t, config.Offline())
	})
}
