package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yf-river/LifeOS/model"
)

func TestLoad(t *testing.T) {
	t.Run("Defaults without file or environment", func(t *testing.T) {
		t.Chdir(t.TempDir())

		config, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, "openai", config.Embedding.Provider)
		assert.Equal(t, "text-embedding-3-small", config.Embedding.Model)
		assert.Equal(t, 1536, config.Embedding.Dimensions)
		assert.Equal(t, 30*time.Second, config.Embedding.Timeout)
		assert.Equal(t, 60*time.Second, config.Embedding.BatchTimeout)
		assert.Equal(t, "https://api.deepseek.com/v1", config.Chat.BaseURL)
		assert.Equal(t, 2000, config.Chat.MaxTokens)
		assert.Equal(t, 0.7, config.Chat.Temperature)
		assert.Equal(t, 500, config.RAG.ChunkSize)
		assert.Equal(t, 50, config.RAG.ChunkOverlap)
		assert.Equal(t, 5, config.RAG.TopK)
		assert.Equal(t, 3, config.RAG.ChatTopK)
		assert.Equal(t, ":8080", config.Server.Addr)
		assert.Equal(t, []string{"*"}, config.Server.AllowOrigins)
		assert.Equal(t, 24*time.Hour, config.Redis.CacheTTL)
		assert.Equal(t, "info", config.Log.Level)
	})

	t.Run("Environment overrides defaults", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("LIFEOS_CHAT_API_KEY", "sk-chat")
		t.Setenv("LIFEOS_RAG_CHUNK_SIZE", "300")
		t.Setenv("LIFEOS_EMBEDDING_TIMEOUT", "5s")
		t.Setenv("LIFEOS_REDIS_ADDR", "localhost:6379")

		config, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, "sk-chat", config.Chat.APIKey)
		assert.Equal(t, 300, config.RAG.ChunkSize)
		assert.Equal(t, 5*time.Second, config.Embedding.Timeout)
		assert.Equal(t, "localhost:6379", config.Redis.Addr)
	})

	t.Run("Config file is read", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		path := filepath.Join(dir, "lifeos.yaml")
		content := "rag:\n  top_k: 8\nserver:\n  jwt_secret: s3cret\nembedding:\n  provider: offline\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		config, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, 8, config.RAG.TopK)
		assert.Equal(t, "s3cret", config.Server.JWTSecret)
		assert.Equal(t, "offline", config.Embedding.Provider)
	})

	t.Run("Dotenv file is loaded", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LIFEOS_LOG_LEVEL=debug\n"), 0o600))
		t.Cleanup(func() { os.Unsetenv("LIFEOS_LOG_LEVEL") })

		config, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, "debug", config.Log.Level)
	})

	t.Run("Missing config file is an error", func(t *testing.T) {
		t.Chdir(t.TempDir())

		_, err := Load("does-not-exist.yaml")
		assert.Error(t, err)
	})
}

func TestConversion(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LIFEOS_EMBEDDING_PROVIDER", "Offline")
	t.Setenv("LIFEOS_SERVER_JWT_SECRET", "secret")

	config, err := Load("")
	require.NoError(t, err)

	t.Run("Lifeos configuration", func(t *testing.T) {
		c := config.Lifeos()

		require.NotNil(t, c.Database)
		assert.Equal(t, "localhost", c.Database.Host)
		assert.Equal(t, "public", c.Database.Schema)
		assert.Equal(t, model.EmbeddingProviderOffline, c.Embedding.Provider)
		assert.True(t, c.Embedding.Offline())
		assert.True(t, c.Chat.Offline())
		assert.False(t, c.Cache.Enabled())
		assert.Equal(t, 24*time.Hour, c.Cache.TTL)
		assert.Equal(t, 3, c.RAG.ChatTopK)
	})

	t.Run("Server configuration", func(t *testing.T) {
		c := config.HTTP()

		assert.Equal(t, ":8080", c.Addr)
		assert.Equal(t, "secret", c.JWTSecret)
		assert.Equal(t, 5, c.SearchTopK)
	})
}
