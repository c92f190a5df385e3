package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	lifeos "github.com/yf-river/LifeOS"
	"github.com/yf-river/LifeOS/helper"
	"github.com/yf-river/LifeOS/model"
	"github.com/yf-river/LifeOS/server"
)

// EnvPrefix prefixes every environment variable, e.g. LIFEOS_CHAT_API_KEY.
const EnvPrefix = "LIFEOS"

// Config holds the process configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Chat      ChatConfig      `mapstructure:"chat"`
	RAG       RAGConfig       `mapstructure:"rag"`
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Schema   string `mapstructure:"schema"`
	SSLMode  string `mapstructure:"sslmode"`
}

type EmbeddingConfig struct {
	Provider     string        `mapstructure:"provider"`
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	Dimensions   int           `mapstructure:"dimensions"`
	Timeout      time.Duration `mapstructure:"timeout"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	BatchSize    int           `mapstructure:"batch_size"`
	LocalModel   string        `mapstructure:"local_model"`
	ModelDir     string        `mapstructure:"model_dir"`
}

type ChatConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	Model         string        `mapstructure:"model"`
	Timeout       time.Duration `mapstructure:"timeout"`
	StreamTimeout time.Duration `mapstructure:"stream_timeout"`
	MaxTokens     int           `mapstructure:"max_tokens"`
	Temperature   float64       `mapstructure:"temperature"`
}

type RAGConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
	TopK         int `mapstructure:"top_k"`
	ChatTopK     int `mapstructure:"chat_top_k"`
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Addr         string   `mapstructure:"addr"`
	JWTSecret    string   `mapstructure:"jwt_secret"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// RedisConfig configures the query embedding cache, disabled without addr
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads an optional .env file, the optional config file at path and
// the LIFEOS_* environment, in increasing precedence over the defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, helper.NewError("load .env", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, helper.NewError("read config file", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, helper.NewError("unmarshal config", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	embedding := model.DefaultEmbeddingConfiguration()
	chat := model.DefaultChatConfiguration()
	rag := model.DefaultRAGConfiguration()

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.database", "lifeos")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.schema", "public")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("embedding.provider", string(embedding.Provider))
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", embedding.BaseURL)
	v.SetDefault("embedding.model", embedding.Model)
	v.SetDefault("embedding.dimensions", embedding.Dimensions)
	v.SetDefault("embedding.timeout", embedding.Timeout)
	v.SetDefault("embedding.batch_timeout", embedding.BatchTimeout)
	v.SetDefault("embedding.batch_size", embedding.BatchSize)
	v.SetDefault("embedding.local_model", embedding.LocalModel)
	v.SetDefault("embedding.model_dir", embedding.ModelDir)

	v.SetDefault("chat.api_key", "")
	v.SetDefault("chat.base_url", chat.BaseURL)
	v.SetDefault("chat.model", chat.Model)
	v.SetDefault("chat.timeout", chat.Timeout)
	v.SetDefault("chat.stream_timeout", chat.StreamTimeout)
	v.SetDefault("chat.max_tokens", chat.MaxTokens)
	v.SetDefault("chat.temperature", chat.Temperature)

	v.SetDefault("rag.chunk_size", rag.ChunkSize)
	v.SetDefault("rag.chunk_overlap", rag.ChunkOverlap)
	v.SetDefault("rag.top_k", rag.TopK)
	v.SetDefault("rag.chat_top_k", rag.ChatTopK)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl", 24*time.Hour)

	v.SetDefault("log.level", "info")
}

// Lifeos converts c into the configuration of the notes RAG.
func (c *Config) Lifeos() lifeos.Configuration {
	return lifeos.Configuration{
		Database: &helper.DatabaseConfiguration{
			Host:     c.Database.Host,
			Port:     c.Database.Port,
			Database: c.Database.Database,
			Username: c.Database.Username,
			Password: c.Database.Password,
			Schema:   c.Database.Schema,
			SSLMode:  c.Database.SSLMode,
		},
		Embedding: model.EmbeddingConfiguration{
			Provider:     model.EmbeddingProviderKind(strings.ToLower(c.Embedding.Provider)),
			APIKey:       c.Embedding.APIKey,
			BaseURL:      c.Embedding.BaseURL,
			Model:        c.Embedding.Model,
			Dimensions:   c.Embedding.Dimensions,
			Timeout:      c.Embedding.Timeout,
			BatchTimeout: c.Embedding.BatchTimeout,
			BatchSize:    c.Embedding.BatchSize,
			LocalModel:   c.Embedding.LocalModel,
			ModelDir:     c.Embedding.ModelDir,
		},
		Chat: model.ChatConfiguration{
			APIKey:        c.Chat.APIKey,
			BaseURL:       c.Chat.BaseURL,
			Model:         c.Chat.Model,
			Timeout:       c.Chat.Timeout,
			StreamTimeout: c.Chat.StreamTimeout,
			MaxTokens:     c.Chat.MaxTokens,
			Temperature:   c.Chat.Temperature,
		},
		RAG: model.RAGConfiguration{
			ChunkSize:    c.RAG.ChunkSize,
			ChunkOverlap: c.RAG.ChunkOverlap,
			TopK:         c.RAG.TopK,
			ChatTopK:     c.RAG.ChatTopK,
		},
		Cache: model.CacheConfiguration{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			TTL:      c.Redis.CacheTTL,
		},
		LogLevel: c.Log.Level,
	}
}

// HTTP converts c into the configuration of the API server.
func (c *Config) HTTP() server.Config {
	return server.Config{
		Addr:         c.Server.Addr,
		JWTSecret:    c.Server.JWTSecret,
		AllowOrigins: c.Server.AllowOrigins,
		SearchTopK:   c.RAG.TopK,
	}
}
