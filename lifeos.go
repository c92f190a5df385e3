package lifeos

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/yf-river/LifeOS/core/generation"
	"github.com/yf-river/LifeOS/core/indexing"
	"github.com/yf-river/LifeOS/core/pipeline"
	"github.com/yf-river/LifeOS/core/retrieval"
	"github.com/yf-river/LifeOS/database"
	"github.com/yf-river/LifeOS/helper"
	"github.com/yf-river/LifeOS/model"
	loadSql "github.com/yf-river/LifeOS/sql"
)

// Configuration holds everything needed to build a NoteRAG.
type Configuration struct {
	Database  *helper.DatabaseConfiguration
	Embedding model.EmbeddingConfiguration
	Chat      model.ChatConfiguration
	RAG       model.RAGConfiguration
	Cache     model.CacheConfiguration
	LogLevel  string
	// ForceReload reloads the SQL functions even if they already exist
	ForceReload bool
}

// DefaultConfiguration returns the defaults for everything but the database.
func DefaultConfiguration() Configuration {
	return Configuration{
		Embedding: model.DefaultEmbeddingConfiguration(),
		Chat:      model.DefaultChatConfiguration(),
		RAG:       model.DefaultRAGConfiguration(),
		LogLevel:  "info",
	}
}

// NoteRAG wires the note store, indexing, retrieval and answer generation
type NoteRAG struct {
	DB        *helper.Database
	Notes     *database.NotesDBHandler
	Chunks    *database.ChunksDBHandler
	Embedder  pipeline.Embedder
	Pipeline  *pipeline.Pipeline
	Engine    *retrieval.Engine
	Generator generation.Generator
	Relay     *generation.Relay
	Indexer   *indexing.Indexer
	Config    Configuration

	provider pipeline.EmbeddingProvider
	cache    *redis.Client
	log      *slog.Logger
}

// NewNoteRAG creates a NoteRAG logging to stdout
func NewNoteRAG(config Configuration) (*NoteRAG, error) {
	return NewNoteRAGWithLogger(config, helper.NewLogger(os.Stdout, config.LogLevel))
}

// NewNoteRAGWithLogger connects to the database, loads the SQL functions,
// creates the tables and builds all components from config.
func NewNoteRAGWithLogger(config Configuration, logger *slog.Logger) (*NoteRAG, error) {
	db, err := helper.ConnectDatabase("lifeos", config.Database, logger)
	if err != nil {
		return nil, helper.NewError("connect database", err)
	}

	n, err := newNoteRAG(db, config, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return n, nil
}

func newNoteRAG(db *helper.Database, config Configuration, logger *slog.Logger) (*NoteRAG, error) {
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	provider, err := pipeline.NewEmbeddingProvider(config.Embedding)
	if err != nil {
		return nil, helper.NewError("create embedding provider", err)
	}
	if config.Embedding.Offline() {
		logger.Warn("No embedding api key configured, using random offline vectors")
	}

	// Notes first, chunks reference them
	notes, err := database.NewNotesDBHandler(db, config.ForceReload)
	if err != nil {
		return nil, helper.NewError("create notes handler", err)
	}

	chunks, err := database.NewChunksDBHandler(db, provider.Dimensions(), config.ForceReload)
	if err != nil {
		return nil, helper.NewError("create chunks handler", err)
	}

	generator, err := generation.NewGenerator(config.Chat)
	if err != nil {
		return nil, helper.NewError("create generator", err)
	}
	if generator.Offline() {
		logger.Warn("No chat api key configured, answers are placeholders")
	}

	gateway := pipeline.NewGateway(provider, config.Embedding, logger)

	var embedder pipeline.Embedder = gateway
	var cache *redis.Client
	if config.Cache.Enabled() {
		cache = redis.NewClient(&redis.Options{
			Addr:     config.Cache.Addr,
			Password: config.Cache.Password,
			DB:       config.Cache.DB,
		})
		embedder = pipeline.NewCachedEmbedder(gateway, cache, config.Cache.TTL, logger)
		logger.Info("Query embedding cache enabled", slog.String("addr", config.Cache.Addr))
	}

	p := pipeline.NewPipeline(pipeline.OverlapChunker(config.RAG.ChunkSize, config.RAG.ChunkOverlap), embedder)
	engine := retrieval.NewEngine(chunks, embedder, logger)

	return &NoteRAG{
		DB:        db,
		Notes:     notes,
		Chunks:    chunks,
		Embedder:  embedder,
		Pipeline:  p,
		Engine:    engine,
		Generator: generator,
		Relay:     generation.NewRelay(engine, generator, config.RAG.ChatTopK, logger),
		Indexer:   indexing.NewIndexer(notes, chunks, p, logger),
		Config:    config,
		provider:  provider,
		cache:     cache,
		log:       logger,
	}, nil
}

// Logger returns the logger of n
func (n *NoteRAG) Logger() *slog.Logger {
	return n.log
}

// Close waits for running bulk indexing jobs and releases all connections
func (n *NoteRAG) Close() error {
	if n.Indexer != nil {
		n.Indexer.Wait()
	}
	if closer, ok := n.provider.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			n.log.Warn("Closing embedding provider failed", slog.Any("error", err))
		}
	}
	if n.cache != nil {
		if err := n.cache.Close(); err != nil {
			n.log.Warn("Closing redis client failed", slog.Any("error", err))
		}
	}
	if n.DB != nil && n.DB.Instance != nil {
		return n.DB.Instance.Close()
	}
	return nil
}

// Ping checks the database connection
func (n *NoteRAG) Ping(ctx context.Context) error {
	return n.DB.Instance.PingContext(ctx)
}

// Search performs a semantic search over the user's notes
func (n *NoteRAG) Search(ctx context.Context, userID uuid.UUID, query string, topK int) ([]*model.SearchResult, error) {
	if topK <= 0 {
		topK = n.Config.RAG.TopK
	}
	return n.Engine.Search(ctx, userID, query, topK)
}

// Stats reports how much of the user's notes is indexed
func (n *NoteRAG) Stats(ctx context.Context, userID uuid.UUID) (*model.EmbeddingStats, error) {
	return n.Engine.Stats(ctx, userID)
}

// IndexNote indexes one note of the user
func (n *NoteRAG) IndexNote(ctx context.Context, userID uuid.UUID, noteID uuid.UUID, force bool) (*model.IndexOutcome, error) {
	return n.Indexer.IndexNote(ctx, userID, noteID, force)
}

// IndexAll enqueues indexing of all notes of the user
func (n *NoteRAG) IndexAll(ctx context.Context, userID uuid.UUID, force bool) (*model.BulkAccepted, error) {
	return n.Indexer.IndexAll(ctx, userID, force)
}

// Chat returns a buffered answer grounded on the user's notes
func (n *NoteRAG) Chat(ctx context.Context, userID uuid.UUID, request model.ChatRequest) (*model.ChatAnswer, error) {
	return n.Relay.Answer(ctx, userID, request)
}
