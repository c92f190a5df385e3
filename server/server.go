package server

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yf-river/LifeOS/model"
)

// Searcher answers semantic searches and coverage queries.
type Searcher interface {
	Search(ctx context.Context, userID uuid.UUID, query string, topK int) ([]*model.SearchResult, error)
	Stats(ctx context.Context, userID uuid.UUID) (*model.EmbeddingStats, error)
}

// Indexer indexes notes.
type Indexer interface {
	IndexNote(ctx context.Context, userID uuid.UUID, noteID uuid.UUID, force bool) (*model.IndexOutcome, error)
	IndexAll(ctx context.Context, userID uuid.UUID, force bool) (*model.BulkAccepted, error)
}

// Answerer answers chat requests.
type Answerer interface {
	Answer(ctx context.Context, userID uuid.UUID, request model.ChatRequest) (*model.ChatAnswer, error)
	Simple(ctx context.Context, request model.ChatRequest) (string, error)
	Stream(ctx context.Context, userID uuid.UUID, request model.ChatRequest) iter.Seq[model.StreamEvent]
}

// Dependencies are the components served by the API.
type Dependencies struct {
	Search Searcher
	Index  Indexer
	Chat   Answerer
	// Health reports whether the backing store is reachable
	Health func(ctx context.Context) error
}

// Config configures the HTTP API.
type Config struct {
	Addr         string
	JWTSecret    string
	AllowOrigins []string
	// SearchTopK is used for searches without top_k
	SearchTopK int
}

// Server is the HTTP API of the notes RAG.
type Server struct {
	echo   *echo.Echo
	deps   Dependencies
	config Config
	logger *slog.Logger
}

// New creates the API server and registers all routes.
func New(deps Dependencies, config Config, logger *slog.Logger) (*Server, error) {
	if strings.TrimSpace(config.JWTSecret) == "" {
		return nil, fmt.Errorf("%w: jwt secret", model.ErrConfigurationAbsent)
	}
	if config.SearchTopK <= 0 {
		config.SearchTopK = model.DefaultRAGConfiguration().TopK
	}
	if len(config.AllowOrigins) == 0 {
		config.AllowOrigins = []string{"*"}
	}

	s := &Server{
		echo:   echo.New(),
		deps:   deps,
		config: config,
		logger: logger,
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(s.observe)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: config.AllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	e.GET("/healthz", s.healthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	auth := Authenticate([]byte(config.JWTSecret))

	search := e.Group("/search", auth)
	search.POST("/semantic", s.semanticSearch)
	search.POST("/embed-note", s.embedNote)
	search.POST("/embed-all", s.embedAll)
	search.GET("/embedding-stats", s.embeddingStats)

	chat := e.Group("/chat", auth)
	chat.POST("/rag", s.chatRAG)
	chat.POST("/rag/stream", s.chatRAGStream)
	chat.POST("/simple", s.chatSimple)

	return s, nil
}

// ServeHTTP lets the server be used as http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", slog.String("addr", s.config.Addr))
		errCh <- s.echo.Start(s.config.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}

func (s *Server) healthz(c echo.Context) error {
	if s.deps.Health != nil {
		if err := s.deps.Health(c.Request().Context()); err != nil {
			s.logger.Warn("Health check failed", slog.Any("error", err))
			return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// statusOf maps an error to its HTTP status and the message shown to the caller.
func statusOf(err error) (int, string) {
	var httpErr *echo.HTTPError
	var generationErr *model.GenerationError

	switch {
	case errors.As(err, &httpErr):
		msg := http.StatusText(httpErr.Code)
		if httpErr.Message != nil {
			msg = fmt.Sprint(httpErr.Message)
		}
		return httpErr.Code, msg
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "note not found"
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.As(err, &generationErr):
		return http.StatusBadGateway, "AI chat failed: " + generationErr.Error()
	case errors.Is(err, model.ErrProviderTransport), errors.Is(err, model.ErrProviderResponseInvalid):
		return http.StatusBadGateway, "embedding provider unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	code, msg := statusOf(err)

	req := c.Request()
	s.logger.Warn(
		"Request failed",
		slog.Int("status", code),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Any("error", err),
	)

	if !c.Response().Committed {
		_ = c.JSON(code, map[string]interface{}{"error": msg})
	}
}
