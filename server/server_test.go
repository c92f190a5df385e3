package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yf-river/LifeOS/model"
)

var testSecret = []byte("test-secret")

type fakeSearcher struct {
	userID  uuid.UUID
	query   string
	topK    int
	results []*model.SearchResult
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, userID uuid.UUID, query string, topK int) ([]*model.SearchResult, error) {
	f.userID, f.query, f.topK = userID, query, topK
	return f.results, f.err
}

func (f *fakeSearcher) Stats(ctx context.Context, userID uuid.UUID) (*model.EmbeddingStats, error) {
	return &model.EmbeddingStats{TotalNotes: 2, EmbeddedNotes: 1, Coverage: "50.0%", TotalChunks: 3}, nil
}

type fakeIndexer struct {
	force bool
	err   error
}

func (f *fakeIndexer) IndexNote(ctx context.Context, userID uuid.UUID, noteID uuid.UUID, force bool) (*model.IndexOutcome, error) {
	f.force = force
	if f.err != nil {
		return nil, f.err
	}
	return &model.IndexOutcome{NoteID: noteID.String(), Status: model.IndexStatusSuccess, ChunksCount: 2, EmbeddedCount: 2}, nil
}

func (f *fakeIndexer) IndexAll(ctx context.Context, userID uuid.UUID, force bool) (*model.BulkAccepted, error) {
	f.force = force
	return &model.BulkAccepted{Status: model.IndexStatusProcessing, TotalNotes: 4}, nil
}

type fakeAnswerer struct {
	request model.ChatRequest
	events  []model.StreamEvent
	err     error
}

func (f *fakeAnswerer) Answer(ctx context.Context, userID uuid.UUID, request model.ChatRequest) (*model.ChatAnswer, error) {
	f.request = request
	if f.err != nil {
		return nil, f.err
	}
	return &model.ChatAnswer{Answer: "42"}, nil
}

func (f *fakeAnswerer) Simple(ctx context.Context, request model.ChatRequest) (string, error) {
	f.request = request
	return "simple", f.err
}

func (f *fakeAnswerer) Stream(ctx context.Context, userID uuid.UUID, request model.ChatRequest) iter.Seq[model.StreamEvent] {
	f.request = request
	return func(yield func(model.StreamEvent) bool) {
		for _, e := range f.events {
			if !yield(e) {
				return
			}
		}
	}
}

type fixture struct {
	server  *Server
	search  *fakeSearcher
	index   *fakeIndexer
	chat    *fakeAnswerer
	userID  uuid.UUID
	token   string
	healthy error
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		search: &fakeSearcher{},
		index:  &fakeIndexer{},
		chat:   &fakeAnswerer{},
		userID: uuid.New(),
	}

	server, err := New(Dependencies{
		Search: f.search,
		Index:  f.index,
		Chat:   f.chat,
		Health: func(ctx context.Context) error { return f.healthy },
	}, Config{JWTSecret: string(testSecret), SearchTopK: 5}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	f.server = server

	f.token, err = SignToken(f.userID, testSecret, time.Hour)
	require.NoError(t, err)

	return f
}

func (f *fixture) do(method string, path string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+f.token)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestNew(t *testing.T) {
	t.Run("JWT secret is required", func(t *testing.T) {
		_, err := New(Dependencies{}, Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

		assert.ErrorIs(t, err, model.ErrConfigurationAbsent)
	})
}

func TestAuthentication(t *testing.T) {
	f := newFixture(t)

	t.Run("Missing token is unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/search/embedding-stats", nil)
		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "missing token", decode(t, rec)["error"])
	})

	t.Run("Token signed with another secret is unauthorized", func(t *testing.T) {
		token, err := SignToken(f.userID, []byte("other"), time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/search/embedding-stats", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Expired token is unauthorized", func(t *testing.T) {
		token, err := SignToken(f.userID, testSecret, -time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/search/embedding-stats", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Health check needs no token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestSearchRoutes(t *testing.T) {
	f := newFixture(t)

	t.Run("Semantic search returns results with total", func(t *testing.T) {
		noteID := uuid.New()
		f.search.results = []*model.SearchResult{{NoteID: noteID, ChunkText: "tomatoes", Score: 0.8, NoteTitle: "Garden", NotePreview: "Tomatoes need sun"}}

		rec := f.do(http.MethodPost, "/search/semantic", `{"query":"tomatoes"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "tomatoes", body["query"])
		assert.Equal(t, float64(1), body["total"])
		results := body["results"].([]interface{})
		require.Len(t, results, 1)
		assert.Equal(t, noteID.String(), results[0].(map[string]interface{})["note_id"])
		assert.Equal(t, 5, f.search.topK, "Expected the default top k")
		assert.Equal(t, f.userID, f.search.userID)
	})

	t.Run("No results is an empty list", func(t *testing.T) {
		f.search.results = nil

		rec := f.do(http.MethodPost, "/search/semantic", `{"query":"nothing","top_k":2}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"query":"nothing","results":[],"total":0}`, rec.Body.String())
		assert.Equal(t, 2, f.search.topK)
	})

	t.Run("Empty query is rejected", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/search/semantic", `{"query":"  "}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "query must not be empty", decode(t, rec)["error"])
	})

	t.Run("Unavailable embedding is a bad gateway", func(t *testing.T) {
		f.search.err = model.ErrProviderTransport
		defer func() { f.search.err = nil }()

		rec := f.do(http.MethodPost, "/search/semantic", `{"query":"q"}`)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "embedding provider unavailable", decode(t, rec)["error"])
	})

	t.Run("Embed note returns the outcome", func(t *testing.T) {
		noteID := uuid.New()

		rec := f.do(http.MethodPost, "/search/embed-note", `{"note_id":"`+noteID.String()+`","force":true}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"note_id":"`+noteID.String()+`","status":"success","chunks_count":2,"embedded_count":2}`, rec.Body.String())
		assert.True(t, f.index.force)
	})

	t.Run("Embed note with invalid id is rejected", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/search/embed-note", `{"note_id":"nope"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Embed unknown note is not found", func(t *testing.T) {
		f.index.err = model.ErrNotFound
		defer func() { f.index.err = nil }()

		rec := f.do(http.MethodPost, "/search/embed-note", `{"note_id":"`+uuid.NewString()+`"}`)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "note not found", decode(t, rec)["error"])
	})

	t.Run("Embed all is accepted", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/search/embed-all", `{}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"processing","total_notes":4}`, rec.Body.String())
		assert.False(t, f.index.force)
	})

	t.Run("Embedding stats", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/search/embedding-stats", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"total_notes":2,"embedded_notes":1,"coverage":"50.0%","total_chunks":3}`, rec.Body.String())
	})

	t.Run("Internal errors are not leaked", func(t *testing.T) {
		f.search.err = errors.New("pq: relation does not exist")
		defer func() { f.search.err = nil }()

		rec := f.do(http.MethodPost, "/search/semantic", `{"query":"q"}`)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "internal server error", decode(t, rec)["error"])
	})
}

func TestChatRoutes(t *testing.T) {
	f := newFixture(t)

	t.Run("RAG chat defaults use_rag to true", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/chat/rag", `{"query":"q","history":[{"role":"user","content":"hi"}]}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"answer":"42","contexts":[],"has_context":false}`, rec.Body.String())
		assert.True(t, f.chat.request.UseRAG)
		assert.Equal(t, []model.Message{{Role: model.RoleUser, Content: "hi"}}, f.chat.request.History)
	})

	t.Run("RAG chat honours use_rag false", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/chat/rag", `{"query":"q","use_rag":false,"top_k":4}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, f.chat.request.UseRAG)
		assert.Equal(t, 4, f.chat.request.TopK)
	})

	t.Run("Generation failure is reported as structured error", func(t *testing.T) {
		f.chat.err = &model.GenerationError{Err: errors.New("timeout")}
		defer func() { f.chat.err = nil }()

		rec := f.do(http.MethodPost, "/chat/rag", `{"query":"q"}`)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "AI chat failed: generation failed: timeout", decode(t, rec)["error"])
	})

	t.Run("Empty query is rejected", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/chat/rag", `{"query":""}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Simple chat", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/chat/simple", `{"query":"q"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"answer":"simple"}`, rec.Body.String())
	})

	t.Run("Stream writes one data frame per event", func(t *testing.T) {
		f.chat.events = []model.StreamEvent{
			{Type: model.EventContext, Data: model.ContextPayload{Contexts: []model.RetrievedContext{}, HasContext: false}},
			{Type: model.EventContent, Data: "Hel"},
			{Type: model.EventContent, Data: "lo"},
			{Type: model.EventDone},
		}

		rec := f.do(http.MethodPost, "/chat/rag/stream", `{"query":"q"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))

		var frames []string
		scanner := bufio.NewScanner(strings.NewReader(rec.Body.String()))
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, "data: ") {
				frames = append(frames, strings.TrimPrefix(line, "data: "))
			}
		}

		require.Len(t, frames, 4)
		assert.JSONEq(t, `{"type":"context","data":{"contexts":[],"has_context":false}}`, frames[0])
		assert.JSONEq(t, `{"type":"content","data":"Hel"}`, frames[1])
		assert.JSONEq(t, `{"type":"content","data":"lo"}`, frames[2])
		assert.JSONEq(t, `{"type":"done","data":null}`, frames[3])
	})

	t.Run("Stream with empty query is rejected before streaming", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/chat/rag/stream", `{"query":" "}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
	})
}

func TestChatStreamValidation(t *testing.T) {
	f := newFixture(t)

	t.Run("Unknown history role is rejected before streaming", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/chat/rag/stream", `{"query":"q","history":[{"role":"robot","content":"beep"}]}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, `unknown history role "robot"`, decode(t, rec)["error"])
	})

	t.Run("Unknown history role is rejected for buffered chat", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/chat/rag", `{"query":"q","history":[{"role":"","content":"x"}]}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Nothing is written after the client left", func(t *testing.T) {
		f.chat.events = []model.StreamEvent{
			{Type: model.EventContext, Data: model.ContextPayload{Contexts: []model.RetrievedContext{}}},
			{Type: model.EventError, Data: "context canceled"},
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		req := httptest.NewRequest(http.MethodPost, "/chat/rag/stream", strings.NewReader(`{"query":"q"}`)).WithContext(ctx)
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+f.token)
		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "data: ")
	})
}

func TestHealthz(t *testing.T) {
	t.Run("Unreachable database is unavailable", func(t *testing.T) {
		f := newFixture(t)
		f.healthy = errors.New("connection refused")

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "database unavailable", decode(t, rec)["error"])
	})
}
