package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/yf-river/LifeOS/model"
)

// chatRequest defaults use_rag to true when omitted
type chatRequest struct {
	Query   string          `json:"query"`
	History []model.Message `json:"history"`
	UseRAG  *bool           `json:"use_rag"`
	TopK    int             `json:"top_k"`
}

func (r chatRequest) toModel() model.ChatRequest {
	useRAG := true
	if r.UseRAG != nil {
		useRAG = *r.UseRAG
	}
	return model.ChatRequest{
		Query:   r.Query,
		History: r.History,
		UseRAG:  useRAG,
		TopK:    r.TopK,
	}
}

func bindChatRequest(c echo.Context) (model.ChatRequest, error) {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return model.ChatRequest{}, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return model.ChatRequest{}, echo.NewHTTPError(http.StatusBadRequest, "query must not be empty")
	}
	for _, m := range req.History {
		if !m.Role.Valid() {
			return model.ChatRequest{}, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown history role %q", m.Role))
		}
	}
	return req.toModel(), nil
}

func (s *Server) chatRAG(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}
	req, err := bindChatRequest(c)
	if err != nil {
		return err
	}

	answer, err := s.deps.Chat.Answer(c.Request().Context(), userID, req)
	if err != nil {
		return err
	}
	if answer.Contexts == nil {
		answer.Contexts = []model.RetrievedContext{}
	}

	return c.JSON(http.StatusOK, answer)
}

func (s *Server) chatSimple(c echo.Context) error {
	if _, err := userIDFrom(c); err != nil {
		return err
	}
	req, err := bindChatRequest(c)
	if err != nil {
		return err
	}

	answer, err := s.deps.Chat.Simple(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"answer": answer})
}

// chatRAGStream writes the relay events as server-sent events.
// Once the headers are written failures only travel as error events.
func (s *Server) chatRAGStream(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}
	req, err := bindChatRequest(c)
	if err != nil {
		return err
	}

	resp := c.Response()
	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "streaming unsupported")
	}
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.Header().Set("X-Accel-Buffering", "no")
	resp.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := c.Request().Context()
	for event := range s.deps.Chat.Stream(ctx, userID, req) {
		if ctx.Err() != nil {
			s.logger.Debug("Client left the stream", slog.String("type", string(event.Type)))
			return nil
		}
		if err := writeEvent(resp, event); err != nil {
			s.logger.Warn("Writing stream event failed", slog.String("type", string(event.Type)), slog.Any("error", err))
			return nil
		}
		flusher.Flush()
	}

	return nil
}

func writeEvent(resp *echo.Response, event model.StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = resp.Write([]byte("data: " + string(data) + "\n\n"))
	return err
}
