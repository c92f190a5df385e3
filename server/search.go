package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/yf-river/LifeOS/model"
)

type semanticSearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type semanticSearchResponse struct {
	Query   string                `json:"query"`
	Results []*model.SearchResult `json:"results"`
	Total   int                   `json:"total"`
}

type embedNoteRequest struct {
	NoteID string `json:"note_id"`
	Force  bool   `json:"force"`
}

type embedAllRequest struct {
	Force bool `json:"force"`
}

func (s *Server) semanticSearch(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}

	var req semanticSearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query must not be empty")
	}
	if req.TopK <= 0 {
		req.TopK = s.config.SearchTopK
	}

	results, err := s.deps.Search.Search(c.Request().Context(), userID, req.Query, req.TopK)
	if err != nil {
		return err
	}
	if results == nil {
		results = []*model.SearchResult{}
	}

	return c.JSON(http.StatusOK, semanticSearchResponse{
		Query:   req.Query,
		Results: results,
		Total:   len(results),
	})
}

func (s *Server) embedNote(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}

	var req embedNoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	noteID, err := uuid.Parse(req.NoteID)
	if err != nil {
		return fmt.Errorf("%w: note_id must be a uuid", model.ErrInvalidInput)
	}

	outcome, err := s.deps.Index.IndexNote(c.Request().Context(), userID, noteID, req.Force)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, outcome)
}

func (s *Server) embedAll(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}

	var req embedAllRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	accepted, err := s.deps.Index.IndexAll(c.Request().Context(), userID, req.Force)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, accepted)
}

func (s *Server) embeddingStats(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}

	stats, err := s.deps.Search.Stats(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, stats)
}
