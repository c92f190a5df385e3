package model

import (
	"fmt"

	"github.com/google/uuid"
)

// RetrievedContext is a note excerpt selected to ground an answer.
type RetrievedContext struct {
	Text  string  `json:"text"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// SearchResult is one hit of a semantic search.
type SearchResult struct {
	NoteID      uuid.UUID `json:"note_id"`
	ChunkText   string    `json:"chunk_text"`
	Score       float64   `json:"score"`
	NoteTitle   string    `json:"note_title"`
	NotePreview string    `json:"note_preview"`
}

// EmbeddingStats describes how much of a user's notes is indexed.
type EmbeddingStats struct {
	TotalNotes    int    `json:"total_notes"`
	EmbeddedNotes int    `json:"embedded_notes"`
	Coverage      string `json:"coverage"`
	TotalChunks   int    `json:"total_chunks"`
}

// FormatCoverage renders embedded/total as a percentage with one decimal.
func FormatCoverage(embedded, total int) string {
	if total <= 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(embedded)/float64(total)*100)
}
