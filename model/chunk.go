package model

import (
	"time"

	"github.com/google/uuid"
)

// Chunk is one indexed fragment of a note.
// A nil Embedding means the vector could not be produced.
type Chunk struct {
	ID         uuid.UUID `json:"id"`
	NoteID     uuid.UUID `json:"note_id"`
	ChunkIndex int       `json:"chunk_index"`
	ChunkText  string    `json:"chunk_text"`
	Embedding  []float32 `json:"embedding,omitempty"`
	ModelName  string    `json:"model_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	// Results
	Similarity  float64 `json:"similarity,omitempty"`
	NoteTitle   string  `json:"note_title,omitempty"`
	NotePreview string  `json:"note_preview,omitempty"`
}

// HasEmbedding reports whether the chunk carries a vector.
func (c *Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}
