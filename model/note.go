package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Note is a user's note as seen by the retrieval subsystem.
type Note struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Title       string     `json:"title"`
	Content     string     `json:"content,omitempty"`
	JSONContent RichText   `json:"json_content,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// Text returns the plain text of the note, falling back to the flattened
// rich-text document when no plain text is stored.
func (n *Note) Text() string {
	if strings.TrimSpace(n.Content) != "" {
		return n.Content
	}
	return n.JSONContent.PlainText()
}
