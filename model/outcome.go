package model

type IndexStatus string

const (
	IndexStatusSkipped    IndexStatus = "skipped"
	IndexStatusEmpty      IndexStatus = "empty"
	IndexStatusSuccess    IndexStatus = "success"
	IndexStatusProcessing IndexStatus = "processing"
)

// IndexOutcome is the result of indexing one note.
type IndexOutcome struct {
	NoteID        string      `json:"note_id"`
	Status        IndexStatus `json:"status"`
	ChunksCount   int         `json:"chunks_count"`
	EmbeddedCount int         `json:"embedded_count"`
}

// BulkAccepted is returned when a bulk indexing job was enqueued.
type BulkAccepted struct {
	Status     IndexStatus `json:"status"`
	TotalNotes int         `json:"total_notes"`
}
