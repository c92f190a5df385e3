package indexing

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/yf-river/LifeOS/core/pipeline"
	"github.com/yf-river/LifeOS/helper"
	"github.com/yf-river/LifeOS/metrics"
	"github.com/yf-river/LifeOS/model"
)

// NoteSource reads the notes of a user.
type NoteSource interface {
	SelectNote(ctx context.Context, userID uuid.UUID, noteID uuid.UUID) (*model.Note, error)
	SelectNotesByUser(ctx context.Context, userID uuid.UUID) ([]*model.Note, error)
}

// ChunkStore persists the chunks of a note.
type ChunkStore interface {
	CountChunksByNote(ctx context.Context, noteID uuid.UUID) (int, error)
	ReplaceNoteChunks(ctx context.Context, noteID uuid.UUID, chunks []*model.Chunk, force bool) (bool, error)
}

// Indexer turns notes into embedded chunks
type Indexer struct {
	notes    NoteSource
	chunks   ChunkStore
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
	jobs     sync.WaitGroup
}

// NewIndexer creates a new indexer
func NewIndexer(notes NoteSource, chunks ChunkStore, p *pipeline.Pipeline, logger *slog.Logger) *Indexer {
	return &Indexer{
		notes:    notes,
		chunks:   chunks,
		pipeline: p,
		logger:   logger,
	}
}

// IndexNote indexes one note of the user.
// Without force a note that already has chunks is skipped. With force its
// chunks are replaced, or removed if the note has no text anymore.
func (i *Indexer) IndexNote(ctx context.Context, userID uuid.UUID, noteID uuid.UUID, force bool) (*model.IndexOutcome, error) {
	note, err := i.notes.SelectNote(ctx, userID, noteID)
	if err != nil {
		return nil, helper.NewError("select note", err)
	}

	outcome, err := i.index(ctx, note, force)
	if err != nil {
		metrics.IndexedNotes.WithLabelValues("failed").Inc()
		return nil, err
	}

	metrics.IndexedNotes.WithLabelValues(string(outcome.Status)).Inc()
	return outcome, nil
}

// IndexAll enqueues indexing of all notes of the user and returns at once.
// The job runs detached from ctx cancellation.
func (i *Indexer) IndexAll(ctx context.Context, userID uuid.UUID, force bool) (*model.BulkAccepted, error) {
	notes, err := i.notes.SelectNotesByUser(ctx, userID)
	if err != nil {
		return nil, helper.NewError("select notes", err)
	}

	if len(notes) > 0 {
		jobCtx := context.WithoutCancel(ctx)
		i.jobs.Add(1)
		go func() {
			defer i.jobs.Done()
			i.IndexNotes(jobCtx, notes, force)
		}()
	}

	return &model.BulkAccepted{
		Status:     model.IndexStatusProcessing,
		TotalNotes: len(notes),
	}, nil
}

// IndexNotes indexes notes one after another. A failing note is logged and
// returned as nil outcome; the remaining notes are still indexed.
func (i *Indexer) IndexNotes(ctx context.Context, notes []*model.Note, force bool) []*model.IndexOutcome {
	outcomes := make([]*model.IndexOutcome, len(notes))
	succeeded, failed := 0, 0

	for n, note := range notes {
		outcome, err := i.index(ctx, note, force)
		if err != nil {
			failed++
			metrics.IndexedNotes.WithLabelValues("failed").Inc()
			i.logger.Error(
				"Indexing note failed",
				slog.String("note_id", note.ID.String()),
				slog.Any("error", err),
			)
			continue
		}

		succeeded++
		metrics.IndexedNotes.WithLabelValues(string(outcome.Status)).Inc()
		outcomes[n] = outcome
	}

	i.logger.Info(
		"Bulk indexing finished",
		slog.Int("total", len(notes)),
		slog.Int("succeeded", succeeded),
		slog.Int("failed", failed),
	)

	return outcomes
}

// Wait blocks until all enqueued bulk jobs are finished
func (i *Indexer) Wait() {
	i.jobs.Wait()
}

func (i *Indexer) index(ctx context.Context, note *model.Note, force bool) (*model.IndexOutcome, error) {
	outcome := &model.IndexOutcome{NoteID: note.ID.String()}

	text := note.Text()
	if strings.TrimSpace(text) == "" {
		if force {
			_, err := i.chunks.ReplaceNoteChunks(ctx, note.ID, nil, true)
			if err != nil {
				return nil, helper.NewError("clear chunks", err)
			}
		}
		outcome.Status = model.IndexStatusEmpty
		return outcome, nil
	}

	if !force {
		existing, err := i.chunks.CountChunksByNote(ctx, note.ID)
		if err != nil {
			return nil, helper.NewError("count chunks", err)
		}
		if existing > 0 {
			outcome.Status = model.IndexStatusSkipped
			return outcome, nil
		}
	}

	chunks := i.pipeline.Process(ctx, text)
	if len(chunks) == 0 {
		outcome.Status = model.IndexStatusEmpty
		return outcome, nil
	}

	// Re-checks existence under the note lock
	written, err := i.chunks.ReplaceNoteChunks(ctx, note.ID, chunks, force)
	if err != nil {
		return nil, helper.NewError("replace chunks", err)
	}
	if !written {
		outcome.Status = model.IndexStatusSkipped
		return outcome, nil
	}

	outcome.Status = model.IndexStatusSuccess
	outcome.ChunksCount = len(chunks)
	for _, chunk := range chunks {
		if chunk.HasEmbedding() {
			outcome.EmbeddedCount++
		}
	}

	i.logger.Info(
		"Indexed note",
		slog.String("note_id", note.ID.String()),
		slog.Int("chunks", outcome.ChunksCount),
		slog.Int("embedded", outcome.EmbeddedCount),
	)

	return outcome, nil
}
