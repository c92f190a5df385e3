package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/yf-river/LifeOS/helper"
	"github.com/yf-river/LifeOS/model"
	loadSql "github.com/yf-river/LifeOS/sql"
)

// ChunksDBHandlerFunctions defines the interface for Chunks database operations.
type ChunksDBHandlerFunctions interface {
	InsertChunk(ctx context.Context, chunk *model.Chunk) error
	SelectChunksByNote(ctx context.Context, noteID uuid.UUID) ([]*model.Chunk, error)
	CountChunksByNote(ctx context.Context, noteID uuid.UUID) (int, error)
	DeleteChunksByNote(ctx context.Context, noteID uuid.UUID) (int, error)
	ReplaceNoteChunks(ctx context.Context, noteID uuid.UUID, chunks []*model.Chunk, force bool) (bool, error)
	SelectChunksBySimilarity(ctx context.Context, userID uuid.UUID, embedding []float32, topK int) ([]*model.Chunk, error)
	SelectEmbeddingStats(ctx context.Context, userID uuid.UUID) (*model.EmbeddingStats, error)
}

// ChunksDBHandler handles chunk-related database operations
type ChunksDBHandler struct {
	db           *helper.Database
	embeddingDim int
}

// NewChunksDBHandler creates a new chunks database handler.
// It loads the chunk-related SQL functions and creates the table with a
// vector column of embeddingDim dimensions. The notes table must exist.
// If force is true, it will reload the SQL functions even if they already exist.
func NewChunksDBHandler(db *helper.Database, embeddingDim int, force bool) (*ChunksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if embeddingDim <= 0 {
		return nil, helper.NewError("embedding dimension validation", fmt.Errorf("embedding dimension must be positive, got %d", embeddingDim))
	}

	chunksDbHandler := &ChunksDBHandler{
		db:           db,
		embeddingDim: embeddingDim,
	}

	err := loadSql.LoadChunksSql(chunksDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load chunks sql", err)
	}

	err = chunksDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ChunksDBHandler", "embedding_dim", embeddingDim)

	return chunksDbHandler, nil
}

// CreateTable creates the 'note_chunks' table with its indexes.
// If the table already exists, it does not create it again.
func (h *ChunksDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_note_chunks($1);`, embeddingDim)
	if err != nil {
		return helper.NewError("init note chunks", err)
	}

	h.db.Logger.Info("Checked/created table note_chunks")

	return nil
}

// EmbeddingDim returns the vector dimension of the table.
func (h *ChunksDBHandler) EmbeddingDim() int {
	return h.embeddingDim
}

// InsertChunk inserts a new chunk. A chunk without embedding is stored text-only.
func (h *ChunksDBHandler) InsertChunk(ctx context.Context, chunk *model.Chunk) error {
	err := insertChunk(ctx, h.db.Instance, chunk)
	if err != nil {
		return helper.NewError("insert chunk", err)
	}
	return nil
}

// SelectChunksByNote retrieves all chunks of a note ordered by index
func (h *ChunksDBHandler) SelectChunksByNote(ctx context.Context, noteID uuid.UUID) ([]*model.Chunk, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_note_chunks($1)`,
		noteID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var chunks []*model.Chunk
	for rows.Next() {
		chunk := &model.Chunk{}
		if err := scanChunk(rows, chunk); err != nil {
			return nil, helper.NewError("scan", err)
		}
		chunks = append(chunks, chunk)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return chunks, nil
}

// CountChunksByNote returns the number of stored chunks of a note
func (h *ChunksDBHandler) CountChunksByNote(ctx context.Context, noteID uuid.UUID) (int, error) {
	var count int
	err := h.db.Instance.QueryRowContext(ctx, `SELECT count_note_chunks($1)`, noteID).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

// DeleteChunksByNote deletes all chunks of a note and returns how many were removed
func (h *ChunksDBHandler) DeleteChunksByNote(ctx context.Context, noteID uuid.UUID) (int, error) {
	var deleted int
	err := h.db.Instance.QueryRowContext(ctx, `SELECT delete_note_chunks($1)`, noteID).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return deleted, nil
}

// ReplaceNoteChunks stores chunks as the complete chunk set of a note.
//
// The note is locked for the duration of the transaction, so concurrent
// calls for the same note run one after the other. Without force the call
// returns false and leaves the table untouched if the note already has
// chunks. With force the existing chunks are deleted first. Either all
// chunks are written or none.
func (h *ChunksDBHandler) ReplaceNoteChunks(ctx context.Context, noteID uuid.UUID, chunks []*model.Chunk, force bool) (bool, error) {
	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return false, helper.NewError("begin", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `SELECT lock_note_chunks($1)`, noteID)
	if err != nil {
		return false, helper.NewError("lock note", err)
	}

	var existing int
	err = tx.QueryRowContext(ctx, `SELECT count_note_chunks($1)`, noteID).Scan(&existing)
	if err != nil {
		return false, helper.NewError("count chunks", err)
	}

	if existing > 0 {
		if !force {
			return false, nil
		}
		_, err = tx.ExecContext(ctx, `SELECT delete_note_chunks($1)`, noteID)
		if err != nil {
			return false, helper.NewError("delete chunks", err)
		}
	}

	for i, chunk := range chunks {
		chunk.NoteID = noteID
		if err := insertChunk(ctx, tx, chunk); err != nil {
			return false, helper.NewError(fmt.Sprintf("insert chunk %d", i), err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return false, helper.NewError("commit", err)
	}

	return true, nil
}

// SelectChunksBySimilarity returns the topK embedded chunks of the user's
// notes nearest to embedding by cosine distance, nearest first.
// Similarity is 1 - cosine distance.
func (h *ChunksDBHandler) SelectChunksBySimilarity(ctx context.Context, userID uuid.UUID, embedding []float32, topK int) ([]*model.Chunk, error) {
	if len(embedding) != h.embeddingDim {
		return nil, helper.NewError("embedding validation", fmt.Errorf("expected %d dimensions, got %d", h.embeddingDim, len(embedding)))
	}

	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_note_chunks_by_similarity($1, $2, $3)`,
		userID,
		pgvector.NewVector(embedding),
		topK,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var results []*model.Chunk
	for rows.Next() {
		chunk := &model.Chunk{}
		err := rows.Scan(
			&chunk.NoteID,
			&chunk.ChunkIndex,
			&chunk.ChunkText,
			&chunk.NoteTitle,
			&chunk.NotePreview,
			&chunk.Similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		results = append(results, chunk)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return results, nil
}

// SelectEmbeddingStats counts the user's notes, indexed notes and chunks
func (h *ChunksDBHandler) SelectEmbeddingStats(ctx context.Context, userID uuid.UUID) (*model.EmbeddingStats, error) {
	stats := &model.EmbeddingStats{}
	err := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_embedding_stats($1)`,
		userID,
	).Scan(
		&stats.TotalNotes,
		&stats.EmbeddedNotes,
		&stats.TotalChunks,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	stats.Coverage = model.FormatCoverage(stats.EmbeddedNotes, stats.TotalNotes)
	return stats, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func insertChunk(ctx context.Context, q queryRower, chunk *model.Chunk) error {
	modelName := chunk.ModelName
	if !chunk.HasEmbedding() {
		modelName = ""
	}

	row := q.QueryRowContext(
		ctx,
		`SELECT * FROM insert_note_chunk($1, $2, $3, $4, $5)`,
		chunk.NoteID,
		chunk.ChunkIndex,
		chunk.ChunkText,
		embeddingParam(chunk.Embedding),
		modelName,
	)

	return scanChunk(row, chunk)
}

// embeddingParam maps an absent embedding to NULL.
func embeddingParam(embedding []float32) interface{} {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}

func scanChunk(row rowScanner, chunk *model.Chunk) error {
	chunk.Embedding = nil
	return row.Scan(
		&chunk.ID,
		&chunk.NoteID,
		&chunk.ChunkIndex,
		&chunk.ChunkText,
		pq.Array(&chunk.Embedding),
		&chunk.ModelName,
		&chunk.CreatedAt,
	)
}
