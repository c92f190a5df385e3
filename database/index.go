package database

import (
	"context"
	"fmt"
	"time"

	"github.com/yf-river/LifeOS/helper"
)

// Supported vector index types
const (
	IndexTypeHNSW    = "hnsw"
	IndexTypeIVFFlat = "ivfflat"
)

// ChangeIndexType rebuilds the cosine index on note_chunks.embedding.
// params are optional:
//   - hnsw: "m" (default 16), "ef_construction" (default 64)
//   - ivfflat: "lists" (default 100)
func (h *ChunksDBHandler) ChangeIndexType(ctx context.Context, indexType string, params map[string]int) error {
	var createIndexSQL string

	switch indexType {
	case IndexTypeHNSW:
		m := paramOrDefault(params, "m", 16)
		efConstruction := paramOrDefault(params, "ef_construction", 64)
		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_note_chunks_embedding ON note_chunks USING hnsw (embedding vector_cosine_ops) WITH (m = %d, ef_construction = %d);`,
			m, efConstruction,
		)

	case IndexTypeIVFFlat:
		lists := paramOrDefault(params, "lists", 100)
		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_note_chunks_embedding ON note_chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d);`,
			lists,
		)

	default:
		return helper.NewError("change index type", fmt.Errorf("unsupported index type: %s (use 'hnsw' or 'ivfflat')", indexType))
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `DROP INDEX IF EXISTS idx_note_chunks_embedding;`)
	if err != nil {
		return helper.NewError("drop index", err)
	}

	_, err = tx.ExecContext(ctx, createIndexSQL)
	if err != nil {
		return helper.NewError("create index", err)
	}

	err = tx.Commit()
	if err != nil {
		return helper.NewError("commit", err)
	}

	h.db.Logger.Info("Changed vector index", "type", indexType, "params", params)

	return nil
}

func paramOrDefault(params map[string]int, key string, fallback int) int {
	if v, ok := params[key]; ok && v > 0 {
		return v
	}
	return fallback
}
