package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yf-river/LifeOS/helper"
	"github.com/yf-river/LifeOS/model"
	loadSql "github.com/yf-river/LifeOS/sql"
)

// NotesDBHandlerFunctions defines the interface for Notes database operations.
type NotesDBHandlerFunctions interface {
	InsertNote(ctx context.Context, note *model.Note) error
	SelectNote(ctx context.Context, userID uuid.UUID, noteID uuid.UUID) (*model.Note, error)
	SelectNotesByUser(ctx context.Context, userID uuid.UUID) ([]*model.Note, error)
	DeleteNote(ctx context.Context, userID uuid.UUID, noteID uuid.UUID) error
}

// NotesDBHandler handles note-related database operations.
// Notes are owned by the note application; this handler reads them and
// offers the inserts needed by tests and tooling.
type NotesDBHandler struct {
	db *helper.Database
}

// NewNotesDBHandler creates a new notes database handler.
// If force is true, it will reload the SQL functions even if they already exist.
func NewNotesDBHandler(db *helper.Database, force bool) (*NotesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	notesDbHandler := &NotesDBHandler{
		db: db,
	}

	err := loadSql.LoadNotesSql(notesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load notes sql", err)
	}

	err = notesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized NotesDBHandler")

	return notesDbHandler, nil
}

// CreateTable creates the 'notes' table if it does not exist.
func (h *NotesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_notes();`)
	if err != nil {
		return helper.NewError("init notes", err)
	}

	h.db.Logger.Info("Checked/created table notes")

	return nil
}

// InsertNote inserts a new note and fills in its generated fields.
func (h *NotesDBHandler) InsertNote(ctx context.Context, note *model.Note) error {
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM insert_note($1, $2, $3, $4)`,
		note.UserID,
		note.Title,
		nullString(note.Content),
		note.JSONContent,
	)

	err := scanNote(row, note)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectNote retrieves a note owned by userID.
// It returns model.ErrNotFound if there is no such note.
func (h *NotesDBHandler) SelectNote(ctx context.Context, userID uuid.UUID, noteID uuid.UUID) (*model.Note, error) {
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_note($1, $2)`,
		userID,
		noteID,
	)

	note := &model.Note{}
	err := scanNote(row, note)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, helper.NewError(fmt.Sprintf("select note %s", noteID), model.ErrNotFound)
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return note, nil
}

// SelectNotesByUser retrieves all live notes of a user, oldest first.
func (h *NotesDBHandler) SelectNotesByUser(ctx context.Context, userID uuid.UUID) ([]*model.Note, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_notes_by_user($1)`,
		userID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var notes []*model.Note
	for rows.Next() {
		note := &model.Note{}
		if err := scanNote(rows, note); err != nil {
			return nil, helper.NewError("scan", err)
		}
		notes = append(notes, note)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return notes, nil
}

// DeleteNote soft deletes a note owned by userID.
func (h *NotesDBHandler) DeleteNote(ctx context.Context, userID uuid.UUID, noteID uuid.UUID) error {
	var affected int
	err := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT delete_note($1, $2)`,
		userID,
		noteID,
	).Scan(&affected)
	if err != nil {
		return helper.NewError("exec", err)
	}
	if affected == 0 {
		return helper.NewError(fmt.Sprintf("delete note %s", noteID), model.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNote(row rowScanner, note *model.Note) error {
	var content sql.NullString
	var deletedAt sql.NullTime
	err := row.Scan(
		&note.ID,
		&note.UserID,
		&note.Title,
		&content,
		&note.JSONContent,
		&note.CreatedAt,
		&note.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return err
	}

	note.Content = content.String
	note.DeletedAt = nil
	if deletedAt.Valid {
		note.DeletedAt = &deletedAt.Time
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
