package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed notes.sql
var notesSQL string

//go:embed chunks.sql
var chunksSQL string

// Function lists for verification
var NotesFunctions = []string{
	"init_notes",
	"insert_note",
	"select_note",
	"select_notes_by_user",
	"delete_note",
}

var ChunksFunctions = []string{
	"init_note_chunks",
	"insert_note_chunk",
	"select_note_chunks",
	"count_note_chunks",
	"delete_note_chunks",
	"lock_note_chunks",
	"select_note_chunks_by_similarity",
	"select_embedding_stats",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadNotesSql loads note-related SQL functions
func LoadNotesSql(db *sql.DB, force bool) error {
	return loadFunctions(db, "notes", notesSQL, NotesFunctions, force)
}

// LoadChunksSql loads chunk-related SQL functions
func LoadChunksSql(db *sql.DB, force bool) error {
	return loadFunctions(db, "chunks", chunksSQL, ChunksFunctions, force)
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadNotesSql(db, force); err != nil {
		return err
	}
	return LoadChunksSql(db, force)
}

// loadFunctions executes source unless all functions already exist.
// With force the source is always executed.
func loadFunctions(db *sql.DB, name string, source string, functions []string, force bool) error {
	if !force {
		exist, err := checkFunctions(db, functions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(source)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, functions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Printf("SQL %s functions loaded successfully", name)
	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
