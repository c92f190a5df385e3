package main

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	lifeos "github.com/yf-river/LifeOS"
	"github.com/yf-river/LifeOS/helper"
	"github.com/yf-river/LifeOS/model"
)

var sampleNotes = []struct {
	title   string
	content string
}{
	{
		title: "Vegetable garden",
		content: `Tomatoes need at least six hours of sun a day.
Water them in the morning so the leaves dry before night.
Basil grows well next to tomatoes and keeps some pests away.`,
	},
	{
		title: "Sourdough",
		content: `Feed the starter twice a day with equal weights of flour and water.
The dough is ready to shape when it has grown by about half.
Bake at 250 degrees with steam for the first twenty minutes.`,
	},
}

func main() {
	ctx := context.Background()

	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(ctx)

	config := lifeos.DefaultConfiguration()
	config.Database = &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}
	// No api keys, so embeddings are random and answers are placeholders
	config.Embedding.Provider = model.EmbeddingProviderOffline
	config.Embedding.Dimensions = 64

	rag, err := lifeos.NewNoteRAG(config)
	if err != nil {
		log.Fatalf("Failed to create notes RAG: %v", err)
	}
	defer rag.Close()

	userID := uuid.New()
	for _, n := range sampleNotes {
		note := &model.Note{UserID: userID, Title: n.title, Content: n.content}
		if err := rag.Notes.InsertNote(ctx, note); err != nil {
			log.Fatalf("Failed to insert note: %v", err)
		}

		outcome, err := rag.IndexNote(ctx, userID, note.ID, false)
		if err != nil {
			log.Fatalf("Failed to index note: %v", err)
		}
		fmt.Printf("Indexed %q: %s, %d chunks\n", note.Title, outcome.Status, outcome.ChunksCount)
	}

	stats, err := rag.Engine.Stats(ctx, userID)
	if err != nil {
		log.Fatalf("Failed to read stats: %v", err)
	}
	fmt.Printf("Coverage: %s of %d notes, %d chunks\n", stats.Coverage, stats.TotalNotes, stats.TotalChunks)

	query := "When should I water tomatoes?"
	fmt.Printf("\nSearching: %s\n", query)

	results, err := rag.Search(ctx, userID, query, 3)
	if err != nil {
		log.Fatalf("Failed to search: %v", err)
	}
	for i, result := range results {
		fmt.Printf("%d. [%.4f] %s: %s\n", i+1, result.Score, result.NoteTitle, result.ChunkText)
	}

	fmt.Println("\nStreaming answer:")
	for event := range rag.Relay.Stream(ctx, userID, model.ChatRequest{Query: query, UseRAG: true}) {
		switch event.Type {
		case model.EventContext:
			payload := event.Data.(model.ContextPayload)
			fmt.Printf("(%d contexts)\n", len(payload.Contexts))
		case model.EventContent:
			fmt.Print(event.Data)
		case model.EventError:
			fmt.Printf("\nerror: %v\n", event.Data)
		case model.EventDone:
			fmt.Println()
		}
	}

	fmt.Println("\nBasic example completed successfully!")
}
