package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	lifeos "github.com/yf-river/LifeOS"
	"github.com/yf-river/LifeOS/config"
	"github.com/yf-river/LifeOS/database"
	"github.com/yf-river/LifeOS/server"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:          "lifeos",
		Short:        "Semantic search and AI chat over personal notes",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (yaml, json or toml)")

	load := func() (*config.Config, error) {
		return config.Load(configPath)
	}

	root.AddCommand(
		newServeCommand(load),
		newMigrateCommand(load),
		newIndexCommand(load),
		newTokenCommand(load),
	)
	return root
}

type loader func() (*config.Config, error)

func newServeCommand(load loader) *cobra.Command {
	var addr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := load()
			if err != nil {
				return err
			}

			rag, err := lifeos.NewNoteRAG(c.Lifeos())
			if err != nil {
				return err
			}
			defer rag.Close()

			httpConfig := c.HTTP()
			if addr != "" {
				httpConfig.Addr = addr
			}

			srv, err := server.New(server.Dependencies{
				Search: rag,
				Index:  rag,
				Chat:   rag.Relay,
				Health: rag.Ping,
			}, httpConfig, rag.Logger())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}
	serve.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return serve
}

func newMigrateCommand(load loader) *cobra.Command {
	var indexType string
	var m, efConstruction, lists int
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Create tables and reload the SQL functions",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := load()
			if err != nil {
				return err
			}

			lc := c.Lifeos()
			lc.ForceReload = true
			rag, err := lifeos.NewNoteRAG(lc)
			if err != nil {
				return err
			}
			defer rag.Close()

			if indexType == "" {
				return nil
			}
			return rag.Chunks.ChangeIndexType(cmd.Context(), indexType, map[string]int{
				"m":               m,
				"ef_construction": efConstruction,
				"lists":           lists,
			})
		},
	}
	migrate.Flags().StringVar(&indexType, "vector-index", "", fmt.Sprintf("rebuild the vector index as %s or %s", database.IndexTypeHNSW, database.IndexTypeIVFFlat))
	migrate.Flags().IntVar(&m, "m", 0, "hnsw m")
	migrate.Flags().IntVar(&efConstruction, "ef-construction", 0, "hnsw ef_construction")
	migrate.Flags().IntVar(&lists, "lists", 0, "ivfflat lists")
	return migrate
}

func newIndexCommand(load loader) *cobra.Command {
	var userFlag, noteFlag string
	var force bool
	index := &cobra.Command{
		Use:   "index",
		Short: "Index the notes of a user synchronously",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(userFlag)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}

			c, err := load()
			if err != nil {
				return err
			}
			rag, err := lifeos.NewNoteRAG(c.Lifeos())
			if err != nil {
				return err
			}
			defer rag.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if noteFlag != "" {
				noteID, err := uuid.Parse(noteFlag)
				if err != nil {
					return fmt.Errorf("invalid --note: %w", err)
				}
				outcome, err := rag.IndexNote(ctx, userID, noteID, force)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%s\t%d chunks\t%d embedded\n", outcome.NoteID, outcome.Status, outcome.ChunksCount, outcome.EmbeddedCount)
				return nil
			}

			notes, err := rag.Notes.SelectNotesByUser(ctx, userID)
			if err != nil {
				return err
			}
			for n, outcome := range rag.Indexer.IndexNotes(ctx, notes, force) {
				if outcome == nil {
					fmt.Fprintf(out, "%s\tfailed\n", notes[n].ID)
					continue
				}
				fmt.Fprintf(out, "%s\t%s\t%d chunks\t%d embedded\n", outcome.NoteID, outcome.Status, outcome.ChunksCount, outcome.EmbeddedCount)
			}
			return nil
		},
	}
	index.Flags().StringVar(&userFlag, "user", "", "user id (required)")
	index.Flags().StringVar(&noteFlag, "note", "", "index only this note")
	index.Flags().BoolVar(&force, "force", false, "replace existing chunks")
	_ = index.MarkFlagRequired("user")
	return index
}

func newTokenCommand(load loader) *cobra.Command {
	var userFlag string
	var ttl time.Duration
	token := &cobra.Command{
		Use:   "token",
		Short: "Sign an API token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(userFlag)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}

			c, err := load()
			if err != nil {
				return err
			}
			if c.Server.JWTSecret == "" {
				return fmt.Errorf("server.jwt_secret is not configured")
			}

			signed, err := server.SignToken(userID, []byte(c.Server.JWTSecret), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	token.Flags().StringVar(&userFlag, "user", "", "user id (required)")
	token.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = token.MarkFlagRequired("user")
	return token
}
