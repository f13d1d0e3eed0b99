package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/querysmith/querysmith/internal/api"
	"github.com/querysmith/querysmith/internal/config"
	"github.com/querysmith/querysmith/internal/dbregistry"
	"github.com/querysmith/querysmith/internal/llm"
	"github.com/querysmith/querysmith/internal/ollama"
	"github.com/querysmith/querysmith/internal/pipeline"
	"github.com/querysmith/querysmith/internal/storage"
	"github.com/querysmith/querysmith/internal/vectorindex"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the querysmith server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open storage.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Embeddings are optional: without a reachable Ollama the similarity
	// index stays empty and retrieval falls back to full schema listings.
	embedClient := ollama.New(cfg.Embedding.BaseURL)
	if !embedClient.IsRunning(ctx) {
		printWarning("embedding backend not reachable at %s, schema search disabled", cfg.Embedding.BaseURL)
	}
	embedder := &ollamaEmbedder{client: embedClient, model: cfg.Embedding.Model}
	index := vectorindex.NewIndex(vectorindex.NewStore(store.DB()), embedder, slog.Default())

	// Registries.
	databases, err := dbregistry.New(cfg.Storage.DataDir, index)
	if err != nil {
		return fmt.Errorf("opening database registry: %w", err)
	}
	models, err := llm.NewRegistry(cfg.Storage.DataDir, cfg.Defaults.Provider)
	if err != nil {
		return fmt.Errorf("opening model registry: %w", err)
	}

	// Make sure at least one database is registered and indexed.
	if id, err := databases.Bootstrap(ctx, cfg.Defaults.DatabaseURL, cfg.Defaults.DatabaseType); err != nil {
		printWarning("bootstrap skipped: %v", err)
	} else if id != "" {
		slog.Info("default database ready", "id", id)
	}

	// Query pipeline.
	retriever := pipeline.NewSchemaRetriever(index, databases, slog.Default())
	executor := pipeline.NewExecutor(databases)
	processor := pipeline.NewProcessor(databases, models, retriever, executor, slog.Default())

	deps := api.Deps{Processor: processor, Databases: databases, Models: models}
	handler := api.NewHandler(deps)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// MCP server on stdio.
	mcpSrv := api.NewMCPServer(deps)
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "querysmith listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// ollamaEmbedder adapts the ollama client to the vector index.
type ollamaEmbedder struct {
	client *ollama.Client
	model  string
}

func (e *ollamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.client.Embed(ctx, e.model, text)
}
