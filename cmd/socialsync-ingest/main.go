// Command socialsync-ingest loads raw event listings and profile question
// packs into the record store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/MrWong99/socialsync/internal/config"
	"github.com/MrWong99/socialsync/internal/ingest"
	"github.com/MrWong99/socialsync/pkg/provider/embeddings"
	ollamaembed "github.com/MrWong99/socialsync/pkg/provider/embeddings/ollama"
	oaembed "github.com/MrWong99/socialsync/pkg/provider/embeddings/openai"
	recordspg "github.com/MrWong99/socialsync/pkg/records/postgres"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	dataDir := flag.String("data", "./data_raw", "directory holding .txt corpus files")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "socialsync-ingest: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	embedder, err := newEmbedder(cfg.Providers.Embeddings)
	if err != nil {
		slog.Error("failed to create embeddings provider", "err", err)
		return 1
	}

	store, err := recordspg.NewStore(ctx, cfg.Storage.PostgresDSN, embedder)
	if err != nil {
		slog.Error("failed to open record store", "err", err)
		return 1
	}
	defer store.Close()

	stats, err := ingest.Dir(ctx, store, *dataDir)
	if err != nil {
		slog.Error("ingest failed", "err", err)
		return 1
	}

	slog.Info("ingest complete",
		"files", stats.Files,
		"events", stats.Events,
		"questions", stats.Questions,
	)
	return 0
}

func newEmbedder(entry config.ProviderEntry) (embeddings.Provider, error) {
	switch entry.Name {
	case "openai":
		var opts []oaembed.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaembed.WithBaseURL(entry.BaseURL))
		}
		return oaembed.New(entry.APIKey, entry.Model, opts...)
	case "ollama":
		return ollamaembed.New(entry.BaseURL, entry.Model)
	default:
		return nil, fmt.Errorf("unsupported embeddings provider %q", entry.Name)
	}
}
