// Command socialsync is the main entry point for the SocialSync event
// recommendation server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/socialsync/internal/agent"
	"github.com/MrWong99/socialsync/internal/config"
	"github.com/MrWong99/socialsync/internal/health"
	"github.com/MrWong99/socialsync/internal/mailer"
	"github.com/MrWong99/socialsync/internal/observe"
	"github.com/MrWong99/socialsync/internal/resilience"
	"github.com/MrWong99/socialsync/internal/server"
	profilepg "github.com/MrWong99/socialsync/pkg/profile/postgres"
	"github.com/MrWong99/socialsync/pkg/provider/embeddings"
	ollamaembed "github.com/MrWong99/socialsync/pkg/provider/embeddings/ollama"
	oaembed "github.com/MrWong99/socialsync/pkg/provider/embeddings/openai"
	"github.com/MrWong99/socialsync/pkg/provider/llm"
	"github.com/MrWong99/socialsync/pkg/provider/llm/anyllm"
	recordspg "github.com/MrWong99/socialsync/pkg/records/postgres"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// .env is optional; real deployments set environment variables directly.
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded environment from .env")
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "socialsync: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "socialsync: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("socialsync starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "socialsync"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	oracle, embedder, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Storage ───────────────────────────────────────────────────────────────
	if cfg.Storage.PostgresDSN == "" {
		slog.Error("storage.postgres_dsn is required: event retrieval needs the record store")
		return 1
	}
	recordStore, err := recordspg.NewStore(ctx, cfg.Storage.PostgresDSN, embedder)
	if err != nil {
		slog.Error("failed to open record store", "err", err)
		return 1
	}
	defer recordStore.Close()

	profileStore, err := profilepg.NewStoreWithPool(ctx, recordStore.Pool())
	if err != nil {
		slog.Error("failed to open profile store", "err", err)
		return 1
	}
	slog.Info("database connected")

	// ── Agent ─────────────────────────────────────────────────────────────────
	sessions := agent.NewRegistry(cfg.Agent.Persona, metrics)
	picker := agent.NewQuestionPicker(recordStore)
	controller := agent.NewController(oracle, recordStore, profileStore, sessions, picker, agent.Config{
		Classifier: agent.ClassifierConfig{
			SearchToken:        cfg.Agent.SearchToken,
			CelebrationTokens:  cfg.Agent.CelebrationTokens,
			ContinuationTokens: cfg.Agent.ContinuationTokens,
		},
		RetrieveK:     cfg.Agent.RetrieveK,
		ShowLimit:     cfg.Agent.ShowLimit,
		OracleTimeout: cfg.Agent.OracleTimeout.Std(),
	}, metrics)

	// ── HTTP server ───────────────────────────────────────────────────────────
	healthHandler := health.New(health.Checker{
		Name:  "database",
		Check: recordStore.Ping,
	})

	opts := []server.Option{
		server.WithProfiles(profileStore),
		server.WithHealth(healthHandler),
		server.WithMetrics(metrics),
	}
	if cfg.Email.SMTPHost != "" {
		m, err := mailer.New(mailer.Config{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Sender:   cfg.Email.Sender,
			Password: cfg.Email.Password,
		})
		if err != nil {
			slog.Error("failed to configure mailer", "err", err)
			return 1
		}
		opts = append(opts, server.WithMailer(m))
		slog.Info("event email enabled", "smtp_host", cfg.Email.SMTPHost)
	}

	listenAddr := cfg.Server.ListenAddr
	if listenAddr == "" {
		listenAddr = ":8080"
	}
	srv := server.New(controller, opts...).NewHTTPServer(listenAddr)

	slog.Info("server ready — press Ctrl+C to shut down", "addr", listenAddr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// openai, anthropic, gemini, deepseek, mistral, groq, llamacpp, llamafile
	// all share the same pattern: optional APIKey + optional BaseURL.
	for _, providerName := range []string{
		"openai", "anthropic", "gemini",
		"deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	reg.RegisterEmbeddings("openai", func(entry config.ProviderEntry) (embeddings.Provider, error) {
		var opts []oaembed.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaembed.WithBaseURL(entry.BaseURL))
		}
		return oaembed.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterEmbeddings("ollama", func(entry config.ProviderEntry) (embeddings.Provider, error) {
		return ollamaembed.New(entry.BaseURL, entry.Model)
	})
}

// buildProviders instantiates the language oracle and embeddings provider
// named in cfg. When a fallback LLM is configured, the oracle is wrapped in a
// circuit-breaking fallback group.
func buildProviders(cfg *config.Config, reg *config.Registry) (llm.Provider, embeddings.Provider, error) {
	if cfg.Providers.LLM.Name == "" {
		return nil, nil, fmt.Errorf("providers.llm.name is required")
	}
	oracle, err := reg.CreateLLM(cfg.Providers.LLM)
	if err != nil {
		return nil, nil, fmt.Errorf("create llm provider %q: %w", cfg.Providers.LLM.Name, err)
	}
	slog.Info("provider created", "kind", "llm", "name", cfg.Providers.LLM.Name, "model", cfg.Providers.LLM.Model)

	if name := cfg.Providers.FallbackLLM.Name; name != "" {
		fallback, err := reg.CreateLLM(cfg.Providers.FallbackLLM)
		if err != nil {
			return nil, nil, fmt.Errorf("create fallback llm provider %q: %w", name, err)
		}
		group := resilience.NewOracleFallback(oracle, cfg.Providers.LLM.Name, resilience.FallbackConfig{})
		group.AddFallback(name, fallback)
		oracle = group
		slog.Info("provider created", "kind", "fallback_llm", "name", name, "model", cfg.Providers.FallbackLLM.Model)
	}

	if cfg.Providers.Embeddings.Name == "" {
		return nil, nil, fmt.Errorf("providers.embeddings.name is required")
	}
	embedder, err := reg.CreateEmbeddings(cfg.Providers.Embeddings)
	if err != nil {
		return nil, nil, fmt.Errorf("create embeddings provider %q: %w", cfg.Providers.Embeddings.Name, err)
	}
	slog.Info("provider created", "kind", "embeddings", "name", cfg.Providers.Embeddings.Name, "model", cfg.Providers.Embeddings.Model)

	return oracle, embedder, nil
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
