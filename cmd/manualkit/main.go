// Command manualkit is the entry point for the Manualkit CLI.
// It wires infrastructure adapters to the core services and hands
// control to the cobra command tree.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/manualkit/internal/adapters/driven/ai"
	configfile "github.com/custodia-labs/manualkit/internal/adapters/driven/config/file"
	"github.com/custodia-labs/manualkit/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/manualkit/internal/adapters/driving/cli"
	"github.com/custodia-labs/manualkit/internal/chunker"
	"github.com/custodia-labs/manualkit/internal/core/ports/driven"
	"github.com/custodia-labs/manualkit/internal/core/services"
	"github.com/custodia-labs/manualkit/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Optional .env for local development; a missing file is not an error.
	_ = godotenv.Load()

	cfg, err := configfile.NewConfigStore(os.Getenv("MANUALKIT_CONFIG_DIR"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Missing or unreachable providers are non-fatal; the core degrades
	// to the documented low-confidence fallbacks.
	providers, err := ai.Init(cfg)
	if err != nil {
		return err
	}
	defer providers.Close()
	for _, w := range providers.Warnings {
		logger.Warn("%s", w)
	}

	store, err := sqlite.NewStore(cfg.GetString("storage.data_dir"))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	registry := services.NewProductRegistry()
	if err := registry.LoadAll(context.Background(), store); err != nil {
		logger.Warn("reloading persisted products: %v", err)
	}

	ranker := services.NewRanker()
	synthesizer := services.NewResponseSynthesizer(providers.Responder,
		synthesizerOptions(cfg)...)
	splitter := chunker.New(splitterOptions(cfg)...)

	assistant := services.NewAssistantService(registry, store, providers.Embedder, synthesizer, ranker, splitter)
	sessions := services.NewSessionManager(registry, providers.Embedder, synthesizer, ranker, providers.Transcriber)

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go sessions.RunSweeper(sweepCtx, services.DefaultSweepInterval, services.DefaultSessionIdle)

	cli.SetServices(assistant, sessions)
	return cli.Execute()
}

func synthesizerOptions(cfg driven.ConfigStore) []services.SynthesizerOption {
	var opts []services.SynthesizerOption
	if budget := cfg.GetInt("synthesis.token_budget"); budget > 0 {
		opts = append(opts, services.WithTokenBudget(budget))
	}
	return opts
}

func splitterOptions(cfg driven.ConfigStore) []chunker.Option {
	var opts []chunker.Option
	if n := cfg.GetInt("chunking.max_words"); n > 0 {
		opts = append(opts, chunker.WithMaxWords(n))
	}
	if n := cfg.GetInt("chunking.overlap_words"); n > 0 {
		opts = append(opts, chunker.WithOverlap(n))
	}
	return opts
}
