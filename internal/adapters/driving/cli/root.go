// Package cli implements the command-line driving adapter. It is also
// the composition root: Execute wires the stores, indexes and services
// together before dispatching to the subcommands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	configfile "github.com/custodia-labs/sercha-engine/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-engine/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/sercha-engine/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/sercha-engine/internal/adapters/driven/storage/sqlite"
	chromemvec "github.com/custodia-labs/sercha-engine/internal/adapters/driven/vector/chromem"
	"github.com/custodia-labs/sercha-engine/internal/core/domain"
	"github.com/custodia-labs/sercha-engine/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-engine/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-engine/internal/core/services"
	"github.com/custodia-labs/sercha-engine/internal/logger"
	"github.com/custodia-labs/sercha-engine/internal/postprocessors"
	"github.com/custodia-labs/sercha-engine/internal/postprocessors/chunker"
	"github.com/custodia-labs/sercha-engine/internal/summarizer"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services and shared handles, wired by ensureServices.
var (
	configStore   driven.ConfigStore
	spaceStore    driven.SpaceStore
	searchService driving.SearchService
	ingestService driving.IngestionService

	store       *sqlite.Store
	vectorIndex driven.VectorIndex
	embedder    driven.EmbeddingService
)

var (
	verbose bool
	dataDir string
)

var rootCmd = &cobra.Command{
	Use:   "sercha-engine",
	Short: "Hybrid retrieval engine over local document spaces",
	Long: `sercha-engine ingests documents into isolated search spaces and serves
hybrid queries that fuse semantic (vector) and lexical (BM25) rankings
with reciprocal rank fusion.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.sercha-engine)")
}

// Execute runs the root command.
func Execute() error {
	defer closeServices()
	return rootCmd.Execute()
}

// ensureServices wires the engine on first use. Commands that need no
// services (version) never trigger it.
func ensureServices() error {
	if searchService != nil {
		return nil
	}

	baseDir := dataDir
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("getting home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".sercha-engine")
	}

	cfg, err := configfile.NewConfigStore(baseDir)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	configStore = cfg

	store, err = sqlite.NewStore(filepath.Join(baseDir, "data"))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	spaceStore = store.SpaceStore()

	vectorIndex, err = chromemvec.NewIndex(filepath.Join(baseDir, "data", "vectors"))
	if err != nil {
		return fmt.Errorf("opening vector index: %w", err)
	}

	embedder, err = buildEmbedder(cfg)
	if err != nil {
		return err
	}

	pipeline := postprocessors.NewPipeline(chunker.New(
		chunker.WithChunkSize(intOrDefault(cfg.GetInt("chunker.size"), chunker.DefaultChunkSize)),
		chunker.WithOverlap(intOrDefault(cfg.GetInt("chunker.overlap"), chunker.DefaultChunkOverlap)),
	))

	searchService = services.NewHybridSearchService(
		store.DocumentStore(),
		store.SearchEngine(),
		vectorIndex,
		embedder,
		services.SearchConfig{
			RRFConstant:         cfg.GetInt("search.rrf_constant"),
			CandidateMultiplier: cfg.GetInt("search.candidate_multiplier"),
		},
	)

	ingestService = services.NewIngestionPipeline(
		store.DocumentStore(),
		vectorIndex,
		embedder,
		summarizer.NewFrequency(),
		pipeline,
		services.IngestConfig{
			PersistAttempts:  cfg.GetInt("ingest.persist_attempts"),
			SummarySentences: cfg.GetInt("ingest.summary_sentences"),
		},
	)

	return nil
}

// buildEmbedder selects the embedding provider from configuration and
// validates its reported dimensionality.
func buildEmbedder(cfg driven.ConfigStore) (driven.EmbeddingService, error) {
	var svc driven.EmbeddingService

	switch provider := cfg.GetString("embedding.provider"); provider {
	case "openai":
		s, err := openai.NewEmbeddingService(openai.Config{
			APIKey:            cfg.GetString("embedding.api_key"),
			BaseURL:           cfg.GetString("embedding.base_url"),
			Model:             cfg.GetString("embedding.model"),
			Dimensions:        cfg.GetInt("embedding.dimensions"),
			RequestsPerSecond: cfg.GetFloat("embedding.requests_per_second"),
		})
		if err != nil {
			return nil, fmt.Errorf("configuring openai embeddings: %w", err)
		}
		svc = s
	case "", "ollama":
		svc = ollama.NewEmbeddingService(ollama.Config{
			BaseURL:           cfg.GetString("embedding.base_url"),
			Model:             cfg.GetString("embedding.model"),
			Dimensions:        cfg.GetInt("embedding.dimensions"),
			RequestsPerSecond: cfg.GetFloat("embedding.requests_per_second"),
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}

	if dims := svc.Dimensions(); dims <= 0 || dims > domain.MaxEmbeddingDim {
		return nil, fmt.Errorf("embedding dimensionality %d out of range (1..%d)",
			dims, domain.MaxEmbeddingDim)
	}

	return svc, nil
}

// closeServices releases long-lived handles opened by ensureServices.
func closeServices() {
	if embedder != nil {
		embedder.Close() //nolint:errcheck
	}
	if vectorIndex != nil {
		vectorIndex.Close() //nolint:errcheck
	}
	if store != nil {
		store.Close() //nolint:errcheck
	}
}

// intOrDefault substitutes def when v is unset.
func intOrDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
