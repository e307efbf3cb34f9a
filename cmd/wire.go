package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ideagraph/semnet/internal/config"
	"ideagraph/semnet/internal/db"
	"ideagraph/semnet/internal/llm"
	"ideagraph/semnet/internal/network"
	"ideagraph/semnet/internal/source"
	"ideagraph/semnet/internal/source/local"
	weaviatesrc "ideagraph/semnet/internal/source/weaviate"
)

// engine bundles the collaborators of one process.
type engine struct {
	assembler *network.Assembler
	store     *db.DB
	llm       *llm.Client         // nil without an API key
	weaviate  *weaviatesrc.Source // nil for the local backend
	breaker   *source.BreakerSource
}

// newLLM returns nil when no API key is configured.
func newLLM(cfg *config.Config, logger *zap.Logger) (*llm.Client, error) {
	if cfg.OpenAI.APIKey == "" {
		logger.Info("openai api key not set, summaries and query embeddings disabled")
		return nil, nil
	}
	return llm.NewClient(llm.Config{
		APIKey:            cfg.OpenAI.APIKey,
		BaseURL:           cfg.OpenAI.BaseURL,
		Model:             cfg.OpenAI.Model,
		EmbeddingModel:    cfg.OpenAI.EmbeddingModel,
		RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
	}, logger.Named("llm"))
}

func newWeaviate(cfg *config.Config, embedder source.Embedder, logger *zap.Logger) (*weaviatesrc.Source, error) {
	client, err := weaviatesrc.NewClient(cfg.Weaviate.URL, cfg.Weaviate.APIKey)
	if err != nil {
		return nil, err
	}
	return weaviatesrc.New(client, cfg.Weaviate.Class, embedder, cfg.ScorePolicy(), logger.Named("weaviate")), nil
}

// newEngine wires the similarity backend, the breaker, the summarizer and
// the store into an Assembler.
func newEngine(ctx context.Context, cfg *config.Config, store *db.DB, logger *zap.Logger, recorder network.Recorder) (*engine, error) {
	e := &engine{store: store}

	client, err := newLLM(cfg, logger)
	if err != nil {
		return nil, err
	}
	e.llm = client

	var embedder source.Embedder
	var summarizer network.SummarySource
	if client != nil {
		embedder = client
		summarizer = client
	}

	var sim network.SimilaritySource
	switch cfg.Similarity.Backend {
	case source.BackendWeaviate:
		w, err := newWeaviate(cfg, embedder, logger)
		if err != nil {
			return nil, err
		}
		if err := w.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("preparing weaviate: %w", err)
		}
		e.weaviate = w
		sim = w
	default:
		sim = local.New(store, embedder, cfg.ScorePolicy(), logger.Named("local"))
	}

	if cfg.Breaker.Enabled {
		e.breaker = source.WithBreaker(sim, cfg.BreakerSettings(), logger)
		sim = e.breaker
	}

	asm, err := network.NewAssembler(cfg.Engine(), network.Options{
		Source:     sim,
		Resolver:   store,
		Summarizer: summarizer,
		Hierarchy:  store,
		Logger:     logger.Named("network"),
		Recorder:   recorder,
	})
	if err != nil {
		return nil, err
	}
	e.assembler = asm

	logger.Info("network engine ready",
		zap.String("backend", cfg.Similarity.Backend),
		zap.String("score_policy", cfg.ScorePolicy().String()),
		zap.Float64s("thresholds", cfg.Network.Thresholds),
		zap.Bool("summaries", summarizer != nil),
		zap.Bool("breaker", e.breaker != nil))
	return e, nil
}
