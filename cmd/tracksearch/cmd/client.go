package cmd

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tracksearch"
	"github.com/kailas-cloud/tracksearch/internal/config"
)

// defaultVectorizer is picked when several vectorizers are configured.
const defaultVectorizer = "default"

// openClient is the composition root: it maps the config onto SDK options.
func openClient(ctx context.Context, cfg config.Config, logger *zap.Logger) (*tracksearch.Client, error) {
	client, err := tracksearch.New(ctx, clientOptions(cfg, logger)...)
	if err != nil {
		return nil, fmt.Errorf("open client: %w", err)
	}
	return client, nil
}

func clientOptions(cfg config.Config, logger *zap.Logger) []tracksearch.Option {
	opts := []tracksearch.Option{
		tracksearch.WithLogger(logger),
		tracksearch.WithKeyPrefix(cfg.Storage.KeyPrefix),
		tracksearch.WithReadinessTimeout(time.Duration(cfg.Database.ReadinessTimeout) * time.Second),
		tracksearch.WithEmbeddingCacheSize(cfg.Embedding.CacheSize),
		tracksearch.WithSearchConfig(tracksearch.SearchConfig{
			DefaultLimit:   cfg.Search.DefaultLimit,
			MaxLimit:       cfg.Search.MaxLimit,
			MinQueryLength: cfg.Search.MinQueryLength,
		}),
		tracksearch.WithIndexerConfig(tracksearch.IndexerConfig{
			EmbeddingBatchSize:  cfg.Indexer.EmbeddingBatchSize,
			StaleThresholdHours: cfg.Indexer.StaleThresholdHours,
			CleanupStale:        cfg.Indexer.CleanupStale == nil || *cfg.Indexer.CleanupStale,
			Workers:             cfg.Indexer.Workers,
			WorkItemsSince:      time.Duration(cfg.Indexer.WorkItemsSinceHours) * time.Hour,
		}),
	}

	switch cfg.Database.Driver {
	case config.DriverRedis:
		opts = append(opts, tracksearch.WithRedis(cfg.Database.Addrs, cfg.Database.Password))
	default:
		opts = append(opts, tracksearch.WithLocal(cfg.Database.Path, cfg.Database.IndexPath))
	}

	if oc, ok := openAIConfig(cfg); ok {
		opts = append(opts, tracksearch.WithOpenAI(oc))
	} else {
		logger.Warn("No embedding provider configured, search is lexical-only and sync is disabled")
	}

	if cfg.Sync.SnapshotDir != "" {
		opts = append(opts, tracksearch.WithSnapshotSource(cfg.Sync.SnapshotDir))
	}
	return opts
}

// openAIConfig resolves the vectorizer to use. A provider without an API key is treated as absent.
func openAIConfig(cfg config.Config) (tracksearch.OpenAIConfig, bool) {
	if len(cfg.Embedding.Vectorizers) == 0 {
		return tracksearch.OpenAIConfig{}, false
	}

	name := defaultVectorizer
	if _, ok := cfg.Embedding.Vectorizers[name]; !ok {
		names := make([]string, 0, len(cfg.Embedding.Vectorizers))
		for n := range cfg.Embedding.Vectorizers {
			names = append(names, n)
		}
		slices.Sort(names)
		name = names[0]
	}

	vec := cfg.Embedding.Vectorizers[name]
	prov := cfg.Embedding.Providers[vec.Provider]
	if prov.APIKey == "" {
		return tracksearch.OpenAIConfig{}, false
	}

	return tracksearch.OpenAIConfig{
		APIKey:              prov.APIKey,
		BaseURL:             prov.BaseURL,
		Model:               vec.Model,
		Dimensions:          vec.Dimensions,
		DocumentInstruction: vec.DocumentInstruction,
		QueryInstruction:    vec.QueryInstruction,
		Timeout:             time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
	}, true
}

func projectRefs(refs []config.ProjectRef) []tracksearch.Project {
	out := make([]tracksearch.Project, len(refs))
	for i, r := range refs {
		out[i] = tracksearch.Project{Organization: r.Organization, Project: r.Project}
	}
	return out
}
