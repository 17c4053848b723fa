// Package app wires the graph client and every service built on it from a
// Config. The server, the CLI and the seed script share it.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cybergraph/backend/internal/adapter"
	"cybergraph/backend/internal/answer"
	"cybergraph/backend/internal/api"
	"cybergraph/backend/internal/attack"
	"cybergraph/backend/internal/extract"
	"cybergraph/backend/internal/graph"
	"cybergraph/backend/internal/ingest"
	"cybergraph/backend/pkg/config"
	"cybergraph/backend/pkg/logger"
)

const bundleFetchTimeout = 2 * time.Minute

// App holds the wired services.
type App struct {
	Config    *config.Config
	Exec      graph.Executor
	Mutator   *graph.Mutator
	Paths     *graph.PathFinder
	Retriever *graph.Retriever
	Inspector *graph.Inspector
	Generator *answer.Generator
	Pipeline  *ingest.Pipeline
	Fetcher   attack.BundleFetcher

	client *graph.Neo4jClient
	logger *zap.Logger
}

// New connects to Neo4j and builds every service from cfg.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	driver, err := graph.Connect(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
	if err != nil {
		return nil, err
	}
	client := graph.NewNeo4jClient(driver, cfg.Neo4jDatabase, cfg.Neo4jQueryTimeout)

	vocab, err := config.LoadVocabulary(cfg.VocabularyFile)
	if err != nil {
		_ = client.Close(ctx)
		return nil, err
	}

	llm := adapter.NewLLMAdapter(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTemperature)

	a := Assemble(cfg, vocab, client, llm, attack.NewHTTPFetcher(bundleFetchTimeout))
	a.client = client
	return a, nil
}

// Assemble builds the services over an existing executor and LLM.
func Assemble(cfg *config.Config, vocab *config.Vocabulary, exec graph.Executor, llm extract.Completer, fetcher attack.BundleFetcher) *App {
	if vocab == nil {
		vocab = &config.Vocabulary{}
	}

	extractor := extract.NewLLMExtractor(llm, vocab.EntityTypes)
	mutator := graph.NewMutator(exec, extractor)

	return &App{
		Config:    cfg,
		Exec:      exec,
		Mutator:   mutator,
		Paths:     graph.NewPathFinder(exec),
		Retriever: graph.NewRetriever(exec, vocab.StopWords),
		Inspector: graph.NewInspector(exec),
		Generator: answer.NewGenerator(llm, cfg.LLMModel),
		Pipeline: ingest.NewPipeline(mutator, cfg.MaxSourceChars,
			ingest.WithYtdlp(cfg.YtdlpPath)),
		Fetcher: fetcher,
		logger:  logger.Named("app"),
	}
}

// Services exposes the HTTP-facing operations.
func (a *App) Services() api.Services {
	return api.Services{
		Inspector: a.Inspector,
		Paths:     a.Paths,
		Retriever: a.Retriever,
		Generator: a.Generator,
		Ingester:  a.Pipeline,
		Attack:    a,
	}
}

// EnsureSchema applies constraints and indexes.
func (a *App) EnsureSchema(ctx context.Context) graph.SchemaResult {
	return graph.EnsureSchema(ctx, a.Exec)
}

// ImportAttack fetches and imports one ATT&CK matrix.
func (a *App) ImportAttack(ctx context.Context, matrix string, includeDeprecated bool) (*attack.BundleStats, error) {
	importer, err := attack.NewImporter(a.Exec, a.Fetcher, matrix)
	if err != nil {
		return nil, err
	}
	return importer.Import(ctx, includeDeprecated)
}

// ImportMatrices downloads several matrices concurrently and imports them one
// after another. A failed download aborts before anything is written.
func (a *App) ImportMatrices(ctx context.Context, matrices []string, includeDeprecated bool) (map[string]*attack.BundleStats, error) {
	bundles, err := attack.FetchMatrices(ctx, a.Fetcher, matrices)
	if err != nil {
		return nil, err
	}

	results := make(map[string]*attack.BundleStats, len(matrices))
	for _, m := range matrices {
		importer, err := attack.NewImporter(a.Exec, a.Fetcher, m)
		if err != nil {
			return results, err
		}
		results[m] = importer.ImportBundle(ctx, bundles[m], includeDeprecated)
		a.logger.Info("Imported matrix", zap.String("matrix", m), zap.Any("stats", results[m]))
	}
	return results, nil
}

// Close releases the Neo4j driver.
func (a *App) Close(ctx context.Context) error {
	if a.client == nil {
		return nil
	}
	if err := a.client.Close(ctx); err != nil {
		return fmt.Errorf("failed to close neo4j driver: %w", err)
	}
	return nil
}
