package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gap-assessment/internal/assess"
	"github.com/sells-group/gap-assessment/internal/company"
	"github.com/sells-group/gap-assessment/internal/embed"
	"github.com/sells-group/gap-assessment/internal/events"
	"github.com/sells-group/gap-assessment/internal/extract"
	"github.com/sells-group/gap-assessment/internal/llm"
	"github.com/sells-group/gap-assessment/internal/rag"
	"github.com/sells-group/gap-assessment/internal/scrape"
	"github.com/sells-group/gap-assessment/internal/vectorstore"
	jinapkg "github.com/sells-group/gap-assessment/pkg/jina"
)

// assessEnv holds everything a command needs, wired once.
type assessEnv struct {
	Registry     *company.Registry
	Store        vectorstore.Store
	Records      *extract.Records
	Extractor    *extract.Extractor
	Orchestrator *assess.Orchestrator
}

func (e *assessEnv) Close() {
	if e.Records != nil {
		_ = e.Records.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv wires the full pipeline from config: registry, store, scraper
// chain, embedding and generation providers, extractor, engine, comparator,
// orchestrator.
func initEnv(ctx context.Context) (*assessEnv, error) {
	registry, err := company.LoadRegistry(cfg.Companies.Path)
	if err != nil {
		return nil, err
	}

	store, err := vectorstore.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	records, err := extract.OpenRecords(cfg.Extraction.RecordsPath)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	if cfg.Embeddings.Key == "" {
		_ = records.Close()
		_ = store.Close()
		return nil, eris.New("GAPSCAN_EMBEDDINGS_KEY not set")
	}
	embedder := embed.NewJina(cfg.Embeddings.Key, cfg.Embeddings.Model, cfg.Embeddings.Dimension,
		embed.WithBaseURL(cfg.Embeddings.BaseURL),
		embed.WithRateLimit(cfg.Embeddings.RatePerSec),
	)

	var generator llm.Provider
	if cfg.Anthropic.Key != "" {
		generator = llm.NewAnthropic(cfg.Anthropic.Key, cfg.Anthropic.Model,
			int64(cfg.Anthropic.MaxTokens), cfg.Anthropic.Temperature)
	} else {
		zap.L().Warn("GAPSCAN_ANTHROPIC_KEY not set, model scoring and synthesis disabled")
	}

	// Scraper chain: Jina Reader first when a key is configured, plain HTTP
	// as the fallback.
	var scrapers []scrape.Scraper
	if cfg.Scrape.JinaKey != "" {
		reader := jinapkg.NewClient(cfg.Scrape.JinaKey, jinapkg.WithBaseURL(cfg.Scrape.JinaBaseURL))
		scrapers = append(scrapers, scrape.NewJinaAdapter(reader))
	} else {
		zap.L().Debug("GAPSCAN_SCRAPE_JINA_KEY not set, using local scraper only")
	}
	scrapers = append(scrapers, scrape.NewLocalScraper())
	chain := scrape.NewChain(scrape.NewPathMatcher(nil), scrapers...)

	sink := events.NewSink(zap.L())
	extractor := extract.NewExtractor(registry, chain, embedder, store, records,
		cfg.Extraction, cfg.Scrape, sink)
	engine := rag.NewEngine(store, embedder, generator, cfg.RAG, sink)
	comparator := rag.NewComparator(generator, cfg.Comparison, sink)

	var orchestrator *assess.Orchestrator
	if generator != nil {
		orchestrator = assess.NewOrchestrator(registry, extractor, engine, comparator, generator, sink)
	}

	return &assessEnv{
		Registry:     registry,
		Store:        store,
		Records:      records,
		Extractor:    extractor,
		Orchestrator: orchestrator,
	}, nil
}

// requireOrchestrator fails commands that need the generation provider.
func (e *assessEnv) requireOrchestrator() (*assess.Orchestrator, error) {
	if e.Orchestrator == nil {
		return nil, eris.New("GAPSCAN_ANTHROPIC_KEY required for assessment")
	}
	return e.Orchestrator, nil
}
