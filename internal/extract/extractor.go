package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gap-assessment/internal/company"
	"github.com/sells-group/gap-assessment/internal/config"
	"github.com/sells-group/gap-assessment/internal/embed"
	"github.com/sells-group/gap-assessment/internal/events"
	"github.com/sells-group/gap-assessment/internal/scrape"
	"github.com/sells-group/gap-assessment/internal/vectorstore"
)

// Status summarizes the extraction state for one company.
type Status struct {
	Company       string    `json:"company"`
	Namespace     string    `json:"namespace"`
	LastExtracted time.Time `json:"last_extracted,omitzero"`
	VectorCount   int       `json:"vector_count"`
	Stale         bool      `json:"stale"`
}

// Result reports one extraction run.
type Result struct {
	Company   string `json:"company"`
	Skipped   bool   `json:"skipped"`
	Pages     int    `json:"pages"`
	Documents int    `json:"documents"`
	Chunks    int    `json:"chunks"`
}

// Extractor scrapes company sources, chunks them, embeds the chunks and
// upserts them into the company's namespace.
type Extractor struct {
	registry  *company.Registry
	chain     *scrape.Chain
	chunker   *Chunker
	embedder  embed.Provider
	store     vectorstore.Store
	records   *Records
	cfg       config.ExtractionConfig
	scrapeCfg config.ScrapeConfig
	events    *events.Sink
	now       func() time.Time
}

// NewExtractor wires the extraction pipeline.
func NewExtractor(
	registry *company.Registry,
	chain *scrape.Chain,
	embedder embed.Provider,
	store vectorstore.Store,
	records *Records,
	cfg config.ExtractionConfig,
	scrapeCfg config.ScrapeConfig,
	sink *events.Sink,
) *Extractor {
	return &Extractor{
		registry:  registry,
		chain:     chain,
		chunker:   NewChunker(cfg.ChunkSize, cfg.ChunkOverlap, cfg.MaxSourceMB),
		embedder:  embedder,
		store:     store,
		records:   records,
		cfg:       cfg,
		scrapeCfg: scrapeCfg,
		events:    sink,
		now:       time.Now,
	}
}

// ShouldExtract is the go/no-go gate for one company. Force always wins;
// without force, staleness checks only run when force_refresh is configured.
func (e *Extractor) ShouldExtract(ctx context.Context, c company.Company, force bool) (bool, error) {
	if force {
		return true, nil
	}
	if !e.cfg.ForceRefresh {
		return false, nil
	}

	last, found, err := e.records.LastExtraction(ctx, c.Key)
	if err != nil {
		return false, err
	}
	if !found {
		return true, nil
	}

	age := e.now().Sub(last)
	return age >= time.Duration(e.cfg.IntervalDays)*24*time.Hour, nil
}

// Extract runs the full pipeline for one company. A forced run drops and
// recreates the namespace first. Partial source failures (some URLs
// unreachable, some documents unreadable) do not abort the run; the record
// is updated only when at least the upsert succeeds.
func (e *Extractor) Extract(ctx context.Context, c company.Company, force bool) (*Result, error) {
	result := &Result{Company: c.Key}
	ns := c.Namespace()

	if force {
		if err := e.store.DeleteNamespace(ctx, ns); err != nil {
			zap.L().Warn("namespace drop failed, continuing",
				zap.String("namespace", ns),
				zap.Error(err),
			)
		}
	}
	if err := e.store.CreateNamespace(ctx, ns); err != nil {
		return nil, eris.Wrapf(err, "extract: create namespace %s", ns)
	}

	docs := make(map[string]string)

	pages := e.chain.ScrapeAll(ctx, c.SiteURLs, e.scrapeCfg.MaxConcurrent)
	for _, p := range pages {
		docs[p.URL] = p.Text
	}
	result.Pages = len(pages)

	if c.DocsDir != "" {
		local, err := loadDocuments(c.DocsDir)
		if err != nil {
			zap.L().Warn("local documents unreadable, continuing",
				zap.String("dir", c.DocsDir),
				zap.Error(err),
			)
		}
		for name, text := range local {
			docs[name] = text
		}
		result.Documents = len(local)
	}

	chunks := e.chunker.SplitAll(docs)
	result.Chunks = len(chunks)
	if len(chunks) == 0 {
		e.events.Extraction(c.Key, 0, eris.New("no content extracted"))
		return result, eris.Errorf("extract: no content for company %s", c.Key)
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		e.events.Extraction(c.Key, 0, err)
		return result, eris.Wrap(err, "extract: embed chunks")
	}

	upserts := make([]vectorstore.Vector, len(chunks))
	for i, ch := range chunks {
		upserts[i] = vectorstore.Vector{
			ID:     uuid.New().String(),
			Values: vectors[i],
			Text:   ch.Text,
			Payload: map[string]string{
				"source":      ch.Source,
				"chunk_index": fmt.Sprintf("%d", ch.Index),
			},
		}
	}
	if err := e.store.Upsert(ctx, ns, upserts); err != nil {
		e.events.Extraction(c.Key, 0, err)
		return result, eris.Wrapf(err, "extract: upsert namespace %s", ns)
	}

	if err := e.records.MarkExtracted(ctx, c.Key, e.now(), len(chunks)); err != nil {
		// The vectors made it in; a record failure only affects staleness.
		zap.L().Warn("extraction record update failed", zap.Error(err))
	}

	e.events.Extraction(c.Key, len(chunks), nil)
	return result, nil
}

// ExtractAll runs extraction for every registry company that needs it.
func (e *Extractor) ExtractAll(ctx context.Context, force bool) ([]Result, error) {
	var results []Result
	for _, c := range e.registry.All() {
		needed, err := e.ShouldExtract(ctx, c, force)
		if err != nil {
			return results, err
		}
		if !needed {
			results = append(results, Result{Company: c.Key, Skipped: true})
			continue
		}

		res, err := e.Extract(ctx, c, force)
		if err != nil {
			// Extraction failures do not block remaining companies.
			zap.L().Warn("extraction failed",
				zap.String("company", c.Key),
				zap.Error(err),
			)
		}
		if res != nil {
			results = append(results, *res)
		}
	}
	return results, nil
}

// Status reports freshness and vector counts for every registry company.
func (e *Extractor) Status(ctx context.Context) ([]Status, error) {
	var out []Status
	for _, c := range e.registry.All() {
		st := Status{Company: c.Key, Namespace: c.Namespace()}

		last, found, err := e.records.LastExtraction(ctx, c.Key)
		if err != nil {
			return nil, err
		}
		if found {
			st.LastExtracted = last
			st.Stale = e.now().Sub(last) >= time.Duration(e.cfg.IntervalDays)*24*time.Hour
		} else {
			st.Stale = true
		}

		stats, err := e.store.Stats(ctx, c.Namespace())
		if err != nil {
			zap.L().Warn("stats unavailable",
				zap.String("namespace", c.Namespace()),
				zap.Error(err),
			)
		} else {
			st.VectorCount = stats.VectorCount
		}
		out = append(out, st)
	}
	return out, nil
}

// documentExtensions are the local file types ingested from a docs dir.
var documentExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".html": true,
	".htm":  true,
}

// loadDocuments reads supported files from a directory, non-recursively.
func loadDocuments(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read dir %s", dir)
	}

	docs := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !documentExtensions[ext] {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			zap.L().Warn("document unreadable, skipping",
				zap.String("path", path),
				zap.Error(err),
			)
			continue
		}

		text := string(data)
		if ext == ".html" || ext == ".htm" {
			text = scrape.StripHTML(text)
		}
		docs[entry.Name()] = text
	}
	return docs, nil
}
