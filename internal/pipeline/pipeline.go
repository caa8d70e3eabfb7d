package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ppiankov/gazetteer/internal/cache"
	"github.com/ppiankov/gazetteer/internal/extract"
	"github.com/ppiankov/gazetteer/internal/model"
	"github.com/ppiankov/gazetteer/internal/sink"
)

// Pipeline wires the downloader, the document cache and the aggregator
// from one configuration
type Pipeline struct {
	config     *model.Config
	cache      *cache.LayeredCache
	fetcher    *Fetcher
	downloader *Downloader
	catalog    *CacheCatalog
	logger     zerolog.Logger
}

// NewPipeline creates a pipeline with the given configuration
func NewPipeline(cfg *model.Config) *Pipeline {
	store := cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, 0)
	fetcher := NewFetcher(cfg.HTTP)
	return &Pipeline{
		config:     cfg,
		cache:      store,
		fetcher:    fetcher,
		downloader: NewDownloader(fetcher, store, cfg.Source),
		catalog:    NewCacheCatalog(store.Disk()),
		logger:     log.Logger,
	}
}

// WithLogger replaces the diagnostic logger of every stage
func (p *Pipeline) WithLogger(logger zerolog.Logger) *Pipeline {
	p.logger = logger
	p.downloader.WithLogger(logger)
	return p
}

// Fetcher returns the HTTP fetcher
func (p *Pipeline) Fetcher() *Fetcher {
	return p.fetcher
}

// Downloader returns the cache-filling stage
func (p *Pipeline) Downloader() *Downloader {
	return p.downloader
}

// Catalog returns the cached document catalog
func (p *Pipeline) Catalog() *CacheCatalog {
	return p.catalog
}

// Extract parses every cached bulletin in the configured year range. It fails
// fast with ErrNoDocuments when nothing has been fetched.
func (p *Pipeline) Extract(ctx context.Context) (*Result, error) {
	if err := p.catalog.Check(); err != nil {
		return nil, err
	}

	skip, err := NewSkipList(p.config.SkipDocuments)
	if err != nil {
		return nil, err
	}

	parser := extract.NewParser(extract.NewBuilder(p.config.Parse.LegacyEffectiveDate))
	result, err := NewAggregator(p.catalog, parser, skip).WithLogger(p.logger).Run(ctx, p.config.Years)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	return result, nil
}

// Export writes a run's records to the configured sink
func (p *Pipeline) Export(ctx context.Context, result *Result) (err error) {
	s, err := sink.Open(ctx, p.config)
	if err != nil {
		return fmt.Errorf("open %s sink: %w", p.config.Output.Format, err)
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s sink: %w", p.config.Output.Format, closeErr)
		}
	}()

	return result.Write(ctx, s, p.config.Output.PerDocument)
}
