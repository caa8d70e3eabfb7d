package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ppiankov/gazetteer/internal/cache"
	"github.com/ppiankov/gazetteer/internal/model"
)

// PageFetcher retrieves a remote page with retries
type PageFetcher interface {
	FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error)
}

// Downloader fills the document cache from the gazette site
type Downloader struct {
	fetcher PageFetcher
	store   cache.Cache
	source  model.SourceConfig
	logger  zerolog.Logger
}

// NewDownloader creates a downloader writing into store
func NewDownloader(fetcher PageFetcher, store cache.Cache, source model.SourceConfig) *Downloader {
	return &Downloader{
		fetcher: fetcher,
		store:   store,
		source:  source,
		logger:  log.Logger,
	}
}

// WithLogger replaces the diagnostic logger
func (d *Downloader) WithLogger(logger zerolog.Logger) *Downloader {
	d.logger = logger
	return d
}

// Download is the outcome of one cache fill
type Download struct {
	URL    string
	Key    string
	Cached bool // served from cache without a request
	Data   []byte
}

// Download stores the page at rawURL under key unless key is already cached
func (d *Downloader) Download(ctx context.Context, rawURL, key string) (*Download, error) {
	if data, ok := d.store.Get(key); ok {
		d.logger.Debug().Str("key", key).Msg("cache hit")
		return &Download{URL: rawURL, Key: key, Cached: true, Data: data}, nil
	}

	d.logger.Info().Str("url", rawURL).Str("key", key).Msg("download")
	result, err := d.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", rawURL, err)
	}

	d.logger.Debug().
		Str("key", key).
		Int("status", result.Meta.StatusCode).
		Str("content_type", result.Meta.ContentType).
		Str("last_modified", result.Meta.LastModified).
		Str("final_url", result.FinalURL).
		Msg("downloaded")

	data := []byte(result.Text)
	if err := d.store.Set(key, data, 0); err != nil {
		return nil, fmt.Errorf("cache %s: %w", key, err)
	}

	return &Download{URL: rawURL, Key: key, Data: data}, nil
}

// Discover downloads a year's index page and returns the bulletins it links
func (d *Downloader) Discover(ctx context.Context, year int) ([]model.DocumentID, error) {
	page, err := d.Download(ctx, d.YearIndexURL(year), model.YearIndexKey(year))
	if err != nil {
		return nil, err
	}

	stems, err := ParseIndex(string(page.Data))
	if err != nil {
		return nil, fmt.Errorf("year %d: %w", year, err)
	}

	ids := make([]model.DocumentID, 0, len(stems))
	for _, stem := range stems {
		ids = append(ids, model.DocumentID{Year: year, Stem: stem})
	}
	return ids, nil
}

// DownloadDocument caches one bulletin's text
func (d *Downloader) DownloadDocument(ctx context.Context, id model.DocumentID) (*Download, error) {
	return d.Download(ctx, d.DocumentURL(id), id.CacheKey())
}

// IsCached reports whether a bulletin is already in the cache
func (d *Downloader) IsCached(id model.DocumentID) bool {
	_, ok := d.store.Get(id.CacheKey())
	return ok
}

// Evict drops a bulletin from the cache so the next fetch downloads it again
func (d *Downloader) Evict(id model.DocumentID) error {
	return d.store.Delete(id.CacheKey())
}

// YearIndexURL returns the index page URL for a year
func (d *Downloader) YearIndexURL(year int) string {
	return expandURL(d.source.YearIndexURL, year, "")
}

// DocumentURL returns the text rendition URL for a bulletin
func (d *Downloader) DocumentURL(id model.DocumentID) string {
	return expandURL(d.source.DocumentURL, id.Year, id.Stem)
}

func expandURL(template string, year int, docID string) string {
	return strings.NewReplacer("{year}", strconv.Itoa(year), "{docid}", docID).Replace(template)
}
