package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ppiankov/gazetteer/internal/cache"
	"github.com/ppiankov/gazetteer/internal/extract"
	"github.com/ppiankov/gazetteer/internal/model"
)

// ErrNoDocuments is returned when the document cache has never been filled
var ErrNoDocuments = errors.New("no gazette documents cached; run 'gazetteer fetch' first")

// Catalog lists and reads cached bulletins
type Catalog interface {
	Documents(year int) ([]model.DocumentID, error)
	ReadDocument(id model.DocumentID) (string, error)
}

// CacheCatalog serves bulletins straight from the disk cache
type CacheCatalog struct {
	disk *cache.DiskCache
}

// NewCacheCatalog creates a catalog over a disk cache
func NewCacheCatalog(disk *cache.DiskCache) *CacheCatalog {
	return &CacheCatalog{disk: disk}
}

// Check fails with ErrNoDocuments when nothing has been fetched yet
func (c *CacheCatalog) Check() error {
	if !c.disk.Exists("gazette") {
		return fmt.Errorf("%w (cache dir %s)", ErrNoDocuments, c.disk.Dir())
	}
	return nil
}

// Documents lists a year's cached bulletins in file name order
func (c *CacheCatalog) Documents(year int) ([]model.DocumentID, error) {
	keys, err := c.disk.List(path.Join("gazette", strconv.Itoa(year)), ".txt")
	if err != nil {
		return nil, err
	}

	ids := make([]model.DocumentID, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, model.DocumentID{Year: year, Stem: strings.TrimSuffix(path.Base(key), ".txt")})
	}
	return ids, nil
}

// ReadDocument returns a cached bulletin's text
func (c *CacheCatalog) ReadDocument(id model.DocumentID) (string, error) {
	data, ok := c.disk.Get(id.CacheKey())
	if !ok {
		return "", fmt.Errorf("document %s not cached", id)
	}
	return string(data), nil
}

// SkipList holds bulletins excluded from parsing
type SkipList map[model.DocumentID]struct{}

// NewSkipList builds a skip list from "<year>/<stem>" entries
func NewSkipList(entries []string) (SkipList, error) {
	skip := make(SkipList, len(entries))
	for _, entry := range entries {
		id, err := model.ParseDocumentID(entry)
		if err != nil {
			return nil, fmt.Errorf("skip list: %w", err)
		}
		skip[id] = struct{}{}
	}
	return skip, nil
}

// Contains reports whether id is skipped
func (s SkipList) Contains(id model.DocumentID) bool {
	_, ok := s[id]
	return ok
}

// DocumentResult holds the records extracted from one bulletin
type DocumentResult struct {
	ID             model.DocumentID
	Incorporations []model.Incorporation
	NameChanges    []model.NameChange
	Failures       int
	Unterminated   []string
}

// LineFailure is a record line that was dropped
type LineFailure struct {
	Document model.DocumentID
	Section  string
	Line     string
	Err      error
}

// Result accumulates a whole run
type Result struct {
	Years          model.YearRange
	Documents      []DocumentResult
	Incorporations []model.Incorporation
	NameChanges    []model.NameChange
	Failures       []LineFailure
	Skipped        []model.DocumentID
	Unreadable     []model.DocumentID
}

// Aggregator parses every cached bulletin in a year range
type Aggregator struct {
	catalog Catalog
	parser  *extract.Parser
	skip    SkipList
	logger  zerolog.Logger
}

// NewAggregator creates an aggregator
func NewAggregator(catalog Catalog, parser *extract.Parser, skip SkipList) *Aggregator {
	if parser == nil {
		parser = extract.NewParser(nil)
	}
	return &Aggregator{
		catalog: catalog,
		parser:  parser,
		skip:    skip,
		logger:  log.Logger,
	}
}

// WithLogger replaces the diagnostic logger
func (a *Aggregator) WithLogger(logger zerolog.Logger) *Aggregator {
	a.logger = logger
	return a
}

// Run parses the bulletins of every year in years. Skipped bulletins are not
// read. Lines that fail to parse are logged and collected; they never stop
// the run. Only listing errors and cancellation are returned.
func (a *Aggregator) Run(ctx context.Context, years model.YearRange) (*Result, error) {
	result := &Result{
		Years:          years,
		Incorporations: []model.Incorporation{},
		NameChanges:    []model.NameChange{},
	}

	for _, year := range years.Years() {
		ids, err := a.catalog.Documents(year)
		if err != nil {
			return nil, fmt.Errorf("list %d: %w", year, err)
		}
		if len(ids) == 0 {
			a.logger.Warn().Int("year", year).Msg("no cached documents for year")
		}

		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			if a.skip.Contains(id) {
				a.logger.Info().Str("document", id.String()).Msg("skipping listed document")
				result.Skipped = append(result.Skipped, id)
				continue
			}

			text, err := a.catalog.ReadDocument(id)
			if err != nil {
				a.logger.Error().Err(err).Str("document", id.String()).Msg("read failed")
				result.Unreadable = append(result.Unreadable, id)
				continue
			}

			a.add(result, id, a.parser.Parse(text))
		}
	}

	return result, nil
}

// add folds one document's records into the run result
func (a *Aggregator) add(result *Result, id model.DocumentID, records *extract.Records) {
	for _, f := range records.Failures {
		a.logger.Warn().
			Err(f.Err).
			Str("document", id.String()).
			Str("section", f.Section).
			Str("line", f.Line).
			Msg("record dropped")
		result.Failures = append(result.Failures, LineFailure{
			Document: id,
			Section:  f.Section,
			Line:     f.Line,
			Err:      f.Err,
		})
	}

	for _, section := range records.Unterminated {
		a.logger.Warn().
			Str("document", id.String()).
			Str("section", section).
			Msg("section not terminated, records discarded")
	}

	result.Documents = append(result.Documents, DocumentResult{
		ID:             id,
		Incorporations: records.Incorporations,
		NameChanges:    records.NameChanges,
		Failures:       len(records.Failures),
		Unterminated:   records.Unterminated,
	})
	result.Incorporations = append(result.Incorporations, records.Incorporations...)
	result.NameChanges = append(result.NameChanges, records.NameChanges...)

	a.logger.Debug().
		Str("document", id.String()).
		Int("incorporations", len(records.Incorporations)).
		Int("namechanges", len(records.NameChanges)).
		Int("failures", len(records.Failures)).
		Msg("parsed document")
}
