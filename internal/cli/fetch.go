package cli

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ppiankov/gazetteer/internal/model"
	"github.com/ppiankov/gazetteer/internal/pipeline"
	"github.com/ppiankov/gazetteer/internal/validate"
	"github.com/ppiankov/gazetteer/internal/worker"
)

var fetchOpts struct {
	from, to      int
	concurrency   int
	timeout       time.Duration
	batchTimeout  time.Duration
	userAgent     string
	httpProxy     string
	httpsProxy    string
	rps           float64
	burst         int
	ignoreRobots  bool
	documentsFile string
	noVerify      bool
}

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download registrar bulletins into the local cache",
	Long: `Fetch fills the document cache from the Alberta Gazette site:
- Download each year's registrar index page
- Discover the text rendition of every bulletin it links
- Download bulletins in parallel, paced per host
- Skip anything already cached (fetch is safe to re-run)
- Evict cached bulletins that look like error pages so the next run retries them

Example:
  gazetteer fetch
  gazetteer fetch --from 2010 --to 2012 --concurrency 2
  gazetteer fetch --documents refetch.txt --rps 0.5`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	defaults := model.DefaultConfig()
	f := fetchCmd.Flags()
	f.IntVar(&fetchOpts.from, "from", defaults.Years.From, "first year to fetch")
	f.IntVar(&fetchOpts.to, "to", defaults.Years.To, "last year to fetch (inclusive)")
	f.IntVar(&fetchOpts.concurrency, "concurrency", defaults.Concurrency.Workers, "number of concurrent downloads")
	f.DurationVar(&fetchOpts.timeout, "timeout", defaults.HTTP.Timeout, "timeout for each request")
	f.DurationVar(&fetchOpts.batchTimeout, "batch-timeout", 2*time.Hour, "total timeout for the whole fetch")
	f.StringVar(&fetchOpts.userAgent, "ua", defaults.HTTP.UserAgent, "HTTP User-Agent")
	f.StringVar(&fetchOpts.httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	f.StringVar(&fetchOpts.httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	f.Float64Var(&fetchOpts.rps, "rps", defaults.RateLimiting.RequestsPerSecond, "requests per second per host (0 disables pacing)")
	f.IntVar(&fetchOpts.burst, "burst", defaults.RateLimiting.BurstSize, "request burst size per host")
	f.BoolVar(&fetchOpts.ignoreRobots, "ignore-robots", false, "do not consult robots.txt")
	f.StringVar(&fetchOpts.documentsFile, "documents", "", "fetch only the <year>/<stem> ids listed in this file")
	f.BoolVar(&fetchOpts.noVerify, "no-verify", false, "keep cached bulletins that look like error pages or truncated downloads")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("from") {
		cfg.Years.From = fetchOpts.from
	}
	if flags.Changed("to") {
		cfg.Years.To = fetchOpts.to
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency.Workers = fetchOpts.concurrency
	}
	if flags.Changed("timeout") {
		cfg.HTTP.Timeout = fetchOpts.timeout
	}
	if flags.Changed("ua") {
		cfg.HTTP.UserAgent = fetchOpts.userAgent
	}
	if flags.Changed("http-proxy") {
		cfg.HTTP.HTTPProxy = fetchOpts.httpProxy
	}
	if flags.Changed("https-proxy") {
		cfg.HTTP.HTTPSProxy = fetchOpts.httpsProxy
	}
	if flags.Changed("rps") {
		cfg.RateLimiting.RequestsPerSecond = fetchOpts.rps
	}
	if flags.Changed("burst") {
		cfg.RateLimiting.BurstSize = fetchOpts.burst
	}
	if flags.Changed("ignore-robots") {
		cfg.HTTP.IgnoreRobots = fetchOpts.ignoreRobots
	}

	if err := validateYears(cfg.Years); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), fetchOpts.batchTimeout)
	defer cancel()

	banner("Gazetteer Fetch")
	fmt.Fprintf(os.Stderr, "  Years:        %d-%d\n", cfg.Years.From, cfg.Years.To)
	fmt.Fprintf(os.Stderr, "  Cache dir:    %s\n", cfg.Cache.Dir)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Rate:         %.2f req/s (burst %d)\n", cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	fmt.Fprintf(os.Stderr, "  Robots.txt:   %v\n", !cfg.HTTP.IgnoreRobots)
	fmt.Fprintf(os.Stderr, "\n")

	p := pipeline.NewPipeline(cfg).WithLogger(log.Logger)
	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	honourCrawlDelay(ctx, p, limiter, cfg.Years.From)

	var ids []model.DocumentID
	var indexFailures int
	if fetchOpts.documentsFile != "" {
		ids, err = worker.ReadDocumentIDsFromFile(fetchOpts.documentsFile)
		if err != nil {
			return fmt.Errorf("read document list: %w", err)
		}
	} else {
		ids, indexFailures = discover(ctx, p, limiter, cfg.Years)
	}

	fmt.Fprintf(os.Stderr, "✓ %d bulletins to fetch\n\n", len(ids))

	results := worker.NewBatchProcessor(p.Downloader(), limiter, cfg.Concurrency.Workers).ProcessDocuments(ctx, ids)

	var downloaded, cached, failed, invalid int
	var fetched []model.DocumentID
	for _, r := range results {
		switch {
		case r.Error != nil:
			failed++
			log.Error().Err(r.Error).Str("document", r.ID.String()).Msg("fetch failed")
		case r.Download.Cached:
			cached++
			fetched = append(fetched, r.ID)
		default:
			downloaded++
			fetched = append(fetched, r.ID)
			log.Info().Str("document", r.ID.String()).Int("bytes", len(r.Download.Data)).Msg("fetched")
		}
	}

	if !fetchOpts.noVerify {
		for _, v := range validate.NewValidator(p.Catalog(), cfg.Concurrency.Workers).Validate(ctx, fetched) {
			if len(v.Warnings) > 0 {
				log.Warn().Str("document", v.ID.String()).Strs("warnings", v.Warnings).Msg("cached bulletin kept")
			}
			if v.Valid {
				continue
			}
			invalid++
			log.Warn().Str("document", v.ID.String()).Strs("problems", v.Problems).Msg("cached bulletin rejected")
			if err := p.Downloader().Evict(v.ID); err != nil {
				log.Error().Err(err).Str("document", v.ID.String()).Msg("evict failed")
			}
		}
	}

	banner("Fetch Complete")
	fmt.Fprintf(os.Stderr, "  Bulletins:    %d\n", len(results))
	fmt.Fprintf(os.Stderr, "  Downloaded:   %d\n", downloaded)
	fmt.Fprintf(os.Stderr, "  Cached:       %d\n", cached)
	fmt.Fprintf(os.Stderr, "  Failures:     %d\n", failed)
	if invalid > 0 {
		fmt.Fprintf(os.Stderr, "  Rejected:     %d (evicted, re-run to fetch again)\n", invalid)
	}
	if indexFailures > 0 {
		fmt.Fprintf(os.Stderr, "  Index pages:  %d failed\n", indexFailures)
	}
	fmt.Fprintf(os.Stderr, "\n")

	if failed+invalid > 0 || indexFailures > 0 {
		return fmt.Errorf("%d bulletins and %d year indexes could not be fetched; re-run to retry", failed+invalid, indexFailures)
	}
	return nil
}

// discover reads each year's index page and collects the bulletins it links.
// A year whose index cannot be fetched is logged and counted.
func discover(ctx context.Context, p *pipeline.Pipeline, limiter *worker.Limiter, years model.YearRange) ([]model.DocumentID, int) {
	var ids []model.DocumentID
	failures := 0

	for _, year := range years.Years() {
		if ctx.Err() != nil {
			failures++
			continue
		}

		indexURL := p.Downloader().YearIndexURL(year)
		if err := limiter.Wait(ctx, indexURL); err != nil {
			failures++
			continue
		}

		found, err := p.Downloader().Discover(ctx, year)
		if err != nil {
			failures++
			log.Error().Err(err).Int("year", year).Msg("year index failed")
			continue
		}

		log.Info().Int("year", year).Int("bulletins", len(found)).Msg("year index")
		ids = append(ids, found...)
	}

	return ids, failures
}

// honourCrawlDelay slows the limiter for the gazette host when robots.txt
// asks for a Crawl-delay
func honourCrawlDelay(ctx context.Context, p *pipeline.Pipeline, limiter *worker.Limiter, year int) {
	indexURL := p.Downloader().YearIndexURL(year)
	delay := p.Fetcher().CrawlDelay(ctx, indexURL)
	if delay <= 0 {
		return
	}

	u, err := url.Parse(indexURL)
	if err != nil {
		return
	}
	limiter.SlowHost(u.Host, delay)
	log.Info().Str("host", u.Host).Dur("crawl_delay", delay).Msg("honouring robots.txt crawl delay")
}
