package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ppiankov/gazetteer/internal/model"
	"github.com/ppiankov/gazetteer/internal/pipeline"
	"github.com/ppiankov/gazetteer/internal/score"
	"github.com/ppiankov/gazetteer/internal/sink"
)

var parseOpts struct {
	from, to            int
	format              string
	outputDir           string
	noPerDocument       bool
	legacyEffectiveDate bool
	noDefaultSkips      bool
	skip                []string
}

// parseCmd represents the parse command
var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Extract incorporation and name change records from cached bulletins",
	Long: `Parse reads every cached bulletin in the year range and extracts:
- Incorporations from the Corporate Registrations section
- Name changes from the Corporate Name Changes section

Records are written per bulletin and as master lists covering the whole
range. Lines that cannot be parsed are logged and skipped. Bulletins on the
skip list (skip_documents, --skip) are never read.

Name change effective dates are read from the "Effective Date:" field. Use
--legacy-effective-date to reproduce older tables, which repeated the
registration date in that column.

Example:
  gazetteer parse
  gazetteer parse --from 2016 --to 2018 --format json --output-dir ./out
  gazetteer parse --format mongo
  gazetteer parse --skip 2012/05_Mar15`,
	Args: cobra.NoArgs,
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	defaults := model.DefaultConfig()
	f := parseCmd.Flags()
	f.IntVar(&parseOpts.from, "from", defaults.Years.From, "first year to parse")
	f.IntVar(&parseOpts.to, "to", defaults.Years.To, "last year to parse (inclusive)")
	f.StringVar(&parseOpts.format, "format", defaults.Output.Format, "output format: "+strings.Join(sink.Formats, ", "))
	f.StringVar(&parseOpts.outputDir, "output-dir", defaults.Output.Dir, "output directory for file formats")
	f.BoolVar(&parseOpts.noPerDocument, "no-per-document", false, "write only the master lists")
	f.BoolVar(&parseOpts.legacyEffectiveDate, "legacy-effective-date", false, "fill the effective date with the registration date")
	f.BoolVar(&parseOpts.noDefaultSkips, "no-default-skips", false, "parse the bulletins skipped by default")
	f.StringArrayVar(&parseOpts.skip, "skip", nil, "additional <year>/<stem> bulletin to skip (repeatable)")
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("from") {
		cfg.Years.From = parseOpts.from
	}
	if flags.Changed("to") {
		cfg.Years.To = parseOpts.to
	}
	if flags.Changed("format") {
		cfg.Output.Format = parseOpts.format
	}
	if flags.Changed("output-dir") {
		cfg.Output.Dir = parseOpts.outputDir
	}
	if flags.Changed("no-per-document") {
		cfg.Output.PerDocument = !parseOpts.noPerDocument
	}
	if flags.Changed("legacy-effective-date") {
		cfg.Parse.LegacyEffectiveDate = parseOpts.legacyEffectiveDate
	}
	if parseOpts.noDefaultSkips {
		cfg.SkipDocuments = nil
	}
	cfg.SkipDocuments = append(cfg.SkipDocuments, parseOpts.skip...)

	if err := validateYears(cfg.Years); err != nil {
		return err
	}
	if err := sink.ValidateFormat(cfg.Output.Format); err != nil {
		return err
	}

	ctx := cmd.Context()
	p := pipeline.NewPipeline(cfg).WithLogger(log.Logger)

	banner("Gazetteer Parse")
	fmt.Fprintf(os.Stderr, "  Years:        %d-%d\n", cfg.Years.From, cfg.Years.To)
	fmt.Fprintf(os.Stderr, "  Cache dir:    %s\n", cfg.Cache.Dir)
	fmt.Fprintf(os.Stderr, "  Format:       %s\n", cfg.Output.Format)
	fmt.Fprintf(os.Stderr, "  Output:       %s\n", outputTarget(cfg))
	fmt.Fprintf(os.Stderr, "  Per bulletin: %v\n", cfg.Output.PerDocument)
	fmt.Fprintf(os.Stderr, "  Skip list:    %d bulletins\n", len(cfg.SkipDocuments))
	if cfg.Parse.LegacyEffectiveDate {
		fmt.Fprintf(os.Stderr, "  Effective:    legacy (registration date)\n")
	}
	fmt.Fprintf(os.Stderr, "\n")

	result, err := p.Extract(ctx)
	if errors.Is(err, pipeline.ErrNoDocuments) {
		return fmt.Errorf("%w\nRun 'gazetteer fetch --from %d --to %d' to download the bulletins", err, cfg.Years.From, cfg.Years.To)
	}
	if err != nil {
		return err
	}

	if err := p.Export(ctx, result); err != nil {
		return err
	}

	health := score.NewScorer().Assess(result.Documents)
	for _, signal := range health.Signals {
		event := log.Info()
		if signal.Severity != score.SeverityInfo {
			event = log.Warn()
		}
		event.Str("document", signal.Document.String()).
			Str("severity", string(signal.Severity)).
			Fields(signal.Data).
			Msg(signal.Description)
	}

	banner("Parse Complete")
	fmt.Fprintf(os.Stderr, "  Bulletins:       %d parsed, %d skipped, %d unreadable\n", len(result.Documents), len(result.Skipped), len(result.Unreadable))
	fmt.Fprintf(os.Stderr, "  Incorporations:  %d\n", len(result.Incorporations))
	fmt.Fprintf(os.Stderr, "  Name changes:    %d\n", len(result.NameChanges))
	fmt.Fprintf(os.Stderr, "  Dropped lines:   %d (%.2f%%)\n", len(result.Failures), health.FailureRate*100)
	fmt.Fprintf(os.Stderr, "  Output:          %s\n", outputTarget(cfg))
	if len(health.SkipCandidates) > 0 {
		fmt.Fprintf(os.Stderr, "\n  Bulletins losing most of their lines (consider --skip):\n")
		for _, id := range health.SkipCandidates {
			fmt.Fprintf(os.Stderr, "    %s\n", id)
		}
	}
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// outputTarget describes where records go for the configured format
func outputTarget(cfg *model.Config) string {
	switch strings.ToLower(cfg.Output.Format) {
	case "mongo":
		return "mongo database " + cfg.Mongo.Database
	case "amqp":
		return "queue " + cfg.AMQP.Queue
	default:
		return cfg.Output.Dir
	}
}
