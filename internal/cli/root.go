package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/gazetteer/internal/model"
)

// version is overridden at build time with -ldflags "-X ...cli.version=..."
var version = "v0.1.0"

var (
	cfgFile   string
	verbose   bool
	cacheDir  string
	logFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "gazetteer",
	Short: "Gazetteer - Alberta Gazette registrar bulletin downloader and record extractor",
	Long: `Gazetteer downloads the Alberta Gazette registrar bulletins (Corporate
Registrations, Corporate Name Changes) and turns them into tables.

  gazetteer fetch   fills the local document cache from the gazette site
  gazetteer parse   extracts incorporation and name change records from the cache

Records that cannot be parsed are logged and skipped; a run never stops on
a malformed line.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(viper.GetString("log.format"), verbose)
	},
}

// Execute runs the root command. Interrupts cancel the running command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of Gazetteer.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("gazetteer " + version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.gazetteer/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "document cache directory (default from config: cache)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log output format: console or json")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".gazetteer"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match GAZETTEER_* (cache.dir -> GAZETTEER_CACHE_DIR)
	viper.SetEnvPrefix("GAZETTEER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setupLogging configures the global zerolog logger
func setupLogging(format string, debug bool) error {
	if logFormat != "" {
		format = logFormat
	}

	zerolog.TimeFieldFormat = time.RFC3339
	switch strings.ToLower(format) {
	case "json":
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	case "", "console":
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	default:
		return fmt.Errorf("unknown log format %q (supported: console, json)", format)
	}

	level := zerolog.InfoLevel
	if lvl := viper.GetString("log.level"); lvl != "" {
		parsed, err := zerolog.ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("log level: %w", err)
		}
		level = parsed
	}
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	return nil
}

// loadConfig builds the effective configuration: defaults, overlaid by the
// config file, overlaid by GAZETTEER_* environment variables. Command flags
// are applied by each command afterwards.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	if path := viper.ConfigFileUsed(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if cacheDir != "" {
		cfg.Cache.Dir = cacheDir
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}

	return cfg, nil
}

// applyEnv overlays the environment variables viper resolves for the
// scalar settings users most often override per run
func applyEnv(cfg *model.Config) {
	envString := func(key string, dst *string) {
		if viper.IsSet(key) {
			*dst = viper.GetString(key)
		}
	}
	envInt := func(key string, dst *int) {
		if viper.IsSet(key) {
			*dst = viper.GetInt(key)
		}
	}

	envString("cache.dir", &cfg.Cache.Dir)
	envString("http.user_agent", &cfg.HTTP.UserAgent)
	envString("http.http_proxy", &cfg.HTTP.HTTPProxy)
	envString("http.https_proxy", &cfg.HTTP.HTTPSProxy)
	envString("output.dir", &cfg.Output.Dir)
	envString("output.format", &cfg.Output.Format)
	envString("mongo.uri", &cfg.Mongo.URI)
	envString("mongo.database", &cfg.Mongo.Database)
	envString("amqp.uri", &cfg.AMQP.URI)
	envString("amqp.queue", &cfg.AMQP.Queue)
	envString("log.format", &cfg.Log.Format)
	envString("log.level", &cfg.Log.Level)
	envInt("years.from", &cfg.Years.From)
	envInt("years.to", &cfg.Years.To)
	envInt("concurrency.workers", &cfg.Concurrency.Workers)
	if viper.IsSet("rate_limiting.requests_per_second") {
		cfg.RateLimiting.RequestsPerSecond = viper.GetFloat64("rate_limiting.requests_per_second")
	}
	if viper.IsSet("parse.legacy_effective_date") {
		cfg.Parse.LegacyEffectiveDate = viper.GetBool("parse.legacy_effective_date")
	}
}

// validateYears checks a year range
func validateYears(r model.YearRange) error {
	if r.From <= 0 || r.To <= 0 {
		return fmt.Errorf("invalid year range %d-%d", r.From, r.To)
	}
	if r.To < r.From {
		return fmt.Errorf("invalid year range %d-%d: --to is before --from", r.From, r.To)
	}
	return nil
}

func banner(title string) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  %s\n", title)
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
}
