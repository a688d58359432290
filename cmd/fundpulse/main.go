// fundpulse - fund momentum analyzer with streamed AI commentary
package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"FundPulse/internal/collector"
	"FundPulse/internal/config"
	"FundPulse/internal/holdings"
	"FundPulse/internal/logger"
	"FundPulse/internal/metrics"
	"FundPulse/internal/narrative"
	"FundPulse/internal/recorder"
)

var (
	version = "0.1.0"
	cfgPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fundpulse",
		Short: "Fund momentum analyzer",
		Long: `fundpulse fetches NAV history and intraday estimates for a list of
funds, scores their momentum and optionally streams an AI commentary.`,
		SilenceUsage: true,
	}

	defaultCfg := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultCfg = v
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultCfg, "Path to the YAML config file")

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("fundpulse version %s\n", version)
		},
	}
}

// app holds the components shared by every command.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	metrics   *metrics.Recorder
	collector *collector.Collector
	narrator  narrative.Streamer
	holdings  *holdings.Store
	recorder  recorder.Recorder
}

func newApp() (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.New(cfg.Log)
	logger.SetGlobalLogger(log)

	a := &app{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(prometheus.DefaultRegisterer),
	}

	col := collector.NewCollector(
		collector.NewEastmoneyFetcher(cfg.DataSource.HistoryBaseURL, cfg.Proxy),
		collector.NewFundgzFetcher(cfg.DataSource.QuoteBaseURL, cfg.Proxy),
		log.With().Str("component", "collector").Logger(),
	)
	col.Timeout = cfg.DataSource.FetchTimeout
	col.Concurrency = cfg.DataSource.Concurrency
	col.Metrics = a.metrics
	a.collector = col

	if cfg.NarrationEnabled() {
		a.narrator = narrative.NewClient(cfg.Narrative.APIKey,
			narrative.WithBaseURL(cfg.Narrative.BaseURL),
			narrative.WithModel(cfg.Narrative.Model),
			narrative.WithTimeout(cfg.Narrative.Timeout),
			narrative.WithProxy(cfg.Proxy),
		)
	} else {
		log.Info().Msg("no narrative API key configured, AI commentary disabled")
	}

	_, statErr := os.Stat(cfg.Holdings.StateFile)
	store, err := holdings.NewStore(cfg.Holdings.StateFile, log)
	if err != nil {
		return nil, fmt.Errorf("init holdings: %w", err)
	}
	// a fresh state file starts from the configured window
	if os.IsNotExist(statErr) {
		if err := store.SetWindow(cfg.Window()); err != nil {
			return nil, fmt.Errorf("init holdings: %w", err)
		}
	}
	a.holdings = store

	a.recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			a.recorder = sr
		}
	}
	return a, nil
}

func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		a.log.Error().Err(err).Msg("close recorder")
	}
}
