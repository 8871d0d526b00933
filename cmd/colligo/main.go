package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/app"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/server"
	"github.com/ternarybob/colligo/internal/services/scraper"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	serverPort   = flag.Int("port", 0, "Server port (overrides config)")
	serverPortP  = flag.Int("p", 0, "Server port (shorthand, overrides config)")
	serverHost   = flag.String("host", "", "Server host (overrides config)")
	archiveDir   = flag.String("archive-dir", "", "Archive directory (overrides config)")
	symbolList   = flag.String("symbols", "", "Comma-separated company symbols for a one-off run")
	runOnce      = flag.Bool("once", false, "Run the batch for -symbols and exit instead of serving")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	defer common.RecoverWithCrashFile()

	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Colligo version %s\n", common.GetVersion())
		os.Exit(0)
	}

	finalPort := *serverPort
	if *serverPortP != 0 {
		finalPort = *serverPortP
	}

	// Startup order: config, CLI overrides, logger, banner.
	if len(configFiles) == 0 {
		if _, err := os.Stat("colligo.toml"); err == nil {
			configFiles = append(configFiles, "colligo.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, finalPort, *serverHost, *archiveDir)

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())
	common.InstallCrashHandler("logs")

	logger.Info().
		Strs("config_files", configFiles).
		Str("archive_dir", config.Archive.Dir).
		Msg("Application configuration loaded")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	if *runOnce {
		os.Exit(runBatch(application, logger))
	}

	srv := server.New(application)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Server failed to start")
			os.Exit(1)
		}
	}()

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("Server ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("Interrupt signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}

	logger.Info().Msg("Server stopped")
}

// runBatch executes a single foreground run for the -symbols list.
func runBatch(application *app.App, logger arbor.ILogger) int {
	symbols := splitSymbols(*symbolList)
	if len(symbols) == 0 {
		logger.Error().Msg("-once requires -symbols")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := application.Scraper.Run(ctx, scraper.RunRequest{Symbols: symbols}, logSink{logger})
	if err != nil {
		logger.Error().Err(err).Msg("Run did not complete")
		return 1
	}

	cfg := application.Config
	expected := cfg.Selection.MaxConcallPeriods + cfg.Selection.MaxAnnualReports
	logger.Info().
		Int("downloaded", stats.Downloaded).
		Int("companies", stats.CompaniesProcessed).
		Float64("success_rate", stats.SuccessRate(expected)).
		Msg("Batch run finished")
	return 0
}

func splitSymbols(list string) []string {
	var symbols []string
	for _, s := range strings.Split(list, ",") {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}

// logSink writes progress events to the application log for foreground runs.
type logSink struct {
	logger arbor.ILogger
}

func (s logSink) Publish(event models.ProgressEvent) {
	entry := s.logger.Info()
	switch event.Kind {
	case models.ProgressError:
		entry = s.logger.Error()
	case models.ProgressWarning:
		entry = s.logger.Warn()
	}
	entry.
		Str("kind", string(event.Kind)).
		Str("symbol", event.Symbol).
		Int("downloaded", event.Stats.Downloaded).
		Msg(event.Message)
}
