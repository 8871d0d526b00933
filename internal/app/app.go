package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/handlers"
	"github.com/ternarybob/colligo/internal/httpclient"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/services/archive"
	"github.com/ternarybob/colligo/internal/services/classifier"
	"github.com/ternarybob/colligo/internal/services/resolver"
	"github.com/ternarybob/colligo/internal/services/scraper"
)

// App holds all application components and dependencies.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	Client  *httpclient.Client
	History interfaces.HistoryStore
	Scraper *scraper.Service
	Manager *scraper.Manager

	WSHandler    *handlers.WebSocketHandler
	RunHandler   *handlers.RunHandler
	FilesHandler *handlers.FilesHandler
}

// New assembles the application from configuration.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	client, err := httpclient.New(config.Crawler, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	var history interfaces.HistoryStore = archive.NoopHistory{}
	if config.Archive.HistoryPath != "" {
		store, err := archive.OpenHistory(config.Archive.HistoryPath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open download history: %w", err)
		}
		history = store
	}

	svc := scraper.NewService(config, logger, client,
		classifier.New(config, logger),
		resolver.New(config, client, logger),
		history,
	)
	manager := scraper.NewManager(svc, logger)

	wsHandler := handlers.NewWebSocketHandler(logger)

	return &App{
		Config:       config,
		Logger:       logger,
		Client:       client,
		History:      history,
		Scraper:      svc,
		Manager:      manager,
		WSHandler:    wsHandler,
		RunHandler:   handlers.NewRunHandler(manager, wsHandler, logger),
		FilesHandler: handlers.NewFilesHandler(config, logger),
	}, nil
}

// Close releases the app's resources. Safe to call once at shutdown.
func (a *App) Close() error {
	a.Manager.Stop()
	if err := a.History.Close(); err != nil {
		return fmt.Errorf("failed to close history store: %w", err)
	}
	return nil
}
