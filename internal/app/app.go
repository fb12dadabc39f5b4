// Package app wires configuration, storage, the LLM provider and the
// analysis services into one application container.
package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/handlers"
	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/services/analysis"
	"github.com/ternarybob/aestimo/internal/services/checklist"
	"github.com/ternarybob/aestimo/internal/services/extraction"
	"github.com/ternarybob/aestimo/internal/services/gc"
	"github.com/ternarybob/aestimo/internal/services/llm"
	badgerstorage "github.com/ternarybob/aestimo/internal/storage/badger"
	"github.com/ternarybob/arbor"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	Provider          llm.Provider
	ExtractionService interfaces.ExtractionService
	ChecklistService  *checklist.Service
	Pipeline          *analysis.Pipeline
	Sweeper           *gc.Sweeper

	AnalysisHandler  *handlers.AnalysisHandler
	ChecklistHandler *handlers.ChecklistHandler
	StatusHandler    *handlers.StatusHandler
}

// New initializes the application: storage first, then the provider, the
// pipeline services and finally the HTTP handlers.
func New(ctx context.Context, config *common.Config, logger arbor.ILogger) (*App, error) {
	storageManager, err := badgerstorage.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	provider, err := llm.NewProvider(ctx, config, logger)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}

	extractionService, err := extraction.NewService(provider, &config.Pipeline, logger)
	if err != nil {
		provider.Close()
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize extraction service: %w", err)
	}

	checklistService := checklist.NewService(storageManager.ChecklistStorage(), logger)
	pipeline := analysis.NewPipeline(&config.Pipeline, storageManager, extractionService, checklistService, logger)

	sweeper := gc.NewSweeper(storageManager.FingerprintStorage(), &config.Cache,
		func() string { return config.Pipeline.ProcessingVersion }, logger)

	app := &App{
		Config:            config,
		Logger:            logger,
		StorageManager:    storageManager,
		Provider:          provider,
		ExtractionService: extractionService,
		ChecklistService:  checklistService,
		Pipeline:          pipeline,
		Sweeper:           sweeper,

		AnalysisHandler:  handlers.NewAnalysisHandler(pipeline, logger),
		ChecklistHandler: handlers.NewChecklistHandler(checklistService, logger),
		StatusHandler:    handlers.NewStatusHandler(config, sweeper, logger),
	}

	if err := sweeper.Start(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to start cache sweeper: %w", err)
	}

	logger.Info().
		Str("provider", string(provider.GetProviderType())).
		Str("processing_version", config.Pipeline.ProcessingVersion).
		Msg("Application initialized")

	return app, nil
}

// Close releases the application's resources in reverse construction order.
func (a *App) Close() {
	if a.Sweeper != nil {
		a.Sweeper.Stop()
	}
	if a.Provider != nil {
		if err := a.Provider.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM provider")
		}
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
	}
}
