package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/chrissnell/forecastview/internal/controllers/restserver"
	"github.com/chrissnell/forecastview/internal/dataset"
	"github.com/chrissnell/forecastview/internal/log"
	"github.com/chrissnell/forecastview/pkg/config"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const initialLoadTimeout = 2 * time.Minute

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	loader, err := dataset.NewLoader(cfg.Data, a.logger)
	if err != nil {
		return err
	}
	if closer, ok := loader.(io.Closer); ok {
		defer closer.Close()
	}

	log.Debugf("dataset source: %s", loader.Describe())
	cache := dataset.NewCache(loader, cfg.Data.ReloadOnRequest, a.logger)

	// Fail at startup rather than on the first request if the source is unusable
	loadCtx, loadCancel := context.WithTimeout(ctx, initialLoadTimeout)
	_, err = cache.Refresh(loadCtx)
	loadCancel()
	if err != nil {
		return fmt.Errorf("initial dataset load failed: %w", err)
	}

	scheduler, err := a.scheduleRefresh(ctx, cfg.Data.RefreshSchedule, cache)
	if err != nil {
		return err
	}
	if scheduler != nil {
		scheduler.Start()
		defer func() { <-scheduler.Stop().Done() }()
	}

	rest, err := restserver.NewController(ctx, &wg, cfg.REST, cache, a.logger)
	if err != nil {
		return err
	}
	if err := rest.StartController(); err != nil {
		return err
	}

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}

// scheduleRefresh registers the periodic dataset reload. It returns nil
// when no schedule is configured.
func (a *App) scheduleRefresh(ctx context.Context, schedule string, cache *dataset.Cache) (*cron.Cron, error) {
	if schedule == "" || cache == nil {
		return nil, nil
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		a.logger.Infow("scheduled dataset refresh", "source", cache.Loader().Describe())
		if _, err := cache.Refresh(ctx); err != nil {
			a.logger.Errorw("scheduled dataset refresh failed; keeping previous dataset", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid data.refresh_schedule %q: %w", schedule, err)
	}

	a.logger.Infof("dataset refresh scheduled: %s", schedule)
	return c, nil
}
