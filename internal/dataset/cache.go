package dataset

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/chrissnell/forecastview/internal/forecast"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const refreshKey = "dataset"

// Cache holds the most recently loaded Dataset. Readers never block on each
// other; concurrent refreshes share a single load.
type Cache struct {
	loader          Loader
	reloadOnRequest bool
	logger          *zap.SugaredLogger

	group   singleflight.Group
	current atomic.Pointer[snapshot]
}

type snapshot struct {
	dataset  *forecast.Dataset
	loadedAt time.Time
}

// NewCache creates a cache in front of loader. With reloadOnRequest set,
// every Dataset call goes back to the source.
func NewCache(loader Loader, reloadOnRequest bool, logger *zap.SugaredLogger) *Cache {
	return &Cache{
		loader:          loader,
		reloadOnRequest: reloadOnRequest,
		logger:          logger,
	}
}

// Loader returns the underlying loader.
func (c *Cache) Loader() Loader {
	return c.loader
}

// Dataset returns the cached dataset, loading it first if nothing has been
// loaded yet or the cache reloads on every request.
func (c *Cache) Dataset(ctx context.Context) (*forecast.Dataset, error) {
	if !c.reloadOnRequest {
		if snap := c.current.Load(); snap != nil {
			return snap.dataset, nil
		}
	}
	return c.Refresh(ctx)
}

// Refresh reloads the dataset from the source. If the load fails the
// previously cached dataset stays in place and the error is returned.
func (c *Cache) Refresh(ctx context.Context) (*forecast.Dataset, error) {
	ch := c.group.DoChan(refreshKey, func() (any, error) {
		// The load is shared by every waiting caller, so one caller going
		// away must not cancel it for the others.
		loadCtx := context.WithoutCancel(ctx)

		start := time.Now()
		ds, err := c.loader.Load(loadCtx)
		if err != nil {
			c.logger.Errorw("dataset load failed", "source", c.loader.Describe(), "error", err)
			return nil, err
		}

		c.current.Store(&snapshot{dataset: ds, loadedAt: time.Now()})
		c.logger.Infow("dataset loaded",
			"source", c.loader.Describe(),
			"records", ds.Len(),
			"duration", time.Since(start))
		return ds, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*forecast.Dataset), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// LoadedAt returns when the cached dataset was loaded, or the zero time.
func (c *Cache) LoadedAt() time.Time {
	if snap := c.current.Load(); snap != nil {
		return snap.loadedAt
	}
	return time.Time{}
}
