package dataset

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
)

func TestNewTimescaleLoaderValidation(t *testing.T) {
	logger := zap.NewNop().Sugar()

	if _, err := NewTimescaleLoader("", "forecasts", logger); err == nil {
		t.Error("expected an error without a connection string")
	}
	if _, err := NewTimescaleLoader("host=localhost", "forecasts; DROP TABLE x", logger); err == nil {
		t.Error("expected an error for an invalid table name")
	}
}

func TestTimescaleLoaderConcurrentLoad(t *testing.T) {
	// Nothing listens on port 1, so every connect attempt fails fast.
	loader, err := NewTimescaleLoader(
		"host=127.0.0.1 port=1 user=forecast dbname=forecast sslmode=disable connect_timeout=1",
		"forecasts", zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("NewTimescaleLoader failed: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = loader.Load(context.Background())
		}()
	}
	wg.Wait()

	for i, err := range errs {
		var dle *DataLoadError
		if !errors.As(err, &dle) {
			t.Errorf("load %d: expected *DataLoadError, got %v", i, err)
		}
	}

	if err := loader.Close(); err != nil {
		t.Errorf("Close on an unconnected loader returned %v", err)
	}
}
