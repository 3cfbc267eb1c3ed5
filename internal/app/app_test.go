package app

import (
	"context"
	"testing"

	"github.com/chrissnell/forecastview/internal/dataset"
	"github.com/chrissnell/forecastview/pkg/config"
	"go.uber.org/zap"
)

type staticProvider struct {
	cfg config.ConfigData
}

func (p *staticProvider) LoadConfig() (*config.ConfigData, error) { return &p.cfg, nil }
func (p *staticProvider) GetDataSource() (*config.DataSourceData, error) {
	return &p.cfg.Data, nil
}
func (p *staticProvider) GetRESTServer() (*config.RESTServerData, error) {
	return &p.cfg.REST, nil
}
func (p *staticProvider) IsReadOnly() bool { return true }
func (p *staticProvider) Close() error     { return nil }

func TestScheduleRefresh(t *testing.T) {
	a := New(&staticProvider{}, zap.NewNop().Sugar())
	cache := dataset.NewCache(dataset.NewCSVLoader("unused.csv", zap.NewNop().Sugar()), false, zap.NewNop().Sugar())

	c, err := a.scheduleRefresh(context.Background(), "", cache)
	if err != nil || c != nil {
		t.Errorf("expected no scheduler for an empty schedule, got %v, %v", c, err)
	}

	c, err = a.scheduleRefresh(context.Background(), "*/5 * * * *", cache)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c == nil || len(c.Entries()) != 1 {
		t.Errorf("expected one scheduled entry")
	}

	if _, err := a.scheduleRefresh(context.Background(), "every so often", cache); err == nil {
		t.Error("expected error for an invalid schedule")
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	a := New(&staticProvider{cfg: config.ConfigData{Data: config.DataSourceData{Type: "parquet"}}}, zap.NewNop().Sugar())
	if err := a.Run(context.Background()); err == nil {
		t.Fatal("expected Run to fail for an unsupported data source")
	}
}

func TestRunFailsWhenDatasetMissing(t *testing.T) {
	cfg := config.ConfigData{Data: config.DataSourceData{Type: config.DataSourceCSV, Path: t.TempDir() + "/missing.csv"}}
	a := New(&staticProvider{cfg: cfg}, zap.NewNop().Sugar())
	if err := a.Run(context.Background()); err == nil {
		t.Fatal("expected Run to fail when the dataset cannot be loaded")
	}
}
