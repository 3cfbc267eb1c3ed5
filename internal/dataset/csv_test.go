package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

const sampleCSV = `timestamp,bin_id,forecast_fill,model
2024-01-01 00:00:00,A,10,arima
2024-01-01 01:00:00,A,90,arima
2024-01-02 02:30:00,B,55.5,arima
`

func TestReadCSV(t *testing.T) {
	records, err := ReadCSV(context.Background(), "sample", strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	expectedTS := time.Date(2024, 1, 2, 2, 30, 0, 0, time.UTC)
	if !records[2].Timestamp.Equal(expectedTS) {
		t.Errorf("expected %v, got %v", expectedTS, records[2].Timestamp)
	}
	if records[2].BinID != "B" || records[2].ForecastFill != 55.5 {
		t.Errorf("unexpected record %+v", records[2])
	}
}

func TestReadCSVColumnOrderAndFormats(t *testing.T) {
	input := "forecast_fill,bin_id,timestamp\n" +
		"12,7,2024-03-01T05:00:00Z\n" +
		"13,7,2024-03-01 06:00\n" +
		"14,8,2024-03-02\n"

	records, err := ReadCSV(context.Background(), "reordered", strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].BinID != "7" || records[0].Timestamp.Hour() != 5 {
		t.Errorf("unexpected first record %+v", records[0])
	}
	if records[2].Timestamp.Hour() != 0 {
		t.Errorf("expected midnight for a bare date, got %v", records[2].Timestamp)
	}
}

func TestReadCSVRejectsMalformedRows(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{"missing column", "timestamp,bin_id\n2024-01-01,A\n", 1},
		{"bad timestamp", "timestamp,bin_id,forecast_fill\nnot-a-date,A,10\n", 2},
		{"bad fill", "timestamp,bin_id,forecast_fill\n2024-01-01,A,10\n2024-01-01,A,lots\n", 3},
		{"missing bin", "timestamp,bin_id,forecast_fill\n2024-01-01,,10\n", 2},
		{"nan fill", "timestamp,bin_id,forecast_fill\n2024-01-01,A,NaN\n", 2},
		{"short row", "timestamp,bin_id,forecast_fill\n2024-01-01,A\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(context.Background(), "bad", strings.NewReader(tt.input))
			var dle *DataLoadError
			if !errors.As(err, &dle) {
				t.Fatalf("expected DataLoadError, got %v", err)
			}
			if dle.Line != tt.line {
				t.Errorf("expected error on line %d, got %d (%v)", tt.line, dle.Line, err)
			}
		})
	}
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(context.Background(), "empty", strings.NewReader(""))
	var dle *DataLoadError
	if !errors.As(err, &dle) {
		t.Fatalf("expected DataLoadError, got %v", err)
	}
}

func TestCSVLoaderLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecast_output.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatalf("failed to write CSV: %v", err)
	}

	loader := NewCSVLoader(path, zap.NewNop().Sugar())
	ds, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if ds.Len() != 3 {
		t.Errorf("expected 3 records, got %d", ds.Len())
	}
	if loader.FilePath() != path {
		t.Errorf("expected file path %s, got %s", path, loader.FilePath())
	}

	opts := ds.Options()
	if opts.MinDateString() != "2024-01-01" || opts.MaxDateString() != "2024-01-02" {
		t.Errorf("unexpected date range %s..%s", opts.MinDateString(), opts.MaxDateString())
	}
}

func TestCSVLoaderMissingFile(t *testing.T) {
	loader := NewCSVLoader(filepath.Join(t.TempDir(), "nope.csv"), zap.NewNop().Sugar())
	_, err := loader.Load(context.Background())
	var dle *DataLoadError
	if !errors.As(err, &dle) {
		t.Fatalf("expected DataLoadError, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped not-exist error, got %v", err)
	}
}
