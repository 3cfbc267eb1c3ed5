package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chrissnell/forecastview/internal/forecast"
	"go.uber.org/zap"
)

// CSVLoader reads records from a CSV file with a header row naming at least
// the timestamp, bin_id and forecast_fill columns. Column order is free and
// extra columns are ignored.
type CSVLoader struct {
	path   string
	logger *zap.SugaredLogger
}

// NewCSVLoader creates a loader for the CSV file at path.
func NewCSVLoader(path string, logger *zap.SugaredLogger) *CSVLoader {
	return &CSVLoader{
		path:   path,
		logger: logger,
	}
}

// Describe implements Loader.
func (l *CSVLoader) Describe() string {
	return "csv:" + l.path
}

// FilePath implements FileSource.
func (l *CSVLoader) FilePath() string {
	return l.path
}

// Load implements Loader.
func (l *CSVLoader) Load(ctx context.Context) (*forecast.Dataset, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, &DataLoadError{Source: l.path, Err: err}
	}
	defer f.Close()

	records, err := ReadCSV(ctx, l.path, f)
	if err != nil {
		return nil, err
	}

	l.logger.Debugw("loaded forecast CSV", "path", l.path, "records", len(records))
	return forecast.NewDataset(records), nil
}

// ReadCSV parses CSV forecast records from r. source names the input in
// errors.
func ReadCSV(ctx context.Context, source string, r io.Reader) ([]forecast.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &DataLoadError{Source: source, Err: fmt.Errorf("empty file: header row required")}
		}
		return nil, &DataLoadError{Source: source, Line: 1, Err: err}
	}

	cols, err := headerColumns(header)
	if err != nil {
		return nil, &DataLoadError{Source: source, Line: 1, Err: err}
	}

	var records []forecast.Record
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.Line
			}
			return nil, &DataLoadError{Source: source, Line: line, Err: err}
		}
		line, _ := reader.FieldPos(0)

		rec, err := cols.record(row)
		if err != nil {
			return nil, &DataLoadError{Source: source, Line: line, Err: err}
		}
		records = append(records, rec)
	}

	return records, nil
}

type columnIndex struct {
	timestamp int
	binID     int
	fill      int
}

func headerColumns(header []string) (columnIndex, error) {
	idx := columnIndex{timestamp: -1, binID: -1, fill: -1}
	for i, name := range header {
		// Excel likes to prepend a byte order mark to the first cell
		name = strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")
		switch name {
		case ColumnTimestamp:
			idx.timestamp = i
		case ColumnBinID:
			idx.binID = i
		case ColumnForecastFill:
			idx.fill = i
		}
	}

	var missing []string
	if idx.timestamp < 0 {
		missing = append(missing, ColumnTimestamp)
	}
	if idx.binID < 0 {
		missing = append(missing, ColumnBinID)
	}
	if idx.fill < 0 {
		missing = append(missing, ColumnForecastFill)
	}
	if len(missing) > 0 {
		return idx, fmt.Errorf("header is missing required columns: %s", strings.Join(missing, ", "))
	}

	return idx, nil
}

func (c columnIndex) record(row []string) (forecast.Record, error) {
	field := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}

	ts, err := ParseTimestamp(field(c.timestamp))
	if err != nil {
		return forecast.Record{}, err
	}

	binID := strings.TrimSpace(field(c.binID))
	if binID == "" {
		return forecast.Record{}, fmt.Errorf("missing %s", ColumnBinID)
	}

	fill, err := ParseFill(field(c.fill))
	if err != nil {
		return forecast.Record{}, err
	}

	return forecast.Record{
		Timestamp:    ts,
		BinID:        binID,
		ForecastFill: fill,
	}, nil
}
