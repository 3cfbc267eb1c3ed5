// Package dataset loads forecast records from their persistent source and
// keeps the most recent immutable copy available to request handlers.
package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chrissnell/forecastview/internal/forecast"
)

// Required column names, shared by every loader.
const (
	ColumnTimestamp    = "timestamp"
	ColumnBinID        = "bin_id"
	ColumnForecastFill = "forecast_fill"
)

// Loader produces a Dataset from a persistent source.
type Loader interface {
	Load(ctx context.Context) (*forecast.Dataset, error)
	// Describe names the source for logs and error messages.
	Describe() string
}

// FileSource is implemented by loaders backed by a single file that can be
// handed to clients unchanged.
type FileSource interface {
	FilePath() string
}

// DataLoadError reports malformed or missing source data. Line is the
// 1-based line or row number, or 0 when the error is not tied to a row.
type DataLoadError struct {
	Source string
	Line   int
	Err    error
}

func (e *DataLoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("loading %s: row %d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("loading %s: %v", e.Source, e.Err)
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02",
}

// ParseTimestamp parses a source timestamp and drops any zone information,
// keeping the wall clock reading.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("missing %s", ColumnTimestamp)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return naive(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable %s %q", ColumnTimestamp, s)
}

// ParseFill parses a forecast fill value. NaN and infinities are rejected.
func ParseFill(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("missing %s", ColumnForecastFill)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable %s %q", ColumnForecastFill, s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite %s %q", ColumnForecastFill, s)
	}
	return v, nil
}

func naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

func validateTable(table string) error {
	if !identifierPattern.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}

func selectColumns() string {
	return fmt.Sprintf("%s, CAST(%s AS TEXT) AS %s, %s",
		ColumnTimestamp, ColumnBinID, ColumnBinID, ColumnForecastFill)
}

// scanRecords reads timestamp, bin_id, forecast_fill rows from a SQL result.
func scanRecords(ctx context.Context, source string, rows *sql.Rows) ([]forecast.Record, error) {
	defer rows.Close()

	var records []forecast.Record
	line := 0
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line++

		var (
			rawTS any
			binID sql.NullString
			fill  sql.NullFloat64
		)
		if err := rows.Scan(&rawTS, &binID, &fill); err != nil {
			return nil, &DataLoadError{Source: source, Line: line, Err: err}
		}

		ts, err := timestampValue(rawTS)
		if err != nil {
			return nil, &DataLoadError{Source: source, Line: line, Err: err}
		}
		if !binID.Valid || strings.TrimSpace(binID.String) == "" {
			return nil, &DataLoadError{Source: source, Line: line, Err: fmt.Errorf("missing %s", ColumnBinID)}
		}
		if !fill.Valid {
			return nil, &DataLoadError{Source: source, Line: line, Err: fmt.Errorf("missing %s", ColumnForecastFill)}
		}
		if math.IsNaN(fill.Float64) || math.IsInf(fill.Float64, 0) {
			return nil, &DataLoadError{Source: source, Line: line, Err: fmt.Errorf("non-finite %s", ColumnForecastFill)}
		}

		records = append(records, forecast.Record{
			Timestamp:    ts,
			BinID:        strings.TrimSpace(binID.String),
			ForecastFill: fill.Float64,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &DataLoadError{Source: source, Err: err}
	}

	return records, nil
}

func timestampValue(v any) (time.Time, error) {
	switch ts := v.(type) {
	case time.Time:
		return naive(ts), nil
	case string:
		return ParseTimestamp(ts)
	case []byte:
		return ParseTimestamp(string(ts))
	case int64:
		return naive(time.Unix(ts, 0).UTC()), nil
	case nil:
		return time.Time{}, fmt.Errorf("missing %s", ColumnTimestamp)
	}
	return time.Time{}, fmt.Errorf("unsupported %s type %T", ColumnTimestamp, v)
}
