package forecast

import (
	"sort"
	"strconv"
	"time"
)

// DateLayout is the layout used for day-granularity labels and filter bounds.
const DateLayout = "2006-01-02"

// Record is one forecast observation for a bin. Timestamps carry no zone
// semantics; loaders store them in UTC and nothing converts them.
type Record struct {
	Timestamp    time.Time `json:"timestamp"`
	BinID        string    `json:"bin_id"`
	ForecastFill float64   `json:"forecast_fill"`
}

// Date returns the calendar day of the record's timestamp.
func (r Record) Date() time.Time {
	return DateOf(r.Timestamp)
}

// DateOf truncates t to midnight of its own calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Options holds the dropdown data derived from an unfiltered dataset.
type Options struct {
	BinIDs  []string  `json:"bin_ids"`
	MinDate time.Time `json:"-"`
	MaxDate time.Time `json:"-"`
}

// MinDateString returns the earliest record date, or "" for an empty dataset.
func (o Options) MinDateString() string {
	if o.MinDate.IsZero() {
		return ""
	}
	return o.MinDate.Format(DateLayout)
}

// MaxDateString returns the latest record date, or "" for an empty dataset.
func (o Options) MaxDateString() string {
	if o.MaxDate.IsZero() {
		return ""
	}
	return o.MaxDate.Format(DateLayout)
}

// Dataset is an ordered, read-only collection of records. It is safe to
// share between goroutines because nothing mutates it after NewDataset.
type Dataset struct {
	records []Record
	options Options
}

// NewDataset copies records and computes the dropdown options once.
func NewDataset(records []Record) *Dataset {
	ds := &Dataset{
		records: make([]Record, len(records)),
	}
	copy(ds.records, records)
	ds.options = buildOptions(ds.records)
	return ds
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// Records returns a copy of the records in load order.
func (d *Dataset) Records() []Record {
	if d == nil {
		return nil
	}
	out := make([]Record, len(d.records))
	copy(out, d.records)
	return out
}

// Options returns the dropdown data for the dataset.
func (d *Dataset) Options() Options {
	if d == nil {
		return Options{BinIDs: []string{}}
	}
	opts := d.options
	opts.BinIDs = append([]string(nil), d.options.BinIDs...)
	return opts
}

func buildOptions(records []Record) Options {
	opts := Options{BinIDs: []string{}}
	seen := make(map[string]bool)

	for i, r := range records {
		if !seen[r.BinID] {
			seen[r.BinID] = true
			opts.BinIDs = append(opts.BinIDs, r.BinID)
		}

		day := r.Date()
		if i == 0 || day.Before(opts.MinDate) {
			opts.MinDate = day
		}
		if i == 0 || day.After(opts.MaxDate) {
			opts.MaxDate = day
		}
	}

	sort.Slice(opts.BinIDs, func(i, j int) bool {
		return binLess(opts.BinIDs[i], opts.BinIDs[j])
	})

	return opts
}

// binLess orders numeric bin ids numerically and everything else lexically,
// with numeric ids first.
func binLess(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}
