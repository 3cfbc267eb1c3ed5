package forecast

import (
	"fmt"
	"strings"
	"time"
)

// AllSentinel is the query-string value meaning "do not filter this dimension".
const AllSentinel = "ALL"

// FilterSpec selects a subset of a dataset. A nil field does not filter.
// Start and End are inclusive and compared by calendar day only.
type FilterSpec struct {
	BinID *string
	Risk  *RiskLevel
	Start *time.Time
	End   *time.Time
}

// FilterParams are the raw, unvalidated filter inputs of a request.
type FilterParams struct {
	BinID     string
	RiskLevel string
	StartDate string
	EndDate   string
}

// InvalidFilterError reports a filter input that could not be parsed.
type InvalidFilterError struct {
	Field string
	Value string
	Err   error
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *InvalidFilterError) Unwrap() error {
	return e.Err
}

var filterDateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ParseFilterDate parses a date bound. Full timestamps are accepted and
// reduced to their calendar day.
func ParseFilterDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range filterDateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return DateOf(t), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ParseFilter turns request parameters into a FilterSpec. Empty or "ALL"
// bin and risk values disable those filters; empty dates fall back to the
// dataset's observed min and max dates.
func ParseFilter(params FilterParams, opts Options) (FilterSpec, error) {
	var spec FilterSpec

	if bin := strings.TrimSpace(params.BinID); bin != "" && bin != AllSentinel {
		spec.BinID = &bin
	}

	if risk := strings.TrimSpace(params.RiskLevel); risk != "" && risk != AllSentinel {
		level, err := ParseRiskLevel(risk)
		if err != nil {
			return FilterSpec{}, &InvalidFilterError{Field: "risk_level", Value: params.RiskLevel, Err: err}
		}
		spec.Risk = &level
	}

	start, err := parseBound("start_date", params.StartDate, opts.MinDate)
	if err != nil {
		return FilterSpec{}, err
	}
	spec.Start = start

	end, err := parseBound("end_date", params.EndDate, opts.MaxDate)
	if err != nil {
		return FilterSpec{}, err
	}
	spec.End = end

	return spec, nil
}

func parseBound(field, value string, fallback time.Time) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		if fallback.IsZero() {
			return nil, nil
		}
		day := DateOf(fallback)
		return &day, nil
	}

	day, err := ParseFilterDate(value)
	if err != nil {
		return nil, &InvalidFilterError{Field: field, Value: value, Err: err}
	}
	return &day, nil
}

// Matches reports whether a classified record passes every active predicate.
func (f FilterSpec) Matches(r ClassifiedRecord) bool {
	if f.BinID != nil && r.BinID != *f.BinID {
		return false
	}

	if f.Start != nil || f.End != nil {
		day := r.Date()
		if f.Start != nil && day.Before(DateOf(*f.Start)) {
			return false
		}
		if f.End != nil && day.After(DateOf(*f.End)) {
			return false
		}
	}

	if f.Risk != nil && r.Risk != *f.Risk {
		return false
	}

	return true
}

// ClassifiedRecord is a record with its derived risk level attached.
type ClassifiedRecord struct {
	Record
	Risk RiskLevel
}

// Classify attaches a risk level to every record, preserving order.
func Classify(records []Record) []ClassifiedRecord {
	out := make([]ClassifiedRecord, len(records))
	for i, r := range records {
		out[i] = ClassifiedRecord{Record: r, Risk: ClassifyRisk(r.ForecastFill)}
	}
	return out
}

// Filter keeps the records matching spec, preserving their order.
func Filter(records []ClassifiedRecord, spec FilterSpec) []ClassifiedRecord {
	out := make([]ClassifiedRecord, 0, len(records))
	for _, r := range records {
		if spec.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}
