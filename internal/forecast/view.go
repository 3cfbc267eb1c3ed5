package forecast

import (
	"iter"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

const (
	// TableRowLimit caps the preview table.
	TableRowLimit = 100
	// TrailingWindow is the number of rows averaged for the Next24h KPI.
	TrailingWindow = 24
	// TopBinsLimit is the length of the top bins ranking.
	TopBinsLimit = 5

	// TrendLabelLayout formats trend series labels.
	TrendLabelLayout = "2006-01-02 15:04"
)

// ViewResult is everything the dashboard shows for one filter selection.
type ViewResult struct {
	AvgForecast   float64     `json:"avg_forecast"`
	HighRiskBins  int         `json:"high_risk_bins"`
	Next24h       float64     `json:"next24h"`
	Table         Table       `json:"table"`
	Trend         Series      `json:"trend"`
	DailyMean     Series      `json:"daily_mean"`
	RiskHistogram []RiskCount `json:"risk_histogram"`
	Top5          Series      `json:"top5"`
}

// Table is the capped preview of filtered rows. Empty is set when the
// filter matched nothing, so renderers show a "no data" message instead.
type Table struct {
	Empty bool       `json:"empty"`
	Rows  []TableRow `json:"rows"`
}

// TableRow is one row of the preview table.
type TableRow struct {
	Timestamp    time.Time `json:"timestamp"`
	BinID        string    `json:"bin_id"`
	ForecastFill float64   `json:"forecast_fill"`
	RiskLevel    RiskLevel `json:"risk_level"`
}

// Series is a pair of parallel label/value arrays, the shape chart
// libraries consume.
type Series struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Len returns the number of points.
func (s Series) Len() int {
	return len(s.Labels)
}

// All iterates the points in order. Each call starts from the first point.
func (s Series) All() iter.Seq2[string, float64] {
	return func(yield func(string, float64) bool) {
		for i := range s.Labels {
			if !yield(s.Labels[i], s.Values[i]) {
				return
			}
		}
	}
}

// RiskCount is one bar of the risk histogram.
type RiskCount struct {
	Level RiskLevel `json:"level"`
	Count int       `json:"count"`
}

// Compute runs classify, filter and aggregate over ds. It never mutates ds
// and returns the same result for the same inputs.
func Compute(ds *Dataset, spec FilterSpec) ViewResult {
	var records []Record
	if ds != nil {
		records = ds.records
	}

	filtered := Filter(Classify(records), spec)
	if len(filtered) == 0 {
		return emptyView()
	}

	fills := make([]float64, len(filtered))
	for i, r := range filtered {
		fills[i] = r.ForecastFill
	}

	tail := fills
	if len(tail) > TrailingWindow {
		tail = tail[len(tail)-TrailingWindow:]
	}

	return ViewResult{
		AvgForecast:   round2(stat.Mean(fills, nil)),
		HighRiskBins:  countHighRiskBins(filtered),
		Next24h:       round2(stat.Mean(tail, nil)),
		Table:         buildTable(filtered),
		Trend:         buildTrend(filtered),
		DailyMean:     buildDailyMean(filtered),
		RiskHistogram: buildHistogram(filtered),
		Top5:          buildTopBins(filtered),
	}
}

func emptyView() ViewResult {
	return ViewResult{
		Table:         Table{Empty: true, Rows: []TableRow{}},
		Trend:         emptySeries(),
		DailyMean:     emptySeries(),
		RiskHistogram: buildHistogram(nil),
		Top5:          emptySeries(),
	}
}

func emptySeries() Series {
	return Series{Labels: []string{}, Values: []float64{}}
}

// round2 rounds half to even at two decimals.
func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

func countHighRiskBins(records []ClassifiedRecord) int {
	bins := make(map[string]struct{})
	for _, r := range records {
		if r.Risk == High {
			bins[r.BinID] = struct{}{}
		}
	}
	return len(bins)
}

func buildTable(records []ClassifiedRecord) Table {
	n := min(len(records), TableRowLimit)
	rows := make([]TableRow, n)
	for i := range n {
		r := records[i]
		rows[i] = TableRow{
			Timestamp:    r.Timestamp,
			BinID:        r.BinID,
			ForecastFill: r.ForecastFill,
			RiskLevel:    r.Risk,
		}
	}
	return Table{Rows: rows}
}

func buildTrend(records []ClassifiedRecord) Series {
	sorted := make([]ClassifiedRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	s := Series{
		Labels: make([]string, len(sorted)),
		Values: make([]float64, len(sorted)),
	}
	for i, r := range sorted {
		s.Labels[i] = r.Timestamp.Format(TrendLabelLayout)
		s.Values[i] = r.ForecastFill
	}
	return s
}

// buildDailyMean buckets records by calendar day. Days without records are
// left out rather than reported as zero.
func buildDailyMean(records []ClassifiedRecord) Series {
	buckets := make(map[time.Time][]float64)
	var days []time.Time
	for _, r := range records {
		day := r.Date()
		if _, ok := buckets[day]; !ok {
			days = append(days, day)
		}
		buckets[day] = append(buckets[day], r.ForecastFill)
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	s := Series{
		Labels: make([]string, len(days)),
		Values: make([]float64, len(days)),
	}
	for i, day := range days {
		s.Labels[i] = day.Format(DateLayout)
		s.Values[i] = round2(stat.Mean(buckets[day], nil))
	}
	return s
}

func buildHistogram(records []ClassifiedRecord) []RiskCount {
	counts := make(map[RiskLevel]int, len(riskLevels))
	for _, r := range records {
		counts[r.Risk]++
	}

	hist := make([]RiskCount, len(riskLevels))
	for i, level := range riskLevels {
		hist[i] = RiskCount{Level: level, Count: counts[level]}
	}
	return hist
}

type binMean struct {
	binID string
	mean  float64
}

// buildTopBins ranks bins by mean fill. Bins are put in id order (numeric ids
// numerically) before the stable sort, so equal means keep id order.
func buildTopBins(records []ClassifiedRecord) Series {
	groups := make(map[string][]float64)
	var order []string
	for _, r := range records {
		if _, ok := groups[r.BinID]; !ok {
			order = append(order, r.BinID)
		}
		groups[r.BinID] = append(groups[r.BinID], r.ForecastFill)
	}
	sort.Slice(order, func(i, j int) bool { return binLess(order[i], order[j]) })

	means := make([]binMean, len(order))
	for i, bin := range order {
		means[i] = binMean{binID: bin, mean: stat.Mean(groups[bin], nil)}
	}

	sort.SliceStable(means, func(i, j int) bool {
		return means[i].mean > means[j].mean
	})

	n := min(len(means), TopBinsLimit)
	s := Series{
		Labels: make([]string, n),
		Values: make([]float64, n),
	}
	for i := range n {
		s.Labels[i] = means[i].binID
		s.Values[i] = round2(means[i].mean)
	}
	return s
}
