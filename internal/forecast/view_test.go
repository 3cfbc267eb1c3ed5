package forecast

import (
	"math"
	"reflect"
	"testing"
	"time"
)

func sampleDataset() *Dataset {
	return NewDataset([]Record{
		{Timestamp: ts("2024-01-01 00:00"), BinID: "A", ForecastFill: 10},
		{Timestamp: ts("2024-01-01 01:00"), BinID: "A", ForecastFill: 90},
		{Timestamp: ts("2024-01-01 02:00"), BinID: "B", ForecastFill: 55},
	})
}

func fullRange(ds *Dataset) FilterSpec {
	opts := ds.Options()
	return FilterSpec{Start: &opts.MinDate, End: &opts.MaxDate}
}

func TestComputeEndToEnd(t *testing.T) {
	ds := sampleDataset()
	view := Compute(ds, fullRange(ds))

	if view.AvgForecast != 51.67 {
		t.Errorf("expected avg 51.67, got %v", view.AvgForecast)
	}
	if view.HighRiskBins != 1 {
		t.Errorf("expected 1 high risk bin, got %d", view.HighRiskBins)
	}
	if view.Next24h != 51.67 {
		t.Errorf("expected next24h 51.67, got %v", view.Next24h)
	}

	expectedHist := []RiskCount{{Low, 1}, {Medium, 1}, {High, 1}}
	if !reflect.DeepEqual(view.RiskHistogram, expectedHist) {
		t.Errorf("expected histogram %v, got %v", expectedHist, view.RiskHistogram)
	}

	expectedTop := Series{Labels: []string{"B", "A"}, Values: []float64{55, 50}}
	if !reflect.DeepEqual(view.Top5, expectedTop) {
		t.Errorf("expected top5 %v, got %v", expectedTop, view.Top5)
	}

	if view.Table.Empty || len(view.Table.Rows) != 3 {
		t.Fatalf("expected 3 table rows, got %+v", view.Table)
	}
	if view.Table.Rows[1].RiskLevel != High {
		t.Errorf("expected second row High, got %v", view.Table.Rows[1].RiskLevel)
	}

	expectedDaily := Series{Labels: []string{"2024-01-01"}, Values: []float64{51.67}}
	if !reflect.DeepEqual(view.DailyMean, expectedDaily) {
		t.Errorf("expected daily %v, got %v", expectedDaily, view.DailyMean)
	}
}

func TestComputeEmptySubset(t *testing.T) {
	ds := sampleDataset()
	missing := "does-not-exist"
	view := Compute(ds, FilterSpec{BinID: &missing})

	if view.AvgForecast != 0 || view.HighRiskBins != 0 || view.Next24h != 0 {
		t.Errorf("expected zero KPIs, got %v %v %v", view.AvgForecast, view.HighRiskBins, view.Next24h)
	}
	if !view.Table.Empty {
		t.Error("expected table to be marked empty")
	}
	if view.Trend.Len() != 0 || view.DailyMean.Len() != 0 || view.Top5.Len() != 0 {
		t.Error("expected empty series")
	}
	if view.Trend.Labels == nil || view.Top5.Values == nil {
		t.Error("expected non-nil empty series slices")
	}

	expectedHist := []RiskCount{{Low, 0}, {Medium, 0}, {High, 0}}
	if !reflect.DeepEqual(view.RiskHistogram, expectedHist) {
		t.Errorf("expected zero histogram, got %v", view.RiskHistogram)
	}
}

func TestComputeNilDataset(t *testing.T) {
	view := Compute(nil, FilterSpec{})
	if !view.Table.Empty || len(view.RiskHistogram) != 3 {
		t.Errorf("expected empty view, got %+v", view)
	}
}

func TestNext24hIsPositional(t *testing.T) {
	records := make([]Record, 30)
	start := ts("2024-01-01 00:00")
	for i := range records {
		// Timestamps run backwards so a time-based window would pick
		// different rows than a positional one.
		records[i] = Record{
			Timestamp:    start.Add(-time.Duration(i) * time.Hour),
			BinID:        "A",
			ForecastFill: float64(i + 1),
		}
	}

	view := Compute(NewDataset(records), FilterSpec{})

	// rows 7..30 in filtered order
	if view.Next24h != 18.5 {
		t.Errorf("expected next24h 18.5, got %v", view.Next24h)
	}
	if view.AvgForecast != 15.5 {
		t.Errorf("expected avg 15.5, got %v", view.AvgForecast)
	}
}

func TestDailyMeanOmitsEmptyDays(t *testing.T) {
	ds := NewDataset([]Record{
		{Timestamp: ts("2024-05-03 10:00"), BinID: "A", ForecastFill: 30},
		{Timestamp: ts("2024-05-01 08:00"), BinID: "A", ForecastFill: 10},
		{Timestamp: ts("2024-05-01 20:00"), BinID: "B", ForecastFill: 21},
	})

	view := Compute(ds, FilterSpec{})

	expected := Series{
		Labels: []string{"2024-05-01", "2024-05-03"},
		Values: []float64{15.5, 30},
	}
	if !reflect.DeepEqual(view.DailyMean, expected) {
		t.Errorf("expected %v, got %v", expected, view.DailyMean)
	}
}

func TestTrendSortedByTimestamp(t *testing.T) {
	ds := NewDataset([]Record{
		{Timestamp: ts("2024-05-02 10:00"), BinID: "A", ForecastFill: 2},
		{Timestamp: ts("2024-05-01 10:00"), BinID: "A", ForecastFill: 1},
		{Timestamp: ts("2024-05-03 10:00"), BinID: "A", ForecastFill: 3},
	})

	view := Compute(ds, FilterSpec{})

	expectedLabels := []string{"2024-05-01 10:00", "2024-05-02 10:00", "2024-05-03 10:00"}
	if !reflect.DeepEqual(view.Trend.Labels, expectedLabels) {
		t.Errorf("expected %v, got %v", expectedLabels, view.Trend.Labels)
	}

	var values []float64
	for _, v := range view.Trend.All() {
		values = append(values, v)
	}
	if !reflect.DeepEqual(values, []float64{1, 2, 3}) {
		t.Errorf("unexpected trend values %v", values)
	}

	// the original order must survive
	if ds.Records()[0].ForecastFill != 2 {
		t.Error("dataset was reordered by Compute")
	}
}

func TestTableCappedTrendNot(t *testing.T) {
	records := make([]Record, 150)
	start := ts("2024-01-01 00:00")
	for i := range records {
		records[i] = Record{Timestamp: start.Add(time.Duration(i) * time.Minute), BinID: "A", ForecastFill: 40}
	}

	view := Compute(NewDataset(records), FilterSpec{})

	if len(view.Table.Rows) != TableRowLimit {
		t.Errorf("expected %d table rows, got %d", TableRowLimit, len(view.Table.Rows))
	}
	if view.Trend.Len() != 150 {
		t.Errorf("expected 150 trend points, got %d", view.Trend.Len())
	}
}

func TestTopBinsStableTieBreak(t *testing.T) {
	ds := NewDataset([]Record{
		{Timestamp: ts("2024-01-01 00:00"), BinID: "Z", ForecastFill: 60},
		{Timestamp: ts("2024-01-01 01:00"), BinID: "M", ForecastFill: 60},
		{Timestamp: ts("2024-01-01 02:00"), BinID: "A", ForecastFill: 60},
		{Timestamp: ts("2024-01-01 03:00"), BinID: "Q", ForecastFill: 95},
	})

	view := Compute(ds, FilterSpec{})

	expected := []string{"Q", "A", "M", "Z"}
	if !reflect.DeepEqual(view.Top5.Labels, expected) {
		t.Errorf("expected %v, got %v", expected, view.Top5.Labels)
	}
}

func TestTopBinsTieBreakNumericIDs(t *testing.T) {
	ds := NewDataset([]Record{
		{Timestamp: ts("2024-01-01 00:00"), BinID: "B", ForecastFill: 50},
		{Timestamp: ts("2024-01-01 01:00"), BinID: "A", ForecastFill: 50},
		{Timestamp: ts("2024-01-01 02:00"), BinID: "10", ForecastFill: 40},
		{Timestamp: ts("2024-01-01 03:00"), BinID: "2", ForecastFill: 40},
	})

	view := Compute(ds, FilterSpec{})

	expected := []string{"A", "B", "2", "10"}
	if !reflect.DeepEqual(view.Top5.Labels, expected) {
		t.Errorf("expected %v, got %v", expected, view.Top5.Labels)
	}
	if !reflect.DeepEqual(view.Top5.Values, []float64{50, 50, 40, 40}) {
		t.Errorf("unexpected values %v", view.Top5.Values)
	}
}

func TestTopBinsLimitedToFive(t *testing.T) {
	var records []Record
	for i, bin := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		records = append(records, Record{Timestamp: ts("2024-01-01 00:00"), BinID: bin, ForecastFill: float64(i * 10)})
	}

	view := Compute(NewDataset(records), FilterSpec{})

	expected := []string{"g", "f", "e", "d", "c"}
	if !reflect.DeepEqual(view.Top5.Labels, expected) {
		t.Errorf("expected %v, got %v", expected, view.Top5.Labels)
	}
}

func TestHistogramSumsToFilteredSize(t *testing.T) {
	ds := NewDataset([]Record{
		{Timestamp: ts("2024-01-01 00:00"), BinID: "A", ForecastFill: 10},
		{Timestamp: ts("2024-01-02 00:00"), BinID: "A", ForecastFill: 50},
		{Timestamp: ts("2024-01-03 00:00"), BinID: "B", ForecastFill: 80},
		{Timestamp: ts("2024-01-04 00:00"), BinID: "B", ForecastFill: 79.99},
		{Timestamp: ts("2024-01-05 00:00"), BinID: "C", ForecastFill: 99},
	})

	bin := "B"
	start := day("2024-01-02")
	specs := []FilterSpec{
		{},
		{BinID: &bin},
		{Start: &start},
	}

	for _, spec := range specs {
		view := Compute(ds, spec)
		filtered := Filter(Classify(ds.Records()), spec)

		if len(view.RiskHistogram) != 3 {
			t.Fatalf("expected 3 histogram entries, got %d", len(view.RiskHistogram))
		}
		total := 0
		for i, rc := range view.RiskHistogram {
			if rc.Level != riskLevels[i] {
				t.Errorf("histogram entry %d is %v", i, rc.Level)
			}
			total += rc.Count
		}
		if total != len(filtered) {
			t.Errorf("histogram sums to %d, filtered size is %d", total, len(filtered))
		}
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	ds := sampleDataset()
	spec := fullRange(ds)

	first := Compute(ds, spec)
	second := Compute(ds, spec)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical results, got %+v and %+v", first, second)
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{51.666666, 51.67},
		{50, 50},
		{0.125, 0.12},
		{0.375, 0.38},
		{-1.005, -1},
	}

	for _, tt := range tests {
		if got := round2(tt.input); math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("round2(%v) = %v, expected %v", tt.input, got, tt.expected)
		}
	}
}

func TestDatasetOptions(t *testing.T) {
	ds := NewDataset([]Record{
		{Timestamp: ts("2024-01-05 10:00"), BinID: "10", ForecastFill: 1},
		{Timestamp: ts("2024-01-02 10:00"), BinID: "2", ForecastFill: 1},
		{Timestamp: ts("2024-01-09 23:00"), BinID: "bin-x", ForecastFill: 1},
		{Timestamp: ts("2024-01-03 10:00"), BinID: "2", ForecastFill: 1},
	})

	opts := ds.Options()

	if !reflect.DeepEqual(opts.BinIDs, []string{"2", "10", "bin-x"}) {
		t.Errorf("unexpected bin ids %v", opts.BinIDs)
	}
	if opts.MinDateString() != "2024-01-02" || opts.MaxDateString() != "2024-01-09" {
		t.Errorf("unexpected date range %s..%s", opts.MinDateString(), opts.MaxDateString())
	}
}
