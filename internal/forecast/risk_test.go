package forecast

import "testing"

func TestClassifyRisk(t *testing.T) {
	tests := []struct {
		fill     float64
		expected RiskLevel
	}{
		{-10, Low},
		{0, Low},
		{49.999, Low},
		{50, Medium},
		{50.001, Medium},
		{79.999, Medium},
		{80, High},
		{80.001, High},
		{150, High},
	}

	for _, tt := range tests {
		if got := ClassifyRisk(tt.fill); got != tt.expected {
			t.Errorf("ClassifyRisk(%v) = %v, expected %v", tt.fill, got, tt.expected)
		}
	}
}

func TestParseRiskLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected RiskLevel
		wantErr  bool
	}{
		{"Low", Low, false},
		{"medium", Medium, false},
		{" HIGH ", High, false},
		{"Critical", Low, true},
		{"", Low, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRiskLevel(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestRiskLevelText(t *testing.T) {
	for _, level := range RiskLevels() {
		text, err := level.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v): %v", level, err)
		}
		var parsed RiskLevel
		if err := parsed.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%s): %v", text, err)
		}
		if parsed != level {
			t.Errorf("expected %v, got %v", level, parsed)
		}
	}
}
