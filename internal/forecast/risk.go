// Package forecast implements the bin fill-level view pipeline: records are
// classified into risk levels, filtered by bin, date range and risk, and
// aggregated into the KPIs and chart series shown on the dashboard.
package forecast

import (
	"fmt"
	"strings"
)

// RiskLevel is the severity bucket derived from a forecast fill value.
type RiskLevel int

const (
	Low RiskLevel = iota
	Medium
	High
)

// Fill thresholds. Values below mediumThreshold are Low, values below
// highThreshold are Medium, everything else is High.
const (
	mediumThreshold = 50.0
	highThreshold   = 80.0
)

var riskLevels = []RiskLevel{Low, Medium, High}

// RiskLevels returns the three levels in their fixed display order.
func RiskLevels() []RiskLevel {
	levels := make([]RiskLevel, len(riskLevels))
	copy(levels, riskLevels)
	return levels
}

// ClassifyRisk maps a fill value onto its risk level
func ClassifyRisk(fill float64) RiskLevel {
	switch {
	case fill < mediumThreshold:
		return Low
	case fill < highThreshold:
		return Medium
	default:
		return High
	}
}

func (r RiskLevel) String() string {
	switch r {
	case Low:
		return "Low"
	case Medium:
		return "Medium"
	case High:
		return "High"
	}
	return fmt.Sprintf("RiskLevel(%d)", int(r))
}

// MarshalText lets risk levels appear by name in JSON and MessagePack output.
func (r RiskLevel) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText parses a level name.
func (r *RiskLevel) UnmarshalText(text []byte) error {
	level, err := ParseRiskLevel(string(text))
	if err != nil {
		return err
	}
	*r = level
	return nil
}

// ParseRiskLevel accepts "Low", "Medium" or "High" in any letter case.
func ParseRiskLevel(s string) (RiskLevel, error) {
	for _, level := range riskLevels {
		if strings.EqualFold(strings.TrimSpace(s), level.String()) {
			return level, nil
		}
	}
	return Low, fmt.Errorf("unknown risk level %q", s)
}
