package engine

import (
	"testing"

	"tradefusion/models"
)

func TestPositionSize(t *testing.T) {
	forex := models.SymbolInfo{Point: 0.0001, MinLot: 0.01, MaxLot: 100, LotStep: 0.01}

	tests := []struct {
		name        string
		balance     float64
		riskPercent float64
		entry       float64
		stop        float64
		symbol      models.SymbolInfo
		expected    float64
	}{
		{
			name:    "Standard one percent risk",
			balance: 10000, riskPercent: 1.0,
			entry: 1.1000, stop: 1.0950,
			symbol:   forex,
			expected: 2.0, // $100 risk over 50 points
		},
		{
			name:    "Rounded to lot step",
			balance: 10000, riskPercent: 1.0,
			entry: 1.1000, stop: 1.0937,
			symbol:   forex,
			expected: 1.59, // 100/63 = 1.587..., rounds to 1.59
		},
		{
			name:    "Clamped to max lot",
			balance: 10000000, riskPercent: 5.0,
			entry: 1.1000, stop: 1.0990,
			symbol:   forex,
			expected: 100,
		},
		{
			name:    "Bumped to min lot",
			balance: 100, riskPercent: 0.1,
			entry: 1.1000, stop: 1.0800,
			symbol:   forex,
			expected: 0.01,
		},
		{
			name:    "Zero stop distance",
			balance: 10000, riskPercent: 1.0,
			entry: 1.1000, stop: 1.1000,
			symbol:   forex,
			expected: 0,
		},
		{
			name:    "Missing symbol constraints",
			balance: 10000, riskPercent: 1.0,
			entry: 1.1000, stop: 1.0950,
			symbol:   models.SymbolInfo{},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PositionSize(tt.balance, tt.riskPercent, tt.entry, tt.stop, tt.symbol)
			if diff := got - tt.expected; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("PositionSize() = %v, want %v", got, tt.expected)
			}
		})
	}
}
