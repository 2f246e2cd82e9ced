package features

import (
	"math"
	"testing"
)

func TestMinMaxScaler(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name     string
		fit      [][]float64
		input    []float64
		expected []float64
	}{
		{
			name:     "Scales to unit range",
			fit:      [][]float64{{0, 10}, {5, 20}, {10, 30}},
			input:    []float64{5, 20},
			expected: []float64{0.5, 0.5},
		},
		{
			name:     "NaN ignored when fitting and zero when transforming",
			fit:      [][]float64{{nan, 10}, {2, 20}, {4, 30}},
			input:    []float64{nan, 30},
			expected: []float64{0, 1},
		},
		{
			name:     "Constant column maps to zero",
			fit:      [][]float64{{7, 1}, {7, 2}, {7, 3}},
			input:    []float64{7, 2},
			expected: []float64{0, 0.5},
		},
		{
			name:     "All-NaN column maps to zero",
			fit:      [][]float64{{nan, 1}, {nan, 2}},
			input:    []float64{nan, 1},
			expected: []float64{0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scaler := NewMinMaxScaler()
			if err := scaler.Fit(tt.fit); err != nil {
				t.Fatalf("Fit() error = %v", err)
			}
			out, err := scaler.Transform([][]float64{tt.input})
			if err != nil {
				t.Fatalf("Transform() error = %v", err)
			}
			for c, want := range tt.expected {
				if math.Abs(out[0][c]-want) > 1e-12 {
					t.Errorf("Transform()[%d] = %v, want %v", c, out[0][c], want)
				}
			}
		})
	}
}

func TestMinMaxScalerErrors(t *testing.T) {
	scaler := NewMinMaxScaler()
	if err := scaler.Fit(nil); err == nil {
		t.Error("Fit(nil) succeeded, want error")
	}
	if _, err := scaler.Transform([][]float64{{1, 2}}); err == nil {
		t.Error("Transform() on unfitted scaler succeeded, want error")
	}

	if err := scaler.Fit([][]float64{{1, 2}, {3, 4}}); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if _, err := scaler.Transform([][]float64{{1, 2, 3}}); err == nil {
		t.Error("Transform() with mismatched width succeeded, want error")
	}
}

func TestMinMaxScalerClone(t *testing.T) {
	scaler := NewMinMaxScaler()
	if err := scaler.Fit([][]float64{{1, 10}, {3, 30}}); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	clone := scaler.Clone()
	clone.Min[0] = -99
	if scaler.Min[0] == -99 {
		t.Error("mutating clone changed the original scaler")
	}
}
