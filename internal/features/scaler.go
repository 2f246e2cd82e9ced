package features

import (
	"fmt"
	"math"
)

// MinMaxScaler scales feature columns to [0,1]. It is part of the persisted
// model state: fitted once at training time and applied, not refit, at
// prediction time. NaN values (leading indicator gaps) are ignored when
// fitting and map to 0 when transforming.
type MinMaxScaler struct {
	Min    []float64 `json:"min"`
	Max    []float64 `json:"max"`
	Fitted bool      `json:"fitted"`
}

// NewMinMaxScaler returns an unfitted scaler.
func NewMinMaxScaler() *MinMaxScaler {
	return &MinMaxScaler{}
}

// Fit learns per-column minima and maxima from a row-major matrix.
func (s *MinMaxScaler) Fit(matrix [][]float64) error {
	if len(matrix) == 0 {
		return fmt.Errorf("cannot fit scaler on empty matrix")
	}
	cols := len(matrix[0])
	s.Min = make([]float64, cols)
	s.Max = make([]float64, cols)
	for c := 0; c < cols; c++ {
		s.Min[c] = math.Inf(1)
		s.Max[c] = math.Inf(-1)
	}
	for _, row := range matrix {
		for c, v := range row {
			if math.IsNaN(v) {
				continue
			}
			if v < s.Min[c] {
				s.Min[c] = v
			}
			if v > s.Max[c] {
				s.Max[c] = v
			}
		}
	}
	for c := 0; c < cols; c++ {
		if math.IsInf(s.Min[c], 1) {
			// Column was all NaN; transform will map it to zero.
			s.Min[c], s.Max[c] = 0, 0
		}
	}
	s.Fitted = true
	return nil
}

// Transform scales a matrix in a new allocation, leaving the input intact.
func (s *MinMaxScaler) Transform(matrix [][]float64) ([][]float64, error) {
	if !s.Fitted {
		return nil, fmt.Errorf("scaler is not fitted")
	}
	out := make([][]float64, len(matrix))
	for i, row := range matrix {
		if len(row) != len(s.Min) {
			return nil, fmt.Errorf("row has %d columns, scaler fitted on %d", len(row), len(s.Min))
		}
		scaled := make([]float64, len(row))
		for c, v := range row {
			scaled[c] = s.scale(c, v)
		}
		out[i] = scaled
	}
	return out, nil
}

func (s *MinMaxScaler) scale(col int, v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	span := s.Max[col] - s.Min[col]
	if span == 0 {
		return 0
	}
	return (v - s.Min[col]) / span
}

// Clone returns an independent copy of the scaler state.
func (s *MinMaxScaler) Clone() *MinMaxScaler {
	clone := &MinMaxScaler{Fitted: s.Fitted}
	clone.Min = append([]float64(nil), s.Min...)
	clone.Max = append([]float64(nil), s.Max...)
	return clone
}
