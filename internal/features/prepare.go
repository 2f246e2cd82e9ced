// Package features converts a feature-augmented candle series into
// fixed-length scaled input windows with 3-class direction labels.
package features

import (
	"fmt"

	"tradefusion/models"
)

// Label classes, in the fixed one-hot order used everywhere downstream.
const (
	ClassBuy  = 0
	ClassSell = 1
	ClassHold = 2
	Classes   = 3
)

// Dead-zone threshold: relative close-to-close moves within ±0.1% are HOLD.
const labelThreshold = 0.001

// Dataset holds windowed examples: Inputs[i] is a sequence of scaled feature
// rows, Labels[i] the one-hot [BUY, SELL, HOLD] target for that window.
type Dataset struct {
	Inputs [][][]float64
	Labels [][]float64
}

// Len returns the number of examples.
func (d *Dataset) Len() int {
	return len(d.Inputs)
}

// Builder windows feature series for the classifier.
type Builder struct {
	columns   []string
	seqLength int
}

// NewBuilder creates a builder over the given feature columns and window size.
func NewBuilder(columns []string, seqLength int) *Builder {
	return &Builder{columns: columns, seqLength: seqLength}
}

// Columns returns the feature column vocabulary.
func (b *Builder) Columns() []string {
	return append([]string(nil), b.columns...)
}

// SequenceLength returns the window size.
func (b *Builder) SequenceLength() int {
	return b.seqLength
}

// Matrix extracts the requested feature columns as a row-major matrix, one
// row per candle. It fails with MissingFeatureError when any column is
// absent: that is a caller configuration bug, never swallowed.
func (b *Builder) Matrix(fs *models.FeatureSeries) ([][]float64, error) {
	var missing []string
	cols := make([][]float64, 0, len(b.columns))
	for _, name := range b.columns {
		col, ok := fs.Column(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols = append(cols, col)
	}
	if len(missing) > 0 {
		return nil, &models.MissingFeatureError{Columns: missing}
	}

	matrix := make([][]float64, fs.Len())
	for i := range matrix {
		row := make([]float64, len(cols))
		for c, col := range cols {
			row[c] = col[i]
		}
		matrix[i] = row
	}
	return matrix, nil
}

// Prepare validates the feature columns, scales them and slides a window of
// seqLength rows across the series. The label for window i compares
// close[i+seqLength] against close[i+seqLength-1] with the ±0.1% dead-zone.
// When fitScaler is set the scaler is refit on this series before applying;
// otherwise the previously fitted (persisted) scaler state is used as-is.
// A series shorter than seqLength+1 yields an empty dataset, not an error.
func (b *Builder) Prepare(fs *models.FeatureSeries, scaler *MinMaxScaler, fitScaler bool) (*Dataset, error) {
	matrix, err := b.Matrix(fs)
	if err != nil {
		return nil, err
	}

	if fs.Len() < b.seqLength+1 {
		return &Dataset{}, nil
	}

	if fitScaler {
		if err := scaler.Fit(matrix); err != nil {
			return nil, fmt.Errorf("fitting scaler: %w", err)
		}
	}
	scaled, err := scaler.Transform(matrix)
	if err != nil {
		return nil, fmt.Errorf("scaling features: %w", err)
	}

	n := fs.Len() - b.seqLength
	ds := &Dataset{
		Inputs: make([][][]float64, 0, n),
		Labels: make([][]float64, 0, n),
	}
	for i := 0; i < n; i++ {
		ds.Inputs = append(ds.Inputs, scaled[i:i+b.seqLength])

		nextClose := fs.Candles[i+b.seqLength].Close
		lastClose := fs.Candles[i+b.seqLength-1].Close
		ds.Labels = append(ds.Labels, labelFor(lastClose, nextClose))
	}
	return ds, nil
}

func labelFor(lastClose, nextClose float64) []float64 {
	label := make([]float64, Classes)
	switch {
	case nextClose > lastClose*(1+labelThreshold):
		label[ClassBuy] = 1
	case nextClose < lastClose*(1-labelThreshold):
		label[ClassSell] = 1
	default:
		label[ClassHold] = 1
	}
	return label
}
