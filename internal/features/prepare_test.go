package features

import (
	"errors"
	"testing"
	"time"

	"tradefusion/models"
)

func TestLabelFor(t *testing.T) {
	tests := []struct {
		name      string
		lastClose float64
		nextClose float64
		expected  int
	}{
		{name: "Flat close", lastClose: 100, nextClose: 100, expected: ClassHold},
		{name: "Exactly at upper threshold", lastClose: 100, nextClose: 100.1, expected: ClassHold},
		{name: "Just above upper threshold", lastClose: 100, nextClose: 100.101, expected: ClassBuy},
		{name: "Exactly at lower threshold", lastClose: 100, nextClose: 99.9, expected: ClassHold},
		{name: "Just below lower threshold", lastClose: 100, nextClose: 99.899, expected: ClassSell},
		{name: "Large move up", lastClose: 1.1000, nextClose: 1.2000, expected: ClassBuy},
		{name: "Large move down", lastClose: 1.1000, nextClose: 1.0000, expected: ClassSell},
		{name: "Tiny move inside dead-zone", lastClose: 1.1000, nextClose: 1.10005, expected: ClassHold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label := labelFor(tt.lastClose, tt.nextClose)
			for class := 0; class < Classes; class++ {
				want := 0.0
				if class == tt.expected {
					want = 1.0
				}
				if label[class] != want {
					t.Errorf("labelFor(%v, %v)[%d] = %v, want %v",
						tt.lastClose, tt.nextClose, class, label[class], want)
				}
			}
		})
	}
}

func TestPrepareExampleCount(t *testing.T) {
	const seqLength = 10
	tests := []struct {
		name     string
		candles  int
		expected int
	}{
		{name: "Shorter than window", candles: 5, expected: 0},
		{name: "Exactly window length", candles: seqLength, expected: 0},
		{name: "One example", candles: seqLength + 1, expected: 1},
		{name: "Many examples", candles: 40, expected: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newTestSeries(tt.candles)
			builder := NewBuilder([]string{"close", "volume"}, seqLength)

			ds, err := builder.Prepare(fs, NewMinMaxScaler(), true)
			if err != nil {
				t.Fatalf("Prepare() error = %v", err)
			}
			if ds.Len() != tt.expected {
				t.Errorf("Prepare() examples = %d, want %d", ds.Len(), tt.expected)
			}
			for i, input := range ds.Inputs {
				if len(input) != seqLength {
					t.Errorf("example %d has %d rows, want %d", i, len(input), seqLength)
				}
			}
		})
	}
}

func TestPrepareLabelsFollowCloses(t *testing.T) {
	const seqLength = 3
	// Closes chosen so each window's label is known: 100 -> 100 (HOLD),
	// 100 -> 101 (BUY), 101 -> 99 (SELL).
	closes := []float64{100, 100, 100, 100, 101, 99}
	fs := newTestSeries(len(closes))
	for i := range fs.Candles {
		fs.Candles[i].Close = closes[i]
	}
	fs.SetColumn("close", closes)

	builder := NewBuilder([]string{"close", "volume"}, seqLength)
	ds, err := builder.Prepare(fs, NewMinMaxScaler(), true)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if ds.Len() != 3 {
		t.Fatalf("Prepare() examples = %d, want 3", ds.Len())
	}

	expected := []int{ClassHold, ClassBuy, ClassSell}
	for i, class := range expected {
		if ds.Labels[i][class] != 1 {
			t.Errorf("example %d label = %v, want class %d", i, ds.Labels[i], class)
		}
	}
}

func TestPrepareMissingColumn(t *testing.T) {
	fs := newTestSeries(20)
	builder := NewBuilder([]string{"close", "rsi", "macd_line"}, 5)

	_, err := builder.Prepare(fs, NewMinMaxScaler(), true)
	var missingErr *models.MissingFeatureError
	if !errors.As(err, &missingErr) {
		t.Fatalf("Prepare() error = %v, want MissingFeatureError", err)
	}
	if len(missingErr.Columns) != 2 {
		t.Errorf("missing columns = %v, want [rsi macd_line]", missingErr.Columns)
	}
}

func TestPrepareWithoutFitUsesExistingScalerState(t *testing.T) {
	const seqLength = 4
	fs := newTestSeries(seqLength + 2)
	builder := NewBuilder([]string{"close", "volume"}, seqLength)

	fitted := NewMinMaxScaler()
	if _, err := builder.Prepare(fs, fitted, true); err != nil {
		t.Fatalf("fitting Prepare() error = %v", err)
	}
	savedMin := append([]float64(nil), fitted.Min...)

	// A second pass without fitting must leave the scaler untouched.
	if _, err := builder.Prepare(fs, fitted, false); err != nil {
		t.Fatalf("non-fitting Prepare() error = %v", err)
	}
	for c := range savedMin {
		if fitted.Min[c] != savedMin[c] {
			t.Errorf("scaler min[%d] changed from %v to %v", c, savedMin[c], fitted.Min[c])
		}
	}

	// And an unfitted scaler without fitting is an error, not a silent refit.
	if _, err := builder.Prepare(fs, NewMinMaxScaler(), false); err == nil {
		t.Error("Prepare() with unfitted scaler succeeded, want error")
	}
}

func newTestSeries(n int) *models.FeatureSeries {
	candles := make([]models.Candle, n)
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i := 0; i < n; i++ {
		closes[i] = 100 + float64(i)
		volumes[i] = 1000 + float64(i)*10
		candles[i] = models.Candle{
			Timestamp: time.Date(2024, 1, 1, 0, i, 0, 0, time.UTC),
			Open:      closes[i] - 0.5,
			High:      closes[i] + 1,
			Low:       closes[i] - 1,
			Close:     closes[i],
			Volume:    volumes[i],
		}
	}
	fs := models.NewFeatureSeries(candles)
	fs.SetColumn("close", closes)
	fs.SetColumn("volume", volumes)
	return fs
}
