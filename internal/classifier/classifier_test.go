package classifier

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tradefusion/models"
)

func testConfig() Config {
	return Config{
		FeatureColumns: []string{"close", "volume"},
		SequenceLength: 10,
		HiddenSize:     8,
		LearningRate:   0.01,
		DropoutRate:    0.1,
		Epochs:         3,
		BatchSize:      16,
		Seed:           42,
	}
}

func newTestClassifier(t *testing.T, store Store) *Classifier {
	t.Helper()
	c, err := New(testConfig(), store, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNewRejectsMissingColumns(t *testing.T) {
	cfg := testConfig()
	cfg.FeatureColumns = nil
	_, err := New(cfg, nil, zerolog.Nop())
	if !errors.Is(err, models.ErrModelInitialization) {
		t.Errorf("New() error = %v, want ErrModelInitialization", err)
	}
}

func TestPredictShortSeriesIsNeutral(t *testing.T) {
	c := newTestClassifier(t, nil)
	pred := c.Predict(trendSeries(5, 1.0))

	if pred.Signal != models.DirectionHold {
		t.Errorf("Predict() signal = %v, want HOLD", pred.Signal)
	}
	if pred.Confidence != 0 {
		t.Errorf("Predict() confidence = %v, want 0", pred.Confidence)
	}
	if pred.Probabilities.Hold != 1 {
		t.Errorf("Predict() hold probability = %v, want 1", pred.Probabilities.Hold)
	}
}

func TestTrainInsufficientData(t *testing.T) {
	c := newTestClassifier(t, nil)
	_, err := c.Train(trendSeries(5, 1.0), false)
	if !errors.Is(err, models.ErrInsufficientData) {
		t.Errorf("Train() error = %v, want ErrInsufficientData", err)
	}
}

func TestTrainAndPredict(t *testing.T) {
	c := newTestClassifier(t, nil)
	fs := trendSeries(120, 1.0)

	result, err := c.Train(fs, false)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if result.Examples != 110 {
		t.Errorf("Train() examples = %d, want 110", result.Examples)
	}
	if result.TrainLoss <= 0 || math.IsNaN(result.TrainLoss) {
		t.Errorf("Train() loss = %v, want positive finite", result.TrainLoss)
	}

	pred := c.Predict(fs)
	probSum := pred.Probabilities.Buy + pred.Probabilities.Sell + pred.Probabilities.Hold
	if math.Abs(probSum-1) > 1e-9 {
		t.Errorf("probabilities sum to %v, want 1", probSum)
	}
	if pred.Confidence <= 0 || pred.Confidence > 1 {
		t.Errorf("Predict() confidence = %v, want (0,1]", pred.Confidence)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	trained := newTestClassifier(t, store)
	fs := trendSeries(120, 1.0)
	result, err := trained.Train(fs, true)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if result.Version != 1 {
		t.Errorf("Train() version = %d, want 1", result.Version)
	}
	want := trained.Predict(fs)

	// A fresh classifier over the same store picks up the saved version,
	// including the training-time scaler, and predicts identically.
	loaded := newTestClassifier(t, store)
	if loaded.Version() != 1 {
		t.Fatalf("loaded Version() = %d, want 1", loaded.Version())
	}
	got := loaded.Predict(fs)

	if got.Signal != want.Signal {
		t.Errorf("loaded signal = %v, want %v", got.Signal, want.Signal)
	}
	if math.Abs(got.Confidence-want.Confidence) > 1e-12 {
		t.Errorf("loaded confidence = %v, want %v", got.Confidence, want.Confidence)
	}
	if got.Probabilities != want.Probabilities {
		t.Errorf("loaded probabilities = %+v, want %+v", got.Probabilities, want.Probabilities)
	}
}

func TestPredictDoesNotRefitScaler(t *testing.T) {
	c := newTestClassifier(t, nil)
	fs := trendSeries(120, 1.0)
	if _, err := c.Train(fs, false); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	before := c.Predict(fs)

	// Predicting on a series from a very different price regime must not
	// disturb the training-time scaler.
	shifted := trendSeries(120, 1000.0)
	c.Predict(shifted)

	after := c.Predict(fs)
	if before.Probabilities != after.Probabilities {
		t.Errorf("prediction changed after scoring another series: %+v vs %+v",
			before.Probabilities, after.Probabilities)
	}
}

func TestOnlineUpdate(t *testing.T) {
	c := newTestClassifier(t, nil)
	fs := trendSeries(120, 1.0)

	// Before training the scaler has no state; the update must be skipped.
	if result := c.OnlineUpdate(fs); result.Loss != nil {
		t.Errorf("OnlineUpdate() before training applied, want skip")
	}

	if _, err := c.Train(fs, false); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	result := c.OnlineUpdate(fs)
	if result.Loss == nil || result.Accuracy == nil {
		t.Fatal("OnlineUpdate() after training skipped, want metrics")
	}
	if *result.Loss <= 0 || math.IsNaN(*result.Loss) {
		t.Errorf("OnlineUpdate() loss = %v, want positive finite", *result.Loss)
	}
}

func TestLoadVersionMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	c := newTestClassifier(t, store)

	err = c.LoadVersion(7)
	var notFound *models.VersionNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("LoadVersion() error = %v, want VersionNotFoundError", err)
	}
	if notFound.Version != 7 {
		t.Errorf("VersionNotFoundError.Version = %d, want 7", notFound.Version)
	}
}

// trendSeries builds a gently trending series with mild oscillation so
// training sees all three label classes. scale shifts the price regime.
func trendSeries(n int, scale float64) *models.FeatureSeries {
	candles := make([]models.Candle, n)
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i := 0; i < n; i++ {
		closes[i] = scale * (100 + float64(i)*0.2 + 3*math.Sin(float64(i)/3))
		volumes[i] = 1000 + 50*math.Cos(float64(i)/5)
		candles[i] = models.Candle{
			Timestamp: time.Date(2024, 1, 1, 0, i, 0, 0, time.UTC),
			Open:      closes[i] - 0.1*scale,
			High:      closes[i] + 0.5*scale,
			Low:       closes[i] - 0.5*scale,
			Close:     closes[i],
			Volume:    volumes[i],
		}
	}
	fs := models.NewFeatureSeries(candles)
	fs.SetColumn("close", closes)
	fs.SetColumn("volume", volumes)
	return fs
}
