// Package classifier owns the sequential direction model: training,
// prediction, versioned persistence and online updates.
package classifier

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tradefusion/internal/features"
	"tradefusion/models"
)

// Config holds the classifier hyperparameters.
type Config struct {
	FeatureColumns  []string
	SequenceLength  int
	HiddenSize      int
	LearningRate    float64
	DropoutRate     float64
	Epochs          int
	BatchSize       int
	ValidationSplit float64
	Seed            int64
}

func (c Config) withDefaults() Config {
	if c.SequenceLength <= 0 {
		c.SequenceLength = 30
	}
	if c.HiddenSize <= 0 {
		c.HiddenSize = 32
	}
	if c.LearningRate <= 0 {
		c.LearningRate = 0.001
	}
	if c.DropoutRate < 0 || c.DropoutRate >= 1 {
		c.DropoutRate = 0.2
	}
	if c.Epochs <= 0 {
		c.Epochs = 20
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 32
	}
	if c.ValidationSplit <= 0 || c.ValidationSplit >= 1 {
		c.ValidationSplit = 0.2
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	return c
}

// Classifier is the one core component with mutable shared state. Mutators
// (Train, OnlineUpdate, LoadVersion) are serialized; Predict reads a
// consistent snapshot and may run concurrently with itself.
type Classifier struct {
	mu      sync.RWMutex
	net     *network
	scaler  *features.MinMaxScaler
	builder *features.Builder
	version int

	cfg    Config
	store  Store
	rng    *rand.Rand
	logger zerolog.Logger
}

// New builds a classifier, loading the most recent persisted version when one
// exists. Any load failure falls back to a fresh architecture; the fallback
// is logged, never fatal. A broken architecture config is fatal.
func New(cfg Config, store Store, logger zerolog.Logger) (*Classifier, error) {
	cfg = cfg.withDefaults()
	if len(cfg.FeatureColumns) == 0 {
		return nil, fmt.Errorf("%w: no feature columns configured", models.ErrModelInitialization)
	}

	net, err := newNetwork(len(cfg.FeatureColumns), cfg.HiddenSize, features.Classes,
		cfg.LearningRate, cfg.DropoutRate, cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrModelInitialization, err)
	}

	c := &Classifier{
		net:     net,
		scaler:  features.NewMinMaxScaler(),
		builder: features.NewBuilder(cfg.FeatureColumns, cfg.SequenceLength),
		cfg:     cfg,
		store:   store,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		logger:  logger,
	}

	if store != nil {
		if err := c.loadLatest(); err != nil {
			logger.Warn().Err(err).Msg("no persisted model loaded, starting with fresh architecture")
		}
	}
	return c, nil
}

func (c *Classifier) loadLatest() error {
	latest, err := c.store.LatestVersion()
	if err != nil {
		return fmt.Errorf("resolving latest version: %w", err)
	}
	if latest == 0 {
		return fmt.Errorf("no saved versions")
	}
	if err := c.LoadVersion(latest); err != nil {
		return err
	}
	c.logger.Info().Int("version", latest).Msg("loaded persisted model")
	return nil
}

// Version returns the currently active model version.
func (c *Classifier) Version() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Train runs batch training over the series. The feature scaler is refit on
// the training data and becomes part of the state persisted with the model.
// Fails with ErrInsufficientData when no examples can be built. Validation
// examples are the temporally-last slice, preserving time order. Saving is
// caller-opted and increments the version.
func (c *Classifier) Train(fs *models.FeatureSeries, saveModel bool) (models.TrainResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ds, err := c.builder.Prepare(fs, c.scaler, true)
	if err != nil {
		return models.TrainResult{}, fmt.Errorf("preparing training data: %w", err)
	}
	if ds.Len() == 0 {
		return models.TrainResult{}, fmt.Errorf("%w: %d candles, need at least %d",
			models.ErrInsufficientData, fs.Len(), c.builder.SequenceLength()+1)
	}

	splitIdx := ds.Len() - int(float64(ds.Len())*c.cfg.ValidationSplit)
	if splitIdx <= 0 {
		splitIdx = ds.Len()
	}
	trainX, trainY := ds.Inputs[:splitIdx], ds.Labels[:splitIdx]
	valX, valY := ds.Inputs[splitIdx:], ds.Labels[splitIdx:]

	var trainLoss, trainAcc float64
	for epoch := 0; epoch < c.cfg.Epochs; epoch++ {
		order := c.rng.Perm(len(trainX))
		var epochLoss float64
		correct := 0
		batches := 0
		for start := 0; start < len(order); start += c.cfg.BatchSize {
			end := start + c.cfg.BatchSize
			if end > len(order) {
				end = len(order)
			}
			batchX := make([][][]float64, 0, end-start)
			batchY := make([][]float64, 0, end-start)
			for _, idx := range order[start:end] {
				batchX = append(batchX, trainX[idx])
				batchY = append(batchY, trainY[idx])
			}
			loss, ok := c.net.trainBatch(batchX, batchY)
			epochLoss += loss
			correct += ok
			batches++
		}
		trainLoss = epochLoss / float64(batches)
		trainAcc = float64(correct) / float64(len(trainX))
	}

	valLoss, valAcc := c.net.evaluate(valX, valY)

	result := models.TrainResult{
		TrainLoss:     trainLoss,
		TrainAccuracy: trainAcc,
		ValLoss:       valLoss,
		ValAccuracy:   valAcc,
		Version:       c.version,
		Examples:      ds.Len(),
	}

	if saveModel {
		if err := c.saveLocked(); err != nil {
			return result, fmt.Errorf("saving model: %w", err)
		}
		result.Version = c.version
	}

	c.logger.Info().
		Int("examples", ds.Len()).
		Float64("train_loss", trainLoss).
		Float64("train_accuracy", trainAcc).
		Float64("val_loss", valLoss).
		Float64("val_accuracy", valAcc).
		Bool("saved", saveModel).
		Msg("training finished")
	return result, nil
}

// saveLocked increments the version and persists weights plus scaler state.
// Callers must hold the write lock.
func (c *Classifier) saveLocked() error {
	if c.store == nil {
		return fmt.Errorf("no model store configured")
	}
	state := &ModelState{
		Version:        c.version + 1,
		Network:        c.net.state,
		Scaler:         c.scaler.Clone(),
		FeatureColumns: c.builder.Columns(),
		SequenceLength: c.builder.SequenceLength(),
		SavedAt:        time.Now().UTC(),
	}
	if err := c.store.Save(state); err != nil {
		return err
	}
	c.version = state.Version
	c.logger.Info().Int("version", c.version).Msg("model saved")
	return nil
}

// Save persists the current state as a new version.
func (c *Classifier) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

// Predict classifies the most recent window. It never propagates failures:
// any internal error yields the safe neutral record so the surrounding loop
// always receives a well-formed prediction.
func (c *Classifier) Predict(fs *models.FeatureSeries) models.Prediction {
	// The read lock is held for the whole forward pass: predictions may run
	// concurrently with each other but never against a weight mutation.
	c.mu.RLock()
	defer c.mu.RUnlock()
	net := c.net
	scaler := c.scaler
	version := c.version

	if !scaler.Fitted {
		// Untrained model: fit a throwaway scaler on the prediction input
		// so a fresh process can still answer. The persisted training-time
		// scaler takes over after the first Train.
		c.logger.Warn().Msg("scaler not fitted, scaling prediction input ad hoc")
		scaler = features.NewMinMaxScaler()
		ds, err := c.builder.Prepare(fs, scaler, true)
		return c.predictionFrom(net, ds, err, version)
	}

	ds, err := c.builder.Prepare(fs, scaler, false)
	return c.predictionFrom(net, ds, err, version)
}

func (c *Classifier) predictionFrom(net *network, ds *features.Dataset, err error, version int) models.Prediction {
	if err != nil {
		c.logger.Error().Err(err).Msg("prediction failed, returning neutral")
		return models.NeutralPrediction(version)
	}
	if ds.Len() == 0 {
		c.logger.Debug().Msg("not enough candles for a prediction window")
		return models.NeutralPrediction(version)
	}

	probs := net.predict(ds.Inputs[ds.Len()-1])
	directions := [features.Classes]models.Direction{
		models.DirectionBuy, models.DirectionSell, models.DirectionHold,
	}
	best := argmax(probs)
	return models.Prediction{
		Signal:     directions[best],
		Confidence: probs[best],
		Probabilities: models.ClassProbs{
			Buy:  probs[features.ClassBuy],
			Sell: probs[features.ClassSell],
			Hold: probs[features.ClassHold],
		},
		Timestamp:    time.Now().UTC(),
		ModelVersion: version,
	}
}

// OnlineUpdate performs one incremental pass over the newest examples using
// the training-time scaler. It never changes the version and never persists.
// Failures are non-fatal: nil metrics mean no update was applied.
func (c *Classifier) OnlineUpdate(fs *models.FeatureSeries) models.UpdateResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.scaler.Fitted {
		c.logger.Warn().Msg("online update skipped: model has not been trained")
		return models.UpdateResult{}
	}

	ds, err := c.builder.Prepare(fs, c.scaler, false)
	if err != nil {
		c.logger.Error().Err(err).Msg("online update failed")
		return models.UpdateResult{}
	}
	if ds.Len() == 0 {
		c.logger.Debug().Msg("online update skipped: insufficient data")
		return models.UpdateResult{}
	}

	batch := ds.Len()
	if c.cfg.BatchSize < batch {
		batch = c.cfg.BatchSize
	}
	inputs := ds.Inputs[ds.Len()-batch:]
	labels := ds.Labels[ds.Len()-batch:]

	loss, correct := c.net.trainBatch(inputs, labels)
	accuracy := float64(correct) / float64(batch)

	c.logger.Debug().
		Int("batch", batch).
		Float64("loss", loss).
		Float64("accuracy", accuracy).
		Msg("online update applied")
	return models.UpdateResult{Loss: &loss, Accuracy: &accuracy}
}

// LoadVersion replaces the in-memory model with a specific stored version.
// The state loads into a candidate first and swaps in only on success, so a
// failed load never corrupts the active model.
func (c *Classifier) LoadVersion(version int) error {
	if c.store == nil {
		return fmt.Errorf("no model store configured")
	}
	state, err := c.store.Load(version)
	if err != nil {
		return err
	}

	candidate, err := fromState(state.Network, c.cfg.LearningRate, c.cfg.DropoutRate, c.cfg.Seed)
	if err != nil {
		return fmt.Errorf("model version %d is corrupt: %w", version, err)
	}
	if state.Network.InputSize != len(state.FeatureColumns) {
		return fmt.Errorf("model version %d is corrupt: %d inputs for %d feature columns",
			version, state.Network.InputSize, len(state.FeatureColumns))
	}
	scaler := state.Scaler
	if scaler == nil {
		scaler = features.NewMinMaxScaler()
	}

	c.mu.Lock()
	c.net = candidate
	c.scaler = scaler
	c.builder = features.NewBuilder(state.FeatureColumns, state.SequenceLength)
	c.version = state.Version
	c.mu.Unlock()

	c.logger.Info().Int("version", version).Msg("model version loaded")
	return nil
}
