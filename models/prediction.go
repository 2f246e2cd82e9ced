package models

import "time"

// Direction is a classifier output class.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionHold Direction = "HOLD"
)

// ClassProbs holds the classifier's probability per class.
type ClassProbs struct {
	Buy  float64 `json:"buy"`
	Sell float64 `json:"sell"`
	Hold float64 `json:"hold"`
}

// Prediction is the classifier's output for the most recent window.
type Prediction struct {
	Signal        Direction  `json:"signal"`
	Confidence    float64    `json:"confidence"`
	Probabilities ClassProbs `json:"probabilities"`
	Timestamp     time.Time  `json:"timestamp"`
	ModelVersion  int        `json:"model_version"`
}

// NeutralPrediction is the safe fallback emitted when prediction fails for
// any reason: upstream fusion always receives a well-formed record.
func NeutralPrediction(version int) Prediction {
	return Prediction{
		Signal:        DirectionHold,
		Confidence:    0.0,
		Probabilities: ClassProbs{Buy: 0, Sell: 0, Hold: 1},
		Timestamp:     time.Now().UTC(),
		ModelVersion:  version,
	}
}

// TrainResult reports final-epoch metrics for a training run.
type TrainResult struct {
	TrainLoss     float64 `json:"train_loss"`
	TrainAccuracy float64 `json:"train_accuracy"`
	ValLoss       float64 `json:"val_loss"`
	ValAccuracy   float64 `json:"val_accuracy"`
	Version       int     `json:"version"`
	Examples      int     `json:"examples"`
}

// UpdateResult reports metrics for one online update pass. Nil fields mean
// the update was not applied; callers must check before use.
type UpdateResult struct {
	Loss     *float64 `json:"loss"`
	Accuracy *float64 `json:"accuracy"`
}
