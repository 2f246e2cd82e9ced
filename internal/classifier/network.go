package classifier

import (
	"fmt"
	"math"
	"math/rand"
)

// networkState is the JSON-persistable weight set: two stacked tanh
// recurrent layers followed by a dense softmax over [BUY, SELL, HOLD].
type networkState struct {
	InputSize  int `json:"input_size"`
	HiddenSize int `json:"hidden_size"`
	OutputSize int `json:"output_size"`

	W1x [][]float64 `json:"layer1_input_weights"`
	W1h [][]float64 `json:"layer1_recurrent_weights"`
	B1  []float64   `json:"layer1_biases"`

	W2x [][]float64 `json:"layer2_input_weights"`
	W2h [][]float64 `json:"layer2_recurrent_weights"`
	B2  []float64   `json:"layer2_biases"`

	Wo [][]float64 `json:"output_weights"`
	Bo []float64   `json:"output_biases"`
}

func (s *networkState) validate() error {
	if s == nil {
		return fmt.Errorf("nil network state")
	}
	if s.InputSize <= 0 || s.HiddenSize <= 0 || s.OutputSize <= 0 {
		return fmt.Errorf("invalid dimensions %dx%dx%d", s.InputSize, s.HiddenSize, s.OutputSize)
	}
	if len(s.W1x) != s.HiddenSize || len(s.W1h) != s.HiddenSize || len(s.B1) != s.HiddenSize ||
		len(s.W2x) != s.HiddenSize || len(s.W2h) != s.HiddenSize || len(s.B2) != s.HiddenSize ||
		len(s.Wo) != s.OutputSize || len(s.Bo) != s.OutputSize {
		return fmt.Errorf("weight shapes do not match declared dimensions")
	}
	return nil
}

// network wraps the weights with the training hyperparameters.
type network struct {
	state        *networkState
	learningRate float64
	dropoutRate  float64
	clip         float64
	rng          *rand.Rand
}

func newNetwork(inputSize, hiddenSize, outputSize int, learningRate, dropoutRate float64, seed int64) (*network, error) {
	if inputSize <= 0 || hiddenSize <= 0 || outputSize <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%dx%d", inputSize, hiddenSize, outputSize)
	}
	rng := rand.New(rand.NewSource(seed))
	state := &networkState{
		InputSize:  inputSize,
		HiddenSize: hiddenSize,
		OutputSize: outputSize,
		W1x:        randomMatrix(rng, hiddenSize, inputSize),
		W1h:        randomMatrix(rng, hiddenSize, hiddenSize),
		B1:         make([]float64, hiddenSize),
		W2x:        randomMatrix(rng, hiddenSize, hiddenSize),
		W2h:        randomMatrix(rng, hiddenSize, hiddenSize),
		B2:         make([]float64, hiddenSize),
		Wo:         randomMatrix(rng, outputSize, hiddenSize),
		Bo:         make([]float64, outputSize),
	}
	return &network{
		state:        state,
		learningRate: learningRate,
		dropoutRate:  dropoutRate,
		clip:         5.0,
		rng:          rng,
	}, nil
}

func fromState(state *networkState, learningRate, dropoutRate float64, seed int64) (*network, error) {
	if err := state.validate(); err != nil {
		return nil, err
	}
	return &network{
		state:        state,
		learningRate: learningRate,
		dropoutRate:  dropoutRate,
		clip:         5.0,
		rng:          rand.New(rand.NewSource(seed)),
	}, nil
}

// randomMatrix initializes weights uniformly in ±sqrt(1/fanIn).
func randomMatrix(rng *rand.Rand, rows, cols int) [][]float64 {
	scale := math.Sqrt(1.0 / float64(cols))
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
		for j := range m[i] {
			m[i][j] = (rng.Float64()*2 - 1) * scale
		}
	}
	return m
}

func zeroMatrix(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}

// forwardCache stores per-timestep activations of one sequence for BPTT.
type forwardCache struct {
	inputs [][]float64
	h1     [][]float64 // raw hidden states, layer 1
	h1d    [][]float64 // after dropout, fed to layer 2
	h2     [][]float64
	h2d    [][]float64 // after dropout, fed to the output layer
	m1     [][]float64 // inverted dropout masks
	m2     [][]float64
	probs  []float64
}

// forward runs one sequence through the stack. Dropout masks are sampled
// only in training mode; at inference the raw activations pass through.
func (n *network) forward(seq [][]float64, training bool) *forwardCache {
	s := n.state
	T := len(seq)
	cache := &forwardCache{
		inputs: seq,
		h1:     make([][]float64, T),
		h1d:    make([][]float64, T),
		h2:     make([][]float64, T),
		h2d:    make([][]float64, T),
		m1:     make([][]float64, T),
		m2:     make([][]float64, T),
	}

	prev1 := make([]float64, s.HiddenSize)
	prev2 := make([]float64, s.HiddenSize)
	for t := 0; t < T; t++ {
		h1 := make([]float64, s.HiddenSize)
		for i := 0; i < s.HiddenSize; i++ {
			sum := s.B1[i]
			for j, x := range seq[t] {
				sum += s.W1x[i][j] * x
			}
			for j, h := range prev1 {
				sum += s.W1h[i][j] * h
			}
			h1[i] = math.Tanh(sum)
		}
		m1 := n.dropoutMask(training)
		h1d := applyMask(h1, m1)

		h2 := make([]float64, s.HiddenSize)
		for i := 0; i < s.HiddenSize; i++ {
			sum := s.B2[i]
			for j, h := range h1d {
				sum += s.W2x[i][j] * h
			}
			for j, h := range prev2 {
				sum += s.W2h[i][j] * h
			}
			h2[i] = math.Tanh(sum)
		}
		m2 := n.dropoutMask(training)
		h2d := applyMask(h2, m2)

		cache.h1[t], cache.h1d[t] = h1, h1d
		cache.h2[t], cache.h2d[t] = h2, h2d
		cache.m1[t], cache.m2[t] = m1, m2
		prev1, prev2 = h1, h2
	}

	logits := make([]float64, s.OutputSize)
	last := cache.h2d[T-1]
	for i := 0; i < s.OutputSize; i++ {
		sum := s.Bo[i]
		for j, h := range last {
			sum += s.Wo[i][j] * h
		}
		logits[i] = sum
	}
	cache.probs = softmax(logits)
	return cache
}

// dropoutMask returns an inverted-dropout mask, or nil when inactive.
func (n *network) dropoutMask(training bool) []float64 {
	if !training || n.dropoutRate <= 0 {
		return nil
	}
	keep := 1.0 - n.dropoutRate
	mask := make([]float64, n.state.HiddenSize)
	for i := range mask {
		if n.rng.Float64() < keep {
			mask[i] = 1.0 / keep
		}
	}
	return mask
}

func applyMask(h, mask []float64) []float64 {
	if mask == nil {
		return h
	}
	out := make([]float64, len(h))
	for i := range h {
		out[i] = h[i] * mask[i]
	}
	return out
}

func softmax(logits []float64) []float64 {
	maxLogit := logits[0]
	for _, v := range logits[1:] {
		if v > maxLogit {
			maxLogit = v
		}
	}
	var sum float64
	out := make([]float64, len(logits))
	for i, v := range logits {
		out[i] = math.Exp(v - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// gradients accumulates weight gradients over a batch.
type gradients struct {
	W1x, W1h [][]float64
	B1       []float64
	W2x, W2h [][]float64
	B2       []float64
	Wo       [][]float64
	Bo       []float64
}

func newGradients(s *networkState) *gradients {
	return &gradients{
		W1x: zeroMatrix(s.HiddenSize, s.InputSize),
		W1h: zeroMatrix(s.HiddenSize, s.HiddenSize),
		B1:  make([]float64, s.HiddenSize),
		W2x: zeroMatrix(s.HiddenSize, s.HiddenSize),
		W2h: zeroMatrix(s.HiddenSize, s.HiddenSize),
		B2:  make([]float64, s.HiddenSize),
		Wo:  zeroMatrix(s.OutputSize, s.HiddenSize),
		Bo:  make([]float64, s.OutputSize),
	}
}

// backward runs truncated BPTT over the full sequence, adding this example's
// gradients into acc, and returns the cross-entropy loss.
func (n *network) backward(cache *forwardCache, label []float64, acc *gradients) float64 {
	s := n.state
	T := len(cache.inputs)

	// Softmax + cross-entropy: dLogit = p - y.
	dLogit := make([]float64, s.OutputSize)
	loss := 0.0
	for i := range dLogit {
		dLogit[i] = cache.probs[i] - label[i]
		if label[i] > 0 {
			loss = -math.Log(math.Max(cache.probs[i], 1e-12))
		}
	}

	last := cache.h2d[T-1]
	for i := 0; i < s.OutputSize; i++ {
		for j := 0; j < s.HiddenSize; j++ {
			acc.Wo[i][j] += dLogit[i] * last[j]
		}
		acc.Bo[i] += dLogit[i]
	}

	dh1 := zeroMatrix(T, s.HiddenSize)
	dh2 := zeroMatrix(T, s.HiddenSize)
	for j := 0; j < s.HiddenSize; j++ {
		var sum float64
		for i := 0; i < s.OutputSize; i++ {
			sum += s.Wo[i][j] * dLogit[i]
		}
		if cache.m2[T-1] != nil {
			sum *= cache.m2[T-1][j]
		}
		dh2[T-1][j] = sum
	}

	// Layer 2, top-down: recurrent gradient flows into dh2[t-1], input
	// gradient into dh1[t].
	for t := T - 1; t >= 0; t-- {
		dz2 := make([]float64, s.HiddenSize)
		for i := 0; i < s.HiddenSize; i++ {
			dz2[i] = dh2[t][i] * (1 - cache.h2[t][i]*cache.h2[t][i])
		}
		for i := 0; i < s.HiddenSize; i++ {
			for j := 0; j < s.HiddenSize; j++ {
				acc.W2x[i][j] += dz2[i] * cache.h1d[t][j]
				if t > 0 {
					acc.W2h[i][j] += dz2[i] * cache.h2[t-1][j]
				}
			}
			acc.B2[i] += dz2[i]
		}
		for j := 0; j < s.HiddenSize; j++ {
			var sum float64
			for i := 0; i < s.HiddenSize; i++ {
				sum += s.W2x[i][j] * dz2[i]
			}
			if cache.m1[t] != nil {
				sum *= cache.m1[t][j]
			}
			dh1[t][j] += sum
		}
		if t > 0 {
			for j := 0; j < s.HiddenSize; j++ {
				var sum float64
				for i := 0; i < s.HiddenSize; i++ {
					sum += s.W2h[i][j] * dz2[i]
				}
				dh2[t-1][j] += sum
			}
		}
	}

	// Layer 1, top-down.
	for t := T - 1; t >= 0; t-- {
		dz1 := make([]float64, s.HiddenSize)
		for i := 0; i < s.HiddenSize; i++ {
			dz1[i] = dh1[t][i] * (1 - cache.h1[t][i]*cache.h1[t][i])
		}
		for i := 0; i < s.HiddenSize; i++ {
			for j := 0; j < s.InputSize; j++ {
				acc.W1x[i][j] += dz1[i] * cache.inputs[t][j]
			}
			if t > 0 {
				for j := 0; j < s.HiddenSize; j++ {
					acc.W1h[i][j] += dz1[i] * cache.h1[t-1][j]
				}
			}
			acc.B1[i] += dz1[i]
		}
		if t > 0 {
			for j := 0; j < s.HiddenSize; j++ {
				var sum float64
				for i := 0; i < s.HiddenSize; i++ {
					sum += s.W1h[i][j] * dz1[i]
				}
				dh1[t-1][j] += sum
			}
		}
	}

	return loss
}

// trainBatch accumulates gradients across the batch, applies one clipped SGD
// step and returns mean loss and the number of correct argmax predictions.
func (n *network) trainBatch(inputs [][][]float64, labels [][]float64) (float64, int) {
	acc := newGradients(n.state)
	var totalLoss float64
	correct := 0

	for i, seq := range inputs {
		cache := n.forward(seq, true)
		totalLoss += n.backward(cache, labels[i], acc)
		if argmax(cache.probs) == argmax(labels[i]) {
			correct++
		}
	}

	scale := n.learningRate / float64(len(inputs))
	n.applyMatrix(n.state.W1x, acc.W1x, scale)
	n.applyMatrix(n.state.W1h, acc.W1h, scale)
	n.applyVector(n.state.B1, acc.B1, scale)
	n.applyMatrix(n.state.W2x, acc.W2x, scale)
	n.applyMatrix(n.state.W2h, acc.W2h, scale)
	n.applyVector(n.state.B2, acc.B2, scale)
	n.applyMatrix(n.state.Wo, acc.Wo, scale)
	n.applyVector(n.state.Bo, acc.Bo, scale)

	return totalLoss / float64(len(inputs)), correct
}

// evaluate computes mean loss and accuracy without touching the weights.
func (n *network) evaluate(inputs [][][]float64, labels [][]float64) (float64, float64) {
	if len(inputs) == 0 {
		return 0, 0
	}
	var totalLoss float64
	correct := 0
	for i, seq := range inputs {
		cache := n.forward(seq, false)
		for c, y := range labels[i] {
			if y > 0 {
				totalLoss += -math.Log(math.Max(cache.probs[c], 1e-12))
			}
		}
		if argmax(cache.probs) == argmax(labels[i]) {
			correct++
		}
	}
	return totalLoss / float64(len(inputs)), float64(correct) / float64(len(inputs))
}

// predict returns class probabilities for one sequence.
func (n *network) predict(seq [][]float64) []float64 {
	return n.forward(seq, false).probs
}

func (n *network) applyMatrix(w, grad [][]float64, scale float64) {
	for i := range w {
		for j := range w[i] {
			w[i][j] -= clamp(grad[i][j], n.clip) * scale
		}
	}
}

func (n *network) applyVector(w, grad []float64, scale float64) {
	for i := range w {
		w[i] -= clamp(grad[i], n.clip) * scale
	}
}

func clamp(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}

func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
