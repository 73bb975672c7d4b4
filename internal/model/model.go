package model

import (
	"github.com/samcharles93/fastvec/internal/tensor"
)

// AllLabelsAsTarget passed as targetIndex asks the loss to treat every id in
// targets as a simultaneous positive instead of a single sampled target.
const AllLabelsAsTarget = -1

// Loss turns a hidden vector into a training signal against one or more
// targets. Implementations own the output matrix.
type Loss interface {
	// ComputeOutput fills s.Output from s.Hidden.
	ComputeOutput(s *State)
	// Forward returns the loss for one example. When backprop is set it
	// accumulates into s.Grad and updates the touched output rows in place.
	Forward(targets []int32, targetIndex int, s *State, lr float32, backprop bool) float32
	// Predict returns up to k predictions sorted by descending score.
	Predict(k int, threshold float32, s *State) []Prediction
}

// Prediction is a scored output id. Score is a log-probability.
type Prediction struct {
	Score float32
	ID    int32
}

// Model couples the shared input matrix with a loss and its output matrix.
// It holds no per-example state; every call takes the caller's State, so one
// Model is shared by all training workers.
type Model struct {
	wi   *tensor.Mat
	wo   *tensor.Mat
	loss Loss

	normalizeGradient bool
}

// New returns a model over wi and wo. When normalizeGradient is set the input
// gradient is divided by the bag size before it is applied (supervised mode).
func New(wi, wo *tensor.Mat, loss Loss, normalizeGradient bool) *Model {
	if wi.C != wo.C {
		panic("input and output dimensions differ")
	}
	return &Model{
		wi:                wi,
		wo:                wo,
		loss:              loss,
		normalizeGradient: normalizeGradient,
	}
}

// Input returns the input embedding matrix.
func (m *Model) Input() *tensor.Mat { return m.wi }

// Output returns the output matrix.
func (m *Model) Output() *tensor.Mat { return m.wo }

// Loss returns the loss used by Update and Predict.
func (m *Model) Loss() Loss { return m.loss }

// Dim returns the embedding dimension.
func (m *Model) Dim() int { return m.wi.C }

// NewState allocates scratch sized for this model.
func (m *Model) NewState(seed int64) *State {
	return NewState(m.wi.C, m.wo.R, seed)
}

// ComputeHidden sets s.Hidden to the mean of the input rows.
func (m *Model) ComputeHidden(input []int32, s *State) {
	clear(s.Hidden)
	for _, id := range input {
		tensor.Add(s.Hidden, m.wi.Row(int(id)))
	}
	if len(input) > 0 {
		tensor.Scale(s.Hidden, 1/float32(len(input)))
	}
}

// Update performs one forward and backward step for a single example.
// An empty input bag is ignored.
func (m *Model) Update(input, targets []int32, targetIndex int, lr float32, s *State) {
	if len(input) == 0 {
		return
	}
	m.ComputeHidden(input, s)

	clear(s.Grad)
	loss := m.loss.Forward(targets, targetIndex, s, lr, true)
	s.addExample(loss)

	if m.normalizeGradient {
		tensor.Scale(s.Grad, 1/float32(len(input)))
	}
	// Repeated ids receive one update per occurrence.
	for _, id := range input {
		m.wi.AddVectorToRow(int(id), s.Grad, 1)
	}
}

// Predict returns the k best outputs for the input bag whose probability is at
// least threshold. An empty bag yields no predictions.
func (m *Model) Predict(input []int32, k int, threshold float32, s *State) []Prediction {
	if len(input) == 0 || k <= 0 {
		return nil
	}
	m.ComputeHidden(input, s)
	return m.loss.Predict(k, threshold, s)
}
