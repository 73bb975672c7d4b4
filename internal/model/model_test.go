package model

import (
	"testing"

	"github.com/samcharles93/fastvec/internal/tensor"
)

// constLoss writes a fixed gradient and records what it was called with.
type constLoss struct {
	grad   []float32
	value  float32
	calls  int
	hidden []float32
	index  int
}

func (l *constLoss) ComputeOutput(s *State) {}

func (l *constLoss) Forward(targets []int32, targetIndex int, s *State, lr float32, backprop bool) float32 {
	l.calls++
	l.index = targetIndex
	l.hidden = append(l.hidden[:0], s.Hidden...)
	copy(s.Grad, l.grad)
	return l.value
}

func (l *constLoss) Predict(k int, threshold float32, s *State) []Prediction {
	return []Prediction{{Score: s.Hidden[0], ID: 0}}
}

func newTestModel(t *testing.T, normalize bool) (*Model, *constLoss) {
	t.Helper()
	wi, err := tensor.NewMatFromData(3, 2, []float32{
		1, 2,
		3, 4,
		5, 6,
	})
	if err != nil {
		t.Fatal(err)
	}
	l := &constLoss{grad: []float32{0.5, -1}, value: 2}
	return New(wi, tensor.NewMat(4, 2), l, normalize), l
}

func TestComputeHiddenIsMean(t *testing.T) {
	t.Parallel()
	m, _ := newTestModel(t, false)
	s := m.NewState(1)
	m.ComputeHidden([]int32{0, 2}, s)
	if s.Hidden[0] != 3 || s.Hidden[1] != 4 {
		t.Fatalf("expected mean [3 4], got %v", s.Hidden)
	}
}

func TestUpdateRepeatedIDs(t *testing.T) {
	t.Parallel()
	m, l := newTestModel(t, false)
	s := m.NewState(1)

	m.Update([]int32{1, 1, 1}, []int32{0}, 0, 0.1, s)
	row := m.Input().Row(1)
	// Three occurrences receive three gradient applications.
	if row[0] != 3+1.5 || row[1] != 4-3 {
		t.Fatalf("expected row [4.5 1], got %v", row)
	}
	if l.hidden[0] != 3 || l.hidden[1] != 4 {
		t.Fatalf("expected hidden [3 4] at forward time, got %v", l.hidden)
	}
	if untouched := m.Input().Row(0); untouched[0] != 1 || untouched[1] != 2 {
		t.Fatalf("row 0 should be unchanged, got %v", untouched)
	}
}

func TestUpdateNormalizedGradient(t *testing.T) {
	t.Parallel()
	m, _ := newTestModel(t, true)
	s := m.NewState(1)

	m.Update([]int32{2, 2}, []int32{0}, 0, 0.1, s)
	row := m.Input().Row(2)
	if row[0] != 5.5 || row[1] != 5 {
		t.Fatalf("expected row [5.5 5], got %v", row)
	}
}

func TestUpdateEmptyInputIsNoop(t *testing.T) {
	t.Parallel()
	m, l := newTestModel(t, false)
	s := m.NewState(1)
	m.Update(nil, []int32{0}, 0, 0.1, s)
	if l.calls != 0 {
		t.Fatalf("expected no forward call, got %d", l.calls)
	}
	if s.Examples() != 0 {
		t.Fatalf("expected no recorded examples, got %d", s.Examples())
	}
}

func TestUpdateRecordsLoss(t *testing.T) {
	t.Parallel()
	m, l := newTestModel(t, false)
	s := m.NewState(1)
	m.Update([]int32{0}, []int32{1, 2}, AllLabelsAsTarget, 0.1, s)
	l.value = 4
	m.Update([]int32{0}, []int32{1}, 0, 0.1, s)

	if l.calls != 2 {
		t.Fatalf("expected 2 forward calls, got %d", l.calls)
	}
	if got := s.Loss(); got != 3 {
		t.Fatalf("expected mean loss 3, got %v", got)
	}
	if s.Examples() != 2 {
		t.Fatalf("expected 2 examples, got %d", s.Examples())
	}
}

func TestUpdatePassesSentinel(t *testing.T) {
	t.Parallel()
	m, l := newTestModel(t, false)
	s := m.NewState(1)
	m.Update([]int32{0}, []int32{1, 2}, AllLabelsAsTarget, 0.1, s)
	if l.index != AllLabelsAsTarget {
		t.Fatalf("expected sentinel target index, got %d", l.index)
	}
}

func TestPredictComputesHidden(t *testing.T) {
	t.Parallel()
	m, _ := newTestModel(t, false)
	s := m.NewState(1)
	preds := m.Predict([]int32{1, 2}, 1, 0, s)
	if len(preds) != 1 || preds[0].Score != 4 {
		t.Fatalf("expected hidden-derived score 4, got %+v", preds)
	}
	if m.Predict(nil, 1, 0, s) != nil {
		t.Fatal("expected nil for empty input")
	}
}

func TestNewStateShapes(t *testing.T) {
	t.Parallel()
	s := NewState(5, 7, 42)
	if len(s.Hidden) != 5 || len(s.Grad) != 5 || len(s.Output) != 7 {
		t.Fatalf("unexpected shapes: hidden=%d grad=%d output=%d", len(s.Hidden), len(s.Grad), len(s.Output))
	}
	if s.NegPos < 0 {
		t.Fatalf("expected non-negative cursor, got %d", s.NegPos)
	}
	if s.Loss() != 0 {
		t.Fatalf("expected zero loss before updates, got %v", s.Loss())
	}
}
