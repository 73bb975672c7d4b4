// Package loss implements the output layers used during training: hierarchical
// softmax, negative sampling, full softmax and one-vs-all.
//
// Every loss owns its output matrix and mutates it in place from many
// goroutines at once. Any auxiliary structure (Huffman tree, negative table)
// is built by the constructor and is read-only afterwards.
package loss

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samcharles93/fastvec/internal/model"
	"github.com/samcharles93/fastvec/internal/tensor"
)

// Name selects a loss implementation.
type Name int

const (
	HierarchicalSoftmax Name = iota + 1
	NegativeSampling
	Softmax
	OneVsAll
)

// DefaultNegTableSize matches the reference word2vec/fastText table size.
const DefaultNegTableSize = 10_000_000

var (
	ErrUnknownLoss = errors.New("loss: unknown loss")
	ErrNoTargets   = errors.New("loss: output matrix has no rows")
)

func (n Name) String() string {
	switch n {
	case HierarchicalSoftmax:
		return "hs"
	case NegativeSampling:
		return "ns"
	case Softmax:
		return "softmax"
	case OneVsAll:
		return "ova"
	default:
		return fmt.Sprintf("Name(%d)", int(n))
	}
}

// ParseName accepts the short names hs, ns, softmax and ova.
func ParseName(s string) (Name, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hs", "hierarchical-softmax":
		return HierarchicalSoftmax, nil
	case "ns", "negative-sampling":
		return NegativeSampling, nil
	case "softmax":
		return Softmax, nil
	case "ova", "one-vs-all":
		return OneVsAll, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownLoss, s)
}

// Options carries the settings only some losses use.
type Options struct {
	// Neg is the number of negatives drawn per positive (NegativeSampling).
	Neg int
	// TableSize is the negative table length; 0 means DefaultNegTableSize.
	TableSize int
	// Seed shuffles the negative table.
	Seed int64
}

// New builds the loss selected by name over wo. counts holds the frequency of
// each output row and is required by HierarchicalSoftmax and NegativeSampling.
func New(name Name, wo *tensor.Mat, counts []int64, opts Options) (model.Loss, error) {
	if wo.R == 0 {
		return nil, ErrNoTargets
	}
	needCounts := name == HierarchicalSoftmax || name == NegativeSampling
	if needCounts && len(counts) != wo.R {
		return nil, fmt.Errorf("loss: %s needs %d counts, got %d", name, wo.R, len(counts))
	}
	switch name {
	case HierarchicalSoftmax:
		return NewHierarchicalSoftmax(wo, counts), nil
	case NegativeSampling:
		return NewNegativeSampling(wo, counts, opts)
	case Softmax:
		return NewSoftmax(wo), nil
	case OneVsAll:
		return NewOneVsAll(wo), nil
	}
	return nil, fmt.Errorf("%w %v", ErrUnknownLoss, name)
}

// binaryLogistic holds the shared sigmoid-based step and output computation.
type binaryLogistic struct {
	wo *tensor.Mat
}

// step scores row target against s.Hidden as a positive or negative example.
func (b binaryLogistic) step(target int32, s *model.State, positive bool, lr float32, backprop bool) float32 {
	row := int(target)
	score := tensor.Sigmoid(b.wo.DotRow(row, s.Hidden))
	if backprop {
		var label float32
		if positive {
			label = 1
		}
		alpha := lr * (label - score)
		b.wo.AddRowToVector(s.Grad, row, alpha)
		b.wo.AddVectorToRow(row, s.Hidden, alpha)
	}
	if positive {
		return -tensor.Log(score)
	}
	return -tensor.Log(1 - score)
}

// ComputeOutput applies an element-wise sigmoid to wo*hidden.
func (b binaryLogistic) ComputeOutput(s *model.State) {
	tensor.MatVec(s.Output, b.wo, s.Hidden)
	for i := range s.Output[:b.wo.R] {
		s.Output[i] = tensor.Sigmoid(s.Output[i])
	}
}

// Predict ranks the sigmoid scores of every row.
func (b binaryLogistic) Predict(k int, threshold float32, s *model.State) []model.Prediction {
	b.ComputeOutput(s)
	return findKBest(k, threshold, s.Output[:b.wo.R])
}
