package loss

import (
	"errors"
	"math"
	"math/rand"

	"github.com/samcharles93/fastvec/internal/model"
	"github.com/samcharles93/fastvec/internal/tensor"
)

// negPower smooths the unigram distribution negatives are drawn from.
const negPower = 0.75

var ErrEmptyNegTable = errors.New("loss: negative sampling table is empty")

// NegativeSamplingLoss contrasts the true target with Neg ids drawn from a
// frequency^0.75 table. Each worker reads the table at its own State.NegPos.
type NegativeSamplingLoss struct {
	binaryLogistic

	neg       int
	negatives []int32
}

// NewNegativeSampling builds and shuffles the negative table.
func NewNegativeSampling(wo *tensor.Mat, counts []int64, opts Options) (*NegativeSamplingLoss, error) {
	size := opts.TableSize
	if size <= 0 {
		size = DefaultNegTableSize
	}

	var z float64
	for _, c := range counts {
		z += math.Pow(float64(c), negPower)
	}
	if z == 0 {
		return nil, ErrEmptyNegTable
	}

	negatives := make([]int32, 0, size)
	for i, c := range counts {
		w := math.Pow(float64(c), negPower)
		// Every id with a positive count gets at least one slot.
		fill := int(math.Ceil(w * float64(size) / z))
		for range fill {
			negatives = append(negatives, int32(i))
		}
	}
	if len(negatives) == 0 {
		return nil, ErrEmptyNegTable
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	rng.Shuffle(len(negatives), func(i, j int) {
		negatives[i], negatives[j] = negatives[j], negatives[i]
	})

	return &NegativeSamplingLoss{
		binaryLogistic: binaryLogistic{wo: wo},
		neg:            opts.Neg,
		negatives:      negatives,
	}, nil
}

// Forward runs one positive step for the target and neg negative steps.
func (l *NegativeSamplingLoss) Forward(targets []int32, targetIndex int, s *model.State, lr float32, backprop bool) float32 {
	target := targets[targetIndex]
	loss := l.step(target, s, true, lr, backprop)
	for range l.neg {
		negative, ok := l.negative(target, s)
		if !ok {
			continue
		}
		loss += l.step(negative, s, false, lr, backprop)
	}
	return loss
}

// negative advances the worker's cursor until it finds an id other than target.
// It gives up after one pass over the table.
func (l *NegativeSamplingLoss) negative(target int32, s *model.State) (int32, bool) {
	n := len(l.negatives)
	for range n {
		pos := s.NegPos % n
		if pos < 0 {
			pos += n
		}
		s.NegPos = pos + 1
		if id := l.negatives[pos]; id != target {
			return id, true
		}
	}
	return 0, false
}
