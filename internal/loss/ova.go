package loss

import (
	"slices"

	"github.com/samcharles93/fastvec/internal/model"
	"github.com/samcharles93/fastvec/internal/tensor"
)

// OneVsAllLoss treats each output row as an independent binary decision, so an
// example may carry several correct labels. targetIndex is ignored.
type OneVsAllLoss struct {
	binaryLogistic
}

func NewOneVsAll(wo *tensor.Mat) *OneVsAllLoss {
	return &OneVsAllLoss{binaryLogistic{wo: wo}}
}

func (l *OneVsAllLoss) Forward(targets []int32, _ int, s *model.State, lr float32, backprop bool) float32 {
	var loss float32
	for i := range l.wo.R {
		id := int32(i)
		loss += l.step(id, s, slices.Contains(targets, id), lr, backprop)
	}
	return loss
}
