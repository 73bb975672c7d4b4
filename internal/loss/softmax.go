package loss

import (
	"github.com/samcharles93/fastvec/internal/model"
	"github.com/samcharles93/fastvec/internal/tensor"
)

// SoftmaxLoss is a full softmax over every output row. Each step touches all
// rows, so it only suits small label sets.
type SoftmaxLoss struct {
	wo *tensor.Mat
}

func NewSoftmax(wo *tensor.Mat) *SoftmaxLoss {
	return &SoftmaxLoss{wo: wo}
}

func (l *SoftmaxLoss) ComputeOutput(s *model.State) {
	out := s.Output[:l.wo.R]
	tensor.MatVec(out, l.wo, s.Hidden)
	tensor.Softmax(out)
}

func (l *SoftmaxLoss) Forward(targets []int32, targetIndex int, s *model.State, lr float32, backprop bool) float32 {
	l.ComputeOutput(s)
	target := int(targets[targetIndex])
	if backprop {
		for i := range l.wo.R {
			var label float32
			if i == target {
				label = 1
			}
			alpha := lr * (label - s.Output[i])
			l.wo.AddRowToVector(s.Grad, i, alpha)
			l.wo.AddVectorToRow(i, s.Hidden, alpha)
		}
	}
	return -tensor.Log(s.Output[target])
}

func (l *SoftmaxLoss) Predict(k int, threshold float32, s *model.State) []model.Prediction {
	l.ComputeOutput(s)
	return findKBest(k, threshold, s.Output[:l.wo.R])
}
