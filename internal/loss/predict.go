package loss

import (
	"container/heap"
	"sort"

	"github.com/samcharles93/fastvec/internal/model"
	"github.com/samcharles93/fastvec/internal/tensor"
)

// topK is a min-heap on Score, so the root is the current k-th best.
type topK []model.Prediction

func (h topK) Len() int           { return len(h) }
func (h topK) Less(i, j int) bool { return h[i].Score < h[j].Score }
func (h topK) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *topK) Push(x any)        { *h = append(*h, x.(model.Prediction)) }
func (h *topK) Pop() any {
	old := *h
	n := len(old)
	p := old[n-1]
	*h = old[:n-1]
	return p
}

// beaten reports whether the heap holds k items and score cannot enter it.
func (h topK) beaten(k int, score float32) bool {
	return len(h) == k && score < h[0].Score
}

func (h *topK) offer(k int, p model.Prediction) {
	if len(*h) < k {
		heap.Push(h, p)
		return
	}
	if p.Score <= (*h)[0].Score {
		return
	}
	(*h)[0] = p
	heap.Fix(h, 0)
}

func (h topK) sorted() []model.Prediction {
	out := []model.Prediction(h)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// findKBest keeps the k highest log-scores among outputs at or above threshold.
func findKBest(k int, threshold float32, output []float32) []model.Prediction {
	if k <= 0 {
		return nil
	}
	h := make(topK, 0, k)
	for i, p := range output {
		if p < threshold {
			continue
		}
		score := tensor.StdLog(p)
		if h.beaten(k, score) {
			continue
		}
		h.offer(k, model.Prediction{Score: score, ID: int32(i)})
	}
	return h.sorted()
}
