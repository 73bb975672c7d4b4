package loss

import (
	"math"
	"sort"

	"github.com/samcharles93/fastvec/internal/model"
	"github.com/samcharles93/fastvec/internal/tensor"
)

// unmergedCount marks internal nodes that have not been built yet.
const unmergedCount = int64(1e15)

type node struct {
	parent int32
	left   int32
	right  int32
	count  int64
	binary bool
}

// HierarchicalSoftmaxLoss scores a target by walking its Huffman code from the
// root. Internal node j (j >= n) owns output row j-n.
type HierarchicalSoftmaxLoss struct {
	binaryLogistic

	n     int
	tree  []node
	paths [][]int32
	codes [][]bool
}

// NewHierarchicalSoftmax builds the Huffman tree for counts. counts may be in
// any order; leaf i always corresponds to output id i.
func NewHierarchicalSoftmax(wo *tensor.Mat, counts []int64) *HierarchicalSoftmaxLoss {
	l := &HierarchicalSoftmaxLoss{
		binaryLogistic: binaryLogistic{wo: wo},
		n:              len(counts),
	}
	l.buildTree(counts)
	return l
}

func (l *HierarchicalSoftmaxLoss) buildTree(counts []int64) {
	n := len(counts)
	if n == 0 {
		return
	}
	l.tree = make([]node, 2*n-1)
	for i := range l.tree {
		l.tree[i] = node{parent: -1, left: -1, right: -1, count: unmergedCount}
	}
	for i, c := range counts {
		l.tree[i].count = c
	}

	// Leaves ordered by descending count; the cursor walks from the smallest.
	order := make([]int32, n)
	for i := range order {
		order[i] = int32(i)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return counts[order[a]] > counts[order[b]]
	})

	leaf := n - 1
	next := n
	for i := n; i < 2*n-1; i++ {
		var mini [2]int32
		for j := range mini {
			if leaf >= 0 && l.tree[order[leaf]].count < l.tree[next].count {
				mini[j] = order[leaf]
				leaf--
			} else {
				mini[j] = int32(next)
				next++
			}
		}
		l.tree[i].left = mini[0]
		l.tree[i].right = mini[1]
		l.tree[i].count = l.tree[mini[0]].count + l.tree[mini[1]].count
		l.tree[mini[0]].parent = int32(i)
		l.tree[mini[1]].parent = int32(i)
		l.tree[mini[1]].binary = true
	}

	l.paths = make([][]int32, n)
	l.codes = make([][]bool, n)
	for i := range n {
		var path []int32
		var code []bool
		for j := int32(i); l.tree[j].parent != -1; j = l.tree[j].parent {
			path = append(path, l.tree[j].parent-int32(n))
			code = append(code, l.tree[j].binary)
		}
		l.paths[i] = path
		l.codes[i] = code
	}
}

// Forward sums one binary-logistic step per node on the target's path.
func (l *HierarchicalSoftmaxLoss) Forward(targets []int32, targetIndex int, s *model.State, lr float32, backprop bool) float32 {
	target := targets[targetIndex]
	path := l.paths[target]
	code := l.codes[target]
	var loss float32
	for i := range path {
		loss += l.step(path[i], s, code[i], lr, backprop)
	}
	return loss
}

// Predict walks the tree depth first, pruning branches that can no longer reach
// the top k or fall below threshold.
func (l *HierarchicalSoftmaxLoss) Predict(k int, threshold float32, s *model.State) []model.Prediction {
	if k <= 0 || l.n == 0 {
		return nil
	}
	h := make(topK, 0, k)
	l.dfs(k, tensor.StdLog(threshold), int32(2*l.n-2), 0, &h, s.Hidden)
	return h.sorted()
}

func (l *HierarchicalSoftmaxLoss) dfs(k int, minScore float32, n int32, score float32, h *topK, hidden []float32) {
	if score < minScore || h.beaten(k, score) {
		return
	}
	nd := l.tree[n]
	if nd.left == -1 && nd.right == -1 {
		h.offer(k, model.Prediction{Score: score, ID: n})
		return
	}
	x := float64(l.wo.DotRow(int(n)-l.n, hidden))
	f := float32(1 / (1 + math.Exp(-x)))
	l.dfs(k, minScore, nd.left, score+tensor.StdLog(1-f), h, hidden)
	l.dfs(k, minScore, nd.right, score+tensor.StdLog(f), h, hidden)
}
