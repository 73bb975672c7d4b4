// Package evaluate scores a supervised model against a labelled corpus.
package evaluate

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/samcharles93/fastvec/internal/corpus"
	"github.com/samcharles93/fastvec/internal/model"
)

var ErrNoExamples = errors.New("evaluate: no labelled examples")

// Labeler maps a line to input features and gold labels.
type Labeler interface {
	LabeledIDs(tokens []string) (words, labels []int32, ntokens int)
}

// Metrics are precision and recall at k.
type Metrics struct {
	Examples  int     `json:"examples"`
	K         int     `json:"k"`
	Predicted int     `json:"predicted"`
	Gold      int     `json:"gold"`
	Correct   int     `json:"correct"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
}

func (m Metrics) String() string {
	return fmt.Sprintf("N\t%d\nP@%d\t%.3f\nR@%d\t%.3f", m.Examples, m.K, m.Precision, m.K, m.Recall)
}

// Test predicts the top k labels for every line of r that has at least one
// label and one known feature. Lines without either are skipped.
func Test(ctx context.Context, m *model.Model, d Labeler, r io.Reader, k int, threshold float32) (Metrics, error) {
	if k <= 0 {
		return Metrics{}, fmt.Errorf("evaluate: k must be positive, got %d", k)
	}
	s := m.NewState(0)
	out := Metrics{K: k}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		words, labels, _ := d.LabeledIDs(corpus.Tokenize(sc.Text()))
		if len(words) == 0 || len(labels) == 0 {
			continue
		}
		out.Examples++
		out.Gold += len(labels)
		for _, p := range m.Predict(words, k, threshold, s) {
			out.Predicted++
			if slices.Contains(labels, p.ID) {
				out.Correct++
			}
		}
	}
	if err := sc.Err(); err != nil {
		return out, fmt.Errorf("evaluate: read: %w", err)
	}
	if out.Examples == 0 {
		return out, ErrNoExamples
	}
	if out.Predicted > 0 {
		out.Precision = float64(out.Correct) / float64(out.Predicted)
	}
	out.Recall = float64(out.Correct) / float64(out.Gold)
	return out, nil
}
