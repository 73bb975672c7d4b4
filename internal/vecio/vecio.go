// Package vecio writes trained word vectors in the word2vec text format.
package vecio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/samcharles93/fastvec/internal/tensor"
)

// Vocabulary names the rows of an input matrix.
type Vocabulary interface {
	NumWords() int
	Word(id int32) string
	Subwords(id int32) []int32
}

// WordVector writes the mean of the subword rows of word id into dst.
func WordVector(dst []float32, v Vocabulary, wi *tensor.Mat, id int32) {
	clear(dst)
	sub := v.Subwords(id)
	for _, row := range sub {
		tensor.Add(dst, wi.Row(int(row)))
	}
	if len(sub) > 0 {
		tensor.Scale(dst, 1/float32(len(sub)))
	}
}

// WriteVectors writes a "<words> <dim>" header followed by one line per word.
func WriteVectors(w io.Writer, v Vocabulary, wi *tensor.Mat) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%d %d\n", v.NumWords(), wi.C); err != nil {
		return err
	}
	vec := make([]float32, wi.C)
	buf := make([]byte, 0, 16*wi.C)
	for id := range int32(v.NumWords()) {
		WordVector(vec, v, wi, id)
		buf = append(buf[:0], v.Word(id)...)
		for _, x := range vec {
			buf = append(buf, ' ')
			buf = strconv.AppendFloat(buf, float64(x), 'g', 5, 32)
		}
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("vecio: write %q: %w", v.Word(id), err)
		}
	}
	return bw.Flush()
}
