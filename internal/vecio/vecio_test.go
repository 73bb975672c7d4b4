package vecio

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/samcharles93/fastvec/internal/tensor"
)

type fakeVocab struct {
	words []string
	subs  [][]int32
}

func (f fakeVocab) NumWords() int             { return len(f.words) }
func (f fakeVocab) Word(id int32) string      { return f.words[id] }
func (f fakeVocab) Subwords(id int32) []int32 { return f.subs[id] }

func testMatrix(t *testing.T) *tensor.Mat {
	t.Helper()
	m, err := tensor.NewMatFromData(3, 2, []float32{
		1, 2,
		3, 4,
		5, 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestWriteVectors(t *testing.T) {
	t.Parallel()
	v := fakeVocab{
		words: []string{"cat", "dog"},
		subs:  [][]int32{{0}, {1, 2}},
	}
	var buf bytes.Buffer
	if err := WriteVectors(&buf, v, testMatrix(t)); err != nil {
		t.Fatal(err)
	}
	want := "2 2\ncat 1 2\ndog 4 7\n"
	if buf.String() != want {
		t.Fatalf("expected %q, got %q", want, buf.String())
	}
}

func TestWordVectorWithoutSubwords(t *testing.T) {
	t.Parallel()
	v := fakeVocab{words: []string{"x"}, subs: [][]int32{nil}}
	dst := []float32{9, 9}
	WordVector(dst, v, testMatrix(t), 0)
	if dst[0] != 0 || dst[1] != 0 {
		t.Fatalf("expected zero vector, got %v", dst)
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("full") }

func TestWriteVectorsPropagatesErrors(t *testing.T) {
	t.Parallel()
	words := make([]string, 5000)
	subs := make([][]int32, len(words))
	for i := range words {
		words[i] = strings.Repeat("w", 8)
		subs[i] = []int32{0}
	}
	if err := WriteVectors(failWriter{}, fakeVocab{words, subs}, testMatrix(t)); err == nil {
		t.Fatal("expected write error")
	}
}
