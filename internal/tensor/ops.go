package tensor

import (
	"math"

	"github.com/viterin/vek/vek32"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// Add adds src to dst element-wise.
func Add(dst, src []float32) {
	vek32.Add_Inplace(dst, src)
}

// Dot computes the dot product of a and b.
func Dot(a, b []float32) float32 {
	return vek32.Dot(a, b)
}

// Scale multiplies every element of x by a.
func Scale(x []float32, a float32) {
	vek32.MulNumber_Inplace(x, a)
}

// Axpy computes y += a*x. x and y must have the same length.
func Axpy(a float32, x, y []float32) {
	if len(x) != len(y) {
		panic("axpy length mismatch")
	}
	blas32.Axpy(a,
		blas32.Vector{N: len(x), Inc: 1, Data: x},
		blas32.Vector{N: len(y), Inc: 1, Data: y},
	)
}

// MatVec computes dst = w * x. dst must have length w.R and x length w.C.
func MatVec(dst []float32, w *Mat, x []float32) {
	if len(dst) < w.R || len(x) < w.C {
		panic("matvec buffer too small")
	}
	if w.R == 0 || w.C == 0 {
		clear(dst[:w.R])
		return
	}
	blas32.Gemv(blas.NoTrans, 1,
		blas32.General{Rows: w.R, Cols: w.C, Stride: w.Stride, Data: w.Data},
		blas32.Vector{N: w.C, Inc: 1, Data: x[:w.C]},
		0,
		blas32.Vector{N: w.R, Inc: 1, Data: dst[:w.R]},
	)
}

// Softmax applies the softmax function to x.
func Softmax(x []float32) {
	if len(x) == 0 {
		return
	}
	maxv := x[0]
	for i := 1; i < len(x); i++ {
		if x[i] > maxv {
			maxv = x[i]
		}
	}
	var sum float64
	for i := range x {
		v := math.Exp(float64(x[i] - maxv))
		x[i] = float32(v)
		sum += v
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / sum)
	for i := range x {
		x[i] *= inv
	}
}
