package tensor

import (
	"math/rand"
)

// Mat represents a dense row-major matrix of float32 values.
//
// R and C represent the number of rows and columns respectively.  Stride is the
// number of elements between the starts of two consecutive rows (for row-major
// matrices this is equal to C).  Data holds the flattened matrix values.
//
// Mat carries no lock. Training workers read and write rows concurrently and
// tolerate the resulting races; out-of-range indices will panic.
type Mat struct {
	R, C   int
	Stride int
	Data   []float32
}

// NewMat allocates a new matrix with the given number of rows and columns.
// The underlying slice is zero initialised.  The stride is set to the
// number of columns.
func NewMat(r, c int) *Mat {
	if r < 0 || c < 0 {
		panic(errNegativeDim)
	}
	if r != 0 && (r*c)/r != c {
		panic(errMatTooLarge)
	}
	return &Mat{
		R:      r,
		C:      c,
		Stride: c,
		Data:   make([]float32, r*c),
	}
}

// NewMatFromData creates a matrix from existing data.
// It checks that the data length matches r*c.
func NewMatFromData(r, c int, data []float32) (*Mat, error) {
	if r < 0 || c < 0 {
		return nil, errNegativeDim
	}
	if r*c != len(data) {
		return nil, errDataSizeMismatch
	}
	return &Mat{
		R:      r,
		C:      c,
		Stride: c,
		Data:   data,
	}, nil
}

// Row returns a view of the i-th row of the matrix as a slice.  The slice
// has length equal to the number of columns.  Modifications to the returned
// slice update the underlying matrix values.
func (m *Mat) Row(i int) []float32 {
	if i < 0 || i >= m.R {
		panic("row index out of range")
	}
	start := i * m.Stride
	return m.Data[start : start+m.C]
}

// Uniform fills the matrix with values drawn uniformly from [-bound, bound].
// The same seed always produces the same matrix.
func Uniform(m *Mat, bound float32, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	for i := range m.Data {
		m.Data[i] = (rng.Float32()*2 - 1) * bound
	}
}

// Fill sets every element to v.
func Fill(m *Mat, v float32) {
	if v == 0 {
		clear(m.Data)
		return
	}
	for i := range m.Data {
		m.Data[i] = v
	}
}

// DotRow returns the dot product of row i with x.
func (m *Mat) DotRow(i int, x []float32) float32 {
	return Dot(m.Row(i), x)
}

// AddVectorToRow performs row(i) += a*x in place.
func (m *Mat) AddVectorToRow(i int, x []float32, a float32) {
	Axpy(a, x, m.Row(i))
}

// AddRowToVector performs dst += a*row(i).
func (m *Mat) AddRowToVector(dst []float32, i int, a float32) {
	Axpy(a, m.Row(i), dst)
}

var (
	errNegativeDim      = fmtError("negative dimension for matrix")
	errMatTooLarge      = fmtError("matrix too large")
	errDataSizeMismatch = fmtError("data length mismatch")
)

type fmtError string

func (e fmtError) Error() string { return string(e) }
