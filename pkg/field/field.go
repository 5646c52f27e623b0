// Package field provides the tensor-valued sample arrays that the Fourier
// operators act on. A Field binds a flat data array to a Grid; it can hold a
// scalar value per sample (tensor order 0), a vector (order 1) or a matrix
// (order 2).
package field

import (
	"github.com/pkg/errors"

	"fourieroptics/pkg/grid"
)

// Field is a tensor-valued sample array over a grid.
//
// Data is stored flat with the tensor element index major and the spatial
// sample index minor: element t of sample s lives at Data[t*Grid.Size()+s].
// TensorShape is nil for scalar fields, [n] for vector fields and [n, m] for
// matrix fields.
//
// Fields are value-like: operators never modify their input fields and
// return freshly allocated results.
type Field struct {
	Data        []complex128
	Grid        *grid.Grid
	TensorShape []int
}

// New creates a scalar field from a flat data array. The array length must
// equal the grid size.
func New(data []complex128, g *grid.Grid) (*Field, error) {
	if len(data) != g.Size() {
		return nil, errors.Errorf("data length %d does not match grid size %d", len(data), g.Size())
	}
	return &Field{Data: data, Grid: g}, nil
}

// NewTensor creates a tensor-valued field from a flat data array laid out
// tensor-element-major.
func NewTensor(data []complex128, g *grid.Grid, tensorShape []int) (*Field, error) {
	want := tensorSize(tensorShape) * g.Size()
	if len(data) != want {
		return nil, errors.Errorf("data length %d does not match tensor shape %v on grid size %d",
			len(data), tensorShape, g.Size())
	}
	return &Field{
		Data:        data,
		Grid:        g,
		TensorShape: append([]int(nil), tensorShape...),
	}, nil
}

// NewZero creates a zero-filled field with the given tensor shape. A nil
// tensor shape gives a scalar field.
func NewZero(g *grid.Grid, tensorShape []int) *Field {
	f := &Field{
		Data: make([]complex128, tensorSize(tensorShape)*g.Size()),
		Grid: g,
	}
	if len(tensorShape) > 0 {
		f.TensorShape = append([]int(nil), tensorShape...)
	}
	return f
}

// TensorOrder returns the tensor rank of the field values: 0 for scalar,
// 1 for vector, 2 for matrix fields.
func (f *Field) TensorOrder() int { return len(f.TensorShape) }

// TensorSize returns the number of tensor elements per sample.
func (f *Field) TensorSize() int { return tensorSize(f.TensorShape) }

// At returns tensor element t of sample s.
func (f *Field) At(t, s int) complex128 { return f.Data[t*f.Grid.Size()+s] }

// SetAt assigns tensor element t of sample s.
func (f *Field) SetAt(t, s int, v complex128) { f.Data[t*f.Grid.Size()+s] = v }

// Copy returns a deep copy of the field, sharing the grid.
func (f *Field) Copy() *Field {
	out := &Field{
		Data: append([]complex128(nil), f.Data...),
		Grid: f.Grid,
	}
	if f.TensorShape != nil {
		out.TensorShape = append([]int(nil), f.TensorShape...)
	}
	return out
}

// SameTensorShape reports whether two tensor shapes describe the same
// per-sample value layout.
func SameTensorShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func tensorSize(shape []int) int {
	size := 1
	for _, n := range shape {
		size *= n
	}
	return size
}
