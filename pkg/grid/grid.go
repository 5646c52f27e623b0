// Package grid provides the spatial sampling grids that fields and Fourier
// operators are defined on. A grid is an ordered set of sample coordinates
// together with shape and spacing metadata; regular Cartesian grids
// additionally carry the per-axis spacing and origin needed by FFT-based
// operators.
package grid

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Grid represents an ordered set of spatial sample points.
//
// Sample ordering is row-major with axis 0 (x) varying fastest: for a 2D
// grid the flat index of sample (i, j) is j*nx + i. Dims lists the per-axis
// sample counts in axis order (x first); Shape lists them reversed, matching
// the row-major array shape.
//
// A regular grid stores only delta/dims/zero and derives coordinates on
// demand. An irregular grid (for example the result of Rotated) stores the
// full coordinate list per axis and cannot be used by operators that require
// axis-aligned transforms.
type Grid struct {
	delta []float64
	dims  []int
	zero  []float64

	// coords holds explicit per-axis coordinates for irregular grids,
	// one slice per axis, each of length Size().
	coords [][]float64

	regular   bool
	cartesian bool
}

// NewRegularCartesian creates a regularly spaced Cartesian grid from per-axis
// spacing, sample counts and the coordinate of the first sample.
func NewRegularCartesian(delta []float64, dims []int, zero []float64) (*Grid, error) {
	if len(delta) != len(dims) || len(zero) != len(dims) {
		return nil, errors.Errorf("mismatched axis counts: delta=%d dims=%d zero=%d",
			len(delta), len(dims), len(zero))
	}
	if len(dims) == 0 {
		return nil, errors.New("grid needs at least one axis")
	}
	for axis, n := range dims {
		if n < 1 {
			return nil, errors.Errorf("axis %d has non-positive sample count %d", axis, n)
		}
	}

	g := &Grid{
		delta:     append([]float64(nil), delta...),
		dims:      append([]int(nil), dims...),
		zero:      append([]float64(nil), zero...),
		regular:   true,
		cartesian: true,
	}
	return g, nil
}

// MakeUniformGrid creates a regular Cartesian grid with the given per-axis
// sample counts covering the given per-axis physical extents, centered on
// center. Samples sit at pixel centers, so the outermost samples are half a
// pixel inside the extent.
func MakeUniformGrid(dims []int, extent []float64, center []float64) (*Grid, error) {
	if len(extent) != len(dims) {
		return nil, errors.Errorf("mismatched axis counts: dims=%d extent=%d", len(dims), len(extent))
	}
	if center == nil {
		center = make([]float64, len(dims))
	}
	if len(center) != len(dims) {
		return nil, errors.Errorf("mismatched axis counts: dims=%d center=%d", len(dims), len(center))
	}

	delta := make([]float64, len(dims))
	zero := make([]float64, len(dims))
	for axis := range dims {
		delta[axis] = extent[axis] / float64(dims[axis])
		zero[axis] = center[axis] - extent[axis]/2 + delta[axis]/2
	}
	return NewRegularCartesian(delta, dims, zero)
}

// NewIrregularCartesian creates a grid from explicit per-axis coordinate
// lists. All lists must have the same length; dims records the logical
// per-axis sample counts (their product must equal the list length).
func NewIrregularCartesian(coords [][]float64, dims []int) (*Grid, error) {
	if len(coords) == 0 {
		return nil, errors.New("grid needs at least one axis")
	}
	if len(dims) != len(coords) {
		return nil, errors.Errorf("mismatched axis counts: coords=%d dims=%d", len(coords), len(dims))
	}
	size := 1
	for _, n := range dims {
		size *= n
	}
	for axis, c := range coords {
		if len(c) != size {
			return nil, errors.Errorf("axis %d has %d coordinates, expected %d", axis, len(c), size)
		}
	}

	stored := make([][]float64, len(coords))
	for axis, c := range coords {
		stored[axis] = append([]float64(nil), c...)
	}
	return &Grid{
		coords:    stored,
		dims:      append([]int(nil), dims...),
		regular:   false,
		cartesian: true,
	}, nil
}

// Ndim returns the number of spatial dimensions.
func (g *Grid) Ndim() int { return len(g.dims) }

// Dims returns the per-axis sample counts, axis 0 (x) first.
func (g *Grid) Dims() []int { return append([]int(nil), g.dims...) }

// Shape returns the sample counts in row-major array order (reversed Dims).
func (g *Grid) Shape() []int {
	shape := make([]int, len(g.dims))
	for i, n := range g.dims {
		shape[len(g.dims)-1-i] = n
	}
	return shape
}

// Size returns the total number of samples.
func (g *Grid) Size() int {
	size := 1
	for _, n := range g.dims {
		size *= n
	}
	return size
}

// Delta returns the per-axis sample spacing. Only valid for regular grids.
func (g *Grid) Delta() []float64 { return append([]float64(nil), g.delta...) }

// Zero returns the per-axis coordinate of the first sample. Only valid for
// regular grids.
func (g *Grid) Zero() []float64 { return append([]float64(nil), g.zero...) }

// IsRegular reports whether the grid is regularly spaced along every axis.
func (g *Grid) IsRegular() bool { return g.regular }

// IsCartesian reports whether the grid coordinates are Cartesian.
func (g *Grid) IsCartesian() bool { return g.cartesian }

// SeparatedCoords returns the distinct coordinates along one axis of a
// regular grid, in sample order.
func (g *Grid) SeparatedCoords(axis int) []float64 {
	c := make([]float64, g.dims[axis])
	for i := range c {
		c[i] = g.zero[axis] + float64(i)*g.delta[axis]
	}
	return c
}

// Coords returns the coordinate along one axis for every sample, in flat
// sample order (axis 0 fastest).
func (g *Grid) Coords(axis int) []float64 {
	if !g.regular {
		return append([]float64(nil), g.coords[axis]...)
	}

	size := g.Size()
	out := make([]float64, size)

	// stride is the number of consecutive flat indices sharing the same
	// coordinate along this axis.
	stride := 1
	for a := 0; a < axis; a++ {
		stride *= g.dims[a]
	}
	n := g.dims[axis]
	for s := 0; s < size; s++ {
		i := (s / stride) % n
		out[s] = g.zero[axis] + float64(i)*g.delta[axis]
	}
	return out
}

// X returns the coordinate along axis 0 for every sample.
func (g *Grid) X() []float64 { return g.Coords(0) }

// Y returns the coordinate along axis 1 for every sample.
func (g *Grid) Y() []float64 { return g.Coords(1) }

// PolarRadius returns the distance of every sample from the coordinate
// origin, in flat sample order. This is the radial coordinate of the polar
// representation of the grid.
func (g *Grid) PolarRadius() []float64 {
	r := make([]float64, g.Size())
	for axis := 0; axis < g.Ndim(); axis++ {
		c := g.Coords(axis)
		floats.Mul(c, c)
		floats.Add(r, c)
	}
	for s := range r {
		r[s] = math.Sqrt(r[s])
	}
	return r
}

// Scaled returns a new grid with all coordinates multiplied by factor.
func (g *Grid) Scaled(factor float64) *Grid {
	if g.regular {
		delta := g.Delta()
		zero := g.Zero()
		floats.Scale(factor, delta)
		floats.Scale(factor, zero)
		out, _ := NewRegularCartesian(delta, g.dims, zero)
		return out
	}

	coords := make([][]float64, len(g.coords))
	for axis, c := range g.coords {
		coords[axis] = append([]float64(nil), c...)
		floats.Scale(factor, coords[axis])
	}
	out, _ := NewIrregularCartesian(coords, g.dims)
	return out
}

// Shifted returns a new grid with the given per-axis offset added to all
// coordinates.
func (g *Grid) Shifted(offset []float64) (*Grid, error) {
	if len(offset) != g.Ndim() {
		return nil, errors.Errorf("offset has %d axes, grid has %d", len(offset), g.Ndim())
	}

	if g.regular {
		zero := g.Zero()
		floats.Add(zero, offset)
		return NewRegularCartesian(g.delta, g.dims, zero)
	}

	coords := make([][]float64, len(g.coords))
	for axis, c := range g.coords {
		coords[axis] = append([]float64(nil), c...)
		floats.AddConst(offset[axis], coords[axis])
	}
	return NewIrregularCartesian(coords, g.dims)
}

// Rotated returns a new grid with all sample points rotated counterclockwise
// by angle (radians) around the coordinate origin. The result is an
// irregular grid: the rotated points no longer lie on an axis-aligned
// lattice. Only defined for 2D grids.
func (g *Grid) Rotated(angle float64) (*Grid, error) {
	if g.Ndim() != 2 {
		return nil, errors.Errorf("rotation requires a 2D grid, got %dD", g.Ndim())
	}

	x := g.Coords(0)
	y := g.Coords(1)
	c, s := math.Cos(angle), math.Sin(angle)

	rx := make([]float64, len(x))
	ry := make([]float64, len(y))
	for i := range x {
		rx[i] = c*x[i] - s*y[i]
		ry[i] = s*x[i] + c*y[i]
	}
	return NewIrregularCartesian([][]float64{rx, ry}, g.dims)
}

// Key returns a deterministic fingerprint of the grid geometry, suitable for
// use as a cache key. Two regular grids with identical dims, delta and zero
// produce identical keys.
func (g *Grid) Key() string {
	var b strings.Builder
	if g.regular {
		b.WriteString("reg")
	} else {
		b.WriteString("irr")
	}
	for axis := range g.dims {
		fmt.Fprintf(&b, "|%d", g.dims[axis])
		if g.regular {
			fmt.Fprintf(&b, ":%.17g:%.17g", g.delta[axis], g.zero[axis])
		}
	}
	if !g.regular {
		// Fingerprint irregular grids by their corner samples.
		for axis, c := range g.coords {
			fmt.Fprintf(&b, "|c%d:%.17g:%.17g", axis, c[0], c[len(c)-1])
		}
	}
	return b.String()
}
