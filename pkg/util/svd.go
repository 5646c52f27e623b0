// Package util provides numerical utilities shared by the optics layers.
package util

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// SVD holds the thin singular value decomposition of a matrix, giving easy
// access to singular modes and to a truncated pseudo-inverse. It is the
// workhorse behind interaction-matrix inversion in wavefront control.
type SVD struct {
	u *mat.Dense
	v *mat.Dense
	s []float64
}

// NewSVD computes the thin SVD of the given matrix.
func NewSVD(matrix mat.Matrix) (*SVD, error) {
	if matrix == nil {
		return nil, errors.New("you need to supply a matrix")
	}

	var svd mat.SVD
	if ok := svd.Factorize(matrix, mat.SVDThin); !ok {
		return nil, errors.New("SVD factorization failed to converge")
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	return &SVD{
		u: &u,
		v: &v,
		s: svd.Values(nil),
	}, nil
}

// SingularValues returns the singular values in descending order.
func (d *SVD) SingularValues() []float64 { return append([]float64(nil), d.s...) }

// U returns the matrix of left singular vectors, one mode per column.
func (d *SVD) U() *mat.Dense { return d.u }

// V returns the matrix of right singular vectors, one mode per column.
func (d *SVD) V() *mat.Dense { return d.v }

// LeftSingularModes returns the left singular vectors as individual slices.
func (d *SVD) LeftSingularModes() [][]float64 { return columns(d.u) }

// RightSingularModes returns the right singular vectors as individual
// slices.
func (d *SVD) RightSingularModes() [][]float64 { return columns(d.v) }

// Rank returns the number of singular values greater than rcond times the
// largest singular value.
func (d *SVD) Rank(rcond float64) int {
	if len(d.s) == 0 {
		return 0
	}
	threshold := rcond * d.s[0]
	rank := 0
	for _, v := range d.s {
		if v > threshold {
			rank++
		}
	}
	return rank
}

// PseudoInverse returns the Moore-Penrose pseudo-inverse with singular
// values at or below rcond times the largest singular value truncated to
// zero.
func (d *SVD) PseudoInverse(rcond float64) *mat.Dense {
	rank := d.Rank(rcond)
	m, _ := d.u.Dims()
	n, _ := d.v.Dims()

	inv := mat.NewDense(n, m, nil)
	if rank == 0 {
		return inv
	}

	// V * diag(1/s) * U^T, restricted to the leading rank modes.
	scaled := mat.NewDense(n, rank, nil)
	for j := 0; j < rank; j++ {
		for i := 0; i < n; i++ {
			scaled.Set(i, j, d.v.At(i, j)/d.s[j])
		}
	}
	inv.Mul(scaled, d.u.Slice(0, m, 0, rank).T())
	return inv
}

func columns(m *mat.Dense) [][]float64 {
	rows, cols := m.Dims()
	out := make([][]float64, cols)
	for j := 0; j < cols; j++ {
		col := make([]float64, rows)
		mat.Col(col, j, m)
		out[j] = col
	}
	return out
}
