package util

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// TestReconstruction verifies that U * diag(s) * V^T reproduces the input
// matrix.
func TestReconstruction(t *testing.T) {
	a := mat.NewDense(3, 2, []float64{
		1, 2,
		3, 4,
		5, 6,
	})

	svd, err := NewSVD(a)
	if err != nil {
		t.Fatalf("Failed to compute SVD: %v", err)
	}

	s := svd.SingularValues()
	if len(s) != 2 {
		t.Fatalf("Expected 2 singular values, got %d", len(s))
	}
	if s[0] < s[1] {
		t.Errorf("Expected singular values in descending order, got %v", s)
	}

	var scaled mat.Dense
	scaled.Mul(svd.U(), mat.NewDiagDense(2, s))
	var reconstructed mat.Dense
	reconstructed.Mul(&scaled, svd.V().T())

	for i := 0; i < 3; i++ {
		for j := 0; j < 2; j++ {
			if math.Abs(reconstructed.At(i, j)-a.At(i, j)) > 1e-10 {
				t.Errorf("Element (%d, %d): expected %g, got %g", i, j, a.At(i, j), reconstructed.At(i, j))
			}
		}
	}
}

// TestSingularModes verifies the mode accessors return orthonormal columns.
func TestSingularModes(t *testing.T) {
	a := mat.NewDense(3, 3, []float64{
		2, 0, 0,
		0, 3, 0,
		0, 0, 5,
	})

	svd, err := NewSVD(a)
	if err != nil {
		t.Fatalf("Failed to compute SVD: %v", err)
	}

	left := svd.LeftSingularModes()
	if len(left) != 3 {
		t.Fatalf("Expected 3 left singular modes, got %d", len(left))
	}
	for i, mode := range left {
		norm := 0.0
		for _, v := range mode {
			norm += v * v
		}
		if math.Abs(norm-1) > 1e-10 {
			t.Errorf("Expected unit-norm mode %d, got norm %g", i, math.Sqrt(norm))
		}
	}
}

// TestPseudoInverse verifies that the pseudo-inverse of an invertible
// matrix equals its inverse, and that truncation suppresses weak modes.
func TestPseudoInverse(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{
		4, 0,
		0, 2,
	})

	svd, err := NewSVD(a)
	if err != nil {
		t.Fatalf("Failed to compute SVD: %v", err)
	}

	inv := svd.PseudoInverse(1e-12)
	var identity mat.Dense
	identity.Mul(inv, a)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(identity.At(i, j)-want) > 1e-10 {
				t.Errorf("Element (%d, %d): expected %g, got %g", i, j, want, identity.At(i, j))
			}
		}
	}

	// Truncating above the s=2 mode keeps only the s=4 mode.
	if rank := svd.Rank(0.6); rank != 1 {
		t.Errorf("Expected rank 1 at rcond=0.6, got %d", rank)
	}
	truncated := svd.PseudoInverse(0.6)
	if math.Abs(truncated.At(1, 1)) > 1e-12 {
		t.Errorf("Expected the weak mode to be truncated, got %g", truncated.At(1, 1))
	}

	if _, err := NewSVD(nil); err == nil {
		t.Errorf("Expected an error for a nil matrix")
	}
}
