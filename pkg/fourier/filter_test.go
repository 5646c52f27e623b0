package fourier

import (
	"math/cmplx"
	"math/rand"
	"testing"

	"fourieroptics/pkg/field"
	"fourieroptics/pkg/grid"
)

// onesTransfer builds a unit scalar transfer function, making the filter an
// identity operator.
func onesTransfer(internalGrid *grid.Grid) (TransferFunction, error) {
	data := make([]complex128, internalGrid.Size())
	for i := range data {
		data[i] = 1
	}
	f, err := field.New(data, internalGrid)
	if err != nil {
		return TransferFunction{}, err
	}
	return NewScalarTransfer(f)
}

// randomScalarTransfer builds a reproducible random scalar transfer
// function.
func randomScalarTransfer(seed int64) TransferFunctionBuilder {
	return func(internalGrid *grid.Grid) (TransferFunction, error) {
		rng := rand.New(rand.NewSource(seed))
		data := make([]complex128, internalGrid.Size())
		for i := range data {
			data[i] = complex(rng.NormFloat64(), rng.NormFloat64())
		}
		f, err := field.New(data, internalGrid)
		if err != nil {
			return TransferFunction{}, err
		}
		return NewScalarTransfer(f)
	}
}

// TestFilterIdentity verifies that a unit transfer function passes fields
// through unchanged, with and without zero padding.
func TestFilterIdentity(t *testing.T) {
	g := uniformGrid(t, []int{16, 16}, []float64{4, 4})
	in := randomField(t, g, nil, 2)

	for _, q := range []float64{1, 2} {
		filter, err := NewFourierFilter(g, onesTransfer, q)
		if err != nil {
			t.Fatalf("q=%g: failed to build filter: %v", q, err)
		}

		out, err := filter.Forward(in)
		if err != nil {
			t.Fatalf("q=%g: forward failed: %v", q, err)
		}
		if diff := maxAbsDiff(in.Data, out.Data); diff > 1e-10*maxAbs(in.Data) {
			t.Errorf("q=%g: identity filter changed the field by %g", q, diff)
		}
	}
}

// TestFilterDoesNotMutateInput verifies the pure-input contract.
func TestFilterDoesNotMutateInput(t *testing.T) {
	g := uniformGrid(t, []int{8, 8}, []float64{2, 2})
	in := randomField(t, g, nil, 3)
	original := append([]complex128(nil), in.Data...)

	filter, err := NewFourierFilter(g, randomScalarTransfer(11), 2)
	if err != nil {
		t.Fatalf("Failed to build filter: %v", err)
	}
	if _, err := filter.Forward(in); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	if diff := maxAbsDiff(in.Data, original); diff != 0 {
		t.Errorf("Forward mutated its input by %g", diff)
	}
}

// TestFilterAdjoint verifies <T u, v> == <u, T* v> for a scalar transfer
// function, with and without padding.
func TestFilterAdjoint(t *testing.T) {
	g := uniformGrid(t, []int{8, 12}, []float64{2, 3})
	u := randomField(t, g, nil, 4)
	v := randomField(t, g, nil, 5)

	for _, q := range []float64{1, 2} {
		filter, err := NewFourierFilter(g, randomScalarTransfer(13), q)
		if err != nil {
			t.Fatalf("q=%g: failed to build filter: %v", q, err)
		}

		tu, err := filter.Forward(u)
		if err != nil {
			t.Fatalf("q=%g: forward failed: %v", q, err)
		}
		tv, err := filter.Backward(v)
		if err != nil {
			t.Fatalf("q=%g: backward failed: %v", q, err)
		}

		lhs := innerProduct(tu.Data, v.Data)
		rhs := innerProduct(u.Data, tv.Data)
		scale := cmplx.Abs(lhs) + cmplx.Abs(rhs)
		if cmplx.Abs(lhs-rhs) > 1e-10*scale {
			t.Errorf("q=%g: adjoint identity violated: <Tu,v>=%v, <u,T*v>=%v", q, lhs, rhs)
		}
	}
}

// TestMatrixFilterAdjoint verifies the adjoint identity for a non-square
// matrix transfer function mapping vector fields of dimension 2 to
// dimension 1.
func TestMatrixFilterAdjoint(t *testing.T) {
	g := uniformGrid(t, []int{8, 8}, []float64{2, 2})
	u := randomField(t, g, []int{2}, 6)
	v := randomField(t, g, []int{1}, 7)

	builder := func(internalGrid *grid.Grid) (TransferFunction, error) {
		rng := rand.New(rand.NewSource(17))
		data := make([]complex128, 1*2*internalGrid.Size())
		for i := range data {
			data[i] = complex(rng.NormFloat64(), rng.NormFloat64())
		}
		f, err := field.NewTensor(data, internalGrid, []int{1, 2})
		if err != nil {
			return TransferFunction{}, err
		}
		return NewMatrixTransfer(f)
	}

	filter, err := NewFourierFilter(g, builder, 1)
	if err != nil {
		t.Fatalf("Failed to build filter: %v", err)
	}

	tu, err := filter.Forward(u)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if !field.SameTensorShape(tu.TensorShape, []int{1}) {
		t.Fatalf("Expected forward output tensor shape [1], got %v", tu.TensorShape)
	}

	tv, err := filter.Backward(v)
	if err != nil {
		t.Fatalf("Backward failed: %v", err)
	}
	if !field.SameTensorShape(tv.TensorShape, []int{2}) {
		t.Fatalf("Expected backward output tensor shape [2], got %v", tv.TensorShape)
	}

	lhs := innerProduct(tu.Data, v.Data)
	rhs := innerProduct(u.Data, tv.Data)
	scale := cmplx.Abs(lhs) + cmplx.Abs(rhs)
	if cmplx.Abs(lhs-rhs) > 1e-10*scale {
		t.Errorf("Adjoint identity violated: <Tu,v>=%v, <u,T*v>=%v", lhs, rhs)
	}
}

// TestScalarVersusDiagonalMatrix verifies that a scalar transfer function
// and the equivalent diagonal matrix transfer function agree on a vector
// field.
func TestScalarVersusDiagonalMatrix(t *testing.T) {
	g := uniformGrid(t, []int{8, 8}, []float64{2, 2})
	in := randomField(t, g, []int{2}, 8)

	scalarFilter, err := NewFourierFilter(g, randomScalarTransfer(23), 1)
	if err != nil {
		t.Fatalf("Failed to build scalar filter: %v", err)
	}

	diagonal := func(internalGrid *grid.Grid) (TransferFunction, error) {
		tf, err := randomScalarTransfer(23)(internalGrid)
		if err != nil {
			return TransferFunction{}, err
		}

		size := internalGrid.Size()
		data := make([]complex128, 2*2*size)
		copy(data[0*size:1*size], tf.Field.Data) // element (0, 0)
		copy(data[3*size:4*size], tf.Field.Data) // element (1, 1)
		f, err := field.NewTensor(data, internalGrid, []int{2, 2})
		if err != nil {
			return TransferFunction{}, err
		}
		return NewMatrixTransfer(f)
	}
	matrixFilter, err := NewFourierFilter(g, diagonal, 1)
	if err != nil {
		t.Fatalf("Failed to build matrix filter: %v", err)
	}

	fromScalar, err := scalarFilter.Forward(in)
	if err != nil {
		t.Fatalf("Scalar forward failed: %v", err)
	}
	fromMatrix, err := matrixFilter.Forward(in)
	if err != nil {
		t.Fatalf("Matrix forward failed: %v", err)
	}

	if diff := maxAbsDiff(fromScalar.Data, fromMatrix.Data); diff > 1e-10*maxAbs(fromScalar.Data) {
		t.Errorf("Scalar and diagonal-matrix filters disagree by %g", diff)
	}
}

// TestMatrixShapeMismatch verifies that a matrix transfer function rejects
// fields whose tensor dimension does not match its trailing dimension.
func TestMatrixShapeMismatch(t *testing.T) {
	g := uniformGrid(t, []int{4, 4}, []float64{1, 1})

	builder := func(internalGrid *grid.Grid) (TransferFunction, error) {
		f := field.NewZero(internalGrid, []int{2, 2})
		return NewMatrixTransfer(f)
	}
	filter, err := NewFourierFilter(g, builder, 1)
	if err != nil {
		t.Fatalf("Failed to build filter: %v", err)
	}

	scalar := randomField(t, g, nil, 9)
	if _, err := filter.Forward(scalar); err == nil {
		t.Errorf("Expected an error applying a matrix transfer function to a scalar field")
	}

	wrongDim := randomField(t, g, []int{3}, 10)
	if _, err := filter.Forward(wrongDim); err == nil {
		t.Errorf("Expected an error for a mismatched vector dimension")
	}
}

// TestTransferFunctionKindValidation verifies the tagged-variant
// constructors.
func TestTransferFunctionKindValidation(t *testing.T) {
	g := uniformGrid(t, []int{4, 4}, []float64{1, 1})

	if _, err := NewScalarTransfer(field.NewZero(g, []int{2})); err == nil {
		t.Errorf("Expected an error wrapping a vector field as a scalar transfer function")
	}
	if _, err := NewMatrixTransfer(field.NewZero(g, []int{2})); err == nil {
		t.Errorf("Expected an error wrapping a vector field as a matrix transfer function")
	}
	if _, err := NewMatrixTransfer(field.NewZero(g, []int{2, 2})); err != nil {
		t.Errorf("Unexpected error wrapping a matrix field: %v", err)
	}
}

// TestSetTransferFunction verifies that reassigning the transfer function
// discards the cached one.
func TestSetTransferFunction(t *testing.T) {
	g := uniformGrid(t, []int{8, 8}, []float64{2, 2})
	in := randomField(t, g, nil, 11)

	filter, err := NewFourierFilter(g, onesTransfer, 1)
	if err != nil {
		t.Fatalf("Failed to build filter: %v", err)
	}

	first, err := filter.Forward(in)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if diff := maxAbsDiff(first.Data, in.Data); diff > 1e-10*maxAbs(in.Data) {
		t.Fatalf("Identity filter changed the field by %g", diff)
	}

	// Switch to a transfer function that doubles the field.
	doubling := func(internalGrid *grid.Grid) (TransferFunction, error) {
		tf, err := onesTransfer(internalGrid)
		if err != nil {
			return TransferFunction{}, err
		}
		for i := range tf.Field.Data {
			tf.Field.Data[i] *= 2
		}
		return tf, nil
	}
	if err := filter.SetTransferFunction(doubling); err != nil {
		t.Fatalf("SetTransferFunction failed: %v", err)
	}

	second, err := filter.Forward(in)
	if err != nil {
		t.Fatalf("Forward after reassignment failed: %v", err)
	}
	for i := range second.Data {
		if cmplx.Abs(second.Data[i]-2*in.Data[i]) > 1e-10*maxAbs(in.Data) {
			t.Errorf("Sample %d: expected %v, got %v", i, 2*in.Data[i], second.Data[i])
			break
		}
	}
}

// TestFixedTransferFunction verifies that a precomputed transfer function
// can be supplied directly.
func TestFixedTransferFunction(t *testing.T) {
	g := uniformGrid(t, []int{8, 8}, []float64{2, 2})

	// Build the internal grid the same way the filter does, to define the
	// fixed transfer function on it.
	fft, err := NewFastFourierTransform(g, 1)
	if err != nil {
		t.Fatalf("Failed to build transform: %v", err)
	}
	tf, err := onesTransfer(fft.OutputGrid())
	if err != nil {
		t.Fatalf("Failed to build transfer function: %v", err)
	}

	filter, err := NewFourierFilter(g, FixedTransferFunction(tf), 1)
	if err != nil {
		t.Fatalf("Failed to build filter: %v", err)
	}

	in := randomField(t, g, nil, 12)
	out, err := filter.Forward(in)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if diff := maxAbsDiff(in.Data, out.Data); diff > 1e-10*maxAbs(in.Data) {
		t.Errorf("Identity filter changed the field by %g", diff)
	}
}
