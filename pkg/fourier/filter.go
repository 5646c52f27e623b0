package fourier

import (
	"math/cmplx"

	"github.com/pkg/errors"

	"fourieroptics/pkg/field"
	"fourieroptics/pkg/grid"
)

// TransferFunctionKind distinguishes the two supported transfer function
// forms.
type TransferFunctionKind int

const (
	// ScalarTransfer multiplies every frequency sample by a complex scalar.
	ScalarTransfer TransferFunctionKind = iota

	// MatrixTransfer applies an independent matrix-vector product at every
	// frequency sample; it acts on vector-valued fields.
	MatrixTransfer
)

// TransferFunction is the frequency-domain multiplier of a FourierFilter:
// either a scalar field (tensor order 0) or a per-frequency matrix field
// (tensor order 2).
type TransferFunction struct {
	Kind  TransferFunctionKind
	Field *field.Field
}

// NewScalarTransfer wraps a scalar field as a transfer function.
func NewScalarTransfer(f *field.Field) (TransferFunction, error) {
	if f.TensorOrder() != 0 {
		return TransferFunction{}, errors.Errorf(
			"a scalar transfer function requires tensor order 0, got %d", f.TensorOrder())
	}
	return TransferFunction{Kind: ScalarTransfer, Field: f}, nil
}

// NewMatrixTransfer wraps a matrix-valued field as a transfer function. The
// field must have tensor order 2; its trailing dimension must match the
// tensor dimension of the fields it will act on, which is checked at apply
// time.
func NewMatrixTransfer(f *field.Field) (TransferFunction, error) {
	if f.TensorOrder() != 2 {
		return TransferFunction{}, errors.Errorf(
			"a matrix transfer function requires tensor order 2, got %d", f.TensorOrder())
	}
	return TransferFunction{Kind: MatrixTransfer, Field: f}, nil
}

// TransferFunctionBuilder derives a transfer function on the internal
// Fourier grid of a filter. It is invoked lazily, once per filter
// configuration.
type TransferFunctionBuilder func(internalGrid *grid.Grid) (TransferFunction, error)

// FixedTransferFunction wraps a precomputed transfer function as a builder.
// The caller is responsible for the field being defined on the internal grid
// of the filter it is given to.
func FixedTransferFunction(tf TransferFunction) TransferFunctionBuilder {
	return func(*grid.Grid) (TransferFunction, error) {
		return TransferFunction{Kind: tf.Kind, Field: tf.Field.Copy()}, nil
	}
}

// FourierFilter applies a linear convolution operator to a field by
// multiplying its Fourier transform with a transfer function. Zero padding
// (q > 1) increases the Fourier-domain resolution and suppresses wraparound
// artifacts.
//
// The transfer function and the padded scratch buffer are computed lazily on
// the first call and reused across calls; they are rebuilt when the transfer
// function is reassigned or the incoming tensor shape changes. A filter is
// not safe for concurrent use.
type FourierFilter struct {
	inputGrid    *grid.Grid
	internalGrid *grid.Grid
	cutout       *Cutout

	builder TransferFunctionBuilder

	// Cached state. tf holds the transfer function shifted into native
	// FFT ordering; scratch is the zero-padded working buffer.
	tf            *TransferFunction
	scratch       []complex128
	scratchTensor []int

	engine *fftEngine
}

// NewFourierFilter creates a filter over the given input grid. The transfer
// function builder is evaluated lazily on the internal Fourier grid, which
// covers the q-fold padded input. q = 1 disables padding.
func NewFourierFilter(inputGrid *grid.Grid, builder TransferFunctionBuilder, q float64) (*FourierFilter, error) {
	if builder == nil {
		return nil, errors.New("a transfer function builder is required")
	}

	fft, err := NewFastFourierTransform(inputGrid, q)
	if err != nil {
		return nil, err
	}

	return &FourierFilter{
		inputGrid:    inputGrid,
		internalGrid: fft.OutputGrid(),
		cutout:       fft.CutoutInput(),
		builder:      builder,
		engine:       newFFTEngine(),
	}, nil
}

// InputGrid returns the grid expected for input fields.
func (f *FourierFilter) InputGrid() *grid.Grid { return f.inputGrid }

// InternalGrid returns the Fourier grid the transfer function is defined on.
func (f *FourierFilter) InternalGrid() *grid.Grid { return f.internalGrid }

// SetTransferFunction replaces the transfer function builder and discards
// the cached transfer function.
func (f *FourierFilter) SetTransferFunction(builder TransferFunctionBuilder) error {
	if builder == nil {
		return errors.New("a transfer function builder is required")
	}
	f.builder = builder
	f.tf = nil
	return nil
}

// Forward returns the forward filtering of the input field.
func (f *FourierFilter) Forward(in *field.Field) (*field.Field, error) {
	return f.operate(in, false)
}

// Backward returns the adjoint filtering of the input field.
func (f *FourierFilter) Backward(in *field.Field) (*field.Field, error) {
	return f.operate(in, true)
}

func (f *FourierFilter) operate(in *field.Field, adjoint bool) (*field.Field, error) {
	if in.Grid.Size() != f.inputGrid.Size() {
		return nil, errors.Errorf("field has %d samples, filter expects %d", in.Grid.Size(), f.inputGrid.Size())
	}
	if err := f.computeFunctions(in); err != nil {
		return nil, err
	}

	internalDims := f.internalGrid.Dims()
	internalSize := f.internalGrid.Size()
	inSize := f.inputGrid.Size()
	inDims := f.inputGrid.Dims()
	tensorSize := in.TensorSize()
	axes := allAxes(len(internalDims))

	// Pad the input into the scratch buffer and transform each tensor
	// element over the spatial axes only.
	for tel := 0; tel < tensorSize; tel++ {
		buf := f.scratch[tel*internalSize : (tel+1)*internalSize]
		embed(buf, in.Data[tel*inSize:(tel+1)*inSize], inDims, internalDims, f.cutout)
		f.engine.transformAxes(buf, internalDims, axes, false)
	}

	work := f.scratch
	outTensor := in.TensorShape

	switch f.tf.Kind {
	case ScalarTransfer:
		tf := f.tf.Field.Data
		for tel := 0; tel < tensorSize; tel++ {
			buf := work[tel*internalSize : (tel+1)*internalSize]
			if adjoint {
				for s := range buf {
					buf[s] *= cmplx.Conj(tf[s])
				}
			} else {
				for s := range buf {
					buf[s] *= tf[s]
				}
			}
		}

	case MatrixTransfer:
		rows := f.tf.Field.TensorShape[0]
		cols := f.tf.Field.TensorShape[1]
		inDim, outDim := cols, rows
		if adjoint {
			inDim, outDim = rows, cols
		}
		if in.TensorOrder() != 1 || in.TensorShape[0] != inDim {
			return nil, errors.Errorf(
				"a %dx%d matrix transfer function requires a vector field of dimension %d, got tensor shape %v",
				rows, cols, inDim, in.TensorShape)
		}

		tf := f.tf.Field.Data
		result := make([]complex128, outDim*internalSize)
		for i := 0; i < outDim; i++ {
			out := result[i*internalSize : (i+1)*internalSize]
			for j := 0; j < inDim; j++ {
				buf := work[j*internalSize : (j+1)*internalSize]
				var m []complex128
				if adjoint {
					// Conjugate transpose: element (i, j) of the
					// adjoint is the conjugate of element (j, i).
					m = tf[(j*cols+i)*internalSize : (j*cols+i+1)*internalSize]
					for s := range out {
						out[s] += cmplx.Conj(m[s]) * buf[s]
					}
				} else {
					m = tf[(i*cols+j)*internalSize : (i*cols+j+1)*internalSize]
					for s := range out {
						out[s] += m[s] * buf[s]
					}
				}
			}
		}
		work = result
		outTensor = []int{outDim}
		tensorSize = outDim

	default:
		return nil, errors.Errorf("unhandled transfer function kind %d", f.tf.Kind)
	}

	out := field.NewZero(f.inputGrid, outTensor)
	for tel := 0; tel < tensorSize; tel++ {
		buf := work[tel*internalSize : (tel+1)*internalSize]
		f.engine.transformAxes(buf, internalDims, axes, true)
		extract(out.Data[tel*inSize:(tel+1)*inSize], buf, inDims, internalDims, f.cutout)
	}
	return out, nil
}

// computeFunctions lazily builds the cached transfer function and scratch
// buffer for the tensor shape of the incoming field.
func (f *FourierFilter) computeFunctions(in *field.Field) error {
	if f.tf == nil {
		tf, err := f.builder(f.internalGrid)
		if err != nil {
			return errors.Wrap(err, "building transfer function")
		}

		internalSize := f.internalGrid.Size()
		if tf.Field.Grid.Size() != internalSize {
			return errors.Errorf("transfer function has %d samples, internal grid has %d",
				tf.Field.Grid.Size(), internalSize)
		}

		// Shift into native FFT ordering once, per tensor element.
		shifted := tf.Field.Copy()
		internalDims := f.internalGrid.Dims()
		axes := allAxes(len(internalDims))
		for tel := 0; tel < shifted.TensorSize(); tel++ {
			ifftshiftAxes(shifted.Data[tel*internalSize:(tel+1)*internalSize], internalDims, axes)
		}
		tf.Field = shifted
		f.tf = &tf
	}

	needed := in.TensorSize() * f.internalGrid.Size()
	if len(f.scratch) != needed || !field.SameTensorShape(f.scratchTensor, in.TensorShape) {
		f.scratch = make([]complex128, needed)
		f.scratchTensor = append([]int(nil), in.TensorShape...)
	}
	return nil
}
