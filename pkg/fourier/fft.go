// Package fourier implements Fourier-domain linear operators on sampled
// fields: a general band-limited filter, rigid shift, shear and rotation
// operators, and the padded fast Fourier transform they are built on.
//
// All operators follow the same pattern: pad the input, transform, multiply
// by a transfer function, inverse-transform and crop. They differ in how the
// transfer function is derived and which axes are transformed. Every
// operator exposes a Forward and a Backward method, where Backward is the
// exact conjugate-transpose adjoint of Forward.
package fourier

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"
	gfourier "gonum.org/v1/gonum/dsp/fourier"

	"fourieroptics/pkg/field"
	"fourieroptics/pkg/grid"
)

// MakeFFTGrid returns the reciprocal grid of a regular grid: the Fourier
// frequencies (in angular units) produced by an FFT of the input grid after
// q-fold zero padding, restricted to a fraction fov of the full frequency
// range. The zero frequency sits at the center sample.
func MakeFFTGrid(g *grid.Grid, q, fov float64) (*grid.Grid, error) {
	if !g.IsRegular() {
		return nil, errors.New("an FFT grid requires a regular input grid")
	}

	delta := g.Delta()
	dims := g.Dims()

	fftDelta := make([]float64, len(dims))
	fftDims := make([]int, len(dims))
	fftZero := make([]float64, len(dims))
	for axis := range dims {
		fftDelta[axis] = 2 * math.Pi / (delta[axis] * float64(dims[axis]) * q)
		fftDims[axis] = int(float64(dims[axis]) * q * fov)
		fftZero[axis] = fftDelta[axis] * (-float64(fftDims[axis])/2 + 0.5*float64(fftDims[axis]%2))
	}
	return grid.NewRegularCartesian(fftDelta, fftDims, fftZero)
}

// Cutout describes where the original samples sit inside a zero-padded
// buffer, as a per-axis half-open index range.
type Cutout struct {
	Start []int
	End   []int
}

// FastFourierTransform converts fields between a regular spatial grid and
// its reciprocal Fourier grid, with optional q-fold zero padding. Forward
// approximates the continuous Fourier integral: phases account for the grid
// origins and amplitudes carry the sample weights, so that Backward exactly
// inverts Forward.
type FastFourierTransform struct {
	inputGrid  *grid.Grid
	outputGrid *grid.Grid

	internalDims []int
	cutout       *Cutout

	// Separable phase corrections for the off-center grid origins.
	phaseIn  [][]complex128
	phaseOut [][]complex128

	forwardWeight  float64
	backwardWeight float64

	engine *fftEngine
}

// NewFastFourierTransform creates a transform between g and its reciprocal
// grid with q-fold zero padding. q = 1 means no padding; q must be at least
// 1 and g must be regular.
func NewFastFourierTransform(g *grid.Grid, q float64) (*FastFourierTransform, error) {
	if q < 1 {
		return nil, errors.Errorf("zero-padding factor must be at least 1, got %g", q)
	}
	outputGrid, err := MakeFFTGrid(g, q, 1)
	if err != nil {
		return nil, err
	}

	dims := g.Dims()
	delta := g.Delta()
	zero := g.Zero()

	internalDims := outputGrid.Dims()
	cutout := makeCutout(dims, internalDims)

	// Spatial origin of the padded buffer. With no padding this is the
	// grid origin itself.
	paddedZero := make([]float64, len(dims))
	for axis := range dims {
		start := 0
		if cutout != nil {
			start = cutout.Start[axis]
		}
		paddedZero[axis] = zero[axis] - float64(start)*delta[axis]
	}

	fftDelta := outputGrid.Delta()
	fftZero := outputGrid.Zero()

	phaseIn := make([][]complex128, len(dims))
	phaseOut := make([][]complex128, len(dims))
	forwardWeight := 1.0
	backwardWeight := 1.0
	for axis := range dims {
		n := internalDims[axis]
		phaseIn[axis] = make([]complex128, n)
		phaseOut[axis] = make([]complex128, n)
		for m := 0; m < n; m++ {
			x := paddedZero[axis] + float64(m)*delta[axis]
			phaseIn[axis][m] = cmplx.Exp(complex(0, -fftZero[axis]*x))
			phaseOut[axis][m] = cmplx.Exp(complex(0, -float64(m)*fftDelta[axis]*paddedZero[axis]))
		}
		forwardWeight *= delta[axis]
		backwardWeight /= delta[axis]
	}

	return &FastFourierTransform{
		inputGrid:      g,
		outputGrid:     outputGrid,
		internalDims:   internalDims,
		cutout:         cutout,
		phaseIn:        phaseIn,
		phaseOut:       phaseOut,
		forwardWeight:  forwardWeight,
		backwardWeight: backwardWeight,
		engine:         newFFTEngine(),
	}, nil
}

// OutputGrid returns the reciprocal (Fourier) grid, zero frequency centered.
func (t *FastFourierTransform) OutputGrid() *grid.Grid { return t.outputGrid }

// CutoutInput returns the index ranges of the original samples inside the
// padded buffer, or nil when no padding is performed.
func (t *FastFourierTransform) CutoutInput() *Cutout { return t.cutout }

// Forward transforms a field on the input grid to the Fourier grid.
func (t *FastFourierTransform) Forward(f *field.Field) (*field.Field, error) {
	if f.Grid.Size() != t.inputGrid.Size() {
		return nil, errors.Errorf("field has %d samples, transform expects %d", f.Grid.Size(), t.inputGrid.Size())
	}

	tensorSize := f.TensorSize()
	internalSize := t.outputGrid.Size()
	out := field.NewZero(t.outputGrid, f.TensorShape)

	inDims := t.inputGrid.Dims()
	for tel := 0; tel < tensorSize; tel++ {
		buf := out.Data[tel*internalSize : (tel+1)*internalSize]
		embed(buf, f.Data[tel*t.inputGrid.Size():(tel+1)*t.inputGrid.Size()], inDims, t.internalDims, t.cutout)

		applySeparablePhase(buf, t.internalDims, t.phaseIn, false)
		t.engine.transformAxes(buf, t.internalDims, allAxes(len(t.internalDims)), false)
		applySeparablePhase(buf, t.internalDims, t.phaseOut, false)

		w := complex(t.forwardWeight, 0)
		for i := range buf {
			buf[i] *= w
		}
	}
	return out, nil
}

// Backward transforms a field on the Fourier grid back to the input grid,
// exactly inverting Forward.
func (t *FastFourierTransform) Backward(f *field.Field) (*field.Field, error) {
	if f.Grid.Size() != t.outputGrid.Size() {
		return nil, errors.Errorf("field has %d samples, transform expects %d", f.Grid.Size(), t.outputGrid.Size())
	}

	tensorSize := f.TensorSize()
	internalSize := t.outputGrid.Size()
	inSize := t.inputGrid.Size()
	inDims := t.inputGrid.Dims()

	out := field.NewZero(t.inputGrid, f.TensorShape)
	buf := make([]complex128, internalSize)

	for tel := 0; tel < tensorSize; tel++ {
		copy(buf, f.Data[tel*internalSize:(tel+1)*internalSize])

		applySeparablePhase(buf, t.internalDims, t.phaseOut, true)
		t.engine.transformAxes(buf, t.internalDims, allAxes(len(t.internalDims)), true)
		applySeparablePhase(buf, t.internalDims, t.phaseIn, true)

		// The engine's inverse is normalized by 1/N per axis; combined
		// with the frequency-step weights this reduces to 1/delta.
		w := complex(t.backwardWeight, 0)
		for i := range buf {
			buf[i] *= w
		}
		extract(out.Data[tel*inSize:(tel+1)*inSize], buf, inDims, t.internalDims, t.cutout)
	}
	return out, nil
}

// makeCutout returns the centered placement of dims inside internalDims, or
// nil when they coincide.
func makeCutout(dims, internalDims []int) *Cutout {
	same := true
	for axis := range dims {
		if dims[axis] != internalDims[axis] {
			same = false
			break
		}
	}
	if same {
		return nil
	}

	start := make([]int, len(dims))
	end := make([]int, len(dims))
	for axis := range dims {
		start[axis] = internalDims[axis]/2 - dims[axis]/2
		end[axis] = start[axis] + dims[axis]
	}
	return &Cutout{Start: start, End: end}
}

// embed copies a field with shape dims into a zeroed buffer with shape
// internalDims at the cutout location. A nil cutout means the shapes match.
func embed(dst, src []complex128, dims, internalDims []int, cutout *Cutout) {
	if cutout == nil {
		copy(dst, src)
		return
	}
	for i := range dst {
		dst[i] = 0
	}
	forEachSample(dims, func(srcIdx int, multi []int) {
		dstIdx := 0
		stride := 1
		for axis := range internalDims {
			dstIdx += (multi[axis] + cutout.Start[axis]) * stride
			stride *= internalDims[axis]
		}
		dst[dstIdx] = src[srcIdx]
	})
}

// extract is the inverse of embed: it copies the cutout region of a padded
// buffer back into a field with shape dims.
func extract(dst, src []complex128, dims, internalDims []int, cutout *Cutout) {
	if cutout == nil {
		copy(dst, src)
		return
	}
	forEachSample(dims, func(dstIdx int, multi []int) {
		srcIdx := 0
		stride := 1
		for axis := range internalDims {
			srcIdx += (multi[axis] + cutout.Start[axis]) * stride
			stride *= internalDims[axis]
		}
		dst[dstIdx] = src[srcIdx]
	})
}

// forEachSample visits every flat index of an array with the given per-axis
// dims (axis 0 fastest), passing the flat index and the multi-index.
func forEachSample(dims []int, visit func(flat int, multi []int)) {
	size := 1
	for _, n := range dims {
		size *= n
	}
	multi := make([]int, len(dims))
	for flat := 0; flat < size; flat++ {
		visit(flat, multi)
		for axis := 0; axis < len(dims); axis++ {
			multi[axis]++
			if multi[axis] < dims[axis] {
				break
			}
			multi[axis] = 0
		}
	}
}

// applySeparablePhase multiplies data elementwise by the outer product of
// per-axis phase vectors, conjugated when conj is set.
func applySeparablePhase(data []complex128, dims []int, phase [][]complex128, conj bool) {
	forEachSample(dims, func(flat int, multi []int) {
		factor := complex(1, 0)
		for axis := range dims {
			factor *= phase[axis][multi[axis]]
		}
		if conj {
			factor = cmplx.Conj(factor)
		}
		data[flat] *= factor
	})
}

func allAxes(ndim int) []int {
	axes := make([]int, ndim)
	for i := range axes {
		axes[i] = i
	}
	return axes
}

// fftEngine executes 1-D complex FFTs along arbitrary axes of an N-D buffer,
// caching one plan per transform length. Engines are owned per operator and
// are not safe for concurrent use.
type fftEngine struct {
	plans map[int]*gfourier.CmplxFFT
	src   []complex128
	dst   []complex128
}

func newFFTEngine() *fftEngine {
	return &fftEngine{plans: make(map[int]*gfourier.CmplxFFT)}
}

func (e *fftEngine) plan(n int) *gfourier.CmplxFFT {
	if p, ok := e.plans[n]; ok {
		return p
	}
	p := gfourier.NewCmplxFFT(n)
	e.plans[n] = p
	return p
}

// transformAxes performs an in-place FFT (or inverse FFT) of data along the
// given axes. data has shape dims with axis 0 varying fastest. The inverse
// transform is normalized by 1/n per transformed axis, so a forward followed
// by an inverse is the identity.
func (e *fftEngine) transformAxes(data []complex128, dims []int, axes []int, inverse bool) {
	for _, axis := range axes {
		e.transformAxis(data, dims, axis, inverse)
	}
}

func (e *fftEngine) transformAxis(data []complex128, dims []int, axis int, inverse bool) {
	n := dims[axis]
	if n == 1 {
		return
	}

	stride := 1
	for a := 0; a < axis; a++ {
		stride *= dims[a]
	}
	outer := len(data) / (n * stride)

	if cap(e.src) < n {
		e.src = make([]complex128, n)
		e.dst = make([]complex128, n)
	}
	src := e.src[:n]
	dst := e.dst[:n]

	p := e.plan(n)
	norm := complex(1/float64(n), 0)

	for b := 0; b < outer; b++ {
		blockBase := b * n * stride
		for q := 0; q < stride; q++ {
			base := blockBase + q
			for i := 0; i < n; i++ {
				src[i] = data[base+i*stride]
			}
			if inverse {
				p.Sequence(dst, src)
				for i := 0; i < n; i++ {
					data[base+i*stride] = dst[i] * norm
				}
			} else {
				p.Coefficients(dst, src)
				for i := 0; i < n; i++ {
					data[base+i*stride] = dst[i]
				}
			}
		}
	}
}

// ifftshiftAxes reorders data in place along the given axes so that the
// centered zero-frequency sample moves to index 0, matching native FFT
// output ordering.
func ifftshiftAxes(data []complex128, dims []int, axes []int) {
	for _, axis := range axes {
		ifftshiftAxis(data, dims, axis)
	}
}

func ifftshiftAxis(data []complex128, dims []int, axis int) {
	n := dims[axis]
	shift := n / 2
	if shift == 0 {
		return
	}

	stride := 1
	for a := 0; a < axis; a++ {
		stride *= dims[a]
	}
	outer := len(data) / (n * stride)

	line := make([]complex128, n)
	for b := 0; b < outer; b++ {
		blockBase := b * n * stride
		for q := 0; q < stride; q++ {
			base := blockBase + q
			for i := 0; i < n; i++ {
				line[i] = data[base+((i+shift)%n)*stride]
			}
			for i := 0; i < n; i++ {
				data[base+i*stride] = line[i]
			}
		}
	}
}

// ifftshiftVector returns a copy of a 1-D vector reordered to native FFT
// output ordering.
func ifftshiftVector(v []float64) []float64 {
	n := len(v)
	shift := n / 2
	out := make([]float64, n)
	for i := range out {
		out[i] = v[(i+shift)%n]
	}
	return out
}
