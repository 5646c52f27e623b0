package field

import (
	"github.com/pkg/errors"

	"fourieroptics/pkg/grid"
)

// Generator produces a field when evaluated on a grid. It is the shape taken
// by analytic field definitions such as impulse responses and transfer
// functions.
type Generator func(g *grid.Grid) (*Field, error)

// MakeSupersampledGrid returns a regular grid covering the same physical
// area as g but with every sample subdivided into oversampling^ndim
// subsamples. The fine samples are centered within the coarse pixels.
func MakeSupersampledGrid(g *grid.Grid, oversampling int) (*grid.Grid, error) {
	if !g.IsRegular() {
		return nil, errors.New("supersampling requires a regular grid")
	}
	if oversampling < 1 {
		return nil, errors.Errorf("oversampling factor must be at least 1, got %d", oversampling)
	}

	delta := g.Delta()
	dims := g.Dims()
	zero := g.Zero()

	fineDelta := make([]float64, len(dims))
	fineDims := make([]int, len(dims))
	fineZero := make([]float64, len(dims))
	for axis := range dims {
		fineDelta[axis] = delta[axis] / float64(oversampling)
		fineDims[axis] = dims[axis] * oversampling
		fineZero[axis] = zero[axis] - delta[axis]/2 + fineDelta[axis]/2
	}
	return grid.NewRegularCartesian(fineDelta, fineDims, fineZero)
}

// EvaluateSupersampled evaluates a field generator at oversampling times the
// resolution of g along each axis, then box-averages the result down to g.
// Oversampling reduces aliasing when the generator contains frequencies
// near or beyond the sampling limit of g.
func EvaluateSupersampled(generate Generator, g *grid.Grid, oversampling int) (*Field, error) {
	if oversampling == 1 {
		return generate(g)
	}

	fineGrid, err := MakeSupersampledGrid(g, oversampling)
	if err != nil {
		return nil, err
	}

	fine, err := generate(fineGrid)
	if err != nil {
		return nil, errors.Wrap(err, "evaluating generator on supersampled grid")
	}

	dims := g.Dims()
	coarseSize := g.Size()
	fineSize := fineGrid.Size()
	tensorSize := fine.TensorSize()

	out := NewZero(g, fine.TensorShape)

	// Map each fine sample to its coarse pixel by integer-dividing every
	// axis index by the oversampling factor.
	coarseIndex := make([]int, fineSize)
	for s := 0; s < fineSize; s++ {
		remainder := s
		stride := 1
		coarse := 0
		for axis := 0; axis < len(dims); axis++ {
			nFine := dims[axis] * oversampling
			iFine := remainder % nFine
			remainder /= nFine
			coarse += (iFine / oversampling) * stride
			stride *= dims[axis]
		}
		coarseIndex[s] = coarse
	}

	norm := complex(1/float64(fineSize/coarseSize), 0)
	for t := 0; t < tensorSize; t++ {
		fineOff := t * fineSize
		coarseOff := t * coarseSize
		for s := 0; s < fineSize; s++ {
			out.Data[coarseOff+coarseIndex[s]] += fine.Data[fineOff+s]
		}
		for s := 0; s < coarseSize; s++ {
			out.Data[coarseOff+s] *= norm
		}
	}
	return out, nil
}
