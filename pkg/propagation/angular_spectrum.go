// Package propagation implements free-space propagation of wavefronts. The
// angular spectrum propagator moves a monochromatic wavefront over a signed
// distance by applying a frequency-domain transfer function, switching to an
// oversampled impulse-response construction when the grid sampling is too
// coarse for the direct spectrum.
package propagation

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"

	"fourieroptics/pkg/field"
	"fourieroptics/pkg/fourier"
	"fourieroptics/pkg/grid"
	"fourieroptics/pkg/optics"
)

// Regime identifies which transfer-function construction a propagator
// instance selected.
type Regime int

const (
	// DirectSpectrum evaluates exp(i*k_z*d) directly in frequency space.
	DirectSpectrum Regime = iota

	// ImpulseResponseUpsampled builds the transfer function as the
	// Fourier transform of an oversampled spatial impulse response. Used
	// in the near-field regime, where the direct spectrum would alias.
	ImpulseResponseUpsampled
)

func (r Regime) String() string {
	if r == ImpulseResponseUpsampled {
		return "impulse-response"
	}
	return "direct-spectrum"
}

// Params holds the angular spectrum propagation parameters.
type Params struct {
	// Distance is the signed propagation distance, in grid units.
	Distance float64

	// NumOversampling is the supersampling factor used when evaluating
	// the transfer function or impulse response. Zero selects the
	// default of 2.
	NumOversampling int

	// RefractiveIndex of the medium the wavefront propagates through.
	// Zero selects the default of 1 (vacuum).
	RefractiveIndex float64
}

// instanceKey identifies one cached propagator instance. Every parameter
// that shapes the transfer function is either part of the key or an explicit
// cache-clearing trigger (distance, oversampling, refractive index).
type instanceKey struct {
	gridKey    string
	wavelength float64
}

// instance is the precomputed state for one (grid, wavelength) pair.
type instance struct {
	filter *fourier.FourierFilter
	regime Regime
	grid   *grid.Grid
}

// AngularSpectrumPropagator propagates scalar wavefronts through free space
// over a fixed distance, following the transfer function and impulse
// response of McLeod & Wagner, "Vector Fourier optics of anisotropic
// materials" (Adv. Opt. Photon. 6, 2014), equations 9 and 6.
//
// The authoritative grid is read from each incoming wavefront, so one
// propagator serves a polychromatic pipeline: instances are cached per
// (grid, wavelength) pair and rebuilt only for unseen pairs. Changing the
// distance, oversampling factor or refractive index clears the cache, since
// the cached transfer functions embed those values. A propagator is not
// safe for concurrent use.
type AngularSpectrumPropagator struct {
	distance        float64
	numOversampling int
	refractiveIndex float64

	instances map[instanceKey]*instance
}

// NewAngularSpectrumPropagator creates a propagator with the given
// parameters.
func NewAngularSpectrumPropagator(params *Params) *AngularSpectrumPropagator {
	numOversampling := params.NumOversampling
	if numOversampling == 0 {
		numOversampling = 2
	}
	refractiveIndex := params.RefractiveIndex
	if refractiveIndex == 0 {
		refractiveIndex = 1
	}

	return &AngularSpectrumPropagator{
		distance:        params.Distance,
		numOversampling: numOversampling,
		refractiveIndex: refractiveIndex,
		instances:       make(map[instanceKey]*instance),
	}
}

// Distance returns the signed propagation distance.
func (p *AngularSpectrumPropagator) Distance() float64 { return p.distance }

// SetDistance replaces the propagation distance and clears all cached
// instances.
func (p *AngularSpectrumPropagator) SetDistance(distance float64) {
	p.distance = distance
	p.clearCache()
}

// NumOversampling returns the transfer-function supersampling factor.
func (p *AngularSpectrumPropagator) NumOversampling() int { return p.numOversampling }

// SetNumOversampling replaces the supersampling factor and clears all
// cached instances.
func (p *AngularSpectrumPropagator) SetNumOversampling(numOversampling int) {
	p.numOversampling = numOversampling
	p.clearCache()
}

// RefractiveIndex returns the refractive index of the medium.
func (p *AngularSpectrumPropagator) RefractiveIndex() float64 { return p.refractiveIndex }

// SetRefractiveIndex replaces the refractive index and clears all cached
// instances.
func (p *AngularSpectrumPropagator) SetRefractiveIndex(refractiveIndex float64) {
	p.refractiveIndex = refractiveIndex
	p.clearCache()
}

func (p *AngularSpectrumPropagator) clearCache() {
	p.instances = make(map[instanceKey]*instance)
}

// GetInputGrid returns the grid of the incoming wavefront for a given
// output grid. Propagation does not resample, so both grids coincide.
func (p *AngularSpectrumPropagator) GetInputGrid(outputGrid *grid.Grid) *grid.Grid {
	return outputGrid
}

// GetOutputGrid returns the grid of the outgoing wavefront for a given
// input grid.
func (p *AngularSpectrumPropagator) GetOutputGrid(inputGrid *grid.Grid) *grid.Grid {
	return inputGrid
}

// Regime reports which transfer-function construction applies for the given
// grid and wavelength under the current parameters, without building an
// instance.
func (p *AngularSpectrumPropagator) Regime(g *grid.Grid, wavelength float64) Regime {
	if p.isNearField(g, wavelength) {
		return ImpulseResponseUpsampled
	}
	return DirectSpectrum
}

// Forward propagates a wavefront forward over the configured distance.
func (p *AngularSpectrumPropagator) Forward(wf *optics.Wavefront) (*optics.Wavefront, error) {
	inst, err := p.instanceFor(wf.Grid(), wf.Wavelength)
	if err != nil {
		return nil, err
	}

	filtered, err := inst.filter.Forward(wf.ElectricField)
	if err != nil {
		return nil, err
	}
	return p.wrap(filtered, wf), nil
}

// Backward propagates a wavefront backward over the configured distance.
func (p *AngularSpectrumPropagator) Backward(wf *optics.Wavefront) (*optics.Wavefront, error) {
	inst, err := p.instanceFor(wf.Grid(), wf.Wavelength)
	if err != nil {
		return nil, err
	}

	filtered, err := inst.filter.Backward(wf.ElectricField)
	if err != nil {
		return nil, err
	}
	return p.wrap(filtered, wf), nil
}

func (p *AngularSpectrumPropagator) wrap(ef *field.Field, in *optics.Wavefront) *optics.Wavefront {
	return &optics.Wavefront{
		ElectricField:     ef,
		Wavelength:        in.Wavelength,
		InputStokesVector: in.InputStokesVector,
	}
}

// instanceFor returns the cached instance for a (grid, wavelength) pair,
// building it on first use.
func (p *AngularSpectrumPropagator) instanceFor(g *grid.Grid, wavelength float64) (*instance, error) {
	if !g.IsRegular() || !g.IsCartesian() {
		return nil, errors.New("the input grid must be a regular, Cartesian grid")
	}
	if wavelength <= 0 {
		return nil, errors.Errorf("wavelength must be positive, got %g", wavelength)
	}

	key := instanceKey{gridKey: g.Key(), wavelength: wavelength}
	if inst, ok := p.instances[key]; ok {
		return inst, nil
	}

	k := 2 * math.Pi / wavelength * p.refractiveIndex

	var builder fourier.TransferFunctionBuilder
	var regime Regime
	if p.isNearField(g, wavelength) {
		if g.Ndim() != 2 {
			return nil, errors.Errorf(
				"the impulse-response construction requires a 2D grid, got %dD", g.Ndim())
		}
		regime = ImpulseResponseUpsampled
		builder = p.impulseResponseTransfer(k)
	} else {
		regime = DirectSpectrum
		builder = p.directSpectrumTransfer(k)
	}

	filter, err := fourier.NewFourierFilter(g, builder, 2)
	if err != nil {
		return nil, err
	}

	inst := &instance{filter: filter, regime: regime, grid: g}
	p.instances[key] = inst
	return inst, nil
}

// isNearField applies the aliasing criterion: when any grid spacing is
// smaller than wavelength*distance/L_max, the direct spectrum is
// undersampled and the impulse-response construction is needed.
func (p *AngularSpectrumPropagator) isNearField(g *grid.Grid, wavelength float64) bool {
	delta := g.Delta()
	dims := g.Dims()

	lMax := 0.0
	for axis := range dims {
		extent := float64(dims[axis]) * delta[axis]
		if extent > lMax {
			lMax = extent
		}
	}

	criterion := wavelength * p.distance / lMax
	for axis := range delta {
		if delta[axis] < criterion {
			return true
		}
	}
	return false
}

// directSpectrumTransfer builds the far-field transfer function
// exp(i*k_z*d) with k_z = sqrt(k^2 - k_perp^2 + 0i). The complex square
// root turns evanescent frequencies into exponential decay instead of NaN.
func (p *AngularSpectrumPropagator) directSpectrumTransfer(k float64) fourier.TransferFunctionBuilder {
	distance := p.distance
	numOversampling := p.numOversampling

	return func(fourierGrid *grid.Grid) (fourier.TransferFunction, error) {
		native := func(fg *grid.Grid) (*field.Field, error) {
			r := fg.PolarRadius()
			data := make([]complex128, len(r))
			for i, kPerp := range r {
				kz := cmplx.Sqrt(complex(k*k-kPerp*kPerp, 0))
				data[i] = cmplx.Exp(complex(0, distance) * kz)
			}
			return field.New(data, fg)
		}

		tf, err := field.EvaluateSupersampled(native, fourierGrid, numOversampling)
		if err != nil {
			return fourier.TransferFunction{}, err
		}
		return fourier.NewScalarTransfer(tf)
	}
}

// impulseResponseTransfer builds the near-field transfer function as the
// Fourier transform of the spatial impulse response
// cos(theta)/(2*pi) * exp(i*k*r) * (1/r^2 - i*k/r), evaluated supersampled
// on an enlarged grid.
func (p *AngularSpectrumPropagator) impulseResponseTransfer(k float64) fourier.TransferFunctionBuilder {
	distance := p.distance
	numOversampling := p.numOversampling

	return func(fourierGrid *grid.Grid) (fourier.TransferFunction, error) {
		// The reciprocal of the Fourier grid is an enlarged spatial
		// grid with the original spacing; transforming the impulse
		// response on it lands exactly on fourierGrid.
		enlargedGrid, err := fourier.MakeFFTGrid(fourierGrid, 1, 1)
		if err != nil {
			return fourier.TransferFunction{}, err
		}
		fftUpscale, err := fourier.NewFastFourierTransform(enlargedGrid, 1)
		if err != nil {
			return fourier.TransferFunction{}, err
		}

		impulseResponse := func(sg *grid.Grid) (*field.Field, error) {
			x := sg.X()
			y := sg.Y()
			data := make([]complex128, len(x))
			for i := range data {
				rSquared := x[i]*x[i] + y[i]*y[i] + distance*distance
				r := math.Sqrt(rSquared)
				cosTheta := distance / r

				amplitude := complex(cosTheta/(2*math.Pi), 0)
				phase := cmplx.Exp(complex(0, k*r))
				obliquity := complex(1/rSquared, -k/r)
				data[i] = amplitude * phase * obliquity
			}
			return field.New(data, sg)
		}

		ir, err := field.EvaluateSupersampled(impulseResponse, enlargedGrid, numOversampling)
		if err != nil {
			return fourier.TransferFunction{}, err
		}

		tf, err := fftUpscale.Forward(ir)
		if err != nil {
			return fourier.TransferFunction{}, err
		}
		return fourier.NewScalarTransfer(tf)
	}
}
