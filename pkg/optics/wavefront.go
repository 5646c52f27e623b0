// Package optics provides the wavefront container that propagators act on:
// a complex electric field bound to a grid, together with its wavelength and
// polarization state.
package optics

import (
	"math"
	"math/cmplx"

	"fourieroptics/pkg/field"
	"fourieroptics/pkg/grid"
)

// Wavefront is a monochromatic electric field sampled on a grid.
//
// Propagators treat wavefronts as values: they never modify their input and
// always preserve the wavelength and Stokes vector across forward and
// backward propagation.
type Wavefront struct {
	// ElectricField holds the complex field amplitude per sample.
	ElectricField *field.Field

	// Wavelength of the light, in the same units as the grid coordinates.
	Wavelength float64

	// InputStokesVector optionally describes the polarization state of
	// the incoming light. It is carried through unchanged by scalar
	// propagators; nil means unpolarized handling is left to the caller.
	InputStokesVector []float64
}

// NewWavefront creates a wavefront from an electric field and a wavelength.
func NewWavefront(electricField *field.Field, wavelength float64) *Wavefront {
	return &Wavefront{ElectricField: electricField, Wavelength: wavelength}
}

// Wavenumber returns 2*pi divided by the wavelength.
func (w *Wavefront) Wavenumber() float64 { return 2 * math.Pi / w.Wavelength }

// Grid returns the grid the electric field is sampled on.
func (w *Wavefront) Grid() *grid.Grid { return w.ElectricField.Grid }

// Power returns the intensity |E|^2 at every sample of a scalar field.
func (w *Wavefront) Power() []float64 {
	power := make([]float64, len(w.ElectricField.Data))
	for i, v := range w.ElectricField.Data {
		a := cmplx.Abs(v)
		power[i] = a * a
	}
	return power
}

// TotalPower returns the intensity integrated over the grid. Only defined
// for regular grids, where every sample carries the same weight.
func (w *Wavefront) TotalPower() float64 {
	weight := 1.0
	if w.ElectricField.Grid.IsRegular() {
		for _, d := range w.ElectricField.Grid.Delta() {
			weight *= d
		}
	}

	total := 0.0
	for _, p := range w.Power() {
		total += p
	}
	return total * weight
}

// Copy returns a deep copy of the wavefront.
func (w *Wavefront) Copy() *Wavefront {
	out := &Wavefront{
		ElectricField: w.ElectricField.Copy(),
		Wavelength:    w.Wavelength,
	}
	if w.InputStokesVector != nil {
		out.InputStokesVector = append([]float64(nil), w.InputStokesVector...)
	}
	return out
}
