package models

// Step records the state of a wavefront after propagating to one distance
type Step struct {
	// Distance is the propagation distance in meters
	Distance float64

	// Regime names the transfer-function construction that was used
	// ("direct-spectrum" or "impulse-response")
	Regime string

	// TotalPower is the integrated intensity after propagation
	TotalPower float64

	// PeakIntensity is the largest per-sample intensity after propagation
	PeakIntensity float64
}

// Sweep collects the propagation steps for one wavelength
type Sweep struct {
	// Wavelength of the propagated wavefront in meters
	Wavelength float64

	// InitialPower is the integrated intensity before propagation
	InitialPower float64

	// Steps holds one record per propagation distance, in sweep order
	Steps []Step
}

// WorstPowerError returns the largest relative deviation of any step's
// total power from the initial power. A lossless propagator should keep
// this near floating-point noise.
func (s *Sweep) WorstPowerError() float64 {
	worst := 0.0
	for _, step := range s.Steps {
		err := (step.TotalPower - s.InitialPower) / s.InitialPower
		if err < 0 {
			err = -err
		}
		if err > worst {
			worst = err
		}
	}
	return worst
}
