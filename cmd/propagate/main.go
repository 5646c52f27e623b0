package main

import (
	"flag"
	"fmt"
	"log"
	"math/cmplx"

	"fourieroptics/internal/models"
	"fourieroptics/pkg/config"
	"fourieroptics/pkg/field"
	"fourieroptics/pkg/grid"
	"fourieroptics/pkg/optics"
	"fourieroptics/pkg/propagation"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "propagate.yaml", "Path to the YAML configuration file")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to the config path and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	fmt.Println("================================")
	fmt.Println("ANGULAR SPECTRUM PROPAGATION SWEEP")
	fmt.Println("================================")
	fmt.Printf("Grid: %dx%d over %.3g m\n", cfg.Grid.Dims, cfg.Grid.Dims, cfg.Grid.Extent)
	fmt.Printf("Beam waist: %.3g m, wavelengths: %v\n", cfg.Beam.WaistRadius, cfg.Beam.Wavelengths)

	dims := []int{cfg.Grid.Dims, cfg.Grid.Dims}
	extent := []float64{cfg.Grid.Extent, cfg.Grid.Extent}
	g, err := grid.MakeUniformGrid(dims, extent, nil)
	if err != nil {
		log.Fatalf("Failed to build grid: %v", err)
	}

	propagator := propagation.NewAngularSpectrumPropagator(&propagation.Params{
		NumOversampling: cfg.Propagation.NumOversampling,
		RefractiveIndex: cfg.Propagation.RefractiveIndex,
	})

	for _, wavelength := range cfg.Beam.Wavelengths {
		sweep, err := runSweep(propagator, cfg, g, wavelength)
		if err != nil {
			log.Fatalf("Sweep at %.4g m failed: %v", wavelength, err)
		}

		fmt.Printf("\nWavelength %.4g m (initial power %.6g W):\n", wavelength, sweep.InitialPower)
		for _, step := range sweep.Steps {
			fmt.Printf("  z=%-10.4g regime=%-16s power=%.6g peak=%.6g\n",
				step.Distance, step.Regime, step.TotalPower, step.PeakIntensity)
		}
		fmt.Printf("  Worst relative power error: %.3g\n", sweep.WorstPowerError())
	}
}

// runSweep propagates a Gaussian beam of the given wavelength to every
// configured distance and records power statistics per step.
func runSweep(propagator *propagation.AngularSpectrumPropagator, cfg *config.Config, g *grid.Grid, wavelength float64) (*models.Sweep, error) {
	wf := optics.NewWavefront(gaussianBeam(g, cfg.Beam.WaistRadius), wavelength)

	sweep := &models.Sweep{
		Wavelength:   wavelength,
		InitialPower: wf.TotalPower(),
	}

	for _, distance := range cfg.Propagation.Distances {
		// Changing the distance rebuilds the transfer function; the
		// per-wavelength instances are cached within one distance.
		propagator.SetDistance(distance)

		out, err := propagator.Forward(wf)
		if err != nil {
			return nil, err
		}

		peak := 0.0
		for _, p := range out.Power() {
			if p > peak {
				peak = p
			}
		}

		sweep.Steps = append(sweep.Steps, models.Step{
			Distance:      distance,
			Regime:        propagator.Regime(g, wavelength).String(),
			TotalPower:    out.TotalPower(),
			PeakIntensity: peak,
		})

		if cfg.Output.Verbose {
			fmt.Printf("  propagated %.4g m\n", distance)
		}
	}
	return sweep, nil
}

// gaussianBeam returns a unit-amplitude Gaussian field centered on the grid.
func gaussianBeam(g *grid.Grid, waistRadius float64) *field.Field {
	x := g.X()
	y := g.Y()

	data := make([]complex128, g.Size())
	for i := range data {
		r2 := x[i]*x[i] + y[i]*y[i]
		data[i] = cmplx.Exp(complex(-r2/(waistRadius*waistRadius), 0))
	}

	f, err := field.New(data, g)
	if err != nil {
		// The sizes match by construction.
		log.Fatalf("Failed to build Gaussian field: %v", err)
	}
	return f
}
