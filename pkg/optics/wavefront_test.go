package optics

import (
	"math"
	"testing"

	"fourieroptics/pkg/field"
	"fourieroptics/pkg/grid"
)

// TestWavenumber verifies the wavelength to wavenumber conversion.
func TestWavenumber(t *testing.T) {
	g, err := grid.MakeUniformGrid([]int{2, 2}, []float64{1, 1}, nil)
	if err != nil {
		t.Fatalf("Failed to build grid: %v", err)
	}

	wf := NewWavefront(field.NewZero(g, nil), 500e-9)
	want := 2 * math.Pi / 500e-9
	if math.Abs(wf.Wavenumber()-want) > 1e-3 {
		t.Errorf("Expected wavenumber %g, got %g", want, wf.Wavenumber())
	}
}

// TestTotalPower verifies the sample weighting of the integrated intensity.
func TestTotalPower(t *testing.T) {
	// A 4x4 grid over a 2x2 area has sample weight 0.25.
	g, err := grid.MakeUniformGrid([]int{4, 4}, []float64{2, 2}, nil)
	if err != nil {
		t.Fatalf("Failed to build grid: %v", err)
	}

	f := field.NewZero(g, nil)
	for i := range f.Data {
		f.Data[i] = 2i // intensity 4 per sample
	}
	wf := NewWavefront(f, 1e-6)

	want := 4.0 * 16 * 0.25
	if math.Abs(wf.TotalPower()-want) > 1e-12 {
		t.Errorf("Expected total power %g, got %g", want, wf.TotalPower())
	}

	power := wf.Power()
	for i, p := range power {
		if math.Abs(p-4) > 1e-12 {
			t.Errorf("Expected intensity 4 at sample %d, got %g", i, p)
		}
	}
}

// TestCopyIsDeep verifies that copies share no mutable state.
func TestCopyIsDeep(t *testing.T) {
	g, err := grid.MakeUniformGrid([]int{2, 2}, []float64{1, 1}, nil)
	if err != nil {
		t.Fatalf("Failed to build grid: %v", err)
	}

	wf := NewWavefront(field.NewZero(g, nil), 1e-6)
	wf.InputStokesVector = []float64{1, 0, 0, 0}

	c := wf.Copy()
	c.ElectricField.Data[0] = 1
	c.InputStokesVector[0] = 2

	if wf.ElectricField.Data[0] != 0 {
		t.Errorf("Expected the original field to be unchanged")
	}
	if wf.InputStokesVector[0] != 1 {
		t.Errorf("Expected the original Stokes vector to be unchanged")
	}
}
