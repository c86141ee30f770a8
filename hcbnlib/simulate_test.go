package hcbnlib

import (
	"math/rand/v2"
	"testing"
)

func TestSimulateRespectsPosetOrdering(t *testing.T) {
	// Chain 0 -> 1 -> 2 -> 3: S[i,v] is non-decreasing along the chain, so
	// an event can only have occurred by the sampling time if its parent
	// has occurred too.
	m := chainModel(t, 4)
	if err := m.SetLambda([]float64{1, 1, 1, 1}); err != nil {
		t.Fatalf("SetLambda failed: %v", err)
	}

	rng := rand.New(rand.NewPCG(1, 2))
	sim := simulate(rng, 200, m, nil)

	for i := 0; i < 200; i++ {
		for v := 1; v < 4; v++ {
			if sim.Samples[i][v] && !sim.Samples[i][v-1] {
				t.Fatalf("sample %d: event %d occurred without its parent %d: %v", i, v, v-1, sim.Samples[i])
			}
		}
	}
}

func TestSampleGenotypesRejectsCycle(t *testing.T) {
	m := NewModel([][2]int{{0, 1}, {1, 0}}, 2, 1)
	_ = m.HasCycles()
	ctx := NewContext(1, false)
	_, err := SampleGenotypes(ctx, 10, m, false, nil)
	if err == nil {
		t.Fatal("expected NotAcyclic error from a cyclic poset")
	}
}

func TestSampleGenotypesShapeMismatch(t *testing.T) {
	m := chainModel(t, 2)
	ctx := NewContext(1, false)
	_, err := SampleGenotypes(ctx, 5, m, true, []float64{1, 2, 3})
	if err == nil {
		t.Fatal("expected ShapeMismatch error when times has the wrong length")
	}
}

func TestApplyObservationNoiseZeroEpsIsIdentity(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 9))
	genotypes := [][]bool{{true, false, true}, {false, false, false}}
	obs := ApplyObservationNoise(rng, genotypes, 0)
	for i, row := range obs {
		for v, b := range row {
			if b != genotypes[i][v] {
				t.Fatalf("eps=0 should never flip a bit: row %d col %d", i, v)
			}
		}
	}
}
