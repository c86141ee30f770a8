package hcbnlib

import (
	"math"
	"testing"
)

// TestMCEMHcbnCycleErrors covers scenario S3: an MCEM run over a cyclic
// poset fails fast with NotAcyclic.
func TestMCEMHcbnCycleErrors(t *testing.T) {
	posetAdj := [][]int{{0, 1}, {1, 0}}
	control := NewControlEM(10, 5, 1e-3, 1e6)

	_, err := MCEMHcbnFromAdjacency([]float64{1, 1}, posetAdj, [][]bool{{true, false}}, []float64{1}, 1, 0, []float64{1}, 10, ProposalForward, control, true, 1, false, 1)
	if err == nil {
		t.Fatal("expected NotAcyclic error for a cyclic poset")
	} else if herr, ok := err.(*HCBNError); !ok || herr.Kind != NotAcyclic {
		t.Fatalf("expected NotAcyclic, got %v", err)
	}
}

// TestMCEMHcbnEmptyPoset covers scenario S1: an empty two-event poset
// with two complementary observations should converge with lambda_j
// in a wide band around the generative value 1.
func TestMCEMHcbnEmptyPoset(t *testing.T) {
	posetAdj := [][]int{{0, 0}, {0, 0}}
	obs := [][]bool{{true, false}, {false, true}}
	times := []float64{1, 1}
	weights := []float64{1, 1}
	control := NewControlEM(200, 20, 1e-3, 1e6)

	ctx := NewContext(7, false)
	m, err := BuildModel(posetAdj, []float64{1, 1}, 0, 1)
	if err != nil {
		t.Fatalf("BuildModel failed: %v", err)
	}

	result, err := MCEMHcbn(ctx, m, obs, times, weights, 100, ProposalRejection, control, true, 2)
	if err != nil {
		t.Fatalf("MCEMHcbn failed: %v", err)
	}

	for j, lj := range result.Lambda {
		if lj < 0.5 || lj > 2 {
			t.Fatalf("lambda[%d]=%f outside the expected 0.5..2 band", j, lj)
		}
	}
}

// TestMCEMHcbnMStepClamp covers spec.md 8's property 6: after the
// driver returns, every lambda_j lies in (0, max_lambda] and eps lies
// in [0, 1], even across a grid of control parameters and proposals.
func TestMCEMHcbnMStepClamp(t *testing.T) {
	posetAdj := [][]int{{0, 1, 0}, {0, 0, 1}, {0, 0, 0}}
	obs := [][]bool{
		{true, true, true},
		{true, false, false},
		{false, false, false},
		{true, true, false},
	}
	weights := []float64{1, 1, 1, 1}
	times := []float64{1, 1, 1, 1}

	for _, proposal := range []Proposal{ProposalForward, ProposalRejection} {
		for _, maxLambda := range []float64{5, 50} {
			control := NewControlEM(40, 10, 1e-2, maxLambda)
			ctx := NewContext(3, false)
			m, err := BuildModel(posetAdj, []float64{1, 1, 1}, 0.1, 1)
			if err != nil {
				t.Fatalf("BuildModel failed: %v", err)
			}

			result, err := MCEMHcbn(ctx, m, obs, times, weights, 30, proposal, control, true, 2)
			if err != nil {
				t.Fatalf("proposal=%s maxLambda=%f: MCEMHcbn failed: %v", proposal, maxLambda, err)
			}

			for j, lj := range result.Lambda {
				if lj <= 0 || lj > maxLambda {
					t.Fatalf("proposal=%s: lambda[%d]=%f outside (0, %f]", proposal, j, lj, maxLambda)
				}
			}
			if result.Eps < 0 || result.Eps > 1 {
				t.Fatalf("proposal=%s: eps=%f outside [0, 1]", proposal, result.Eps)
			}
		}
	}
}

// TestMCEMHcbnDeterministic covers scenario S6: two runs with identical
// inputs, seed, and thrds=1 produce bit-identical outputs.
func TestMCEMHcbnDeterministic(t *testing.T) {
	posetAdj := [][]int{{0, 1}, {0, 0}}
	obs := [][]bool{{true, true}, {true, false}, {false, false}}
	weights := []float64{1, 1, 1}
	times := []float64{1, 1, 1}
	control := NewControlEM(30, 10, 1e-3, 10)

	run := func() MCEMResult {
		ctx := NewContext(99, false)
		m, err := BuildModel(posetAdj, []float64{1, 1}, 0.1, 1)
		if err != nil {
			t.Fatalf("BuildModel failed: %v", err)
		}
		result, err := MCEMHcbn(ctx, m, obs, times, weights, 20, ProposalRejection, control, true, 1)
		if err != nil {
			t.Fatalf("MCEMHcbn failed: %v", err)
		}
		return result
	}

	r1 := run()
	r2 := run()

	if r1.Eps != r2.Eps || r1.Llhood != r2.Llhood {
		t.Fatalf("expected bit-identical results for thrds=1, got eps %f vs %f, llhood %f vs %f", r1.Eps, r2.Eps, r1.Llhood, r2.Llhood)
	}
	for j := range r1.Lambda {
		if r1.Lambda[j] != r2.Lambda[j] {
			t.Fatalf("lambda[%d] differs between runs: %f vs %f", j, r1.Lambda[j], r2.Lambda[j])
		}
	}
}

func TestMStepRepairsNonFiniteLambda(t *testing.T) {
	weights := []float64{1, 1}
	eDist := []float64{0, 0}
	eTdiff := [][]float64{{0, 1}, {0, 1}}

	lambda, _ := mStep(weights, eDist, eTdiff, 2, 2, 100)
	if lambda[0] != 100 {
		t.Fatalf("a zero column sum should repair lambda[0] to max_lambda=100, got %f", lambda[0])
	}
	if lambda[1] <= 0 || lambda[1] > 100 || math.IsNaN(lambda[1]) {
		t.Fatalf("lambda[1]=%f should be finite and within (0, 100]", lambda[1])
	}
}

func TestMaxAbsDiff(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{1.1, 1.5, 3.2}
	got := maxAbsDiff(a, b)
	if math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("maxAbsDiff = %f, want 0.5", got)
	}
}

func TestSpawnedStreamsDiffer(t *testing.T) {
	ctx := NewContext(123, false)
	streams := ctx.Spawn(2)
	if streams[0].Uint64() == streams[1].Uint64() {
		t.Fatal("spawned streams should not be trivially identical")
	}
}
