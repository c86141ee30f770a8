package hcbnlib

import (
	"math"
	"math/rand/v2"
	"testing"
)

func emptyPosetModel(t *testing.T, p int, eps float64) *Model {
	m := NewModel(nil, p, 1)
	if err := m.SetLambda(func() []float64 {
		lambda := make([]float64, p)
		for j := range lambda {
			lambda[j] = 1
		}
		return lambda
	}()); err != nil {
		t.Fatalf("SetLambda failed: %v", err)
	}
	if err := m.SetEpsilon(eps); err != nil {
		t.Fatalf("SetEpsilon failed: %v", err)
	}
	if err := m.Prepare(); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	return m
}

// TestForwardProposalExactMatchWeight covers spec.md 8's property 8 and
// scenario S4: with eps=0, any sample exactly equal to the observation
// has weight 1, and every other sample has weight 0.
func TestForwardProposalExactMatchWeight(t *testing.T) {
	m := emptyPosetModel(t, 2, 0)
	g := []bool{true, true}

	rng := rand.New(rand.NewPCG(3, 4))
	sample, err := ImportanceWeight(rng, g, 10, m, 1, ProposalForward, true)
	if err != nil {
		t.Fatalf("ImportanceWeight failed: %v", err)
	}

	for l, d := range sample.Dist {
		if d == 0 {
			if sample.W[l] != 1 {
				t.Fatalf("exact match at sample %d should have weight 1, got %f", l, sample.W[l])
			}
		} else if sample.W[l] != 0 {
			t.Fatalf("mismatch at sample %d should have weight 0, got %f", l, sample.W[l])
		}
	}
}

// TestWeightsNonNegative covers spec.md 8's property 5 across both
// proposal families.
func TestWeightsNonNegative(t *testing.T) {
	m := emptyPosetModel(t, 3, 0.2)
	g := []bool{true, false, true}

	for _, proposal := range []Proposal{ProposalForward, ProposalRejection} {
		rng := rand.New(rand.NewPCG(11, 22))
		sample, err := ImportanceWeight(rng, g, 50, m, 1, proposal, true)
		if err != nil {
			t.Fatalf("proposal %s: ImportanceWeight failed: %v", proposal, err)
		}
		for l, w := range sample.W {
			if w < 0 {
				t.Fatalf("proposal %s: negative weight %f at sample %d", proposal, w, l)
			}
		}
	}
}

// TestRejectionDegenerateFallback covers scenario S5: an observation
// that is essentially unreachable under the pool's proposal triggers
// the uniform fallback rather than a divide-by-zero.
func TestRejectionDegenerateFallback(t *testing.T) {
	m := NewModel(nil, 1, 1)
	if err := m.SetLambda([]float64{1e6}); err != nil {
		t.Fatalf("SetLambda failed: %v", err)
	}
	if err := m.SetEpsilon(0); err != nil {
		t.Fatalf("SetEpsilon failed: %v", err)
	}
	if err := m.Prepare(); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	rng := rand.New(rand.NewPCG(5, 6))
	sample, err := ImportanceWeight(rng, []bool{false}, 20, m, 1e-9, ProposalRejection, true)
	if err != nil {
		t.Fatalf("ImportanceWeight failed: %v", err)
	}
	for _, row := range sample.Tdiff {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("Tdiff entry is non-finite: %f", v)
			}
		}
	}
}

func TestImportanceWeightRejectsUnimplementedProposal(t *testing.T) {
	m := emptyPosetModel(t, 2, 0.1)
	rng := rand.New(rand.NewPCG(1, 1))
	_, err := ImportanceWeight(rng, []bool{true, false}, 5, m, 1, ProposalAddRemove, true)
	if err == nil {
		t.Fatal("expected NotImplemented error for the add-remove proposal")
	} else if herr, ok := err.(*HCBNError); !ok || herr.Kind != NotImplemented {
		t.Fatalf("expected NotImplemented, got %v", err)
	}
}

func TestHammingSymmetry(t *testing.T) {
	a := []bool{true, false, true, true}
	b := []bool{false, false, true, false}
	if hammingDist(a, b) != hammingDist(b, a) {
		t.Fatal("Hamming distance should be symmetric")
	}
	if hammingDist(a, a) != 0 {
		t.Fatal("Hamming distance of a genotype to itself should be zero")
	}
}

func TestLogBernoulliProcessZeroEpsPolicy(t *testing.T) {
	logp := logBernoulliProcess([]float64{0, 2}, 0, 5)
	if logp[0] != 0 {
		t.Fatalf("eps=0, dist=0 should give log-probability 0, got %f", logp[0])
	}
	if math.IsInf(logp[1], -1) {
		t.Fatal("eps=0, dist>0 should substitute DBL_EPSILON rather than produce -Inf")
	}
}
