package hcbnlib

import (
	"math"
	"math/rand/v2"
)

// Proposal names the importance-sampling proposal family used by
// ImportanceWeight / ImportanceWeightSingle.
type Proposal string

const (
	ProposalForward   Proposal = "forward"
	ProposalRejection Proposal = "rejection"
	// ProposalAddRemove is reserved; it is declared but unimplemented in
	// the source this module ports, and is rejected with NotImplemented
	// rather than silently returning a zeroed record.
	ProposalAddRemove Proposal = "add-remove"
)

// ImportanceSample holds the per-observation importance weights and
// expected sufficient statistics produced by one call to
// ImportanceWeight, for L samples over p events.
type ImportanceSample struct {
	// W[l] is the unnormalized importance weight of sample l.
	W []float64

	// Dist[l] is the Hamming distance of the proposed genotype l to the
	// observation.
	Dist []int

	// Tdiff[l][v] is the per-event waiting-time residual for proposed
	// latent trajectory l.
	Tdiff [][]float64
}

// rdiscrete draws one index in [0, len(weights)) with probability
// proportional to weights, which must sum to 1, using the same
// cumulative-sum search the teacher uses for genDiscrete.
func rdiscrete(rng *rand.Rand, weights []float64) int {
	u := rng.Float64()
	var acc float64
	for j, w := range weights {
		acc += w
		if u < acc {
			return j
		}
	}
	return len(weights) - 1
}

// rdiscreteN draws n indices, independently, from the same weight
// vector.
func rdiscreteN(rng *rand.Rand, n int, weights []float64) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = rdiscrete(rng, weights)
	}
	return out
}

// ImportanceWeight computes importance weights and expected sufficient
// statistics for one observation, per spec.md 4.4. time is the
// observation's sampling time, used directly when samplingTimesAvailable
// is true.
func ImportanceWeight(rng *rand.Rand, genotype []bool, l int, m *Model, time float64, proposal Proposal, samplingTimesAvailable bool) (*ImportanceSample, error) {
	if l == 0 {
		return nil, newErr(OutOfRange, "L must be positive")
	}
	p := m.Size()
	if len(genotype) != p {
		return nil, newErr(ShapeMismatch, "genotype has length %d, want %d", len(genotype), p)
	}

	switch proposal {
	case ProposalForward:
		return importanceForward(rng, genotype, l, m, time, samplingTimesAvailable), nil
	case ProposalRejection:
		return importanceRejection(rng, genotype, l, m, time, samplingTimesAvailable), nil
	case ProposalAddRemove:
		return nil, newErr(NotImplemented, "proposal %q is reserved and not implemented", proposal)
	default:
		return nil, newErr(NotImplemented, "unknown proposal %q", proposal)
	}
}

func broadcastTimes(n int, samplingTimesAvailable bool, time float64) []float64 {
	if !samplingTimesAvailable {
		return nil
	}
	times := make([]float64, n)
	for i := range times {
		times[i] = time
	}
	return times
}

// importanceForward draws L samples directly from the generative model
// (eps = 0, i.e. proposing the true genotype X) and weights each by the
// Bernoulli-process probability of the observed mismatch.
func importanceForward(rng *rand.Rand, genotype []bool, l int, m *Model, time float64, samplingTimesAvailable bool) *ImportanceSample {
	p := m.Size()
	tSampling := broadcastTimes(l, samplingTimesAvailable, time)

	sim := simulate(rng, l, m, tSampling)
	dist := hammingDistRows(sim.Samples, genotype)

	eps := m.Epsilon()
	w := make([]float64, l)
	for i, d := range dist {
		w[i] = math.Pow(eps, float64(d)) * math.Pow(1-eps, float64(p-d))
	}

	return &ImportanceSample{W: w, Dist: dist, Tdiff: sim.TEvents}
}

// importanceRejection draws a pool of K = p*L candidates, weights the
// pool by how compatible each candidate is with the observation, and
// resamples L of them with replacement.
func importanceRejection(rng *rand.Rand, genotype []bool, l int, m *Model, time float64, samplingTimesAvailable bool) *ImportanceSample {
	p := m.Size()
	k := p * l
	tSampling := broadcastTimes(k, samplingTimesAvailable, time)

	pool := simulate(rng, k, m, tSampling)
	distPool := hammingDistRows(pool.Samples, genotype)

	eps := m.Epsilon()
	qProb := make([]float64, k)
	for i, d := range distPool {
		qProb[i] = math.Pow(eps, float64(d)) * math.Pow(1-eps, float64(p-d))
	}

	random := false
	qSum := sumFloat(qProb)
	if qSum == 0 {
		// Degenerate: no pool candidate is compatible with the
		// observation under the current eps. Fall back to uniform
		// proposal weights rather than dividing by zero.
		for i := range qProb {
			qProb[i] = 1
		}
		random = true
		qSum = float64(k)
	}

	qProbSum := qSum
	normalized := make([]float64, k)
	for i, q := range qProb {
		normalized[i] = q / qProbSum
	}

	idxs := rdiscreteN(rng, l, normalized)

	dist := make([]int, l)
	tdiff := make([][]float64, l)
	for i, idx := range idxs {
		dist[i] = distPool[idx]
		tdiff[i] = pool.TEvents[idx]
	}

	w := make([]float64, l)
	if random {
		logw := logBernoulliProcess(intsToFloats(dist), eps, p)
		for i, lw := range logw {
			w[i] = math.Exp(lw)
		}
	} else {
		constant := qProbSum / float64(k)
		for i := range w {
			w[i] = constant
		}
	}

	return &ImportanceSample{W: w, Dist: dist, Tdiff: tdiff}
}

// ImportanceWeightSingle is the external entry point wrapping
// ImportanceWeight: it builds the Model from a poset adjacency matrix,
// verifies acyclicity, and runs the importance sampler once.
func ImportanceWeightSingle(genotype []bool, l int, posetAdj [][]int, lambda []float64, eps, time float64, proposal Proposal, lambdaS float64, samplingTimesAvailable bool, seed int64) (*ImportanceSample, error) {
	m, err := BuildModel(posetAdj, lambda, eps, lambdaS)
	if err != nil {
		return nil, err
	}

	ctx := NewContext(seed, false)
	return ImportanceWeight(ctx.root, genotype, l, m, time, proposal, samplingTimesAvailable)
}
