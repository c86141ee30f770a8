package hcbnlib

import (
	"math"
	"math/rand/v2"
)

// SimResult holds the output of the generative simulator: one row per
// sample.
type SimResult struct {
	// Samples[i][v] is true iff event v has occurred by the sampling
	// time in sample i.
	Samples [][]bool

	// TEvents[i][v] is the waiting time from the moment all of v's
	// parents have fired until v fires in sample i. This is exactly the
	// Tdiff contract of spec.md 4.3: it is T_events[i][v] itself, not a
	// re-derived residual.
	TEvents [][]float64

	// TSampling[i] is the sampling time used for sample i.
	TSampling []float64
}

// rexp draws one Exponential(rate) variate by inverse-CDF transform,
// matching std::exponential_distribution's construction in the ported
// source.
func rexp(rng *rand.Rand, rate float64) float64 {
	u := rng.Float64()
	return -math.Log(1-u) / rate
}

// rexpN draws n independent Exponential(rate) variates.
func rexpN(rng *rand.Rand, n int, rate float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = rexp(rng, rate)
	}
	return out
}

// simulate draws n independent (T_events, T_sampling, genotype) triples
// from model, respecting the poset's precedence constraints. If
// tSampling is non-nil, it is used as-is (its length must be n);
// otherwise sampling times are drawn from Exponential(lambda_s).
func simulate(rng *rand.Rand, n int, m *Model, tSampling []float64) *SimResult {
	p := m.Size()

	tEvents := makeFloatMatrix(n, p)
	for j := 0; j < p; j++ {
		rate := m.LambdaAt(j)
		for i := 0; i < n; i++ {
			tEvents[i][j] = rexp(rng, rate)
		}
	}

	if tSampling == nil {
		tSampling = rexpN(rng, n, m.LambdaS())
	}

	// S[i][v] accumulates the "ready time" of v in sample i: the event
	// time plus the latest of its parents' ready times.
	s := makeFloatMatrix(n, p)
	samples := make([][]bool, n)
	for i := range samples {
		samples[i] = make([]bool, p)
	}

	// Evaluating in ascending topological order guarantees every
	// parent's S value is already computed when v is processed; this is
	// equivalent to the source's reverse-topological-order traversal
	// that reads in-edges directly.
	if m.topoOrder == nil {
		m.TopologicalSort()
	}
	for _, v := range m.topoOrder {
		parents := m.parents(v)
		for i := 0; i < n; i++ {
			var tMax float64
			for _, u := range parents {
				if s[i][u] > tMax {
					tMax = s[i][u]
				}
			}
			s[i][v] = tEvents[i][v] + tMax
			if s[i][v] <= tSampling[i] {
				samples[i][v] = true
			}
		}
	}

	return &SimResult{Samples: samples, TEvents: tEvents, TSampling: tSampling}
}

// ApplyObservationNoise independently flips each bit of each row of
// genotypes with probability eps, returning a freshly allocated noisy
// copy. Used by data generators to turn the noiseless latent genotype
// matrix produced by SampleGenotypes into the noisy observation batch
// MCEMHcbn is fit against.
func ApplyObservationNoise(rng *rand.Rand, genotypes [][]bool, eps float64) [][]bool {
	obs := make([][]bool, len(genotypes))
	for i, row := range genotypes {
		out := make([]bool, len(row))
		for v, b := range row {
			if rng.Float64() < eps {
				out[v] = !b
			} else {
				out[v] = b
			}
		}
		obs[i] = out
	}
	return obs
}

// SampleGenotypes draws N independent samples from model, per spec.md
// 4.3 / external interface 5. If samplingTimesAvailable is true, times
// must be supplied with length N and is used directly in place of
// drawing from Exponential(lambda_s).
func SampleGenotypes(ctx *Context, n int, m *Model, samplingTimesAvailable bool, times []float64) (*SimResult, error) {
	if n == 0 {
		return nil, newErr(OutOfRange, "N must be positive")
	}
	if m.Cyclic() {
		return nil, newErr(NotAcyclic, "model poset contains a cycle")
	}
	if samplingTimesAvailable {
		if len(times) != n {
			return nil, newErr(ShapeMismatch, "times has length %d, want %d", len(times), n)
		}
		return simulate(ctx.root, n, m, times), nil
	}
	return simulate(ctx.root, n, m, nil), nil
}
