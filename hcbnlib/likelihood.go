package hcbnlib

import (
	"math"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// CompleteLogLikelihood computes the complete-data log-likelihood per
// spec.md 4.5:
//
//	L = W * sum_j log(lambda_j) - sum_{i,j} Tdiff[i,j]*lambda_j + sum_i log_bern(dist_i, eps, p)
//
// dist holds one (possibly fractional, e.g. an expected distance) entry
// per row of tdiff.
func CompleteLogLikelihood(lambda []float64, eps float64, tdiff [][]float64, dist []float64, w float64) float64 {
	p := len(lambda)

	var sumLogLambda float64
	for _, l := range lambda {
		sumLogLambda += math.Log(l)
	}

	var sumTdiffLambda float64
	for _, row := range tdiff {
		sumTdiffLambda += floats.Dot(row, lambda)
	}

	logBern := logBernoulliProcess(dist, eps, p)

	return w*sumLogLambda - sumTdiffLambda + sumFloat(logBern)
}

// obsLogLikelihoodChunk computes the i in [lo, hi) partial sum of
// log(sum(w) / L) contributions for the observed-log-likelihood
// aggregator, using its own private RNG stream.
func obsLogLikelihoodChunk(rng *rand.Rand, obs [][]bool, times []float64, l int, m *Model, proposal Proposal, samplingTimesAvailable bool, lo, hi int) (float64, error) {
	var partial float64
	for i := lo; i < hi; i++ {
		var time float64
		if samplingTimesAvailable {
			time = times[i]
		}
		sample, err := ImportanceWeight(rng, obs[i], l, m, time, proposal, samplingTimesAvailable)
		if err != nil {
			return 0, err
		}
		wsum := sumFloat(sample.W)
		partial += math.Log(wsum / float64(l))
	}
	return partial, nil
}

// ObsLogLikelihood is the observed-log-likelihood aggregator, external
// entry point 2: it builds the Model from a poset adjacency matrix,
// verifies acyclicity, and sums log(sum(w)/L) across all N observations
// under the chosen proposal. Used for diagnostics, not during EM
// iterations.
//
// The N observations are statically partitioned into thrds chunks of
// (nearly) equal size; each chunk accumulates its own partial sum using
// its own RNG stream, and the partials are summed in worker order at
// the barrier. This fixed reduction tree is what keeps the result
// bit-deterministic for a fixed (seed, thrds, N) per spec.md's S6/9
// design note — real addition is not associative, so summing partials
// in an unpredictable (goroutine-completion) order would break that
// guarantee.
func ObsLogLikelihood(ctx *Context, obs [][]bool, posetAdj [][]int, lambda []float64, eps float64, times []float64, l int, proposal Proposal, lambdaS float64, samplingTimesAvailable bool, thrds int) (float64, error) {
	m, err := BuildModel(posetAdj, lambda, eps, lambdaS)
	if err != nil {
		return 0, err
	}
	if thrds == 0 {
		return 0, newErr(OutOfRange, "thrds must be positive")
	}
	n := len(obs)
	for i, row := range obs {
		if len(row) != m.Size() {
			return 0, newErr(ShapeMismatch, "obs row %d has length %d, want %d", i, len(row), m.Size())
		}
	}
	if samplingTimesAvailable && len(times) != n {
		return 0, newErr(ShapeMismatch, "times has length %d, want %d", len(times), n)
	}

	bounds := chunkBounds(n, thrds)
	streams := ctx.Spawn(len(bounds) - 1)

	partials := make([]float64, len(streams))
	errs := make([]error, len(streams))
	var wg sync.WaitGroup
	for t := range streams {
		wg.Add(1)
		go func(t int) {
			defer wg.Done()
			partials[t], errs[t] = obsLogLikelihoodChunk(streams[t], obs, times, l, m, proposal, samplingTimesAvailable, bounds[t], bounds[t+1])
		}(t)
	}
	wg.Wait()

	for _, e := range errs {
		if e != nil {
			return 0, e
		}
	}

	var total float64
	for _, pp := range partials {
		total += pp
	}
	return total, nil
}

// chunkBounds returns thrds+1 boundaries partitioning [0, n) into
// thrds nearly-equal, contiguous, deterministic chunks (the first n%thrds
// chunks get one extra element), following the "static partition of
// equal-size chunks" contract of spec.md 5.
func chunkBounds(n, thrds int) []int {
	bounds := make([]int, thrds+1)
	base := n / thrds
	rem := n % thrds
	pos := 0
	for t := 0; t < thrds; t++ {
		bounds[t] = pos
		sz := base
		if t < rem {
			sz++
		}
		pos += sz
	}
	bounds[thrds] = n
	return bounds
}
