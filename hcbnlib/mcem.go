package hcbnlib

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/schollz/progressbar"
	"gonum.org/v1/gonum/floats"
)

// ControlEM bundles the MCEM driver's control parameters, following the
// teacher's convention of a plain exported-field struct rather than
// functional options.
type ControlEM struct {
	// MaxIter is the maximum number of EM iterations to run.
	MaxIter int

	// UpdateStepSize is the window length (in iterations) over which
	// parameters and log-likelihood are averaged for the convergence
	// test.
	UpdateStepSize int

	// Tol is the convergence tolerance applied to both epsilon and
	// every lambda_j, compared between consecutive window averages.
	Tol float64

	// MaxLambda upper-bounds every lambda_j after each M-step, and is
	// substituted in place of any non-finite lambda_j.
	MaxLambda float64
}

// NewControlEM returns a ControlEM built from the given parameters.
func NewControlEM(maxIter, updateStepSize int, tol, maxLambda float64) ControlEM {
	return ControlEM{MaxIter: maxIter, UpdateStepSize: updateStepSize, Tol: tol, MaxLambda: maxLambda}
}

// MCEMResult holds the averaged parameters MCEMHcbn converges to (or the
// partial-window average it holds at max_iter exhaustion).
type MCEMResult struct {
	Lambda []float64
	Eps    float64
	Llhood float64
}

// eStepChunk runs the importance sampler over observations [lo, hi),
// writing into the disjoint slice eDist[lo:hi] and the disjoint rows
// eTdiff[lo:hi]; per spec.md 5, distinct chunks never touch the same
// row, so no synchronization is required between goroutines.
func eStepChunk(rng *rand.Rand, obs [][]bool, times []float64, l int, m *Model, proposal Proposal, samplingTimesAvailable bool, lo, hi int, eDist []float64, eTdiff [][]float64) error {
	for i := lo; i < hi; i++ {
		var time float64
		if samplingTimesAvailable {
			time = times[i]
		}
		sample, err := ImportanceWeight(rng, obs[i], l, m, time, proposal, samplingTimesAvailable)
		if err != nil {
			return err
		}

		wsum := sumFloat(sample.W)
		if wsum == 0 {
			return newErr(Numerical, "observation %d: importance weights sum to zero", i)
		}

		var wdist float64
		for j, w := range sample.W {
			wdist += w * float64(sample.Dist[j])
		}
		eDist[i] = wdist / wsum

		row := eTdiff[i]
		for j := range row {
			row[j] = 0
		}
		for l2, w := range sample.W {
			tr := sample.Tdiff[l2]
			for j := range row {
				row[j] += w * tr[j]
			}
		}
		for j := range row {
			row[j] /= wsum
		}
	}
	return nil
}

// mStep performs the M-step of spec.md 4.6: updates eps from eDist,
// updates lambda from the weighted column sums of eTdiff, and clamps
// every lambda_j into (0, max_lambda].
func mStep(weights []float64, eDist []float64, eTdiff [][]float64, p int, wTotal, maxLambda float64) (lambda []float64, eps float64) {
	n := len(eDist)

	var sumDist float64
	for _, d := range eDist {
		sumDist += d
	}
	eps = sumDist / (float64(n) * float64(p))

	s := make([]float64, p)
	for i, row := range eTdiff {
		wi := weights[i]
		for j, v := range row {
			s[j] += wi * v
		}
	}

	lambda = make([]float64, p)
	for j, sj := range s {
		lj := wTotal / sj
		if isNonFinite(lj) {
			lj = maxLambda
		} else if lj > maxLambda {
			lj = maxLambda
		}
		lambda[j] = lj
	}
	return lambda, eps
}

// maxAbsDiff returns max_j |a[j] - b[j]|.
func maxAbsDiff(a, b []float64) float64 {
	var m float64
	for j := range a {
		d := math.Abs(a[j] - b[j])
		if d > m {
			m = d
		}
	}
	return m
}

// MCEMHcbn is the MCEM driver, external entry point 3: it refines an
// initial (lambda, eps) against a batch of noisy binary observations
// using the windowed-averaging convergence test of spec.md 4.6, and
// mutates m's lambda/epsilon/llhood in place.
func MCEMHcbn(ctx *Context, m *Model, obs [][]bool, times []float64, weights []float64, l int, proposal Proposal, control ControlEM, samplingTimesAvailable bool, thrds int) (MCEMResult, error) {
	n := len(obs)
	p := m.Size()

	if m.Cyclic() {
		return MCEMResult{}, newErr(NotAcyclic, "model poset contains a cycle")
	}
	if thrds == 0 {
		return MCEMResult{}, newErr(OutOfRange, "thrds must be positive")
	}
	if len(weights) != n {
		return MCEMResult{}, newErr(ShapeMismatch, "weights has length %d, want %d", len(weights), n)
	}
	if samplingTimesAvailable && len(times) != n {
		return MCEMResult{}, newErr(ShapeMismatch, "times has length %d, want %d", len(times), n)
	}
	for i, row := range obs {
		if len(row) != p {
			return MCEMResult{}, newErr(ShapeMismatch, "obs row %d has length %d, want %d", i, len(row), p)
		}
	}

	wTotal := sumFloat(weights)

	eDist := make([]float64, n)
	eTdiff := makeFloatMatrix(n, p)

	sumLambdaWindow := make([]float64, p)
	var sumEpsWindow, sumLlhoodWindow float64

	// The previous-window baseline starts at zero, not the caller's
	// initial guess (original_source/src/mcem_hcbn.cpp), so the first
	// window's average is compared against zero; it cannot pass merely
	// because the initial guess already sits near the converged values,
	// and in practice the earliest convergence is at the second window
	// boundary.
	avgLambdaPrev := make([]float64, p)
	var avgEpsPrev float64

	avgLambdaCur := make([]float64, p)
	var avgEpsCur float64
	var avgLlhoodCur float64

	lambda := append([]float64(nil), m.Lambda()...)
	eps := m.Epsilon()

	bar := progressbar.New(control.MaxIter)

	nextBoundary := control.UpdateStepSize
	prevBoundary := 0
	converged := false
	// finalWindowCommitted is set when the boundary check fires on the
	// loop's last iteration (control.MaxIter an exact multiple of
	// control.UpdateStepSize): avg*Cur already holds that window's
	// correct average, and the post-loop partial-window recompute below
	// must not re-derive it from the sums the same branch just reset.
	finalWindowCommitted := false
	iter := 0

	for ; iter < control.MaxIter; iter++ {
		if ctx.verbose {
			_ = bar.Add(1)
		}

		if err := m.SetLambda(lambda); err != nil {
			return MCEMResult{}, err
		}
		if err := m.SetEpsilon(eps); err != nil {
			return MCEMResult{}, err
		}

		bounds := chunkBounds(n, thrds)
		streams := ctx.Spawn(len(bounds) - 1)

		errs := make([]error, len(streams))
		var wg sync.WaitGroup
		for t := range streams {
			wg.Add(1)
			go func(t int) {
				defer wg.Done()
				errs[t] = eStepChunk(streams[t], obs, times, l, m, proposal, samplingTimesAvailable, bounds[t], bounds[t+1], eDist, eTdiff)
			}(t)
		}
		wg.Wait()
		for _, e := range errs {
			if e != nil {
				return MCEMResult{}, e
			}
		}

		newLambda, newEps := mStep(weights, eDist, eTdiff, p, wTotal, control.MaxLambda)
		llhood := CompleteLogLikelihood(newLambda, newEps, eTdiff, eDist, wTotal)

		ctx.logf("iter=%d eps=%f llhood=%f lambda=%v", iter, newEps, llhood, newLambda)

		lambda, eps = newLambda, newEps

		floats.Add(sumLambdaWindow, lambda)
		sumEpsWindow += eps
		sumLlhoodWindow += llhood

		if iter+1 == nextBoundary {
			avgLambdaCur = make([]float64, p)
			for j, s := range sumLambdaWindow {
				avgLambdaCur[j] = s / float64(control.UpdateStepSize)
			}
			avgEpsCur = sumEpsWindow / float64(control.UpdateStepSize)
			avgLlhoodCur = sumLlhoodWindow / float64(control.UpdateStepSize)

			if math.Abs(avgEpsPrev-avgEpsCur) <= control.Tol && maxAbsDiff(avgLambdaPrev, avgLambdaCur) <= control.Tol {
				converged = true
				iter++
				break
			}

			avgLambdaPrev = avgLambdaCur
			avgEpsPrev = avgEpsCur
			prevBoundary = nextBoundary
			nextBoundary += control.UpdateStepSize

			if iter+1 == control.MaxIter {
				finalWindowCommitted = true
			}

			for j := range sumLambdaWindow {
				sumLambdaWindow[j] = 0
			}
			sumEpsWindow = 0
			sumLlhoodWindow = 0
		}
	}

	if !converged && !finalWindowCommitted {
		elapsed := control.MaxIter - prevBoundary + control.UpdateStepSize
		avgLambdaCur = make([]float64, p)
		for j, s := range sumLambdaWindow {
			avgLambdaCur[j] = s / float64(elapsed)
		}
		avgEpsCur = sumEpsWindow / float64(elapsed)
		avgLlhoodCur = sumLlhoodWindow / float64(elapsed)
	}

	if err := m.SetLambda(avgLambdaCur); err != nil {
		return MCEMResult{}, err
	}
	if err := m.SetEpsilon(avgEpsCur); err != nil {
		return MCEMResult{}, err
	}
	m.SetLlhood(avgLlhoodCur)

	if ctx.parlogger != nil {
		ctx.parlogger.Printf("converged=%v iters=%d eps=%f lambda=%v llhood=%f", converged, iter, avgEpsCur, avgLambdaCur, avgLlhoodCur)
	}

	return MCEMResult{Lambda: avgLambdaCur, Eps: avgEpsCur, Llhood: avgLlhoodCur}, nil
}

// MCEMHcbnFromAdjacency is the adjacency-matrix-facing wrapper for
// MCEMHcbn, matching external entry point 3's signature: it builds the
// Model from a raw poset adjacency matrix and initial parameters before
// running the driver.
func MCEMHcbnFromAdjacency(initialLambda []float64, posetAdj [][]int, obs [][]bool, times []float64, lambdaS, eps float64, weights []float64, l int, proposal Proposal, control ControlEM, samplingTimesAvailable bool, thrds int, verbose bool, seed int64) (MCEMResult, error) {
	m, err := BuildModel(posetAdj, initialLambda, eps, lambdaS)
	if err != nil {
		return MCEMResult{}, err
	}

	ctx := NewContext(seed, verbose)
	return MCEMHcbn(ctx, m, obs, times, weights, l, proposal, control, samplingTimesAvailable, thrds)
}
