// Command generate produces a synthetic H-CBN observation batch and
// writes it to a gzip-compressed gob file, for use as input to
// cmd/estimate.
package main

import (
	"flag"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/MartinFXP/MC-CBN/hcbnlib"
)

func buildEdges(posetType string, p int, rng *rand.Rand) [][2]int {
	switch posetType {
	case "empty":
		return nil
	case "chain":
		edges := make([][2]int, 0, p-1)
		for v := 1; v < p; v++ {
			edges = append(edges, [2]int{v - 1, v})
		}
		return edges
	case "random":
		var edges [][2]int
		for u := 0; u < p; u++ {
			for v := u + 1; v < p; v++ {
				if rng.Float64() < 0.3 {
					edges = append(edges, [2]int{u, v})
				}
			}
		}
		return edges
	default:
		panic("unknown posettype: " + posetType)
	}
}

func parseLambda(s string, p int, fallback float64) []float64 {
	lambda := make([]float64, p)
	for j := range lambda {
		lambda[j] = fallback
	}
	if s == "" {
		return lambda
	}
	parts := strings.Split(s, ",")
	if len(parts) != p {
		panic("lambda has " + strconv.Itoa(len(parts)) + " entries, want " + strconv.Itoa(p))
	}
	for j, ps := range parts {
		v, err := strconv.ParseFloat(ps, 64)
		if err != nil {
			panic(err)
		}
		lambda[j] = v
	}
	return lambda
}

func main() {
	var posetType, outname, lambdaStr string
	flag.StringVar(&posetType, "posettype", "chain", "Poset shape: empty, chain, or random")
	flag.StringVar(&outname, "outname", "", "Output file name")
	flag.StringVar(&lambdaStr, "lambda", "", "Comma-separated per-event rates (overrides -baselambda)")

	var p, n int
	flag.IntVar(&p, "p", 5, "Number of events")
	flag.IntVar(&n, "n", 200, "Number of observations")

	var baseLambda, lambdaS, eps float64
	flag.Float64Var(&baseLambda, "baselambda", 1, "Per-event rate used when -lambda is not given")
	flag.Float64Var(&lambdaS, "lambdas", 1, "Sampling-time rate")
	flag.Float64Var(&eps, "eps", 0.05, "Observation error rate")

	var samplingTimesAvailable bool
	flag.BoolVar(&samplingTimesAvailable, "samplingtimes", false, "Supply a fixed sampling time instead of drawing one")

	var seed int64
	flag.Int64Var(&seed, "seed", 1, "Random seed")
	flag.Parse()

	if outname == "" {
		panic("'outname' is required")
	}

	ctx := hcbnlib.NewContext(seed, false)
	streams := ctx.Spawn(1)
	rng := streams[0]

	edges := buildEdges(posetType, p, rng)
	lambda := parseLambda(lambdaStr, p, baseLambda)

	m := hcbnlib.NewModel(edges, p, lambdaS)
	if err := m.SetLambda(lambda); err != nil {
		panic(err)
	}
	if err := m.SetEpsilon(eps); err != nil {
		panic(err)
	}
	if err := m.Prepare(); err != nil {
		panic(err)
	}

	var times []float64
	if samplingTimesAvailable {
		times = make([]float64, n)
		for i := range times {
			times[i] = 1
		}
	}

	sim, err := hcbnlib.SampleGenotypes(ctx, n, m, samplingTimesAvailable, times)
	if err != nil {
		panic(err)
	}

	obs := hcbnlib.ApplyObservationNoise(rng, sim.Samples, eps)

	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1
	}

	ds := &hcbnlib.Dataset{
		PosetAdj:               hcbnlib.EdgesToAdjacencyMatrix(m),
		P:                      p,
		N:                      n,
		LambdaS:                lambdaS,
		LambdaTrue:             lambda,
		EpsTrue:                eps,
		TrueGenotypes:          sim.Samples,
		Obs:                    obs,
		Times:                  sim.TSampling,
		Weights:                weights,
		SamplingTimesAvailable: samplingTimesAvailable,
	}

	if err := hcbnlib.WriteDataset(outname, ds); err != nil {
		panic(err)
	}
}
