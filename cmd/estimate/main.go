// Command estimate fits an H-CBN model to a dataset produced by
// cmd/generate using the MCEM driver, and reports recovered parameters
// against the dataset's generative ground truth.
package main

import (
	"flag"
	"io"
	"os"

	"github.com/MartinFXP/MC-CBN/hcbnlib"
)

func main() {
	gobname := flag.String("gobfile", "", "The data file")
	logname := flag.String("logname", "hcbn", "Prefix of log file")
	maxiter := flag.Int("maxiter", 200, "Maximum number of EM iterations")
	updateStepSize := flag.Int("updatestepsize", 20, "Window length for convergence averaging")
	tol := flag.Float64("tol", 1e-3, "Convergence tolerance")
	maxLambda := flag.Float64("maxlambda", 1e6, "Upper clamp on each lambda_j")
	l := flag.Int("l", 100, "Importance sample count per observation")
	proposal := flag.String("proposal", "rejection", "Importance-sampling proposal: forward or rejection")
	thrds := flag.Int("thrds", 4, "Number of parallel E-step workers")
	lambdaInit := flag.Float64("lambdainit", 1, "Initial per-event rate")
	epsInit := flag.Float64("epsinit", 0.1, "Initial error rate")
	seed := flag.Int64("seed", 1, "Random seed")
	verbose := flag.Bool("verbose", true, "Log per-iteration progress")
	flag.Parse()

	if *gobname == "" {
		_, _ = io.WriteString(os.Stderr, "'gobfile' is a required argument\n")
		os.Exit(1)
	}

	ds, err := hcbnlib.ReadDataset(*gobname)
	if err != nil {
		panic(err)
	}

	msglogger, parlogger, err := hcbnlib.NewLoggers(*logname)
	if err != nil {
		panic(err)
	}

	ctx := hcbnlib.NewContext(*seed, *verbose)
	ctx.SetLoggers(msglogger, parlogger)

	lambda := make([]float64, ds.P)
	for j := range lambda {
		lambda[j] = *lambdaInit
	}

	m, err := hcbnlib.BuildModel(ds.PosetAdj, lambda, *epsInit, ds.LambdaS)
	if err != nil {
		panic(err)
	}

	weights := ds.Weights
	if weights == nil {
		weights = make([]float64, ds.N)
		for i := range weights {
			weights[i] = 1
		}
	}

	control := hcbnlib.NewControlEM(*maxiter, *updateStepSize, *tol, *maxLambda)

	msglogger.Printf("Starting lambda=%v eps=%f", lambda, *epsInit)

	result, err := hcbnlib.MCEMHcbn(ctx, m, ds.Obs, ds.Times, weights, *l, hcbnlib.Proposal(*proposal), control, ds.SamplingTimesAvailable, *thrds)
	if err != nil {
		panic(err)
	}

	msglogger.Printf("Recovered lambda=%v eps=%f llhood=%f", result.Lambda, result.Eps, result.Llhood)
	parlogger.Printf("True lambda=%v eps=%f", ds.LambdaTrue, ds.EpsTrue)
	parlogger.Printf("Recovered lambda=%v eps=%f", result.Lambda, result.Eps)
	parlogger.Printf("Final log-likelihood: %f", result.Llhood)

	compatible := hcbnlib.CountCompatibleObservations(ds.Obs, m)
	parlogger.Printf("%d/%d observations compatible with the fitted poset", compatible, ds.N)
}
