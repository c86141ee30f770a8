package hcbnlib

import (
	"compress/gzip"
	"encoding/gob"
	"os"
)

// Dataset is the persisted unit cmd/generate writes and cmd/estimate
// reads, mirroring the teacher's gob+gzip MultiHMM persistence but
// carrying an H-CBN observation batch instead of a fitted HMM.
type Dataset struct {
	// PosetAdj is the p x p {0,1} poset adjacency matrix.
	PosetAdj [][]int

	P int
	N int

	LambdaS float64

	// LambdaTrue / EpsTrue are the generative parameters used to build
	// this dataset, kept around for oracle comparison against the
	// values MCEMHcbn recovers.
	LambdaTrue []float64
	EpsTrue    float64

	// TrueGenotypes is the noiseless latent genotype matrix, N x P.
	TrueGenotypes [][]bool

	// Obs is the noisy observed genotype matrix, N x P.
	Obs [][]bool

	Times                  []float64
	Weights                []float64
	SamplingTimesAvailable bool
}

// WriteDataset gob-encodes and gzip-compresses ds to fname.
func WriteDataset(fname string, ds *Dataset) error {
	fid, err := os.Create(fname)
	if err != nil {
		return err
	}
	defer fid.Close()

	gid := gzip.NewWriter(fid)
	defer gid.Close()

	return gob.NewEncoder(gid).Encode(ds)
}

// ReadDataset reads a Dataset written by WriteDataset.
func ReadDataset(fname string) (*Dataset, error) {
	fid, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer fid.Close()

	gid, err := gzip.NewReader(fid)
	if err != nil {
		return nil, err
	}
	defer gid.Close()

	var ds Dataset
	if err := gob.NewDecoder(gid).Decode(&ds); err != nil {
		return nil, err
	}
	return &ds, nil
}
