package hcbnlib

import "fmt"

// ErrorKind classifies the ways an H-CBN inference entry point can fail.
// Every error returned by the model, sampling and inference functions is
// one of these kinds (programmer mistakes, e.g. a slice length bug, still
// panic); the file helpers WriteDataset, ReadDataset and NewLoggers
// return the underlying I/O or decoding error unchanged.
type ErrorKind uint8

const (
	// NotAcyclic indicates the poset contains a directed cycle.
	NotAcyclic ErrorKind = iota

	// ShapeMismatch indicates mismatched matrix/vector dimensions, e.g.
	// a non-square poset, or obs column count != p.
	ShapeMismatch

	// OutOfRange indicates a parameter outside its admissible domain,
	// e.g. eps not in [0,1], a non-positive lambda entry, L == 0, or
	// thrds == 0.
	OutOfRange

	// NotImplemented indicates an unsupported proposal name: the reserved
	// "add-remove" or any unrecognized name.
	NotImplemented

	// Numerical indicates a non-finite value produced during the M-step
	// that could not be repaired by clamping.
	Numerical
)

func (k ErrorKind) String() string {
	switch k {
	case NotAcyclic:
		return "NotAcyclic"
	case ShapeMismatch:
		return "ShapeMismatch"
	case OutOfRange:
		return "OutOfRange"
	case NotImplemented:
		return "NotImplemented"
	case Numerical:
		return "Numerical"
	default:
		return "Unknown"
	}
}

// HCBNError is the typed error surfaced at every entry point boundary.
type HCBNError struct {
	Kind ErrorKind
	Msg  string
}

func (e *HCBNError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func newErr(kind ErrorKind, format string, args ...interface{}) *HCBNError {
	return &HCBNError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
