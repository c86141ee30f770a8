package hcbnlib

import (
	"log"
	"math/rand/v2"
	"os"
)

// Context owns the root pseudorandom stream for one inference run, plus
// the optional loggers used for progress reporting. A Context is created
// once per call to one of the package's entry points and is never shared
// across concurrent invocations of MCEMHcbn.
type Context struct {
	root *rand.Rand

	verbose bool

	// msglogger receives one line per EM iteration when verbose is set.
	msglogger *log.Logger

	// parlogger receives the parameter summary MCEMHcbn writes when it
	// returns.
	parlogger *log.Logger
}

// NewContext returns a Context whose root stream is seeded deterministically
// from seed. Two Contexts built from the same seed, driving the same
// sequence of Spawn calls, produce identical streams.
func NewContext(seed int64, verbose bool) *Context {
	s1, s2 := splitSeed(uint64(seed))
	return &Context{
		root:    rand.New(rand.NewPCG(s1, s2)),
		verbose: verbose,
	}
}

// Verbose reports whether the context was created with verbose logging.
func (ctx *Context) Verbose() bool {
	return ctx.verbose
}

// SetLoggers installs the message and parameter loggers used for
// progress reporting. Either may be nil, in which case the corresponding
// output is skipped.
func (ctx *Context) SetLoggers(msg, par *log.Logger) {
	ctx.msglogger = msg
	ctx.parlogger = par
}

// Spawn draws n independent streams from the root stream. Given the same
// seed and the same sequence of Spawn call sizes, the returned streams are
// bit-identical across runs; streams spawned in the same call are
// statistically independent of one another and of the root.
func (ctx *Context) Spawn(n int) []*rand.Rand {
	streams := make([]*rand.Rand, n)
	for t := 0; t < n; t++ {
		s1 := ctx.root.Uint64()
		s2 := ctx.root.Uint64()
		streams[t] = rand.New(rand.NewPCG(s1, s2))
	}
	return streams
}

// splitSeed expands a single 64 bit seed into two 64 bit words suitable
// for seeding a PCG generator, using the SplitMix64 mixing function so
// that nearby input seeds do not produce correlated streams.
func splitSeed(seed uint64) (uint64, uint64) {
	next := func() uint64 {
		seed += 0x9e3779b97f4a7c15
		z := seed
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		return z ^ (z >> 31)
	}
	return next(), next()
}

// NewLoggers opens logname+"_msg.log" and logname+"_par.log", returning
// loggers suitable for Context.SetLoggers. Mirrors the teacher's
// HMM.SetLogger.
func NewLoggers(logname string) (msg, par *log.Logger, err error) {
	mfid, err := os.Create(logname + "_msg.log")
	if err != nil {
		return nil, nil, err
	}
	msg = log.New(mfid, "", log.Ltime)

	pfid, err := os.Create(logname + "_par.log")
	if err != nil {
		return nil, nil, err
	}
	par = log.New(pfid, "", 0)

	return msg, par, nil
}

// logf writes a progress line to the message logger if verbose logging
// is enabled.
func (ctx *Context) logf(format string, args ...interface{}) {
	if ctx.verbose && ctx.msglogger != nil {
		ctx.msglogger.Printf(format, args...)
	}
}
