// Package filter implements whole-stack image operations: axis reduction
// with pluggable aggregation functions, and frequency-domain Gaussian
// filtering of the in-plane axes.
package filter

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrUnknownSource is returned when a function source name has no registry.
	ErrUnknownSource = errors.New("filter: unknown function source")
	// ErrUnknownFunction is returned when a function name resolves to nothing,
	// even after alias expansion.
	ErrUnknownFunction = errors.New("filter: unknown reduction function")
)

// AggFunc aggregates one fiber of values gathered along the collapsed axes
// into a single value.
type AggFunc func([]float64) float64

// FunctionSource names a registry of aggregation functions.
type FunctionSource string

// FuncSourceGonum is the gonum-backed registry. Canonical names keep the
// spelling established by the array-processing pipelines this format comes
// from, so "max" is an alias for "amax" and "min" for "amin"; "mean", "sum",
// "prod", "median" and "std" resolve verbatim.
const FuncSourceGonum FunctionSource = "gonum"

type sourceEntry struct {
	aliases map[string]string
	funcs   map[string]AggFunc
}

var sources = map[FunctionSource]sourceEntry{
	FuncSourceGonum: {
		aliases: map[string]string{
			"max": "amax",
			"min": "amin",
		},
		funcs: map[string]AggFunc{
			"amax":   floats.Max,
			"amin":   floats.Min,
			"sum":    floats.Sum,
			"prod":   floats.Prod,
			"mean":   func(xs []float64) float64 { return stat.Mean(xs, nil) },
			"std":    func(xs []float64) float64 { return stat.StdDev(xs, nil) },
			"median": median,
		},
	},
}

// Resolve maps a function name to its implementation in the given source.
// The source's alias table is consulted first; failing an alias hit, the
// name is looked up verbatim. Callers resolve at construction time so a
// misspelled function is rejected before any pixel data is touched.
func Resolve(source FunctionSource, name string) (AggFunc, error) {
	entry, ok := sources[source]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	canonical := name
	if actual, ok := entry.aliases[name]; ok {
		canonical = actual
	}
	fn, ok := entry.funcs[canonical]
	if !ok {
		return nil, fmt.Errorf("%w: %q in source %q", ErrUnknownFunction, name, source)
	}
	return fn, nil
}

// Functions lists the canonical function names available in a source,
// sorted, for CLI help and error messages.
func Functions(source FunctionSource) []string {
	entry, ok := sources[source]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(entry.funcs))
	for name := range entry.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func median(xs []float64) float64 {
	tmp := make([]float64, len(xs))
	copy(tmp, xs)
	sort.Float64s(tmp)
	return stat.Quantile(0.5, stat.Empirical, tmp, nil)
}
