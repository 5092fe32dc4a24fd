// Package experiment builds, writes and loads experiments: a top-level
// manifest binding named image collections (primary plus any auxiliary
// views) to a codebook, with tiles enumerated in a deterministic axis
// order and assembled back into labeled image stacks on load.
package experiment

import (
	"errors"
	"fmt"
	"iter"

	"fishstack/pkg/axes"
)

// ErrDuplicateLabels is returned when an axis is given the same label twice.
var ErrDuplicateLabels = errors.New("experiment: duplicate labels for axis")

// AxisLabels pairs an axis with the ordered labels it takes during a build.
type AxisLabels struct {
	Axis   axes.Axis
	Labels []int
}

// JoinAxesLabels binds the label sequences for rounds, channels and
// z-planes to an explicit axis priority. Every axis named in order must
// have a non-nil label sequence, every non-nil sequence must be claimed by
// order, and no sequence may repeat a label. The result preserves order's
// priority: the first axis varies slowest during iteration.
func JoinAxesLabels(order []axes.Axis, rounds, chs, zplanes []int) ([]AxisLabels, error) {
	available := map[axes.Axis][]int{
		axes.Round:  rounds,
		axes.Ch:     chs,
		axes.ZPlane: zplanes,
	}

	out := make([]AxisLabels, 0, len(order))
	claimed := make(map[axes.Axis]bool, len(order))
	for _, a := range order {
		labels, ok := available[a]
		if !ok {
			return nil, fmt.Errorf("experiment: axis %q cannot be given a tile order", a)
		}
		if labels == nil {
			return nil, fmt.Errorf("experiment: axis priority names %q but no labels were given for it", a)
		}
		if claimed[a] {
			return nil, fmt.Errorf("experiment: axis %q appears twice in the axis priority", a)
		}
		claimed[a] = true

		seen := make(map[int]bool, len(labels))
		for _, l := range labels {
			if seen[l] {
				return nil, fmt.Errorf("%w: %q has %d more than once", ErrDuplicateLabels, a, l)
			}
			seen[l] = true
		}
		out = append(out, AxisLabels{Axis: a, Labels: append([]int(nil), labels...)})
	}

	for a, labels := range available {
		if labels != nil && !claimed[a] {
			return nil, fmt.Errorf("experiment: labels were given for %q but the axis priority omits it", a)
		}
	}
	return out, nil
}

// OrderedIterator yields one selector per element of the Cartesian product
// of the axis labels, with the first axis varying slowest and the last
// fastest. The sequence is restartable and yields nothing if any axis has
// zero labels; iterating zero axes yields a single empty selector. Each
// yielded selector is a fresh copy the consumer may keep.
func OrderedIterator(axesLabels []AxisLabels) iter.Seq[axes.Selector] {
	return func(yield func(axes.Selector) bool) {
		for _, al := range axesLabels {
			if len(al.Labels) == 0 {
				return
			}
		}
		idx := make([]int, len(axesLabels))
		for {
			sel := make(axes.Selector, len(axesLabels))
			for i, al := range axesLabels {
				sel[al.Axis] = al.Labels[idx[i]]
			}
			if !yield(sel) {
				return
			}
			done := true
			for i := len(idx) - 1; i >= 0; i-- {
				idx[i]++
				if idx[i] < len(axesLabels[i].Labels) {
					done = false
					break
				}
				idx[i] = 0
			}
			if done {
				return
			}
		}
	}
}
