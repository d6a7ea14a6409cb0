// Package gaps implements the Gap Detector: it finds gaps in a
// candidate time series that are not covered by gaps already present
// in a reference series, grounded directly on
// original_source/HSTB/kluster/xarray_helpers.py::compare_and_find_gaps
// and _find_gaps_split.
package gaps

import "sort"

// Interval is an inclusive [Start, End] time interval.
type Interval struct {
	Start float64
	End   float64
}

// findGaps returns consecutive-difference gaps in times exceeding
// maxGap, as [t[i], t[i+1]] intervals.
func findGaps(times []float64, maxGap float64) []Interval {
	var gaps []Interval
	for i := 1; i < len(times); i++ {
		if times[i]-times[i-1] > maxGap {
			gaps = append(gaps, Interval{Start: times[i-1], End: times[i]})
		}
	}
	return gaps
}

// Gaps finds gaps in candidate that are not already accounted for by
// gaps in reference: leading/trailing coverage gaps are added first,
// then every candidate gap that contains one or more reference gaps is
// split around them, then gaps fully inside a reference gap are
// dropped and partially-overlapping gaps are trimmed to their
// non-overlapping portion. Returns non-overlapping intervals in
// increasing order.
func Gaps(candidate, reference []float64, maxGap float64) []Interval {
	if maxGap <= 0 {
		maxGap = 1.0
	}
	if len(candidate) == 0 {
		return nil
	}

	candGaps := findGaps(candidate, maxGap)
	refGaps := findGaps(reference, maxGap)

	if len(reference) > 0 {
		candMin, refMin := candidate[0], reference[0]
		if candMin > refMin+maxGap {
			candGaps = append([]Interval{{Start: refMin, End: candMin}}, candGaps...)
		}
		candMax, refMax := candidate[len(candidate)-1], reference[len(reference)-1]
		if refMax > candMax+maxGap {
			candGaps = append(candGaps, Interval{Start: candMax, End: refMax})
		}
	}

	candGaps = splitAroundContainedGaps(candGaps, refGaps)
	candGaps = trimAgainstReference(candGaps, refGaps)

	sort.Slice(candGaps, func(i, j int) bool { return candGaps[i].Start < candGaps[j].Start })
	return candGaps
}

// splitAroundContainedGaps repeatedly splits any candidate gap that
// fully contains one or more reference gaps, around every such
// contained gap, until no candidate gap contains a reference gap.
func splitAroundContainedGaps(candGaps, refGaps []Interval) []Interval {
	changed := true
	for changed {
		changed = false
		var out []Interval
		for _, cg := range candGaps {
			split := false
			for _, rg := range refGaps {
				if contains(cg, rg) && !(rg.Start == cg.Start && rg.End == cg.End) {
					if rg.Start > cg.Start {
						out = append(out, Interval{Start: cg.Start, End: rg.Start})
					}
					if rg.End < cg.End {
						out = append(out, Interval{Start: rg.End, End: cg.End})
					}
					split = true
					changed = true
					break
				}
			}
			if !split {
				out = append(out, cg)
			}
		}
		candGaps = out
	}
	return candGaps
}

// trimAgainstReference drops candidate gaps fully inside a reference
// gap and trims partially-overlapping ones to their non-overlapping
// portion.
func trimAgainstReference(candGaps, refGaps []Interval) []Interval {
	var out []Interval
	for _, cg := range candGaps {
		kept := cg
		dropped := false
		for _, rg := range refGaps {
			if contains(rg, cg) {
				dropped = true
				break
			}
			if overlaps(kept, rg) {
				kept = trim(kept, rg)
			}
		}
		if !dropped && kept.End > kept.Start {
			out = append(out, kept)
		}
	}
	return out
}

func contains(outer, inner Interval) bool {
	return outer.Start <= inner.Start && outer.End >= inner.End
}

func overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// trim narrows a to the portion not overlapping b, preferring to keep
// the leading remainder when b overlaps from the trailing side and
// vice versa.
func trim(a, b Interval) Interval {
	if b.Start <= a.Start {
		if b.End < a.End {
			return Interval{Start: b.End, End: a.End}
		}
		return Interval{Start: a.Start, End: a.Start}
	}
	if b.End >= a.End {
		return Interval{Start: a.Start, End: b.Start}
	}
	return a
}
