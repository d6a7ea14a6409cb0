package store

import (
	"math"
	"sort"
)

// SliceByTime returns the row range covering [start, end] of the
// "time" array using nearest-match semantics, the same selection rule
// as original_source/HSTB/kluster/xarray_helpers.py::slice_xarray_by_dim
// (an xarray `.sel(time=slice(start,end), method='nearest')`). This
// supplements the otherwise write-only specification with the minimal
// read-side helper the Interpolator and Gap Detector both need to pick
// a time window before calling into interp/gaps.
func SliceByTime(view *View, start, end float64) (RowRange, error) {
	arr, ok := view.Array(timeVar)
	if !ok {
		return RowRange{}, nil
	}

	raw, err := view.ReadRows(timeVar, 0, arr.Shape()[0])
	if err != nil {
		return RowRange{}, err
	}
	times, err := toFloat64Slice(raw)
	if err != nil {
		return RowRange{}, err
	}
	if len(times) == 0 {
		return RowRange{}, nil
	}

	startIdx := nearestIndex(times, start)
	endIdx := nearestIndex(times, end)
	if endIdx < startIdx {
		endIdx = startIdx
	}
	return RowRange{Start: uint64(startIdx), End: uint64(endIdx) + 1}, nil
}

// nearestIndex finds the index of the element of a non-decreasing
// series closest to target.
func nearestIndex(series []float64, target float64) int {
	i := sort.SearchFloat64s(series, target)
	if i == 0 {
		return 0
	}
	if i >= len(series) {
		return len(series) - 1
	}
	if math.Abs(series[i]-target) < math.Abs(series[i-1]-target) {
		return i
	}
	return i - 1
}

func toFloat64Slice(v any) ([]float64, error) {
	switch s := v.(type) {
	case []float64:
		return s, nil
	case []float32:
		out := make([]float64, len(s))
		for i, f := range s {
			out[i] = float64(f)
		}
		return out, nil
	default:
		return nil, nil
	}
}
