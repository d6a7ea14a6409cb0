// Package ragged implements the Ragged-Beam Helpers: stacking and
// unstacking a (time, beam) array around its NaN/fill mask, and
// flattening a 2-D array to 1-D by a per-row validity mask, grounded
// directly on
// original_source/HSTB/kluster/xarray_helpers.py::stack_nan_array,
// reform_nan_array and flatten_bool_xarray.
package ragged

import "math"

// Index identifies one (time, beam) cell.
type Index struct {
	Row int
	Col int
}

// StackNaN flattens a (rows, cols) row-major array, keeping only
// positions where the value is not NaN, and returns both the kept
// values and the original (row, col) index of each.
func StackNaN(arr []float64, rows, cols int) (indices []Index, flat []float64) {
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := arr[r*cols+c]
			if math.IsNaN(v) {
				continue
			}
			indices = append(indices, Index{Row: r, Col: c})
			flat = append(flat, v)
		}
	}
	return indices, flat
}

// ReformNaN is StackNaN's inverse: it allocates a (rows, cols) array
// filled with NaN and scatters flat back into it at the positions
// named by indices.
func ReformNaN(flat []float64, indices []Index, rows, cols int) []float64 {
	out := make([]float64, rows*cols)
	for i := range out {
		out[i] = math.NaN()
	}
	for i, idx := range indices {
		out[idx.Row*cols+idx.Col] = flat[i]
	}
	return out
}

// FlattenByMask takes a (rows, cols) row-major array whose mask cond
// marks at most one valid column per row, and returns a 1-D array over
// rows whose i-th element is arr[i, j] for the first j where cond[i*cols+j]
// is true (equivalent to arr[i, argmax(notnull(arr[i]))] for a mask
// derived from non-null positions).
func FlattenByMask(arr []float64, cond []bool, rows, cols int) []float64 {
	out := make([]float64, rows)
	for r := 0; r < rows; r++ {
		out[r] = math.NaN()
		for c := 0; c < cols; c++ {
			if cond[r*cols+c] {
				out[r] = arr[r*cols+c]
				break
			}
		}
	}
	return out
}
