package store

import "github.com/scigolib/swathstore/internal/layout"

// Resize is the resize_zarr-equivalent standalone entry point
// (original_source/HSTB/kluster/xarray_helpers.py::resize_zarr,
// lines 713-735): it corrects the append-dim length of every
// time-indexed array in a group outside of a dispatched write, for
// callers recovering from a coordinated write that applied
// final_size but left some tasks unwritten.
func Resize(group *layout.Group, newLength uint64) error {
	return preResizeAppendDim(group, newLength)
}
