// Package store implements the Chunk Writer and Write Dispatcher: the
// operation that places one batch at a caller-given row range, and the
// fan-out that runs a sequence of those operations across workers
// with a single task-0 barrier.
package store

import (
	"sort"

	gojson "github.com/goccy/go-json"

	"github.com/scigolib/swathstore"
	"github.com/scigolib/swathstore/internal/layout"
	"github.com/scigolib/swathstore/internal/merge"
	"github.com/scigolib/swathstore/internal/xerrors"
)

// RowRange is a half-open row interval along an array's append dim.
type RowRange = layout.RowRange

const (
	coordBeam = "beam"
	coordXYZ  = "xyz"
	timeVar   = "time"
)

func isStaticCoordinate(name string) bool {
	return name == coordBeam || name == coordXYZ
}

// RebaseOffsets is the rebase_write_offsets entry point (spec.md §4.H):
// given the caller's candidate row ranges for name, computed as if the
// array were empty, it shifts them to land immediately after the
// array's current append-dim length. An array that does not exist yet
// is treated as length zero, so its ranges pass through unchanged.
// Fails with RechunkUnsupported when more than one range is queued and
// the first range's length disagrees with targetChunkSize.
func RebaseOffsets(group *layout.Group, name string, ranges []RowRange, targetChunkSize uint64) ([]RowRange, error) {
	var existingLen uint64
	if arr, ok := group.Array(name); ok {
		existingLen = arr.Shape()[0]
	}
	return layout.RebaseWriteOffsets(existingLen, targetChunkSize, ranges)
}

// Write places batch at rowRange within group, the Chunk Writer
// operation. When finalSize is non-nil (the first task of a
// coordinated write) every pre-existing time-indexed array's append dim
// is resized to *finalSize and attrs are merged into the group's
// attributes before the batch is applied; attrs are ignored when
// finalSize is nil. When merge is true, batch
// introduces at least one variable not previously in the group and
// its row range must already lie within the group's existing range.
func Write(group *layout.Group, batch swathstore.Batch, attrs map[string]gojson.RawMessage, rowRange RowRange, finalSize *uint64, merge_ bool) error {
	if merge_ {
		if err := verifyMergeBounds(group, batch, rowRange); err != nil {
			return err
		}
	}

	if finalSize != nil {
		if err := preResizeAppendDim(group, *finalSize); err != nil {
			return err
		}
		if err := mergeAttrs(group, attrs); err != nil {
			return err
		}
	}

	if err := growSecondaryDimIfNeeded(group, batch); err != nil {
		return err
	}

	names := make([]string, 0, len(batch))
	for name := range batch {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := batch[name]
		actualRange := narrowToActualLength(rowRange, v)

		if isStaticCoordinate(name) {
			if err := writeOrVerifyCoordinate(group, name, v); err != nil {
				return err
			}
			continue
		}

		if err := writeVariable(group, name, v, actualRange, finalSize, merge_); err != nil {
			return err
		}
	}

	return nil
}

// narrowToActualLength implements step 6: if the batch's own row count
// falls short of the declared row_range span, narrow the written
// slice to the actual batch length instead of reading past it.
func narrowToActualLength(rowRange RowRange, v *swathstore.Variable) RowRange {
	if len(v.Shape) == 0 {
		return rowRange
	}
	actualLen := v.Shape[0]
	if rowRange.Start+actualLen < rowRange.End {
		return RowRange{Start: rowRange.Start, End: rowRange.Start + actualLen}
	}
	return rowRange
}

func verifyMergeBounds(group *layout.Group, batch swathstore.Batch, rowRange RowRange) error {
	timeVariable, ok := batch[timeVar]
	if !ok {
		return nil
	}
	existing, ok := group.Array(timeVar)
	if !ok {
		return xerrors.New(xerrors.KindMergeBounds, "merge write with no existing time array in group")
	}
	if rowRange.Start >= existing.Shape()[0] {
		return xerrors.New(xerrors.KindMergeBounds, "merge write row range starts outside existing store range")
	}

	existingAtStart, err := existing.ReadRows(rowRange.Start, rowRange.Start+1)
	if err != nil {
		return xerrors.Wrap(xerrors.KindMergeBounds, "read existing time for merge bounds check", err)
	}
	if !firstElementEqual(existingAtStart, timeVariable.Data) {
		return xerrors.New(xerrors.KindMergeBounds, "merge batch's first time value does not match existing store time at row_range.start")
	}
	return nil
}

func firstElementEqual(existing, incoming any) bool {
	switch e := existing.(type) {
	case []float64:
		in, ok := incoming.([]float64)
		return ok && len(e) > 0 && len(in) > 0 && e[0] == in[0]
	case []float32:
		in, ok := incoming.([]float32)
		return ok && len(e) > 0 && len(in) > 0 && e[0] == in[0]
	case []int64:
		in, ok := incoming.([]int64)
		return ok && len(e) > 0 && len(in) > 0 && e[0] == in[0]
	default:
		return false
	}
}

// preResizeAppendDim resizes every pre-existing array that is actually
// indexed along the append dimension. Static coordinate arrays such as
// "beam" and "xyz" have their own non-append first dimension and are
// never touched here — only arrays whose dim_names[0] is the append
// dim name participate in the coordinated resize.
func preResizeAppendDim(group *layout.Group, finalSize uint64) error {
	names, err := group.ArrayNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		if isStaticCoordinate(name) {
			continue
		}
		arr, ok := group.Array(name)
		if !ok || len(arr.DimNames()) == 0 || arr.DimNames()[0] != timeVar {
			continue
		}
		if err := group.ResizeArrayAppend(name, finalSize); err != nil {
			return err
		}
	}
	return nil
}

func mergeAttrs(group *layout.Group, attrs map[string]gojson.RawMessage) error {
	if len(attrs) == 0 {
		return nil
	}
	existing := group.Attrs()
	merged, err := merge.Merge([]map[string]gojson.RawMessage{existing, attrs})
	if err != nil {
		return err
	}
	return group.SetAttrs(merged)
}

// groupSecondaryLen returns the secondary-dim size shared by the
// group's rank-2-or-more arrays, or 0 if none exist yet.
func groupSecondaryLen(group *layout.Group) (uint64, error) {
	names, err := group.ArrayNames()
	if err != nil {
		return 0, err
	}
	for _, name := range names {
		arr, ok := group.Array(name)
		if !ok {
			continue
		}
		shape := arr.Shape()
		if len(shape) >= 2 {
			return shape[1], nil
		}
	}
	return 0, nil
}

// batchSecondaryLen returns the secondary-dim size carried by the
// batch's rank-2-or-more variables, or 0 if none.
func batchSecondaryLen(batch swathstore.Batch) uint64 {
	for _, v := range batch {
		if len(v.Shape) >= 2 {
			return v.Shape[1]
		}
	}
	return 0
}

func growSecondaryDimIfNeeded(group *layout.Group, batch swathstore.Batch) error {
	newWidth := batchSecondaryLen(batch)
	if newWidth == 0 {
		return nil
	}
	currentWidth, err := groupSecondaryLen(group)
	if err != nil {
		return err
	}
	if newWidth <= currentWidth {
		return nil
	}

	names, err := group.ArrayNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		arr, ok := group.Array(name)
		if !ok {
			continue
		}
		shape := arr.Shape()
		if len(shape) >= 2 && shape[1] == currentWidth {
			if err := group.GrowSecondaryDim(name, newWidth); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeOrVerifyCoordinate(group *layout.Group, name string, v *swathstore.Variable) error {
	arr, exists := group.Array(name)
	if !exists {
		return createAndWriteNew(group, name, v, RowRange{Start: 0, End: v.Shape[0]}, nil, false)
	}

	existingRange := RowRange{Start: 0, End: min64(v.Shape[0], arr.Shape()[0])}
	existing, err := arr.ReadRows(existingRange.Start, existingRange.End)
	if err != nil {
		return err
	}
	if !sliceEqual(existing, v.Data, int(existingRange.Len())*int(arr.RowWidth())) {
		return xerrors.New(xerrors.KindCoordConflict, "coordinate "+name+" differs from existing store value")
	}
	return nil
}

func writeVariable(group *layout.Group, name string, v *swathstore.Variable, rowRange RowRange, finalSize *uint64, merge_ bool) error {
	arr, exists := group.Array(name)
	if exists {
		if err := arr.WriteRows(rowRange.Start, rowRange.End, v.Data); err != nil {
			return err
		}
		return arr.SetDimNames(v.DimNames)
	}

	if !merge_ {
		return createAndWriteNew(group, name, v, rowRange, finalSize, false)
	}
	return createAndWriteNew(group, name, v, rowRange, nil, true)
}

// createAndWriteNew implements Chunk Writer step 4's "variable is
// new" branch. In non-merge mode the array is created at the batch's
// own shape and then resized to finalSize. In merge mode it is
// created at the group's current append-dim length, with positions
// outside rowRange left at the fill value.
func createAndWriteNew(group *layout.Group, name string, v *swathstore.Variable, rowRange RowRange, finalSize *uint64, mergeMode bool) error {
	dtype, err := inferDType(v.Data)
	if err != nil {
		return err
	}

	shape := append([]uint64(nil), v.Shape...)
	chunkSize := v.ChunkSize
	if chunkSize == 0 {
		chunkSize = shape[0]
	}

	if mergeMode {
		groupLen, err := currentGroupAppendLen(group)
		if err != nil {
			return err
		}
		shape[0] = groupLen
	}

	chunks := append([]uint64(nil), shape...)
	chunks[0] = chunkSize

	arr, err := group.CreateArray(swathstore.ArraySpec{
		Name: name, DType: dtype, Shape: shape, Chunks: chunks, DimNames: v.DimNames,
	})
	if err != nil {
		return err
	}

	if !mergeMode && finalSize != nil && *finalSize > shape[0] {
		if err := group.ResizeArrayAppend(name, *finalSize); err != nil {
			return err
		}
	}

	if err := arr.WriteRows(rowRange.Start, rowRange.End, v.Data); err != nil {
		return err
	}
	return arr.SetDimNames(v.DimNames)
}

func currentGroupAppendLen(group *layout.Group) (uint64, error) {
	names, err := group.ArrayNames()
	if err != nil {
		return 0, err
	}
	var maxLen uint64
	for _, name := range names {
		if isStaticCoordinate(name) {
			continue
		}
		arr, ok := group.Array(name)
		if !ok || len(arr.DimNames()) == 0 || arr.DimNames()[0] != timeVar {
			continue
		}
		if l := arr.Shape()[0]; l > maxLen {
			maxLen = l
		}
	}
	return maxLen, nil
}

func inferDType(data any) (swathstore.DType, error) {
	switch data.(type) {
	case []float32:
		return swathstore.Float32, nil
	case []float64:
		return swathstore.Float64, nil
	case []int32:
		return swathstore.Int32, nil
	case []int64:
		return swathstore.Int64, nil
	case []uint8:
		return swathstore.Uint8, nil
	case []string:
		return swathstore.Text, nil
	default:
		return 0, xerrors.New(xerrors.KindSchemaConflict, "unsupported variable element type")
	}
}

func sliceEqual(a, b any, n int) bool {
	switch av := a.(type) {
	case []float32:
		bv, ok := b.([]float32)
		if !ok || len(av) < n || len(bv) < n {
			return false
		}
		for i := 0; i < n; i++ {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case []float64:
		bv, ok := b.([]float64)
		if !ok || len(av) < n || len(bv) < n {
			return false
		}
		for i := 0; i < n; i++ {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case []int32:
		bv, ok := b.([]int32)
		if !ok || len(av) < n || len(bv) < n {
			return false
		}
		for i := 0; i < n; i++ {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case []int64:
		bv, ok := b.([]int64)
		if !ok || len(av) < n || len(bv) < n {
			return false
		}
		for i := 0; i < n; i++ {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case []uint8:
		bv, ok := b.([]uint8)
		if !ok || len(av) < n || len(bv) < n {
			return false
		}
		for i := 0; i < n; i++ {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case []string:
		bv, ok := b.([]string)
		if !ok || len(av) < n || len(bv) < n {
			return false
		}
		for i := 0; i < n; i++ {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
