package layout

import "github.com/scigolib/swathstore/internal/xerrors"

// RowRange is a half-open row interval [Start, End) along an array's
// primary (append) dimension.
type RowRange struct {
	Start uint64
	End   uint64
}

// Len returns the number of rows covered by the range.
func (r RowRange) Len() uint64 {
	return r.End - r.Start
}

// ChunkSlice is one physical chunk's contribution to a logical row range:
// ChunkIndex identifies the chunk file, Chunk is the row range expressed in
// chunk-local coordinates, and Global is the same range in array-global
// coordinates.
type ChunkSlice struct {
	ChunkIndex uint64
	Chunk      RowRange
	Global     RowRange
}

// ChunkSlices partitions the global row range [start, end) into one
// ChunkSlice per physical chunk it touches, using chunkSize as the fixed
// size of every chunk but the last. This mirrors return_chunk_slices from
// the kluster write path: a write or read spanning several chunks never
// crosses a chunk boundary mid-slice, so downstream code can always
// operate one physical file at a time.
//
// chunkSize must be greater than zero and start must not exceed end.
func ChunkSlices(start, end, chunkSize uint64) ([]ChunkSlice, error) {
	if chunkSize == 0 {
		return nil, xerrors.New(xerrors.KindIO, "chunk slice: chunkSize must be > 0")
	}
	if start > end {
		return nil, xerrors.New(xerrors.KindIO, "chunk slice: start exceeds end")
	}
	if start == end {
		return nil, nil
	}

	var slices []ChunkSlice
	for pos := start; pos < end; {
		chunkIdx := pos / chunkSize
		chunkStart := chunkIdx * chunkSize
		chunkEnd := chunkStart + chunkSize
		sliceEnd := end
		if chunkEnd < sliceEnd {
			sliceEnd = chunkEnd
		}

		slices = append(slices, ChunkSlice{
			ChunkIndex: chunkIdx,
			Chunk: RowRange{
				Start: pos - chunkStart,
				End:   sliceEnd - chunkStart,
			},
			Global: RowRange{Start: pos, End: sliceEnd},
		})

		pos = sliceEnd
	}
	return slices, nil
}

// TotalChunks returns the number of chunks needed to cover length rows at
// chunkSize rows per chunk, using ceiling division the same way
// writer.ChunkCoordinator sizes a dataset's chunk grid.
func TotalChunks(length, chunkSize uint64) uint64 {
	if chunkSize == 0 || length == 0 {
		return 0
	}
	return (length + chunkSize - 1) / chunkSize
}

// RebaseWriteOffsets translates the caller's candidate row ranges
// (computed as if the array were empty, i.e. starting at 0) so they
// append immediately after an array's current length, rather than
// starting at zero: "my batch is rows [0,n)" becomes "my batch
// actually lands at [existingLen, existingLen+n)". On an empty or
// not-yet-existing array (existingLen == 0) the ranges are returned
// unchanged.
//
// chunkSize is the array's fixed append-dim chunk size. When more than
// one range is queued, the first range's length must match chunkSize —
// the store has no rechunking facility to reconcile a queued batch
// against a chunk grid that was already fixed by an earlier write —
// and RebaseWriteOffsets fails with RechunkUnsupported otherwise.
func RebaseWriteOffsets(existingLen, chunkSize uint64, ranges []RowRange) ([]RowRange, error) {
	if existingLen == 0 {
		return ranges, nil
	}
	if len(ranges) > 1 && ranges[0].Len() != chunkSize {
		return nil, xerrors.New(xerrors.KindRechunkUnsupp,
			"rebase write offsets: first queued range length disagrees with the array's chunk size")
	}

	out := make([]RowRange, len(ranges))
	for i, r := range ranges {
		out[i] = RowRange{Start: existingLen + r.Start, End: existingLen + r.End}
	}
	return out, nil
}
