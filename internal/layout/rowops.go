package layout

import "github.com/scigolib/swathstore/internal/xerrors"

// newRowBuffer allocates a typed slice of count elements, mirroring
// the element type of the slice passed as dtype.
func newRowBuffer(dtype dtypeLike, count int) any {
	switch v := dtype.(type) {
	case []float32:
		_ = v
		return make([]float32, count)
	case []float64:
		return make([]float64, count)
	case []int32:
		return make([]int32, count)
	case []int64:
		return make([]int64, count)
	case []uint8:
		return make([]uint8, count)
	case []string:
		return make([]string, count)
	default:
		return nil
	}
}

type dtypeLike = any

// copyRowRange copies n elements from src starting at element offset
// srcOff into dst at element offset dstOff,
// for any of the supported typed slice kinds.
func copyRowRange(dst, src any, dstOff, srcOff, n int) error {
	switch d := dst.(type) {
	case []float32:
		s, ok := src.([]float32)
		if !ok {
			return xerrors.New(xerrors.KindIO, "copyRowRange: type mismatch")
		}
		copy(d[dstOff:dstOff+n], s[srcOff:srcOff+n])
	case []float64:
		s, ok := src.([]float64)
		if !ok {
			return xerrors.New(xerrors.KindIO, "copyRowRange: type mismatch")
		}
		copy(d[dstOff:dstOff+n], s[srcOff:srcOff+n])
	case []int32:
		s, ok := src.([]int32)
		if !ok {
			return xerrors.New(xerrors.KindIO, "copyRowRange: type mismatch")
		}
		copy(d[dstOff:dstOff+n], s[srcOff:srcOff+n])
	case []int64:
		s, ok := src.([]int64)
		if !ok {
			return xerrors.New(xerrors.KindIO, "copyRowRange: type mismatch")
		}
		copy(d[dstOff:dstOff+n], s[srcOff:srcOff+n])
	case []uint8:
		s, ok := src.([]uint8)
		if !ok {
			return xerrors.New(xerrors.KindIO, "copyRowRange: type mismatch")
		}
		copy(d[dstOff:dstOff+n], s[srcOff:srcOff+n])
	case []string:
		s, ok := src.([]string)
		if !ok {
			return xerrors.New(xerrors.KindIO, "copyRowRange: type mismatch")
		}
		copy(d[dstOff:dstOff+n], s[srcOff:srcOff+n])
	default:
		return xerrors.New(xerrors.KindIO, "copyRowRange: unsupported element type")
	}
	return nil
}

// rowLen returns the element count of any supported typed slice.
func rowLen(v any) int {
	switch s := v.(type) {
	case []float32:
		return len(s)
	case []float64:
		return len(s)
	case []int32:
		return len(s)
	case []int64:
		return len(s)
	case []uint8:
		return len(s)
	case []string:
		return len(s)
	default:
		return 0
	}
}

// ReadRows reads rows [start, end) at the array's full current row
// width, assembling the result across every chunk file that range
// touches. Rows within a not-yet-written chunk read as the array's
// fill value.
func (a *Array) ReadRows(start, end uint64) (any, error) {
	width := a.RowWidth()
	slices, err := ChunkSlices(start, end, a.ChunkSize())
	if err != nil {
		return nil, err
	}

	var out any
	outOff := 0
	for _, sl := range slices {
		chunkData, err := a.ReadChunk(sl.ChunkIndex)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = newRowBuffer(chunkData, int(end-start)*int(width))
		}
		n := int(sl.Chunk.Len()) * int(width)
		srcOff := int(sl.Chunk.Start) * int(width)
		if err := copyRowRange(out, chunkData, outOff, srcOff, n); err != nil {
			return nil, err
		}
		outOff += n
	}
	if out == nil {
		out = newRowBuffer(fillBuffer(a.desc.DType, 1), 0)
	}
	return out, nil
}

// WriteRows writes data (rows*width elements) into the array's row
// range [start, end), splitting across whichever chunk files that
// range touches and merging with each chunk's existing content.
func (a *Array) WriteRows(start, end uint64, data any) error {
	width := a.RowWidth()
	slices, err := ChunkSlices(start, end, a.ChunkSize())
	if err != nil {
		return err
	}

	dataOff := 0
	for _, sl := range slices {
		n := int(sl.Chunk.Len()) * int(width)

		existing, err := a.ReadChunk(sl.ChunkIndex)
		if err != nil {
			return err
		}
		dstOff := int(sl.Chunk.Start) * int(width)
		if err := copyRowRange(existing, data, dstOff, dataOff, n); err != nil {
			return err
		}
		if err := a.WriteChunk(sl.ChunkIndex, existing); err != nil {
			return err
		}
		dataOff += n
	}
	return nil
}
