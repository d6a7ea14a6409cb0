package layout

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/scigolib/swathstore"
	"github.com/scigolib/swathstore/internal/xerrors"
)

// Array is a handle onto one named, typed, chunked array within a
// Group. Its descriptor (dtype, shape, chunks, dim_names) is cached in
// memory and persisted to disk on every metadata mutation.
type Array struct {
	group *Group
	name  string
	dir   string
	desc  *descriptor
}

// Name returns the array's variable name.
func (a *Array) Name() string { return a.name }

// DType returns the array's element type.
func (a *Array) DType() swathstore.DType { return a.desc.DType }

// Shape returns a copy of the array's current dimension sizes.
func (a *Array) Shape() []uint64 {
	return append([]uint64(nil), a.desc.Shape...)
}

// Chunks returns a copy of the array's fixed chunk grid.
func (a *Array) Chunks() []uint64 {
	return append([]uint64(nil), a.desc.Chunks...)
}

// DimNames returns a copy of the array's dimension name annotation.
func (a *Array) DimNames() []string {
	return append([]string(nil), a.desc.DimNames...)
}

// SetDimNames stamps the dimension-name annotation after a variable
// write, matching Chunk Writer step 5.
func (a *Array) SetDimNames(names []string) error {
	return a.group.withLock(func() error {
		a.desc.DimNames = append([]string(nil), names...)
		return saveDescriptor(a.dir, a.desc)
	})
}

// RowWidth returns the product of every dimension after the first
// (the append dim); 1 for a 1-D array, the beam count for a 2-D array.
func (a *Array) RowWidth() uint64 {
	width := uint64(1)
	for _, d := range a.desc.Shape[1:] {
		width *= d
	}
	return width
}

// ChunkSize returns the fixed append-dim chunk size.
func (a *Array) ChunkSize() uint64 {
	return a.desc.Chunks[0]
}

// NumChunks returns the number of chunks needed to cover the array's
// current append-dim length.
func (a *Array) NumChunks() uint64 {
	return TotalChunks(a.desc.Shape[0], a.ChunkSize())
}

func (a *Array) chunkPath(idx uint64) string {
	name := fmt.Sprintf(chunkFilePattern, idx)
	if a.desc.DType == swathstore.Text {
		name = fmt.Sprintf(chunkFileTextPattern, idx)
	}
	return filepath.Join(a.dir, name)
}

// chunkRowsFor returns the actual row count of chunk idx given total
// chunks and the append-dim length: every chunk but the last is exactly
// ChunkSize rows, the last is the remainder.
func (a *Array) chunkRowsFor(idx, totalChunks, appendLen uint64) uint64 {
	if idx+1 < totalChunks {
		return a.ChunkSize()
	}
	return appendLen - idx*a.ChunkSize()
}

// ReadChunk returns chunk idx's data as a typed slice of
// chunkRows*RowWidth elements. A chunk that has never been written
// synthesizes the array's fill value rather than failing, satisfying
// the invariant that every position holds a real value or a fill
// value.
func (a *Array) ReadChunk(idx uint64) (any, error) {
	rows := a.chunkRowsFor(idx, a.NumChunks(), a.desc.Shape[0])
	count := int(rows * a.RowWidth())

	path := a.chunkPath(idx)
	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if a.desc.DType == swathstore.Text {
				return fillTextSlice(count), nil
			}
			return decodeFillOnly(a.desc.DType, count), nil
		}
		return nil, xerrors.Wrap(xerrors.KindIO, "read chunk "+path, err)
	}

	if a.desc.DType == swathstore.Text {
		return decodeText(buf)
	}
	return decodeElems(a.desc.DType, buf, count)
}

func decodeFillOnly(dtype swathstore.DType, count int) any {
	buf := fillBuffer(dtype, count)
	v, _ := decodeElems(dtype, buf, count)
	return v
}

// WriteChunk encodes data and writes it to chunk idx atomically via
// write-temp-then-rename.
func (a *Array) WriteChunk(idx uint64, data any) error {
	var buf []byte
	var err error
	if a.desc.DType == swathstore.Text {
		buf, err = encodeText(data)
	} else {
		buf, err = encodeElems(a.desc.DType, data)
	}
	if err != nil {
		return err
	}

	path := a.chunkPath(idx)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return xerrors.Wrap(xerrors.KindIO, "write temp chunk "+tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return xerrors.Wrap(xerrors.KindIO, "rename chunk into place "+path, err)
	}
	return nil
}

// rewriteChunkWiderLocked reads an existing chunk at oldWidth columns,
// backfills columns [oldWidth, newWidth) with the fill value on every
// row, and rewrites it. Caller must already hold the group lock.
func (a *Array) rewriteChunkWiderLocked(idx, rows, oldWidth, newWidth uint64) error {
	path := a.chunkPath(idx)

	if a.desc.DType == swathstore.Text {
		buf, err := os.ReadFile(path)
		if err != nil {
			return xerrors.Wrap(xerrors.KindIO, "read chunk for widen "+path, err)
		}
		old, err := decodeText(buf)
		if err != nil {
			return err
		}
		wide := make([]string, rows*newWidth)
		for r := uint64(0); r < rows; r++ {
			copy(wide[r*newWidth:r*newWidth+oldWidth], old[r*oldWidth:r*oldWidth+oldWidth])
		}
		return a.WriteChunk(idx, wide)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return xerrors.Wrap(xerrors.KindIO, "read chunk for widen "+path, err)
	}
	old, err := decodeElems(a.desc.DType, raw, int(rows*oldWidth))
	if err != nil {
		return err
	}

	elemSize := a.desc.DType.ElemSize()
	wideBuf := make([]byte, int(rows*newWidth)*elemSize)
	fillRow := fillBuffer(a.desc.DType, int(newWidth))
	oldBuf, err := encodeElems(a.desc.DType, old)
	if err != nil {
		return err
	}
	oldRowBytes := int(oldWidth) * elemSize
	newRowBytes := int(newWidth) * elemSize
	for r := uint64(0); r < rows; r++ {
		dst := wideBuf[int(r)*newRowBytes : (int(r)+1)*newRowBytes]
		copy(dst, fillRow)
		copy(dst[:oldRowBytes], oldBuf[int(r)*oldRowBytes:(int(r)+1)*oldRowBytes])
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, wideBuf, 0o644); err != nil {
		return xerrors.Wrap(xerrors.KindIO, "write widened chunk "+tmp, err)
	}
	return xerrors.Wrap(xerrors.KindIO, "rename widened chunk into place "+path, os.Rename(tmp, path))
}
