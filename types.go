// Package swathstore implements a chunked, columnar datastore for
// multibeam sonar time series: typed N-dimensional arrays sharing a
// common append dimension (time) and an optional ragged secondary
// dimension (beam), written by parallel workers and read back through a
// chunk-aware interpolation and gap-detection layer.
package swathstore

import (
	"fmt"
	"math"
)

// DType identifies the element type of an Array.
type DType int

// Supported element types. Text arrays are stored as variable-length
// strings rather than a fixed-width encoding.
const (
	Float32 DType = iota
	Float64
	Int32
	Int64
	Uint8
	Text
)

// String renders the DType name, used in descriptor files and error
// messages.
func (d DType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Text:
		return "text"
	default:
		return "unknown"
	}
}

// MarshalJSON renders a DType as its lowercase name, so descriptor.json
// files stay human-readable.
func (d DType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON parses a DType from its lowercase name.
func (d *DType) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	switch s {
	case "float32":
		*d = Float32
	case "float64":
		*d = Float64
	case "int32":
		*d = Int32
	case "int64":
		*d = Int64
	case "uint8":
		*d = Uint8
	case "text":
		*d = Text
	default:
		return fmt.Errorf("unknown dtype %q", s)
	}
	return nil
}

// ElemSize returns the on-disk size in bytes of one element of the
// given type. Text has no fixed size and returns 0; its chunks are
// stored as a JSON array of strings rather than a flat binary array.
func (d DType) ElemSize() int {
	switch d {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	case Uint8:
		return 1
	default:
		return 0
	}
}

// FillValue returns the single no-data sentinel for dtype: NaN for
// floats, 999 for the wider int types, 255 for Uint8 (999 does not fit
// in a byte), and the empty string for text. This is the one place the
// sentinel is defined; nothing else in the module should hardcode
// these values.
func FillValue(dtype DType) any {
	switch dtype {
	case Float32:
		return float32(math.NaN())
	case Float64:
		return math.NaN()
	case Int32:
		return int32(999)
	case Int64:
		return int64(999)
	case Uint8:
		return uint8(255)
	case Text:
		return ""
	default:
		return nil
	}
}

// ArraySpec describes an array at creation time: its name, element
// type, starting shape, and fixed chunk grid (same rank as Shape).
// Chunks[0] is the append-dimension chunk size; Chunks[i] for i>0 must
// equal Shape[i], since only one chunking axis is supported.
type ArraySpec struct {
	Name     string
	DType    DType
	Shape    []uint64
	Chunks   []uint64
	DimNames []string
}

// Variable is one named block of a Batch: a row-major flattened typed
// slice ([]float32, []float64, []int32, []int64, []uint8, or
// []string) plus the dimension names and shape it was produced with.
//
// ChunkSize is the append-dim chunk size to use if this is the first
// batch to introduce the variable; zero means "use this batch's own
// row count", matching the source's convention of chunking a newly
// written dataset at its first dask chunk size. Ignored once the
// variable already exists — an array's chunk size is fixed at
// creation and never revisited.
type Variable struct {
	DimNames  []string
	Shape     []uint64
	Data      any
	ChunkSize uint64
}

// Batch is an in-memory collection of variables sharing an append-dim
// length, about to be written at a caller-specified row range. It
// lives only for the duration of a write call.
type Batch map[string]*Variable
