package layout

import (
	"encoding/binary"
	"math"

	gojson "github.com/goccy/go-json"

	"github.com/scigolib/swathstore"
	"github.com/scigolib/swathstore/internal/xerrors"
)

// encodeElems flattens a typed slice into little-endian bytes. Text is
// handled separately by encodeText since it has no fixed element size.
func encodeElems(dtype swathstore.DType, data any) ([]byte, error) {
	switch dtype {
	case swathstore.Float32:
		v, ok := data.([]float32)
		if !ok {
			return nil, xerrors.New(xerrors.KindIO, "encode: expected []float32")
		}
		buf := make([]byte, len(v)*4)
		for i, f := range v {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
		}
		return buf, nil
	case swathstore.Float64:
		v, ok := data.([]float64)
		if !ok {
			return nil, xerrors.New(xerrors.KindIO, "encode: expected []float64")
		}
		buf := make([]byte, len(v)*8)
		for i, f := range v {
			binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
		}
		return buf, nil
	case swathstore.Int32:
		v, ok := data.([]int32)
		if !ok {
			return nil, xerrors.New(xerrors.KindIO, "encode: expected []int32")
		}
		buf := make([]byte, len(v)*4)
		for i, n := range v {
			binary.LittleEndian.PutUint32(buf[i*4:], uint32(n))
		}
		return buf, nil
	case swathstore.Int64:
		v, ok := data.([]int64)
		if !ok {
			return nil, xerrors.New(xerrors.KindIO, "encode: expected []int64")
		}
		buf := make([]byte, len(v)*8)
		for i, n := range v {
			binary.LittleEndian.PutUint64(buf[i*8:], uint64(n))
		}
		return buf, nil
	case swathstore.Uint8:
		v, ok := data.([]uint8)
		if !ok {
			return nil, xerrors.New(xerrors.KindIO, "encode: expected []uint8")
		}
		buf := make([]byte, len(v))
		copy(buf, v)
		return buf, nil
	default:
		return nil, xerrors.New(xerrors.KindIO, "encode: unsupported dtype for binary chunk")
	}
}

// decodeElems inflates count little-endian elements of dtype from buf
// into a typed slice.
func decodeElems(dtype swathstore.DType, buf []byte, count int) (any, error) {
	switch dtype {
	case swathstore.Float32:
		out := make([]float32, count)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		}
		return out, nil
	case swathstore.Float64:
		out := make([]float64, count)
		for i := range out {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
		}
		return out, nil
	case swathstore.Int32:
		out := make([]int32, count)
		for i := range out {
			out[i] = int32(binary.LittleEndian.Uint32(buf[i*4:]))
		}
		return out, nil
	case swathstore.Int64:
		out := make([]int64, count)
		for i := range out {
			out[i] = int64(binary.LittleEndian.Uint64(buf[i*8:]))
		}
		return out, nil
	case swathstore.Uint8:
		out := make([]uint8, count)
		copy(out, buf[:count])
		return out, nil
	default:
		return nil, xerrors.New(xerrors.KindIO, "decode: unsupported dtype for binary chunk")
	}
}

// fillBuffer returns count copies of dtype's fill value, binary-encoded.
func fillBuffer(dtype swathstore.DType, count int) []byte {
	fill := swathstore.FillValue(dtype)
	switch dtype {
	case swathstore.Float32:
		v := fill.(float32)
		vals := make([]float32, count)
		for i := range vals {
			vals[i] = v
		}
		buf, _ := encodeElems(dtype, vals)
		return buf
	case swathstore.Float64:
		v := fill.(float64)
		vals := make([]float64, count)
		for i := range vals {
			vals[i] = v
		}
		buf, _ := encodeElems(dtype, vals)
		return buf
	case swathstore.Int32:
		v := fill.(int32)
		vals := make([]int32, count)
		for i := range vals {
			vals[i] = v
		}
		buf, _ := encodeElems(dtype, vals)
		return buf
	case swathstore.Int64:
		v := fill.(int64)
		vals := make([]int64, count)
		for i := range vals {
			vals[i] = v
		}
		buf, _ := encodeElems(dtype, vals)
		return buf
	case swathstore.Uint8:
		v := fill.(uint8)
		buf := make([]byte, count)
		for i := range buf {
			buf[i] = v
		}
		return buf
	default:
		return nil
	}
}

// encodeText serializes a []string chunk as a JSON array, since text
// elements have no fixed byte width.
func encodeText(data any) ([]byte, error) {
	v, ok := data.([]string)
	if !ok {
		return nil, xerrors.New(xerrors.KindIO, "encode: expected []string")
	}
	return gojson.Marshal(v)
}

// decodeText parses a JSON array of strings back into a []string chunk.
func decodeText(buf []byte) ([]string, error) {
	var out []string
	if err := gojson.Unmarshal(buf, &out); err != nil {
		return nil, xerrors.Wrap(xerrors.KindIO, "decode text chunk", err)
	}
	return out, nil
}

// fillTextSlice returns count copies of the text fill value ("").
func fillTextSlice(count int) []string {
	out := make([]string, count)
	return out
}
