package layout

import (
	"os"
	"path/filepath"

	gojson "github.com/goccy/go-json"

	"github.com/scigolib/swathstore"
	"github.com/scigolib/swathstore/internal/xerrors"
)

const (
	descriptorFileName   = "descriptor.json"
	attributesFileName   = "attributes.json"
	chunkFilePattern     = "chunk-%012d.bin"
	chunkFileTextPattern = "chunk-%012d.json"
)

// descriptor is the on-disk representation of an array's metadata,
// stored as <group>/<array-name>/descriptor.json.
type descriptor struct {
	DType    swathstore.DType `json:"dtype"`
	Shape    []uint64         `json:"shape"`
	Chunks   []uint64         `json:"chunks"`
	DimNames []string         `json:"dim_names"`
}

// writeJSONAtomic marshals v and writes it to path by writing to a
// sibling temp file first and renaming over the destination, so
// concurrent readers never observe a partially-written file. This is
// the write-temp-then-rename discipline the teacher's chunked dataset
// writer uses for allocate-then-write-then-verify, adapted here from
// byte-offset allocation within one file to whole-file rename since
// this store keeps one file per chunk instead of one backing file.
func writeJSONAtomic(path string, v any) error {
	data, err := gojson.MarshalIndent(v, "", "  ")
	if err != nil {
		return xerrors.Wrap(xerrors.KindIO, "marshal "+path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return xerrors.Wrap(xerrors.KindIO, "write temp file "+tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return xerrors.Wrap(xerrors.KindIO, "rename "+tmp+" to "+path, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return xerrors.Wrap(xerrors.KindIO, "read "+path, err)
	}
	if err := gojson.Unmarshal(data, v); err != nil {
		return xerrors.Wrap(xerrors.KindIO, "unmarshal "+path, err)
	}
	return nil
}

func loadDescriptor(arrayDir string) (*descriptor, error) {
	var d descriptor
	if err := readJSON(filepath.Join(arrayDir, descriptorFileName), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func saveDescriptor(arrayDir string, d *descriptor) error {
	return writeJSONAtomic(filepath.Join(arrayDir, descriptorFileName), d)
}
