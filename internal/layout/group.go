// Package layout implements the Path/Chunk Layout component: an
// on-disk group of named typed arrays with a per-array fixed chunk
// grid, group-level attributes, and a per-path advisory lock
// serializing metadata mutation across processes.
package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	gojson "github.com/goccy/go-json"

	"github.com/scigolib/swathstore"
	"github.com/scigolib/swathstore/internal/xerrors"
)

// Group is a persistent container identified by a filesystem path. It
// holds an ordered set of arrays and a JSON-serializable attribute
// dictionary. Concurrent Open calls from multiple processes are safe
// and share the same on-disk bytes; metadata mutation is serialized by
// an advisory file lock rooted at the group path.
type Group struct {
	path string

	lockPath string
	flk      *flock.Flock
	mu       sync.Mutex // in-process guard; flock only arbitrates across processes

	attrs  map[string]gojson.RawMessage
	arrays map[string]*Array
}

// Open creates the group directory if absent and loads its existing
// attributes and array registry. Safe to call concurrently from
// multiple workers pointed at the same path.
func Open(path string) (*Group, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, xerrors.Wrap(xerrors.KindIO, "open group "+path, err)
	}

	lockPath := filepath.Join(path, ".lock")
	g := &Group{
		path:     path,
		lockPath: lockPath,
		flk:      flock.New(lockPath),
		attrs:    map[string]gojson.RawMessage{},
		arrays:   map[string]*Array{},
	}

	attrsPath := filepath.Join(path, attributesFileName)
	if _, err := os.Stat(attrsPath); err == nil {
		if err := readJSON(attrsPath, &g.attrs); err != nil {
			return nil, err
		}
	}

	names, err := g.ArrayNames()
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if _, err := g.loadArray(name); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// Path returns the group's filesystem root.
func (g *Group) Path() string {
	return g.path
}

// withLock serializes fn against every other process holding the same
// group path, acquiring the in-process mutex first so two goroutines
// in this process never race to take the file lock.
func (g *Group) withLock(fn func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.flk.Lock(); err != nil {
		return xerrors.Wrap(xerrors.KindIO, "lock group "+g.path, err)
	}
	defer g.flk.Unlock() //nolint:errcheck // best-effort unlock, mirrors teacher's defer-close discipline

	return fn()
}

// ArrayNames lists the variable names currently registered in the
// group, derived from sub-directories that contain a descriptor.json.
func (g *Group) ArrayNames() ([]string, error) {
	entries, err := os.ReadDir(g.path)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindIO, "list arrays in "+g.path, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(g.path, e.Name(), descriptorFileName)); err == nil {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (g *Group) loadArray(name string) (*Array, error) {
	dir := filepath.Join(g.path, name)
	desc, err := loadDescriptor(dir)
	if err != nil {
		return nil, err
	}
	a := &Array{group: g, name: name, dir: dir, desc: desc}
	g.arrays[name] = a
	return a, nil
}

// Array returns the named array's handle, or false if it has not been
// created yet.
func (g *Group) Array(name string) (*Array, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	a, ok := g.arrays[name]
	return a, ok
}

// CreateArray registers a new array with the given spec, or returns
// the existing array if one of that name already exists with an
// identical dtype and chunk grid. Fails with SchemaConflict if an
// existing array of that name has a different dtype or chunk size.
func (g *Group) CreateArray(spec swathstore.ArraySpec) (*Array, error) {
	if len(spec.Shape) != len(spec.Chunks) {
		return nil, xerrors.New(xerrors.KindSchemaConflict,
			fmt.Sprintf("array %q: shape rank %d does not match chunks rank %d", spec.Name, len(spec.Shape), len(spec.Chunks)))
	}

	var created *Array
	err := g.withLock(func() error {
		if existing, ok := g.arrays[spec.Name]; ok {
			if existing.desc.DType != spec.DType || !equalU64(existing.desc.Chunks, spec.Chunks) {
				return xerrors.New(xerrors.KindSchemaConflict,
					fmt.Sprintf("array %q already exists with a different dtype or chunk size", spec.Name))
			}
			created = existing
			return nil
		}

		dir := filepath.Join(g.path, spec.Name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return xerrors.Wrap(xerrors.KindIO, "create array dir "+dir, err)
		}

		desc := &descriptor{
			DType:    spec.DType,
			Shape:    append([]uint64(nil), spec.Shape...),
			Chunks:   append([]uint64(nil), spec.Chunks...),
			DimNames: append([]string(nil), spec.DimNames...),
		}
		if err := saveDescriptor(dir, desc); err != nil {
			return err
		}

		a := &Array{group: g, name: spec.Name, dir: dir, desc: desc}
		g.arrays[spec.Name] = a
		created = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ResizeArrayAppend grows an array's append-dim (first-axis) length.
// Monotonically non-decreasing; this is pure metadata — chunk files
// for the newly-visible rows are created lazily by whichever task
// writes them, and reads of not-yet-written chunks synthesize the
// array's fill value.
func (g *Group) ResizeArrayAppend(name string, newLen uint64) error {
	return g.withLock(func() error {
		a, ok := g.arrays[name]
		if !ok {
			return xerrors.New(xerrors.KindIO, "resize append dim: array "+name+" not found")
		}
		if newLen < a.desc.Shape[0] {
			return xerrors.New(xerrors.KindSchemaConflict, "append dim may not shrink for array "+name)
		}
		a.desc.Shape[0] = newLen
		return saveDescriptor(a.dir, a.desc)
	})
}

// GrowSecondaryDim widens an array's second axis from its current size
// to newWidth, physically rewriting every chunk file that already
// exists on disk so its rows backfill the new columns with the array's
// fill value. Chunk files that don't exist yet need no rewrite: a
// later read synthesizes fill at the new, wider row shape directly.
func (g *Group) GrowSecondaryDim(name string, newWidth uint64) error {
	return g.withLock(func() error {
		a, ok := g.arrays[name]
		if !ok {
			return xerrors.New(xerrors.KindIO, "grow secondary dim: array "+name+" not found")
		}
		if len(a.desc.Shape) < 2 {
			return xerrors.New(xerrors.KindSchemaConflict, "array "+name+" has no secondary dimension")
		}
		oldWidth := a.desc.Shape[1]
		if newWidth <= oldWidth {
			return nil
		}

		oldChunks := TotalChunks(a.desc.Shape[0], a.desc.Chunks[0])
		a.desc.Shape[1] = newWidth
		a.desc.Chunks[1] = newWidth

		for idx := uint64(0); idx < oldChunks; idx++ {
			path := a.chunkPath(idx)
			if _, err := os.Stat(path); err != nil {
				continue // not yet written; later reads synthesize fill at the new width
			}
			rows := a.chunkRowsFor(idx, oldChunks, a.desc.Shape[0])
			if err := a.rewriteChunkWiderLocked(idx, rows, oldWidth, newWidth); err != nil {
				return err
			}
		}
		return saveDescriptor(a.dir, a.desc)
	})
}

// Attrs returns a copy of the group's current attribute dictionary.
func (g *Group) Attrs() map[string]gojson.RawMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]gojson.RawMessage, len(g.attrs))
	for k, v := range g.attrs {
		out[k] = v
	}
	return out
}

// SetAttrs replaces the group's attribute dictionary with merged and
// persists it atomically.
func (g *Group) SetAttrs(merged map[string]gojson.RawMessage) error {
	return g.withLock(func() error {
		g.attrs = merged
		return writeJSONAtomic(filepath.Join(g.path, attributesFileName), merged)
	})
}

// SetAttr sets a single attribute key and persists the whole
// dictionary atomically.
func (g *Group) SetAttr(key string, value gojson.RawMessage) error {
	return g.withLock(func() error {
		g.attrs[key] = value
		return writeJSONAtomic(filepath.Join(g.path, attributesFileName), g.attrs)
	})
}

func equalU64(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
