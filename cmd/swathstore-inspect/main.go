// Command swathstore-inspect opens a group read-only and prints its
// array names, shapes, and attribute keys — the same kind of ad-hoc
// inspection the teacher library's cmd/dump_hdf5 and cmd/sonnet* tools
// provide for raw HDF5 files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scigolib/swathstore/store"
)

func main() {
	root := &cobra.Command{
		Use:   "swathstore-inspect <group-path>",
		Short: "Inspect a swathstore group's arrays and attributes",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return inspect(args[0])
		},
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func inspect(path string) error {
	view, err := store.OpenForRead(path)
	if err != nil {
		return fmt.Errorf("open group %s: %w", path, err)
	}

	names, err := view.ArrayNames()
	if err != nil {
		return fmt.Errorf("list arrays: %w", err)
	}

	fmt.Printf("group: %s\n", path)
	fmt.Printf("arrays: %d\n", len(names))
	for _, name := range names {
		arr, ok := view.Array(name)
		if !ok {
			continue
		}
		fmt.Printf("  %-24s dtype=%-8s shape=%v chunks=%v dims=%v\n",
			name, arr.DType(), arr.Shape(), arr.Chunks(), arr.DimNames())
	}

	attrs := view.Attrs()
	fmt.Printf("attributes: %d\n", len(attrs))
	for key := range attrs {
		fmt.Printf("  %s\n", key)
	}

	return nil
}
