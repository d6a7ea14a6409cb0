package store

import (
	"runtime"
	"sync"

	gojson "github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scigolib/swathstore"
	"github.com/scigolib/swathstore/internal/layout"
)

// Task is one Chunk-Writer call to be scheduled by Distribute: a batch
// and the absolute row range it lands at. Only tasks[0] should carry
// Attrs and have FinalSize set — the pre-resize and attribute merge
// happen once, during that task.
type Task struct {
	Batch     swathstore.Batch
	RowRange  RowRange
	Attrs     map[string]gojson.RawMessage
	FinalSize *uint64
	Merge     bool
}

// Options configures Distribute.
type Options struct {
	// MaxWorkers bounds the errgroup's concurrency. Zero means
	// runtime.GOMAXPROCS(0).
	MaxWorkers int
	// SkipParallel runs tasks 1..N on the calling goroutine instead of
	// through the errgroup, matching the dispatcher's skip_parallel
	// option.
	SkipParallel bool
	// Logger receives warn-level diagnostics; nil means silence.
	Logger *zap.SugaredLogger
}

// Distribute is the Write Dispatcher: task 0 runs and completes
// (including the global pre-resize and attribute merge) before any
// later task starts; tasks 1..N then run in parallel. Metadata
// operations inside Write (array creation, resizes, attribute and
// descriptor writes) take the group's advisory lock; chunk data writes
// do not. If any task
// fails, no rollback is attempted — the dispatcher collects the first
// error and lets already-running tasks finish, rather than cancelling
// in-flight I/O.
func Distribute(group *layout.Group, tasks []Task, opts Options) error {
	if len(tasks) == 0 {
		return nil
	}

	first := tasks[0]
	if err := Write(group, first.Batch, first.Attrs, first.RowRange, first.FinalSize, first.Merge); err != nil {
		return err
	}

	rest := tasks[1:]
	if len(rest) == 0 {
		return nil
	}

	if opts.SkipParallel {
		var firstErr error
		for _, t := range rest {
			if err := Write(group, t.Batch, t.Attrs, t.RowRange, t.FinalSize, t.Merge); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				if opts.Logger != nil {
					opts.Logger.Warnw("sequential task failed; continuing, downstream readers must tolerate fill values", "error", err)
				}
			}
		}
		return firstErr
	}

	// Deliberately not using errgroup.WithContext: that would cancel a
	// shared context on the first error, and nothing here reads that
	// context during I/O, but binding one in would invite a future
	// caller to thread it through and accidentally abort in-flight
	// writes. A plain errgroup.Group never signals cancellation; every
	// task returns nil, recordErr keeps the first error, and g.Wait()
	// only waits for all tasks to finish.
	var g errgroup.Group
	if opts.MaxWorkers > 0 {
		g.SetLimit(opts.MaxWorkers)
	} else {
		g.SetLimit(runtime.GOMAXPROCS(0))
	}

	var mu sync.Mutex
	var firstErr error
	recordErr := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	for _, t := range rest {
		t := t
		g.Go(func() error {
			if err := Write(group, t.Batch, t.Attrs, t.RowRange, t.FinalSize, t.Merge); err != nil {
				recordErr(err)
				if opts.Logger != nil {
					opts.Logger.Warnw("parallel task failed; continuing, downstream readers must tolerate fill values", "error", err)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	return firstErr
}
