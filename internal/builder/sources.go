package builder

import (
	"context"
	"runtime"
	"slices"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Resolver turns roots and extensions into ordered file lists
type Resolver struct {
	walker   *Walker
	jobs     int
	progress ProgressFunc
}

// ProgressFunc receives the number of directories listed so far out of total
type ProgressFunc func(done, total int)

// NewResolver returns a resolver that lists up to jobs directories at once.
// jobs < 1 means one per CPU.
func NewResolver(w *Walker, jobs int) *Resolver {
	if jobs < 1 {
		jobs = runtime.NumCPU()
	}
	return &Resolver{walker: w, jobs: jobs}
}

// SetProgress makes ResolveSources report each listed directory to fn
func (r *Resolver) SetProgress(fn ProgressFunc) { r.progress = fn }

// ResolveSources lists the source files below roots: directories in
// AllDirectories order, and within a directory one group per extension in the
// given order, each group sorted by name
func (r *Resolver) ResolveSources(roots, extensions []string) ([]string, error) {
	return r.resolve(roots, extensions, r.progress)
}

// ResolveHeaders is ResolveSources over the header extensions
func (r *Resolver) ResolveHeaders(roots, extensions []string) ([]string, error) {
	return r.resolve(roots, extensions, nil)
}

func (r *Resolver) resolve(roots, extensions []string, progress ProgressFunc) ([]string, error) {
	dirs := r.walker.AllDirectories(roots)
	var listed atomic.Int64

	// each directory writes only its own slot, so the result order does not
	// depend on scheduling
	slots := make([][]string, len(dirs))
	err := runJobs(indices(len(dirs)), func(i int) error {
		var files []string
		for _, ext := range extensions {
			files = append(files, r.walker.FilesWithExtension(dirs[i], ext)...)
		}
		slots[i] = files
		if progress != nil {
			progress(int(listed.Add(1)), len(dirs))
		}
		return nil
	}, r.jobs)
	if err != nil {
		return nil, err
	}

	return slices.Concat(slots...), nil
}

func indices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// runJobs runs jobs in parallel, at most limit at a time
func runJobs[T any](jobs []T, jobfunc func(job T) error, limit int) error {
	if len(jobs) == 0 {
		return nil
	}

	eg, _ := errgroup.WithContext(context.Background())
	eg.SetLimit(limit)

	for _, job := range jobs {
		eg.Go(func() error {
			return jobfunc(job)
		})
	}

	return eg.Wait()
}
