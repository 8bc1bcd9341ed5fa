package project

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ChrisGVE/lua-tools/inference"
	"github.com/ChrisGVE/lua-tools/parser"
)

// DefaultMaxPasses caps the convergence loop. Real projects settle in two
// or three passes; the cap only matters for pathological require cycles.
const DefaultMaxPasses = 8

// Driver parses every file of a project and runs inference passes over the
// whole set until the results reach a fixed point.
type Driver struct {
	catalogue   inference.Catalogue
	maxPasses   int
	parallelism int
	logger      *slog.Logger
}

type Option func(*Driver)

// WithMaxPasses overrides the convergence pass cap.
func WithMaxPasses(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.maxPasses = n
		}
	}
}

// WithParallelism bounds how many files parse and infer concurrently.
func WithParallelism(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.parallelism = n
		}
	}
}

// WithLogger sets the driver's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func NewDriver(catalogue inference.Catalogue, opts ...Option) *Driver {
	d := &Driver{
		catalogue:   catalogue,
		maxPasses:   DefaultMaxPasses,
		parallelism: 8,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run parses the given sources, builds the cross-file context and iterates
// inference to a fixed point. A file that fails to tokenize is recorded on
// the context and skipped; it never aborts the rest of the batch.
func (d *Driver) Run(ctx context.Context, sources map[string]string) (*Context, error) {
	pc := newContext()
	if err := d.parseAll(ctx, sources, pc); err != nil {
		return nil, err
	}
	pc.buildIndex()

	var prev map[string]*inference.FileResult
	var prevPrint uint64
	for pass := 1; pass <= d.maxPasses; pass++ {
		pc.snapshot = prev
		results, err := d.inferAll(ctx, pc)
		if err != nil {
			return nil, err
		}
		sum, err := fingerprint(results)
		if err != nil {
			return nil, err
		}
		if prev != nil && sum == prevPrint {
			d.logger.Debug("inference converged", "passes", pass)
			pc.results = results
			return pc, nil
		}
		if regressed(results, prev) {
			// A later pass may not take certainty away from an earlier
			// one. Keep the earlier result, absorb whatever the new pass
			// learned with certainty, and stop.
			d.logger.Warn("inference pass regressed, keeping previous result", "pass", pass)
			absorbCertain(prev, results)
			pc.results = prev
			return pc, nil
		}
		prev = results
		prevPrint = sum
	}
	d.logger.Warn("convergence limit reached", "passes", d.maxPasses)
	pc.results = prev
	return pc, nil
}

func (d *Driver) parseAll(ctx context.Context, sources map[string]string, pc *Context) error {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(d.parallelism)
	var mu sync.Mutex
	for path, source := range sources {
		if !strings.HasSuffix(path, ".lua") {
			continue
		}
		path, source := path, source
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			file, err := parser.ParseSource(path, source)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				d.logger.Warn("file skipped", "path", path, "error", err)
				pc.addError(path, err)
				return nil
			}
			pc.addFile(file)
			return nil
		})
	}
	return group.Wait()
}

func (d *Driver) inferAll(ctx context.Context, pc *Context) (map[string]*inference.FileResult, error) {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(d.parallelism)
	results := make(map[string]*inference.FileResult, len(pc.files))
	var mu sync.Mutex
	for _, path := range pc.Files() {
		file := pc.files[path]
		if file == nil {
			continue
		}
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			engine := inference.New(d.catalogue, pc)
			result := engine.InferFile(file)
			mu.Lock()
			results[file.Path] = result
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func regressed(next, prev map[string]*inference.FileResult) bool {
	if prev == nil {
		return false
	}
	for path, result := range next {
		if result.Regressed(prev[path]) {
			return true
		}
	}
	return false
}

// absorbCertain copies into prev every slot the rejected pass pinned down
// with certainty where prev had less.
func absorbCertain(prev, next map[string]*inference.FileResult) {
	for path, nextFile := range next {
		prevFile := prev[path]
		if prevFile == nil {
			prev[path] = nextFile
			continue
		}
		for decl, nextResult := range nextFile.Decls {
			prevResult := prevFile.Decls[decl]
			if prevResult == nil {
				continue
			}
			absorbSlot(&prevResult.Binding, nextResult.Binding)
			for i := range nextResult.Params {
				if i < len(prevResult.Params) {
					absorbSlot(&prevResult.Params[i], nextResult.Params[i])
				}
			}
			for i := range nextResult.Returns {
				if i < len(prevResult.Returns) {
					absorbSlot(&prevResult.Returns[i], nextResult.Returns[i])
				}
			}
		}
	}
}

func absorbSlot(dst *inference.Slot, src inference.Slot) {
	if src.Fact().Certainty == inference.Certain && dst.Fact().Certainty != inference.Certain {
		*dst = src
	}
}
