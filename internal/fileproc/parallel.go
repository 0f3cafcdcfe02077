// Package fileproc runs per-file work across a bounded worker pool.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/panbanda/javaperf/pkg/parser"
)

// ProcessingError is the failure of a single file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e ProcessingError) Unwrap() error { return e.Err }

// ProcessingErrors collects per-file failures from concurrent workers.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add records a failure (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors reports whether anything failed. A nil collector has no errors.
func (e *ProcessingErrors) HasErrors() bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Paths returns the failed paths, sorted.
func (e *ProcessingErrors) Paths() []string {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	paths := make([]string, 0, len(e.Errors))
	for _, pe := range e.Errors {
		paths = append(paths, pe.Path)
	}
	sort.Strings(paths)
	return paths
}

func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// DefaultWorkerMultiplier is applied to NumCPU when no worker count is set.
// Parsing mixes file I/O with CGO calls, so oversubscribing helps.
const DefaultWorkerMultiplier = 2

// Workers returns n, or the default worker count when n <= 0.
func Workers(n int) int {
	if n > 0 {
		return n
	}
	return runtime.NumCPU() * DefaultWorkerMultiplier
}

// ProgressFunc is called once per processed item.
type ProgressFunc func()

// parserPool hands out at most one parser per worker, creating each on
// first use.
type parserPool struct {
	slots chan *parser.Parser
}

func newParserPool(workers int) *parserPool {
	pp := &parserPool{slots: make(chan *parser.Parser, workers)}
	for range workers {
		pp.slots <- nil
	}
	return pp
}

func (pp *parserPool) get() *parser.Parser {
	p := <-pp.slots
	if p == nil {
		p = parser.New()
	}
	return p
}

func (pp *parserPool) put(p *parser.Parser) { pp.slots <- p }

func (pp *parserPool) close() {
	close(pp.slots)
	for p := range pp.slots {
		if p != nil {
			p.Close()
		}
	}
}

// MapFiles runs fn over files with a dedicated parser per worker. Results
// of successful calls are returned in input order; failures are collected
// and never stop the other files. Once ctx is cancelled, remaining files
// are recorded with the context error.
func MapFiles[T any](
	ctx context.Context,
	files []string,
	workers int,
	fn func(*parser.Parser, string) (T, error),
	onProgress ProgressFunc,
) ([]T, *ProcessingErrors) {
	if len(files) == 0 {
		return nil, nil
	}

	workers = min(Workers(workers), len(files))
	parsers := newParserPool(workers)
	defer parsers.close()

	return mapIndexed(ctx, files, workers, func(path string) (T, error) {
		psr := parsers.get()
		defer parsers.put(psr)
		return fn(psr, path)
	}, func(path string) string { return path }, onProgress)
}

// Map runs fn over arbitrary items, keyed for error reporting by key.
func Map[I, T any](
	ctx context.Context,
	items []I,
	workers int,
	fn func(I) (T, error),
	key func(I) string,
	onProgress ProgressFunc,
) ([]T, *ProcessingErrors) {
	if len(items) == 0 {
		return nil, nil
	}
	return mapIndexed(ctx, items, min(Workers(workers), len(items)), fn, key, onProgress)
}

func mapIndexed[I, T any](
	ctx context.Context,
	items []I,
	workers int,
	fn func(I) (T, error),
	key func(I) string,
	onProgress ProgressFunc,
) ([]T, *ProcessingErrors) {
	slots := make([]T, len(items))
	done := make([]bool, len(items))
	errs := &ProcessingErrors{}

	p := pool.New().WithMaxGoroutines(workers)
	for i, item := range items {
		p.Go(func() {
			if onProgress != nil {
				defer onProgress()
			}
			if err := ctx.Err(); err != nil {
				errs.Add(key(item), err)
				return
			}
			result, err := fn(item)
			if err != nil {
				errs.Add(key(item), err)
				return
			}
			// Each goroutine owns its own index.
			slots[i] = result
			done[i] = true
		})
	}
	p.Wait()

	results := make([]T, 0, len(items))
	for i, ok := range done {
		if ok {
			results = append(results, slots[i])
		}
	}
	if !errs.HasErrors() {
		return results, nil
	}
	return results, errs
}
