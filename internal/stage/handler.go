package stage

import (
	"context"
	"log/slog"
	"sort"

	"astropipe/internal/services/siril"
)

// Env carries the per-run collaborators a handler executes against. WorkDir
// is always threaded explicitly; handlers never rely on the process working
// directory.
type Env struct {
	WorkDir   string
	Conn      siril.Conn
	Logger    *slog.Logger
	Processed *ProcessedSet

	// OnFileFailure records a recoverable per-file failure. The handler
	// logs, leaves the file unprocessed, and continues with the next one.
	OnFileFailure func(file string, err error)
}

// FileFailed reports a per-file failure through the env's callback.
func (e *Env) FileFailed(file string, err error) {
	if e.OnFileFailure != nil {
		e.OnFileFailure(file, err)
	}
}

// Handler describes the contract the pipeline driver needs from each stage.
type Handler interface {
	// Request identifies the stage and its parameters.
	Request() Request
	// Marker yields the completion marker consulted before execution. An
	// empty marker means the stage always runs.
	Marker() Marker
	// Execute runs the stage against the environment.
	Execute(ctx context.Context, env *Env) error
}

// Sort orders handlers by the fixed stage priority, preserving the caller's
// relative order for requests of equal priority so a stage repeated with
// different parameters runs in the order supplied.
func Sort(handlers []Handler) []Handler {
	sorted := make([]Handler, len(handlers))
	copy(sorted, handlers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return Priority(sorted[i].Request().Kind) < Priority(sorted[j].Request().Kind)
	})
	return sorted
}

// ProcessedSet tracks filenames produced by earlier stages within one run so
// later per-file stages do not reprocess them.
type ProcessedSet struct {
	names map[string]struct{}
}

// NewProcessedSet returns an empty set.
func NewProcessedSet() *ProcessedSet {
	return &ProcessedSet{names: make(map[string]struct{})}
}

// Add records a produced filename.
func (s *ProcessedSet) Add(name string) {
	s.names[name] = struct{}{}
}

// Contains reports whether name was produced earlier in this run.
func (s *ProcessedSet) Contains(name string) bool {
	_, ok := s.names[name]
	return ok
}
