package preprocess

import "astropipe/internal/stage"

// Handlers assembles the preprocessing stage handlers for the given
// options. Optional stages are only included when requested; the
// pipeline driver orders the result by stage priority.
func Handlers(opts Options) []stage.Handler {
	handlers := []stage.Handler{CalibrateHandler{Opts: opts}}
	if opts.ExtractBackground {
		handlers = append(handlers, BackgroundHandler{Opts: opts})
	}
	if opts.PlateSolve {
		handlers = append(handlers, PlateSolveHandler{Opts: opts})
	}
	handlers = append(handlers, RegisterHandler{Opts: opts}, StackHandler{Opts: opts})
	return handlers
}
