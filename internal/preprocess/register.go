package preprocess

import (
	"context"
	"path/filepath"
	"strconv"

	"astropipe/internal/stage"
)

// PlateSolveHandler astrometrically solves the calibrated sequence so
// registration can use max framing, which is what makes mosaics work.
type PlateSolveHandler struct {
	Opts Options
}

func (h PlateSolveHandler) Request() stage.Request {
	params := map[string]string{}
	if h.Opts.FocalLength != "" {
		params["focal"] = h.Opts.FocalLength
	}
	return stage.Request{Kind: stage.KindPlateSolve, Params: params}
}

func (h PlateSolveHandler) Marker() stage.Marker {
	return stage.NewMarker(filepath.Join("process", seqFile(h.Opts.registeredSequence())))
}

func (h PlateSolveHandler) Execute(ctx context.Context, env *stage.Env) error {
	solve := []string{"seqplatesolve", h.Opts.lightSequence(),
		"-nocache", "-catalog=nomad", "-force", "-disto=ps_distortion"}
	if h.Opts.FocalLength != "" {
		solve = append(solve, "-focal="+h.Opts.FocalLength)
	}
	return runCmds(ctx, env, stage.KindPlateSolve, "seqplatesolve", [][]string{
		{"cd", filepath.Join(env.WorkDir, "process")},
		solve,
	})
}

// RegisterHandler registers the calibrated lights. Plate-solved
// sequences already carry astrometric alignment, so they go straight to
// seqapplyreg with max framing; otherwise a 2-pass star registration
// runs first. Registration carries no completion marker: the filter
// thresholds select which frames survive, so changing them on a re-run
// must re-select frames before the stack picks them up.
type RegisterHandler struct {
	Opts Options
}

func (h RegisterHandler) Request() stage.Request {
	return stage.Request{Kind: stage.KindRegister, Params: map[string]string{
		"bkg":   h.Opts.BackgroundFilter,
		"stars": h.Opts.StarsFilter,
		"round": h.Opts.RoundFilter,
		"wfwhm": h.Opts.WFWHMFilter,
		"scale": h.Opts.DrizzleScale,
	}}
}

func (h RegisterHandler) Marker() stage.Marker { return stage.Marker{} }

func (h RegisterHandler) Execute(ctx context.Context, env *stage.Env) error {
	apply := []string{"seqapplyreg", h.Opts.lightSequence()}
	if h.Opts.PlateSolve {
		apply = append(apply, "-framing=max")
	}
	apply = append(apply,
		"-filter-bkg="+h.Opts.BackgroundFilter,
		"-filter-nbstars="+h.Opts.StarsFilter,
		"-filter-round="+h.Opts.RoundFilter,
		"-filter-wfwhm="+h.Opts.WFWHMFilter,
	)
	apply = append(apply, drizzleArgs(h.Opts.DrizzleScale)...)
	if !h.Opts.NoCalibration {
		apply = append(apply, "-flat=pp_flat_stacked")
	}

	cmds := [][]string{{"cd", filepath.Join(env.WorkDir, "process")}}
	if !h.Opts.PlateSolve {
		cmds = append(cmds, []string{"register", h.Opts.lightSequence(), "-2pass"})
	}
	cmds = append(cmds, apply)
	return runCmds(ctx, env, stage.KindRegister, "register", cmds)
}

// drizzleArgs builds the drizzle integration flags for a scale factor.
// An empty scale disables drizzle.
func drizzleArgs(scale string) []string {
	if scale == "" {
		return nil
	}
	args := []string{"-kernel=square", "-drizzle", "-scale=" + scale}
	if f, err := strconv.ParseFloat(scale, 64); err == nil && f > 0 {
		args = append(args, "-pixfrac="+strconv.FormatFloat(1/f, 'g', -1, 64))
	}
	return args
}
