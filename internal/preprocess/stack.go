package preprocess

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"astropipe/internal/fits"
	"astropipe/internal/stage"
)

// StackHandler integrates the registered sequence into the final master
// frame. The output is written next to the working directory's process/
// subdirectory under a name that encodes the target object, the filter
// settings, and the total integration time, so there is no stable
// completion marker and the stage always runs.
type StackHandler struct {
	Opts Options
}

func (h StackHandler) Request() stage.Request {
	return stage.Request{Kind: stage.KindStack, Params: map[string]string{
		"feather": h.Opts.Feather,
	}}
}

func (h StackHandler) Marker() stage.Marker {
	return stage.Marker{}
}

func (h StackHandler) Execute(ctx context.Context, env *stage.Env) error {
	obj := h.objectName(env)
	scale := h.Opts.DrizzleScale
	if scale == "" {
		scale = "0"
	}
	out := fmt.Sprintf("../%s_b%s-s%s-r%s-w%s-z%s-f%s-$LIVETIME:%%d$s",
		obj, h.Opts.BackgroundFilter, h.Opts.StarsFilter, h.Opts.RoundFilter,
		h.Opts.WFWHMFilter, scale, h.Opts.Feather)

	cmds := [][]string{
		{"cd", filepath.Join(env.WorkDir, "process")},
		{"stack", h.Opts.registeredSequence(), "rej", "3", "3",
			"-norm=addscale", "-output_norm", "-rgb_equal", "-maximize",
			"-filter-included", "-weight=wfwhm", "-feather=" + h.Opts.Feather,
			"-out=" + out},
		{"cd", env.WorkDir},
	}
	return runCmds(ctx, env, stage.KindStack, "stack", cmds)
}

// objectName reads the OBJECT keyword from the first calibrated frame.
// A missing keyword or unreadable frame just drops the object from the
// output name, matching how an untagged capture stacks.
func (h StackHandler) objectName(env *stage.Env) string {
	frame := filepath.Join(env.WorkDir, "process", "pp_light_00001."+h.Opts.Extension)
	value, found, err := fits.ReadKeyword(frame, "OBJECT")
	if err != nil || !found {
		if err != nil {
			env.Logger.Debug("could not read OBJECT keyword", "frame", frame, "error", err)
		}
		return ""
	}
	return strings.ReplaceAll(value, " ", "")
}
