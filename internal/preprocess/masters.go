package preprocess

import (
	"context"
	"fmt"
	"path/filepath"

	"astropipe/internal/fileutil"
	"astropipe/internal/stage"
)

// session wraps one session directory and the host commands that turn
// its raw subdirectories into calibrated light frames under dir/process.
type session struct {
	dir  string
	opts Options
}

func (s session) processDir() string {
	return filepath.Join(s.dir, "process")
}

func (s session) stackedMaster(name string) stage.Marker {
	ext := s.opts.Extension
	return stage.NewMarker(
		filepath.Join("process", fmt.Sprintf("%s_stacked.%s", name, ext)),
		filepath.Join("process", fmt.Sprintf("%s_stacked.%s.fz", name, ext)),
	)
}

// hasFrames reports whether the named raw subdirectory holds any image
// files.
func (s session) hasFrames(name string) (bool, error) {
	files, err := fileutil.ListImages(filepath.Join(s.dir, name))
	if err != nil {
		return false, err
	}
	return len(files) > 0, nil
}

// buildBias converts and stacks the bias frames unless the stacked
// master already exists.
func (s session) buildBias(ctx context.Context, env *stage.Env) error {
	if path, ok := s.stackedMaster("bias").Exists(s.dir); ok {
		env.Logger.Info("master bias already stacked", "path", path)
		return nil
	}
	cmds := [][]string{
		{"cd", filepath.Join(s.dir, "biases")},
		{"convert", "bias", "-out=../process"},
		{"cd", "../process"},
		{"stack", "bias", "rej", "3", "3", "-nonorm"},
	}
	return s.run(ctx, env, "master bias", cmds)
}

// buildFlat converts, bias-calibrates, and stacks the flat frames.
func (s session) buildFlat(ctx context.Context, env *stage.Env, haveBias bool) error {
	if path, ok := s.stackedMaster("pp_flat").Exists(s.dir); ok {
		env.Logger.Info("master flat already stacked", "path", path)
		return nil
	}
	calibrate := []string{"calibrate", "flat"}
	if haveBias {
		calibrate = append(calibrate, "-bias=bias_stacked")
	}
	cmds := [][]string{
		{"cd", filepath.Join(s.dir, "flats")},
		{"convert", "flat", "-out=../process"},
		{"cd", "../process"},
		calibrate,
		{"stack", "pp_flat", "rej", "3", "3", "-norm=mul"},
	}
	return s.run(ctx, env, "master flat", cmds)
}

// buildDark converts and stacks the dark frames.
func (s session) buildDark(ctx context.Context, env *stage.Env) error {
	if path, ok := s.stackedMaster("dark").Exists(s.dir); ok {
		env.Logger.Info("master dark already stacked", "path", path)
		return nil
	}
	cmds := [][]string{
		{"cd", filepath.Join(s.dir, "darks")},
		{"convert", "dark", "-out=../process"},
		{"cd", "../process"},
		{"stack", "dark", "rej", "3", "3", "-nonorm"},
	}
	return s.run(ctx, env, "master dark", cmds)
}

// calibrateLights converts the light frames and applies whichever
// masters the session produced. With no masters (or NoCalibration) the
// lights are only converted so downstream stages still have a sequence
// to work with.
func (s session) calibrateLights(ctx context.Context, env *stage.Env) error {
	marker := stage.NewMarker(filepath.Join("process", "pp_light_.seq"))
	if path, ok := marker.Exists(s.dir); ok {
		env.Logger.Info("lights already calibrated", "path", path)
		return nil
	}

	haveBias, haveFlat, haveDark := false, false, false
	if !s.opts.NoCalibration {
		var err error
		if haveBias, err = s.hasFrames("biases"); err != nil {
			return err
		}
		if haveFlat, err = s.hasFrames("flats"); err != nil {
			return err
		}
		if haveDark, err = s.hasFrames("darks"); err != nil {
			return err
		}
	}

	if haveBias {
		if err := s.buildBias(ctx, env); err != nil {
			return err
		}
	}
	if haveFlat {
		if err := s.buildFlat(ctx, env, haveBias); err != nil {
			return err
		}
	}
	if haveDark {
		if err := s.buildDark(ctx, env); err != nil {
			return err
		}
	}

	var cmds [][]string
	if haveDark || haveFlat {
		calibrate := []string{"calibrate", "light"}
		if haveDark {
			calibrate = append(calibrate, "-dark=dark_stacked")
		}
		if haveFlat {
			calibrate = append(calibrate, "-flat=pp_flat_stacked")
		}
		if haveDark {
			calibrate = append(calibrate, "-cc=dark")
		}
		calibrate = append(calibrate, "-cfa", "-equalize_cfa")
		cmds = [][]string{
			{"cd", filepath.Join(s.dir, "lights")},
			{"convert", "light", "-out=../process"},
			{"cd", "../process"},
			calibrate,
		}
	} else {
		// Without masters the frames go straight to the calibrated
		// sequence name so the downstream stages see the same layout.
		env.Logger.Info("no calibration masters, converting lights only", "session", s.dir)
		cmds = [][]string{
			{"cd", filepath.Join(s.dir, "lights")},
			{"convert", "pp_light", "-out=../process"},
			{"cd", "../process"},
		}
	}
	return s.run(ctx, env, "light calibration", cmds)
}

func (s session) run(ctx context.Context, env *stage.Env, operation string, cmds [][]string) error {
	env.Logger.Info(operation, "session", s.dir)
	return runCmds(ctx, env, stage.KindCalibrate, operation, cmds)
}
