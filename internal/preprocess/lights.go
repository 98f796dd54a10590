package preprocess

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"astropipe/internal/services"
	"astropipe/internal/stage"
)

// CalibrateHandler builds the calibration masters for every session and
// calibrates their light frames, then merges secondary session output
// into the primary working directory's process/ numbering.
type CalibrateHandler struct {
	Opts Options
}

func (h CalibrateHandler) Request() stage.Request {
	params := map[string]string{}
	if h.Opts.NoCalibration {
		params["calibration"] = "none"
	}
	for i, dir := range h.Opts.Sessions {
		params[fmt.Sprintf("session%d", i+2)] = dir
	}
	return stage.Request{Kind: stage.KindCalibrate, Params: params}
}

func (h CalibrateHandler) Marker() stage.Marker {
	if len(h.Opts.Sessions) > 0 {
		// Merging must run even when the primary session is already
		// calibrated; the per-session markers keep re-runs cheap.
		return stage.Marker{}
	}
	return stage.NewMarker(filepath.Join("process", seqFile("pp_light")))
}

func (h CalibrateHandler) Execute(ctx context.Context, env *stage.Env) error {
	sessions := []session{{dir: env.WorkDir, opts: h.Opts}}
	for _, dir := range h.Opts.Sessions {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return services.Wrap(services.ErrValidation, string(stage.KindCalibrate), "sessions",
				fmt.Sprintf("session directory %q is not usable", dir), err)
		}
		sessions = append(sessions, session{dir: dir, opts: h.Opts})
	}

	for _, s := range sessions {
		if err := s.calibrateLights(ctx, env); err != nil {
			return err
		}
	}

	primary := sessions[0].processDir()
	merged := 0
	for _, s := range sessions[1:] {
		moved, err := mergeSession(primary, s.processDir(), h.Opts.Extension)
		if err != nil {
			return services.Wrap(services.ErrExternalTool, string(stage.KindCalibrate), "merge sessions", s.dir, err)
		}
		merged += moved
		env.Logger.Info("merged session frames",
			"session", s.dir, "frames", moved)
	}
	if merged > 0 {
		// The sequence file predates the merged frames; drop it so the
		// host rescans the directory on the next sequence command.
		if err := os.Remove(filepath.Join(primary, "pp_light_.seq")); err != nil && !os.IsNotExist(err) {
			return services.Wrap(services.ErrExternalTool, string(stage.KindCalibrate), "merge sessions",
				"refresh sequence index", err)
		}
	}
	return nil
}
