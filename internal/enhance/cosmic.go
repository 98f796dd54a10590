package enhance

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"astropipe/internal/fileutil"
	"astropipe/internal/services"
	"astropipe/internal/services/cosmic"
	"astropipe/internal/stage"
)

// CosmicSharpenHandler sharpens each artifact through the Cosmic Clarity
// sharpen executable: the file is staged in the tool's input directory,
// the tool runs as a blocking subprocess, and its output is moved back
// under the parameter-suffixed name.
type CosmicSharpenHandler struct {
	Client *cosmic.Client
	Params cosmic.SharpenParams
}

func (h CosmicSharpenHandler) Request() stage.Request {
	return stage.Request{Kind: stage.KindSharpen, Tool: "cosmic-clarity",
		Params: map[string]string{
			"mode":                h.Params.Mode,
			"stellar_amount":      h.Params.StellarAmount,
			"nonstellar_amount":   h.Params.NonStellarAmount,
			"nonstellar_strength": h.Params.NonStellarStrength,
		}}
}

func (h CosmicSharpenHandler) Marker() stage.Marker { return stage.Marker{} }

func (h CosmicSharpenHandler) Execute(ctx context.Context, env *stage.Env) error {
	params, err := h.Params.Normalize()
	if err != nil {
		return err
	}
	return runCosmic(ctx, env, h.Client, stage.KindSharpen, "Sharpen", params.Args(), params.Suffix())
}

// CosmicDenoiseHandler denoises each artifact through the Cosmic Clarity
// denoise executable.
type CosmicDenoiseHandler struct {
	Client *cosmic.Client
	Params cosmic.DenoiseParams
}

func (h CosmicDenoiseHandler) Request() stage.Request {
	return stage.Request{Kind: stage.KindDenoise, Tool: "cosmic-clarity",
		Params: map[string]string{
			"mode":     h.Params.Mode,
			"strength": h.Params.Strength,
		}}
}

func (h CosmicDenoiseHandler) Marker() stage.Marker { return stage.Marker{} }

func (h CosmicDenoiseHandler) Execute(ctx context.Context, env *stage.Env) error {
	params, err := h.Params.Normalize()
	if err != nil {
		return err
	}
	return runCosmic(ctx, env, h.Client, stage.KindDenoise, "Denoise", params.Args(), params.Suffix())
}

// runCosmic drives one Cosmic Clarity invocation per eligible artifact.
// The tool's input and output directories are drained before the first
// file and between files so no run ever picks up another run's frames.
// A tool failure or a missing output artifact fails only that file.
func runCosmic(ctx context.Context, env *stage.Env, client *cosmic.Client, kind stage.Kind, label string, args []string, suffix string) error {
	_, inputDir, outputDir, err := client.Resolve()
	if err != nil {
		return err
	}
	if err := drainBoth(inputDir, outputDir, kind); err != nil {
		return err
	}

	runErr := forEachImage(ctx, env, kind, func(image string) error {
		derived := stage.DerivedName(image, suffix)
		if alreadyDerived(env, derived) {
			return nil
		}
		if err := fileutil.CopyFile(filepath.Join(env.WorkDir, image), filepath.Join(inputDir, image)); err != nil {
			return services.Wrap(services.ErrExternalTool, string(kind), "stage input", image, err)
		}

		err := client.Run(ctx, args,
			func(update cosmic.ProgressUpdate) {
				env.Conn.UpdateProgress(ctx, label, update.Percent/100.0)
			},
			func(line string) {
				env.Conn.Log(ctx, line)
			})
		if err != nil {
			drainBoth(inputDir, outputDir, kind)
			return err
		}

		outputs, err := fileutil.ListImages(outputDir)
		if err != nil {
			return services.Wrap(services.ErrExternalTool, string(kind), "collect output", image, err)
		}
		if len(outputs) == 0 {
			drainBoth(inputDir, outputDir, kind)
			return services.Wrap(services.ErrExternalTool, string(kind), "collect output",
				fmt.Sprintf("%s produced no output artifact for %s", label, image), nil)
		}
		out := pickOutput(image, outputs)
		for _, extra := range outputs {
			if extra != out {
				env.Logger.Warn("ignoring unexpected output artifact", "file", extra)
			}
		}
		if err := fileutil.MoveFile(filepath.Join(outputDir, out), filepath.Join(env.WorkDir, derived)); err != nil {
			return services.Wrap(services.ErrExternalTool, string(kind), "collect output", out, err)
		}
		env.Processed.Add(derived)
		return fileutil.DrainDir(inputDir)
	})
	if runErr != nil {
		return runErr
	}
	return drainBoth(inputDir, outputDir, kind)
}

// pickOutput selects the tool output belonging to the staged input.
// Cosmic Clarity appends its own suffix to the input's stem, so a
// shared stem identifies the expected artifact; anything else in the
// output directory is a stray.
func pickOutput(image string, outputs []string) string {
	ext := filepath.Ext(image)
	if strings.EqualFold(ext, ".fz") {
		ext = filepath.Ext(strings.TrimSuffix(image, ext)) + ext
	}
	stem := strings.TrimSuffix(image, ext)
	for _, out := range outputs {
		if strings.HasPrefix(out, stem) {
			return out
		}
	}
	return outputs[0]
}

func drainBoth(inputDir, outputDir string, kind stage.Kind) error {
	if err := fileutil.DrainDir(inputDir); err != nil {
		return services.Wrap(services.ErrExternalTool, string(kind), "drain input dir", inputDir, err)
	}
	if err := fileutil.DrainDir(outputDir); err != nil {
		return services.Wrap(services.ErrExternalTool, string(kind), "drain output dir", outputDir, err)
	}
	return nil
}
