package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"astropipe/internal/enhance"
	"astropipe/internal/services/cosmic"
	"astropipe/internal/stage"
)

type enhanceFlags struct {
	subsky          []string
	graxpertBGE     []string
	sharpen         bool
	graxpertSharpen []string
	ccSharpen       []string
	ccDenoise       []string
	graxpertDenoise []string
	colorCalibrate  bool
	catalog         string
	stretch         bool
	linked          bool
}

func (f *enhanceFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.subsky, "subsky", nil, "Siril background extraction with the given smoothing (repeatable)")
	cmd.Flags().StringArrayVar(&f.graxpertBGE, "graxpert-bge", nil, "GraXpert background extraction with the given smoothing (repeatable)")
	cmd.Flags().BoolVar(&f.sharpen, "sharpen", false, "Siril Richardson-Lucy deconvolution sharpening")
	cmd.Flags().StringArrayVar(&f.graxpertSharpen, "graxpert-sharpen", nil, "GraXpert deconvolution with the given strength (repeatable)")
	cmd.Flags().StringArrayVar(&f.ccSharpen, "cc-sharpen", nil, "Cosmic Clarity sharpen as mode,stellar,nonstellar,strength (repeatable)")
	cmd.Flags().StringArrayVar(&f.ccDenoise, "cc-denoise", nil, "Cosmic Clarity denoise as mode,strength (repeatable)")
	cmd.Flags().StringArrayVar(&f.graxpertDenoise, "graxpert-denoise", nil, "GraXpert denoise with the given strength (repeatable)")
	cmd.Flags().BoolVar(&f.colorCalibrate, "color-calibrate", false, "Photometric color calibration")
	cmd.Flags().StringVar(&f.catalog, "catalog", "", "Catalog for spectrophotometric color calibration")
	cmd.Flags().BoolVar(&f.stretch, "stretch", false, "Automatic histogram stretch")
	cmd.Flags().BoolVar(&f.linked, "linked", false, "Stretch channels with linked midtones")
}

// handlers translates the accumulated flags into stage handlers. The
// same stage may repeat with different parameters; the driver's stable
// sort preserves the order each repetition was supplied in.
func (f *enhanceFlags) handlers(ctx *commandContext) ([]stage.Handler, error) {
	var handlers []stage.Handler
	for _, smooth := range f.subsky {
		handlers = append(handlers, enhance.SubskyHandler{Smooth: smooth})
	}
	for _, smoothing := range f.graxpertBGE {
		handlers = append(handlers, enhance.GraxpertBackgroundHandler{Smoothing: smoothing})
	}
	if f.sharpen {
		handlers = append(handlers, enhance.SharpenHandler{})
	}
	for _, strength := range f.graxpertSharpen {
		handlers = append(handlers, enhance.GraxpertSharpenHandler{Strength: strength})
	}
	for _, tuple := range f.ccSharpen {
		params, err := parseSharpenTuple(tuple)
		if err != nil {
			return nil, err
		}
		client, err := ctx.cosmicClient(cosmic.ToolSharpen)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, enhance.CosmicSharpenHandler{Client: client, Params: params})
	}
	for _, tuple := range f.ccDenoise {
		params, err := parseDenoiseTuple(tuple)
		if err != nil {
			return nil, err
		}
		client, err := ctx.cosmicClient(cosmic.ToolDenoise)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, enhance.CosmicDenoiseHandler{Client: client, Params: params})
	}
	for _, strength := range f.graxpertDenoise {
		handlers = append(handlers, enhance.GraxpertDenoiseHandler{Strength: strength})
	}
	if f.colorCalibrate || f.catalog != "" {
		handlers = append(handlers, enhance.ColorCalibrateHandler{Catalog: f.catalog})
	}
	if f.stretch {
		handlers = append(handlers, enhance.StretchHandler{Linked: f.linked})
	}
	return handlers, nil
}

// parseSharpenTuple splits mode,stellar,nonstellar,strength. Trailing
// fields may be omitted; mode is required.
func parseSharpenTuple(tuple string) (cosmic.SharpenParams, error) {
	fields := splitTuple(tuple)
	if len(fields) == 0 || len(fields) > 4 {
		return cosmic.SharpenParams{}, fmt.Errorf("cc-sharpen: expected mode,stellar,nonstellar,strength, got %q", tuple)
	}
	params := cosmic.SharpenParams{Mode: fields[0]}
	if len(fields) > 1 {
		params.StellarAmount = fields[1]
	}
	if len(fields) > 2 {
		params.NonStellarAmount = fields[2]
	}
	if len(fields) > 3 {
		params.NonStellarStrength = fields[3]
	}
	return params, nil
}

// parseDenoiseTuple splits mode,strength; strength may be omitted.
func parseDenoiseTuple(tuple string) (cosmic.DenoiseParams, error) {
	fields := splitTuple(tuple)
	if len(fields) == 0 || len(fields) > 2 {
		return cosmic.DenoiseParams{}, fmt.Errorf("cc-denoise: expected mode,strength, got %q", tuple)
	}
	params := cosmic.DenoiseParams{Mode: fields[0]}
	if len(fields) > 1 {
		params.Strength = fields[1]
	}
	return params, nil
}

func splitTuple(tuple string) []string {
	parts := strings.Split(tuple, ",")
	fields := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			fields = append(fields, part)
		}
	}
	return fields
}

func newEnhanceCommand(ctx *commandContext) *cobra.Command {
	flags := &enhanceFlags{}
	cmd := &cobra.Command{
		Use:   "enhance",
		Short: "Run per-file enhancement stages over the working directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, ctx, func() ([]stage.Handler, error) {
				handlers, err := flags.handlers(ctx)
				if err != nil {
					return nil, err
				}
				if len(handlers) == 0 {
					return nil, fmt.Errorf("no enhancement stages requested")
				}
				return handlers, nil
			})
		},
	}
	flags.bind(cmd)
	return cmd
}
