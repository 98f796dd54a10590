package enhance

import (
	"context"

	"astropipe/internal/stage"
)

// SubskyHandler subtracts the sky background from each artifact with the
// host's RBF background model.
type SubskyHandler struct {
	Smooth string
}

func (h SubskyHandler) Request() stage.Request {
	return stage.Request{Kind: stage.KindBackgroundExtract, Tool: "siril",
		Params: map[string]string{"smooth": h.Smooth}}
}

func (h SubskyHandler) Marker() stage.Marker { return stage.Marker{} }

func (h SubskyHandler) Execute(ctx context.Context, env *stage.Env) error {
	return hostTransform(ctx, env, stage.KindBackgroundExtract, "_b"+h.Smooth, func(string) [][]string {
		return [][]string{
			{"subsky", "-rbf", "-samples=20", "-tolerance=1.0", "-smooth=" + h.Smooth},
		}
	})
}

// SharpenHandler deconvolves each artifact with two Richardson-Lucy
// passes, the second at a smaller gradient-descent step.
type SharpenHandler struct{}

func (h SharpenHandler) Request() stage.Request {
	return stage.Request{Kind: stage.KindSharpen, Tool: "siril"}
}

func (h SharpenHandler) Marker() stage.Marker { return stage.Marker{} }

func (h SharpenHandler) Execute(ctx context.Context, env *stage.Env) error {
	return hostTransform(ctx, env, stage.KindSharpen, "_rl", func(string) [][]string {
		return [][]string{
			{"rl", "-gdstep=0.0003", "-iters=40", "-alpha=3000", "-tv"},
			{"rl", "-gdstep=0.0002", "-iters=40", "-alpha=3000", "-tv"},
		}
	})
}

// ColorCalibrateHandler color-calibrates each artifact photometrically.
// With a catalog it uses spectrophotometric calibration against that
// catalog, otherwise plain photometric calibration.
type ColorCalibrateHandler struct {
	Catalog string
}

func (h ColorCalibrateHandler) Request() stage.Request {
	params := map[string]string{}
	if h.Catalog != "" {
		params["catalog"] = h.Catalog
	}
	return stage.Request{Kind: stage.KindColorCalibrate, Tool: "siril", Params: params}
}

func (h ColorCalibrateHandler) Marker() stage.Marker { return stage.Marker{} }

func (h ColorCalibrateHandler) Execute(ctx context.Context, env *stage.Env) error {
	return hostTransform(ctx, env, stage.KindColorCalibrate, "_cc", func(string) [][]string {
		if h.Catalog != "" {
			return [][]string{{"spcc", "-catalog=" + h.Catalog}}
		}
		return [][]string{{"pcc"}}
	})
}

// StretchHandler applies the host's automatic histogram stretch.
type StretchHandler struct {
	Linked bool
}

func (h StretchHandler) Request() stage.Request {
	params := map[string]string{}
	if h.Linked {
		params["linked"] = "true"
	}
	return stage.Request{Kind: stage.KindStretch, Tool: "siril", Params: params}
}

func (h StretchHandler) Marker() stage.Marker { return stage.Marker{} }

func (h StretchHandler) Execute(ctx context.Context, env *stage.Env) error {
	return hostTransform(ctx, env, stage.KindStretch, "_st", func(string) [][]string {
		args := []string{"autostretch"}
		if h.Linked {
			args = append(args, "-linked")
		}
		return [][]string{args}
	})
}
