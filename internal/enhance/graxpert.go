package enhance

import (
	"context"

	"astropipe/internal/stage"
)

// GraXpert runs as a host-side python script, so these stages are plain
// host transforms with pyscript command lines.

// GraxpertBackgroundHandler extracts the background with GraXpert's AI
// model instead of the host's RBF interpolation.
type GraxpertBackgroundHandler struct {
	Smoothing string
}

func (h GraxpertBackgroundHandler) Request() stage.Request {
	return stage.Request{Kind: stage.KindBackgroundExtract, Tool: "graxpert",
		Params: map[string]string{"smoothing": h.Smoothing}}
}

func (h GraxpertBackgroundHandler) Marker() stage.Marker { return stage.Marker{} }

func (h GraxpertBackgroundHandler) Execute(ctx context.Context, env *stage.Env) error {
	return hostTransform(ctx, env, stage.KindBackgroundExtract, "_gb"+h.Smoothing, func(string) [][]string {
		return [][]string{
			{"pyscript", "GraXpert-AI.py", "-gpu", "-bge", "-smoothing", h.Smoothing},
		}
	})
}

// GraxpertDenoiseHandler denoises each artifact with GraXpert.
type GraxpertDenoiseHandler struct {
	Strength string
}

func (h GraxpertDenoiseHandler) Request() stage.Request {
	return stage.Request{Kind: stage.KindDenoise, Tool: "graxpert",
		Params: map[string]string{"strength": h.Strength}}
}

func (h GraxpertDenoiseHandler) Marker() stage.Marker { return stage.Marker{} }

func (h GraxpertDenoiseHandler) Execute(ctx context.Context, env *stage.Env) error {
	return hostTransform(ctx, env, stage.KindDenoise, "_gd"+h.Strength, func(string) [][]string {
		return [][]string{
			{"pyscript", "GraXpert-AI.py", "-gpu", "-denoise", "-strength", h.Strength},
		}
	})
}

// GraxpertSharpenHandler deconvolves object and stellar detail in two
// GraXpert passes at the same strength.
type GraxpertSharpenHandler struct {
	Strength string
}

func (h GraxpertSharpenHandler) Request() stage.Request {
	return stage.Request{Kind: stage.KindSharpen, Tool: "graxpert",
		Params: map[string]string{"strength": h.Strength}}
}

func (h GraxpertSharpenHandler) Marker() stage.Marker { return stage.Marker{} }

func (h GraxpertSharpenHandler) Execute(ctx context.Context, env *stage.Env) error {
	return hostTransform(ctx, env, stage.KindSharpen, "_gs"+h.Strength, func(string) [][]string {
		return [][]string{
			{"pyscript", "GraXpert-AI.py", "-gpu", "-deconv_obj", "-strength", h.Strength},
			{"pyscript", "GraXpert-AI.py", "-gpu", "-deconv_stellar", "-strength", h.Strength},
		}
	})
}
