package preprocess

import (
	"context"
	"path/filepath"

	"astropipe/internal/stage"
)

// BackgroundHandler subtracts a first-degree polynomial background from
// every calibrated light frame, producing the bkg_pp_light sequence.
type BackgroundHandler struct {
	Opts Options
}

func (h BackgroundHandler) Request() stage.Request {
	return stage.Request{Kind: stage.KindBackgroundExtract}
}

func (h BackgroundHandler) Marker() stage.Marker {
	return stage.NewMarker(filepath.Join("process", seqFile("bkg_pp_light")))
}

func (h BackgroundHandler) Execute(ctx context.Context, env *stage.Env) error {
	return runCmds(ctx, env, stage.KindBackgroundExtract, "seqsubsky", [][]string{
		{"cd", filepath.Join(env.WorkDir, "process")},
		{"seqsubsky", "pp_light", "1", "-samples=10"},
	})
}
