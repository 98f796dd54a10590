package main

import (
	"github.com/spf13/cobra"

	"astropipe/internal/preprocess"
	"astropipe/internal/stage"
)

type preprocessFlags struct {
	background    string
	round         string
	stars         string
	wfwhm         string
	feather       string
	drizzle       string
	bkgExtract    bool
	platesolve    string
	noCalibration bool
	sessions      []string
}

func (f *preprocessFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.background, "background", "b", "100%", "Registration background filter (percentage or absolute)")
	cmd.Flags().StringVarP(&f.round, "round", "r", "100%", "Registration roundness filter")
	cmd.Flags().StringVarP(&f.stars, "stars", "s", "100%", "Registration star-count filter")
	cmd.Flags().StringVarP(&f.wfwhm, "wfwhm", "w", "100%", "Registration weighted-FWHM filter")
	cmd.Flags().StringVarP(&f.feather, "feather", "f", "0", "Stacking feather radius in pixels")
	cmd.Flags().StringVarP(&f.drizzle, "drizzle", "z", "", "Drizzle scale factor (enable for OSC sensors)")
	cmd.Flags().BoolVar(&f.bkgExtract, "bkg-extract", false, "Subtract a per-frame background before registration")
	cmd.Flags().StringVar(&f.platesolve, "platesolve", "", "Plate solve the sequence, optionally with a focal length in mm")
	cmd.Flags().Lookup("platesolve").NoOptDefVal = "auto"
	cmd.Flags().BoolVar(&f.noCalibration, "no-calibration", false, "Skip masters and calibration, convert lights only")
	cmd.Flags().StringArrayVar(&f.sessions, "session", nil, "Additional session directory to calibrate and merge (repeatable)")
}

func (f *preprocessFlags) options(extension string) preprocess.Options {
	opts := preprocess.Options{
		Extension:         extension,
		BackgroundFilter:  f.background,
		RoundFilter:       f.round,
		StarsFilter:       f.stars,
		WFWHMFilter:       f.wfwhm,
		Feather:           f.feather,
		DrizzleScale:      f.drizzle,
		ExtractBackground: f.bkgExtract,
		NoCalibration:     f.noCalibration,
		Sessions:          f.sessions,
	}
	if f.platesolve != "" {
		opts.PlateSolve = true
		if f.platesolve != "auto" {
			opts.FocalLength = f.platesolve
		}
	}
	return opts
}

func newPreprocessCommand(ctx *commandContext) *cobra.Command {
	flags := &preprocessFlags{}
	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Calibrate, register, and stack the session's light frames",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runPipeline(cmd, ctx, func() ([]stage.Handler, error) {
				return preprocess.Handlers(flags.options(cfg.Siril.Extension)), nil
			})
		},
	}
	flags.bind(cmd)
	return cmd
}
