package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"astropipe/internal/manifest"
	"astropipe/internal/pipeline"
	"astropipe/internal/stage"
)

// runPipeline wires a driver, executes the handlers against the resolved
// working directory, and renders the run summary. Only fatal errors
// propagate; stage and per-file failures are reported in the summary.
func runPipeline(cmd *cobra.Command, ctx *commandContext, build func() ([]stage.Handler, error)) error {
	handlers, err := build()
	if err != nil {
		return err
	}
	workdir, err := ctx.workdir()
	if err != nil {
		return err
	}
	logger, err := ctx.logger()
	if err != nil {
		return err
	}
	driver, store, err := ctx.newDriver(logger)
	if err != nil {
		return err
	}
	defer store.Close()

	summary, runErr := driver.Run(cmd.Context(), workdir, handlers)
	renderSummary(cmd.OutOrStdout(), summary)
	return runErr
}

func renderSummary(out io.Writer, summary pipeline.Summary) {
	if len(summary.Stages) == 0 && len(summary.FileFailures) == 0 {
		return
	}
	colorize := shouldColorize(out)

	rows := make([][]string, 0, len(summary.Stages))
	for _, outcome := range summary.Stages {
		detail := outcome.Detail
		if outcome.Status == manifest.StatusSkipped {
			detail = outcome.Marker
		}
		rows = append(rows, []string{
			outcome.Request.Label(),
			statusCell(outcome.Status, colorize),
			formatDuration(outcome.Duration),
			detail,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Stage", "Status", "Duration", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	))

	if len(summary.FileFailures) > 0 {
		rows = rows[:0]
		for _, failure := range summary.FileFailures {
			rows = append(rows, []string{failure.Stage.Label(), failure.File, failure.Err})
		}
		fmt.Fprintln(out, "Failed files:")
		fmt.Fprintln(out, renderTable(
			[]string{"Stage", "File", "Error"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft},
		))
	}
}

func statusCell(status manifest.Status, colorize bool) string {
	text := string(status)
	if !colorize {
		return text
	}
	switch status {
	case manifest.StatusDone:
		return ansiGreen + text + ansiReset
	case manifest.StatusSkipped:
		return ansiBlue + text + ansiReset
	case manifest.StatusFailed:
		return ansiRed + text + ansiReset
	default:
		return text
	}
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.Round(time.Millisecond).String()
}

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiBlue  = "\x1b[34m"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
