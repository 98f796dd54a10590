package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"astropipe/internal/preprocess"
	"astropipe/internal/stage"
)

// newPlanCommand resolves the stage execution order for a flag set
// without touching the host or the filesystem.
func newPlanCommand(ctx *commandContext) *cobra.Command {
	preFlags := &preprocessFlags{}
	enhFlags := &enhanceFlags{}
	var includePreprocess bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the stage execution order for a flag set without running",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var handlers []stage.Handler
			if includePreprocess {
				handlers = preprocess.Handlers(preFlags.options(cfg.Siril.Extension))
			}
			enhanceHandlers, err := enhFlags.handlers(ctx)
			if err != nil {
				return err
			}
			handlers = append(handlers, enhanceHandlers...)
			if len(handlers) == 0 {
				return fmt.Errorf("no stages requested")
			}

			rows := make([][]string, 0, len(handlers))
			for i, handler := range stage.Sort(handlers) {
				request := handler.Request()
				marker := strings.Join(handler.Marker().Candidates, ", ")
				if marker == "" {
					marker = "(always runs)"
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", i+1),
					request.Label(),
					request.Signature(),
					marker,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Stage", "Signature", "Completion marker"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&includePreprocess, "preprocess", false, "Include the preprocessing stages in the plan")
	preFlags.bind(cmd)
	enhFlags.bind(cmd)
	return cmd
}
