package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"astropipe/internal/manifest"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the recorded stage history for a working directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			workdir, err := ctx.workdir()
			if err != nil {
				return err
			}
			store, err := manifest.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.History(cmd.Context(), workdir, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintf(out, "No recorded runs for %s\n", workdir)
				return nil
			}

			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(records))
			for _, record := range records {
				rows = append(rows, []string{
					shortRunID(record.RunID),
					record.Stage,
					record.Signature,
					statusCell(record.Status, colorize),
					record.StartedAt.Local().Format(time.DateTime),
					record.Detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Stage", "Signature", "Status", "Started", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of stage records to show")
	return cmd
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
