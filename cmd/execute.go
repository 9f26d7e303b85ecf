package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/immich-dedupe/internal/executor"
	"github.com/sells-group/immich-dedupe/internal/scoring"
	"github.com/sells-group/immich-dedupe/internal/store"
)

var (
	executeAnalysisPath string
	executeReportPath   string
)

var executeCmd = &cobra.Command{
	Use:   "execute",
	Short: "Run the resolution pipeline over an analysis file",
	Long: "Consumes an analysis file: consolidates winner metadata, downloads every loser " +
		"to the backup directory, deletes only losers whose backup is verified on disk, " +
		"and writes an execution report.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var analysis scoring.Analysis
		if err := readJSONFile(executeAnalysisPath, &analysis); err != nil {
			return err
		}

		client, err := newClient(cfg)
		if err != nil {
			return err
		}

		exec := executor.New(client, executorConfig(cfg, true))
		report, execErr := exec.Execute(ctx, executor.FromAnalysis(&analysis))

		if report != nil {
			if err := writeJSONFile(executeReportPath, report); err != nil {
				return err
			}

			status := "complete"
			if report.Aborted {
				status = "aborted"
			}
			recordRun(ctx, cfg, store.RunExecute, status, map[string]int{
				"total_groups": report.TotalGroups,
				"downloaded":   report.Downloaded,
				"deleted":      report.Deleted,
				"consolidated": report.Consolidated,
				"failed":       report.Failed,
				"skipped":      report.Skipped,
			})

			fmt.Printf("Processed %d groups: %d downloaded, %d deleted, %d consolidated, %d failed, %d skipped. Report: %s\n",
				report.TotalGroups, report.Downloaded, report.Deleted,
				report.Consolidated, report.Failed, report.Skipped, executeReportPath)
		}

		// Per-asset failures are in the report; only fatal errors reach here.
		return execErr
	},
}

func init() {
	executeCmd.Flags().StringVarP(&executeAnalysisPath, "analysis", "a", "analysis.json", "analysis file to execute")
	executeCmd.Flags().StringVarP(&executeReportPath, "out", "o", "execution-report.json", "output path for the execution report")
	rootCmd.AddCommand(executeCmd)
}
