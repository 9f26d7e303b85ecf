package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/immich-dedupe/internal/executor"
	"github.com/sells-group/immich-dedupe/internal/scoring"
	"github.com/sells-group/immich-dedupe/internal/store"
	"github.com/sells-group/immich-dedupe/internal/verify"
)

var (
	verifyAnalysisPath   string
	verifyExecReportPath string
	verifyReportPath     string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Audit the server state against an executed analysis",
	Long: "Re-queries the server for every group in the analysis: winners must persist " +
		"untrashed, losers must be trashed or gone, consolidated metadata must hold. " +
		"Reports anomalies; repairs nothing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var analysis scoring.Analysis
		if err := readJSONFile(verifyAnalysisPath, &analysis); err != nil {
			return err
		}

		client, err := newClient(cfg)
		if err != nil {
			return err
		}

		verifier := verify.New(client)
		if verifyExecReportPath != "" {
			var exec executor.Report
			if err := readJSONFile(verifyExecReportPath, &exec); err != nil {
				return err
			}
			verifier = verifier.WithReport(&exec)
		}

		report, err := verifier.Verify(ctx, executor.FromAnalysis(&analysis))
		if err != nil {
			return err
		}

		if err := writeJSONFile(verifyReportPath, report); err != nil {
			return err
		}

		recordRun(ctx, cfg, store.RunVerify, "complete", map[string]int{
			"total_groups": report.TotalGroups,
			"passed":       report.Passed,
			"failed":       report.Failed,
			"skipped":      report.Skipped,
			"anomalies":    report.AnomalyCount,
		})

		fmt.Printf("Verified %d groups: %d passed, %d failed, %d skipped, %d anomalies. Report: %s\n",
			report.TotalGroups, report.Passed, report.Failed, report.Skipped, report.AnomalyCount, verifyReportPath)
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyAnalysisPath, "analysis", "a", "analysis.json", "analysis file to verify against")
	verifyCmd.Flags().StringVarP(&verifyExecReportPath, "report", "r", "", "execution report; when given, only changes it records are audited")
	verifyCmd.Flags().StringVarP(&verifyReportPath, "out", "o", "verification-report.json", "output path for the verification report")
	rootCmd.AddCommand(verifyCmd)
}
