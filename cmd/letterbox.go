package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/immich-dedupe/internal/executor"
	"github.com/sells-group/immich-dedupe/internal/letterbox"
	"github.com/sells-group/immich-dedupe/internal/store"
	"github.com/sells-group/immich-dedupe/internal/verify"
	"github.com/sells-group/immich-dedupe/pkg/immich"
	"github.com/sells-group/immich-dedupe/pkg/model"
)

var letterboxCmd = &cobra.Command{
	Use:   "letterbox",
	Short: "Detect and resolve 4:3/16:9 crop-pair duplicates",
	Long: "Crop pairs share no server-side duplicate group; they are paired by capture " +
		"timestamp, camera identity, and GPS. The 4:3 full-sensor capture is always kept.",
}

var (
	letterboxAnalyzeOut string

	letterboxAnalyzeCmd = &cobra.Command{
		Use:   "analyze",
		Short: "Scan the full inventory for crop pairs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := newClient(cfg)
			if err != nil {
				return err
			}

			assets, err := fetchInventory(cmd, client)
			if err != nil {
				return eris.Wrap(err, "fetch asset inventory")
			}

			opts := letterbox.Options{Make: cfg.Letterbox.Make, Model: cfg.Letterbox.Model}
			pairs, summary := letterbox.FindPairs(assets, opts)
			analysis := letterbox.NewAnalysis(pairs, summary, cfg.Server.URL)

			if err := writeJSONFile(letterboxAnalyzeOut, analysis); err != nil {
				return err
			}

			recordRun(ctx, cfg, store.RunLetterboxAnalyze, "complete", summary)

			fmt.Printf("Scanned %d assets: %d pairs found (%d bytes recoverable), %d skipped by camera, %d ambiguous. Written to %s\n",
				summary.AssetsScanned, summary.PairsFound, summary.SpaceRecoverableBytes,
				summary.SkippedCamera, summary.SkippedAmbiguous, letterboxAnalyzeOut)
			return nil
		},
	}
)

var (
	letterboxExecuteAnalysis string
	letterboxExecuteOut      string

	letterboxExecuteCmd = &cobra.Command{
		Use:   "execute",
		Short: "Back up and delete the 16:9 side of each pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var analysis letterbox.Analysis
			if err := readJSONFile(letterboxExecuteAnalysis, &analysis); err != nil {
				return err
			}

			client, err := newClient(cfg)
			if err != nil {
				return err
			}

			exec := executor.New(client, executorConfig(cfg, true))
			report, execErr := exec.Execute(ctx, executor.FromLetterbox(&analysis))

			if report != nil {
				if err := writeJSONFile(letterboxExecuteOut, report); err != nil {
					return err
				}

				status := "complete"
				if report.Aborted {
					status = "aborted"
				}
				recordRun(ctx, cfg, store.RunLetterboxExecute, status, map[string]int{
					"total_pairs": report.TotalGroups,
					"downloaded":  report.Downloaded,
					"deleted":     report.Deleted,
					"failed":      report.Failed,
					"skipped":     report.Skipped,
				})

				fmt.Printf("Processed %d pairs: %d downloaded, %d deleted, %d failed, %d skipped. Report: %s\n",
					report.TotalGroups, report.Downloaded, report.Deleted,
					report.Failed, report.Skipped, letterboxExecuteOut)
			}

			return execErr
		},
	}
)

var (
	letterboxVerifyAnalysis string
	letterboxVerifyReport   string
	letterboxVerifyOut      string

	letterboxVerifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "Audit the server state against an executed letterbox analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var analysis letterbox.Analysis
			if err := readJSONFile(letterboxVerifyAnalysis, &analysis); err != nil {
				return err
			}

			client, err := newClient(cfg)
			if err != nil {
				return err
			}

			verifier := verify.New(client)
			if letterboxVerifyReport != "" {
				var exec executor.Report
				if err := readJSONFile(letterboxVerifyReport, &exec); err != nil {
					return err
				}
				verifier = verifier.WithReport(&exec)
			}

			report, err := verifier.Verify(ctx, executor.FromLetterbox(&analysis))
			if err != nil {
				return err
			}

			if err := writeJSONFile(letterboxVerifyOut, report); err != nil {
				return err
			}

			recordRun(ctx, cfg, store.RunLetterboxVerify, "complete", map[string]int{
				"total_pairs": report.TotalGroups,
				"passed":      report.Passed,
				"failed":      report.Failed,
				"skipped":     report.Skipped,
				"anomalies":   report.AnomalyCount,
			})

			fmt.Printf("Verified %d pairs: %d passed, %d failed, %d skipped, %d anomalies. Report: %s\n",
				report.TotalGroups, report.Passed, report.Failed, report.Skipped, report.AnomalyCount, letterboxVerifyOut)
			return nil
		},
	}
)

// fetchInventory pages through the full asset inventory. The server filters
// out trashed assets; pagination ends when nextPage is zero.
func fetchInventory(cmd *cobra.Command, client immich.Client) ([]model.Asset, error) {
	var all []model.Asset
	page := 1
	for {
		assets, next, err := client.SearchAssets(cmd.Context(), page, cfg.Letterbox.PageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, assets...)
		zap.L().Debug("fetched inventory page",
			zap.Int("page", page),
			zap.Int("assets", len(assets)),
		)
		if next == 0 {
			return all, nil
		}
		page = next
	}
}

func init() {
	letterboxAnalyzeCmd.Flags().StringVarP(&letterboxAnalyzeOut, "out", "o", "letterbox-analysis.json", "output path for the letterbox analysis")
	letterboxExecuteCmd.Flags().StringVarP(&letterboxExecuteAnalysis, "analysis", "a", "letterbox-analysis.json", "letterbox analysis file to execute")
	letterboxExecuteCmd.Flags().StringVarP(&letterboxExecuteOut, "out", "o", "letterbox-report.json", "output path for the execution report")
	letterboxVerifyCmd.Flags().StringVarP(&letterboxVerifyAnalysis, "analysis", "a", "letterbox-analysis.json", "letterbox analysis file to verify against")
	letterboxVerifyCmd.Flags().StringVarP(&letterboxVerifyReport, "report", "r", "", "execution report; when given, only changes it records are audited")
	letterboxVerifyCmd.Flags().StringVarP(&letterboxVerifyOut, "out", "o", "letterbox-verification.json", "output path for the verification report")

	letterboxCmd.AddCommand(letterboxAnalyzeCmd, letterboxExecuteCmd, letterboxVerifyCmd)
	rootCmd.AddCommand(letterboxCmd)
}
