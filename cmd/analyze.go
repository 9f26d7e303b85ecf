package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/immich-dedupe/internal/scoring"
	"github.com/sells-group/immich-dedupe/internal/store"
)

var analyzeOut string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Fetch duplicate groups and write a reviewable analysis",
	Long: "Fetches duplicate groups from the server, selects a winner per group by pixel " +
		"count then file size, detects metadata conflicts, and writes the analysis JSON " +
		"consumed by execute and verify.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		client, err := newClient(cfg)
		if err != nil {
			return err
		}

		groups, err := client.GetDuplicates(ctx)
		if err != nil {
			return eris.Wrap(err, "fetch duplicate groups")
		}
		zap.L().Info("fetched duplicate groups", zap.Int("groups", len(groups)))

		detector := scoring.ConflictDetector{
			CaptureTimeTolerance: time.Duration(cfg.Conflict.CaptureTimeToleranceSecs) * time.Second,
		}
		analysis := scoring.Analyze(groups, detector, cfg.Server.URL)

		if err := writeJSONFile(analyzeOut, analysis); err != nil {
			return err
		}

		recordRun(ctx, cfg, store.RunAnalyze, "complete", map[string]int{
			"total_groups":       analysis.TotalGroups,
			"total_assets":       analysis.TotalAssets,
			"needs_review_count": analysis.NeedsReviewCount,
		})

		fmt.Printf("Analyzed %d groups (%d assets), %d need review. Written to %s\n",
			analysis.TotalGroups, analysis.TotalAssets, analysis.NeedsReviewCount, analyzeOut)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "o", "analysis.json", "output path for the analysis")
	rootCmd.AddCommand(analyzeCmd)
}
