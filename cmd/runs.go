package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/immich-dedupe/internal/store"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent runs from the local history",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("local"); err != nil {
			return err
		}

		s, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer s.Close() //nolint:errcheck

		runs, err := s.ListRuns(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("no runs recorded")
			return nil
		}

		for _, run := range runs {
			fmt.Printf("%s  %-18s %-9s %s\n",
				run.CreatedAt.Format("2006-01-02 15:04:05"), run.Kind, run.Status, run.Summary)
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum runs to list")
	rootCmd.AddCommand(runsCmd)
}
