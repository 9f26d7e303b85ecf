package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/immich-dedupe/internal/store"
)

var restoreDir string

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Re-upload backup files as new assets",
	Long: "Uploads every file in the backup directory back to the server, stripping the " +
		"asset-id prefix so assets are restored under their original filenames.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		client, err := newClient(cfg)
		if err != nil {
			return err
		}

		entries, err := os.ReadDir(restoreDir)
		if err != nil {
			return eris.Wrapf(err, "read backup directory %s", restoreDir)
		}

		var uploaded, duplicates, failed int
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(restoreDir, entry.Name())

			resp, err := client.UploadAsset(ctx, path)
			if err != nil {
				failed++
				zap.L().Error("upload failed", zap.String("file", entry.Name()), zap.Error(err))
				continue
			}
			if resp.Duplicate {
				duplicates++
				zap.L().Info("already on server", zap.String("file", entry.Name()))
				continue
			}
			uploaded++
			zap.L().Info("restored", zap.String("file", entry.Name()), zap.String("asset_id", resp.ID))
		}

		recordRun(ctx, cfg, store.RunRestore, "complete", map[string]int{
			"uploaded":   uploaded,
			"duplicates": duplicates,
			"failed":     failed,
		})

		fmt.Printf("Restored %d files (%d already on server, %d failed)\n", uploaded, duplicates, failed)
		return nil
	},
}

func init() {
	restoreCmd.Flags().StringVarP(&restoreDir, "dir", "d", "./backups", "backup directory to restore from")
	rootCmd.AddCommand(restoreCmd)
}
