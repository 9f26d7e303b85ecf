package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/immich-dedupe/internal/config"
	"github.com/sells-group/immich-dedupe/internal/executor"
	"github.com/sells-group/immich-dedupe/internal/store"
	"github.com/sells-group/immich-dedupe/pkg/immich"
)

// newClient validates the remote configuration and builds the API client.
func newClient(cfg *config.Config) (immich.Client, error) {
	if err := cfg.Validate("remote"); err != nil {
		return nil, err
	}
	return immich.NewClient(cfg.Server.URL, cfg.Server.APIKey), nil
}

// executorConfig maps the file config onto the executor's.
func executorConfig(cfg *config.Config, progress bool) executor.Config {
	return executor.Config{
		RequestsPerSec: cfg.Execute.RequestsPerSec,
		MaxConcurrent:  cfg.Execute.MaxConcurrent,
		BackupDir:      cfg.Execute.BackupDir,
		ForceDelete:    cfg.Execute.ForceDelete,
		SkipConflicted: cfg.Execute.SkipConflicted,
		PreserveAlbums: cfg.Execute.PreserveAlbums,
		Progress:       progress,
	}
}

// writeJSONFile writes v as indented JSON to path.
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal output")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "write %s", path)
	}
	return nil
}

// readJSONFile reads path into v.
func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "read %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return eris.Wrapf(err, "parse %s", path)
	}
	return nil
}

// recordRun persists a run record to the local history store. Best effort:
// a store failure is logged, never fatal.
func recordRun(ctx context.Context, cfg *config.Config, kind store.RunKind, status string, summary any) {
	s, err := store.Open(cfg.Store.Path)
	if err != nil {
		zap.L().Warn("run history unavailable", zap.Error(err))
		return
	}
	defer s.Close() //nolint:errcheck

	data, err := json.Marshal(summary)
	if err != nil {
		zap.L().Warn("marshal run summary", zap.Error(err))
		return
	}
	if _, err := s.RecordRun(ctx, kind, status, string(data)); err != nil {
		zap.L().Warn("record run", zap.Error(err))
	}
}
