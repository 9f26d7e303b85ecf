// Package executor runs the two-phase, rate-limited resolution pipeline:
// consolidate winner metadata, download loser backups, then delete only the
// losers whose backups are verified on disk.
package executor

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/sells-group/immich-dedupe/pkg/immich"
)

// Config tunes the execution pipeline.
type Config struct {
	// RequestsPerSec bounds the outbound request rate across all operations.
	RequestsPerSec int
	// MaxConcurrent bounds simultaneous in-flight operations.
	MaxConcurrent int
	// BackupDir receives loser downloads before deletion.
	BackupDir string
	// ForceDelete permanently deletes instead of trashing.
	ForceDelete bool
	// SkipConflicted skips groups flagged needs_review entirely.
	SkipConflicted bool
	// PreserveAlbums transfers loser album memberships to the winner before
	// deletion and skips deletion when a transfer fails.
	PreserveAlbums bool
	// Progress renders a console progress bar over groups.
	Progress bool
}

// DefaultConfig returns the default execution configuration.
func DefaultConfig() Config {
	return Config{
		RequestsPerSec: 10,
		MaxConcurrent:  5,
		BackupDir:      "./backups",
	}
}

// Executor drives the pipeline. The rate limiter and the concurrency permit
// pool are constructed once per Executor and shared by every operation; they
// are the only shared mutable state.
type Executor struct {
	client  immich.Client
	cfg     Config
	limiter *rate.Limiter
	permits *semaphore.Weighted
}

// New creates an Executor with its shared limiter and permit pool.
func New(client immich.Client, cfg Config) *Executor {
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 10
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 5
	}
	if cfg.BackupDir == "" {
		cfg.BackupDir = "./backups"
	}
	return &Executor{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.RequestsPerSec),
		permits: semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}
}

// do runs one remote operation under the shared rate limiter and permit
// pool. Every network call in the pipeline goes through here.
func (e *Executor) do(ctx context.Context, op func(context.Context) error) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "executor: rate limiter wait")
	}
	if err := e.permits.Acquire(ctx, 1); err != nil {
		return eris.Wrap(err, "executor: acquire permit")
	}
	defer e.permits.Release(1)
	return op(ctx)
}

// Execute processes all groups and returns the execution report. Groups are
// independent and run concurrently; per-asset failures are recorded and the
// run continues. Only an authentication failure aborts, and then the report
// is returned alongside the error with Aborted set.
func (e *Executor) Execute(ctx context.Context, groups []Group) (*Report, error) {
	report := &Report{StartedAt: time.Now().UTC(), Groups: []GroupResult{}}

	if len(groups) == 0 {
		report.FinishedAt = time.Now().UTC()
		return report, nil
	}

	if err := os.MkdirAll(e.cfg.BackupDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "executor: create backup directory")
	}

	var bar *progressbar.ProgressBar
	if e.cfg.Progress {
		bar = progressbar.NewOptions(len(groups),
			progressbar.OptionSetDescription("Processing groups"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
		)
	}

	results := make([]GroupResult, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxConcurrent)

	for i, group := range groups {
		g.Go(func() error {
			result, err := e.executeGroup(gctx, group)
			results[i] = result
			if bar != nil {
				_ = bar.Add(1)
			}
			if err != nil {
				// Fatal: cancel remaining groups.
				return err
			}
			return nil
		})
	}

	fatal := g.Wait()
	if bar != nil {
		_ = bar.Finish()
	}

	for _, result := range results {
		if result.GroupID == "" {
			continue // never started before abort
		}
		report.tally(result)
		report.Groups = append(report.Groups, result)
	}
	report.FinishedAt = time.Now().UTC()

	if fatal != nil {
		report.Aborted = true
		report.AbortReason = fatal.Error()
		zap.L().Error("execution aborted", zap.Error(fatal))
		return report, fatal
	}

	zap.L().Info("execution complete",
		zap.Int("groups", report.TotalGroups),
		zap.Int("downloaded", report.Downloaded),
		zap.Int("deleted", report.Deleted),
		zap.Int("consolidated", report.Consolidated),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}

// executeGroup runs the state machine for one group. The returned error is
// non-nil only for fatal failures.
func (e *Executor) executeGroup(ctx context.Context, group Group) (GroupResult, error) {
	result := GroupResult{
		GroupID:   group.ID,
		WinnerID:  group.WinnerID,
		State:     StatePending,
		Downloads: []OperationResult{},
		Deletes:   []OperationResult{},
	}
	log := zap.L().With(zap.String("group", group.ID))

	if e.cfg.SkipConflicted && group.NeedsReview {
		for _, loser := range group.Losers {
			result.Downloads = append(result.Downloads, skipped(loser.AssetID, "group flagged for review"))
			result.Deletes = append(result.Deletes, skipped(loser.AssetID, "group flagged for review"))
		}
		result.State = StateDone
		log.Info("skipping conflicted group")
		return result, nil
	}

	// Phase 1a: consolidation strictly precedes any destructive action.
	result.State = StateConsolidating
	if !group.Plan.IsEmpty() {
		err := e.do(ctx, func(ctx context.Context) error {
			return e.client.UpdateMetadata(ctx, group.WinnerID, group.Plan.Update())
		})
		switch {
		case err == nil:
			op := success(group.WinnerID, "")
			result.Consolidation = &op
			result.Transfers = group.Plan.Transfers
		case immich.IsAuthError(err):
			result.State = StatePartialFailure
			return result, err
		default:
			// Transient: the winner keeps its current metadata and the
			// group still proceeds; nothing destructive has happened yet.
			op := failed(group.WinnerID, err.Error())
			result.Consolidation = &op
			log.Warn("consolidation failed", zap.Error(err))
		}
	}

	// Album transfer before deletion; a failed transfer vetoes deletion so
	// album contents are never silently lost.
	if e.cfg.PreserveAlbums {
		albums, err := e.transferAlbums(ctx, group)
		if immich.IsAuthError(err) {
			result.State = StatePartialFailure
			return result, err
		}
		result.Albums = albums
		if albums.HadFailures {
			for _, loser := range group.Losers {
				result.Deletes = append(result.Deletes, skipped(loser.AssetID, "album transfer failed"))
			}
			result.State = StatePartialFailure
			return result, nil
		}
	}

	// Phase 1b: download every loser. Downloads within a group run
	// concurrently; each one holds its own rate token and permit.
	result.State = StateDownloading
	downloads := make([]OperationResult, len(group.Losers))
	dg, dctx := errgroup.WithContext(ctx)
	for i, loser := range group.Losers {
		dg.Go(func() error {
			op, err := e.downloadLoser(dctx, loser)
			downloads[i] = op
			return err // fatal only
		})
	}
	if err := dg.Wait(); err != nil {
		result.Downloads = downloads
		result.State = StatePartialFailure
		return result, err
	}
	result.Downloads = downloads

	// Phase 2: delete only losers whose backup is verified on disk. A
	// loser's delete strictly follows its own successful download.
	result.State = StateDeleting
	var deleteIDs []string
	for _, op := range downloads {
		if op.Status != StatusSuccess {
			result.Deletes = append(result.Deletes, skipped(op.AssetID, "backup not downloaded"))
			continue
		}
		if !backupVerified(op.Path) {
			result.Deletes = append(result.Deletes, skipped(op.AssetID, "backup missing or empty on disk"))
			continue
		}
		deleteIDs = append(deleteIDs, op.AssetID)
	}

	if len(deleteIDs) > 0 {
		err := e.do(ctx, func(ctx context.Context) error {
			return e.client.DeleteAssets(ctx, deleteIDs, e.cfg.ForceDelete)
		})
		switch {
		case err == nil:
			for _, id := range deleteIDs {
				result.Deletes = append(result.Deletes, success(id, ""))
			}
		case immich.IsAuthError(err):
			result.State = StatePartialFailure
			return result, err
		default:
			for _, id := range deleteIDs {
				result.Deletes = append(result.Deletes, failed(id, err.Error()))
			}
			log.Warn("delete failed", zap.Error(err))
		}
	}

	result.State = StateDone
	for _, op := range append(result.Downloads, result.Deletes...) {
		if op.Status == StatusFailed {
			result.State = StatePartialFailure
			break
		}
	}
	if result.Consolidation != nil && result.Consolidation.Status == StatusFailed {
		result.State = StatePartialFailure
	}
	return result, nil
}

// downloadLoser streams one loser to the backup directory. Files are named
// {asset_id}_{filename} so concurrent downloads never collide.
func (e *Executor) downloadLoser(ctx context.Context, loser Loser) (OperationResult, error) {
	path := filepath.Join(e.cfg.BackupDir, loser.AssetID+"_"+loser.Filename)

	var written int64
	err := e.do(ctx, func(ctx context.Context) error {
		n, err := e.client.DownloadAsset(ctx, loser.AssetID, path)
		written = n
		return err
	})
	if err != nil {
		if immich.IsAuthError(err) {
			return failed(loser.AssetID, err.Error()), err
		}
		return failed(loser.AssetID, err.Error()), nil
	}
	if written == 0 {
		os.Remove(path)
		return failed(loser.AssetID, "empty download"), nil
	}
	return success(loser.AssetID, path), nil
}

// backupVerified reports whether a non-empty backup file exists at path.
// Deletion eligibility is checked against the disk, not the download result
// alone.
func backupVerified(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}
