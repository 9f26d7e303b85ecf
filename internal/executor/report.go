package executor

import (
	"time"

	"github.com/sells-group/immich-dedupe/internal/consolidate"
)

// State is the per-group pipeline state. Done and PartialFailure are the
// terminal states.
type State string

const (
	StatePending        State = "pending"
	StateConsolidating  State = "consolidating"
	StateDownloading    State = "downloading"
	StateDeleting       State = "deleting"
	StateDone           State = "done"
	StatePartialFailure State = "partial_failure"
)

// Status is the outcome of a single operation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// OperationResult records the outcome of one operation on one asset.
type OperationResult struct {
	AssetID string `json:"asset_id"`
	Status  Status `json:"status"`
	Path    string `json:"path,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

func success(assetID, path string) OperationResult {
	return OperationResult{AssetID: assetID, Status: StatusSuccess, Path: path}
}

func failed(assetID, reason string) OperationResult {
	return OperationResult{AssetID: assetID, Status: StatusFailed, Reason: reason}
}

func skipped(assetID, reason string) OperationResult {
	return OperationResult{AssetID: assetID, Status: StatusSkipped, Reason: reason}
}

// GroupResult aggregates the outcomes for one group.
type GroupResult struct {
	GroupID       string                  `json:"group_id"`
	WinnerID      string                  `json:"winner_id"`
	State         State                   `json:"state"`
	Consolidation *OperationResult        `json:"consolidation,omitempty"`
	Transfers     []consolidate.Transfer  `json:"transfers,omitempty"`
	Albums        *AlbumTransferResult    `json:"albums,omitempty"`
	Downloads     []OperationResult       `json:"downloads"`
	Deletes       []OperationResult       `json:"deletes"`
}

// Report is the structured result of an execute run. Per-asset failures are
// aggregated here rather than failing the run; only a fatal (auth) error
// aborts.
type Report struct {
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
	TotalGroups  int           `json:"total_groups"`
	Downloaded   int           `json:"downloaded"`
	Deleted      int           `json:"deleted"`
	Consolidated int           `json:"consolidated"`
	Failed       int           `json:"failed"`
	Skipped      int           `json:"skipped"`
	Aborted      bool          `json:"aborted"`
	AbortReason  string        `json:"abort_reason,omitempty"`
	Groups       []GroupResult `json:"groups"`
}

// tally folds one group result into the aggregate counters.
func (r *Report) tally(gr GroupResult) {
	r.TotalGroups++
	if gr.Consolidation != nil {
		switch gr.Consolidation.Status {
		case StatusSuccess:
			r.Consolidated++
		case StatusFailed:
			r.Failed++
		}
	}
	for _, d := range gr.Downloads {
		switch d.Status {
		case StatusSuccess:
			r.Downloaded++
		case StatusFailed:
			r.Failed++
		case StatusSkipped:
			r.Skipped++
		}
	}
	for _, d := range gr.Deletes {
		switch d.Status {
		case StatusSuccess:
			r.Deleted++
		case StatusFailed:
			r.Failed++
		case StatusSkipped:
			r.Skipped++
		}
	}
}
