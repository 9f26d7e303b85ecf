// Package verify audits the end state after an execute run: winners must
// persist untrashed, losers must be trashed or gone, and consolidated fields
// must hold their expected values. It reports; it never repairs.
package verify

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/immich-dedupe/internal/consolidate"
	"github.com/sells-group/immich-dedupe/internal/executor"
	"github.com/sells-group/immich-dedupe/pkg/immich"
	"github.com/sells-group/immich-dedupe/pkg/model"
)

// GroupVerification is the audit outcome for one group.
type GroupVerification struct {
	GroupID         string   `json:"group_id"`
	WinnerOK        bool     `json:"winner_ok"`
	LosersRemoved   bool     `json:"losers_removed"`
	ConsolidationOK bool     `json:"consolidation_ok"`
	Skipped         bool     `json:"skipped,omitempty"`
	Pass            bool     `json:"pass"`
	Anomalies       []string `json:"anomalies,omitempty"`
}

// Report is the structured output of a verify run.
type Report struct {
	GeneratedAt  time.Time           `json:"generated_at"`
	TotalGroups  int                 `json:"total_groups"`
	Passed       int                 `json:"passed"`
	Failed       int                 `json:"failed"`
	Skipped      int                 `json:"skipped"`
	AnomalyCount int                 `json:"anomaly_count"`
	Groups       []GroupVerification `json:"groups"`
}

// Verifier re-queries the remote service against executor work units.
type Verifier struct {
	client  immich.Client
	results map[string]executor.GroupResult
}

// New creates a Verifier.
func New(client immich.Client) *Verifier {
	return &Verifier{client: client}
}

// WithReport keys verification on what an execute run actually did. Losers
// whose delete never succeeded are not expected to be gone, and consolidated
// values are checked against the recorded transfers rather than a recomputed
// plan.
func (v *Verifier) WithReport(r *executor.Report) *Verifier {
	v.results = make(map[string]executor.GroupResult, len(r.Groups))
	for _, gr := range r.Groups {
		v.results[gr.GroupID] = gr
	}
	return v
}

// Verify audits every group. Remote failures other than auth are recorded as
// anomalies; an auth failure aborts and returns the error.
func (v *Verifier) Verify(ctx context.Context, groups []executor.Group) (*Report, error) {
	report := &Report{GeneratedAt: time.Now().UTC(), Groups: []GroupVerification{}}

	for _, group := range groups {
		gv, err := v.verifyGroup(ctx, group)
		if err != nil {
			return report, err
		}
		report.Groups = append(report.Groups, gv)
		report.TotalGroups++
		report.AnomalyCount += len(gv.Anomalies)
		switch {
		case gv.Skipped:
			report.Skipped++
		case gv.Pass:
			report.Passed++
		default:
			report.Failed++
		}
	}

	zap.L().Info("verification complete",
		zap.Int("groups", report.TotalGroups),
		zap.Int("passed", report.Passed),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
		zap.Int("anomalies", report.AnomalyCount),
	)
	return report, nil
}

func (v *Verifier) verifyGroup(ctx context.Context, group executor.Group) (GroupVerification, error) {
	gv := GroupVerification{GroupID: group.ID, LosersRemoved: true, ConsolidationOK: true}

	var result *executor.GroupResult
	if v.results != nil {
		if gr, ok := v.results[group.ID]; ok {
			result = &gr
		}
	}

	winner, err := v.client.GetAsset(ctx, group.WinnerID)
	switch {
	case err == nil && !winner.IsTrashed:
		gv.WinnerOK = true
	case err == nil:
		gv.Anomalies = append(gv.Anomalies, "winner "+group.WinnerID+" is trashed")
	case immich.IsAuthError(err):
		return gv, err
	case immich.IsNotFound(err):
		gv.Anomalies = append(gv.Anomalies, "winner "+group.WinnerID+" no longer exists")
	default:
		gv.Anomalies = append(gv.Anomalies, "winner "+group.WinnerID+": "+err.Error())
	}

	// A group the execute run never mutated has nothing to audit; its losers
	// are expected to survive.
	if v.results != nil && nothingApplied(result) {
		if gv.WinnerOK {
			gv.Skipped = true
			gv.Pass = true
		}
		return gv, nil
	}

	for _, loser := range group.Losers {
		if result != nil && !deleteSucceeded(result, loser.AssetID) {
			continue
		}
		asset, err := v.client.GetAsset(ctx, loser.AssetID)
		switch {
		case err == nil && asset.IsTrashed:
			// trashed counts as removed
		case err == nil:
			gv.LosersRemoved = false
			gv.Anomalies = append(gv.Anomalies, "loser "+loser.AssetID+" still present and not trashed")
		case immich.IsNotFound(err):
			// 404 means deleted
		case immich.IsAuthError(err):
			return gv, err
		default:
			gv.LosersRemoved = false
			gv.Anomalies = append(gv.Anomalies, "loser "+loser.AssetID+": "+err.Error())
		}
	}

	transfers := consolidatedTransfers(group, result, v.results != nil)
	if len(transfers) > 0 && winner != nil {
		for _, anomaly := range checkTransfers(winner, transfers) {
			gv.ConsolidationOK = false
			gv.Anomalies = append(gv.Anomalies, anomaly)
		}
	}

	gv.Pass = gv.WinnerOK && gv.LosersRemoved && gv.ConsolidationOK
	return gv, nil
}

// nothingApplied reports whether the execute run changed no server state for
// the group: consolidation never succeeded and no loser was deleted.
func nothingApplied(result *executor.GroupResult) bool {
	if result == nil {
		return true
	}
	if result.Consolidation != nil && result.Consolidation.Status == executor.StatusSuccess {
		return false
	}
	for _, d := range result.Deletes {
		if d.Status == executor.StatusSuccess {
			return false
		}
	}
	return true
}

func deleteSucceeded(result *executor.GroupResult, assetID string) bool {
	for _, d := range result.Deletes {
		if d.AssetID == assetID && d.Status == executor.StatusSuccess {
			return true
		}
	}
	return false
}

// consolidatedTransfers picks the transfers to audit. With a report the
// recorded transfers are authoritative, and only when consolidation actually
// succeeded; without one the recomputed plan is the best available guess.
func consolidatedTransfers(group executor.Group, result *executor.GroupResult, hasReport bool) []consolidate.Transfer {
	if hasReport {
		if result != nil && result.Consolidation != nil && result.Consolidation.Status == executor.StatusSuccess {
			return result.Transfers
		}
		return nil
	}
	if group.Plan.IsEmpty() {
		return nil
	}
	return group.Plan.Transfers
}

// checkTransfers confirms the winner now carries each consolidated value.
func checkTransfers(winner *model.Asset, transfers []consolidate.Transfer) []string {
	var anomalies []string
	e := winner.ExifInfo

	for _, tr := range transfers {
		switch tr.Field {
		case consolidate.FieldGPS:
			if !e.HasGPS() {
				anomalies = append(anomalies, "winner missing consolidated GPS")
				continue
			}
			var lat, lon float64
			if _, err := fmt.Sscanf(tr.Value, "%f,%f", &lat, &lon); err == nil {
				if math.Abs(*e.Latitude-lat) > 0.0001 || math.Abs(*e.Longitude-lon) > 0.0001 {
					anomalies = append(anomalies, fmt.Sprintf(
						"winner GPS %.6f,%.6f differs from consolidated %s",
						*e.Latitude, *e.Longitude, tr.Value))
				}
			}
		case consolidate.FieldCaptureTime:
			if !e.HasCaptureTime() {
				anomalies = append(anomalies, "winner missing consolidated capture time")
			} else if !timestampsEqual(*e.DateTimeOriginal, tr.Value) {
				anomalies = append(anomalies, "winner capture time "+*e.DateTimeOriginal+
					" differs from consolidated "+tr.Value)
			}
		case consolidate.FieldDescription:
			if !e.HasDescription() {
				anomalies = append(anomalies, "winner missing consolidated description")
			} else if strings.TrimSpace(*e.Description) != strings.TrimSpace(tr.Value) {
				anomalies = append(anomalies, "winner description differs from consolidated value")
			}
		}
	}
	return anomalies
}

// timestampsEqual compares timestamps as instants when both parse, so the
// server re-serializing in a different zone or precision is not an anomaly.
func timestampsEqual(a, b string) bool {
	ta, errA := time.Parse(time.RFC3339Nano, strings.TrimSpace(a))
	tb, errB := time.Parse(time.RFC3339Nano, strings.TrimSpace(b))
	if errA != nil || errB != nil {
		return strings.TrimSpace(a) == strings.TrimSpace(b)
	}
	return ta.Equal(tb)
}
