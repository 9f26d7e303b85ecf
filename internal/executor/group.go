package executor

import (
	"github.com/sells-group/immich-dedupe/internal/consolidate"
	"github.com/sells-group/immich-dedupe/internal/letterbox"
	"github.com/sells-group/immich-dedupe/internal/scoring"
)

// Loser is one asset marked for removal within a group.
type Loser struct {
	AssetID  string
	Filename string
}

// Group is the executor's unit of work. Both the duplicate analysis and the
// letterbox analysis reduce to this shape, so one pipeline serves both.
type Group struct {
	ID          string
	WinnerID    string
	Losers      []Loser
	Plan        *consolidate.Plan
	NeedsReview bool
}

// FromAnalysis converts a duplicate analysis into executor work units,
// building the consolidation plan for each group from the analysis itself.
func FromAnalysis(analysis *scoring.Analysis) []Group {
	groups := make([]Group, 0, len(analysis.Groups))
	for _, a := range analysis.Groups {
		losers := make([]Loser, 0, len(a.Losers))
		for _, l := range a.Losers {
			losers = append(losers, Loser{
				AssetID:  l.Asset.ID,
				Filename: l.Asset.OriginalFileName,
			})
		}
		groups = append(groups, Group{
			ID:          a.DuplicateID,
			WinnerID:    a.Winner.Asset.ID,
			Losers:      losers,
			Plan:        consolidate.BuildPlan(a.Winner, a.Losers),
			NeedsReview: a.NeedsReview,
		})
	}
	return groups
}

// FromLetterbox converts letterbox pairs into executor work units. Pairs
// carry no consolidation plan and are never review-gated: the selection
// policy is fixed, not scored.
func FromLetterbox(analysis *letterbox.Analysis) []Group {
	groups := make([]Group, 0, len(analysis.Pairs))
	for _, p := range analysis.Pairs {
		groups = append(groups, Group{
			ID:       p.KeeperID,
			WinnerID: p.KeeperID,
			Losers: []Loser{{
				AssetID:  p.DeleteID,
				Filename: p.DeleteFilename,
			}},
		})
	}
	return groups
}
