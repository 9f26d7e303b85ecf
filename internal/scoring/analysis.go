package scoring

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/immich-dedupe/pkg/model"
)

// ScoredAsset is an asset with its completeness score and pixel count,
// owned by exactly one duplicate analysis.
type ScoredAsset struct {
	Asset      model.Asset   `json:"asset"`
	Score      MetadataScore `json:"score"`
	PixelCount int64         `json:"pixel_count"`
}

// DuplicateAnalysis is the reviewable resolution of one duplicate group:
// one winner, the losers in deterministic order, and any conflicts.
type DuplicateAnalysis struct {
	DuplicateID string        `json:"duplicate_id"`
	Winner      ScoredAsset   `json:"winner"`
	Losers      []ScoredAsset `json:"losers"`
	Conflicts   []Conflict    `json:"conflicts"`
	NeedsReview bool          `json:"needs_review"`
}

// Analysis is the full reviewable output of an analyze run. The schema is
// stable; other tooling consumes it.
type Analysis struct {
	GeneratedAt      time.Time           `json:"generated_at"`
	ServerURL        string              `json:"server_url"`
	TotalGroups      int                 `json:"total_groups"`
	TotalAssets      int                 `json:"total_assets"`
	NeedsReviewCount int                 `json:"needs_review_count"`
	Groups           []DuplicateAnalysis `json:"groups"`
}

// AnalyzeGroup scores every asset in a duplicate group, selects the winner,
// and detects conflicts between the winner and each loser.
//
// The winner is the asset with the most pixels; on an exact pixel-count tie
// the larger file wins, and remaining ties keep input order. Missing
// dimensions count as zero pixels, so an asset with unknown dimensions never
// outranks one with known dimensions.
//
// Returns nil for groups with fewer than two assets: there is nothing to
// resolve and nothing safe to delete.
func AnalyzeGroup(group model.DuplicateGroup, detector ConflictDetector) *DuplicateAnalysis {
	if len(group.Assets) < 2 {
		zap.L().Debug("skipping degenerate duplicate group",
			zap.String("duplicate_id", group.DuplicateID),
			zap.Int("assets", len(group.Assets)),
		)
		return nil
	}

	scored := make([]ScoredAsset, 0, len(group.Assets))
	for _, asset := range group.Assets {
		scored = append(scored, ScoredAsset{
			Asset:      asset,
			Score:      ScoreAsset(&asset),
			PixelCount: asset.PixelCount(),
		})
	}

	// Stable sort keeps input order for assets tied on both keys, which
	// keeps the analysis reproducible across runs.
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].PixelCount != scored[j].PixelCount {
			return scored[i].PixelCount > scored[j].PixelCount
		}
		return scored[i].Asset.FileSize() > scored[j].Asset.FileSize()
	})

	winner := scored[0]
	losers := scored[1:]

	var conflicts []Conflict
	for i := range losers {
		conflicts = append(conflicts, detector.Detect(&winner.Asset, &losers[i].Asset)...)
	}
	conflicts = dedupeConflicts(conflicts)

	return &DuplicateAnalysis{
		DuplicateID: group.DuplicateID,
		Winner:      winner,
		Losers:      losers,
		Conflicts:   conflicts,
		NeedsReview: len(conflicts) > 0,
	}
}

// Analyze resolves all duplicate groups into a single Analysis.
func Analyze(groups []model.DuplicateGroup, detector ConflictDetector, serverURL string) *Analysis {
	analysis := &Analysis{
		GeneratedAt: time.Now().UTC(),
		ServerURL:   serverURL,
		Groups:      []DuplicateAnalysis{},
	}

	for _, group := range groups {
		result := AnalyzeGroup(group, detector)
		if result == nil {
			continue
		}
		analysis.Groups = append(analysis.Groups, *result)
		analysis.TotalGroups++
		analysis.TotalAssets += len(group.Assets)
		if result.NeedsReview {
			analysis.NeedsReviewCount++
		}
	}

	return analysis
}
