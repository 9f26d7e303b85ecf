// Package consolidate plans metadata transfers from losers to the winner
// before the losers are deleted.
//
// The writable field set is fixed at compile time to GPS, capture timestamp,
// and description: the Immich API does not allow updating camera, lens, or
// exposure fields. That is a permanent API limitation, not something a
// runtime filter should be able to widen.
package consolidate

import (
	"fmt"

	"github.com/sells-group/immich-dedupe/internal/scoring"
	"github.com/sells-group/immich-dedupe/pkg/immich"
)

// Field identifies one writable metadata field.
type Field string

const (
	FieldGPS         Field = "gps"
	FieldCaptureTime Field = "capture_time"
	FieldDescription Field = "description"
)

// Transfer records one planned field copy: which field, the value, and the
// loser it came from.
type Transfer struct {
	Field         Field  `json:"field"`
	Value         string `json:"value"`
	SourceAssetID string `json:"source_asset_id"`
}

// Plan is the set of metadata writes for one group's winner. An empty plan
// means the winner already has everything; that is success, not an error.
type Plan struct {
	WinnerID  string     `json:"winner_id"`
	Transfers []Transfer `json:"transfers"`
	update    immich.MetadataUpdate
}

// IsEmpty reports whether the plan carries no writes.
func (p *Plan) IsEmpty() bool {
	return p == nil || len(p.Transfers) == 0
}

// Update returns the API payload realizing the plan.
func (p *Plan) Update() immich.MetadataUpdate {
	if p == nil {
		return immich.MetadataUpdate{}
	}
	return p.update
}

// BuildPlan scans the losers in order and plans a copy of the first present
// value for each writable field the winner lacks. Populated winner fields
// are never overwritten.
func BuildPlan(winner scoring.ScoredAsset, losers []scoring.ScoredAsset) *Plan {
	plan := &Plan{WinnerID: winner.Asset.ID}
	we := winner.Asset.ExifInfo

	needGPS := !we.HasGPS()
	needTime := !we.HasCaptureTime()
	needDesc := !we.HasDescription()

	for i := range losers {
		le := losers[i].Asset.ExifInfo
		if le == nil {
			continue
		}
		sourceID := losers[i].Asset.ID

		if needGPS && le.HasGPS() {
			lat, lon := *le.Latitude, *le.Longitude
			plan.update.Latitude = &lat
			plan.update.Longitude = &lon
			plan.Transfers = append(plan.Transfers, Transfer{
				Field:         FieldGPS,
				Value:         fmt.Sprintf("%.6f,%.6f", lat, lon),
				SourceAssetID: sourceID,
			})
			needGPS = false
		}

		if needTime && le.HasCaptureTime() {
			dt := *le.DateTimeOriginal
			plan.update.DateTimeOriginal = &dt
			plan.Transfers = append(plan.Transfers, Transfer{
				Field:         FieldCaptureTime,
				Value:         dt,
				SourceAssetID: sourceID,
			})
			needTime = false
		}

		if needDesc && le.HasDescription() {
			desc := *le.Description
			plan.update.Description = &desc
			plan.Transfers = append(plan.Transfers, Transfer{
				Field:         FieldDescription,
				Value:         desc,
				SourceAssetID: sourceID,
			})
			needDesc = false
		}

		if !needGPS && !needTime && !needDesc {
			break
		}
	}

	return plan
}
