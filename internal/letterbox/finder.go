// Package letterbox detects 4:3/16:9 crop-pair duplicates that share no
// server-side duplicate group, pairing full-sensor and cropped captures of
// the same moment by timestamp, camera identity, and GPS.
package letterbox

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/immich-dedupe/pkg/model"
)

// AspectRatio classifies an image as full-sensor or cropped.
type AspectRatio int

const (
	// RatioOther covers anything outside both tolerance bands.
	RatioOther AspectRatio = iota
	// RatioFourThree is the 4:3 full-sensor capture.
	RatioFourThree
	// RatioSixteenNine is the 16:9 crop.
	RatioSixteenNine
)

const (
	ratioTolerance = 0.01
	ratio43        = 4.0 / 3.0
	ratio169       = 16.0 / 9.0
)

// DetectAspectRatio classifies dimensions using the orientation-agnostic
// ratio max(w,h)/min(w,h), so portrait and landscape captures match the same
// band.
func DetectAspectRatio(width, height int) AspectRatio {
	if width <= 0 || height <= 0 {
		return RatioOther
	}
	maxDim, minDim := float64(width), float64(height)
	if minDim > maxDim {
		maxDim, minDim = minDim, maxDim
	}
	ratio := maxDim / minDim

	switch {
	case ratio > ratio43-ratioTolerance && ratio < ratio43+ratioTolerance:
		return RatioFourThree
	case ratio > ratio169-ratioTolerance && ratio < ratio169+ratioTolerance:
		return RatioSixteenNine
	default:
		return RatioOther
	}
}

// Pair is one detected crop pair. The 4:3 asset is always the keeper: it is
// the uncropped capture with strictly more pixels. No scoring is involved.
type Pair struct {
	KeeperID       string `json:"keeper_id"`
	KeeperFilename string `json:"keeper_filename"`
	DeleteID       string `json:"delete_id"`
	DeleteFilename string `json:"delete_filename"`
	Timestamp      string `json:"timestamp"`
	Camera         string `json:"camera"`
	SpaceBytes     int64  `json:"space_bytes"`
}

// Options filters the inventory to one camera family.
type Options struct {
	// Make is the expected vendor substring, matched case-insensitively.
	Make string
	// Model is the expected model-family substring, matched case-insensitively.
	Model string
}

// DefaultOptions matches iPhone captures, the camera family that produces
// these crop pairs.
func DefaultOptions() Options {
	return Options{Make: "Apple", Model: "iPhone"}
}

// pairingKey groups assets captured at the same moment by the same camera.
type pairingKey struct {
	timestampSecond string
	make            string
	model           string
	// gps is coordinates rounded to 4 decimals, empty when absent. Absent on
	// both sides is a match, not a mismatch.
	gps string
}

func keyFor(asset *model.Asset) (pairingKey, bool) {
	e := asset.ExifInfo
	if e == nil || e.DateTimeOriginal == nil || e.Make == nil || e.Model == nil {
		return pairingKey{}, false
	}

	key := pairingKey{
		timestampSecond: truncateToSecond(*e.DateTimeOriginal),
		make:            *e.Make,
		model:           *e.Model,
	}
	if e.HasGPS() {
		key.gps = fmt.Sprintf("%.4f,%.4f", *e.Latitude, *e.Longitude)
	}
	return key, true
}

// truncateToSecond drops sub-second precision and trailing zone markers:
// "2024-12-23T10:30:45.123Z" -> "2024-12-23T10:30:45".
func truncateToSecond(ts string) string {
	if i := strings.IndexByte(ts, '.'); i >= 0 {
		return ts[:i]
	}
	if i := strings.IndexByte(ts, 'Z'); i >= 0 {
		return ts[:i]
	}
	return ts
}

func matchesCamera(asset *model.Asset, opts Options) bool {
	e := asset.ExifInfo
	if e == nil || e.Make == nil || e.Model == nil {
		return false
	}
	return strings.Contains(strings.ToLower(*e.Make), strings.ToLower(opts.Make)) &&
		strings.Contains(strings.ToLower(*e.Model), strings.ToLower(opts.Model))
}

func assetRatio(asset *model.Asset) AspectRatio {
	e := asset.ExifInfo
	if e == nil || e.ExifImageWidth == nil || e.ExifImageHeight == nil {
		return RatioOther
	}
	return DetectAspectRatio(*e.ExifImageWidth, *e.ExifImageHeight)
}

// Summary counts what the finder saw and skipped.
type Summary struct {
	AssetsScanned         int   `json:"assets_scanned"`
	PairsFound            int   `json:"pairs_found"`
	SpaceRecoverableBytes int64 `json:"space_recoverable_bytes"`
	SkippedCamera         int   `json:"skipped_camera"`
	SkippedAmbiguous      int   `json:"skipped_ambiguous"`
}

// FindPairs scans the asset inventory for crop pairs.
//
// Assets that are trashed, from the wrong camera, or missing timestamp or
// dimensions are skipped, not errors. A key group yields exactly one pair
// iff it holds exactly one 4:3 and one 16:9 asset; groups with zero or
// multiple of either ratio are ambiguous and only counted.
func FindPairs(assets []model.Asset, opts Options) ([]Pair, Summary) {
	summary := Summary{AssetsScanned: len(assets)}
	groups := make(map[pairingKey][]*model.Asset)
	var keyOrder []pairingKey

	for i := range assets {
		asset := &assets[i]
		if asset.IsTrashed {
			continue
		}
		if !matchesCamera(asset, opts) {
			summary.SkippedCamera++
			continue
		}
		if assetRatio(asset) == RatioOther {
			continue
		}
		key, ok := keyFor(asset)
		if !ok {
			continue
		}
		if _, seen := groups[key]; !seen {
			keyOrder = append(keyOrder, key)
		}
		groups[key] = append(groups[key], asset)
	}

	var pairs []Pair
	for _, key := range keyOrder {
		var fourThree, sixteenNine []*model.Asset
		for _, asset := range groups[key] {
			switch assetRatio(asset) {
			case RatioFourThree:
				fourThree = append(fourThree, asset)
			case RatioSixteenNine:
				sixteenNine = append(sixteenNine, asset)
			}
		}

		if len(fourThree) != 1 || len(sixteenNine) != 1 {
			summary.SkippedAmbiguous += len(fourThree) + len(sixteenNine)
			zap.L().Debug("skipping ambiguous capture group",
				zap.String("timestamp", key.timestampSecond),
				zap.Int("four_three", len(fourThree)),
				zap.Int("sixteen_nine", len(sixteenNine)),
			)
			continue
		}

		keeper, del := fourThree[0], sixteenNine[0]
		pairs = append(pairs, Pair{
			KeeperID:       keeper.ID,
			KeeperFilename: keeper.OriginalFileName,
			DeleteID:       del.ID,
			DeleteFilename: del.OriginalFileName,
			Timestamp:      key.timestampSecond,
			Camera:         strings.TrimSpace(key.make + " " + key.model),
			SpaceBytes:     del.FileSize(),
		})
		summary.PairsFound++
		summary.SpaceRecoverableBytes += del.FileSize()
	}

	return pairs, summary
}
