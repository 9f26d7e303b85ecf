// Package scoring ranks duplicate assets by pixel dimensions and metadata
// completeness, and flags metadata disagreements for human review.
package scoring

import "github.com/sells-group/immich-dedupe/pkg/model"

// Metadata category weights. Higher weights mark metadata that is harder to
// recover once the asset carrying it is deleted.
const (
	weightGPS         = 30
	weightTimezone    = 20
	weightCameraInfo  = 15
	weightCaptureTime = 15
	weightLensInfo    = 10
	weightLocation    = 10
)

// MetadataScore is a per-category weighted completeness score for an asset.
// It measures metadata presence only, never image quality. Total is bounded
// by 100.
type MetadataScore struct {
	GPS         int `json:"gps"`
	Timezone    int `json:"timezone"`
	CameraInfo  int `json:"camera_info"`
	CaptureTime int `json:"capture_time"`
	LensInfo    int `json:"lens_info"`
	Location    int `json:"location"`
	Total       int `json:"total"`
}

// ScoreAsset computes the metadata completeness score for an asset. Every
// asset scores deterministically; absent fields contribute zero.
func ScoreAsset(asset *model.Asset) MetadataScore {
	exif := asset.ExifInfo
	if exif == nil {
		return MetadataScore{}
	}

	var s MetadataScore
	if exif.HasGPS() {
		s.GPS = weightGPS
	}
	if exif.HasTimezone() {
		s.Timezone = weightTimezone
	}
	if exif.HasCameraInfo() {
		s.CameraInfo = weightCameraInfo
	}
	if exif.HasCaptureTime() {
		s.CaptureTime = weightCaptureTime
	}
	if exif.HasLensInfo() {
		s.LensInfo = weightLensInfo
	}
	if exif.HasLocation() {
		s.Location = weightLocation
	}
	s.Total = s.GPS + s.Timezone + s.CameraInfo + s.CaptureTime + s.LensInfo + s.Location
	return s
}
