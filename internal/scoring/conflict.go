package scoring

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sells-group/immich-dedupe/pkg/model"
)

// gpsThreshold is the per-axis coordinate delta treated as a real
// disagreement, roughly 11 meters at the equator.
const gpsThreshold = 0.0001

// DefaultCaptureTimeTolerance is the window within which differing capture
// timestamps are still considered the same moment.
const DefaultCaptureTimeTolerance = 10 * time.Second

// ConflictType identifies the metadata field a conflict was detected on.
type ConflictType string

const (
	ConflictGPS         ConflictType = "gps"
	ConflictTimezone    ConflictType = "timezone"
	ConflictCamera      ConflictType = "camera"
	ConflictCaptureTime ConflictType = "capture_time"
)

// Conflict records a disagreement between the winner and a loser on a field
// both populate. Conflicts gate human review; nothing auto-resolves them.
type Conflict struct {
	Type     ConflictType `json:"type"`
	Values   []string     `json:"values"`
	AssetIDs []string     `json:"asset_ids"`
}

// ConflictDetector compares winner/loser metadata pairwise. A field is only
// compared when both sides carry a value: absence on one side is a
// consolidation opportunity, not a conflict.
type ConflictDetector struct {
	// CaptureTimeTolerance is the maximum timestamp disagreement that does
	// not count as a conflict. Zero means DefaultCaptureTimeTolerance.
	CaptureTimeTolerance time.Duration
}

// Detect returns the conflicts between the winner and one loser.
func (d ConflictDetector) Detect(winner, loser *model.Asset) []Conflict {
	we, le := winner.ExifInfo, loser.ExifInfo
	if we == nil || le == nil {
		return nil
	}

	var conflicts []Conflict

	if we.HasGPS() && le.HasGPS() {
		latDelta := math.Abs(*we.Latitude - *le.Latitude)
		lonDelta := math.Abs(*we.Longitude - *le.Longitude)
		if latDelta > gpsThreshold || lonDelta > gpsThreshold {
			conflicts = append(conflicts, Conflict{
				Type: ConflictGPS,
				Values: []string{
					formatGPS(*we.Latitude, *we.Longitude),
					formatGPS(*le.Latitude, *le.Longitude),
				},
				AssetIDs: []string{winner.ID, loser.ID},
			})
		}
	}

	if we.HasTimezone() && le.HasTimezone() {
		if normalize(*we.TimeZone) != normalize(*le.TimeZone) {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictTimezone,
				Values:   []string{strings.TrimSpace(*we.TimeZone), strings.TrimSpace(*le.TimeZone)},
				AssetIDs: []string{winner.ID, loser.ID},
			})
		}
	}

	if we.HasCameraInfo() && le.HasCameraInfo() {
		wc, lc := cameraString(we), cameraString(le)
		if normalize(wc) != normalize(lc) {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictCamera,
				Values:   []string{wc, lc},
				AssetIDs: []string{winner.ID, loser.ID},
			})
		}
	}

	if we.HasCaptureTime() && le.HasCaptureTime() {
		if d.captureTimesConflict(*we.DateTimeOriginal, *le.DateTimeOriginal) {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictCaptureTime,
				Values:   []string{*we.DateTimeOriginal, *le.DateTimeOriginal},
				AssetIDs: []string{winner.ID, loser.ID},
			})
		}
	}

	return conflicts
}

// captureTimesConflict compares two capture timestamps against the tolerance
// window. Timestamps that fail to parse fall back to normalized string
// comparison.
func (d ConflictDetector) captureTimesConflict(a, b string) bool {
	tolerance := d.CaptureTimeTolerance
	if tolerance == 0 {
		tolerance = DefaultCaptureTimeTolerance
	}

	ta, errA := parseTimestamp(a)
	tb, errB := parseTimestamp(b)
	if errA != nil || errB != nil {
		return normalize(a) != normalize(b)
	}

	diff := ta.Sub(tb)
	if diff < 0 {
		diff = -diff
	}
	return diff > tolerance
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", s)
}

func cameraString(e *model.ExifInfo) string {
	var make, mdl string
	if e.Make != nil {
		make = *e.Make
	}
	if e.Model != nil {
		mdl = *e.Model
	}
	return strings.TrimSpace(make + " " + mdl)
}

func formatGPS(lat, lon float64) string {
	return fmt.Sprintf("%.6f,%.6f", lat, lon)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// dedupeConflicts drops conflicts that repeat the same type and values,
// keeping the report readable when several losers disagree identically.
func dedupeConflicts(conflicts []Conflict) []Conflict {
	seen := make(map[string]bool, len(conflicts))
	out := conflicts[:0]
	for _, c := range conflicts {
		key := string(c.Type) + "|" + normalize(strings.Join(c.Values, "|"))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
