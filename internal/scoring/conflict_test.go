package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/immich-dedupe/pkg/model"
)

func gpsAsset(id string, lat, lon float64) *model.Asset {
	return &model.Asset{ID: id, ExifInfo: &model.ExifInfo{
		Latitude:  f64Ptr(lat),
		Longitude: f64Ptr(lon),
	}}
}

func TestDetect_GPSWithinThreshold(t *testing.T) {
	d := ConflictDetector{}
	winner := gpsAsset("w", 51.50740, -0.12780)
	loser := gpsAsset("l", 51.50745, -0.12783)

	assert.Empty(t, d.Detect(winner, loser))
}

func TestDetect_GPSConflict(t *testing.T) {
	d := ConflictDetector{}
	winner := gpsAsset("w", 51.5074, -0.1278)
	loser := gpsAsset("l", 52.5074, -0.1278)

	conflicts := d.Detect(winner, loser)
	require.Len(t, conflicts, 1)
	assert.Equal(t, ConflictGPS, conflicts[0].Type)
	assert.Equal(t, []string{"51.507400,-0.127800", "52.507400,-0.127800"}, conflicts[0].Values)
	assert.Equal(t, []string{"w", "l"}, conflicts[0].AssetIDs)
}

func TestDetect_GPSMissingOnOneSideIsNotConflict(t *testing.T) {
	d := ConflictDetector{}
	winner := &model.Asset{ID: "w", ExifInfo: &model.ExifInfo{}}
	loser := gpsAsset("l", 51.5074, -0.1278)

	assert.Empty(t, d.Detect(winner, loser))
}

func TestDetect_TimezoneCaseInsensitive(t *testing.T) {
	d := ConflictDetector{}
	winner := &model.Asset{ID: "w", ExifInfo: &model.ExifInfo{TimeZone: strPtr("UTC+1")}}
	loser := &model.Asset{ID: "l", ExifInfo: &model.ExifInfo{TimeZone: strPtr("utc+1")}}

	assert.Empty(t, d.Detect(winner, loser))

	loser.ExifInfo.TimeZone = strPtr("UTC+2")
	conflicts := d.Detect(winner, loser)
	require.Len(t, conflicts, 1)
	assert.Equal(t, ConflictTimezone, conflicts[0].Type)
}

func TestDetect_CameraConflict(t *testing.T) {
	d := ConflictDetector{}
	winner := &model.Asset{ID: "w", ExifInfo: &model.ExifInfo{
		Make:  strPtr("Apple"),
		Model: strPtr("iPhone 15 Pro"),
	}}
	loser := &model.Asset{ID: "l", ExifInfo: &model.ExifInfo{
		Make:  strPtr("Canon"),
		Model: strPtr("EOS R5"),
	}}

	conflicts := d.Detect(winner, loser)
	require.Len(t, conflicts, 1)
	assert.Equal(t, ConflictCamera, conflicts[0].Type)
	assert.Equal(t, []string{"Apple iPhone 15 Pro", "Canon EOS R5"}, conflicts[0].Values)
}

func TestDetect_CaptureTimeWithinTolerance(t *testing.T) {
	d := ConflictDetector{}
	winner := &model.Asset{ID: "w", ExifInfo: &model.ExifInfo{
		DateTimeOriginal: strPtr("2024-12-23T10:30:45Z"),
	}}
	loser := &model.Asset{ID: "l", ExifInfo: &model.ExifInfo{
		DateTimeOriginal: strPtr("2024-12-23T10:30:52Z"),
	}}

	assert.Empty(t, d.Detect(winner, loser))
}

func TestDetect_CaptureTimeBeyondTolerance(t *testing.T) {
	d := ConflictDetector{}
	winner := &model.Asset{ID: "w", ExifInfo: &model.ExifInfo{
		DateTimeOriginal: strPtr("2024-12-23T10:30:45Z"),
	}}
	loser := &model.Asset{ID: "l", ExifInfo: &model.ExifInfo{
		DateTimeOriginal: strPtr("2024-12-23T10:31:45Z"),
	}}

	conflicts := d.Detect(winner, loser)
	require.Len(t, conflicts, 1)
	assert.Equal(t, ConflictCaptureTime, conflicts[0].Type)
}

func TestDetect_CaptureTimeConfigurableTolerance(t *testing.T) {
	winner := &model.Asset{ID: "w", ExifInfo: &model.ExifInfo{
		DateTimeOriginal: strPtr("2024-12-23T10:30:45Z"),
	}}
	loser := &model.Asset{ID: "l", ExifInfo: &model.ExifInfo{
		DateTimeOriginal: strPtr("2024-12-23T10:31:45Z"),
	}}

	wide := ConflictDetector{CaptureTimeTolerance: 2 * time.Minute}
	assert.Empty(t, wide.Detect(winner, loser))
}

func TestDetect_CaptureTimeEquivalentInstantsAcrossZones(t *testing.T) {
	d := ConflictDetector{}
	winner := &model.Asset{ID: "w", ExifInfo: &model.ExifInfo{
		DateTimeOriginal: strPtr("2024-12-23T10:30:45+00:00"),
	}}
	loser := &model.Asset{ID: "l", ExifInfo: &model.ExifInfo{
		DateTimeOriginal: strPtr("2024-12-23T11:30:45+01:00"),
	}}

	assert.Empty(t, d.Detect(winner, loser))
}

func TestDetect_UnparseableTimestampsFallBackToStringCompare(t *testing.T) {
	d := ConflictDetector{}
	winner := &model.Asset{ID: "w", ExifInfo: &model.ExifInfo{
		DateTimeOriginal: strPtr("not-a-timestamp"),
	}}
	loser := &model.Asset{ID: "l", ExifInfo: &model.ExifInfo{
		DateTimeOriginal: strPtr("Not-A-Timestamp"),
	}}

	assert.Empty(t, d.Detect(winner, loser))

	loser.ExifInfo.DateTimeOriginal = strPtr("something-else")
	assert.Len(t, d.Detect(winner, loser), 1)
}

func TestDetect_NilExif(t *testing.T) {
	d := ConflictDetector{}
	winner := &model.Asset{ID: "w"}
	loser := gpsAsset("l", 51.5, -0.1)

	assert.Empty(t, d.Detect(winner, loser))
	assert.Empty(t, d.Detect(loser, winner))
}

func TestDedupeConflicts(t *testing.T) {
	conflicts := []Conflict{
		{Type: ConflictTimezone, Values: []string{"UTC+1", "UTC+2"}, AssetIDs: []string{"w", "a"}},
		{Type: ConflictTimezone, Values: []string{"UTC+1", "UTC+2"}, AssetIDs: []string{"w", "b"}},
		{Type: ConflictCamera, Values: []string{"Apple", "Canon"}, AssetIDs: []string{"w", "a"}},
	}

	deduped := dedupeConflicts(conflicts)
	require.Len(t, deduped, 2)
	assert.Equal(t, ConflictTimezone, deduped[0].Type)
	assert.Equal(t, ConflictCamera, deduped[1].Type)
}
