package letterbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/immich-dedupe/pkg/model"
)

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }
func intPtr(i int) *int         { return &i }
func i64Ptr(i int64) *int64     { return &i }

func iphoneAsset(id, filename, ts string, width, height int, size int64) model.Asset {
	return model.Asset{
		ID:               id,
		OriginalFileName: filename,
		ExifInfo: &model.ExifInfo{
			Make:             strPtr("Apple"),
			Model:            strPtr("iPhone 15 Pro Max"),
			DateTimeOriginal: strPtr(ts),
			ExifImageWidth:   intPtr(width),
			ExifImageHeight:  intPtr(height),
			FileSizeInByte:   i64Ptr(size),
		},
	}
}

func TestDetectAspectRatio(t *testing.T) {
	assert.Equal(t, RatioFourThree, DetectAspectRatio(4032, 3024))
	assert.Equal(t, RatioFourThree, DetectAspectRatio(5712, 4284))
	assert.Equal(t, RatioSixteenNine, DetectAspectRatio(3840, 2160))
	assert.Equal(t, RatioSixteenNine, DetectAspectRatio(5712, 3213))
	assert.Equal(t, RatioOther, DetectAspectRatio(3000, 2000))
	assert.Equal(t, RatioOther, DetectAspectRatio(1000, 1000))
}

func TestDetectAspectRatio_OrientationAgnostic(t *testing.T) {
	assert.Equal(t, RatioFourThree, DetectAspectRatio(3024, 4032))
	assert.Equal(t, RatioSixteenNine, DetectAspectRatio(2160, 3840))
}

func TestDetectAspectRatio_DegenerateDimensions(t *testing.T) {
	assert.Equal(t, RatioOther, DetectAspectRatio(0, 3024))
	assert.Equal(t, RatioOther, DetectAspectRatio(4032, 0))
	assert.Equal(t, RatioOther, DetectAspectRatio(-1, -1))
}

func TestFindPairs_MatchesCropPair(t *testing.T) {
	assets := []model.Asset{
		iphoneAsset("crop", "IMG_0001_crop.heic", "2024-12-23T10:30:45Z", 5712, 3213, 2_000_000),
		iphoneAsset("full", "IMG_0001.heic", "2024-12-23T10:30:45Z", 5712, 4284, 3_000_000),
	}

	pairs, summary := FindPairs(assets, DefaultOptions())
	require.Len(t, pairs, 1)
	assert.Equal(t, "full", pairs[0].KeeperID)
	assert.Equal(t, "crop", pairs[0].DeleteID)
	assert.Equal(t, "IMG_0001.heic", pairs[0].KeeperFilename)
	assert.Equal(t, int64(2_000_000), pairs[0].SpaceBytes)
	assert.Equal(t, "Apple iPhone 15 Pro Max", pairs[0].Camera)
	assert.Equal(t, 1, summary.PairsFound)
	assert.Equal(t, int64(2_000_000), summary.SpaceRecoverableBytes)
	assert.Equal(t, 2, summary.AssetsScanned)
}

func TestFindPairs_SubsecondTimestampsMatch(t *testing.T) {
	assets := []model.Asset{
		iphoneAsset("full", "a.heic", "2024-12-23T10:30:45.123Z", 4032, 3024, 3_000_000),
		iphoneAsset("crop", "b.heic", "2024-12-23T10:30:45.987Z", 3840, 2160, 2_000_000),
	}

	pairs, _ := FindPairs(assets, DefaultOptions())
	require.Len(t, pairs, 1)
	assert.Equal(t, "2024-12-23T10:30:45", pairs[0].Timestamp)
}

func TestFindPairs_DifferentSecondsDoNotMatch(t *testing.T) {
	assets := []model.Asset{
		iphoneAsset("full", "a.heic", "2024-12-23T10:30:45Z", 4032, 3024, 3_000_000),
		iphoneAsset("crop", "b.heic", "2024-12-23T10:30:46Z", 3840, 2160, 2_000_000),
	}

	pairs, _ := FindPairs(assets, DefaultOptions())
	assert.Empty(t, pairs)
}

func TestFindPairs_TwoFourThreeIsAmbiguous(t *testing.T) {
	assets := []model.Asset{
		iphoneAsset("a", "a.heic", "2024-12-23T10:30:45Z", 4032, 3024, 3_000_000),
		iphoneAsset("b", "b.heic", "2024-12-23T10:30:45Z", 4032, 3024, 3_000_000),
		iphoneAsset("c", "c.heic", "2024-12-23T10:30:45Z", 3840, 2160, 2_000_000),
	}

	pairs, summary := FindPairs(assets, DefaultOptions())
	assert.Empty(t, pairs)
	assert.Equal(t, 3, summary.SkippedAmbiguous)
}

func TestFindPairs_GPSDisambiguates(t *testing.T) {
	near := iphoneAsset("full-a", "a.heic", "2024-12-23T10:30:45Z", 4032, 3024, 3_000_000)
	near.ExifInfo.Latitude = f64Ptr(51.5074)
	near.ExifInfo.Longitude = f64Ptr(-0.1278)

	far := iphoneAsset("full-b", "b.heic", "2024-12-23T10:30:45Z", 4032, 3024, 3_000_000)
	far.ExifInfo.Latitude = f64Ptr(48.8566)
	far.ExifInfo.Longitude = f64Ptr(2.3522)

	crop := iphoneAsset("crop", "c.heic", "2024-12-23T10:30:45Z", 3840, 2160, 2_000_000)
	crop.ExifInfo.Latitude = f64Ptr(51.5074)
	crop.ExifInfo.Longitude = f64Ptr(-0.1278)

	pairs, _ := FindPairs([]model.Asset{near, far, crop}, DefaultOptions())
	require.Len(t, pairs, 1)
	assert.Equal(t, "full-a", pairs[0].KeeperID)
	assert.Equal(t, "crop", pairs[0].DeleteID)
}

func TestFindPairs_SkipsTrashed(t *testing.T) {
	full := iphoneAsset("full", "a.heic", "2024-12-23T10:30:45Z", 4032, 3024, 3_000_000)
	full.IsTrashed = true
	crop := iphoneAsset("crop", "b.heic", "2024-12-23T10:30:45Z", 3840, 2160, 2_000_000)

	pairs, _ := FindPairs([]model.Asset{full, crop}, DefaultOptions())
	assert.Empty(t, pairs)
}

func TestFindPairs_SkipsWrongCamera(t *testing.T) {
	canon := model.Asset{
		ID: "canon",
		ExifInfo: &model.ExifInfo{
			Make:             strPtr("Canon"),
			Model:            strPtr("EOS R5"),
			DateTimeOriginal: strPtr("2024-12-23T10:30:45Z"),
			ExifImageWidth:   intPtr(4032),
			ExifImageHeight:  intPtr(3024),
		},
	}

	pairs, summary := FindPairs([]model.Asset{canon}, DefaultOptions())
	assert.Empty(t, pairs)
	assert.Equal(t, 1, summary.SkippedCamera)
}

func TestFindPairs_CameraMatchIsCaseInsensitiveSubstring(t *testing.T) {
	assets := []model.Asset{
		iphoneAsset("full", "a.heic", "2024-12-23T10:30:45Z", 4032, 3024, 3_000_000),
		iphoneAsset("crop", "b.heic", "2024-12-23T10:30:45Z", 3840, 2160, 2_000_000),
	}

	pairs, _ := FindPairs(assets, Options{Make: "apple", Model: "IPHONE"})
	assert.Len(t, pairs, 1)
}

func TestFindPairs_SkipsMissingDimensionsAndTimestamp(t *testing.T) {
	noDims := iphoneAsset("no-dims", "a.heic", "2024-12-23T10:30:45Z", 0, 0, 0)
	noDims.ExifInfo.ExifImageWidth = nil
	noDims.ExifInfo.ExifImageHeight = nil

	noTime := iphoneAsset("no-time", "b.heic", "", 3840, 2160, 2_000_000)
	noTime.ExifInfo.DateTimeOriginal = nil

	pairs, _ := FindPairs([]model.Asset{noDims, noTime}, DefaultOptions())
	assert.Empty(t, pairs)
}

func TestFindPairs_DeterministicOrder(t *testing.T) {
	assets := []model.Asset{
		iphoneAsset("full-2", "c.heic", "2024-12-23T11:00:00Z", 4032, 3024, 3_000_000),
		iphoneAsset("crop-2", "d.heic", "2024-12-23T11:00:00Z", 3840, 2160, 1_000_000),
		iphoneAsset("full-1", "a.heic", "2024-12-23T10:30:45Z", 4032, 3024, 3_000_000),
		iphoneAsset("crop-1", "b.heic", "2024-12-23T10:30:45Z", 3840, 2160, 2_000_000),
	}

	first, _ := FindPairs(assets, DefaultOptions())
	second, _ := FindPairs(assets, DefaultOptions())
	require.Len(t, first, 2)
	assert.Equal(t, first, second)
	assert.Equal(t, "full-2", first[0].KeeperID)
	assert.Equal(t, "full-1", first[1].KeeperID)
}
