package letterbox

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnalysis_EmptyPairsMarshalAsArray(t *testing.T) {
	analysis := NewAnalysis(nil, Summary{AssetsScanned: 10}, "https://photos.example.com")

	data, err := json.Marshal(analysis)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"pairs":[]`)
	assert.False(t, analysis.GeneratedAt.IsZero())
	assert.Equal(t, 10, analysis.Summary.AssetsScanned)
}

func TestAnalysis_JSONRoundTrip(t *testing.T) {
	pairs := []Pair{{
		KeeperID:       "keep",
		KeeperFilename: "IMG_0001.heic",
		DeleteID:       "del",
		DeleteFilename: "IMG_0001_crop.heic",
		Timestamp:      "2024-12-23T10:30:45",
		Camera:         "Apple iPhone 15 Pro Max",
		SpaceBytes:     2_000_000,
	}}
	analysis := NewAnalysis(pairs, Summary{PairsFound: 1, SpaceRecoverableBytes: 2_000_000}, "https://photos.example.com")

	data, err := json.Marshal(analysis)
	require.NoError(t, err)

	var decoded Analysis
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Pairs, 1)
	assert.Equal(t, "keep", decoded.Pairs[0].KeeperID)
	assert.Equal(t, int64(2_000_000), decoded.Summary.SpaceRecoverableBytes)
}
