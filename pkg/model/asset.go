// Package model defines the Immich API data types shared across the tool.
package model

// AssetType distinguishes images from videos.
type AssetType string

const (
	AssetTypeImage AssetType = "IMAGE"
	AssetTypeVideo AssetType = "VIDEO"
)

// Asset is a single asset as returned by the Immich API.
type Asset struct {
	ID               string    `json:"id"`
	OriginalFileName string    `json:"originalFileName"`
	FileCreatedAt    string    `json:"fileCreatedAt"`
	LocalDateTime    string    `json:"localDateTime"`
	Type             AssetType `json:"type"`
	Checksum         string    `json:"checksum"`
	IsTrashed        bool      `json:"isTrashed"`
	IsFavorite       bool      `json:"isFavorite"`
	IsArchived       bool      `json:"isArchived"`
	ExifInfo         *ExifInfo `json:"exifInfo,omitempty"`
}

// PixelCount returns width*height, treating missing dimensions as zero so an
// asset with unknown dimensions never outranks one with known dimensions.
func (a *Asset) PixelCount() int64 {
	if a.ExifInfo == nil || a.ExifInfo.ExifImageWidth == nil || a.ExifInfo.ExifImageHeight == nil {
		return 0
	}
	return int64(*a.ExifInfo.ExifImageWidth) * int64(*a.ExifInfo.ExifImageHeight)
}

// FileSize returns the file size in bytes, or zero if unknown.
func (a *Asset) FileSize() int64 {
	if a.ExifInfo == nil || a.ExifInfo.FileSizeInByte == nil {
		return 0
	}
	return *a.ExifInfo.FileSizeInByte
}

// DuplicateGroup is a set of assets the server's ML judged visually equivalent.
type DuplicateGroup struct {
	DuplicateID string  `json:"duplicateId"`
	Assets      []Asset `json:"assets"`
}
