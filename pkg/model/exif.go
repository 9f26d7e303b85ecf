package model

// ExifInfo holds an asset's EXIF metadata block. Most fields are optional:
// EXIF data is routinely incomplete or entirely missing.
type ExifInfo struct {
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
	City             *string  `json:"city,omitempty"`
	State            *string  `json:"state,omitempty"`
	Country          *string  `json:"country,omitempty"`
	TimeZone         *string  `json:"timeZone,omitempty"`
	DateTimeOriginal *string  `json:"dateTimeOriginal,omitempty"`
	Make             *string  `json:"make,omitempty"`
	Model            *string  `json:"model,omitempty"`
	LensModel        *string  `json:"lensModel,omitempty"`
	ExposureTime     *string  `json:"exposureTime,omitempty"`
	FNumber          *float64 `json:"fNumber,omitempty"`
	FocalLength      *float64 `json:"focalLength,omitempty"`
	ISO              *int     `json:"iso,omitempty"`
	ExifImageWidth   *int     `json:"exifImageWidth,omitempty"`
	ExifImageHeight  *int     `json:"exifImageHeight,omitempty"`
	FileSizeInByte   *int64   `json:"fileSizeInByte,omitempty"`
	Description      *string  `json:"description,omitempty"`
	Orientation      *string  `json:"orientation,omitempty"`
}

// HasGPS reports whether both latitude and longitude are present.
// Either coordinate alone is not usable.
func (e *ExifInfo) HasGPS() bool {
	return e != nil && e.Latitude != nil && e.Longitude != nil
}

// HasTimezone reports whether timezone information is present.
func (e *ExifInfo) HasTimezone() bool {
	return e != nil && e.TimeZone != nil
}

// HasCameraInfo reports whether camera make or model is present.
func (e *ExifInfo) HasCameraInfo() bool {
	return e != nil && (e.Make != nil || e.Model != nil)
}

// HasCaptureTime reports whether the original capture time is present.
func (e *ExifInfo) HasCaptureTime() bool {
	return e != nil && e.DateTimeOriginal != nil
}

// HasLensInfo reports whether the lens model is present.
func (e *ExifInfo) HasLensInfo() bool {
	return e != nil && e.LensModel != nil
}

// HasLocation reports whether a reverse-geocoded city or country is present.
func (e *ExifInfo) HasLocation() bool {
	return e != nil && (e.City != nil || e.Country != nil)
}

// HasDescription reports whether a description is present.
func (e *ExifInfo) HasDescription() bool {
	return e != nil && e.Description != nil
}
