package errors

import (
	"math"
	"strings"
	"unicode"
)

// Coordinate bounds accepted for outlets. The hydrography only covers land
// between 60°S and 85°N.
const (
	MinLatitude  = -60.0
	MaxLatitude  = 85.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// ValidateOutletID validates an outlet identifier:
//   - No empty ids
//   - No control characters
//   - Maximum length of 256 characters
func ValidateOutletID(id string) error {
	if strings.TrimSpace(id) == "" {
		return New(ErrCodeInvalidOutlet, "outlet id cannot be empty")
	}

	if len(id) > 256 {
		return New(ErrCodeInvalidOutlet, "outlet id too long (max 256 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidOutlet, "outlet id %q contains control characters", id)
		}
	}

	return nil
}

// ValidateLatitude checks that lat lies strictly inside the supported band.
func ValidateLatitude(lat float64) error {
	if math.IsNaN(lat) || lat <= MinLatitude || lat >= MaxLatitude {
		return New(ErrCodeInvalidOutlet, "latitude %v must be between %v and %v", lat, MinLatitude, MaxLatitude)
	}
	return nil
}

// ValidateLongitude checks that lng lies strictly inside (-180, 180).
func ValidateLongitude(lng float64) error {
	if math.IsNaN(lng) || lng <= MinLongitude || lng >= MaxLongitude {
		return New(ErrCodeInvalidOutlet, "longitude %v must be between %v and %v", lng, MinLongitude, MaxLongitude)
	}
	return nil
}

// ValidatePath validates a relative path inside a data directory or bucket.
// It prevents path traversal and ensures reasonable path length.
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}
