package errors

import (
	"math"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// ValidateID checks that id is a canonical UUID as issued by the store.
func ValidateID(kind, id string) error {
	if id == "" {
		return New(ErrCodeInvalidID, "%s id cannot be empty", kind)
	}
	if _, err := uuid.Parse(id); err != nil {
		return Wrap(ErrCodeInvalidID, err, "invalid %s id %q", kind, id)
	}
	return nil
}

// ValidateMarker validates the marker title of an annotation.
// The marker is the only required text field and is written into the first
// table column, so it must be non-empty and free of control characters.
func ValidateMarker(marker string) error {
	if strings.TrimSpace(marker) == "" {
		return New(ErrCodeMalformedAnnotation, "marker cannot be empty")
	}

	const maxMarkerLength = 256
	if len(marker) > maxMarkerLength {
		return New(ErrCodeMalformedAnnotation, "marker too long (max %d characters)", maxMarkerLength)
	}

	for _, r := range marker {
		if unicode.IsControl(r) {
			return New(ErrCodeMalformedAnnotation, "marker contains invalid control characters")
		}
	}
	return nil
}

// ValidatePosition rejects coordinates that cannot be stored in natural
// image space (NaN, infinities and negative values).
func ValidatePosition(x, y float64) error {
	for _, v := range []float64{x, y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return New(ErrCodeInvalidPosition, "coordinate must be a finite number")
		}
		if v < 0 {
			return New(ErrCodeInvalidPosition, "coordinate cannot be negative: %v", v)
		}
	}
	return nil
}

// allowedImageExtensions lists the upload extensions accepted for screens
// and export captures.
var allowedImageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// ValidateImageUpload validates an uploaded image's filename and MIME type.
// Both the extension and the declared content type must name PNG or JPEG.
func ValidateImageUpload(filename, contentType string) error {
	if filename == "" {
		return New(ErrCodeInvalidUpload, "upload filename cannot be empty")
	}
	if strings.ContainsAny(filename, "/\\") || strings.Contains(filename, "\x00") {
		return New(ErrCodeInvalidUpload, "upload filename cannot contain path separators")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedImageExtensions[ext] {
		return New(ErrCodeInvalidUpload, "only PNG, JPG, or JPEG file types are supported (got %q)", ext)
	}

	if contentType != "" {
		ct := strings.ToLower(contentType)
		if !strings.Contains(ct, "png") && !strings.Contains(ct, "jpeg") && !strings.Contains(ct, "jpg") {
			return New(ErrCodeInvalidUpload, "unsupported content type %q", contentType)
		}
	}
	return nil
}
