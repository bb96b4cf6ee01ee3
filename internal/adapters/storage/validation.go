package storage

import (
	"fmt"
	"strings"
)

// AllowedContentTypes defines the MIME types accepted into the media bucket.
var AllowedContentTypes = map[string]bool{
	// Images
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,

	// Documents
	"application/pdf": true,

	// Video
	"video/mp4":  true,
	"video/3gpp": true,

	// Audio
	"audio/mpeg": true,
	"audio/mp4":  true,
	"audio/aac":  true,
	"audio/amr":  true,
	"audio/ogg":  true,
	"audio/wav":  true,
	"audio/webm": true,
}

// ValidateContentType checks if the content type is allowed.
func (s *MinIOService) ValidateContentType(contentType string) error {
	if !IsAllowedContentType(contentType) {
		return fmt.Errorf("content type %q is not allowed", contentType)
	}
	return nil
}

// ValidateFileSize checks if the file size is within limits.
func (s *MinIOService) ValidateFileSize(sizeBytes int64) error {
	return validateSize(sizeBytes, s.maxFileSize)
}

// IsAllowedContentType normalizes contentType (dropping parameters) and checks the allow list.
func IsAllowedContentType(contentType string) bool {
	normalized := strings.Split(contentType, ";")[0]
	normalized = strings.TrimSpace(strings.ToLower(normalized))
	return AllowedContentTypes[normalized]
}

// ExtensionFor returns a file extension for a content type, ".bin" when unknown.
func ExtensionFor(contentType string) string {
	switch strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0])) {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "application/pdf":
		return ".pdf"
	case "video/mp4", "audio/mp4":
		return ".mp4"
	case "audio/mpeg":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	case "audio/aac":
		return ".aac"
	case "audio/amr":
		return ".amr"
	case "audio/wav":
		return ".wav"
	default:
		return ".bin"
	}
}

func validateSize(sizeBytes, maxFileSize int64) error {
	if sizeBytes <= 0 {
		return fmt.Errorf("file size must be greater than 0")
	}
	if maxFileSize > 0 && sizeBytes > maxFileSize {
		return fmt.Errorf("file size %d bytes exceeds maximum allowed size of %d bytes", sizeBytes, maxFileSize)
	}
	return nil
}
