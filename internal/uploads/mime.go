package upload

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// AllowedContentTypes lists the image types accepted for product pictures.
var AllowedContentTypes = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
	"image/gif",
	"image/svg+xml",
}

const octetStream = "application/octet-stream"

// normalizeContentType strips parameters and lowercases the media type.
// Unparseable values come back empty.
func normalizeContentType(value string) string {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(clean)
	if err != nil {
		return ""
	}
	return strings.ToLower(mediaType)
}

func isAllowedContentType(contentType string) bool {
	for _, candidate := range AllowedContentTypes {
		if candidate == contentType {
			return true
		}
	}
	return false
}

// sniffContentType detects the type of an upload from its leading bytes,
// walking up the detection tree until an allowed type is found.
func sniffContentType(head []byte) string {
	detected := mimetype.Detect(head)
	for node := detected; node != nil; node = node.Parent() {
		if candidate := normalizeContentType(node.String()); isAllowedContentType(candidate) {
			return candidate
		}
	}
	return normalizeContentType(detected.String())
}

func allowedList() string {
	return strings.Join(AllowedContentTypes, ", ")
}
