package storage

import (
	"fmt"
	"strings"
)

// AllowedContentTypes lists the attachment MIME types accepted from mail.
var AllowedContentTypes = map[string]bool{
	"application/pdf":          true,
	"application/msword":       true,
	"application/octet-stream": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"image/jpeg": true,
	"image/png":  true,
	"image/tiff": true,
	"text/plain": true,
	"text/html":  true,
}

// ValidateContentType checks if the content type is allowed. Parameters
// such as charset are ignored; an empty type is treated as octet-stream.
func ValidateContentType(contentType string) error {
	normalized := strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))
	if normalized == "" {
		return nil
	}
	if !AllowedContentTypes[normalized] {
		return fmt.Errorf("content type %q is not allowed", contentType)
	}
	return nil
}

// ValidateFileSize checks 0 < size <= max. A non-positive max disables the upper bound.
func ValidateFileSize(sizeBytes, max int64) error {
	if sizeBytes <= 0 {
		return fmt.Errorf("file size must be greater than 0")
	}
	if max > 0 && sizeBytes > max {
		return fmt.Errorf("file size %d bytes exceeds maximum allowed size of %d bytes", sizeBytes, max)
	}
	return nil
}

// IsDocumentContentType reports whether ct is a PDF, Word or text document.
func IsDocumentContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.HasPrefix(ct, "application/pdf") ||
		strings.HasPrefix(ct, "application/msword") ||
		strings.Contains(ct, "officedocument") ||
		strings.HasPrefix(ct, "text/")
}
