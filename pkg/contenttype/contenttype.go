// Package contenttype classifies Content-Type header values so captured
// bodies can be routed to the right decoder.
package contenttype

import (
	"mime"
	"strings"
)

// Category represents a broad content-type classification.
type Category string

const (
	JSON  Category = "json"
	YAML  Category = "yaml"
	Form  Category = "form"
	XML   Category = "xml"
	HTML  Category = "html"
	Text  Category = "text"
	Other Category = "other"
)

// MediaType strips parameters (charset, boundary, ...) and lowercases the
// value. Malformed values are trimmed and lowercased as-is.
func MediaType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

// Classify returns the broad content category for a content-type header value.
// Returns Other for empty or unrecognised values.
func Classify(contentType string) Category {
	if contentType == "" {
		return Other
	}

	mediaType := MediaType(contentType)

	// application/json, application/vnd.*+json, application/problem+json
	if strings.Contains(mediaType, "json") {
		return JSON
	}

	if mediaType == "text/html" || mediaType == "application/xhtml+xml" {
		return HTML
	}

	if strings.Contains(mediaType, "xml") {
		return XML
	}

	// application/yaml, text/yaml, application/x-yaml
	if strings.Contains(mediaType, "yaml") {
		return YAML
	}

	if mediaType == "application/x-www-form-urlencoded" {
		return Form
	}

	if strings.HasPrefix(mediaType, "text/") {
		return Text
	}

	return Other
}

// IsStructured reports whether bodies of this content type can be decoded
// into JSON-like values.
func IsStructured(contentType string) bool {
	switch Classify(contentType) {
	case JSON, YAML, Form:
		return true
	default:
		return false
	}
}

// IsJSON returns true if the content type indicates JSON (case-insensitive).
func IsJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "json")
}
