package server

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
)

// RespondWithError sends a JSON error response.
// It's a convenience wrapper around RespondWithJSON.
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]string{"error": message})
}

// RespondWithJSON sends a JSON response with the given status code and payload.
// If the payload is nil, no body is sent.
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			// Headers are already written, nothing left to do.
			_ = err
		}
	}
}

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// stripHTML removes HTML tags from a string and normalizes whitespace
func stripHTML(input string) string {
	if input == "" {
		return ""
	}

	text := htmlTagRegex.ReplaceAllString(input, "")

	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&quot;", "\"")
	text = strings.ReplaceAll(text, "&#39;", "'")
	text = strings.ReplaceAll(text, "&nbsp;", " ")

	text = strings.TrimSpace(text)
	text = whitespaceRegex.ReplaceAllString(text, " ")

	return text
}

// truncateText truncates text to the specified length, avoiding word breaks
func truncateText(input string, maxLength int) string {
	if input == "" || maxLength <= 0 {
		return ""
	}
	if len(input) <= maxLength {
		return input
	}

	actualLength := maxLength - 3
	if actualLength <= 0 {
		return "..."
	}

	text := input[:actualLength]
	if lastSpace := strings.LastIndex(text, " "); lastSpace > actualLength/2 {
		text = text[:lastSpace]
	}
	return text + "..."
}

// summarize strips HTML tags and truncates text for listing pages.
func summarize(input string, maxLength int) string {
	if input == "" {
		return ""
	}
	text := stripHTML(input)
	if maxLength > 0 {
		text = truncateText(text, maxLength)
	}
	return text
}
