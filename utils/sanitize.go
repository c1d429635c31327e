package utils

import "github.com/microcosm-cc/bluemonday"

// Display names and tribe names are plain text, so strip all markup.
var sanitizer = bluemonday.StrictPolicy()

// Sanitize removes any HTML from user supplied text to prevent XSS.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}
