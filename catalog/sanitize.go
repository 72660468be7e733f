/*
sanitize.go - Code normalization

Fabric and color codes arrive from supplier documents with inconsistent
case, spacing and punctuation. Normalizing them once, before storage,
keeps every later lookup exact-match.

RULES:
  Fabric codes: uppercase; runs of whitespace or dashes become a single
  underscore; anything outside [A-Z0-9_] is dropped; leading/trailing
  underscores are trimmed.
  Color codes: uppercase; anything outside [A-Z0-9] is dropped.
*/
package catalog

import (
	"regexp"
	"strings"
)

var (
	fabricSeparators = regexp.MustCompile(`[\s\-]+`)
	fabricInvalid    = regexp.MustCompile(`[^A-Z0-9_]`)
	fabricCollapse   = regexp.MustCompile(`_+`)
	colorInvalid     = regexp.MustCompile(`[^A-Z0-9]`)
)

// SanitizeFabricCode normalizes a fabric code. The result may be empty
// if the input carries no usable characters.
func SanitizeFabricCode(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	c = fabricSeparators.ReplaceAllString(c, "_")
	c = fabricInvalid.ReplaceAllString(c, "")
	c = fabricCollapse.ReplaceAllString(c, "_")
	return strings.Trim(c, "_")
}

// SanitizeColorCode normalizes a color code.
func SanitizeColorCode(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	return colorInvalid.ReplaceAllString(c, "")
}
