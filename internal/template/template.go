// Package template implements the engine's message placeholder
// substitution: {{first_name}}, {{last_name}}, {{company}}, matched
// case-insensitively, with unresolved placeholders dropped and
// resulting whitespace collapsed (spec §4.4).
package template

import (
	"regexp"
	"strings"
)

var placeholder = regexp.MustCompile(`(?i)\{\{\s*(\w+)\s*\}\}`)

var collapseWhitespace = regexp.MustCompile(`\s+`)

// Values holds the substitution values for a single render call.
type Values struct {
	FirstName string
	LastName  string
	Company   string
}

// Render substitutes every recognized placeholder in s with the
// matching field of v, drops any placeholder whose field is empty, and
// collapses the resulting run of whitespace left behind.
func Render(s string, v Values) string {
	substituted := placeholder.ReplaceAllStringFunc(s, func(match string) string {
		key := strings.ToLower(strings.TrimSpace(strings.Trim(match, "{} ")))

		switch key {
		case "first_name":
			return v.FirstName
		case "last_name":
			return v.LastName
		case "company":
			return v.Company
		default:
			return ""
		}
	})

	collapsed := collapseWhitespace.ReplaceAllString(substituted, " ")

	return strings.TrimSpace(collapsed)
}
