package feature

import (
	"regexp"
	"strings"
)

var rePlaceholder = regexp.MustCompile(`\{[A-Za-z0-9_]+\}`)

// Template is a format string with {NAME} placeholders. Placeholders without
// a value are left as-is.
type Template string

// Has reports whether the template references the placeholder name.
func (t Template) Has(name string) bool {
	return strings.Contains(string(t), "{"+name+"}")
}

// Render substitutes values in a single pass, so a value that itself looks
// like a placeholder is never expanded again.
func (t Template) Render(values map[string]string) string {
	if len(values) == 0 {
		return string(t)
	}
	return rePlaceholder.ReplaceAllStringFunc(string(t), func(m string) string {
		if v, ok := values[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}
