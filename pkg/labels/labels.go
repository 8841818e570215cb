// Package labels provides the presentation transforms for dynamically
// required attribute fields: snake_case keys become display labels, with a
// small override table for names whose literal translation reads poorly.
package labels

import "strings"

// Unsnake converts a snake_case attribute key to a display label: split on
// underscore, capitalize the first letter of each segment, lowercase the
// rest, join with single spaces. Unsnake("") == "".
func Unsnake(input string) string {
	if input == "" {
		return ""
	}
	parts := strings.Split(input, "_")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
	}
	return strings.Join(parts, " ")
}

// overrides maps lowercased labels to their preferred display form.
var overrides = map[string]string{
	"given name":  "First Name",
	"family name": "Last Name",
}

// Labeler applies the override table to an already-unsnaked label, falling
// back to the label unchanged.
func Labeler(label string) string {
	if preferred, ok := overrides[strings.ToLower(label)]; ok {
		return preferred
	}
	return label
}
