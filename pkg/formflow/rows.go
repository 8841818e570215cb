package formflow

import (
	"sort"
	"strings"

	"github.com/tendant/simple-auth/pkg/labels"
)

// Row is one editable attribute field on the new-user form: a display label
// and the attribute key it writes back to.
type Row struct {
	Label string `json:"label"`
	Key   string `json:"key"`
}

// attributeRank orders required attributes: given_name first, family_name
// second, everything else after.
func attributeRank(key string) int {
	switch key {
	case "given_name":
		return 0
	case "family_name":
		return 1
	default:
		return 2
	}
}

// buildRows converts the required-attribute list into ordered form rows and
// a prefill map seeded from the known attribute values. The order is total:
// given_name < family_name < any other key, remaining keys lexically
// ascending. Keys starting with "email" never surface as rows; the email
// is already known.
func buildRows(required []string, known map[string]string) ([]Row, map[string]string) {
	keys := make([]string, 0, len(required))
	for _, key := range required {
		if strings.HasPrefix(key, "email") {
			continue
		}
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool {
		ri, rj := attributeRank(keys[i]), attributeRank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})

	rows := make([]Row, 0, len(keys))
	prefill := make(map[string]string)
	for _, key := range keys {
		rows = append(rows, Row{
			Label: labels.Labeler(labels.Unsnake(key)),
			Key:   key,
		})
		if value := known[key]; value != "" {
			prefill[key] = value
		}
	}
	return rows, prefill
}
