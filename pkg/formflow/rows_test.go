package formflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRowsOrderAndLabels(t *testing.T) {
	rows, _ := buildRows([]string{"locale", "family_name", "birthdate", "given_name"}, nil)

	require.Len(t, rows, 4)
	assert.Equal(t, "given_name", rows[0].Key)
	assert.Equal(t, "family_name", rows[1].Key)
	assert.Equal(t, "birthdate", rows[2].Key)
	assert.Equal(t, "locale", rows[3].Key)

	assert.Equal(t, "First Name", rows[0].Label)
	assert.Equal(t, "Last Name", rows[1].Label)
	assert.Equal(t, "Birthdate", rows[2].Label)
	assert.Equal(t, "Locale", rows[3].Label)
}

func TestBuildRowsExcludesEmailKeys(t *testing.T) {
	rows, _ := buildRows([]string{"given_name", "family_name", "email", "email_verified"}, nil)

	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.NotContains(t, row.Key, "email")
	}
}

func TestBuildRowsPrefill(t *testing.T) {
	known := map[string]string{
		"given_name": "Alice",
		"email":      "alice@example.com",
	}
	rows, prefill := buildRows([]string{"given_name", "family_name"}, known)

	require.Len(t, rows, 2)
	assert.Equal(t, map[string]string{"given_name": "Alice"}, prefill)
}

func TestBuildRowsEmpty(t *testing.T) {
	rows, prefill := buildRows(nil, nil)
	assert.Empty(t, rows)
	assert.Empty(t, prefill)
}
