package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivseb/strapi-sync-wizard/internal/plan"
)

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name string
		arg  string
		want plan.Selection
	}{
		{
			name: "create",
			arg:  "api::author.author/a1:TO_CREATE",
			want: plan.Selection{TableName: "api::author.author", DocumentID: "a1", Direction: plan.ToCreate},
		},
		{
			name: "delete",
			arg:  "plugin::upload.file/f9:TO_DELETE",
			want: plan.Selection{TableName: "plugin::upload.file", DocumentID: "f9", Direction: plan.ToDelete},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseSelection(tc.arg)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseSelectionErrors(t *testing.T) {
	for _, arg := range []string{
		"api::a.a/doc",            // no direction
		"api::a.a:TO_CREATE",      // no documentId
		"api::a.a/doc:SIDEWAYS",   // unknown direction
		"/doc:TO_CREATE",          // empty table
	} {
		_, err := parseSelection(arg)
		assert.Error(t, err, arg)
	}
}
