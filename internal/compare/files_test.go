package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivseb/strapi-sync-wizard/internal/content"
)

func fileRecord(t *testing.T, doc, name, hash string) Record {
	t.Helper()
	return mustRecord(t, content.Object{
		"id":         content.Number("1"),
		"documentId": content.String(doc),
		"name":       content.String(name),
		"hash":       content.String(hash),
		"url":        content.String("/uploads/" + name),
		"provider":   content.String("local"),
		"formats":    content.Object{"thumbnail": content.Object{"url": content.String("/uploads/t_" + name)}},
	})
}

func TestFilesPairByDigest(t *testing.T) {
	// Different documentIds, same metadata: re-uploaded file. The
	// digest pairs them instead of proposing a create plus a delete.
	src := fileRecord(t, "src-img", "cover.png", "cover_abc")
	dst := fileRecord(t, "dst-img", "cover.png", "cover_abc")

	results := Files([]Record{src}, []Record{dst}, nil, nil)
	require.Len(t, results, 1)
	assert.Equal(t, StateIdentical, results[0].State)
	assert.Equal(t, "src-img", results[0].Source.DocumentID)
	assert.Equal(t, "dst-img", results[0].Target.DocumentID)
}

func TestFilesAssociationBeatsDigest(t *testing.T) {
	// The operator paired two files whose metadata differs; the pair
	// compares as DIFFERENT instead of create+delete.
	src := fileRecord(t, "src-img", "old-name.png", "h1")
	dst := fileRecord(t, "dst-img", "new-name.png", "h2")

	results := Files([]Record{src}, []Record{dst},
		map[string]string{"src-img": "dst-img"}, nil)
	require.Len(t, results, 1)
	assert.Equal(t, StateDifferent, results[0].State)
}

func TestFilesExclusionsProduceNoResult(t *testing.T) {
	src := fileRecord(t, "keep", "a.png", "h1")
	skip := fileRecord(t, "skip", "b.png", "h2")

	results := Files([]Record{src, skip}, nil, nil, map[string]bool{"skip": true})
	require.Len(t, results, 1)
	assert.Equal(t, "keep", results[0].DocumentID())
}

func TestFilesUnpairedStaySeparate(t *testing.T) {
	src := fileRecord(t, "src-img", "a.png", "h1")
	dst := fileRecord(t, "dst-img", "b.png", "h2")

	results := Files([]Record{src}, []Record{dst}, nil, nil)
	require.Len(t, results, 2)

	states := map[string]State{}
	for _, r := range results {
		states[r.DocumentID()] = r.State
	}
	assert.Equal(t, StateOnlyInSource, states["src-img"])
	assert.Equal(t, StateOnlyInTarget, states["dst-img"])
}
