package plan

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivseb/strapi-sync-wizard/internal/compare"
	"github.com/ivseb/strapi-sync-wizard/internal/links"
)

func item(table, doc string, dir Direction, refs ...links.LinkRef) Item {
	return Item{
		Selection: Selection{TableName: table, DocumentID: doc, Direction: dir},
		Result:    compare.Result{ContentType: table},
		Links:     refs,
	}
}

func ref(field, targetTable, targetDoc string) links.LinkRef {
	return links.LinkRef{Field: field, TargetTable: targetTable, TargetDocumentID: targetDoc}
}

func TestBuildDependencyBeforeDependent(t *testing.T) {
	// book -> author: the author must land in an earlier batch.
	items := []Item{
		item("api::book.book", "book-1", ToCreate, ref("author", "api::author.author", "author-1")),
		item("api::author.author", "author-1", ToCreate),
	}

	p, err := Build(items, nil)
	require.NoError(t, err)

	require.Len(t, p.Batches, 2)
	assert.Equal(t, "api::author.author/author-1", p.Batches[0][0].Key().String())
	assert.Equal(t, "api::book.book/book-1", p.Batches[1][0].Key().String())
	assert.Empty(t, p.CircularEdges)
	assert.Empty(t, p.Missing)
}

func TestBuildMutualCycleSharesBatch(t *testing.T) {
	// author <-> book: both edges are circular, both items land in the
	// same batch and no batch-ordering constraint remains between them.
	items := []Item{
		item("api::author.author", "author-1", ToCreate, ref("featuredBook", "api::book.book", "book-1")),
		item("api::book.book", "book-1", ToCreate, ref("author", "api::author.author", "author-1")),
	}

	p, err := Build(items, nil)
	require.NoError(t, err)

	require.Len(t, p.Batches, 1)
	require.Len(t, p.Batches[0], 2)
	require.Len(t, p.CircularEdges, 2)

	edges := map[string]string{}
	for _, e := range p.CircularEdges {
		edges[e.FromTable+"/"+e.FromDocumentID] = e.Via.Field
	}
	assert.Equal(t, "featuredBook", edges["api::author.author/author-1"])
	assert.Equal(t, "author", edges["api::book.book/book-1"])
}

func TestBuildCycleMemberWithExtraDependency(t *testing.T) {
	// a <-> b, and both depend on c. The cycle members must still share
	// one batch, scheduled after c.
	items := []Item{
		item("t", "a", ToCreate, ref("toB", "t", "b"), ref("toC", "t", "c")),
		item("t", "b", ToCreate, ref("toA", "t", "a")),
		item("t", "c", ToCreate),
	}

	p, err := Build(items, nil)
	require.NoError(t, err)

	require.Len(t, p.Batches, 2)
	assert.Equal(t, "c", p.Batches[0][0].Key().DocumentID)
	require.Len(t, p.Batches[1], 2, "both cycle members in the same batch")
}

func TestBuildSelfReferenceIsCircular(t *testing.T) {
	// A record relating to itself is a 1-cycle: the relation is
	// deferred, the item schedules normally.
	items := []Item{
		item("api::page.page", "page-1", ToCreate, ref("parent", "api::page.page", "page-1")),
	}

	p, err := Build(items, nil)
	require.NoError(t, err)

	require.Len(t, p.Batches, 1)
	require.Len(t, p.CircularEdges, 1)
	edge := p.CircularEdges[0]
	assert.Equal(t, "page-1", edge.FromDocumentID)
	assert.Equal(t, "page-1", edge.ToDocumentID)
	assert.Equal(t, "parent", edge.Via.Field)
	assert.Empty(t, p.Missing)
}

func TestBuildMissingDependencyRecordedAndDropped(t *testing.T) {
	items := []Item{
		item("api::book.book", "book-1", ToCreate, ref("author", "api::author.author", "ghost")),
	}

	p, err := Build(items, nil)
	require.NoError(t, err)

	require.Len(t, p.Batches, 1)
	require.Len(t, p.Missing, 1)
	assert.Equal(t, "ghost", p.Missing[0].Via.TargetDocumentID)
}

func TestBuildExistingTargetIsNotMissing(t *testing.T) {
	items := []Item{
		item("api::book.book", "book-1", ToCreate, ref("author", "api::author.author", "already-there")),
	}
	existing := map[NodeKey]bool{
		{Table: "api::author.author", DocumentID: "already-there"}: true,
	}

	p, err := Build(items, existing)
	require.NoError(t, err)
	assert.Empty(t, p.Missing)
}

func TestBuildDeletionsLast(t *testing.T) {
	items := []Item{
		item("api::book.book", "book-1", ToCreate),
		item("api::book.book", "old-1", ToDelete),
		item("api::author.author", "old-2", ToDelete),
	}

	p, err := Build(items, nil)
	require.NoError(t, err)

	require.Len(t, p.Batches, 1)
	require.Len(t, p.Deletions, 2)
	assert.Equal(t, "api::author.author/old-2", p.Deletions[0].Key().String())
	assert.Equal(t, "api::book.book/old-1", p.Deletions[1].Key().String())
}

func TestBuildDuplicateSelectionRejected(t *testing.T) {
	items := []Item{
		item("t", "a", ToCreate),
		item("t", "a", ToUpdate),
	}

	_, err := Build(items, nil)
	assert.Error(t, err)
}

func TestBuildDeterministic(t *testing.T) {
	items := []Item{
		item("t", "b", ToCreate, ref("r", "t", "a")),
		item("t", "a", ToCreate),
		item("t", "c", ToCreate, ref("r", "t", "a")),
		item("t", "d", ToDelete),
	}

	p1, err := Build(items, nil)
	require.NoError(t, err)

	// Same input in a different order.
	reversed := []Item{items[3], items[2], items[1], items[0]}
	p2, err := Build(reversed, nil)
	require.NoError(t, err)

	assert.Equal(t, Render(p1), Render(p2))
}

func TestRenderGolden(t *testing.T) {
	items := []Item{
		item("api::author.author", "author-1", ToCreate, ref("featuredBook", "api::book.book", "book-1")),
		item("api::book.book", "book-1", ToCreate,
			ref("author", "api::author.author", "author-1"),
			ref("publisher", "api::publisher.publisher", "pub-ghost")),
		item("api::genre.genre", "genre-1", ToUpdate),
		item("api::book.book", "legacy-1", ToDelete),
	}

	p, err := Build(items, nil)
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "plan_render", []byte(Render(p)))
}
