package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivseb/strapi-sync-wizard/internal/plan"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsertMappingReplacesTargetSide(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	m := DocumentMapping{
		SourceInstanceID: "src",
		TargetInstanceID: "dst",
		ContentType:      "api::a.a",
		SourceID:         1,
		SourceDocumentID: "doc-1",
		TargetID:         10,
		TargetDocumentID: "tgt-1",
	}
	require.NoError(t, s.UpsertMapping(ctx, m))

	// Re-upserting the same identity replaces the target side instead
	// of growing a second row.
	m.TargetID = 20
	m.TargetDocumentID = "tgt-2"
	require.NoError(t, s.UpsertMapping(ctx, m))

	all, err := s.AllMappings(ctx, "dst")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "tgt-2", all[0].TargetDocumentID)
	assert.Equal(t, int64(20), all[0].TargetID)
}

func TestMappingsPerLocaleRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := DocumentMapping{
		SourceInstanceID: "src", TargetInstanceID: "dst",
		ContentType: "api::a.a", SourceDocumentID: "doc-1", TargetDocumentID: "tgt-1",
	}
	en := base
	en.Locale = "en"
	it := base
	it.Locale = "it"
	it.TargetDocumentID = "tgt-1-it"

	require.NoError(t, s.UpsertMapping(ctx, en))
	require.NoError(t, s.UpsertMapping(ctx, it))

	all, err := s.AllMappings(ctx, "dst")
	require.NoError(t, err)
	assert.Len(t, all, 2, "locales map independently")

	m, ok, err := s.Mapping(ctx, "dst", "api::a.a", "doc-1", "it")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tgt-1-it", m.TargetDocumentID)
}

func TestDeleteMapping(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertMapping(ctx, DocumentMapping{
		SourceInstanceID: "src", TargetInstanceID: "dst",
		ContentType: "api::a.a", SourceDocumentID: "doc-1", TargetDocumentID: "tgt-1",
	}))
	require.NoError(t, s.DeleteMapping(ctx, "dst", "api::a.a", "doc-1", ""))

	_, ok, err := s.Mapping(ctx, "dst", "api::a.a", "doc-1", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordOutcomeIsOneShot(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceSelections(ctx, "mr-1", []plan.Selection{
		{TableName: "api::a.a", DocumentID: "doc-1", Direction: plan.ToCreate},
	}))

	require.NoError(t, s.RecordOutcome(ctx, "mr-1", "api::a.a", "doc-1", true, ""))

	// A second terminal state within the same run must be rejected.
	err := s.RecordOutcome(ctx, "mr-1", "api::a.a", "doc-1", false, "late failure")
	require.ErrorIs(t, err, ErrOutcomeAlreadyRecorded)

	rows, err := s.Selections(ctx, "mr-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].SyncSuccess.Valid)
	assert.True(t, rows[0].SyncSuccess.Bool)
	assert.False(t, rows[0].SyncFailureResponse.Valid)
}

func TestResetOutcomesReopensTheGuard(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceSelections(ctx, "mr-1", []plan.Selection{
		{TableName: "api::a.a", DocumentID: "doc-1", Direction: plan.ToUpdate},
	}))
	require.NoError(t, s.RecordOutcome(ctx, "mr-1", "api::a.a", "doc-1", false, "boom"))

	require.NoError(t, s.ResetOutcomes(ctx, "mr-1"))
	require.NoError(t, s.RecordOutcome(ctx, "mr-1", "api::a.a", "doc-1", true, ""))
}

func TestReplaceSelectionsSwapsSet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceSelections(ctx, "mr-1", []plan.Selection{
		{TableName: "t", DocumentID: "a", Direction: plan.ToCreate},
		{TableName: "t", DocumentID: "b", Direction: plan.ToDelete},
	}))
	require.NoError(t, s.ReplaceSelections(ctx, "mr-1", []plan.Selection{
		{TableName: "t", DocumentID: "c", Direction: plan.ToUpdate},
	}))

	rows, err := s.Selections(ctx, "mr-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "c", rows[0].DocumentID)
	assert.Equal(t, plan.ToUpdate, rows[0].Direction)
}

func TestSnapshotTTL(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutSnapshot(ctx, "instance/src", []byte(`{"x":1}`)))

	payload, ok, err := s.GetSnapshot(ctx, "instance/src", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"x":1}`, string(payload))

	// created_at has second resolution, so outlive a one-second TTL.
	time.Sleep(2 * time.Second)
	_, ok, err = s.GetSnapshot(ctx, "instance/src", time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "stale entries read as missing")

	_, ok, err = s.GetSnapshot(ctx, "instance/missing", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClearSnapshots(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutSnapshot(ctx, "k", []byte(`{}`)))
	require.NoError(t, s.ClearSnapshots(ctx))

	_, ok, err := s.GetSnapshot(ctx, "k", 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileAssociationsAndExclusions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordFileAssociation(ctx, "src", "dst", "file-1", "tgt-1"))
	require.NoError(t, s.RecordFileAssociation(ctx, "src", "dst", "file-1", "tgt-2"))

	assoc, err := s.FileAssociations(ctx, "src", "dst")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"file-1": "tgt-2"}, assoc, "re-recording replaces the target side")

	require.NoError(t, s.ExcludeFile(ctx, "file-9"))
	require.NoError(t, s.ExcludeFile(ctx, "file-9"))
	excluded, err := s.FileExclusions(ctx)
	require.NoError(t, err)
	assert.True(t, excluded["file-9"])

	require.NoError(t, s.IncludeFile(ctx, "file-9"))
	excluded, err = s.FileExclusions(ctx)
	require.NoError(t, err)
	assert.False(t, excluded["file-9"])
}
