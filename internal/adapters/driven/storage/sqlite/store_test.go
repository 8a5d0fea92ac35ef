package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearwater-labs/quarry-cli/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func fullPassage() domain.Passage {
	framework := "SBI"
	category := domain.CategoryCoaching
	section := "Giving Feedback"
	return domain.Passage{
		ID:         "guide:0000",
		DocumentID: "guide",
		Ordinal:    0,
		Text:       "Feedback works best when specific and timely.",
		Metadata: domain.PassageMetadata{
			Framework: &framework,
			Category:  &category,
			Section:   &section,
			Keywords:  []string{"feedback", "timing"},
			Language:  "en",
			WordCount: 7,
			CharCount: 45,
		},
		Embedding:    []float32{0.25, -1.5, 3.125},
		QualityFlags: []string{domain.FlagTooShort},
	}
}

func TestNewStore_CreatesDatabaseFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, "passages.db"), store.Path())
}

func TestNewStore_MigrationsAreIdempotent(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SavePassages(context.Background(), []domain.Passage{fullPassage()}))
	require.NoError(t, store.Close())

	// Reopening the same database must not re-run migrations or lose data.
	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	p, err := reopened.GetPassage(context.Background(), "guide:0000")
	require.NoError(t, err)
	assert.Equal(t, "guide", p.DocumentID)
}

func TestStore_SaveAndGetRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	want := fullPassage()

	require.NoError(t, store.SavePassages(ctx, []domain.Passage{want}))

	got, err := store.GetPassage(ctx, want.ID)
	require.NoError(t, err)
	assert.Equal(t, want, *got)
}

func TestStore_GetPassage_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetPassage(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_SaveReplacesOnConflict(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	p := fullPassage()
	require.NoError(t, store.SavePassages(ctx, []domain.Passage{p}))

	p.Text = "Rewritten text."
	p.Embedding = nil
	require.NoError(t, store.SavePassages(ctx, []domain.Passage{p}))

	got, err := store.GetPassage(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rewritten text.", got.Text)
	assert.False(t, got.HasEmbedding())
}

func TestStore_MinimalPassageRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	// Absent optional fields stay absent, not zero-valued.
	want := domain.Passage{
		ID:         "bare:0000",
		DocumentID: "bare",
		Ordinal:    0,
		Text:       "Bare passage.",
	}
	require.NoError(t, store.SavePassages(ctx, []domain.Passage{want}))

	got, err := store.GetPassage(ctx, want.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Metadata.Framework)
	assert.Nil(t, got.Metadata.Category)
	assert.Nil(t, got.Metadata.Section)
	assert.Nil(t, got.Metadata.Keywords)
	assert.Nil(t, got.Embedding)
	assert.Nil(t, got.QualityFlags)
}

func TestStore_PassagesByDocument(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SavePassages(ctx, []domain.Passage{
		{ID: "a:0001", DocumentID: "a", Ordinal: 1, Text: "Second."},
		{ID: "a:0000", DocumentID: "a", Ordinal: 0, Text: "First."},
		{ID: "b:0000", DocumentID: "b", Ordinal: 0, Text: "Other."},
	}))

	passages, err := store.PassagesByDocument(ctx, "a")
	require.NoError(t, err)
	require.Len(t, passages, 2)
	assert.Equal(t, "a:0000", passages[0].ID)
	assert.Equal(t, "a:0001", passages[1].ID)
}

func TestStore_AllPassagesOrderedByID(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SavePassages(ctx, []domain.Passage{
		{ID: "b:0000", DocumentID: "b", Ordinal: 0, Text: "B."},
		{ID: "a:0000", DocumentID: "a", Ordinal: 0, Text: "A."},
	}))

	all, err := store.AllPassages(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a:0000", all[0].ID)
	assert.Equal(t, "b:0000", all[1].ID)
}

func TestStore_DeleteByDocument(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SavePassages(ctx, []domain.Passage{
		{ID: "a:0000", DocumentID: "a", Ordinal: 0, Text: "Gone."},
		{ID: "b:0000", DocumentID: "b", Ordinal: 0, Text: "Stays."},
	}))

	require.NoError(t, store.DeleteByDocument(ctx, "a"))

	_, err := store.GetPassage(ctx, "a:0000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetPassage(ctx, "b:0000")
	assert.NoError(t, err)
}

func TestFloat32BytesRoundTrip(t *testing.T) {
	vec := []float32{0, 1.5, -2.25, 3.14159}
	assert.Equal(t, vec, bytesToFloat32Slice(float32SliceToBytes(vec)))
	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}
