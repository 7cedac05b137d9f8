package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/curator/internal/news"
)

var day = time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)

func sampleItems() []news.Item {
	return []news.Item{
		{URL: "https://a", Title: "A", Source: "Alpha", Category: "governance", Score: 3.5, Published: day},
		{URL: "https://b", Title: "B", Source: "Beta", Category: "governance", Score: 2},
		{URL: "https://c", Title: "C", Source: "Gamma", Score: 1},
	}
}

func TestBuildReviewGroupsByCategory(t *testing.T) {
	r := BuildReview(day, sampleItems())
	assert.Equal(t, "2026-10-14", r.Date)
	assert.Equal(t, 3, r.TotalArticles)
	require.Len(t, r.Categories["governance"], 2)
	assert.Equal(t, 2, r.Categories["governance"][1].ID)
	require.Len(t, r.Categories[DefaultCategory], 1)
	assert.Nil(t, r.Categories[DefaultCategory][0].Published)
	assert.NotNil(t, r.Categories["governance"][0].Published)
	assert.Empty(t, r.Selected)
}

func TestMarkSelected(t *testing.T) {
	r := BuildReview(day, sampleItems())
	n, err := MarkSelected(&r, []string{"governance:2", "general:1", "governance:2"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, r.Selected, 2)
	assert.Equal(t, "C", r.Selected[0].Title)
	assert.Equal(t, "B", r.Selected[1].Title)

	_, err = MarkSelected(&r, []string{"governance:9"})
	assert.Error(t, err)
	_, err = MarkSelected(&r, []string{"nonsense"})
	assert.Error(t, err)
}

func TestCarrySelections(t *testing.T) {
	prev := BuildReview(day, append(sampleItems(),
		news.Item{URL: "https://d", Title: "D", Source: "Delta", Category: "tools", Score: 1}))
	_, err := MarkSelected(&prev, []string{"governance:2", "tools:1"})
	require.NoError(t, err)

	// The rerun no longer sees C or D, and A now ranks after B.
	items := sampleItems()
	r := BuildReview(day, []news.Item{items[1], items[0]})
	n := CarrySelections(&r, prev)

	assert.Equal(t, 2, n)
	assert.Equal(t, 3, r.TotalArticles)
	require.Len(t, r.Selected, 2)
	assert.Equal(t, "B", r.Selected[0].Title)
	assert.Equal(t, 1, r.Selected[0].ID)
	assert.Equal(t, "D", r.Selected[1].Title)
	assert.True(t, r.Categories["tools"][0].Selected)
	assert.False(t, r.Categories["governance"][1].Selected)

	assert.Zero(t, CarrySelections(&r, prev), "already carried picks are not counted again")
	assert.Len(t, r.Selected, 2)
}

func TestReviewStoreSaveLoadList(t *testing.T) {
	dir := t.TempDir()
	store := NewReviewStore(dir)

	_, err := store.Load(day)
	assert.True(t, errors.Is(err, ErrReviewNotFound))

	r := BuildReview(day, sampleItems())
	_, err = MarkSelected(&r, []string{"governance:1"})
	require.NoError(t, err)
	require.NoError(t, store.Save(r))

	got, err := store.Load(day)
	require.NoError(t, err)
	assert.Equal(t, r, got)

	require.NoError(t, store.Save(BuildReview(day.AddDate(0, 0, -1), nil)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0o644))
	names, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"review_2026-10-13.json", "review_2026-10-14.json"}, names)
}

func TestValidateReview(t *testing.T) {
	assert.NoError(t, ValidateReview([]byte(`{"categories":{},"selected":[]}`)))

	err := ValidateReview([]byte(`{"categories":{"x":[{"title":5}]}}`))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.GreaterOrEqual(t, len(ve.Errors), 2)

	assert.Error(t, ValidateReview([]byte(`{broken`)))
}
