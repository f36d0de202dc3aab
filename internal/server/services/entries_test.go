package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/webcatalog/internal/common"
	"github.com/dmitrijs2005/webcatalog/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntryService(st *memStore) *EntryService {
	s := NewEntryService(st, st)
	s.now = fixedClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	return s
}

func ptr(v int64) *int64 { return &v }

func input(name string, category int64, image *int64) EntryInput {
	return EntryInput{
		Name:        name,
		Description: name + " description",
		URL:         name + ".example.com",
		CategoryID:  category,
		ImageID:     image,
	}
}

func TestEntryCreate_Validation(t *testing.T) {
	st := newMemStore()
	s := newEntryService(st)

	tests := []struct {
		name  string
		in    EntryInput
		field string
	}{
		{"name", EntryInput{Name: " ", Description: "d", URL: "u", CategoryID: 1}, "web_name"},
		{"url", EntryInput{Name: "n", Description: "d", URL: "", CategoryID: 1}, "url"},
		{"category", EntryInput{Name: "n", Description: "d", URL: "u"}, "category_id"},
		{"description", EntryInput{Name: "n", Description: "\t", URL: "u", CategoryID: 1}, "description"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(context.Background(), tt.in)
			require.ErrorIs(t, err, common.ErrValidation)
			assert.Equal(t, "Field '"+tt.field+"' is required", publicMessage(t, err))
		})
	}
	assert.Empty(t, st.entries, "nothing is written on validation failure")
}

func TestEntryCreate_DefaultsAndNormalizes(t *testing.T) {
	st := newMemStore()
	s := newEntryService(st)

	id, err := s.Create(context.Background(), EntryInput{
		Name: " Go ", Description: " d ", URL: " go.dev ", CategoryID: 1,
	})
	require.NoError(t, err)

	e, ok := st.entry(id)
	require.True(t, ok)
	assert.Equal(t, "Go", e.Name)
	assert.Equal(t, "https://go.dev", e.URL)
	assert.Equal(t, common.PlaceholderImageID, e.ImageID)
	assert.Equal(t, "2024-06-01", e.DateAdded())
	assert.Equal(t, "12:00:01", e.TimeAdded())
	assert.Equal(t, models.Attached, st.image(1).State)
}

func TestEntryCreate_AttachesImage(t *testing.T) {
	st := newMemStore()
	st.addImage(5, "img_5.png", models.Unattached)
	s := newEntryService(st)

	_, err := s.Create(context.Background(), input("a", 1, ptr(5)))
	require.NoError(t, err)
	assert.Equal(t, models.Attached, st.image(5).State)
	assert.Equal(t, []int64{5}, st.locked)
}

func TestEntryCreate_AllowsOrphans(t *testing.T) {
	st := newMemStore()
	s := newEntryService(st)

	id, err := s.Create(context.Background(), input("a", 99, ptr(42)))
	require.NoError(t, err)
	e, _ := st.entry(id)
	assert.Equal(t, int64(99), e.CategoryID)
	assert.Equal(t, int64(42), e.ImageID)
}

func TestEntryCreate_StoreFailureRollsBack(t *testing.T) {
	st := newMemStore()
	st.addImage(5, "img_5.png", models.Unattached)
	st.fail["images.SetState"] = errors.New("db down")
	s := newEntryService(st)

	_, err := s.Create(context.Background(), input("a", 1, ptr(5)))
	require.ErrorIs(t, err, common.ErrPersistence)
	assert.Empty(t, st.entries)
	assert.Equal(t, models.Unattached, st.image(5).State)
}

func TestEntryUpdate_NotFound(t *testing.T) {
	st := newMemStore()
	s := newEntryService(st)

	err := s.Update(context.Background(), 9, input("a", 1, nil))
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, "Entry not found", publicMessage(t, err))
}

func TestEntryUpdate_Handoff(t *testing.T) {
	st := newMemStore()
	st.addImage(5, "y.png", models.Attached)
	st.addImage(6, "z.png", models.Unattached)
	st.addEntry(models.Entry{ID: 1, Name: "c", CategoryID: 1, ImageID: 5, AddedAt: seeded})
	s := newEntryService(st)

	require.NoError(t, s.Update(context.Background(), 1, input("c", 1, ptr(6))))

	assert.Equal(t, models.Unattached, st.image(5).State)
	assert.Equal(t, models.Attached, st.image(6).State)
	e, _ := st.entry(1)
	assert.Equal(t, int64(6), e.ImageID)
	assert.Equal(t, []int64{5, 6}, st.locked, "images are locked in id order")
}

func TestEntryUpdate_SharedImageStaysAttached(t *testing.T) {
	st := newMemStore()
	st.addImage(5, "y.png", models.Attached)
	st.addEntry(models.Entry{ID: 1, CategoryID: 1, ImageID: 5})
	st.addEntry(models.Entry{ID: 2, CategoryID: 1, ImageID: 5})
	s := newEntryService(st)

	require.NoError(t, s.Update(context.Background(), 1, input("c", 1, ptr(1))))
	assert.Equal(t, models.Attached, st.image(5).State, "entry 2 still references it")
}

func TestEntryUpdate_KeepsImageWhenOmitted(t *testing.T) {
	st := newMemStore()
	st.addImage(5, "y.png", models.Attached)
	st.addEntry(models.Entry{ID: 1, CategoryID: 1, ImageID: 5, AddedAt: seeded})
	s := newEntryService(st)

	require.NoError(t, s.Update(context.Background(), 1, input("c", 3, nil)))
	e, _ := st.entry(1)
	assert.Equal(t, int64(5), e.ImageID)
	assert.Equal(t, int64(3), e.CategoryID)
	assert.Equal(t, models.Attached, st.image(5).State)
	assert.Empty(t, st.locked, "no handoff, no image locks")
}

func TestEntryUpdate_FailureRollsBack(t *testing.T) {
	st := newMemStore()
	st.addImage(5, "y.png", models.Attached)
	st.addImage(6, "z.png", models.Unattached)
	st.addEntry(models.Entry{ID: 1, CategoryID: 1, ImageID: 5})
	st.fail["images.SetState"] = errors.New("db down")
	s := newEntryService(st)

	err := s.Update(context.Background(), 1, input("c", 1, ptr(6)))
	require.ErrorIs(t, err, common.ErrPersistence)
	e, _ := st.entry(1)
	assert.Equal(t, int64(5), e.ImageID)
}

func TestEntryDelete(t *testing.T) {
	st := newMemStore()
	st.addImage(5, "y.png", models.Attached)
	st.addEntry(models.Entry{ID: 1, CategoryID: 1, ImageID: 5})
	st.addEntry(models.Entry{ID: 2, CategoryID: 1, ImageID: 5})
	s := newEntryService(st)
	ctx := context.Background()

	require.NoError(t, s.Delete(ctx, 1))
	assert.Equal(t, models.Attached, st.image(5).State)

	require.NoError(t, s.Delete(ctx, 2))
	assert.Equal(t, models.Unattached, st.image(5).State)

	err := s.Delete(ctx, 2)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestEntryDelete_PlaceholderUntouched(t *testing.T) {
	st := newMemStore()
	st.addEntry(models.Entry{ID: 1, CategoryID: 1, ImageID: 1})
	s := newEntryService(st)

	require.NoError(t, s.Delete(context.Background(), 1))
	assert.Equal(t, models.Attached, st.image(1).State)
	assert.Empty(t, st.locked)
}

func TestEntryList_KeepsOrphans(t *testing.T) {
	st := newMemStore()
	st.addCategory(7, "Tools", seeded)
	st.addImage(5, "y.png", models.Attached)
	st.addEntry(models.Entry{ID: 1, CategoryID: 7, ImageID: 5, AddedAt: seeded})
	st.addEntry(models.Entry{ID: 2, CategoryID: 99, ImageID: 77, AddedAt: seeded.Add(time.Hour)})
	s := newEntryService(st)

	list, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), list[0].ID)
	assert.Equal(t, "", list[0].CategoryName)
	assert.Equal(t, common.PlaceholderImagePath, list[0].ImagePath)
	assert.Equal(t, "Tools", list[1].CategoryName)
	assert.Equal(t, "IMG/y.png", list[1].ImagePath)
}

func TestEntryURLExists(t *testing.T) {
	st := newMemStore()
	st.addEntry(models.Entry{ID: 1, URL: "https://go.dev"})
	s := newEntryService(st)

	ok, err := s.URLExists(context.Background(), "go.dev")
	require.NoError(t, err)
	assert.True(t, ok)
}
