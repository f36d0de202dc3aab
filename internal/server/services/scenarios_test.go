package services

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/dmitrijs2005/webcatalog/internal/common"
	"github.com/dmitrijs2005/webcatalog/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type catalog struct {
	store      *memStore
	blobs      *memBlobs
	categories *CategoryService
	entries    *EntryService
	images     *ImageService
	system     *SystemService
}

func newCatalog() *catalog {
	st, blobs := newMemStore(), newMemBlobs()
	img := newImageService(st, blobs)
	suffix := 0
	img.randSuffix = func() (string, error) {
		suffix++
		return fmt.Sprintf("%016x", suffix), nil
	}
	return &catalog{
		store:      st,
		blobs:      blobs,
		categories: newCategoryService(st),
		entries:    newEntryService(st),
		images:     img,
		system:     newSystemService(st, seeded),
	}
}

func TestScenario_DeleteCategoryReassignsEntries(t *testing.T) {
	c := newCatalog()
	ctx := context.Background()
	c.store.nextCategory = 6

	catID, err := c.categories.Create(ctx, "Tools")
	require.NoError(t, err)
	require.Equal(t, int64(7), catID)

	entryID, err := c.entries.Create(ctx, input("a", catID, ptr(1)))
	require.NoError(t, err)

	require.NoError(t, c.categories.Delete(ctx, catID))

	list, err := c.entries.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entryID, list[0].ID)
	assert.Equal(t, common.DefaultCategoryID, list[0].CategoryID)
	assert.Equal(t, "Unassigned", list[0].CategoryName)
}

func TestScenario_ImageLifecycle(t *testing.T) {
	c := newCatalog()
	ctx := context.Background()

	x, err := c.images.Upload(ctx, dataURL("png", []byte("x")))
	require.NoError(t, err)
	assert.Equal(t, models.Unattached, x.State)

	b, err := c.entries.Create(ctx, input("b", 1, ptr(x.ID)))
	require.NoError(t, err)

	scan, err := c.system.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), scan.AttachedImages)
	assert.True(t, c.store.image(x.ID).IsAttached())

	require.NoError(t, c.entries.Delete(ctx, b))

	scan, err = c.system.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), scan.AttachedImages)
	assert.Equal(t, int64(1), scan.UnattachedImages)

	report, err := c.images.DeleteUnattached(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total)
	assert.NotContains(t, c.store.images, x.ID)
	assert.False(t, c.blobs.has(x.FilePath))
}

func TestScenario_URLNormalization(t *testing.T) {
	c := newCatalog()
	ctx := context.Background()

	a, err := c.entries.Create(ctx, EntryInput{Name: "a", Description: "d", URL: "example.com", CategoryID: 1})
	require.NoError(t, err)
	b, err := c.entries.Create(ctx, EntryInput{Name: "b", Description: "d", URL: "https://already.com", CategoryID: 1})
	require.NoError(t, err)

	ea, _ := c.store.entry(a)
	eb, _ := c.store.entry(b)
	assert.Equal(t, "https://example.com", ea.URL)
	assert.Equal(t, "https://already.com", eb.URL)
}

func TestScenario_UpdateHandoffTouchesTimestamps(t *testing.T) {
	c := newCatalog()
	ctx := context.Background()

	y, err := c.images.Upload(ctx, dataURL("png", []byte("y")))
	require.NoError(t, err)
	z, err := c.images.Upload(ctx, dataURL("png", []byte("z")))
	require.NoError(t, err)

	in := input("c", 1, ptr(y.ID))
	id, err := c.entries.Create(ctx, in)
	require.NoError(t, err)
	before, _ := c.store.entry(id)

	in.ImageID = ptr(z.ID)
	require.NoError(t, c.entries.Update(ctx, id, in))

	after, _ := c.store.entry(id)
	assert.Equal(t, models.Unattached, c.store.image(y.ID).State)
	assert.Equal(t, models.Attached, c.store.image(z.ID).State)
	assert.True(t, after.AddedAt.After(before.AddedAt))
	assert.NotEqual(t, before.TimeAdded(), after.TimeAdded())

	// A plain re-save still refreshes the timestamps.
	require.NoError(t, c.entries.Update(ctx, id, in))
	again, _ := c.store.entry(id)
	assert.True(t, again.AddedAt.After(after.AddedAt))
}

// attachedMatchesReferences checks that every non-placeholder image is
// attached exactly when some entry references it.
func attachedMatchesReferences(t *testing.T, st *memStore) {
	t.Helper()
	refs := map[int64]int{}
	for _, e := range st.entries {
		refs[e.ImageID]++
	}
	for id, img := range st.images {
		if id == common.PlaceholderImageID {
			continue
		}
		assert.Equal(t, refs[id] > 0, img.IsAttached(), "image %d with %d references", id, refs[id])
	}
}

func TestProperty_AttachmentTracksReferences(t *testing.T) {
	c := newCatalog()
	ctx := context.Background()
	rnd := rand.New(rand.NewSource(1))

	var imageIDs []int64
	for i := 0; i < 4; i++ {
		img, err := c.images.Upload(ctx, dataURL("png", []byte{byte(i)}))
		require.NoError(t, err)
		imageIDs = append(imageIDs, img.ID)
	}
	pick := func() *int64 {
		if rnd.Intn(5) == 0 {
			return ptr(common.PlaceholderImageID)
		}
		return ptr(imageIDs[rnd.Intn(len(imageIDs))])
	}

	var live []int64
	for step := 0; step < 200; step++ {
		switch op := rnd.Intn(3); {
		case op == 0 || len(live) == 0:
			id, err := c.entries.Create(ctx, input("e", 1, pick()))
			require.NoError(t, err)
			live = append(live, id)
		case op == 1:
			id := live[rnd.Intn(len(live))]
			require.NoError(t, c.entries.Update(ctx, id, input("e", 1, pick())))
		default:
			i := rnd.Intn(len(live))
			require.NoError(t, c.entries.Delete(ctx, live[i]))
			live = append(live[:i], live[i+1:]...)
		}
		attachedMatchesReferences(t, c.store)
	}

	_, err := c.images.DeleteUnattached(ctx)
	require.NoError(t, err)
	for _, e := range c.store.entries {
		if e.ImageID != common.PlaceholderImageID {
			assert.Contains(t, c.store.images, e.ImageID, "sweep never removes a referenced image")
		}
	}
	assert.Contains(t, c.store.images, common.PlaceholderImageID)
}

func TestProperty_ScanSeesEveryDanglingCategory(t *testing.T) {
	c := newCatalog()
	ctx := context.Background()

	cat, err := c.categories.Create(ctx, "Temp")
	require.NoError(t, err)
	_, err = c.entries.Create(ctx, input("a", cat, nil))
	require.NoError(t, err)

	// Removed out of band, bypassing the reassignment.
	require.NoError(t, c.store.Categories(nil).Delete(ctx, cat))

	scan, err := c.system.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), scan.OrphanedEntries)

	fixed, err := c.system.FixOrphaned(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), fixed.CategoryFixed)
}
