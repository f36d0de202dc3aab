package services

import (
	"context"
	"database/sql"
	"errors"
	"maps"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/webcatalog/internal/common"
	"github.com/dmitrijs2005/webcatalog/internal/dbx"
	"github.com/dmitrijs2005/webcatalog/internal/server/models"
	"github.com/dmitrijs2005/webcatalog/internal/server/repositories/admins"
	"github.com/dmitrijs2005/webcatalog/internal/server/repositories/categories"
	"github.com/dmitrijs2005/webcatalog/internal/server/repositories/entries"
	"github.com/dmitrijs2005/webcatalog/internal/server/repositories/images"
	"github.com/dmitrijs2005/webcatalog/internal/server/storage"
)

// memStore is an in-memory stand-in for the three catalog tables plus
// admin_login. WithTx snapshots the tables and restores them on error.
type memStore struct {
	mu sync.Mutex

	categories map[int64]models.Category
	images     map[int64]models.Image
	entries    map[int64]models.Entry
	admins     map[int64]models.Admin

	nextCategory, nextImage, nextEntry, nextAdmin int64

	// fail maps "repo.Method" to an injected error.
	fail map[string]error

	locked []int64
	txs    int
}

var seeded = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newMemStore() *memStore {
	return &memStore{
		categories: map[int64]models.Category{
			1: {ID: 1, Name: "Unassigned", CreatedAt: seeded},
		},
		images: map[int64]models.Image{
			1: {ID: 1, FileName: "placeholder-img.png", FilePath: common.PlaceholderImagePath, State: models.Attached, UploadedAt: seeded},
		},
		entries:      map[int64]models.Entry{},
		admins:       map[int64]models.Admin{},
		nextCategory: 1, nextImage: 1,
		fail: map[string]error{},
	}
}

func (s *memStore) failed(op string) error {
	return s.fail[op]
}

// Transactor

func (s *memStore) Conn() dbx.DBTX { return nil }

func (s *memStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	s.mu.Lock()
	s.txs++
	cats, imgs, ents := maps.Clone(s.categories), maps.Clone(s.images), maps.Clone(s.entries)
	s.mu.Unlock()

	if err := fn(ctx, nil); err != nil {
		s.mu.Lock()
		s.categories, s.images, s.entries = cats, imgs, ents
		s.mu.Unlock()
		return err
	}
	return nil
}

// RepositoryManager

func (s *memStore) RunMigrations(context.Context, *sql.DB) error { return nil }
func (s *memStore) Categories(dbx.DBTX) categories.Repository    { return (*memCategories)(s) }
func (s *memStore) Entries(dbx.DBTX) entries.Repository          { return (*memEntries)(s) }
func (s *memStore) Images(dbx.DBTX) images.Repository            { return (*memImages)(s) }
func (s *memStore) Admins(dbx.DBTX) admins.Repository            { return (*memAdmins)(s) }

// helpers for tests

func (s *memStore) addCategory(id int64, name string, created time.Time) {
	s.categories[id] = models.Category{ID: id, Name: name, CreatedAt: created}
	if id > s.nextCategory {
		s.nextCategory = id
	}
}

func (s *memStore) addImage(id int64, name string, state models.AttachState) {
	s.images[id] = models.Image{ID: id, FileName: name, FilePath: common.ImagePrefix + name, State: state, UploadedAt: seeded}
	if id > s.nextImage {
		s.nextImage = id
	}
}

func (s *memStore) addEntry(e models.Entry) {
	s.entries[e.ID] = e
	if e.ID > s.nextEntry {
		s.nextEntry = e.ID
	}
}

func (s *memStore) image(id int64) models.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.images[id]
}

func (s *memStore) entry(id int64) (models.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	return e, ok
}

// categories

type memCategories memStore

func (r *memCategories) Create(ctx context.Context, name string, now time.Time) (int64, error) {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed("categories.Create"); err != nil {
		return 0, err
	}
	for _, c := range s.categories {
		if c.Name == name {
			return 0, common.ErrConflict
		}
	}
	s.nextCategory++
	s.categories[s.nextCategory] = models.Category{ID: s.nextCategory, Name: name, CreatedAt: now}
	return s.nextCategory, nil
}

func (r *memCategories) FindByName(ctx context.Context, name string) (*models.Category, error) {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed("categories.FindByName"); err != nil {
		return nil, err
	}
	for _, c := range s.categories {
		if c.Name == name {
			return &c, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memCategories) Rename(ctx context.Context, oldName, newName string, now time.Time) error {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed("categories.Rename"); err != nil {
		return err
	}
	for id, c := range s.categories {
		if c.Name == oldName {
			c.Name = newName
			c.UpdatedAt = &now
			s.categories[id] = c
			return nil
		}
	}
	return common.ErrNotFound
}

func (r *memCategories) Delete(ctx context.Context, id int64) error {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed("categories.Delete"); err != nil {
		return err
	}
	if _, ok := s.categories[id]; !ok {
		return common.ErrNotFound
	}
	delete(s.categories, id)
	return nil
}

func (r *memCategories) List(ctx context.Context) ([]models.Category, error) {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed("categories.List"); err != nil {
		return nil, err
	}
	list := make([]models.Category, 0, len(s.categories))
	for _, c := range s.categories {
		list = append(list, c)
	}
	touched := func(c models.Category) time.Time {
		if c.UpdatedAt != nil {
			return *c.UpdatedAt
		}
		return c.CreatedAt
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if (a.ID == 1) != (b.ID == 1) {
			return a.ID == 1
		}
		if !touched(a).Equal(touched(b)) {
			return touched(a).After(touched(b))
		}
		return a.ID > b.ID
	})
	return list, nil
}

func (r *memCategories) Count(ctx context.Context) (int64, error) {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.categories)), nil
}

// images

type memImages memStore

var placeholderName = regexp.MustCompile(`(?i)^placeholder-img`)

func countable(img models.Image) bool {
	return img.ID != 1 && !placeholderName.MatchString(img.FileName)
}

func (r *memImages) Create(ctx context.Context, img *models.Image) (*models.Image, error) {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed("images.Create"); err != nil {
		return nil, err
	}
	for _, i := range s.images {
		if i.FileName == img.FileName {
			return nil, common.ErrConflict
		}
	}
	s.nextImage++
	img.ID = s.nextImage
	s.images[img.ID] = *img
	return img, nil
}

func (r *memImages) Lock(ctx context.Context, id int64) error {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed("images.Lock"); err != nil {
		return err
	}
	s.locked = append(s.locked, id)
	return nil
}

func (r *memImages) SetState(ctx context.Context, id int64, state models.AttachState) error {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed("images.SetState"); err != nil {
		return err
	}
	if img, ok := s.images[id]; ok {
		img.State = state
		s.images[id] = img
	}
	return nil
}

func (r *memImages) sorted(keep func(models.Image) bool) []models.Image {
	s := (*memStore)(r)
	var list []models.Image
	for _, img := range s.images {
		if keep(img) {
			list = append(list, img)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func (r *memImages) ListUnattached(ctx context.Context) ([]models.Image, error) {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed("images.ListUnattached"); err != nil {
		return nil, err
	}
	return r.sorted(func(img models.Image) bool {
		return img.State == models.Unattached && countable(img)
	}), nil
}

func (r *memImages) List(ctx context.Context) ([]models.Image, error) {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	list := r.sorted(func(models.Image) bool { return true })
	sort.SliceStable(list, func(i, j int) bool { return list[i].UploadedAt.After(list[j].UploadedAt) })
	return list, nil
}

func (r *memImages) Delete(ctx context.Context, id int64) error {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed("images.Delete"); err != nil {
		return err
	}
	if _, ok := s.images[id]; !ok {
		return common.ErrNotFound
	}
	delete(s.images, id)
	return nil
}

func (r *memImages) Counts(ctx context.Context) (models.ImageCounts, error) {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var c models.ImageCounts
	for _, img := range s.images {
		if !countable(img) {
			continue
		}
		c.Total++
		if img.State == models.Attached {
			c.Attached++
		} else {
			c.Unattached++
		}
	}
	return c, nil
}

func (r *memImages) ExistsByFilename(ctx context.Context, filename string) (bool, error) {
	_, err := r.FindByFilename(ctx, filename)
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *memImages) FindByFilename(ctx context.Context, filename string) (*models.Image, error) {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, img := range s.images {
		if img.FileName == filename {
			return &img, nil
		}
	}
	return nil, common.ErrNotFound
}

// entries

type memEntries memStore

func (r *memEntries) Create(ctx context.Context, e *models.Entry) (int64, error) {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed("entries.Create"); err != nil {
		return 0, err
	}
	s.nextEntry++
	e.ID = s.nextEntry
	s.entries[e.ID] = *e
	return e.ID, nil
}

func (r *memEntries) GetForUpdate(ctx context.Context, id int64) (*models.Entry, error) {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &e, nil
}

func (r *memEntries) Update(ctx context.Context, e *models.Entry) error {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed("entries.Update"); err != nil {
		return err
	}
	if _, ok := s.entries[e.ID]; !ok {
		return common.ErrNotFound
	}
	s.entries[e.ID] = *e
	return nil
}

func (r *memEntries) Delete(ctx context.Context, id int64) error {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed("entries.Delete"); err != nil {
		return err
	}
	if _, ok := s.entries[id]; !ok {
		return common.ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

func (r *memEntries) CountByImage(ctx context.Context, imageID, excludeEntryID int64) (int64, error) {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, e := range s.entries {
		if e.ImageID == imageID && e.ID != excludeEntryID {
			n++
		}
	}
	return n, nil
}

func (r *memEntries) ReassignCategory(ctx context.Context, from, to int64) (int64, error) {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed("entries.ReassignCategory"); err != nil {
		return 0, err
	}
	var n int64
	for id, e := range s.entries {
		if e.CategoryID == from {
			e.CategoryID = to
			s.entries[id] = e
			n++
		}
	}
	return n, nil
}

func (s *memStore) orphanCategory(e models.Entry) bool {
	_, ok := s.categories[e.CategoryID]
	return !ok
}

func (s *memStore) orphanImage(e models.Entry) bool {
	_, ok := s.images[e.ImageID]
	return !ok
}

func (r *memEntries) FixOrphanCategories(ctx context.Context) (int64, error) {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, e := range s.entries {
		if s.orphanCategory(e) {
			e.CategoryID = 1
			s.entries[id] = e
			n++
		}
	}
	return n, nil
}

func (r *memEntries) FixOrphanImages(ctx context.Context) (int64, error) {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed("entries.FixOrphanImages"); err != nil {
		return 0, err
	}
	var n int64
	for id, e := range s.entries {
		if s.orphanImage(e) {
			e.ImageID = 1
			s.entries[id] = e
			n++
		}
	}
	return n, nil
}

func (r *memEntries) CountOrphans(ctx context.Context) (int64, error) {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, e := range s.entries {
		if s.orphanCategory(e) || s.orphanImage(e) {
			n++
		}
	}
	return n, nil
}

func (r *memEntries) Count(ctx context.Context) (int64, error) {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed("entries.Count"); err != nil {
		return 0, err
	}
	return int64(len(s.entries)), nil
}

func (r *memEntries) CountSince(ctx context.Context, since time.Time) (int64, error) {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, e := range s.entries {
		if !e.AddedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *memEntries) ListDetailed(ctx context.Context) ([]models.EntryListing, error) {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.EntryListing
	for _, e := range s.entries {
		l := models.EntryListing{Entry: e, ImagePath: common.PlaceholderImagePath}
		if c, ok := s.categories[e.CategoryID]; ok {
			l.CategoryName = c.Name
		}
		if img, ok := s.images[e.ImageID]; ok {
			l.ImagePath = img.FilePath
		}
		list = append(list, l)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].AddedAt.Equal(list[j].AddedAt) {
			return list[i].AddedAt.After(list[j].AddedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

func (r *memEntries) ExistsByURL(ctx context.Context, url string) (bool, error) {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.URL == url {
			return true, nil
		}
	}
	return false, nil
}

// admins

type memAdmins memStore

func (r *memAdmins) Create(ctx context.Context, a *models.Admin) (*models.Admin, error) {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.admins {
		if x.Username == a.Username {
			return nil, common.ErrConflict
		}
	}
	s.nextAdmin++
	a.ID = s.nextAdmin
	s.admins[a.ID] = *a
	return a, nil
}

func (r *memAdmins) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	s := (*memStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed("admins.GetByUsername"); err != nil {
		return nil, err
	}
	for _, a := range s.admins {
		if a.Username == username {
			return &a, nil
		}
	}
	return nil, common.ErrNotFound
}

// memBlobs is an in-memory storage.Blobs with per-method failure injection.
type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    map[string]error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: map[string][]byte{}, fail: map[string]error{}}
}

var _ storage.Blobs = (*memBlobs)(nil)

func (b *memBlobs) Put(ctx context.Context, p string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail["Put"]; err != nil {
		return err
	}
	if _, ok := b.objects[p]; ok {
		return storage.ErrExists
	}
	b.objects[p] = data
	return nil
}

func (b *memBlobs) Get(ctx context.Context, p string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[p]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (b *memBlobs) Delete(ctx context.Context, p string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail["Delete:"+p]; err != nil {
		return err
	}
	delete(b.objects, p)
	return nil
}

func (b *memBlobs) Exists(ctx context.Context, p string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail["Exists"]; err != nil {
		return false, err
	}
	_, ok := b.objects[p]
	return ok, nil
}

func (b *memBlobs) Move(ctx context.Context, from, to string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail["Move:"+from]; err != nil {
		return err
	}
	data, ok := b.objects[from]
	if !ok {
		return storage.ErrNotFound
	}
	delete(b.objects, from)
	b.objects[to] = data
	return nil
}

func (b *memBlobs) List(ctx context.Context, prefix string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail["List"]; err != nil {
		return nil, err
	}
	var out []string
	for k := range b.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (b *memBlobs) has(p string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[p]
	return ok
}

// fixedClock returns successive instants one second apart.
func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}
