package api

import (
	"context"
	"time"

	"github.com/dmitrijs2005/webcatalog/internal/common"
	"github.com/dmitrijs2005/webcatalog/internal/logging"
	"github.com/dmitrijs2005/webcatalog/internal/server/models"
	"github.com/dmitrijs2005/webcatalog/internal/server/services"
)

// ---- fakes ----

type fakeCategories struct {
	list    []models.Category
	listErr error

	createdName string
	createID    int64
	createErr   error

	renamed   [2]string
	renameErr error

	deletedID int64
	deleteErr error
}

func (f *fakeCategories) Create(_ context.Context, name string) (int64, error) {
	f.createdName = name
	return f.createID, f.createErr
}
func (f *fakeCategories) Rename(_ context.Context, oldName, newName string) error {
	f.renamed = [2]string{oldName, newName}
	return f.renameErr
}
func (f *fakeCategories) Delete(_ context.Context, id int64) error {
	f.deletedID = id
	return f.deleteErr
}
func (f *fakeCategories) List(context.Context) ([]models.Category, error) {
	return f.list, f.listErr
}

type fakeEntries struct {
	list    []models.EntryListing
	listErr error

	created   services.EntryInput
	createID  int64
	createErr error

	updatedID int64
	updated   services.EntryInput
	updateErr error

	deletedID int64
	deleteErr error
}

func (f *fakeEntries) Create(_ context.Context, in services.EntryInput) (int64, error) {
	f.created = in
	return f.createID, f.createErr
}
func (f *fakeEntries) Update(_ context.Context, id int64, in services.EntryInput) error {
	f.updatedID, f.updated = id, in
	return f.updateErr
}
func (f *fakeEntries) Delete(_ context.Context, id int64) error {
	f.deletedID = id
	return f.deleteErr
}
func (f *fakeEntries) List(context.Context) ([]models.EntryListing, error) {
	return f.list, f.listErr
}

type fakeImages struct {
	uploaded  string
	upload    *models.Image
	uploadErr error

	list    []models.Image
	listErr error

	exists    bool
	existsErr error

	sweep    *models.SweepReport
	sweepErr error

	stats *models.ImageStats
}

func (f *fakeImages) Upload(_ context.Context, dataURL string) (*models.Image, error) {
	f.uploaded = dataURL
	return f.upload, f.uploadErr
}
func (f *fakeImages) ListImages(context.Context) ([]models.Image, error) { return f.list, f.listErr }
func (f *fakeImages) CheckDuplicateFilename(context.Context, string) (bool, error) {
	return f.exists, f.existsErr
}
func (f *fakeImages) DeleteUnattached(context.Context) (*models.SweepReport, error) {
	return f.sweep, f.sweepErr
}
func (f *fakeImages) MoveUnattachedToTemp(context.Context) (*models.SweepReport, error) {
	return f.sweep, f.sweepErr
}
func (f *fakeImages) CleanTempImages(context.Context) (*models.SweepReport, error) {
	return f.sweep, f.sweepErr
}
func (f *fakeImages) Stats(context.Context) (*models.ImageStats, error) { return f.stats, nil }

type fakeSystem struct {
	scan *models.ScanReport
	fix  *models.FixReport
	dash *models.DashboardStats
	err  error
}

func (f *fakeSystem) Scan(context.Context) (*models.ScanReport, error)       { return f.scan, f.err }
func (f *fakeSystem) FixOrphaned(context.Context) (*models.FixReport, error) { return f.fix, f.err }
func (f *fakeSystem) Dashboard(context.Context) (*models.DashboardStats, error) {
	return f.dash, f.err
}

// fakeAuth accepts exactly one token.
type fakeAuth struct {
	valid    string
	token    string
	loginErr error
}

func (f *fakeAuth) Login(_ context.Context, username, password string) (string, error) {
	return f.token, f.loginErr
}
func (f *fakeAuth) Verify(_ context.Context, token string) (*services.Session, error) {
	if token == "" || token != f.valid {
		return nil, common.Public(common.ErrUnauthorized, "Invalid session")
	}
	return &services.Session{AdminID: 1, Username: "admin"}, nil
}

type observed struct {
	action, outcome string
}

type fakeRecorder struct {
	actions      []observed
	swept        int
	orphansCat   int64
	orphansImage int64
}

func (r *fakeRecorder) ObserveAction(action, outcome string, _ time.Duration) {
	r.actions = append(r.actions, observed{action, outcome})
}
func (r *fakeRecorder) ImagesSwept(n int) { r.swept += n }
func (r *fakeRecorder) OrphansFixed(category, image int64) {
	r.orphansCat += category
	r.orphansImage += image
}

type fixture struct {
	categories *fakeCategories
	entries    *fakeEntries
	images     *fakeImages
	system     *fakeSystem
	auth       *fakeAuth
	recorder   *fakeRecorder
	d          *Dispatcher
}

const adminToken = "good-token"

func newFixture() *fixture {
	f := &fixture{
		categories: &fakeCategories{},
		entries:    &fakeEntries{},
		images:     &fakeImages{},
		system:     &fakeSystem{},
		auth:       &fakeAuth{valid: adminToken},
		recorder:   &fakeRecorder{},
	}
	f.d = NewDispatcher(logging.Nop(), f.recorder, Services{
		Categories: f.categories,
		Entries:    f.entries,
		Images:     f.images,
		System:     f.system,
		Auth:       f.auth,
	})
	return f
}
