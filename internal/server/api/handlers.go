package api

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/webcatalog/internal/server/services"
)

func (d *Dispatcher) routes() map[string]action {
	return map[string]action{
		"getCategories":  {failure: "Failed to retrieve categories", run: d.getCategories},
		"createCategory": {admin: true, failure: "Failed to create category", run: d.createCategory},
		"updateCategory": {admin: true, failure: "Failed to update category", run: d.updateCategory},
		"deleteCategory": {admin: true, failure: "Failed to delete category", run: d.deleteCategory},

		"getAllWebsites":         {failure: "Failed to retrieve entries", run: d.getAllWebsites},
		"createWebsite":          {admin: true, failure: "Failed to create entry", run: d.createWebsite},
		"updateWebsite":          {admin: true, failure: "Failed to update entry", run: d.updateWebsite},
		"deleteWebsite":          {admin: true, failure: "Failed to delete entry", run: d.deleteWebsite},
		"getAdminDashboardStats": {failure: "Failed to retrieve statistics", run: d.dashboard},

		"scanSystem":             {failure: "Failed to scan system", run: d.scanSystem},
		"fixOrphanedEntries":     {admin: true, failure: "Failed to fix orphaned entries", run: d.fixOrphaned},
		"uploadImage":            {admin: true, failure: "Failed to upload image", run: d.uploadImage},
		"getUploadedImages":      {failure: "Failed to get images", run: d.getUploadedImages},
		"checkDuplicateFilename": {failure: "Failed to check filename", run: d.checkDuplicateFilename},
		"deleteUnattachedImages": {admin: true, failure: "Failed to delete unattached images", run: d.deleteUnattached},
		"moveUnattachedToTemp":   {admin: true, failure: "Failed to move unattached images", run: d.moveUnattachedToTemp},
		"cleanTempImages":        {admin: true, failure: "Failed to clean temp images", run: d.cleanTempImages},
		"getImageStats":          {failure: "Failed to get image statistics", run: d.imageStats},

		"login":  {failure: "Login failed", run: d.login},
		"verify": {failure: "Invalid session", run: d.verify},
		"logout": {failure: "Logout failed", run: d.logout},
	}
}

func (d *Dispatcher) getCategories(ctx context.Context, _ call) (*Result, error) {
	list, err := d.svc.Categories.List(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Body: mapSlice(list, newCategoryView)}, nil
}

func (d *Dispatcher) createCategory(ctx context.Context, c call) (*Result, error) {
	p, err := decodeParams[categoryCreateParams](d.validate, c.params)
	if err != nil {
		return nil, err
	}
	id, err := d.svc.Categories.Create(ctx, p.CategoryName)
	if err != nil {
		return nil, err
	}
	return ok("Category created successfully", map[string]int64{"id": id}), nil
}

func (d *Dispatcher) updateCategory(ctx context.Context, c call) (*Result, error) {
	p, err := decodeParams[categoryRenameParams](d.validate, c.params)
	if err != nil {
		return nil, err
	}
	if err := d.svc.Categories.Rename(ctx, p.OldName, p.NewName); err != nil {
		return nil, err
	}
	return ok("Category updated successfully", nil), nil
}

func (d *Dispatcher) deleteCategory(ctx context.Context, c call) (*Result, error) {
	p, err := decodeParams[categoryDeleteParams](d.validate, c.params)
	if err != nil {
		return nil, err
	}
	if err := d.svc.Categories.Delete(ctx, int64(p.CategoryID)); err != nil {
		return nil, err
	}
	return ok("Category deleted successfully", nil), nil
}

func (d *Dispatcher) getAllWebsites(ctx context.Context, _ call) (*Result, error) {
	list, err := d.svc.Entries.List(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Body: mapSlice(list, newEntryView)}, nil
}

func (p *websiteParams) input() services.EntryInput {
	return services.EntryInput{
		Name:        p.WebName,
		Description: p.Description,
		URL:         p.URL,
		CategoryID:  int64(p.CategoryID),
		ImageID:     p.ImageID.ptr(),
	}
}

func (d *Dispatcher) createWebsite(ctx context.Context, c call) (*Result, error) {
	p, err := decodeParams[websiteParams](d.validate, c.params)
	if err != nil {
		return nil, err
	}
	id, err := d.svc.Entries.Create(ctx, p.input())
	if err != nil {
		return nil, err
	}
	return ok("Entry created successfully", map[string]int64{"id": id}), nil
}

func (d *Dispatcher) updateWebsite(ctx context.Context, c call) (*Result, error) {
	p, err := decodeParams[websiteUpdateParams](d.validate, c.params)
	if err != nil {
		return nil, err
	}
	if err := d.svc.Entries.Update(ctx, int64(p.ID), p.input()); err != nil {
		return nil, err
	}
	return ok("Entry updated successfully", nil), nil
}

func (d *Dispatcher) deleteWebsite(ctx context.Context, c call) (*Result, error) {
	p, err := decodeParams[websiteDeleteParams](d.validate, c.params)
	if err != nil {
		return nil, err
	}
	if err := d.svc.Entries.Delete(ctx, int64(p.ID)); err != nil {
		return nil, err
	}
	return ok("Entry deleted successfully", nil), nil
}

func (d *Dispatcher) dashboard(ctx context.Context, _ call) (*Result, error) {
	stats, err := d.svc.System.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	return ok("Statistics retrieved successfully", stats), nil
}

func (d *Dispatcher) scanSystem(ctx context.Context, _ call) (*Result, error) {
	report, err := d.svc.System.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return ok("System scan complete", report), nil
}

func (d *Dispatcher) fixOrphaned(ctx context.Context, _ call) (*Result, error) {
	report, err := d.svc.System.FixOrphaned(ctx)
	if err != nil {
		return nil, err
	}
	if d.metrics != nil {
		d.metrics.OrphansFixed(report.CategoryFixed, report.ImageFixed)
	}
	return ok(fmt.Sprintf("Fixed %d orphaned entry/entries", report.TotalFixed), report), nil
}

func (d *Dispatcher) uploadImage(ctx context.Context, c call) (*Result, error) {
	p, err := decodeParams[uploadParams](d.validate, c.params)
	if err != nil {
		return nil, err
	}
	img, err := d.svc.Images.Upload(ctx, p.ImageBase64)
	if err != nil {
		return nil, err
	}
	return ok("Image uploaded successfully", map[string]any{
		"id":       img.ID,
		"filename": img.FileName,
		"filepath": img.FilePath,
	}), nil
}

func (d *Dispatcher) getUploadedImages(ctx context.Context, _ call) (*Result, error) {
	list, err := d.svc.Images.ListImages(ctx)
	if err != nil {
		return nil, err
	}
	return ok("Images retrieved", map[string]any{"images": mapSlice(list, newImageView)}), nil
}

func (d *Dispatcher) checkDuplicateFilename(ctx context.Context, c call) (*Result, error) {
	p, err := decodeParams[filenameParams](d.validate, c.params)
	if err != nil {
		return nil, err
	}
	exists, err := d.svc.Images.CheckDuplicateFilename(ctx, p.Filename)
	if err != nil {
		return nil, err
	}
	msg := "Filename available"
	if exists {
		msg = "Filename exists"
	}
	return ok(msg, map[string]bool{"exists": exists}), nil
}

func (d *Dispatcher) deleteUnattached(ctx context.Context, _ call) (*Result, error) {
	report, err := d.svc.Images.DeleteUnattached(ctx)
	if err != nil {
		return nil, err
	}
	if d.metrics != nil {
		d.metrics.ImagesSwept(report.Total)
	}
	return ok(fmt.Sprintf("Deleted %d unattached image(s)", report.Total), map[string]any{
		"totalDeleted": report.Total,
		"errors":       errorsOrEmpty(report.Errors),
	}), nil
}

func (d *Dispatcher) moveUnattachedToTemp(ctx context.Context, _ call) (*Result, error) {
	report, err := d.svc.Images.MoveUnattachedToTemp(ctx)
	if err != nil {
		return nil, err
	}
	return ok(fmt.Sprintf("Moved %d unattached image(s) to temp", report.Total), map[string]any{
		"totalMoved": report.Total,
		"errors":     errorsOrEmpty(report.Errors),
	}), nil
}

func (d *Dispatcher) cleanTempImages(ctx context.Context, _ call) (*Result, error) {
	report, err := d.svc.Images.CleanTempImages(ctx)
	if err != nil {
		return nil, err
	}
	return ok(fmt.Sprintf("Cleaned %d temp image(s)", report.Total), map[string]any{
		"totalCleaned": report.Total,
		"errors":       errorsOrEmpty(report.Errors),
	}), nil
}

func (d *Dispatcher) imageStats(ctx context.Context, _ call) (*Result, error) {
	stats, err := d.svc.Images.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return ok("Image statistics retrieved", stats), nil
}

func (d *Dispatcher) login(ctx context.Context, c call) (*Result, error) {
	p, err := decodeParams[loginParams](d.validate, c.params)
	if err != nil {
		return nil, err
	}
	token, err := d.svc.Auth.Login(ctx, p.Username, p.Password)
	if err != nil {
		return nil, err
	}
	res := ok("Login successful", map[string]string{"token": token})
	res.Token = token
	return res, nil
}

func (d *Dispatcher) verify(ctx context.Context, c call) (*Result, error) {
	session, err := d.svc.Auth.Verify(ctx, c.token)
	if err != nil {
		return nil, err
	}
	return ok("Session valid", map[string]string{"username": session.Username}), nil
}

func (d *Dispatcher) logout(_ context.Context, _ call) (*Result, error) {
	res := ok("Logged out successfully", nil)
	res.ClearSession = true
	return res, nil
}
