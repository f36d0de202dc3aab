package api

import "github.com/dmitrijs2005/webcatalog/internal/server/models"

// timestampLayout is how upload times are rendered to admin clients.
const timestampLayout = "2006-01-02 15:04:05"

type categoryView struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	UpdatedAt   *string `json:"updated_at"`
	UpdatedTime *string `json:"updated_time"`
}

func newCategoryView(c models.Category) categoryView {
	v := categoryView{
		ID:   c.ID,
		Name: c.Name,
		Date: c.CreatedAt.Format(models.DateLayout),
		Time: c.CreatedAt.Format(models.TimeLayout),
	}
	if c.UpdatedAt != nil {
		d, t := c.UpdatedAt.Format(models.DateLayout), c.UpdatedAt.Format(models.TimeLayout)
		v.UpdatedAt, v.UpdatedTime = &d, &t
	}
	return v
}

type entryView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	WebName     string `json:"web_name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Category    string `json:"category"`
	Image       string `json:"image"`
	ImageID     int64  `json:"image_id"`
	DateAdded   string `json:"date_added"`
	TimeAdded   string `json:"time_added"`
	CategoryID  int64  `json:"category_id"`
}

func newEntryView(e models.EntryListing) entryView {
	return entryView{
		ID:          e.ID,
		Name:        e.Name,
		WebName:     e.Name,
		Description: e.Description,
		URL:         e.URL,
		Category:    e.CategoryName,
		Image:       e.ImagePath,
		ImageID:     e.ImageID,
		DateAdded:   e.DateAdded(),
		TimeAdded:   e.TimeAdded(),
		CategoryID:  e.CategoryID,
	}
}

type imageView struct {
	ID         int64  `json:"id"`
	Filename   string `json:"filename"`
	Filepath   string `json:"filepath"`
	IsAttached bool   `json:"isAttached"`
	UploadedAt string `json:"uploadedAt"`
}

func newImageView(i models.Image) imageView {
	return imageView{
		ID:         i.ID,
		Filename:   i.FileName,
		Filepath:   i.FilePath,
		IsAttached: i.IsAttached(),
		UploadedAt: i.UploadedAt.Format(timestampLayout),
	}
}

func mapSlice[T, V any](in []T, f func(T) V) []V {
	out := make([]V, 0, len(in))
	for _, item := range in {
		out = append(out, f(item))
	}
	return out
}

// errorsOrEmpty keeps the errors field an array in JSON.
func errorsOrEmpty(errs []string) []string {
	if errs == nil {
		return []string{}
	}
	return errs
}

