package models

import "time"

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Entry is a catalogued website. AddedAt is refreshed on every update,
// so it reads as "last touched".
type Entry struct {
	ID          int64
	Name        string
	Description string
	URL         string
	CategoryID  int64
	ImageID     int64
	AddedAt     time.Time
}

func (e *Entry) DateAdded() string {
	return e.AddedAt.Format(DateLayout)
}

func (e *Entry) TimeAdded() string {
	return e.AddedAt.Format(TimeLayout)
}

// EntryListing is an entry joined with its category name and image path
// for the public listing. CategoryName is empty for orphaned entries.
type EntryListing struct {
	Entry
	CategoryName string
	ImagePath    string
}
