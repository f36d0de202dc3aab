package models

import "time"

// AttachState mirrors the is_attached column of uploaded_images.
type AttachState string

const (
	Attached   AttachState = "attached"
	Unattached AttachState = "unattached"
)

// Image describes an uploaded file. The binary lives in blob storage under
// FilePath; the row is the source of truth for its attachment state.
type Image struct {
	ID         int64
	FileName   string
	FilePath   string
	State      AttachState
	UploadedAt time.Time
}

func (i Image) IsAttached() bool {
	return i.State == Attached
}
