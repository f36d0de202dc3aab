// Package models defines server-side data models persisted in the database.
package models

import "time"

// Category groups entries. Category 1 is "Unassigned" and always exists.
type Category struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	// UpdatedAt stays nil until the first rename.
	UpdatedAt *time.Time
}
