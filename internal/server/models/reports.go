package models

// ScanReport is the result of a system scan. Image counts exclude the placeholder.
type ScanReport struct {
	TotalImages      int64 `json:"totalImages"`
	AttachedImages   int64 `json:"attachedImages"`
	UnattachedImages int64 `json:"unattachedImages"`
	TotalEntries     int64 `json:"totalEntries"`
	TotalCategories  int64 `json:"totalCategories"`
	OrphanedEntries  int64 `json:"orphanedEntries"`
}

// FixReport counts entries repaired per dimension.
type FixReport struct {
	CategoryFixed int64 `json:"categoryFixed"`
	ImageFixed    int64 `json:"imageFixed"`
	TotalFixed    int64 `json:"totalFixed"`
}

// SweepReport summarizes a best-effort bulk pass over images.
type SweepReport struct {
	Total  int      `json:"total"`
	Errors []string `json:"errors"`
}

// DashboardStats feeds the admin dashboard.
type DashboardStats struct {
	TotalSites      int64 `json:"totalSites"`
	NewSites        int64 `json:"newSites"`
	TotalCategories int64 `json:"totalCategories"`
}

// ImageStats summarizes uploaded images and parked temp files.
type ImageStats struct {
	Total      int64 `json:"total"`
	Attached   int64 `json:"attached"`
	Unattached int64 `json:"unattached"`
	TempFiles  int   `json:"tempFiles"`
}

// ImageCounts is the raw aggregate the image repository returns.
type ImageCounts struct {
	Total      int64
	Attached   int64
	Unattached int64
}
