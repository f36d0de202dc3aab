package common

import "regexp"

const (
	// DefaultCategoryID is the "Unassigned" category. It is never deleted.
	DefaultCategoryID int64 = 1

	// PlaceholderImageID is the placeholder image. It is never deleted or moved.
	PlaceholderImageID int64 = 1

	// PlaceholderImagePath is shown for entries whose image does not resolve.
	PlaceholderImagePath = "IMG/placeholder-img.png"

	// ImagePrefix is the relative directory every image filepath starts with.
	ImagePrefix = "IMG/"

	// TempImagePrefix holds images parked by MoveUnattachedToTemp.
	TempImagePrefix = "IMG/temp-img/"

	// SessionCookieName carries the admin session token for browser clients.
	SessionCookieName = "admin_session"
)

var placeholderPattern = regexp.MustCompile(`(?i)(^|/)placeholder-img[^/]*$`)

// IsPlaceholder reports whether the image is the protected placeholder,
// either by id or by a filename/filepath whose base starts with
// "placeholder-img".
func IsPlaceholder(id int64, name string) bool {
	return id == PlaceholderImageID || placeholderPattern.MatchString(name)
}
