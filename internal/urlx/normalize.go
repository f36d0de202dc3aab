// Package urlx normalizes the website urls stored with catalog entries.
package urlx

import (
	"regexp"
	"strings"
)

// SecurePrefix is prepended to bare host names.
const SecurePrefix = "https://"

var (
	schemeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*://`)

	// One or more dot separated labels of up to 63 alphanumerics/hyphens,
	// optionally followed by a port and a path, query or fragment.
	hostRe = regexp.MustCompile(`^(?:[A-Za-z0-9](?:[A-Za-z0-9\-]{0,61}[A-Za-z0-9])?\.)+[A-Za-z0-9](?:[A-Za-z0-9\-]{0,61}[A-Za-z0-9])?(?::[0-9]{1,5})?(?:[/?#].*)?$`)
)

// Normalize trims raw and makes sure that a bare host name carries a scheme.
// Input that already has a scheme, or that does not look like a host name,
// is returned unchanged apart from trimming.
func Normalize(raw string) string {
	u := strings.TrimSpace(raw)
	if schemeRe.MatchString(u) {
		return u
	}
	if IsHostname(u) {
		return SecurePrefix + u
	}
	return u
}

// IsHostname reports whether s looks like "label.label[:port][/path]".
func IsHostname(s string) bool {
	return hostRe.MatchString(s)
}
