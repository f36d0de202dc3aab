// Package importer loads Netscape bookmark files into the catalog.
package importer

import (
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Bookmark is one link of a bookmark file. Folder is the innermost folder
// name and is empty for top-level links. AddedAt is zero without ADD_DATE.
type Bookmark struct {
	Name        string
	URL         string
	Description string
	Folder      string
	AddedAt     time.Time
}

// ParseNetscape parses Netscape bookmark HTML as exported by browsers.
func ParseNetscape(r io.Reader) ([]Bookmark, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var bookmarks []Bookmark

	// folder names, innermost last
	var folderStack []string
	// folder waiting to be pushed on the next DL
	var pendingFolder *string
	// bookmark a following DD describes, -1 when none
	last := -1

	var parse func(*html.Node)
	parse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "h3":
				if name := textContent(n); name != "" {
					pendingFolder = &name
				}
				last = -1
				return

			case "a":
				href := strings.TrimSpace(attr(n, "href"))
				if href == "" {
					return
				}

				b := Bookmark{Name: textContent(n), URL: href}
				if b.Name == "" {
					b.Name = href
				}
				if len(folderStack) > 0 {
					b.Folder = folderStack[len(folderStack)-1]
				}
				if ts, err := strconv.ParseInt(attr(n, "add_date"), 10, 64); err == nil && ts > 0 {
					b.AddedAt = time.Unix(ts, 0).UTC()
				}

				bookmarks = append(bookmarks, b)
				last = len(bookmarks) - 1
				return

			case "dd":
				if last >= 0 && bookmarks[last].Description == "" {
					bookmarks[last].Description = ownText(n)
				}
				last = -1

			case "dl":
				pushed := false
				if pendingFolder != nil {
					folderStack = append(folderStack, *pendingFolder)
					pendingFolder = nil
					pushed = true
				}

				for c := n.FirstChild; c != nil; c = c.NextSibling {
					parse(c)
				}

				if pushed {
					folderStack = folderStack[:len(folderStack)-1]
				}
				last = -1
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parse(c)
		}
	}

	parse(doc)
	return bookmarks, nil
}

// textContent returns all text below n, trimmed.
func textContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// ownText returns the direct text children of n. A folder's DD may wrap the
// folder's DL, which must not leak into the description.
func ownText(n *html.Node) string {
	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			text.WriteString(c.Data)
		}
	}
	return strings.Join(strings.Fields(text.String()), " ")
}

// attr returns the value of an attribute. The parser lowercases keys.
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
