package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// registrarLink matches links to a registrar bulletin's text rendition and
// captures the document stem, e.g. "text/18_Sep30_Registrar.cfm".
var registrarLink = regexp.MustCompile(`text/(\d+_\w+\d+)_Registrar\.cfm`)

// ParseIndex returns the document stems linked from a year index page in
// page order, without duplicates.
func ParseIndex(page string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}

	var stems []string
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if m := registrarLink.FindStringSubmatch(attr(n, "href")); m != nil && !seen[m[1]] {
				seen[m[1]] = true
				stems = append(stems, m[1])
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return stems, nil
}

// attr gets an attribute value from a node
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
