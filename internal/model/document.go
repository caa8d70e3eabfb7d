package model

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// DocumentID identifies one registrar bulletin by publication year and file stem
type DocumentID struct {
	Year int    `json:"year" bson:"year"`
	Stem string `json:"stem" bson:"stem"` // e.g. "18_Sep30"
}

// String renders the id as "<year>/<stem>", the form used by skip lists
func (d DocumentID) String() string {
	return fmt.Sprintf("%d/%s", d.Year, d.Stem)
}

// CacheKey returns the relative cache path holding the document text
func (d DocumentID) CacheKey() string {
	return path.Join("gazette", strconv.Itoa(d.Year), d.Stem+".txt")
}

// ParseDocumentID parses "<year>/<stem>"
func ParseDocumentID(s string) (DocumentID, error) {
	year, stem, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || stem == "" || strings.Contains(stem, "/") {
		return DocumentID{}, fmt.Errorf("invalid document id %q: want <year>/<stem>", s)
	}

	y, err := strconv.Atoi(year)
	if err != nil {
		return DocumentID{}, fmt.Errorf("invalid document id %q: %w", s, err)
	}

	return DocumentID{Year: y, Stem: stem}, nil
}

// YearIndexKey returns the relative cache path of a year's index page
func YearIndexKey(year int) string {
	return path.Join("gazette", strconv.Itoa(year)+".html")
}
