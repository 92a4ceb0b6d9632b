package types

import (
	"testing"
)

func TestSetStringIgnoresEmpty(t *testing.T) {
	l := NewListing("https://example.com/search")

	l.SetString(&l.Title, "title", "   ", "title:heading")
	if l.Title != nil {
		t.Errorf("title = %q, blank values must stay absent", *l.Title)
	}
	if _, ok := l.Provenance["title"]; ok {
		t.Error("provenance recorded for an absent field")
	}

	l.SetString(&l.Title, "title", "  A Real Title  ", "title:heading")
	if l.Title == nil || *l.Title != "A Real Title" {
		t.Errorf("title = %v, want trimmed value", l.Title)
	}
	if l.Provenance["title"] != "title:heading" {
		t.Errorf("provenance = %q", l.Provenance["title"])
	}
}

func TestSynthetic(t *testing.T) {
	l := NewListing("")
	l.Identifier = "1183002"
	if l.Synthetic() {
		t.Error("numeric identifier flagged synthetic")
	}
	l.Identifier = SyntheticIDPrefix + "123-abcd"
	if !l.Synthetic() {
		t.Error("prefixed identifier not flagged synthetic")
	}
}

func TestToDocumentOmitsAbsentFields(t *testing.T) {
	l := NewListing("https://example.com/search")
	l.Identifier = "1183002"
	l.SetNumber(&l.Price, "price", 45000, "price:plain")

	doc := l.ToDocument()
	if doc["price"] != 45000.0 {
		t.Errorf("price = %v", doc["price"])
	}
	for _, absent := range []string{"title", "url", "monthly_recurring", "multiple", "category", "badges"} {
		if _, ok := doc[absent]; ok {
			t.Errorf("absent field %q present in document", absent)
		}
	}
	if doc["synthetic"] != false {
		t.Error("synthetic flag missing")
	}
}
