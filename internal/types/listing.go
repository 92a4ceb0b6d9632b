package types

import (
	"encoding/json"
	"strings"
	"time"
)

// SyntheticIDPrefix marks identifiers that were generated rather than parsed
// from the page. Real identifiers are numeric path/attribute segments, so a
// prefixed identifier can never collide with one.
const SyntheticIDPrefix = "synth-"

// Listing is the canonical, post-extraction record for one marketplace
// listing. All fields except Identifier are optional: a nil pointer means the
// extraction cascade for that field exhausted every strategy without a match.
type Listing struct {
	// Identifier is the deduplication key. Stable across runs when derived
	// from the page; synthetic (and prefixed) otherwise.
	Identifier string

	// Title is the listing headline, when one could be inferred.
	Title *string

	// URL is the absolute listing detail URL, when present.
	URL *string

	// Price is the asking price in dollars.
	Price *float64

	// MonthlyRecurring is the monthly recurring revenue or profit. The
	// source markup does not reliably distinguish the two; Provenance
	// records which keyword anchored the match.
	MonthlyRecurring *float64

	// Multiple is the valuation multiple (price over annualized recurring
	// value), either matched directly or derived.
	Multiple *float64

	// Category is the business category label, when recognized.
	Category *string

	// Badges are marketplace badges found on the card (Verified, Sponsored...).
	Badges []string

	// Confidence is the sum of per-field extraction weights (0..100).
	Confidence int

	// Provenance maps field name to the strategy that produced its value.
	Provenance map[string]string

	// SourcePage is the URL of the page the container was found on.
	SourcePage string

	// ScrapedAt is when the record was extracted.
	ScrapedAt time.Time
}

// NewListing creates an empty listing bound to a source page.
func NewListing(sourcePage string) *Listing {
	return &Listing{
		Provenance: make(map[string]string),
		SourcePage: sourcePage,
		ScrapedAt:  time.Now(),
	}
}

// Synthetic reports whether the identifier was generated rather than parsed.
func (l *Listing) Synthetic() bool {
	return strings.HasPrefix(l.Identifier, SyntheticIDPrefix)
}

// SetString records a string field with its provenance. Empty values are
// ignored: a field is either absent or non-empty, never "".
func (l *Listing) SetString(dst **string, name, value, source string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	*dst = &value
	l.Provenance[name] = source
}

// SetNumber records a numeric field with its provenance.
func (l *Listing) SetNumber(dst **float64, name string, value float64, source string) {
	*dst = &value
	l.Provenance[name] = source
}

// ToDocument flattens the listing into a map for document-style sinks.
func (l *Listing) ToDocument() map[string]any {
	doc := map[string]any{
		"identifier":  l.Identifier,
		"confidence":  l.Confidence,
		"synthetic":   l.Synthetic(),
		"source_page": l.SourcePage,
		"scraped_at":  l.ScrapedAt,
	}
	if l.Title != nil {
		doc["title"] = *l.Title
	}
	if l.URL != nil {
		doc["url"] = *l.URL
	}
	if l.Price != nil {
		doc["price"] = *l.Price
	}
	if l.MonthlyRecurring != nil {
		doc["monthly_recurring"] = *l.MonthlyRecurring
	}
	if l.Multiple != nil {
		doc["multiple"] = *l.Multiple
	}
	if l.Category != nil {
		doc["category"] = *l.Category
	}
	if len(l.Badges) > 0 {
		doc["badges"] = l.Badges
	}
	if len(l.Provenance) > 0 {
		doc["provenance"] = l.Provenance
	}
	return doc
}

// ToFlatMap returns string-valued fields suitable for CSV export.
func (l *Listing) ToFlatMap() map[string]string {
	flat := make(map[string]string, 12)
	for k, v := range l.ToDocument() {
		switch val := v.(type) {
		case string:
			flat[k] = val
		case time.Time:
			flat[k] = val.Format(time.RFC3339)
		default:
			b, _ := json.Marshal(val)
			flat[k] = string(b)
		}
	}
	return flat
}
