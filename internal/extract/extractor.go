package extract

import (
	"log/slog"
	"strings"

	"dealsift/internal/config"
	"dealsift/internal/types"
)

// Per-field confidence weights. Title and price are the strongest signals
// that a container really is a listing; the rest corroborate. The weights
// sum to 100.
const (
	weightTitle      = 25
	weightPrice      = 25
	weightMonthly    = 15
	weightMultiple   = 10
	weightURL        = 10
	weightIdentifier = 10
	weightCategory   = 5
)

// Extractor infers listing fields from a container using ordered strategy
// cascades. It is a pure function of container content: no I/O, no shared
// state, and a field miss is never an error.
type Extractor struct {
	cfg    *config.ExtractorConfig
	logger *slog.Logger
}

// New creates an Extractor.
func New(cfg *config.ExtractorConfig, logger *slog.Logger) *Extractor {
	return &Extractor{
		cfg:    cfg,
		logger: logger.With("component", "extractor"),
	}
}

// Extract runs every field cascade against the container and returns the
// assembled listing with its aggregate confidence score. The caller decides
// acceptance by comparing Confidence against the configured threshold.
func (e *Extractor) Extract(c *types.Container, pageURL string) *types.Listing {
	listing := types.NewListing(pageURL)
	text := c.Text()

	anchor, anchorURL := e.qualifyingAnchor(c, pageURL)

	if anchorURL != "" {
		listing.SetString(&listing.URL, "url", anchorURL, "url:anchor")
		listing.Confidence += weightURL
	}

	id, source := e.identifier(c, anchor)
	listing.Identifier = id
	listing.Provenance["identifier"] = source
	if !listing.Synthetic() {
		listing.Confidence += weightIdentifier
	}

	if title, src := e.title(c, anchor, text); title != "" {
		listing.SetString(&listing.Title, "title", title, src)
		listing.Confidence += weightTitle
	}

	if price, src, ok := e.price(text); ok {
		listing.SetNumber(&listing.Price, "price", price, src)
		listing.Confidence += weightPrice
	}

	if monthly, src, ok := e.monthlyRecurring(text); ok {
		listing.SetNumber(&listing.MonthlyRecurring, "monthly_recurring", monthly, src)
		listing.Confidence += weightMonthly
	}

	if multiple, src, ok := e.multiple(text, listing.Price, listing.MonthlyRecurring); ok {
		listing.SetNumber(&listing.Multiple, "multiple", multiple, src)
		listing.Confidence += weightMultiple
	}

	if category, src := e.category(text); category != "" {
		listing.SetString(&listing.Category, "category", category, src)
		listing.Confidence += weightCategory
	}

	listing.Badges = e.badges(text)

	return listing
}

// Accepted reports whether a listing's confidence clears the threshold that
// separates real listings from false-positive containers.
func (e *Extractor) Accepted(l *types.Listing) bool {
	return l.Confidence >= e.cfg.MinConfidence
}

// category returns the first configured category label present in the text.
func (e *Extractor) category(text string) (string, string) {
	lower := strings.ToLower(text)
	for _, cat := range e.cfg.Categories {
		if containsWord(lower, strings.ToLower(cat)) {
			return cat, "category:keyword"
		}
	}
	return "", ""
}

// badges returns every configured badge label present in the text.
func (e *Extractor) badges(text string) []string {
	lower := strings.ToLower(text)
	var badges []string
	for _, badge := range e.cfg.Badges {
		if containsWord(lower, strings.ToLower(badge)) {
			badges = append(badges, badge)
		}
	}
	return badges
}

// containsWord reports whether needle occurs in haystack on word boundaries,
// so "App" does not fire on "Apple" or "Happy".
func containsWord(haystack, needle string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], needle)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(needle)
		beforeOK := start == 0 || !isWordChar(haystack[start-1])
		afterOK := end == len(haystack) || !isWordChar(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
