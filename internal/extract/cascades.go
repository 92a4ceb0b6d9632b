package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"dealsift/internal/types"
)

var (
	// idAttrPattern matches numeric listing ids embedded in element
	// attributes like id="listing-1234567" or data-listing-id="1234567".
	idAttrPattern = regexp.MustCompile(`(?i)(?:listing|deal)[-_]?(\d{4,})`)

	// numericID matches a bare all-digits attribute value.
	numericID = regexp.MustCompile(`^\d{4,}$`)

	// hrefIDPattern matches a numeric path segment in a listing URL.
	hrefIDPattern = regexp.MustCompile(`/(\d{4,})(?:[/?#]|$)`)

	// pureDigits matches lines that are just a counter or a number.
	pureDigits = regexp.MustCompile(`^[\d,.\s]+$`)
)

const (
	minTitleLen = 10
	maxTitleLen = 200
)

// identifier resolves the dedup key for a container: structural attribute,
// then anchor href path segment, then a synthetic run-unique fallback.
func (e *Extractor) identifier(c *types.Container, anchor *types.Anchor) (string, string) {
	if id := attributeID(c.Selection()); id != "" {
		return id, "identifier:attribute"
	}

	if anchor != nil {
		if m := hrefIDPattern.FindStringSubmatch(anchor.Href); m != nil {
			return m[1], "identifier:href"
		}
	}

	// Synthetic ids are prefixed, so they can never collide with the numeric
	// ids above; uuid keeps them unique within a run even under a coarse clock.
	synthetic := fmt.Sprintf("%s%d-%s",
		types.SyntheticIDPrefix,
		time.Now().UnixNano(),
		uuid.NewString()[:8],
	)
	return synthetic, "identifier:synthetic"
}

// attributeID scans the container and its descendants for an id-bearing
// attribute.
func attributeID(sel *goquery.Selection) string {
	check := func(s *goquery.Selection) string {
		for _, attr := range []string{"data-listing-id", "data-id", "id"} {
			val, ok := s.Attr(attr)
			if !ok || val == "" {
				continue
			}
			if numericID.MatchString(val) {
				return val
			}
			if m := idAttrPattern.FindStringSubmatch(val); m != nil {
				return m[1]
			}
		}
		return ""
	}

	if id := check(sel); id != "" {
		return id
	}

	var found string
	sel.Find("[data-listing-id], [data-id], [id]").EachWithBreak(func(i int, s *goquery.Selection) bool {
		found = check(s)
		return found == ""
	})
	return found
}

// qualifyingAnchor returns the first descendant anchor that plausibly points
// at the listing detail page, distinguishing it from navigation and marketing
// links elsewhere in the card. The returned URL is absolute.
func (e *Extractor) qualifyingAnchor(c *types.Container, pageURL string) (*types.Anchor, string) {
	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}

	for _, anchor := range c.Anchors() {
		href := anchor.Href
		if strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") ||
			strings.HasPrefix(href, "mailto:") ||
			strings.HasPrefix(href, "tel:") {
			continue
		}

		parsed, err := url.Parse(href)
		if err != nil {
			continue
		}
		resolved := parsed
		if base != nil {
			resolved = base.ResolveReference(parsed)
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			continue
		}

		sameDomain := base != nil && resolved.Hostname() == base.Hostname()
		hasListingID := hrefIDPattern.MatchString(resolved.Path)
		if !sameDomain && !hasListingID {
			continue
		}

		a := anchor
		return &a, resolved.String()
	}
	return nil, ""
}

// title infers the listing headline: heading element, then the qualifying
// anchor's text, then the longest prose-like line of the container text.
func (e *Extractor) title(c *types.Container, anchor *types.Anchor, text string) (string, string) {
	var heading string
	c.Selection().Find("h1, h2, h3, h4").EachWithBreak(func(i int, s *goquery.Selection) bool {
		t := strings.TrimSpace(s.Text())
		if len(t) >= minTitleLen && len(t) <= maxTitleLen {
			heading = t
			return false
		}
		return true
	})
	if heading != "" {
		return heading, "title:heading"
	}

	if anchor != nil {
		t := anchor.Text
		if len(t) >= minTitleLen && len(t) <= maxTitleLen && !e.genericLabel(t) {
			return t, "title:anchor"
		}
	}

	// The title is usually the most prose-like line left after prices,
	// badges, and counters are excluded.
	var longest string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < minTitleLen || len(line) > maxTitleLen {
			continue
		}
		if strings.ContainsRune(line, '$') || pureDigits.MatchString(line) {
			continue
		}
		if len(line) > len(longest) {
			longest = line
		}
	}
	if longest != "" {
		return longest, "title:prose-line"
	}
	return "", ""
}

// genericLabel reports whether an anchor text is a generic call-to-action
// rather than a title.
func (e *Extractor) genericLabel(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, label := range e.cfg.GenericAnchorLabels {
		if lower == label {
			return true
		}
	}
	return false
}
