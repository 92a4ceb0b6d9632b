package locator

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"dealsift/internal/types"
)

// currencyPattern is the cheapest possible signal that an element belongs to
// a listing card: a dollar amount somewhere in its text.
var currencyPattern = regexp.MustCompile(`\$\s?[\d,]+`)

// fallback locates containers bottom-up: find every small element carrying a
// currency amount, then walk each one's ancestor chain until the subtree is
// rich enough to be a whole listing card. Containers are deduplicated by node
// identity, since several price labels often resolve to the same card.
func (l *Locator) fallback(doc *goquery.Document) []*types.Container {
	seen := make(map[*html.Node]struct{})
	var containers []*types.Container

	doc.Find("*").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		text := sel.Text()
		if len(text) > l.cfg.MaxPriceTextLen || !currencyPattern.MatchString(text) {
			return true
		}
		// Skip non-content tags that happen to mention dollar amounts.
		switch goquery.NodeName(sel) {
		case "html", "body", "head", "script", "style", "title":
			return true
		}

		card := l.ascendToCard(sel)
		if card == nil {
			return true
		}

		node := card.Nodes[0]
		if _, dup := seen[node]; dup {
			return true
		}
		seen[node] = struct{}{}
		containers = append(containers, types.NewContainer(card))

		// Hard cap: noisy pages can carry hundreds of price-bearing
		// elements, and everything past the cap is discarded anyway.
		return len(containers) < l.cfg.MaxContainers
	})

	return containers
}

// ascendToCard walks up from a price-bearing element, at most
// MaxAncestorDepth levels, and returns the first ancestor that has enough
// sibling structure and text to plausibly be a full listing card. Returns nil
// when no ancestor qualifies within the depth bound.
func (l *Locator) ascendToCard(sel *goquery.Selection) *goquery.Selection {
	current := sel
	for depth := 0; depth < l.cfg.MaxAncestorDepth; depth++ {
		parent := current.Parent()
		if parent.Length() == 0 {
			return nil
		}
		switch goquery.NodeName(parent) {
		case "html", "body":
			return nil
		}

		if parent.Children().Length() >= l.cfg.MinChildElements &&
			len(strings.TrimSpace(parent.Text())) >= l.cfg.MinCardTextLen {
			return parent
		}
		current = parent
	}
	return nil
}
