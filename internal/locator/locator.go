package locator

import (
	"log/slog"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"dealsift/internal/config"
	"dealsift/internal/types"
)

// Locator finds the DOM subtrees on a listing index page that each hold one
// listing. Structural selectors are tried first; when the markup has drifted
// and they match nothing plausible, a content-driven fallback keeps the
// pipeline producing containers.
type Locator struct {
	cfg    *config.LocatorConfig
	logger *slog.Logger
}

// New creates a Locator.
func New(cfg *config.LocatorConfig, logger *slog.Logger) *Locator {
	return &Locator{
		cfg:    cfg,
		logger: logger.With("component", "locator"),
	}
}

// Location strategies, reported by Locate for run accounting: a rising
// fallback share is the signal that the structural selectors have drifted.
const (
	StrategyStructural = "structural"
	StrategyFallback   = "fallback"
)

// Locate returns the containers found on the page, at most MaxContainers,
// and the strategy that produced them. An empty result is not an error: it
// signals an exhausted or unrecognized page, and the pagination driver
// decides what to do with that.
func (l *Locator) Locate(doc *goquery.Document) ([]*types.Container, string, error) {
	if doc == nil {
		return nil, "", types.ErrNilDocument
	}

	if containers := l.structural(doc); len(containers) > 0 {
		return containers, StrategyStructural, nil
	}

	containers := l.fallback(doc)
	l.logger.Debug("structural selectors missed, fallback used",
		"containers", len(containers),
	)
	return containers, StrategyFallback, nil
}

// structural tries each configured CSS selector, then each XPath expression,
// accepting the first whose hit count is in the plausible range.
func (l *Locator) structural(doc *goquery.Document) []*types.Container {
	for _, selector := range l.cfg.Selectors {
		sel := doc.Find(selector)
		if l.plausibleCount(sel.Length()) {
			l.logger.Debug("structural selector matched",
				"selector", selector,
				"count", sel.Length(),
			)
			return l.collect(sel)
		}
	}

	root := rootNode(doc)
	if root == nil {
		return nil
	}
	for _, expr := range l.cfg.XPathSelectors {
		nodes, err := htmlquery.QueryAll(root, expr)
		if err != nil {
			l.logger.Warn("invalid xpath selector", "selector", expr, "error", err)
			continue
		}
		if l.plausibleCount(len(nodes)) {
			l.logger.Debug("xpath selector matched",
				"selector", expr,
				"count", len(nodes),
			)
			containers := make([]*types.Container, 0, len(nodes))
			for _, node := range nodes {
				containers = append(containers, types.NewContainer(doc.FindNodes(node)))
			}
			return l.capped(containers)
		}
	}

	return nil
}

// plausibleCount rejects zero hits and absurdly large hit counts, which
// usually mean the selector matched a page-wide wrapper class.
func (l *Locator) plausibleCount(n int) bool {
	return n >= l.cfg.MinContainers && n <= l.cfg.MaxContainers*4
}

// collect wraps a multi-node selection into containers, capped.
func (l *Locator) collect(sel *goquery.Selection) []*types.Container {
	containers := make([]*types.Container, 0, sel.Length())
	sel.Each(func(i int, s *goquery.Selection) {
		containers = append(containers, types.NewContainer(s))
	})
	return l.capped(containers)
}

// capped bounds the container count to keep downstream work finite on
// pathological pages.
func (l *Locator) capped(containers []*types.Container) []*types.Container {
	if len(containers) > l.cfg.MaxContainers {
		return containers[:l.cfg.MaxContainers]
	}
	return containers
}

// rootNode returns the document's root *html.Node for XPath queries.
func rootNode(doc *goquery.Document) *html.Node {
	if len(doc.Selection.Nodes) == 0 {
		return nil
	}
	return doc.Selection.Nodes[0]
}
