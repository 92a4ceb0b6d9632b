package types

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Container is a DOM subtree believed to hold exactly one listing. It is
// created per page scan and discarded after extraction; nothing mutates it.
type Container struct {
	sel  *goquery.Selection
	text string
}

// NewContainer wraps a goquery selection. The full text content is captured
// eagerly so repeated extraction passes over the same container are stable.
func NewContainer(sel *goquery.Selection) *Container {
	return &Container{
		sel:  sel,
		text: strings.TrimSpace(sel.Text()),
	}
}

// Selection returns the underlying goquery selection for structural queries.
func (c *Container) Selection() *goquery.Selection {
	return c.sel
}

// Text returns the container's full trimmed text content.
func (c *Container) Text() string {
	return c.text
}

// Node returns the root HTML node, used for identity-based deduplication.
func (c *Container) Node() *html.Node {
	if c.sel == nil || len(c.sel.Nodes) == 0 {
		return nil
	}
	return c.sel.Nodes[0]
}

// Anchor is a descendant <a> element of a container.
type Anchor struct {
	Href string
	Text string
}

// Anchors returns all descendant anchors with a non-empty href.
func (c *Container) Anchors() []Anchor {
	var anchors []Anchor
	c.sel.Find("a[href]").Each(func(i int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		anchors = append(anchors, Anchor{
			Href: strings.TrimSpace(href),
			Text: strings.TrimSpace(a.Text()),
		})
	})
	return anchors
}
