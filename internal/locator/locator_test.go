package locator

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"dealsift/internal/config"
	"dealsift/internal/types"
)

func testLocator(mutate func(*config.LocatorConfig)) *Locator {
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(&cfg.Locator)
	}
	return New(&cfg.Locator, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func docFrom(t *testing.T, body string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body>" + body + "</body></html>"))
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}
	return doc
}

// card renders a structurally marked listing card.
func card(id int) string {
	return fmt.Sprintf(`<div id="listing-%d">
		<h3>Listing number %d with a descriptive headline</h3>
		<a href="/%d">View Listing</a>
		<div class="price">$%d,000</div>
	</div>`, id, id, id, 10+id)
}

// unmarkedCard renders a card without any structural id marker, so only the
// currency fallback can find it.
func unmarkedCard(n int) string {
	return fmt.Sprintf(`<div class="result">
		<span class="name">Unmarked business number %d with a longer title</span>
		<span class="amount">$%d,500</span>
	</div>`, n, 20+n)
}

func TestLocateNilDocument(t *testing.T) {
	l := testLocator(nil)
	if _, _, err := l.Locate(nil); err != types.ErrNilDocument {
		t.Errorf("err = %v, want ErrNilDocument", err)
	}
}

func TestLocateStructuralIDPrefix(t *testing.T) {
	l := testLocator(nil)
	doc := docFrom(t, card(1183001)+card(1183002)+card(1183003))

	containers, strategy, err := l.Locate(doc)
	if err != nil {
		t.Fatal(err)
	}
	if strategy != StrategyStructural {
		t.Errorf("strategy = %q, want structural", strategy)
	}
	if len(containers) != 3 {
		t.Fatalf("containers = %d, want 3", len(containers))
	}
	for _, c := range containers {
		if id, ok := c.Selection().Attr("id"); !ok || !strings.HasPrefix(id, "listing-") {
			t.Errorf("container id = %q, expected a listing- element", id)
		}
	}
}

func TestLocateStructuralDataAttribute(t *testing.T) {
	l := testLocator(nil)
	doc := docFrom(t, `
		<section data-listing-id="1183001"><p>First card body text here</p></section>
		<section data-listing-id="1183002"><p>Second card body text here</p></section>`)

	containers, _, err := l.Locate(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(containers) != 2 {
		t.Fatalf("containers = %d, want 2", len(containers))
	}
}

func TestLocateXPathSelector(t *testing.T) {
	l := testLocator(func(cfg *config.LocatorConfig) {
		cfg.Selectors = nil // force the XPath tier
	})
	doc := docFrom(t, card(1183001)+card(1183002))

	containers, _, err := l.Locate(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(containers) != 2 {
		t.Fatalf("containers = %d, want 2", len(containers))
	}
}

func TestLocateFallbackCurrencyWalk(t *testing.T) {
	l := testLocator(nil)
	doc := docFrom(t, unmarkedCard(1)+unmarkedCard(2)+unmarkedCard(3))

	containers, strategy, err := l.Locate(doc)
	if err != nil {
		t.Fatal(err)
	}
	if strategy != StrategyFallback {
		t.Errorf("strategy = %q, want fallback", strategy)
	}
	if len(containers) != 3 {
		t.Fatalf("containers = %d, want 3", len(containers))
	}
}

func TestLocateFallbackDeduplicatesByCard(t *testing.T) {
	l := testLocator(nil)
	// Two price labels inside one card must yield one container.
	doc := docFrom(t, `<div class="result">
		<span class="name">Business with asking price and monthly revenue shown</span>
		<span class="amount">$45,000</span>
		<span class="mrr">$1,500/mo</span>
	</div>`)

	containers, _, err := l.Locate(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(containers) != 1 {
		t.Fatalf("containers = %d, want 1", len(containers))
	}
}

func TestLocateFallbackCapped(t *testing.T) {
	l := testLocator(nil)

	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString(unmarkedCard(i))
	}
	doc := docFrom(t, b.String())

	containers, _, err := l.Locate(doc)
	if err != nil {
		t.Fatal(err)
	}
	if max := config.DefaultConfig().Locator.MaxContainers; len(containers) > max {
		t.Fatalf("containers = %d, want at most %d", len(containers), max)
	}
}

func TestLocateStructuralCapped(t *testing.T) {
	l := testLocator(func(cfg *config.LocatorConfig) {
		cfg.MaxContainers = 5
	})

	var b strings.Builder
	for i := 0; i < 15; i++ {
		b.WriteString(card(1183000 + i))
	}
	doc := docFrom(t, b.String())

	containers, _, err := l.Locate(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(containers) != 5 {
		t.Fatalf("containers = %d, want 5", len(containers))
	}
}

func TestLocateImplausibleSelectorFallsThrough(t *testing.T) {
	l := testLocator(nil)

	// Far more hits than any real result page carries: the structural tier
	// must reject the selector instead of flooding extraction.
	var b strings.Builder
	for i := 0; i < 150; i++ {
		fmt.Fprintf(&b, `<i data-listing-id="%d">tick</i>`, i)
	}
	doc := docFrom(t, b.String())

	containers, _, err := l.Locate(doc)
	if err != nil {
		t.Fatal(err)
	}
	// No currency content either, so the fallback finds nothing.
	if len(containers) != 0 {
		t.Fatalf("containers = %d, want 0", len(containers))
	}
}

func TestLocateEmptyPage(t *testing.T) {
	l := testLocator(nil)
	doc := docFrom(t, `<p>No results found for this search.</p>`)

	containers, _, err := l.Locate(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(containers) != 0 {
		t.Fatalf("containers = %d, want 0", len(containers))
	}
}

func TestAscendIgnoresLonePriceLabels(t *testing.T) {
	l := testLocator(nil)

	// A stray price with no card-like ancestor: every parent is a bare
	// single-child wrapper, so the walk must give up at the page level.
	doc := docFrom(t, `<div><div><span>$45,000</span></div></div>`)

	containers, _, err := l.Locate(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(containers) != 0 {
		t.Fatalf("containers = %d, want 0", len(containers))
	}
}

func BenchmarkLocateStructural(b *testing.B) {
	cfg := config.DefaultConfig()
	l := New(&cfg.Locator, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i := 0; i < 25; i++ {
		sb.WriteString(card(1183000 + i))
	}
	sb.WriteString("</body></html>")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sb.String()))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := l.Locate(doc); err != nil {
			b.Fatal(err)
		}
	}
}
