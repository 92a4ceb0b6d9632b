package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// moneyPattern pairs a compiled currency regex with a provenance tag. The
// amount is always the first capture group; an optional second group carries
// the anchoring keyword.
type moneyPattern struct {
	re     *regexp.Regexp
	source string
}

// Price cascades, in the order the amounts appear on real cards: the plain
// leading dollar amount is the asking price far more often than any labelled
// variant, so it runs first.
var pricePatterns = []moneyPattern{
	{regexp.MustCompile(`\$\s?([\d,]+(?:\.\d{1,2})?)`), "price:plain"},
	{regexp.MustCompile(`(?i)USD\s*\$?\s?([\d,]+(?:\.\d{1,2})?)`), "price:usd"},
	{regexp.MustCompile(`(?i)(?:asking\s*price|asking|price)\s*[:\-]?\s*(?:USD\s*)?\$?\s?([\d,]+(?:\.\d{1,2})?)`), "price:labelled"},
}

// Recurring-value cascades. Unlabelled dollar amounts are ambiguous between
// one-time price and recurring value, so every pattern here demands a "/mo"
// suffix or a nearby keyword; the keyword is captured for provenance since
// the source pages conflate revenue and profit.
var monthlyPatterns = []moneyPattern{
	{regexp.MustCompile(`(?i)\$\s?([\d,]+(?:\.\d{1,2})?)\s*/\s*mo(?:nth)?\b`), "monthly:per-mo"},
	{regexp.MustCompile(`(?i)\b(?P<kw>revenue|profit|net|monthly)\b[^$\n]{0,40}\$\s?([\d,]+(?:\.\d{1,2})?)`), "monthly:keyword"},
	{regexp.MustCompile(`(?i)\$\s?([\d,]+(?:\.\d{1,2})?)[^$\n]{0,40}\b(?P<kw>per\s+month|monthly|revenue|profit|net)\b`), "monthly:keyword"},
}

// multiplePattern matches an explicit valuation multiple like "3.1x revenue".
var multiplePattern = regexp.MustCompile(`(?i)\b(\d{1,3}(?:\.\d{1,2})?)\s*x(?:\s+(profit|revenue))?\b`)

// price returns the single most plausible asking price in the text.
func (e *Extractor) price(text string) (float64, string, bool) {
	for _, p := range pricePatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			v, err := parseAmount(m[1])
			if err != nil {
				continue
			}
			if v > 0 && v < e.cfg.MaxPrice {
				return v, p.source, true
			}
		}
	}
	return 0, "", false
}

// monthlyRecurring returns the monthly recurring revenue/profit amount.
func (e *Extractor) monthlyRecurring(text string) (float64, string, bool) {
	for _, p := range monthlyPatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			amount, keyword := splitMoneyMatch(p.re, m)
			v, err := parseAmount(amount)
			if err != nil {
				continue
			}
			if v > 0 && v < e.cfg.MaxMonthlyRecurring {
				source := p.source
				if keyword != "" {
					source += ":" + strings.ToLower(keyword)
				}
				return v, source, true
			}
		}
	}
	return 0, "", false
}

// multiple returns the valuation multiple: a direct text match when present,
// otherwise derived from price and annualized recurring value.
func (e *Extractor) multiple(text string, price, monthly *float64) (float64, string, bool) {
	for _, m := range multiplePattern.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if v > 0 && v < e.cfg.MaxMultiple {
			source := "multiple:direct"
			if m[2] != "" {
				source += ":" + strings.ToLower(m[2])
			}
			return v, source, true
		}
	}

	if price != nil && monthly != nil && *monthly > 0 {
		derived := math.Round(*price / (*monthly * 12) * 10) / 10
		if derived > 0 && derived < e.cfg.MaxMultiple {
			return derived, "multiple:derived", true
		}
	}
	return 0, "", false
}

// splitMoneyMatch pulls the amount and the optional keyword group out of a
// submatch, regardless of group order in the pattern.
func splitMoneyMatch(re *regexp.Regexp, match []string) (amount, keyword string) {
	names := re.SubexpNames()
	for i, name := range names {
		if i == 0 || i >= len(match) {
			continue
		}
		if name == "kw" {
			keyword = match[i]
		} else if amount == "" && match[i] != "" {
			amount = match[i]
		}
	}
	return amount, keyword
}

// parseAmount converts "45,000.50" to 45000.50.
func parseAmount(raw string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
}
