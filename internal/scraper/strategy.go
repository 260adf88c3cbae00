package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// PlanQuote is one pricing tier extracted from a loaded page. A quote is
// only emitted when a price was explicitly recognized, so a price of zero
// always means a genuine free tier, never a failed extraction.
type PlanQuote struct {
	PlanName     string
	Price        decimal.Decimal
	Currency     string
	BillingCycle string
	Features     []string
}

// Strategy locates pricing data within a rendered page's markup. Strategies
// are pure DOM parsers; navigation and session handling belong to the
// extractor.
type Strategy interface {
	Name() string
	Parse(doc *goquery.Document) ([]PlanQuote, error)
}

// Registry maps product slugs to site-specific strategies, with a generic
// fallback for products that have none registered. New sites are supported
// by registering a strategy, never by branching inside the extractor.
type Registry struct {
	strategies map[string]Strategy
	fallback   Strategy
}

// NewRegistry creates a registry pre-populated with the built-in
// site-specific strategies.
func NewRegistry() *Registry {
	r := &Registry{
		strategies: make(map[string]Strategy),
		fallback:   NewGenericStrategy(),
	}
	for _, s := range builtinStrategies() {
		r.Register(s)
	}
	return r
}

// Register adds a strategy under its name (the product slug it serves).
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// For returns the strategy registered for the slug, or the generic fallback.
func (r *Registry) For(slug string) Strategy {
	if s, ok := r.strategies[slug]; ok {
		return s
	}
	return r.fallback
}

var priceRe = regexp.MustCompile(`(?i)([$€£])\s*(\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?)`)

var currencyBySymbol = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
}

// parsePrice extracts the first currency-prefixed amount from text. It
// returns ok=false when no explicit amount is present; "free"-style copy is
// recognized as a genuine zero price.
func parsePrice(text string) (decimal.Decimal, string, bool) {
	if m := priceRe.FindStringSubmatch(text); m != nil {
		amount := strings.ReplaceAll(m[2], ",", "")
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return decimal.Zero, "", false
		}
		return d, currencyBySymbol[m[1]], true
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "free") || strings.Contains(lower, "$0") {
		return decimal.Zero, "USD", true
	}
	return decimal.Zero, "", false
}

// cleanText collapses whitespace in extracted node text.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// collectFeatures gathers the trimmed text of feature list items under sel.
func collectFeatures(sel *goquery.Selection, itemSelector string) []string {
	var features []string
	sel.Find(itemSelector).Each(func(_ int, li *goquery.Selection) {
		if text := cleanText(li.Text()); text != "" {
			features = append(features, text)
		}
	})
	return features
}
