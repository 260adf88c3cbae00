package scraper

import (
	"github.com/PuerkitoBio/goquery"
)

// GenericStrategy probes a ranked list of common pricing-page markup
// patterns and returns the first that yields plans. It is the fallback for
// products without a registered site-specific strategy and the safety net
// when a site's markup drifts.
type GenericStrategy struct {
	probes []*cardStrategy
}

// NewGenericStrategy creates the fallback strategy.
func NewGenericStrategy() *GenericStrategy {
	return &GenericStrategy{
		probes: []*cardStrategy{
			{
				cardSel:     `[data-testid*="pricing"], [data-qa*="pricing"]`,
				nameSel:     "h2, h3",
				priceSel:    `[data-testid*="price"], [data-qa*="price"], .price`,
				featureSel:  "li",
				billing:     "monthly",
				defCurrency: "USD",
			},
			{
				cardSel:     ".pricing-card, .price-card, .plan-card",
				nameSel:     "h2, h3, .plan-name, .title",
				priceSel:    `.price, .cost, [class*="price"]`,
				featureSel:  "li, .feature",
				billing:     "monthly",
				defCurrency: "USD",
			},
			{
				cardSel:     `[class*="pricing"] [class*="tier"], [class*="pricing"] [class*="plan"]`,
				nameSel:     "h2, h3, h4",
				priceSel:    `[class*="price"], [class*="amount"]`,
				featureSel:  "li",
				billing:     "monthly",
				defCurrency: "USD",
			},
		},
	}
}

func (g *GenericStrategy) Name() string { return "generic" }

func (g *GenericStrategy) Parse(doc *goquery.Document) ([]PlanQuote, error) {
	for _, probe := range g.probes {
		quotes, err := probe.Parse(doc)
		if err != nil {
			return nil, err
		}
		if len(quotes) > 0 {
			return quotes, nil
		}
	}
	return nil, nil
}
