package scraper

import (
	"github.com/PuerkitoBio/goquery"
)

// cardStrategy parses pricing pages built from repeated "pricing card"
// blocks, which covers most SaaS marketing sites. Each site-specific
// strategy is just a cardStrategy with that site's selectors.
type cardStrategy struct {
	name        string
	cardSel     string
	nameSel     string
	priceSel    string
	featureSel  string
	billing     string
	defCurrency string
}

func (s *cardStrategy) Name() string { return s.name }

func (s *cardStrategy) Parse(doc *goquery.Document) ([]PlanQuote, error) {
	var quotes []PlanQuote

	doc.Find(s.cardSel).Each(func(_ int, card *goquery.Selection) {
		planName := cleanText(card.Find(s.nameSel).First().Text())
		if planName == "" {
			return
		}

		priceText := cleanText(card.Find(s.priceSel).First().Text())
		if priceText == "" {
			// Some sites put the amount directly on the card.
			priceText = cleanText(card.Text())
		}
		price, currency, ok := parsePrice(priceText)
		if !ok {
			return
		}
		if currency == "" {
			currency = s.defCurrency
		}

		quotes = append(quotes, PlanQuote{
			PlanName:     planName,
			Price:        price,
			Currency:     currency,
			BillingCycle: s.billing,
			Features:     collectFeatures(card, s.featureSel),
		})
	})

	return quotes, nil
}

// builtinStrategies returns the site-specific strategies shipped with the
// service. Selectors follow each site's current pricing-page markup and are
// expected to drift; the generic fallback picks up the slack until they are
// updated.
func builtinStrategies() []Strategy {
	return []Strategy{
		&cardStrategy{
			name:        "slack",
			cardSel:     `[data-qa="pricing_card"]`,
			nameSel:     "h3",
			priceSel:    `[data-qa="price"]`,
			featureSel:  "li",
			billing:     "monthly",
			defCurrency: "USD",
		},
		&cardStrategy{
			name:        "notion",
			cardSel:     `[data-testid="pricing-plan"]`,
			nameSel:     "h3",
			priceSel:    `[data-testid="price"]`,
			featureSel:  "li",
			billing:     "monthly",
			defCurrency: "USD",
		},
		&cardStrategy{
			name:        "figma",
			cardSel:     `[data-testid="pricing-card"]`,
			nameSel:     "h2",
			priceSel:    `[data-testid="price-amount"]`,
			featureSel:  "li",
			billing:     "monthly",
			defCurrency: "USD",
		},
		&cardStrategy{
			name:        "salesforce",
			cardSel:     ".pricing-card",
			nameSel:     "h2, h3, .plan-name",
			priceSel:    ".price, .cost",
			featureSel:  "li, .feature",
			billing:     "monthly",
			defCurrency: "USD",
		},
		&cardStrategy{
			name:        "hubspot",
			cardSel:     `[data-test-id*="pricing"], .pricing-card, .plan-card`,
			nameSel:     "h2, h3, .plan-title",
			priceSel:    ".price, .cost",
			featureSel:  "li",
			billing:     "monthly",
			defCurrency: "USD",
		},
	}
}
