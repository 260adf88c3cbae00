package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docFromHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		price    string
		currency string
		ok       bool
	}{
		{"plain dollar", "$8.75 per user / month", "8.75", "USD", true},
		{"thousands separator", "$1,250 /mo", "1250", "USD", true},
		{"euro", "€12.50 monthly", "12.50", "EUR", true},
		{"pound", "£ 9 per month", "9", "GBP", true},
		{"free copy", "Free forever", "0", "USD", true},
		{"explicit zero", "$0/month", "0", "USD", true},
		{"no price", "Contact sales", "", "", false},
		{"bare number", "12 users included", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, currency, ok := parsePrice(tt.text)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, price.Equal(decimal.RequireFromString(tt.price)), "got %s", price)
				assert.Equal(t, tt.currency, currency)
			}
		})
	}
}

const slackPricingHTML = `
<html><body>
  <div data-qa="pricing_card">
    <h3>Pro</h3>
    <div data-qa="price">$8.75</div>
    <ul><li>Unlimited history</li><li>Group huddles</li></ul>
  </div>
  <div data-qa="pricing_card">
    <h3>Business+</h3>
    <div data-qa="price">$15.00</div>
    <ul><li>SAML SSO</li></ul>
  </div>
  <div data-qa="pricing_card">
    <h3>Enterprise Grid</h3>
    <div data-qa="price">Contact sales</div>
  </div>
</body></html>`

func TestCardStrategyParsesPlans(t *testing.T) {
	registry := NewRegistry()
	strategy := registry.For("slack")
	assert.Equal(t, "slack", strategy.Name())

	quotes, err := strategy.Parse(docFromHTML(t, slackPricingHTML))
	require.NoError(t, err)

	// The contact-sales tier has no explicit price and must be skipped,
	// never emitted as zero.
	require.Len(t, quotes, 2)
	assert.Equal(t, "Pro", quotes[0].PlanName)
	assert.True(t, quotes[0].Price.Equal(decimal.RequireFromString("8.75")))
	assert.Equal(t, "USD", quotes[0].Currency)
	assert.Equal(t, []string{"Unlimited history", "Group huddles"}, quotes[0].Features)
	assert.Equal(t, "Business+", quotes[1].PlanName)
}

func TestCardStrategyFreeTier(t *testing.T) {
	html := `
<html><body>
  <div data-qa="pricing_card">
    <h3>Free</h3>
    <div data-qa="price">Free forever</div>
  </div>
</body></html>`

	quotes, err := NewRegistry().For("slack").Parse(docFromHTML(t, html))
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.True(t, quotes[0].Price.IsZero())
}

func TestRegistryFallsBackToGeneric(t *testing.T) {
	registry := NewRegistry()
	strategy := registry.For("unknown-product")
	assert.Equal(t, "generic", strategy.Name())
}

func TestGenericStrategyProbes(t *testing.T) {
	// Markup matching none of the site strategies but the class-based probe.
	html := `
<html><body>
  <div class="plan-card">
    <h3>Starter</h3>
    <span class="price">$19/mo</span>
    <ul><li>5 seats</li></ul>
  </div>
  <div class="plan-card">
    <h3>Growth</h3>
    <span class="price">$49/mo</span>
  </div>
</body></html>`

	quotes, err := NewGenericStrategy().Parse(docFromHTML(t, html))
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "Starter", quotes[0].PlanName)
	assert.True(t, quotes[1].Price.Equal(decimal.RequireFromString("49")))
}

func TestGenericStrategyNoPricingMarkup(t *testing.T) {
	html := `<html><body><article><h1>Blog post</h1><p>$5 words</p></article></body></html>`

	quotes, err := NewGenericStrategy().Parse(docFromHTML(t, html))
	require.NoError(t, err)
	assert.Empty(t, quotes)
}
