package scraper

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/PuerkitoBio/goquery"
	pw "github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog/log"

	"github.com/planwatch/planwatch_api/internal/config"
	"github.com/planwatch/planwatch_api/internal/models"
)

// Extractor produces plan quotes for a product, or a typed failure the
// scheduler can act on. Implementations are stateless per call.
type Extractor interface {
	Extract(ctx context.Context, product *models.Product) ([]PlanQuote, error)
}

// BrowserExtractor drives a headless Chromium session per extraction. The
// playwright runtime is started once at construction; every Extract call
// gets an isolated browser and context that are torn down on all exit paths.
type BrowserExtractor struct {
	runtime  *pw.Playwright
	registry *Registry
	cfg      config.ScraperConfig
}

// NewBrowserExtractor starts the playwright runtime and returns an extractor
// backed by it. Callers own the returned extractor and must Close it.
func NewBrowserExtractor(cfg config.ScraperConfig, registry *Registry) (*BrowserExtractor, error) {
	runtime, err := pw.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	return &BrowserExtractor{
		runtime:  runtime,
		registry: registry,
		cfg:      cfg,
	}, nil
}

// Close stops the playwright runtime.
func (e *BrowserExtractor) Close() error {
	return e.runtime.Stop()
}

// blockedResourceTypes are aborted during navigation to cut latency and
// footprint; pricing data never lives in them.
var blockedResourceTypes = map[string]bool{
	"image":      true,
	"stylesheet": true,
	"font":       true,
	"media":      true,
}

// challengeMarkers identify anti-bot interstitials in served content.
var challengeMarkers = []string{
	"captcha",
	"access denied",
	"verify you are a human",
	"cf-challenge",
	"just a moment",
}

// Extract loads the product's pricing page and runs its extraction strategy
// against the rendered DOM. Failures are returned as *ExtractionError.
func (e *BrowserExtractor) Extract(ctx context.Context, product *models.Product) ([]PlanQuote, error) {
	launchOpts := pw.BrowserTypeLaunchOptions{
		Headless: pw.Bool(e.cfg.Headless),
	}
	if e.cfg.ExecutablePath != "" {
		launchOpts.ExecutablePath = pw.String(e.cfg.ExecutablePath)
	}
	if proxy := e.randomProxy(); proxy != "" {
		launchOpts.Proxy = &pw.Proxy{Server: proxy}
	}

	browser, err := e.runtime.Chromium.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer browser.Close()

	browserCtx, err := browser.NewContext(pw.BrowserNewContextOptions{
		UserAgent:  pw.String(e.randomUserAgent()),
		Viewport:   &pw.Size{Width: 1920, Height: 1080},
		Locale:     pw.String("en-US"),
		TimezoneId: pw.String("America/New_York"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	defer browserCtx.Close()

	if err := browserCtx.Route("**/*", func(route pw.Route) {
		if blockedResourceTypes[route.Request().ResourceType()] {
			_ = route.Abort()
			return
		}
		_ = route.Continue()
	}); err != nil {
		return nil, fmt.Errorf("failed to install route filter: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	resp, err := page.Goto(product.SourceURL, pw.PageGotoOptions{
		WaitUntil: pw.WaitUntilStateNetworkidle,
		Timeout:   pw.Float(float64(e.cfg.NavTimeout.Milliseconds())),
	})
	if err != nil {
		return nil, newError(KindNavigationTimeout, product.SourceURL, err)
	}
	if resp != nil {
		switch resp.Status() {
		case 403, 429, 503:
			return nil, newError(KindBlocked, product.SourceURL,
				fmt.Errorf("status %d", resp.Status()))
		}
	}

	html, err := page.Content()
	if err != nil {
		return nil, newError(KindNavigationTimeout, product.SourceURL, err)
	}
	if marker := findChallengeMarker(html); marker != "" {
		return nil, newError(KindBlocked, product.SourceURL,
			fmt.Errorf("challenge marker %q", marker))
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, newError(KindNoPricingMarkup, product.SourceURL, err)
	}

	strategy := e.registry.For(product.Slug)
	quotes, err := strategy.Parse(doc)
	if err != nil {
		return nil, newError(KindNoPricingMarkup, product.SourceURL, err)
	}
	if len(quotes) == 0 {
		return nil, newError(KindNoPricingMarkup, product.SourceURL, nil)
	}

	log.Debug().
		Str("product", product.Slug).
		Str("strategy", strategy.Name()).
		Int("plans", len(quotes)).
		Msg("Extraction succeeded")

	return quotes, nil
}

func (e *BrowserExtractor) randomUserAgent() string {
	return e.cfg.UserAgents[rand.Intn(len(e.cfg.UserAgents))]
}

func (e *BrowserExtractor) randomProxy() string {
	if len(e.cfg.ProxyURLs) == 0 {
		return ""
	}
	return e.cfg.ProxyURLs[rand.Intn(len(e.cfg.ProxyURLs))]
}

func findChallengeMarker(html string) string {
	lower := strings.ToLower(html)
	for _, marker := range challengeMarkers {
		if strings.Contains(lower, marker) {
			return marker
		}
	}
	return ""
}
