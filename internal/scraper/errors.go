package scraper

import "fmt"

// ErrorKind classifies extraction failures so the scheduler can make
// retry decisions without string matching.
type ErrorKind string

const (
	// KindNavigationTimeout covers pages that failed to load before the
	// configured deadline, including lower-level navigation errors.
	KindNavigationTimeout ErrorKind = "navigation_timeout"
	// KindNoPricingMarkup means the page loaded but no strategy recognized
	// any pricing markup on it.
	KindNoPricingMarkup ErrorKind = "no_pricing_markup"
	// KindBlocked means the target refused the request or served an
	// anti-bot challenge instead of the pricing page.
	KindBlocked ErrorKind = "blocked"
)

// ExtractionError is the typed failure returned by the extractor. All kinds
// are retryable within a cycle; exhausted retries defer the product to the
// next cycle's staleness check.
type ExtractionError struct {
	Kind ErrorKind
	URL  string
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed (%s) for %s: %v", e.Kind, e.URL, e.Err)
	}
	return fmt.Sprintf("extraction failed (%s) for %s", e.Kind, e.URL)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure can be retried within the cycle.
// Every extraction failure currently is; the method exists so the scheduler
// does not hard-code that assumption.
func (e *ExtractionError) Retryable() bool {
	return true
}

func newError(kind ErrorKind, url string, err error) *ExtractionError {
	return &ExtractionError{Kind: kind, URL: url, Err: err}
}
