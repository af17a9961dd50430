package adapters

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/monitoring"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/resilience"
)

const (
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

	availabilityTimeout   = 10 * time.Second
	availabilityBodyLimit = 2 << 20
)

// notFoundPhrases mark a supplier search page that lists nothing.
var notFoundPhrases = []string{
	"no results found",
	"no products found",
	"product not found",
	"part not found",
	"0 results",
	"no matching products",
	"no items found",
	"search returned no results",
	"no products match your search",
	"did not return any results",
	"no search results",
	"search did not find any results",
	"your search returned 0 results",
	"no items were found",
	"no results match your search",
}

// URLResolver maps a supplier and part to the supplier's search page.
type URLResolver interface {
	URLFor(supplier, part string) string
}

// SearchPageChecker checks a supplier's search page for a part. Anything short of a clear "not
// listed" answer counts as listed so a flaky site never drops a real supplier.
type SearchPageChecker struct {
	urls    URLResolver
	pool    *resilience.ConnectionPool
	limiter *rate.Limiter
	logger  *monitoring.Logger
}

// NewSearchPageChecker creates a checker that issues at most perSecond requests per second.
func NewSearchPageChecker(urls URLResolver, perSecond float64, pool *resilience.ConnectionPool, logger *monitoring.Logger) *SearchPageChecker {
	if perSecond <= 0 {
		perSecond = 5
	}
	if pool == nil {
		pool = NewPool("supplier-search", 8)
	}
	if logger == nil {
		logger = monitoring.NewLogger("info")
	}
	return &SearchPageChecker{
		urls:    urls,
		pool:    pool,
		limiter: rate.NewLimiter(rate.Limit(perSecond), max(1, int(perSecond))),
		logger:  logger,
	}
}

// HasComponent reports whether supplier appears to list part. The manufacturer is accepted for
// callers that have one but search pages are keyed by part number alone.
func (c *SearchPageChecker) HasComponent(ctx context.Context, supplier, _, part string) bool {
	if err := c.limiter.Wait(ctx); err != nil {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, availabilityTimeout)
	defer cancel()

	target := c.urls.URLFor(supplier, part)
	start := time.Now()
	status, body, err := getBody(ctx, c.pool, target, map[string]string{"User-Agent": browserUserAgent}, availabilityBodyLimit)
	c.logger.ExternalAPILogger("supplier-search", http.MethodGet, target, status, time.Since(start), err == nil)
	if err != nil {
		c.logger.Debug("availability check failed, assuming listed", "supplier", supplier, "error", err)
		return true
	}

	if status == http.StatusNotFound {
		return false
	}
	if status < 200 || status >= 300 {
		return true
	}

	page := strings.ToLower(string(body))
	for _, phrase := range notFoundPhrases {
		if strings.Contains(page, phrase) {
			return false
		}
	}
	return true
}
