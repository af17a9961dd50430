package adapters

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/cache"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/monitoring"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/resilience"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/types"
)

// DefaultNewsFeeds are polled when a headline request carries no query.
var DefaultNewsFeeds = []string{
	"https://www.supplychainbrain.com/rss/articles",
	"https://www.freightwaves.com/news/feed",
	"https://feeds.feedburner.com/SupplyChainDive",
	"https://www.inboundlogistics.com/feed/",
	"https://www.logisticsmgmt.com/rss.xml",
	"https://www.scmr.com/rss.xml",
	"https://www.dcvelocity.com/rss.xml",
	"https://www.mhlnews.com/rss.xml",
	"https://www.manufacturing.net/rss.xml",
	"https://www.industryweek.com/rss.xml",
}

const (
	googleNewsSearch = "https://news.google.com/rss/search?hl=en-US&gl=US&ceid=US:en&q="

	newsWindow        = 7 * 24 * time.Hour
	minTitleLength    = 20
	maxCollected      = 20
	maxPerSource      = 3
	MaxHeadlines      = 10
	feedTimeout       = 10 * time.Second
	feedBodyLimit     = 4 << 20
	newsFetchParallel = 4
)

// NewsSource fetches recent supply chain headlines from RSS feeds.
type NewsSource struct {
	feeds      []string
	searchBase string
	pool       *resilience.ConnectionPool
	cache      *cache.Cache[[]types.Headline]
	logger     *monitoring.Logger
	now        func() time.Time
}

// NewNewsSource creates a news source. Empty feeds use DefaultNewsFeeds; a nil cache disables caching.
func NewNewsSource(feeds []string, pool *resilience.ConnectionPool, c *cache.Cache[[]types.Headline], logger *monitoring.Logger) *NewsSource {
	if len(feeds) == 0 {
		feeds = DefaultNewsFeeds
	}
	if pool == nil {
		pool = NewPool("news", 8)
	}
	if logger == nil {
		logger = monitoring.NewLogger("info")
	}
	return &NewsSource{
		feeds:      feeds,
		searchBase: googleNewsSearch,
		pool:       pool,
		cache:      c,
		logger:     logger,
		now:        time.Now,
	}
}

// FetchHeadlines returns up to MaxHeadlines recent items. An empty query polls the default feeds;
// otherwise the query is searched on Google News. Failures yield an empty list.
func (n *NewsSource) FetchHeadlines(ctx context.Context, query string) []types.Headline {
	key := strings.ToLower(strings.TrimSpace(query))
	if n.cache != nil {
		if items, ok := n.cache.Get(key); ok {
			return items
		}
	}
	return n.Refresh(ctx, query)
}

// Refresh fetches headlines for query, bypassing and then updating the cache.
func (n *NewsSource) Refresh(ctx context.Context, query string) []types.Headline {
	feeds := n.feeds
	if q := strings.TrimSpace(query); q != "" {
		feeds = []string{n.searchBase + url.QueryEscape(q)}
	}

	perFeed := make([][]types.Headline, len(feeds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(newsFetchParallel)
	for i, feedURL := range feeds {
		g.Go(func() error {
			perFeed[i] = n.fetchFeed(gctx, feedURL)
			return nil
		})
	}
	_ = g.Wait()

	var collected []types.Headline
	for _, items := range perFeed {
		for _, item := range items {
			if len(collected) >= maxCollected {
				break
			}
			collected = append(collected, item)
		}
	}

	headlines := diversify(dedupHeadlines(collected), maxPerSource, MaxHeadlines)
	if n.cache != nil && len(headlines) > 0 {
		n.cache.Set(strings.ToLower(strings.TrimSpace(query)), headlines)
	}
	return headlines
}

// fetchFeed returns the recent items of one feed; a failed feed contributes nothing.
func (n *NewsSource) fetchFeed(ctx context.Context, feedURL string) []types.Headline {
	ctx, cancel := context.WithTimeout(ctx, feedTimeout)
	defer cancel()

	start := time.Now()
	status, body, err := getBody(ctx, n.pool, feedURL, map[string]string{"User-Agent": browserUserAgent}, feedBodyLimit)
	ok := err == nil && status == http.StatusOK
	n.logger.ExternalAPILogger("news", http.MethodGet, feedURL, status, time.Since(start), ok)
	if !ok {
		return nil
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("failed to parse feed", "feed", feedURL, "error", err)
		return nil
	}

	cutoff := n.now().Add(-newsWindow)
	var out []types.Headline
	for _, item := range feed.Items {
		title := strings.TrimSpace(item.Title)
		if len(title) <= minTitleLength {
			continue
		}
		published := item.PublishedParsed
		if published == nil {
			published = item.UpdatedParsed
		}
		if published == nil || published.Before(cutoff) {
			continue
		}
		link := strings.TrimSpace(item.Link)
		if link == "" {
			link = feedURL
		}
		out = append(out, types.Headline{
			Title:       title,
			URL:         link,
			Source:      hostname(link, feedURL),
			PublishedAt: published.UTC(),
		})
	}
	return out
}

func hostname(link, fallback string) string {
	for _, raw := range []string{link, fallback} {
		if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
			return u.Hostname()
		}
	}
	return "unknown"
}

func sourceKey(h types.Headline) string {
	if h.Source == "" {
		return "unknown"
	}
	return strings.ToLower(h.Source)
}

// dedupHeadlines drops repeated (title, source) pairs so one story from different outlets survives.
func dedupHeadlines(items []types.Headline) []types.Headline {
	seen := make(map[string]struct{}, len(items))
	out := make([]types.Headline, 0, len(items))
	for _, h := range items {
		key := strings.ToLower(strings.TrimSpace(h.Title)) + "\x00" + sourceKey(h)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, h)
	}
	return out
}

// diversify rotates through sources taking at most perSource items from each. When every remaining
// source is at its cap, one overflow pass fills what it can before stopping.
func diversify(items []types.Headline, perSource, limit int) []types.Headline {
	var order []string
	buckets := make(map[string][]types.Headline)
	for _, h := range items {
		key := sourceKey(h)
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], h)
	}

	out := make([]types.Headline, 0, min(limit, len(items)))
	taken := make(map[string]int)
	for len(out) < limit {
		picked := false
		for _, src := range order {
			if len(out) >= limit {
				break
			}
			if len(buckets[src]) == 0 || taken[src] >= perSource {
				continue
			}
			out = append(out, buckets[src][0])
			buckets[src] = buckets[src][1:]
			taken[src]++
			picked = true
		}
		if picked {
			continue
		}
		for _, src := range order {
			if len(out) >= limit {
				break
			}
			if len(buckets[src]) > 0 {
				out = append(out, buckets[src][0])
				buckets[src] = buckets[src][1:]
			}
		}
		break
	}
	return out
}
