package sources

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"briefcast/internal/config"
	"briefcast/internal/logging"
)

const (
	feedUserAgent   = "briefcast/1.0"
	maxFeedBodySize = 4 << 20
)

// RSSCollector fetches configured RSS/Atom feeds. A dead feed is skipped and
// logged; the remaining feeds still contribute.
type RSSCollector struct {
	httpClient *http.Client
	maxPerFeed int
	logger     *slog.Logger
}

// NewRSSCollector builds the feed collector from collector settings.
func NewRSSCollector(cfg config.Collectors, logger *slog.Logger) *RSSCollector {
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxPerFeed := cfg.MaxItemsPerFeed
	if maxPerFeed <= 0 {
		maxPerFeed = 5
	}
	return &RSSCollector{
		httpClient: &http.Client{Timeout: timeout},
		maxPerFeed: maxPerFeed,
		logger:     logging.WithComponent(logger, "rss-collector"),
	}
}

func (c *RSSCollector) Kind() Kind {
	return KindRSS
}

func (c *RSSCollector) Collect(ctx context.Context, snap Snapshot) ([]Item, int, error) {
	var (
		items     []Item
		sourcesOK int
	)
	for _, feed := range snap.Feeds {
		entries, err := c.fetchFeed(ctx, feed.URL)
		if err != nil {
			c.logger.Warn("feed fetch failed",
				logging.String("feed", feed.Name),
				logging.String("url", feed.URL),
				logging.Error(err))
			continue
		}
		if len(entries) > c.maxPerFeed {
			entries = entries[:c.maxPerFeed]
		}
		added := 0
		for _, entry := range entries {
			if entry.Title == "" && entry.Content == "" {
				continue
			}
			items = append(items, Item{
				Kind:      KindRSS,
				Source:    feed.Name,
				Title:     entry.Title,
				URL:       entry.Link,
				Content:   entry.Content,
				Published: entry.Published,
			})
			added++
		}
		if added > 0 {
			sourcesOK++
		}
	}
	return items, sourcesOK, nil
}

func (c *RSSCollector) fetchFeed(ctx context.Context, url string) ([]feedEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", feedUserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	_, entries, err := parseFeed(body)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
