package sources

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"briefcast/internal/config"
	"briefcast/internal/logging"
)

// NewsletterCollector fetches recent posts from configured Substack
// publications. Each publication exposes an RSS feed at /feed; post pages
// are fetched individually and converted to markdown so the notebook gets
// readable text instead of raw HTML.
type NewsletterCollector struct {
	httpClient *http.Client
	converter  *md.Converter
	maxPosts   int
	logger     *slog.Logger
}

// NewNewsletterCollector builds the Substack collector from collector settings.
func NewNewsletterCollector(cfg config.Collectors, logger *slog.Logger) *NewsletterCollector {
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxPosts := cfg.MaxPostsPerNewsletter
	if maxPosts <= 0 {
		maxPosts = 3
	}
	return &NewsletterCollector{
		httpClient: &http.Client{Timeout: timeout},
		converter:  md.NewConverter("", true, nil),
		maxPosts:   maxPosts,
		logger:     logging.WithComponent(logger, "newsletter-collector"),
	}
}

func (c *NewsletterCollector) Kind() Kind {
	return KindSubstack
}

func (c *NewsletterCollector) Collect(ctx context.Context, snap Snapshot) ([]Item, int, error) {
	var (
		items     []Item
		sourcesOK int
	)
	for _, pub := range snap.Newsletters {
		posts, err := c.fetchRecentPosts(ctx, pub)
		if err != nil {
			c.logger.Warn("newsletter fetch failed",
				logging.String("newsletter", pub.Name),
				logging.String("url", pub.URL),
				logging.Error(err))
			continue
		}
		items = append(items, posts...)
		if len(posts) > 0 {
			sourcesOK++
		}
	}
	return items, sourcesOK, nil
}

func (c *NewsletterCollector) fetchRecentPosts(ctx context.Context, pub Newsletter) ([]Item, error) {
	body, err := c.fetch(ctx, feedURL(pub.URL), "application/rss+xml, application/xml")
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	_, entries, err := parseFeed(body)
	if err != nil {
		return nil, err
	}
	if len(entries) > c.maxPosts {
		entries = entries[:c.maxPosts]
	}

	var items []Item
	for _, entry := range entries {
		content := c.fetchPostMarkdown(ctx, entry)
		if content == "" {
			continue
		}
		items = append(items, Item{
			Kind:      KindSubstack,
			Source:    pub.Name,
			Title:     entry.Title,
			URL:       entry.Link,
			Content:   content,
			Published: entry.Published,
		})
	}
	return items, nil
}

// fetchPostMarkdown fetches the full post page and converts it to markdown.
// When the page is unreachable the feed's own content is converted instead,
// so a partially blocked publication still contributes.
func (c *NewsletterCollector) fetchPostMarkdown(ctx context.Context, entry feedEntry) string {
	html := entry.Content
	if entry.Link != "" {
		if body, err := c.fetch(ctx, entry.Link, "text/html"); err == nil {
			html = string(body)
		} else {
			c.logger.Debug("post page fetch failed, using feed content",
				logging.String("url", entry.Link),
				logging.Error(err))
		}
	}
	if strings.TrimSpace(html) == "" {
		return ""
	}
	markdown, err := c.converter.ConvertString(html)
	if err != nil {
		c.logger.Warn("markdown conversion failed",
			logging.String("url", entry.Link),
			logging.Error(err))
		return strings.TrimSpace(entry.Content)
	}
	return strings.TrimSpace(markdown)
}

func (c *NewsletterCollector) fetch(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", feedUserAgent)
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxFeedBodySize))
}

// feedURL maps a publication home URL to its RSS feed URL.
func feedURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if strings.HasSuffix(base, "/feed") {
		return base
	}
	return base + "/feed"
}
