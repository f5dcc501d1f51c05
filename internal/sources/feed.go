package sources

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// feedEntry is one post extracted from an RSS or Atom document.
type feedEntry struct {
	Title     string
	Link      string
	Content   string
	Published time.Time
}

type rssDocument struct {
	Channel struct {
		Title string    `xml:"title"`
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Encoded     string `xml:"encoded"` // content:encoded
	PubDate     string `xml:"pubDate"`
}

type atomDocument struct {
	Title   string      `xml:"title"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title   string     `xml:"title"`
	Links   []atomLink `xml:"link"`
	Content string     `xml:"content"`
	Summary string     `xml:"summary"`
	Updated string     `xml:"updated"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

// parseFeed extracts the feed title and its entries from an RSS 2.0 or Atom
// document. Unknown elements are skipped; an unrecognized root is an error.
func parseFeed(data []byte) (string, []feedEntry, error) {
	var probe struct {
		XMLName xml.Name
	}
	if err := xml.Unmarshal(data, &probe); err != nil {
		return "", nil, fmt.Errorf("parse feed: %w", err)
	}

	switch strings.ToLower(probe.XMLName.Local) {
	case "rss", "rdf":
		var doc rssDocument
		if err := xml.Unmarshal(data, &doc); err != nil {
			return "", nil, fmt.Errorf("parse rss feed: %w", err)
		}
		entries := make([]feedEntry, 0, len(doc.Channel.Items))
		for _, item := range doc.Channel.Items {
			content := item.Encoded
			if strings.TrimSpace(content) == "" {
				content = item.Description
			}
			entries = append(entries, feedEntry{
				Title:     strings.TrimSpace(item.Title),
				Link:      strings.TrimSpace(item.Link),
				Content:   strings.TrimSpace(content),
				Published: parseFeedTime(item.PubDate),
			})
		}
		return strings.TrimSpace(doc.Channel.Title), entries, nil
	case "feed":
		var doc atomDocument
		if err := xml.Unmarshal(data, &doc); err != nil {
			return "", nil, fmt.Errorf("parse atom feed: %w", err)
		}
		entries := make([]feedEntry, 0, len(doc.Entries))
		for _, entry := range doc.Entries {
			content := entry.Content
			if strings.TrimSpace(content) == "" {
				content = entry.Summary
			}
			entries = append(entries, feedEntry{
				Title:     strings.TrimSpace(entry.Title),
				Link:      atomEntryLink(entry.Links),
				Content:   strings.TrimSpace(content),
				Published: parseFeedTime(entry.Updated),
			})
		}
		return strings.TrimSpace(doc.Title), entries, nil
	default:
		return "", nil, fmt.Errorf("parse feed: unsupported root element %q", probe.XMLName.Local)
	}
}

func atomEntryLink(links []atomLink) string {
	for _, link := range links {
		if link.Rel == "" || link.Rel == "alternate" {
			return strings.TrimSpace(link.Href)
		}
	}
	if len(links) > 0 {
		return strings.TrimSpace(links[0].Href)
	}
	return ""
}

var feedTimeLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"Mon, 2 Jan 2006 15:04:05 -0700",
}

func parseFeedTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range feedTimeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}
