package notebook

import (
	"fmt"
	"strings"

	"briefcast/internal/sources"
)

// SourceText is one text source to paste into a notebook.
type SourceText struct {
	Title string
	Body  string
}

// FormatItems turns collected items into notebook text sources, one per
// item, preserving the collection order.
func FormatItems(items []sources.Item) []SourceText {
	formatted := make([]SourceText, 0, len(items))
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = strings.TrimSpace(item.Source)
		}
		if title == "" {
			title = "Untitled"
		}

		var b strings.Builder
		fmt.Fprintf(&b, "# %s\n\n", title)
		if item.Source != "" && item.Source != title {
			fmt.Fprintf(&b, "Source: %s\n", item.Source)
		}
		if item.URL != "" {
			fmt.Fprintf(&b, "Link: %s\n", item.URL)
		}
		if !item.Published.IsZero() {
			fmt.Fprintf(&b, "Published: %s\n", item.Published.UTC().Format("2006-01-02"))
		}
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(item.Content))
		b.WriteString("\n")

		formatted = append(formatted, SourceText{Title: title, Body: b.String()})
	}
	return formatted
}
