package notebook

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// BuildTitle formats a notebook title for a daily brief. With topics the
// result is "Daily Brief - Topics X, Y, and Z - 2026-09-01"; without topics
// the topics segment is omitted.
func BuildTitle(topics []string, day time.Time) string {
	date := day.UTC().Format("2006-01-02")
	cleaned := make([]string, 0, len(topics))
	for _, topic := range topics {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		cleaned = append(cleaned, titleCaser.String(topic))
	}
	if len(cleaned) == 0 {
		return "Daily Brief - " + date
	}
	return "Daily Brief - Topics " + joinTopics(cleaned) + " - " + date
}

func joinTopics(topics []string) string {
	switch len(topics) {
	case 1:
		return topics[0]
	case 2:
		return topics[0] + " and " + topics[1]
	default:
		return strings.Join(topics[:len(topics)-1], ", ") + ", and " + topics[len(topics)-1]
	}
}
