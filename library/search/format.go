package search

import (
	"strconv"
	"strings"
)

// NoResultsText is rendered for a successful outcome without items.
const NoResultsText = "No search results found."

// Normalize converts raw candidates into SearchResultItem values.
// Unusable candidates are dropped and the survivors get dense 1-based
// indices in their original order.
func Normalize(raw []RawItem) []SearchResultItem {
	items := make([]SearchResultItem, 0, len(raw))
	for _, r := range raw {
		r = cleanRawItem(r)
		if !r.Usable() {
			continue
		}
		items = append(items, SearchResultItem{
			Index:   len(items) + 1,
			Title:   r.Title,
			Link:    r.Link,
			Snippet: r.Snippet,
			Source:  r.Source,
		})
	}
	return items
}

// Format renders an outcome as the flat text block returned to callers.
func Format(outcome Outcome) string {
	if outcome.IsError() {
		return outcome.Message()
	}

	items := outcome.Items()
	if len(items) == 0 {
		return NoResultsText
	}

	lines := make([]string, 0, len(items)*5)
	for _, item := range items {
		lines = append(lines,
			"["+strconv.Itoa(item.Index)+"] "+item.Title,
			"link: "+item.Link,
		)
		if item.Source != "" {
			lines = append(lines, "source: "+item.Source)
		}
		if item.Snippet != "" {
			lines = append(lines, "snippet: "+item.Snippet)
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}
