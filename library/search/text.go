package search

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

var (
	tagPattern        = regexp.MustCompile(`(?s)<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// StripTags removes markup from s, decodes HTML entities and collapses
// whitespace runs into single spaces.
func StripTags(s string) string {
	if s == "" {
		return ""
	}
	s = tagPattern.ReplaceAllString(s, " ")
	return CollapseSpace(html.UnescapeString(s))
}

// CollapseSpace trims s and folds internal whitespace runs into one space.
func CollapseSpace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// HostOf returns the host component of link, or an empty string when link
// is not an absolute URL.
func HostOf(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func cleanRawItem(item RawItem) RawItem {
	return RawItem{
		Title:   CollapseSpace(item.Title),
		Link:    strings.TrimSpace(item.Link),
		Snippet: CollapseSpace(item.Snippet),
		Source:  CollapseSpace(item.Source),
	}
}
