package search

import (
	"regexp"
	"strings"
)

// Patterns is the regular expression counterpart of Locators.
//
// Container must capture the block body in group 1; blocks whose full
// match satisfies Exclude are skipped. Each TitleLinks
// expression must capture the href in group 1 and the title markup in
// group 2. Snippets and Sources capture their markup in group 1.
type Patterns struct {
	Container  *regexp.Regexp
	Exclude    *regexp.Regexp
	TitleLinks []*regexp.Regexp
	Snippets   []*regexp.Regexp
	Sources    []*regexp.Regexp
}

// PatternExtractor approximates DocumentExtractor with text patterns, for
// payloads that cannot be parsed as a document.
type PatternExtractor struct {
	patterns Patterns
	resolve  LinkResolver
}

// NewPatternExtractor builds a PatternExtractor. resolve may be nil.
func NewPatternExtractor(patterns Patterns, resolve LinkResolver) *PatternExtractor {
	return &PatternExtractor{patterns: patterns, resolve: resolve}
}

// Extract scans payload for result blocks and never fails.
func (p *PatternExtractor) Extract(payload string) ([]RawItem, error) {
	if p.patterns.Container == nil {
		return nil, nil
	}

	var items []RawItem
	for _, block := range p.patterns.Container.FindAllStringSubmatch(payload, -1) {
		if len(block) < 2 {
			continue
		}
		if p.patterns.Exclude != nil && p.patterns.Exclude.MatchString(block[0]) {
			continue
		}
		body := block[1]

		link, title := matchTitleLink(body, p.patterns.TitleLinks)
		if p.resolve != nil {
			link = p.resolve(link)
		}
		if title == "" || link == "" {
			continue
		}

		items = append(items, RawItem{
			Title:   title,
			Link:    link,
			Snippet: matchText(body, p.patterns.Snippets),
			Source:  matchText(body, p.patterns.Sources),
		})
	}

	return items, nil
}

func matchTitleLink(body string, patterns []*regexp.Regexp) (link, title string) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(body)
		if len(m) < 3 {
			continue
		}
		return strings.TrimSpace(StripTags(m[1])), StripTags(m[2])
	}
	return "", ""
}

func matchText(body string, patterns []*regexp.Regexp) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(body); len(m) >= 2 {
			return StripTags(m[1])
		}
	}
	return ""
}
