package search

import (
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/PuerkitoBio/goquery"
)

// Extractor turns a raw result page into candidates.
type Extractor interface {
	Extract(payload string) ([]RawItem, error)
}

// Locators lists CSS selectors for a result page. For each field the
// candidates are tried in order and the first match wins.
type Locators struct {
	// Containers select repeated result blocks.
	Containers []string
	// Exclude drops containers matching this selector, e.g. ads.
	Exclude string
	// TitleLinks select the anchor carrying both title text and href.
	TitleLinks []string
	Snippets   []string
	Sources    []string
}

// LinkResolver rewrites an extracted href into an absolute target URL.
// It returns an empty string when the link should be discarded.
type LinkResolver func(href string) string

// DocumentExtractor extracts candidates from a parsed HTML document.
type DocumentExtractor struct {
	locators Locators
	resolve  LinkResolver
}

// NewDocumentExtractor builds a DocumentExtractor. resolve may be nil.
func NewDocumentExtractor(locators Locators, resolve LinkResolver) *DocumentExtractor {
	return &DocumentExtractor{locators: locators, resolve: resolve}
}

// Extract parses payload and walks the result containers.
// It returns ErrParserUnavailable when no document can be built.
func (d *DocumentExtractor) Extract(payload string) ([]RawItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(payload))
	if err != nil {
		return nil, errors.Wrapf(ErrParserUnavailable, "parse html: %v", err)
	}

	var items []RawItem
	for _, containerSel := range d.locators.Containers {
		containers := doc.Find(containerSel)
		if d.locators.Exclude != "" {
			containers = containers.Not(d.locators.Exclude)
		}

		containers.Each(func(_ int, s *goquery.Selection) {
			if item, ok := d.extractOne(s); ok {
				items = append(items, item)
			}
		})
		if len(items) > 0 {
			break
		}
	}

	return items, nil
}

func (d *DocumentExtractor) extractOne(s *goquery.Selection) (RawItem, bool) {
	anchor := firstMatch(s, d.locators.TitleLinks)
	if anchor == nil {
		return RawItem{}, false
	}

	title := CollapseSpace(anchor.Text())
	href, _ := anchor.Attr("href")
	link := strings.TrimSpace(href)
	if d.resolve != nil {
		link = d.resolve(link)
	}
	if title == "" || link == "" {
		return RawItem{}, false
	}

	item := RawItem{Title: title, Link: link}
	if el := firstMatch(s, d.locators.Snippets); el != nil {
		item.Snippet = CollapseSpace(el.Text())
	}
	if el := firstMatch(s, d.locators.Sources); el != nil {
		item.Source = CollapseSpace(el.Text())
	}

	return item, true
}

func firstMatch(s *goquery.Selection, selectors []string) *goquery.Selection {
	for _, sel := range selectors {
		if found := s.Find(sel).First(); found.Length() > 0 {
			return found
		}
	}
	return nil
}
