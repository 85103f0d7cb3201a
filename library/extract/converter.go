// Package extract turns rendered pages into readable markdown.
package extract

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/Laisky/errors/v2"
	"github.com/PuerkitoBio/goquery"
)

// ConverterConfig fixes how markup becomes markdown. It is a value and
// never changes after the Converter is built.
type ConverterConfig struct {
	IgnoreLinks    bool
	IgnoreImages   bool
	IgnoreEmphasis bool
}

// DefaultConverterConfig keeps links and emphasis and drops images.
func DefaultConverterConfig() ConverterConfig {
	return ConverterConfig{
		IgnoreLinks:    false,
		IgnoreImages:   true,
		IgnoreEmphasis: false,
	}
}

// Converter converts HTML to markdown.
type Converter struct {
	conv *md.Converter
}

// NewConverter builds a Converter for cfg.
func NewConverter(cfg ConverterConfig) *Converter {
	conv := md.NewConverter("", true, &md.Options{})
	conv.Remove("script", "style", "noscript", "iframe", "svg")

	// img already has a commonmark rule, so Remove would not apply to it
	if cfg.IgnoreImages {
		conv.AddRules(md.Rule{
			Filter:      []string{"img", "picture"},
			Replacement: dropContent,
		})
	}
	if cfg.IgnoreLinks {
		conv.AddRules(md.Rule{
			Filter:      []string{"a"},
			Replacement: plainContent,
		})
	}
	if cfg.IgnoreEmphasis {
		conv.AddRules(md.Rule{
			Filter:      []string{"em", "i", "strong", "b"},
			Replacement: plainContent,
		})
	}

	return &Converter{conv: conv}
}

// Convert returns the markdown rendition of html.
func (c *Converter) Convert(html string) (string, error) {
	out, err := c.conv.ConvertString(html)
	if err != nil {
		return "", errors.Wrap(err, "convert html to markdown")
	}
	return strings.TrimSpace(out), nil
}

func plainContent(content string, _ *goquery.Selection, _ *md.Options) *string {
	return md.String(content)
}

func dropContent(string, *goquery.Selection, *md.Options) *string {
	return md.String("")
}
