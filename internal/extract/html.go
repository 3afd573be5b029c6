package extract

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/mkrz/folio/internal/models"
)

// Non-content elements dropped before block extraction.
var strippedElements = map[string]bool{
	"script": true,
	"style":  true,
	"nav":    true,
}

// Heading-level elements tagged as HeadingBlock. Deeper headings read as body
// text of their enclosing section, matching typical e-book markup.
var headingElements = map[string]bool{
	"h1": true,
	"h2": true,
	"h3": true,
}

// Blocks parses markup and returns classified blocks in document order.
// Headings (h1-h3) and paragraphs contribute blocks; elements whose visible
// text is empty are dropped. Malformed markup is handled defensively: the
// parser never fails on garbage, it just yields fewer blocks.
func Blocks(markup string) []models.Block {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil
	}
	var blocks []models.Block
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if strippedElements[n.Data] {
				return
			}
			if headingElements[n.Data] || n.Data == "p" {
				text := visibleText(n)
				if text == "" {
					return
				}
				kind := models.BodyBlock
				if headingElements[n.Data] {
					kind = models.HeadingBlock
				}
				blocks = append(blocks, models.Block{Kind: kind, Text: text})
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return blocks
}

// visibleText collects the text under n with internal whitespace collapsed
// and leading/trailing whitespace trimmed.
func visibleText(n *html.Node) string {
	var words []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			words = append(words, strings.Fields(n.Data)...)
			return
		}
		if n.Type == html.ElementNode && strippedElements[n.Data] {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(words, " ")
}
