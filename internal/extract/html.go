package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// NonContentSelector matches page chrome that never carries document text.
const NonContentSelector = "script, style, noscript, template, iframe, svg, nav, footer, header, aside, form, " +
	".nav, .navbar, .menu, .footer, .header, .sidebar, .cookie-banner, .advertisement, .ads, .ad, .skip-link, " +
	"[role='navigation'], [role='banner'], [role='contentinfo'], [aria-hidden='true']"

// ContentSelectors are tried in order; the first one with enough text wins.
var ContentSelectors = []string{
	"main",
	"article",
	"[role='main']",
	".main-content",
	".content",
	"#content",
	".post",
	".entry",
}

const minMainContent = 50

// MainContent strips non-content elements and returns the text of the
// preferred content container, or of the whole body when none qualifies.
func MainContent(selection *goquery.Selection) string {
	doc := selection.Clone()
	doc.Find(NonContentSelector).Remove()

	for _, selector := range ContentSelectors {
		if text := blockText(doc.Find(selector).First()); len(text) >= minMainContent {
			return text
		}
	}

	if body := doc.Find("body"); body.Length() > 0 {
		return blockText(body)
	}
	return blockText(doc)
}

var blockElements = map[string]bool{
	"address": true, "article": true, "blockquote": true, "br": true, "dd": true, "div": true,
	"dl": true, "dt": true, "figcaption": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "hr": true, "li": true, "main": true, "ol": true, "p": true,
	"pre": true, "section": true, "table": true, "td": true, "th": true, "tr": true, "ul": true,
}

// blockText returns the visible text with a line break after each block
// element, so sentences in adjacent paragraphs stay separated.
func blockText(selection *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			b.WriteByte('\n')
		}
	}
	for _, n := range selection.Nodes {
		walk(n)
	}
	return cleanLines(b.String())
}

func cleanLines(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
