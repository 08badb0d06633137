package normalize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var strippedSelectors = []string{"script", "style", "iframe", "object", "embed", "form", "link", "meta"}

// SanitizeHTML removes active content from an HTML body: script and
// embed elements, inline event handlers, and javascript/data URLs.
// Input that cannot be parsed is discarded rather than stored raw.
func SanitizeHTML(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	for _, sel := range strippedSelectors {
		doc.Find(sel).Remove()
	}

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		for _, node := range s.Nodes {
			kept := node.Attr[:0]
			for _, attr := range node.Attr {
				name := strings.ToLower(attr.Key)
				val := strings.ToLower(strings.TrimSpace(attr.Val))
				if strings.HasPrefix(name, "on") {
					continue
				}
				if name == "href" && strings.HasPrefix(val, "javascript:") {
					continue
				}
				if name == "src" && strings.HasPrefix(val, "data:") {
					continue
				}
				kept = append(kept, attr)
			}
			node.Attr = kept
		}
	})

	out, err := doc.Find("body").Html()
	if err != nil || strings.TrimSpace(out) == "" {
		out, err = doc.Html()
		if err != nil {
			return ""
		}
	}
	return strings.TrimSpace(out)
}

// HTMLToText produces a plain-text rendering for messages that carry
// only an HTML body.
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style").Remove()

	doc.Find("br").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithHtml("\n")
	})
	doc.Find("p, div, li, tr, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	text := doc.Text()
	lines := strings.Split(text, "\n")
	var out []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
