// cmd/verilens-scan/extract.go
package main

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ArticleContent is what the scanner pulls out of an article page.
type ArticleContent struct {
	Text     string
	ImageURL string
}

const maxExtractedText = 1500

// ExtractArticle parses an article HTML page and returns the lead image URL
// (og:image, falling back to the first content image) and the opening
// paragraphs of body text.
func ExtractArticle(r io.Reader) (*ArticleContent, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	content := &ArticleContent{}

	if og, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok {
		content.ImageURL = strings.TrimSpace(og)
	}
	if content.ImageURL == "" {
		doc.Find("article img, main img, img").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if src, ok := sel.Attr("src"); ok && strings.HasPrefix(src, "http") {
				content.ImageURL = src
				return false
			}
			return true
		})
	}

	var sb strings.Builder
	doc.Find("article p, main p, p").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if len(text) < 40 {
			// Skip navigation fragments and bylines
			return true
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(text)
		return sb.Len() < maxExtractedText
	})
	content.Text = sb.String()
	if len(content.Text) > maxExtractedText {
		content.Text = content.Text[:maxExtractedText]
	}

	return content, nil
}
