package htmlmd

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tico/internal/services"
)

// titleSelectors and bodySelectors are tried in order; the first match wins.
// CRHoy has shuffled its markup over the years, so older saved pages still
// parse.
var (
	titleSelectors = []string{"h1.titulo", "article h1", "h1"}
	bodySelectors  = []string{"div.contenido", "div#contenido", "article"}
)

// Article is the extracted content of one news page.
type Article struct {
	Title    string
	Markdown string
}

// Parse extracts the title and body paragraphs from article HTML and renders
// markdown: an h1 title followed by blank-line separated paragraphs.
func Parse(html string) (Article, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Article{}, services.Wrap(services.ErrParse, "htmlmd", "parse document", "", err)
	}

	title := firstText(doc, titleSelectors)
	if title == "" {
		return Article{}, services.Wrap(services.ErrParse, "htmlmd", "extract title", "no title element", nil)
	}

	paragraphs := extractParagraphs(doc)
	if len(paragraphs) == 0 {
		return Article{}, services.Wrap(services.ErrParse, "htmlmd", "extract body", "no paragraphs", nil)
	}

	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(title)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(paragraphs, "\n\n"))
	b.WriteString("\n")

	return Article{Title: title, Markdown: b.String()}, nil
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		if text := strings.TrimSpace(doc.Find(selector).First().Text()); text != "" {
			return collapseSpace(text)
		}
	}
	return ""
}

func extractParagraphs(doc *goquery.Document) []string {
	var paragraphs []string
	for _, selector := range bodySelectors {
		container := doc.Find(selector).First()
		if container.Length() == 0 {
			continue
		}
		container.Find("p").Each(func(_ int, p *goquery.Selection) {
			// Skip boilerplate embedded in the article body.
			if p.ParentsFiltered("figure, figcaption, blockquote.twitter-tweet").Length() > 0 {
				return
			}
			if text := collapseSpace(strings.TrimSpace(p.Text())); text != "" {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) > 0 {
			return paragraphs
		}
	}
	return paragraphs
}

func collapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
