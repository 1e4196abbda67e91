package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bathingbrands/catalog-scraper/internal/models"
)

// Documents collects every PDF link on the page, classifying it by link
// text. Unrecognized types default to manual.
func (e *Extractor) Documents(doc *goquery.Document, pageURL string) []models.DocumentCandidate {
	seen := make(map[string]struct{})
	var docs []models.DocumentCandidate

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.HasSuffix(strings.ToLower(strings.TrimSpace(href)), ".pdf") {
			return
		}

		docURL := e.resolveURL(href, pageURL)
		if _, dup := seen[docURL]; dup {
			return
		}
		seen[docURL] = struct{}{}

		title := cleanText(a.Text())
		if title == "" {
			title, _ = a.Attr("title")
			title = cleanText(title)
		}
		if title == "" {
			title = "Document"
		}

		docs = append(docs, models.DocumentCandidate{
			Title: title,
			URL:   docURL,
			Type:  classifyDocument(title),
		})
	})

	return docs
}

func classifyDocument(title string) models.DocumentType {
	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, "installation"):
		return models.DocInstallation
	case strings.Contains(lower, "warranty"):
		return models.DocWarranty
	case strings.Contains(lower, "specification"):
		return models.DocSpecification
	case strings.Contains(lower, "certificate"):
		return models.DocCertificate
	default:
		return models.DocManual
	}
}
