// Package extract recovers structured product data from parsed catalog
// pages. The markup has no stable schema across brands, so every field is
// extracted by an ordered chain of strategies, each more permissive than
// the last; validators gate each candidate before it wins.
package extract

import (
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/bathingbrands/catalog-scraper/internal/models"
)

// maxContentLength bounds free-text blocks (descriptions, tab content)
// before they reach storage.
const maxContentLength = 3000

type Extractor struct {
	baseURL     string
	knownBrands []string
	logger      *slog.Logger

	// now feeds the generated-SKU fallback; swapped in tests.
	now func() time.Time
}

func New(baseURL string, knownBrands []string, logger *slog.Logger) *Extractor {
	return &Extractor{
		baseURL:     strings.TrimRight(baseURL, "/"),
		knownBrands: knownBrands,
		logger:      logger.With("component", "extractor"),
		now:         time.Now,
	}
}

// Product extracts every recognized field from a product page. Missing
// non-critical fields degrade to placeholders or empty values; the caller
// decides whether the result passes the final validation gate.
func (e *Extractor) Product(doc *goquery.Document, pageURL string) *models.ExtractedProduct {
	title := e.Title(doc)
	brand := e.Brand(doc, pageURL, title)
	model := e.Model(doc)
	sku := e.SKU(doc, pageURL, brand, model)
	price := e.Price(doc)
	category, subcategory := e.Breadcrumbs(doc)

	shortDesc := e.ShortDescription(doc)
	fullDesc := e.TabContent(doc, "Description")
	if fullDesc == "" {
		fullDesc = shortDesc
	}

	p := &models.ExtractedProduct{
		Title:            title,
		Brand:            brand,
		SKU:              sku,
		Model:            model,
		Category:         category,
		Subcategory:      subcategory,
		ShortDescription: shortDesc,
		FullDescription:  fullDesc,
		Features:         e.TabContent(doc, "Features"),
		TechnicalInfo:    e.firstTab(doc, "Technical", "Specifications"),
		Includes:         e.TabContent(doc, "Includes"),
		ShippingInfo:     e.TabContent(doc, "Shipping"),
		Inspiration:      e.TabContent(doc, "Inspiration"),
		Price:            price,
		SourceURL:        pageURL,
		Images:           e.Images(doc, pageURL),
		Specifications:   e.Specifications(doc),
		Documents:        e.Documents(doc, pageURL),
		Related:          e.Related(doc, pageURL),
	}

	e.logger.Info("extracted product",
		"url", pageURL,
		"title", p.Title,
		"brand", p.Brand,
		"sku", p.SKU,
		"images", len(p.Images),
		"specs", len(p.Specifications),
		"documents", len(p.Documents),
		"related", len(p.Related))

	return p
}

func (e *Extractor) firstTab(doc *goquery.Document, names ...string) string {
	for _, name := range names {
		if content := e.TabContent(doc, name); content != "" {
			return content
		}
	}
	return ""
}

// resolveURL converts a possibly relative href to absolute form.
func (e *Extractor) resolveURL(href, pageURL string) string {
	href = strings.TrimSpace(href)
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "//"):
		return "https:" + href
	case strings.HasPrefix(href, "/"):
		return e.baseURL + href
	case strings.HasPrefix(href, "http"):
		return href
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
