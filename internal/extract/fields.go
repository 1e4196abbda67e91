package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bathingbrands/catalog-scraper/internal/models"
	"github.com/bathingbrands/catalog-scraper/internal/validate"
)

var (
	siteSuffixRe   = regexp.MustCompile(`\s*\|\s*.*$`)
	productClassRe = regexp.MustCompile(`(?i)product.*name|title`)
	skuClassRe     = regexp.MustCompile(`(?i)sku|model|part|item-id`)
	skuLabelRe     = regexp.MustCompile(`(?i)SKU[:\s]*([A-Za-z0-9\-_]+)`)
	modelLabelRe   = regexp.MustCompile(`(?i)Model[:\s]*([A-Za-z0-9\-_ ]+?)(?:\n|$|SKU)`)
	numericPathRe  = regexp.MustCompile(`^\d{4,}$`)
	breadcrumbRe   = regexp.MustCompile(`(?i)breadcrumb`)
)

var skuTextPatterns = []*regexp.Regexp{
	regexp.MustCompile(`SKU[:\s]*([A-Z0-9\-_]{2,})`),
	regexp.MustCompile(`Model No[:.\s]*([A-Z0-9\-_]{2,})`),
	regexp.MustCompile(`Item No[:.\s]*([A-Z0-9\-_]{2,})`),
	regexp.MustCompile(`Model[:\s]*([A-Z0-9\-_]{2,})`),
}

var priceSelectors = []string{
	".price",
	".product-price",
	".your-price",
	".sale-price",
	"[class*='price']",
	"[id*='price']",
}

var priceTextPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Your Price[:\s]*\$?([\d,]+\.?\d*)`),
	regexp.MustCompile(`(?i)Price[:\s]*\$?([\d,]+\.?\d*)`),
	regexp.MustCompile(`\$\s*([\d,]+\.?\d*)`),
}

// Title extracts the product title: page <title> minus the site-name
// suffix, then the first heading, then a product-name element, then
// og:title, then the literal placeholder.
func (e *Extractor) Title(doc *goquery.Document) string {
	if title := cleanText(doc.Find("title").First().Text()); title != "" {
		title = siteSuffixRe.ReplaceAllString(title, "")
		if validate.Title(title) {
			return title
		}
	}

	if title := cleanText(doc.Find("h1").First().Text()); validate.Title(title) {
		return title
	}

	var matched string
	doc.Find("h1, h2, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		if !productClassRe.MatchString(class) {
			return true
		}
		if title := cleanText(s.Text()); validate.Title(title) {
			matched = title
			return false
		}
		return true
	})
	if matched != "" {
		return matched
	}

	if content, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		if title := cleanText(content); validate.Title(title) {
			return title
		}
	}

	return "Unknown Product"
}

// Brand extracts the brand. A known brand slug in the URL path is
// authoritative and overrides anything guessed from page content, because
// hierarchy pages surface cross-brand links and content heuristics are
// known to mis-attribute them.
func (e *Extractor) Brand(doc *goquery.Document, pageURL, title string) string {
	if brand := e.brandFromURL(pageURL); brand != "" {
		return brand
	}

	if brand := e.brandFromBreadcrumbs(doc); brand != "" {
		return brand
	}

	for _, known := range e.knownBrands {
		if strings.Contains(strings.ToLower(title), strings.ToLower(known)) {
			return known
		}
	}

	if content, ok := doc.Find(`meta[name="brand"]`).Attr("content"); ok {
		if brand := cleanText(content); validate.Brand(brand) {
			return brand
		}
	}

	return "Unknown Brand"
}

func (e *Extractor) brandFromURL(pageURL string) string {
	lower := strings.ToLower(pageURL)
	for _, known := range e.knownBrands {
		if strings.Contains(lower, "/"+models.BrandSlug(known)+"/") {
			return known
		}
	}
	return ""
}

func (e *Extractor) brandFromBreadcrumbs(doc *goquery.Document) string {
	var found string
	e.breadcrumbLinks(doc).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := cleanText(s.Text())
		for _, known := range e.knownBrands {
			if strings.EqualFold(text, known) ||
				strings.EqualFold(stripPunct(text), stripPunct(known)) {
				found = known
				return false
			}
		}
		return true
	})
	return found
}

func (e *Extractor) breadcrumbLinks(doc *goquery.Document) *goquery.Selection {
	var container *goquery.Selection
	doc.Find("nav, ol, ul").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		if breadcrumbRe.MatchString(class) {
			container = s
			return false
		}
		return true
	})
	if container == nil {
		return doc.Find("nothing-matches")
	}
	return container.Find("a")
}

// Breadcrumbs returns (category, subcategory) from fixed trail positions:
// link 0 is home, 1 the brand, 2 the category, 3 the subcategory. Trails
// too shallow yield empty strings.
func (e *Extractor) Breadcrumbs(doc *goquery.Document) (string, string) {
	links := e.breadcrumbLinks(doc)

	category := ""
	subcategory := ""
	if links.Length() >= 3 {
		category = cleanText(links.Eq(2).Text())
	}
	if links.Length() >= 4 {
		subcategory = cleanText(links.Eq(3).Text())
	}
	return category, subcategory
}

// SKU extracts the natural key. Explicit labels win; class/id attributes
// and raw text patterns follow; a long numeric URL segment is used as a
// generated ID; as a last resort a synthetic SKU is minted. An invalid SKU
// with a valid model name substitutes the model.
func (e *Extractor) SKU(doc *goquery.Document, pageURL, brand, model string) string {
	if sku := e.skuFromLabels(doc); sku != "" {
		return sku
	}

	if sku := e.skuFromAttributes(doc); sku != "" {
		return sku
	}

	text := doc.Text()
	for _, pattern := range skuTextPatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			candidate := strings.TrimSpace(match[1])
			if validate.SKU(candidate) && !strings.EqualFold(candidate, "model") {
				return candidate
			}
		}
	}

	for _, segment := range strings.Split(pageURL, "/") {
		if numericPathRe.MatchString(segment) {
			return segment
		}
	}

	if validate.SKU(model) {
		return model
	}

	generated := fmt.Sprintf("GEN_%s_%d",
		strings.ToUpper(strings.ReplaceAll(brand, " ", "")),
		e.now().Unix()%10000)
	e.logger.Warn("no sku found, generated fallback", "url", pageURL, "sku", generated)
	return generated
}

func (e *Extractor) skuFromLabels(doc *goquery.Document) string {
	var found string
	doc.Find("strong, dt, span, div, p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		own := cleanText(s.Text())
		if len(own) > 120 {
			return true
		}
		if !strings.HasPrefix(strings.ToLower(own), "sku") {
			return true
		}

		// Label and value often share a parent ("SKU: HUUM-DROP-45").
		parentText := cleanText(s.Parent().Text())
		if match := skuLabelRe.FindStringSubmatch(parentText); match != nil {
			candidate := strings.TrimSpace(match[1])
			if validate.SKU(candidate) && !strings.EqualFold(candidate, "sku") {
				found = candidate
				return false
			}
		}
		return true
	})
	return found
}

func (e *Extractor) skuFromAttributes(doc *goquery.Document) string {
	var found string
	doc.Find("span, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		id, _ := s.Attr("id")
		if !skuClassRe.MatchString(class) && !skuClassRe.MatchString(id) {
			return true
		}

		value := cleanText(s.Text())
		if i := strings.LastIndex(value, ":"); i >= 0 {
			value = strings.TrimSpace(value[i+1:])
		}
		if len(value) > 60 {
			return true
		}
		if validate.SKU(value) {
			found = value
			return false
		}
		return true
	})
	return found
}

// Model extracts the model designation from an explicit label element.
// Label and value must share the element's text ("Model: DROP-45"); a bare
// label with the value elsewhere is not trusted, since whatever text
// happens to follow it is usually unrelated.
func (e *Extractor) Model(doc *goquery.Document) string {
	var found string
	doc.Find("strong, dt, span, div, p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		own := cleanText(s.Text())
		if len(own) > 60 {
			return true
		}
		if !strings.HasPrefix(strings.ToLower(own), "model") {
			return true
		}

		match := modelLabelRe.FindStringSubmatch(own)
		if match == nil {
			return true
		}

		model := strings.TrimSpace(match[1])
		if model == "" || strings.EqualFold(model, "model") || len(model) >= 50 {
			return true
		}
		if !validate.SKU(model) {
			return true
		}
		found = model
		return false
	})
	return found
}

// Price extracts the price, or nil when the page exposes none. Absence is
// a legitimate outcome, not an error.
func (e *Extractor) Price(doc *goquery.Document) *float64 {
	for _, selector := range priceSelectors {
		var price *float64
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if p, ok := validate.ParsePrice(s.Text()); ok {
				price = p
				return false
			}
			return true
		})
		if price != nil {
			return price
		}
	}

	text := doc.Text()
	for _, pattern := range priceTextPatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			if p, ok := validate.ParsePrice(match[1]); ok {
				return p
			}
		}
	}

	return nil
}

// ShortDescription extracts the blurb shown near the price, capped at 1000
// characters.
func (e *Extractor) ShortDescription(doc *goquery.Document) string {
	selectors := []string{
		".product-description",
		".product-details",
		".product-summary",
		".product-info",
	}

	for _, selector := range selectors {
		s := doc.Find(selector).First()
		if s.Length() == 0 {
			continue
		}
		s.Find("script, style").Remove()
		if text := cleanText(s.Text()); len(text) > 20 {
			return truncate(text, 1000)
		}
	}

	var fallback string
	doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := cleanText(s.Text())
		if len(text) <= 50 {
			return true
		}
		lower := strings.ToLower(text)
		for _, skip := range []string{"sku:", "model:", "price:", "add to cart"} {
			if strings.Contains(lower, skip) {
				return true
			}
		}
		fallback = truncate(text, 1000)
		return false
	})
	return fallback
}

// stripPunct normalizes a brand name for comparison ("Mr. Steam" and
// "Mr.Steam" both become "MrSteam").
func stripPunct(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', ',', '\'', ' ':
			return -1
		}
		return r
	}, s)
}
