package extract

import (
	"crypto/md5"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bathingbrands/catalog-scraper/internal/models"
	"github.com/bathingbrands/catalog-scraper/internal/validate"
)

// relatedSections maps known section headings to relationship types, in
// scan order. Several headings collapse onto accessory.
var relatedSections = []struct {
	Heading string
	Type    models.RelationType
}{
	{"Required for Operation", models.RelationRequiredOperation},
	{"Sauna Heater Controls", models.RelationHeaterControl},
	{"Recommended", models.RelationRecommended},
	{"Related Items", models.RelationRelatedItem},
	{"Accessories", models.RelationAccessory},
	{"Sauna Accessories & Packages", models.RelationAccessory},
	{"Sauna Room Safety", models.RelationAccessory},
	{"Replacement Parts", models.RelationReplacementPart},
}

var (
	blockPriceRe = regexp.MustCompile(`\$\s*[\d,]+\.?\d*`)
	blockSkuRe   = regexp.MustCompile(`(?i)SKU[:\s]*([A-Z0-9\-_]+)`)
	blockModelRe = regexp.MustCompile(`(?i)Model[:\s]*([A-Za-z0-9\-_ ]+?)(?:\n|$|SKU)`)
	priceClassRe = regexp.MustCompile(`(?i)price`)
)

// Related scans the page for known related-product sections and extracts
// candidate mentions. Candidates are not resolved here; the reconciler
// links only the ones that match an already persisted product.
func (e *Extractor) Related(doc *goquery.Document, pageURL string) []models.RelatedCandidate {
	processed := make(map[string]struct{})
	var out []models.RelatedCandidate

	for _, section := range relatedSections {
		heading := e.findSectionHeading(doc, section.Heading)
		if heading == nil {
			continue
		}

		blocks := e.candidateBlocks(heading, processed)
		for _, block := range blocks {
			candidate := e.candidateFromBlock(block, pageURL)
			if candidate == nil {
				continue
			}
			candidate.Type = section.Type
			candidate.Section = section.Heading
			out = append(out, *candidate)
		}
	}

	return out
}

// findSectionHeading locates a section heading by exact text, then by
// most-keywords partial match, then by raw substring.
func (e *Extractor) findSectionHeading(doc *goquery.Document, title string) *goquery.Selection {
	headingTags := "h1, h2, h3, h4, h5, strong, span"

	var exact *goquery.Selection
	doc.Find(headingTags).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.EqualFold(cleanText(s.Text()), title) {
			exact = s
			return false
		}
		return true
	})
	if exact != nil {
		return exact
	}

	keywords := strings.Fields(strings.ToLower(title))
	var partial *goquery.Selection
	doc.Find(headingTags).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.ToLower(cleanText(s.Text()))
		if text == "" || len(text) > 100 {
			return true
		}
		matches := 0
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				matches++
			}
		}
		if matches >= len(keywords)-1 && matches > 0 {
			partial = s
			return false
		}
		return true
	})
	if partial != nil {
		return partial
	}

	lower := strings.ToLower(title)
	var loose *goquery.Selection
	doc.Find("div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		own := cleanText(s.Text())
		if len(own) <= 150 && strings.Contains(strings.ToLower(own), lower) {
			loose = s
			return false
		}
		return true
	})
	return loose
}

// candidateBlocks finds product-shaped elements near a section heading: a
// block qualifies when a price pattern co-occurs with a SKU, a model label
// or a known brand keyword. Duplicate blocks (same SKU/model) are skipped.
func (e *Extractor) candidateBlocks(heading *goquery.Selection, processed map[string]struct{}) []*goquery.Selection {
	var blocks []*goquery.Selection

	scan := func(scope *goquery.Selection) {
		scope.Find("div, article, li, tr, form, section").Each(func(_ int, el *goquery.Selection) {
			text := el.Text()
			if len(cleanText(text)) < 20 {
				return
			}
			if !e.looksLikeProduct(el, text) {
				return
			}

			id := blockIdentity(text)
			if _, dup := processed[id]; dup {
				return
			}
			processed[id] = struct{}{}
			blocks = append(blocks, el)
		})
	}

	if parent := heading.Parent(); parent.Length() > 0 {
		scan(parent)
	}

	// The section's blocks often follow the heading as siblings.
	count := 0
	for sibling := heading.Next(); sibling.Length() > 0 && count < 20; sibling = sibling.Next() {
		count++
		text := sibling.Text()
		if e.looksLikeProduct(sibling, text) {
			id := blockIdentity(text)
			if _, dup := processed[id]; !dup {
				processed[id] = struct{}{}
				blocks = append(blocks, sibling)
			}
		} else {
			scan(sibling)
		}
	}

	return blocks
}

func (e *Extractor) looksLikeProduct(el *goquery.Selection, text string) bool {
	hasPrice := blockPriceRe.MatchString(text)
	if !hasPrice {
		el.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			class, _ := s.Attr("class")
			if priceClassRe.MatchString(class) {
				hasPrice = true
				return false
			}
			return true
		})
	}
	if !hasPrice {
		return false
	}

	if blockSkuRe.MatchString(text) || blockModelRe.MatchString(text) {
		return true
	}
	lower := strings.ToLower(text)
	for _, brand := range e.knownBrands {
		if strings.Contains(lower, strings.ToLower(brand)) {
			return true
		}
	}
	return false
}

func blockIdentity(text string) string {
	if match := blockSkuRe.FindStringSubmatch(text); match != nil {
		return "sku_" + strings.TrimSpace(match[1])
	}
	if match := blockModelRe.FindStringSubmatch(text); match != nil {
		return "model_" + strings.TrimSpace(match[1])
	}
	return fmt.Sprintf("text_%x", md5.Sum([]byte(cleanText(text))))[:13]
}

// candidateFromBlock extracts one related-product mention. A candidate
// needs a title and at least one of SKU or model to be worth resolving.
func (e *Extractor) candidateFromBlock(block *goquery.Selection, pageURL string) *models.RelatedCandidate {
	text := block.Text()

	title, titleEl := blockTitle(block, text)
	if title == "" {
		return nil
	}

	var sku string
	if match := blockSkuRe.FindStringSubmatch(text); match != nil {
		if s := strings.TrimSpace(match[1]); validate.SKU(s) {
			sku = s
		}
	}

	var model string
	if match := blockModelRe.FindStringSubmatch(text); match != nil {
		m := strings.TrimSpace(match[1])
		if m != "" && !strings.EqualFold(m, "model") && len(m) < 50 {
			model = m
		}
	}

	if sku == "" && model == "" {
		return nil
	}

	var price *float64
	for _, pattern := range priceTextPatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			if p, ok := validate.ParsePrice(match[1]); ok {
				price = p
				break
			}
		}
	}

	var relatedURL string
	if titleEl != nil && goquery.NodeName(titleEl) == "a" {
		if href, ok := titleEl.Attr("href"); ok {
			relatedURL = e.resolveURL(href, pageURL)
		}
	}
	if relatedURL == "" {
		if href, ok := block.Find("a[href]").First().Attr("href"); ok {
			relatedURL = e.resolveURL(href, pageURL)
		}
	}

	subtitle := ""
	if titleEl != nil {
		next := titleEl.Next()
		switch goquery.NodeName(next) {
		case "p", "div", "span":
			subtitle = truncate(cleanText(next.Text()), 200)
		}
	}

	return &models.RelatedCandidate{
		Title:    title,
		Model:    model,
		SKU:      sku,
		Price:    price,
		URL:      relatedURL,
		Subtitle: subtitle,
	}
}

func blockTitle(block *goquery.Selection, text string) (string, *goquery.Selection) {
	for _, tag := range []string{"h3", "h4", "h5", "strong"} {
		el := block.Find(tag).First()
		if el.Length() > 0 {
			if title := cleanText(el.Text()); len(title) > 3 {
				return title, el
			}
		}
	}

	var linkTitle string
	var linkEl *goquery.Selection
	block.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if t := cleanText(a.Text()); len(t) > 5 {
			linkTitle = t
			linkEl = a
			return false
		}
		return true
	})
	if linkTitle != "" {
		return linkTitle, linkEl
	}

	for _, line := range strings.Split(text, "\n") {
		line = cleanText(line)
		if len(line) > 5 && !strings.HasPrefix(line, "$") &&
			!strings.HasPrefix(strings.ToLower(line), "sku") {
			return line, nil
		}
	}
	return "", nil
}
