package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bathingbrands/catalog-scraper/internal/models"
	"github.com/bathingbrands/catalog-scraper/internal/validate"
)

var (
	galleryClassRe   = regexp.MustCompile(`(?i)product|gallery|carousel|zoom`)
	imageContainerRe = regexp.MustCompile(`(?i)image|photo|gallery`)
	productAltRe     = regexp.MustCompile(`(?i)product|heater|sauna|steam|bathing`)
)

// Images collects product images from four overlapping sources: gallery
// class patterns, lazy-load data attributes, image-ish containers, and
// product-domain alt text. Candidates resolve to absolute URLs, get
// validated, and dedupe in first-seen order. The caller marks the first
// survivor primary.
func (e *Extractor) Images(doc *goquery.Document, pageURL string) []models.ImageCandidate {
	var candidates []*goquery.Selection

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		class, _ := img.Attr("class")
		if galleryClassRe.MatchString(class) {
			candidates = append(candidates, img)
		}
	})

	doc.Find("img[data-src], img[data-zoom], img[data-large]").Each(func(_ int, img *goquery.Selection) {
		candidates = append(candidates, img)
	})

	doc.Find("div, section").Each(func(_ int, container *goquery.Selection) {
		class, _ := container.Attr("class")
		if !imageContainerRe.MatchString(class) {
			return
		}
		container.Find("img").Each(func(_ int, img *goquery.Selection) {
			candidates = append(candidates, img)
		})
	})

	doc.Find("img[alt]").Each(func(_ int, img *goquery.Selection) {
		alt, _ := img.Attr("alt")
		if productAltRe.MatchString(alt) {
			candidates = append(candidates, img)
		}
	})

	seen := make(map[string]struct{})
	var images []models.ImageCandidate

	for _, img := range candidates {
		src := firstAttr(img, "data-src", "data-zoom", "data-large", "src")
		if src == "" {
			continue
		}

		imgURL := e.resolveURL(src, pageURL)
		if !validate.ImageURL(imgURL) {
			continue
		}
		if _, dup := seen[imgURL]; dup {
			continue
		}
		seen[imgURL] = struct{}{}

		alt, _ := img.Attr("alt")
		images = append(images, models.ImageCandidate{
			URL:     imgURL,
			AltText: cleanText(alt),
			Type:    classifyImage(img, alt),
		})
	}

	return images
}

func classifyImage(img *goquery.Selection, alt string) models.ImageType {
	class, _ := img.Attr("class")
	lowerAlt := strings.ToLower(alt)

	switch {
	case strings.Contains(strings.ToLower(class), "gallery"):
		return models.ImageGallery
	case strings.Contains(lowerAlt, "technical"):
		return models.ImageTechnical
	case strings.Contains(lowerAlt, "lifestyle"):
		return models.ImageLifestyle
	default:
		return models.ImageMain
	}
}

func firstAttr(s *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v, ok := s.Attr(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
