// Package hierarchy walks the catalog's navigation tree: brands on the
// products index, categories under a brand, collections under a category,
// and finally product page URLs. The tree is ephemeral; it is rebuilt on
// every run and never persisted.
package hierarchy

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bathingbrands/catalog-scraper/internal/models"
)

// Fetcher retrieves a page as a parsed document.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*goquery.Document, error)
}

var productPathRe = regexp.MustCompile(`^/\d+/`)

type Discoverer struct {
	fetcher     Fetcher
	baseURL     string
	knownBrands []string
	logger      *slog.Logger
}

func New(fetcher Fetcher, baseURL string, knownBrands []string, logger *slog.Logger) *Discoverer {
	return &Discoverer{
		fetcher:     fetcher,
		baseURL:     strings.TrimRight(baseURL, "/"),
		knownBrands: knownBrands,
		logger:      logger.With("component", "discoverer"),
	}
}

// Brands finds brand landing pages on the products index. Known brands
// missing from the index get a synthesized URL, so a nav rework on the
// site cannot silently drop a whole brand from the run.
func (d *Discoverer) Brands(ctx context.Context) ([]models.Brand, error) {
	indexURL := d.baseURL + "/products/"
	doc, err := d.fetcher.Fetch(ctx, indexURL)
	if err != nil {
		return nil, fmt.Errorf("fetch products index: %w", err)
	}

	found := make(map[string]string)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		text := cleanText(a.Text())
		for _, known := range d.knownBrands {
			if !equalBrand(text, known) {
				continue
			}
			if _, dup := found[known]; dup {
				continue
			}
			href, _ := a.Attr("href")
			found[known] = d.resolve(href)
		}
	})

	var brands []models.Brand
	for _, known := range d.knownBrands {
		slug := models.BrandSlug(known)
		brandURL, ok := found[known]
		if !ok {
			brandURL = fmt.Sprintf("%s/products/%s/", d.baseURL, slug)
			d.logger.Debug("brand missing from index, synthesized url",
				"brand", known, "url", brandURL)
		}
		brands = append(brands, models.Brand{Name: known, Slug: slug, URL: brandURL})
	}

	d.logger.Info("discovered brands", "total", len(brands), "from_index", len(found))
	return brands, nil
}

// Categories finds category links on a brand page: links whose path
// extends the brand path by exactly one segment.
func (d *Discoverer) Categories(ctx context.Context, brand models.Brand) ([]models.Category, error) {
	doc, err := d.fetcher.Fetch(ctx, brand.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch brand page %s: %w", brand.Slug, err)
	}

	var categories []models.Category
	for _, link := range d.childLinks(doc, brand.URL) {
		categories = append(categories, models.Category{
			Name: link.text,
			Slug: lastSegment(link.href),
			URL:  link.href,
		})
	}

	d.logger.Info("discovered categories", "brand", brand.Slug, "total", len(categories))
	return categories, nil
}

// Collections finds collection links on a category page. A category page
// that lists products directly has no collection layer; it is represented
// as a single self-referential collection so the walk stays uniform.
func (d *Discoverer) Collections(ctx context.Context, brand models.Brand, category models.Category) ([]models.Collection, error) {
	doc, err := d.fetcher.Fetch(ctx, category.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch category page %s/%s: %w", brand.Slug, category.Slug, err)
	}

	var collections []models.Collection
	for _, link := range d.childLinks(doc, category.URL) {
		if productPathRe.MatchString(pathOf(link.href)) {
			continue
		}
		collections = append(collections, models.Collection{
			Name: link.text,
			Slug: lastSegment(link.href),
			URL:  link.href,
		})
	}

	if len(collections) == 0 {
		collections = append(collections, models.Collection{
			Name: category.Name,
			Slug: category.Slug,
			URL:  category.URL,
		})
	}

	d.logger.Info("discovered collections",
		"brand", brand.Slug, "category", category.Slug, "total", len(collections))
	return collections, nil
}

// Products finds product page URLs on a collection page. A product link
// starts with a numeric ID segment and must carry this brand's slug in
// its path; links to other brands' products are rejected, since listing
// pages routinely cross-link promotions from sibling brands.
func (d *Discoverer) Products(ctx context.Context, brand models.Brand, collectionURL string) ([]string, error) {
	doc, err := d.fetcher.Fetch(ctx, collectionURL)
	if err != nil {
		return nil, fmt.Errorf("fetch collection page: %w", err)
	}

	seen := make(map[string]struct{})
	var products []string

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		absolute := d.resolve(href)
		path := pathOf(absolute)

		if !d.isProductPath(path) {
			return
		}
		if !strings.Contains(strings.ToLower(path), "/"+brand.Slug+"/") {
			d.logger.Debug("rejected cross-brand product link",
				"brand", brand.Slug, "url", absolute)
			return
		}
		if _, dup := seen[absolute]; dup {
			return
		}
		seen[absolute] = struct{}{}
		products = append(products, absolute)
	})

	d.logger.Info("discovered products", "brand", brand.Slug, "url", collectionURL, "total", len(products))
	return products, nil
}

func (d *Discoverer) isProductPath(path string) bool {
	if productPathRe.MatchString(path) {
		return true
	}
	// Deep /products/ URLs are product pages too on some layouts.
	return strings.HasPrefix(path, "/products/") && len(segments(path)) >= 5
}

type link struct {
	text string
	href string
}

// childLinks returns links whose path extends parentURL's path by exactly
// one segment, with nonempty anchor text.
func (d *Discoverer) childLinks(doc *goquery.Document, parentURL string) []link {
	parentSegs := segments(pathOf(parentURL))

	seen := make(map[string]struct{})
	var links []link

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		text := cleanText(a.Text())
		if text == "" {
			return
		}

		raw, _ := a.Attr("href")
		href := d.resolve(raw)
		path := pathOf(href)
		segs := segments(path)
		if len(segs) != len(parentSegs)+1 {
			return
		}
		if !strings.HasPrefix(path, strings.TrimRight(pathOf(parentURL), "/")+"/") {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}
		links = append(links, link{text: text, href: href})
	})

	return links
}

func (d *Discoverer) resolve(href string) string {
	href = strings.TrimSpace(href)
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "//"):
		return "https:" + href
	case strings.HasPrefix(href, "/"):
		return d.baseURL + href
	}
	return href
}

func equalBrand(a, b string) bool {
	norm := func(s string) string {
		s = strings.ToLower(s)
		return strings.Map(func(r rune) rune {
			switch r {
			case '.', ',', '\'', ' ', '-':
				return -1
			}
			return r
		}, s)
	}
	return norm(a) == norm(b)
}

func pathOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Path
}

func segments(path string) []string {
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

func lastSegment(rawURL string) string {
	segs := segments(pathOf(rawURL))
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
