package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bathingbrands/catalog-scraper/internal/models"
)

func TestImages(t *testing.T) {
	e := newTestExtractor(t)
	pageURL := "https://bathingbrands.com/54661/huum/drop-45/electric-heaters"

	t.Run("lazy load attribute wins over src", func(t *testing.T) {
		doc := parseHTML(t, `<html><body>
			<img class="product-main" src="/images/placeholder.gif" data-src="/images/real.jpg" alt="">
		</body></html>`)

		images := e.Images(doc, pageURL)
		require.Len(t, images, 1)
		assert.Equal(t, "https://bathingbrands.com/images/real.jpg", images[0].URL)
	})

	t.Run("deduped across sources", func(t *testing.T) {
		// Same image matches the gallery class rule, the container rule
		// and the alt text rule; it must appear once.
		doc := parseHTML(t, `<html><body>
			<div class="image-gallery">
				<img class="gallery-item" src="/images/one.jpg" alt="sauna heater front view">
			</div>
		</body></html>`)

		images := e.Images(doc, pageURL)
		require.Len(t, images, 1)
		assert.Equal(t, models.ImageGallery, images[0].Type)
		assert.Equal(t, "sauna heater front view", images[0].AltText)
	})

	t.Run("non image urls rejected", func(t *testing.T) {
		doc := parseHTML(t, `<html><body>
			<img class="product-main" src="/images/spinner.svg" alt="">
			<img class="product-main" src="/images/ok.png" alt="">
		</body></html>`)

		images := e.Images(doc, pageURL)
		require.Len(t, images, 1)
		assert.Equal(t, "https://bathingbrands.com/images/ok.png", images[0].URL)
	})

	t.Run("alt text classification", func(t *testing.T) {
		doc := parseHTML(t, `<html><body>
			<img class="product-img" src="/a.jpg" alt="technical drawing">
			<img class="product-img" src="/b.jpg" alt="lifestyle shot">
			<img class="product-img" src="/c.jpg" alt="heater">
		</body></html>`)

		images := e.Images(doc, pageURL)
		require.Len(t, images, 3)
		assert.Equal(t, models.ImageTechnical, images[0].Type)
		assert.Equal(t, models.ImageLifestyle, images[1].Type)
		assert.Equal(t, models.ImageMain, images[2].Type)
	})
}

func TestSpecifications(t *testing.T) {
	e := newTestExtractor(t)

	t.Run("merges sources with first value winning", func(t *testing.T) {
		// The table says 4.5 kW; the list and the raw text disagree. The
		// table is scanned first, so its value sticks.
		doc := parseHTML(t, `<html><body>
			<table>
				<tr><td>Power</td><td>4.5 kW</td></tr>
				<tr><td>Voltage</td><td>240V</td></tr>
			</table>
			<ul class="spec-list">
				<li>Power: 6.0 kW</li>
				<li>Stone Capacity: 55 lbs</li>
			</ul>
			<dl>
				<dt>Warranty</dt><dd>5 years</dd>
			</dl>
		</body></html>`)

		specs := e.Specifications(doc)

		byName := map[string]string{}
		for _, s := range specs {
			byName[s.Name] = s.Value
		}
		assert.Equal(t, "4.5 kW", byName["Power"])
		assert.Equal(t, "240V", byName["Voltage"])
		assert.Equal(t, "55 lbs", byName["Stone Capacity"])
		assert.Equal(t, "5 years", byName["Warranty"])
	})

	t.Run("quantities from raw text", func(t *testing.T) {
		doc := parseHTML(t, `<html><body>
			<p>This 6 kW heater runs on 240V and weighs 48 lbs.</p>
		</body></html>`)

		specs := e.Specifications(doc)

		byName := map[string]string{}
		for _, s := range specs {
			byName[s.Name] = s.Value
		}
		assert.Equal(t, "6", byName["Power"])
		assert.Equal(t, "240", byName["Voltage"])
		assert.Equal(t, "48", byName["Weight"])
	})

	t.Run("unmarked lists ignored", func(t *testing.T) {
		doc := parseHTML(t, `<html><body>
			<ul><li>Note: not a spec list</li></ul>
		</body></html>`)
		assert.Empty(t, e.Specifications(doc))
	})
}

func TestDocuments(t *testing.T) {
	e := newTestExtractor(t)

	t.Run("classified by link text", func(t *testing.T) {
		doc := parseHTML(t, `<html><body>
			<a href="/docs/install.pdf">Installation Guide</a>
			<a href="/docs/warranty.pdf">Warranty Card</a>
			<a href="/docs/spec-sheet.PDF">Specification Sheet</a>
			<a href="/docs/owners.pdf">Owner Handbook</a>
			<a href="/huum/drop-45/">Product page link</a>
		</body></html>`)

		docs := e.Documents(doc, "https://bathingbrands.com/products/huum/drop-45/")
		require.Len(t, docs, 4)
		assert.Equal(t, models.DocInstallation, docs[0].Type)
		assert.Equal(t, models.DocWarranty, docs[1].Type)
		assert.Equal(t, models.DocSpecification, docs[2].Type)
		assert.Equal(t, models.DocManual, docs[3].Type)
		assert.Equal(t, "https://bathingbrands.com/docs/install.pdf", docs[0].URL)
	})

	t.Run("title attribute fallback", func(t *testing.T) {
		doc := parseHTML(t, `<html><body>
			<a href="/docs/a.pdf" title="Harvia Manual"><img src="/icons/pdf.png"></a>
			<a href="/docs/b.pdf"><img src="/icons/pdf.png"></a>
		</body></html>`)

		docs := e.Documents(doc, "https://bathingbrands.com/products/huum/drop-45/")
		require.Len(t, docs, 2)
		assert.Equal(t, "Harvia Manual", docs[0].Title)
		assert.Equal(t, "Document", docs[1].Title)
	})

	t.Run("duplicate links collapse", func(t *testing.T) {
		doc := parseHTML(t, `<html><body>
			<a href="/docs/a.pdf">Manual</a>
			<a href="/docs/a.pdf">Manual</a>
		</body></html>`)
		assert.Len(t, e.Documents(doc, "https://bathingbrands.com/products/huum/drop-45/"), 1)
	})

	t.Run("bare relative href resolves against the page", func(t *testing.T) {
		doc := parseHTML(t, `<html><body>
			<a href="manuals/drop-45.pdf">Owner Handbook</a>
		</body></html>`)

		docs := e.Documents(doc, "https://bathingbrands.com/products/huum/drop-45/")
		require.Len(t, docs, 1)
		assert.Equal(t, "https://bathingbrands.com/products/huum/drop-45/manuals/drop-45.pdf", docs[0].URL)
	})
}
