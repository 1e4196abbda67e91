package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bathingbrands/catalog-scraper/internal/models"
	"github.com/bathingbrands/catalog-scraper/internal/reconcile"
)

type fakeFetcher struct {
	failing map[string]bool
	fetched []string
}

func (f *fakeFetcher) Fetch(_ context.Context, pageURL string) (*goquery.Document, error) {
	if f.failing[pageURL] {
		return nil, fmt.Errorf("fetch failed: %s", pageURL)
	}
	f.fetched = append(f.fetched, pageURL)
	return goquery.NewDocumentFromReader(strings.NewReader("<html><body></body></html>"))
}

type fakeDiscoverer struct {
	brands      []models.Brand
	categories  map[string][]models.Category   // brand slug -> categories
	collections map[string][]models.Collection // category slug -> collections
	products    map[string][]string            // collection URL -> product URLs
}

func (d *fakeDiscoverer) Brands(_ context.Context) ([]models.Brand, error) {
	return d.brands, nil
}

func (d *fakeDiscoverer) Categories(_ context.Context, brand models.Brand) ([]models.Category, error) {
	return d.categories[brand.Slug], nil
}

func (d *fakeDiscoverer) Collections(_ context.Context, _ models.Brand, category models.Category) ([]models.Collection, error) {
	return d.collections[category.Slug], nil
}

func (d *fakeDiscoverer) Products(_ context.Context, _ models.Brand, collectionURL string) ([]string, error) {
	return d.products[collectionURL], nil
}

type fakeExtractor struct{}

func (fakeExtractor) Product(_ *goquery.Document, pageURL string) *models.ExtractedProduct {
	segs := strings.Split(strings.Trim(pageURL, "/"), "/")
	sku := strings.ToUpper(segs[len(segs)-1])
	brand := "HUUM"
	if strings.Contains(pageURL, "/harvia/") {
		brand = "Harvia"
	}
	return &models.ExtractedProduct{
		Title:     "Product " + sku,
		Brand:     brand,
		SKU:       sku,
		SourceURL: pageURL,
	}
}

type fakeReconciler struct {
	invalid map[string]bool // SKUs rejected by the validation gate
	saved   []string
	nextID  int64
}

func (r *fakeReconciler) Save(_ context.Context, ex *models.ExtractedProduct) (*models.Product, error) {
	if r.invalid[ex.SKU] {
		return nil, fmt.Errorf("%w: bad sku %s", reconcile.ErrInvalidProduct, ex.SKU)
	}
	r.nextID++
	r.saved = append(r.saved, ex.SKU)
	return &models.Product{ID: r.nextID, SKU: ex.SKU, Brand: ex.Brand}, nil
}

func (r *fakeReconciler) LinkRelated(_ context.Context, _ *models.Product, candidates []models.RelatedCandidate) int {
	return len(candidates)
}

func catalogTree() *fakeDiscoverer {
	return &fakeDiscoverer{
		brands: []models.Brand{
			{Name: "HUUM", Slug: "huum", URL: "https://x/products/huum/"},
			{Name: "Harvia", Slug: "harvia", URL: "https://x/products/harvia/"},
		},
		categories: map[string][]models.Category{
			"huum":   {{Name: "Electric Heaters", Slug: "electric-heaters", URL: "https://x/products/huum/electric-heaters/"}},
			"harvia": {{Name: "Electric Heaters", Slug: "harvia-heaters", URL: "https://x/products/harvia/heaters/"}},
		},
		collections: map[string][]models.Collection{
			"electric-heaters": {
				{Name: "Wall Mounted", Slug: "wall", URL: "https://x/huum/wall/"},
				{Name: "Floor Standing", Slug: "floor", URL: "https://x/huum/floor/"},
			},
			"harvia-heaters": {
				{Name: "Electric Heaters", Slug: "harvia-heaters", URL: "https://x/harvia/heaters/"},
			},
		},
		products: map[string][]string{
			"https://x/huum/wall/": {
				"https://x/1001/huum/drop-45",
				"https://x/1002/huum/drop-6",
			},
			// drop-6 appears in two collections; it must scrape once.
			"https://x/huum/floor/": {
				"https://x/1002/huum/drop-6",
				"https://x/1003/huum/hive-9",
			},
			"https://x/harvia/heaters/": {
				"https://x/2001/harvia/cilindro-90",
				"https://x/2002/harvia/kip-60",
			},
		},
	}
}

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func newTestSession(fetcher *fakeFetcher, discoverer *fakeDiscoverer, reconciler *fakeReconciler) (*Session, *sleepRecorder) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	session := New(fetcher, discoverer, fakeExtractor{}, reconciler, nil, logger)
	recorder := &sleepRecorder{}
	session.sleep = recorder.sleep
	return session, recorder
}

func TestRun_FullWalk(t *testing.T) {
	fetcher := &fakeFetcher{}
	reconciler := &fakeReconciler{}
	session, _ := newTestSession(fetcher, catalogTree(), reconciler)

	summary, err := session.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Attempted)
	assert.Equal(t, 5, summary.Saved)
	assert.Equal(t, 5, summary.Discovered)
	assert.Zero(t, summary.Failed)
	assert.Equal(t, 3, summary.PerBrand["HUUM"])
	assert.Equal(t, 2, summary.PerBrand["Harvia"])

	// The duplicate drop-6 URL scraped exactly once.
	assert.Equal(t, []string{"DROP-45", "DROP-6", "HIVE-9", "CILINDRO-90", "KIP-60"}, reconciler.saved)

	assert.NotNil(t, session.LastSummary())
}

func TestRun_PerBrandLimit(t *testing.T) {
	fetcher := &fakeFetcher{}
	reconciler := &fakeReconciler{}
	session, _ := newTestSession(fetcher, catalogTree(), reconciler)

	summary, err := session.Run(context.Background(), Options{LimitPerBrand: 2})
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Saved)
	assert.Equal(t, 2, summary.PerBrand["HUUM"])
	assert.Equal(t, 2, summary.PerBrand["Harvia"])
}

func TestRun_GlobalLimitWins(t *testing.T) {
	fetcher := &fakeFetcher{}
	reconciler := &fakeReconciler{}
	session, _ := newTestSession(fetcher, catalogTree(), reconciler)

	// Per-brand would allow 3+2, but the global budget stops at 4.
	summary, err := session.Run(context.Background(), Options{Limit: 4, LimitPerBrand: 3})
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Attempted)
	assert.Equal(t, 3, summary.PerBrand["HUUM"])
	assert.Equal(t, 1, summary.PerBrand["Harvia"])
}

func TestRun_BrandFilter(t *testing.T) {
	fetcher := &fakeFetcher{}
	reconciler := &fakeReconciler{}
	session, _ := newTestSession(fetcher, catalogTree(), reconciler)

	summary, err := session.Run(context.Background(), Options{Brand: "harvia"})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Saved)
	assert.Empty(t, summary.PerBrand["HUUM"])
}

func TestRun_StartFromBrand(t *testing.T) {
	fetcher := &fakeFetcher{}
	reconciler := &fakeReconciler{}
	session, _ := newTestSession(fetcher, catalogTree(), reconciler)

	summary, err := session.Run(context.Background(), Options{StartFromBrand: "Harvia"})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Saved)
	assert.Zero(t, summary.PerBrand["HUUM"])
	assert.Equal(t, 2, summary.PerBrand["Harvia"])
}

func TestRun_DryRun(t *testing.T) {
	fetcher := &fakeFetcher{}
	reconciler := &fakeReconciler{}
	session, _ := newTestSession(fetcher, catalogTree(), reconciler)

	summary, err := session.Run(context.Background(), Options{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Discovered)
	assert.Zero(t, summary.Attempted)
	assert.Empty(t, fetcher.fetched)
	assert.Empty(t, reconciler.saved)
}

func TestRun_FetchFailureIsolated(t *testing.T) {
	fetcher := &fakeFetcher{failing: map[string]bool{
		"https://x/1002/huum/drop-6": true,
	}}
	reconciler := &fakeReconciler{}
	session, _ := newTestSession(fetcher, catalogTree(), reconciler)

	summary, err := session.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Attempted)
	assert.Equal(t, 4, summary.Saved)
	assert.Equal(t, 1, summary.Failed)
}

func TestRun_InvalidProductSkipped(t *testing.T) {
	fetcher := &fakeFetcher{}
	reconciler := &fakeReconciler{invalid: map[string]bool{"HIVE-9": true}}
	session, _ := newTestSession(fetcher, catalogTree(), reconciler)

	summary, err := session.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Saved)
	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, summary.Failed)
}

func TestRun_Delays(t *testing.T) {
	fetcher := &fakeFetcher{}
	reconciler := &fakeReconciler{}
	session, recorder := newTestSession(fetcher, catalogTree(), reconciler)

	_, err := session.Run(context.Background(), Options{
		Delay:      time.Second,
		BrandDelay: 2 * time.Second,
	})
	require.NoError(t, err)

	// 5 product delays plus 1 brand delay.
	require.Len(t, recorder.delays, 6)
	assert.Contains(t, recorder.delays, 2*time.Second)
}

func TestScrapeOne(t *testing.T) {
	fetcher := &fakeFetcher{}
	reconciler := &fakeReconciler{}
	session, _ := newTestSession(fetcher, catalogTree(), reconciler)

	p, err := session.ScrapeOne(context.Background(), "https://x/1001/huum/drop-45")
	require.NoError(t, err)
	assert.Equal(t, "DROP-45", p.SKU)
	assert.Equal(t, []string{"DROP-45"}, reconciler.saved)
}
