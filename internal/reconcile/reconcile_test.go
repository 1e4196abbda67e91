package reconcile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bathingbrands/catalog-scraper/internal/models"
)

type savedProduct struct {
	product *models.Product
	images  []models.ProductImage
	specs   []models.ProductSpecification
	docs    []models.ProductDocument
}

type fakeStore struct {
	products  map[string]*models.Product
	slugs     map[string]bool
	nextID    int64
	saves     []savedProduct
	relations []models.RelatedProduct
	saveErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products: make(map[string]*models.Product),
		slugs:    make(map[string]bool),
	}
}

func (s *fakeStore) FindBySKU(_ context.Context, sku string) (*models.Product, error) {
	return s.products[sku], nil
}

func (s *fakeStore) FindByModelAndTitle(_ context.Context, model, titlePrefix string) (*models.Product, error) {
	for _, p := range s.products {
		if p.Model == model && strings.HasPrefix(strings.ToLower(p.Title), strings.ToLower(titlePrefix)) {
			return p, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ResolveSlug(_ context.Context, base string) (string, error) {
	candidate := base
	for suffix := 1; s.slugs[candidate]; suffix++ {
		candidate = fmt.Sprintf("%s-%d", base, suffix)
	}
	return candidate, nil
}

func (s *fakeStore) SaveProduct(_ context.Context, p *models.Product, images []models.ProductImage, specs []models.ProductSpecification, docs []models.ProductDocument) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	if existing, ok := s.products[p.SKU]; ok {
		p.ID = existing.ID
	} else {
		s.nextID++
		p.ID = s.nextID
	}
	stored := *p
	s.products[p.SKU] = &stored
	s.slugs[p.Slug] = true
	s.saves = append(s.saves, savedProduct{product: &stored, images: images, specs: specs, docs: docs})
	return nil
}

func (s *fakeStore) CreateRelation(_ context.Context, rel *models.RelatedProduct) (bool, error) {
	for _, existing := range s.relations {
		if existing.MainProductID == rel.MainProductID &&
			existing.RelatedProductID == rel.RelatedProductID &&
			existing.RelationType == rel.RelationType {
			return false, nil
		}
	}
	s.relations = append(s.relations, *rel)
	return true, nil
}

func newTestReconciler(store *fakeStore) *Reconciler {
	return New(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func extracted() *models.ExtractedProduct {
	price := 1299.99
	return &models.ExtractedProduct{
		Title:     "HUUM DROP 4.5",
		Brand:     "HUUM",
		SKU:       "HUUM-DROP-45",
		Model:     "DROP-45",
		Category:  "Electric Heaters",
		Price:     &price,
		SourceURL: "https://bathingbrands.com/54661/huum/drop-45/electric-heaters",
		Images: []models.ImageCandidate{
			{URL: "https://bathingbrands.com/images/a.jpg", Type: models.ImageMain},
			{URL: "https://bathingbrands.com/images/b.jpg", Type: models.ImageGallery},
		},
		Specifications: []models.Specification{
			{Name: "Power", Value: "4.5 kW"},
			{Name: "Power", Value: "6.0 kW"},
			{Name: "Voltage", Value: "240V"},
		},
		Documents: []models.DocumentCandidate{
			{Title: "Installation Manual", URL: "https://bathingbrands.com/docs/a.pdf", Type: models.DocInstallation},
		},
	}
}

func TestSave_NewProduct(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store)

	p, err := r.Save(context.Background(), extracted())
	require.NoError(t, err)

	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "huum-huum-drop-4-5-huum-drop-45", p.Slug)
	assert.True(t, p.IsActive)

	require.Len(t, store.saves, 1)
	saved := store.saves[0]

	require.Len(t, saved.images, 2)
	assert.True(t, saved.images[0].IsPrimary)
	assert.False(t, saved.images[1].IsPrimary)
	assert.Equal(t, 1, saved.images[1].Position)

	// Duplicate spec names collapse to the first value.
	require.Len(t, saved.specs, 2)
	assert.Equal(t, "4.5 kW", saved.specs[0].Value)

	require.Len(t, saved.docs, 1)
	assert.Equal(t, models.DocInstallation, saved.docs[0].DocumentType)
}

func TestSave_ValidationGate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.ExtractedProduct)
	}{
		{"bad title", func(ex *models.ExtractedProduct) { ex.Title = "Er" }},
		{"bad brand", func(ex *models.ExtractedProduct) { ex.Brand = "n/a" }},
		{"bad sku", func(ex *models.ExtractedProduct) { ex.SKU = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			r := newTestReconciler(store)

			ex := extracted()
			tt.mutate(ex)

			_, err := r.Save(context.Background(), ex)
			require.ErrorIs(t, err, ErrInvalidProduct)
			assert.Empty(t, store.saves)
		})
	}
}

func TestSave_OutOfRangePriceDegradesToNil(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store)

	ex := extracted()
	bad := 250000.0
	ex.Price = &bad

	p, err := r.Save(context.Background(), ex)
	require.NoError(t, err)
	assert.Nil(t, p.Price)
}

func TestSave_ExistingSlugSurvivesRescrape(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store)

	_, err := r.Save(context.Background(), extracted())
	require.NoError(t, err)

	ex := extracted()
	ex.Title = "HUUM DROP 4.5 Electric Sauna Heater"

	p, err := r.Save(context.Background(), ex)
	require.NoError(t, err)

	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "huum-huum-drop-4-5-huum-drop-45", p.Slug)
	assert.Equal(t, "HUUM DROP 4.5 Electric Sauna Heater", p.Title)
}

func TestSave_SlugCollisionGetsSuffix(t *testing.T) {
	store := newFakeStore()
	store.slugs["huum-huum-drop-4-5-huum-drop-45"] = true

	r := newTestReconciler(store)

	p, err := r.Save(context.Background(), extracted())
	require.NoError(t, err)
	assert.Equal(t, "huum-huum-drop-4-5-huum-drop-45-1", p.Slug)
}

func TestLinkRelated(t *testing.T) {
	ctx := context.Background()

	seed := func(store *fakeStore, sku, title, model string) *models.Product {
		store.nextID++
		p := &models.Product{ID: store.nextID, SKU: sku, Title: title, Model: model}
		store.products[sku] = p
		return p
	}

	t.Run("resolves by exact sku", func(t *testing.T) {
		store := newFakeStore()
		main := seed(store, "HUUM-DROP-45", "HUUM DROP 4.5", "DROP-45")
		target := seed(store, "UKU-LOCAL", "UKU Local Control", "UKU-L")

		created := newTestReconciler(store).LinkRelated(ctx, main, []models.RelatedCandidate{
			{Title: "UKU Local Control", SKU: "UKU-LOCAL", Type: models.RelationRequiredOperation},
		})

		assert.Equal(t, 1, created)
		require.Len(t, store.relations, 1)
		rel := store.relations[0]
		assert.Equal(t, main.ID, rel.MainProductID)
		assert.Equal(t, target.ID, rel.RelatedProductID)
		assert.True(t, rel.IsMandatory)
		assert.Equal(t, 1, rel.Quantity)
	})

	t.Run("falls back to model and title prefix", func(t *testing.T) {
		store := newFakeStore()
		main := seed(store, "HUUM-DROP-45", "HUUM DROP 4.5", "DROP-45")
		target := seed(store, "UKU-WIFI", "UKU WiFi Control", "UKU-W")

		created := newTestReconciler(store).LinkRelated(ctx, main, []models.RelatedCandidate{
			{Title: "UKU WiFi Control", Model: "UKU-W", Type: models.RelationHeaterControl},
		})

		assert.Equal(t, 1, created)
		require.Len(t, store.relations, 1)
		assert.Equal(t, target.ID, store.relations[0].RelatedProductID)
		assert.False(t, store.relations[0].IsMandatory)
	})

	t.Run("unresolved candidates are dropped", func(t *testing.T) {
		store := newFakeStore()
		main := seed(store, "HUUM-DROP-45", "HUUM DROP 4.5", "DROP-45")

		created := newTestReconciler(store).LinkRelated(ctx, main, []models.RelatedCandidate{
			{Title: "Not Scraped Yet", SKU: "MISSING-1", Type: models.RelationAccessory},
		})

		assert.Zero(t, created)
		assert.Empty(t, store.relations)
	})

	t.Run("self reference is skipped", func(t *testing.T) {
		store := newFakeStore()
		main := seed(store, "HUUM-DROP-45", "HUUM DROP 4.5", "DROP-45")

		created := newTestReconciler(store).LinkRelated(ctx, main, []models.RelatedCandidate{
			{Title: "HUUM DROP 4.5", SKU: "HUUM-DROP-45", Type: models.RelationRelatedItem},
		})

		assert.Zero(t, created)
		assert.Empty(t, store.relations)
	})

	t.Run("existing edge is not recounted", func(t *testing.T) {
		store := newFakeStore()
		main := seed(store, "HUUM-DROP-45", "HUUM DROP 4.5", "DROP-45")
		target := seed(store, "UKU-LOCAL", "UKU Local Control", "UKU-L")
		store.relations = append(store.relations, models.RelatedProduct{
			MainProductID:    main.ID,
			RelatedProductID: target.ID,
			RelationType:     models.RelationRequiredOperation,
		})

		created := newTestReconciler(store).LinkRelated(ctx, main, []models.RelatedCandidate{
			{Title: "UKU Local Control", SKU: "UKU-LOCAL", Type: models.RelationRequiredOperation},
		})

		assert.Zero(t, created)
		assert.Len(t, store.relations, 1)
	})
}
