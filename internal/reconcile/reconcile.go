// Package reconcile merges freshly extracted product data into the store.
// Products upsert by SKU with last-write-wins scalars; owned child rows
// (images, specifications, documents) are replaced wholesale so stale rows
// from earlier scrapes cannot linger. Related-product candidates resolve
// against already persisted products only.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bathingbrands/catalog-scraper/internal/database"
	"github.com/bathingbrands/catalog-scraper/internal/models"
	"github.com/bathingbrands/catalog-scraper/internal/validate"
)

// ErrInvalidProduct is returned when an extraction fails the final
// validation gate and nothing is persisted.
var ErrInvalidProduct = errors.New("extracted product failed validation")

// Store is the persistence boundary the reconciler drives.
type Store interface {
	FindBySKU(ctx context.Context, sku string) (*models.Product, error)
	FindByModelAndTitle(ctx context.Context, model, titlePrefix string) (*models.Product, error)
	ResolveSlug(ctx context.Context, base string) (string, error)
	SaveProduct(ctx context.Context, p *models.Product, images []models.ProductImage, specs []models.ProductSpecification, docs []models.ProductDocument) error
	CreateRelation(ctx context.Context, rel *models.RelatedProduct) (bool, error)
}

type Reconciler struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		logger: logger.With("component", "reconciler"),
	}
}

// Save validates and persists one extracted product. An invalid title,
// brand or SKU aborts the save; an invalid price degrades to nil. The slug
// is computed once, on first insert, and existing slugs are never touched.
func (r *Reconciler) Save(ctx context.Context, ex *models.ExtractedProduct) (*models.Product, error) {
	switch {
	case !validate.Title(ex.Title):
		return nil, fmt.Errorf("%w: bad title %q (url %s)", ErrInvalidProduct, ex.Title, ex.SourceURL)
	case !validate.Brand(ex.Brand):
		return nil, fmt.Errorf("%w: bad brand %q (url %s)", ErrInvalidProduct, ex.Brand, ex.SourceURL)
	case !validate.SKU(ex.SKU):
		return nil, fmt.Errorf("%w: bad sku %q (url %s)", ErrInvalidProduct, ex.SKU, ex.SourceURL)
	}

	price := ex.Price
	if !validate.Price(price) {
		r.logger.Warn("dropping out-of-range price", "sku", ex.SKU, "price", *price)
		price = nil
	}

	existing, err := r.store.FindBySKU(ctx, ex.SKU)
	if err != nil {
		return nil, fmt.Errorf("lookup by sku %s: %w", ex.SKU, err)
	}

	p := &models.Product{
		SKU:              ex.SKU,
		Title:            ex.Title,
		Brand:            ex.Brand,
		Model:            ex.Model,
		Category:         ex.Category,
		Subcategory:      ex.Subcategory,
		ShortDescription: ex.ShortDescription,
		FullDescription:  ex.FullDescription,
		Features:         ex.Features,
		TechnicalInfo:    ex.TechnicalInfo,
		Includes:         ex.Includes,
		ShippingInfo:     ex.ShippingInfo,
		Inspiration:      ex.Inspiration,
		Price:            price,
		SourceURL:        ex.SourceURL,
		IsActive:         true,
	}

	if existing != nil && existing.Slug != "" {
		p.Slug = existing.Slug
	} else {
		base := database.Slugify(ex.Brand, ex.Title, ex.SKU)
		slug, err := r.store.ResolveSlug(ctx, base)
		if err != nil {
			return nil, fmt.Errorf("resolve slug for %s: %w", ex.SKU, err)
		}
		p.Slug = slug
	}

	if err := r.store.SaveProduct(ctx, p,
		buildImages(ex.Images),
		buildSpecifications(ex.Specifications),
		buildDocuments(ex.Documents),
	); err != nil {
		return nil, fmt.Errorf("save product %s: %w", ex.SKU, err)
	}

	r.logger.Info("product saved",
		"sku", p.SKU,
		"brand", p.Brand,
		"slug", p.Slug,
		"updated", existing != nil,
		"images", len(ex.Images),
		"specs", len(ex.Specifications),
		"documents", len(ex.Documents))

	return p, nil
}

// LinkRelated resolves related-product candidates against the store and
// creates edges for the ones that match a persisted product: exact SKU
// first, then model plus title prefix. Unresolved candidates are logged
// and dropped. Returns the number of edges created.
func (r *Reconciler) LinkRelated(ctx context.Context, main *models.Product, candidates []models.RelatedCandidate) int {
	created := 0

	for _, candidate := range candidates {
		target, err := r.resolve(ctx, candidate)
		if err != nil {
			r.logger.Error("related candidate lookup failed",
				"main_sku", main.SKU, "candidate", candidate.Title, "error", err)
			continue
		}
		if target == nil {
			r.logger.Info("related candidate not in catalog yet",
				"main_sku", main.SKU,
				"candidate", candidate.Title,
				"candidate_sku", candidate.SKU,
				"section", candidate.Section)
			continue
		}
		if target.ID == main.ID {
			continue
		}

		ok, err := r.store.CreateRelation(ctx, &models.RelatedProduct{
			MainProductID:    main.ID,
			RelatedProductID: target.ID,
			RelationType:     candidate.Type,
			IsMandatory:      candidate.Type == models.RelationRequiredOperation,
			Quantity:         1,
			Description:      candidate.Subtitle,
		})
		if err != nil {
			r.logger.Error("failed to create relation",
				"main_sku", main.SKU, "related_sku", target.SKU, "error", err)
			continue
		}
		if ok {
			created++
		}
	}

	if created > 0 {
		r.logger.Info("linked related products", "sku", main.SKU, "created", created)
	}
	return created
}

func (r *Reconciler) resolve(ctx context.Context, candidate models.RelatedCandidate) (*models.Product, error) {
	if candidate.SKU != "" {
		target, err := r.store.FindBySKU(ctx, candidate.SKU)
		if err != nil || target != nil {
			return target, err
		}
	}

	if candidate.Model != "" && candidate.Title != "" {
		prefix := candidate.Title
		if len(prefix) > 20 {
			prefix = prefix[:20]
		}
		return r.store.FindByModelAndTitle(ctx, candidate.Model, prefix)
	}

	return nil, nil
}

// buildImages orders the candidates and marks the first one primary.
func buildImages(candidates []models.ImageCandidate) []models.ProductImage {
	images := make([]models.ProductImage, 0, len(candidates))
	for i, c := range candidates {
		images = append(images, models.ProductImage{
			ImageURL:  c.URL,
			AltText:   c.AltText,
			ImageType: c.Type,
			IsPrimary: i == 0,
			Position:  i,
		})
	}
	return images
}

// buildSpecifications keeps the first value seen for each name.
func buildSpecifications(specs []models.Specification) []models.ProductSpecification {
	seen := make(map[string]struct{}, len(specs))
	out := make([]models.ProductSpecification, 0, len(specs))
	for _, s := range specs {
		if _, dup := seen[s.Name]; dup {
			continue
		}
		seen[s.Name] = struct{}{}
		out = append(out, models.ProductSpecification{Name: s.Name, Value: s.Value})
	}
	return out
}

func buildDocuments(candidates []models.DocumentCandidate) []models.ProductDocument {
	docs := make([]models.ProductDocument, 0, len(candidates))
	for _, c := range candidates {
		docs = append(docs, models.ProductDocument{
			Title:        c.Title,
			DocumentURL:  c.URL,
			DocumentType: c.Type,
		})
	}
	return docs
}
