package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bathingbrands/catalog-scraper/internal/models"
)

// ProductStore bundles the product repository with the outbox so a save is
// one transaction: upsert, replace child rows, enqueue the scraped event.
type ProductStore struct {
	db       *DB
	products *ProductRepository
	outbox   *OutboxRepository
	stream   string
}

// NewProductStore wires the repositories together. stream names the Redis
// stream that scraped-product events target; empty falls back to
// DefaultStream at insert time.
func NewProductStore(db *DB, stream string) *ProductStore {
	return &ProductStore{
		db:       db,
		products: NewProductRepository(db),
		outbox:   NewOutboxRepository(db),
		stream:   stream,
	}
}

func (s *ProductStore) FindBySKU(ctx context.Context, sku string) (*models.Product, error) {
	return s.products.FindBySKU(ctx, sku)
}

func (s *ProductStore) FindByModelAndTitle(ctx context.Context, model, titlePrefix string) (*models.Product, error) {
	return s.products.FindByModelAndTitle(ctx, model, titlePrefix)
}

func (s *ProductStore) ResolveSlug(ctx context.Context, base string) (string, error) {
	return s.products.ResolveSlug(ctx, base)
}

func (s *ProductStore) CreateRelation(ctx context.Context, rel *models.RelatedProduct) (bool, error) {
	return s.products.CreateRelation(ctx, rel)
}

func (s *ProductStore) CountByBrand(ctx context.Context) (map[string]int, error) {
	return s.products.CountByBrand(ctx)
}

// SaveProduct upserts the product, replaces its owned child rows and
// enqueues a product.scraped outbox event, all in one transaction.
func (s *ProductStore) SaveProduct(ctx context.Context, p *models.Product, images []models.ProductImage, specs []models.ProductSpecification, docs []models.ProductDocument) error {
	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.products.Upsert(ctx, tx, p); err != nil {
			return err
		}

		if err := s.products.ReplaceImages(ctx, tx, p.ID, images); err != nil {
			return err
		}
		if err := s.products.ReplaceSpecifications(ctx, tx, p.ID, specs); err != nil {
			return err
		}
		if err := s.products.ReplaceDocuments(ctx, tx, p.ID, docs); err != nil {
			return err
		}

		event, err := s.scrapedEvent(p)
		if err != nil {
			return err
		}
		return s.outbox.InsertWithTx(ctx, tx, event)
	})
}

func (s *ProductStore) scrapedEvent(p *models.Product) (*OutboxEvent, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"id":         p.ID,
		"sku":        p.SKU,
		"title":      p.Title,
		"brand":      p.Brand,
		"slug":       p.Slug,
		"price":      p.Price,
		"source_url": p.SourceURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	return &OutboxEvent{
		AggregateType: "product",
		AggregateID:   p.SKU,
		EventType:     EventProductScraped,
		TargetStream:  s.stream,
		Payload:       payload,
	}, nil
}
