package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bathingbrands/catalog-scraper/internal/models"
)

const productColumns = `
	id, sku, title, brand, model, category, subcategory,
	short_description, full_description, features, technical_info,
	includes, shipping_info, inspiration, price, source_url, slug,
	is_active, created_at, updated_at`

// ProductRepository persists products and their owned child rows.
type ProductRepository struct {
	db *DB
}

func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// FindBySKU returns the product with the given SKU, or nil when none exists.
func (r *ProductRepository) FindBySKU(ctx context.Context, sku string) (*models.Product, error) {
	query := `SELECT` + productColumns + ` FROM products WHERE sku = $1`
	return scanProduct(r.db.pool.QueryRow(ctx, query, sku))
}

// FindByModelAndTitle resolves a product by model plus a title prefix. It
// backs relation resolution for candidates that carry a model but no SKU.
func (r *ProductRepository) FindByModelAndTitle(ctx context.Context, model, titlePrefix string) (*models.Product, error) {
	query := `SELECT` + productColumns + `
		FROM products
		WHERE model = $1 AND title ILIKE $2 || '%'
		ORDER BY id LIMIT 1`
	return scanProduct(r.db.pool.QueryRow(ctx, query, model, titlePrefix))
}

// ResolveSlug returns base if unused, otherwise base-1, base-2 and so on.
func (r *ProductRepository) ResolveSlug(ctx context.Context, base string) (string, error) {
	candidate := base
	for suffix := 1; ; suffix++ {
		var exists bool
		err := r.db.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM products WHERE slug = $1)`, candidate).Scan(&exists)
		if err != nil {
			return "", fmt.Errorf("failed to check slug %s: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, suffix)
	}
}

// Upsert inserts the product or updates it by SKU. Scalar fields are
// last-write-wins; the stored slug survives updates so product URLs stay
// stable across re-scrapes. The product's ID and timestamps are filled in.
func (r *ProductRepository) Upsert(ctx context.Context, tx pgx.Tx, p *models.Product) error {
	query := `
		INSERT INTO products (
			sku, title, brand, model, category, subcategory,
			short_description, full_description, features, technical_info,
			includes, shipping_info, inspiration, price, source_url, slug,
			is_active
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17
		)
		ON CONFLICT (sku) DO UPDATE SET
			title = EXCLUDED.title,
			brand = EXCLUDED.brand,
			model = EXCLUDED.model,
			category = EXCLUDED.category,
			subcategory = EXCLUDED.subcategory,
			short_description = EXCLUDED.short_description,
			full_description = EXCLUDED.full_description,
			features = EXCLUDED.features,
			technical_info = EXCLUDED.technical_info,
			includes = EXCLUDED.includes,
			shipping_info = EXCLUDED.shipping_info,
			inspiration = EXCLUDED.inspiration,
			price = EXCLUDED.price,
			source_url = EXCLUDED.source_url,
			is_active = EXCLUDED.is_active,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id, slug, created_at, updated_at`

	err := tx.QueryRow(ctx, query,
		p.SKU, p.Title, p.Brand, p.Model, p.Category, p.Subcategory,
		p.ShortDescription, p.FullDescription, p.Features, p.TechnicalInfo,
		p.Includes, p.ShippingInfo, p.Inspiration, p.Price, p.SourceURL, p.Slug,
		p.IsActive,
	).Scan(&p.ID, &p.Slug, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", p.SKU, err)
	}

	return nil
}

// ReplaceImages swaps a product's image rows for the given set.
func (r *ProductRepository) ReplaceImages(ctx context.Context, tx pgx.Tx, productID int64, images []models.ProductImage) error {
	if _, err := tx.Exec(ctx,
		`DELETE FROM product_images WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("failed to delete images: %w", err)
	}

	for _, img := range images {
		_, err := tx.Exec(ctx, `
			INSERT INTO product_images (product_id, image_url, alt_text, image_type, is_primary, position)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			productID, img.ImageURL, img.AltText, img.ImageType, img.IsPrimary, img.Position)
		if err != nil {
			return fmt.Errorf("failed to insert image: %w", err)
		}
	}

	return nil
}

// ReplaceSpecifications swaps a product's specification rows for the given set.
func (r *ProductRepository) ReplaceSpecifications(ctx context.Context, tx pgx.Tx, productID int64, specs []models.ProductSpecification) error {
	if _, err := tx.Exec(ctx,
		`DELETE FROM product_specifications WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("failed to delete specifications: %w", err)
	}

	for _, spec := range specs {
		_, err := tx.Exec(ctx, `
			INSERT INTO product_specifications (product_id, name, value)
			VALUES ($1, $2, $3)
			ON CONFLICT (product_id, name) DO NOTHING`,
			productID, spec.Name, spec.Value)
		if err != nil {
			return fmt.Errorf("failed to insert specification: %w", err)
		}
	}

	return nil
}

// ReplaceDocuments swaps a product's document rows for the given set.
func (r *ProductRepository) ReplaceDocuments(ctx context.Context, tx pgx.Tx, productID int64, docs []models.ProductDocument) error {
	if _, err := tx.Exec(ctx,
		`DELETE FROM product_documents WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}

	for _, doc := range docs {
		_, err := tx.Exec(ctx, `
			INSERT INTO product_documents (product_id, title, document_url, document_type)
			VALUES ($1, $2, $3, $4)`,
			productID, doc.Title, doc.DocumentURL, doc.DocumentType)
		if err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}
	}

	return nil
}

// CreateRelation inserts a relation edge if it does not already exist.
// Returns true when a new edge was created.
func (r *ProductRepository) CreateRelation(ctx context.Context, rel *models.RelatedProduct) (bool, error) {
	tag, err := r.db.pool.Exec(ctx, `
		INSERT INTO related_products (
			main_product_id, related_product_id, relationship_type,
			is_mandatory, quantity, description
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (main_product_id, related_product_id, relationship_type) DO NOTHING`,
		rel.MainProductID, rel.RelatedProductID, rel.RelationType,
		rel.IsMandatory, rel.Quantity, rel.Description)
	if err != nil {
		return false, fmt.Errorf("failed to create relation: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// CountByBrand returns the number of stored products per brand.
func (r *ProductRepository) CountByBrand(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT brand, COUNT(*) FROM products GROUP BY brand`)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var brand string
		var count int
		if err := rows.Scan(&brand, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[brand] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return counts, nil
}

func scanProduct(row pgx.Row) (*models.Product, error) {
	p := &models.Product{}
	err := row.Scan(
		&p.ID, &p.SKU, &p.Title, &p.Brand, &p.Model, &p.Category, &p.Subcategory,
		&p.ShortDescription, &p.FullDescription, &p.Features, &p.TechnicalInfo,
		&p.Includes, &p.ShippingInfo, &p.Inspiration, &p.Price, &p.SourceURL, &p.Slug,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}
	return p, nil
}
