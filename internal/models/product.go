package models

import (
	"strings"
	"time"
)

// ImageType classifies a product image by its role on the page.
type ImageType string

const (
	ImageMain      ImageType = "main"
	ImageGallery   ImageType = "gallery"
	ImageTechnical ImageType = "technical"
	ImageLifestyle ImageType = "lifestyle"
)

// DocumentType classifies a linked PDF document.
type DocumentType string

const (
	DocManual        DocumentType = "manual"
	DocInstallation  DocumentType = "installation"
	DocWarranty      DocumentType = "warranty"
	DocSpecification DocumentType = "specification"
	DocCertificate   DocumentType = "certificate"
)

// RelationType tags a directed edge between two products.
type RelationType string

const (
	RelationRequiredOperation RelationType = "required_operation"
	RelationHeaterControl     RelationType = "heater_control"
	RelationRecommended       RelationType = "recommended"
	RelationRelatedItem       RelationType = "related_item"
	RelationAccessory         RelationType = "accessory"
	RelationReplacementPart   RelationType = "replacement_part"
)

// Product is the persisted catalog entity, keyed by SKU.
type Product struct {
	ID               int64     `json:"id"`
	SKU              string    `json:"sku"`
	Title            string    `json:"title"`
	Brand            string    `json:"brand"`
	Model            string    `json:"model"`
	Category         string    `json:"category"`
	Subcategory      string    `json:"subcategory"`
	ShortDescription string    `json:"short_description"`
	FullDescription  string    `json:"full_description"`
	Features         string    `json:"features"`
	TechnicalInfo    string    `json:"technical_info"`
	Includes         string    `json:"includes"`
	ShippingInfo     string    `json:"shipping_info"`
	Inspiration      string    `json:"inspiration"`
	Price            *float64  `json:"price"`
	SourceURL        string    `json:"source_url"`
	Slug             string    `json:"slug"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ProductImage is owned by a Product and replaced wholesale on re-scrape.
type ProductImage struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	ImageURL  string    `json:"image_url"`
	AltText   string    `json:"alt_text"`
	ImageType ImageType `json:"image_type"`
	IsPrimary bool      `json:"is_primary"`
	Position  int       `json:"position"`
}

// ProductSpecification is a (name, value) pair, unique per product+name.
type ProductSpecification struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Value     string `json:"value"`
}

// ProductDocument is a linked manual or datasheet, owned by a Product.
type ProductDocument struct {
	ID           int64        `json:"id"`
	ProductID    int64        `json:"product_id"`
	Title        string       `json:"title"`
	DocumentURL  string       `json:"document_url"`
	DocumentType DocumentType `json:"document_type"`
}

// RelatedProduct is a directed edge between two persisted products,
// unique per (main, related, type).
type RelatedProduct struct {
	ID               int64        `json:"id"`
	MainProductID    int64        `json:"main_product_id"`
	RelatedProductID int64        `json:"related_product_id"`
	RelationType     RelationType `json:"relationship_type"`
	IsMandatory      bool         `json:"is_mandatory"`
	Quantity         int          `json:"quantity"`
	Description      string       `json:"description"`
}

// Specification is an ordered extracted (name, value) pair. Order matters:
// the reconciler keeps the first value seen for a given name.
type Specification struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ImageCandidate is an image discovered on a product page before persistence.
type ImageCandidate struct {
	URL     string    `json:"url"`
	AltText string    `json:"alt_text"`
	Type    ImageType `json:"type"`
}

// DocumentCandidate is a PDF link discovered on a product page.
type DocumentCandidate struct {
	Title string       `json:"title"`
	URL   string       `json:"url"`
	Type  DocumentType `json:"type"`
}

// RelatedCandidate is a related-product mention found in a page section.
// It only becomes a RelatedProduct edge if it resolves to a persisted
// product; unresolved candidates are logged and dropped.
type RelatedCandidate struct {
	Title    string       `json:"title"`
	Model    string       `json:"model"`
	SKU      string       `json:"sku"`
	Price    *float64     `json:"price"`
	URL      string       `json:"url"`
	Type     RelationType `json:"type"`
	Section  string       `json:"section"`
	Subtitle string       `json:"subtitle"`
}

// ExtractedProduct carries everything the extractors recovered from one
// product page. It is the contract between extraction and reconciliation.
type ExtractedProduct struct {
	Title            string              `json:"title"`
	Brand            string              `json:"brand"`
	SKU              string              `json:"sku"`
	Model            string              `json:"model"`
	Category         string              `json:"category"`
	Subcategory      string              `json:"subcategory"`
	ShortDescription string              `json:"short_description"`
	FullDescription  string              `json:"full_description"`
	Features         string              `json:"features"`
	TechnicalInfo    string              `json:"technical_info"`
	Includes         string              `json:"includes"`
	ShippingInfo     string              `json:"shipping_info"`
	Inspiration      string              `json:"inspiration"`
	Price            *float64            `json:"price"`
	SourceURL        string              `json:"source_url"`
	Images           []ImageCandidate    `json:"images"`
	Specifications   []Specification     `json:"specifications"`
	Documents        []DocumentCandidate `json:"documents"`
	Related          []RelatedCandidate  `json:"related"`
}

// Brand is an ephemeral navigation node, rebuilt on every run.
type Brand struct {
	Name string
	Slug string
	URL  string
}

// Category sits under a Brand in the site hierarchy.
type Category struct {
	Name string
	Slug string
	URL  string
}

// Collection sits under a Category. A category with no collection links is
// represented as a single self-referential collection.
type Collection struct {
	Name string
	Slug string
	URL  string
}

// BrandSlug converts a display brand name to its URL path form
// ("Mr.Steam" -> "mrsteam", "Cozy Heat" -> "cozy-heat").
func BrandSlug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, ".", "")
	return s
}
