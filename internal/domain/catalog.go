package domain

import (
	"encoding/json"
	"time"
)

// CatalogKind names the three browsable catalog dimensions.
type CatalogKind string

const (
	KindProducts    CatalogKind = "products"
	KindCollections CatalogKind = "collections"
	KindCategories  CatalogKind = "categories"
)

// KindForScope maps a selection scope to the catalog kind its ids
// resolve against.
func KindForScope(s Scope) (CatalogKind, bool) {
	switch s {
	case ScopeProducts:
		return KindProducts, true
	case ScopeCollections:
		return KindCollections, true
	case ScopeCategories:
		return KindCategories, true
	default:
		return "", false
	}
}

// Product is a catalog product as exposed by the search and lookup
// endpoints. Metadata is opaque JSON carried for storefront
// integrations; the slug lookup additionally matches metadata.handle
// and metadata.shopify.handle.
type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	ImageURL  string          `json:"imageUrl,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Collection is a merchandised grouping of products.
type Collection struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Category is a taxonomy node.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CatalogItem is the minimal display shape shared by all three kinds,
// used by suggestion lists and id resolution.
type CatalogItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
