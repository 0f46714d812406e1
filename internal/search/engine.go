// Package search provides the suggestion engine behind the catalog
// search-as-you-type endpoints. Implementations index catalog items
// per kind and answer prefix queries.
package search

import (
	"context"

	"github.com/merchantkit/admin-api/internal/domain"
)

// Doc is one indexed catalog entry.
type Doc struct {
	ID   string             `json:"id"`
	Kind domain.CatalogKind `json:"kind"`
	Name string             `json:"name"`
	Slug string             `json:"slug"`
}

// Engine defines the suggestion index. Implementations may use
// Elasticsearch or in-memory storage.
type Engine interface {
	// Index adds or updates a single entry.
	Index(ctx context.Context, doc *Doc) error

	// Delete removes an entry by its ID.
	Delete(ctx context.Context, kind domain.CatalogKind, id string) error

	// Suggest returns entries of the given kind whose name matches the
	// prefix, most relevant first.
	Suggest(ctx context.Context, kind domain.CatalogKind, prefix string, limit int) ([]domain.CatalogItem, error)

	// BulkIndex adds or updates multiple entries.
	BulkIndex(ctx context.Context, docs []Doc) error
}
