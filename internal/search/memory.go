package search

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/merchantkit/admin-api/internal/domain"
)

// MemoryEngine is an in-memory Engine used in development and tests.
// Matching is a case-insensitive prefix match on the name with a
// substring fallback. Thread-safe via sync.RWMutex.
type MemoryEngine struct {
	mu   sync.RWMutex
	docs map[domain.CatalogKind]map[string]Doc
}

// NewMemoryEngine creates an empty in-memory suggestion engine.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{docs: make(map[domain.CatalogKind]map[string]Doc)}
}

// Index adds or updates a single entry.
func (e *MemoryEngine) Index(_ context.Context, doc *Doc) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	byID, ok := e.docs[doc.Kind]
	if !ok {
		byID = make(map[string]Doc)
		e.docs[doc.Kind] = byID
	}
	byID[doc.ID] = *doc
	return nil
}

// Delete removes an entry by its ID.
func (e *MemoryEngine) Delete(_ context.Context, kind domain.CatalogKind, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if byID, ok := e.docs[kind]; ok {
		delete(byID, id)
	}
	return nil
}

// Suggest returns entries of the given kind matching the prefix.
// Prefix matches rank before substring matches; ties break on name.
func (e *MemoryEngine) Suggest(_ context.Context, kind domain.CatalogKind, prefix string, limit int) ([]domain.CatalogItem, error) {
	if limit <= 0 {
		limit = 10
	}
	prefixLower := strings.ToLower(prefix)

	e.mu.RLock()
	defer e.mu.RUnlock()

	type ranked struct {
		item     domain.CatalogItem
		isPrefix bool
	}
	var matched []ranked

	for _, doc := range e.docs[kind] {
		nameLower := strings.ToLower(doc.Name)
		switch {
		case prefixLower == "":
			matched = append(matched, ranked{domain.CatalogItem{ID: doc.ID, Name: doc.Name}, false})
		case strings.HasPrefix(nameLower, prefixLower):
			matched = append(matched, ranked{domain.CatalogItem{ID: doc.ID, Name: doc.Name}, true})
		case strings.Contains(nameLower, prefixLower):
			matched = append(matched, ranked{domain.CatalogItem{ID: doc.ID, Name: doc.Name}, false})
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].isPrefix != matched[j].isPrefix {
			return matched[i].isPrefix
		}
		return matched[i].item.Name < matched[j].item.Name
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}

	items := make([]domain.CatalogItem, len(matched))
	for i, m := range matched {
		items[i] = m.item
	}
	return items, nil
}

// BulkIndex adds or updates multiple entries.
func (e *MemoryEngine) BulkIndex(ctx context.Context, docs []Doc) error {
	for i := range docs {
		if err := e.Index(ctx, &docs[i]); err != nil {
			return err
		}
	}
	return nil
}
