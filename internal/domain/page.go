package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// Page statuses.
const (
	PageStatusDraft     = "Draft"
	PageStatusPublished = "Published"
)

// Page is a merchant-editable dynamic page composed of ordered content
// sections.
type Page struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Status    string    `json:"status"`
	Sections  []Section `json:"sections"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Section is one content block on a page. Content is opaque JSON whose
// shape depends on the section type; the admin API stores and orders
// sections without interpreting their contents.
type Section struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	SortOrder int             `json:"sortOrder"`
	Content   json.RawMessage `json:"content,omitempty"`
}

// Reorder applies a new section ordering given the full list of section
// ids in their desired order. Ids not present on the page are ignored;
// sections missing from the list keep their relative order after the
// listed ones.
func (p *Page) Reorder(ids []string) {
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}

	next := len(ids)
	for i := range p.Sections {
		if at, ok := pos[p.Sections[i].ID]; ok {
			p.Sections[i].SortOrder = at
		} else {
			p.Sections[i].SortOrder = next
			next++
		}
	}
	sort.SliceStable(p.Sections, func(i, j int) bool {
		return p.Sections[i].SortOrder < p.Sections[j].SortOrder
	})
}
