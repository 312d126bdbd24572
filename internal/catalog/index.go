// Package catalog flattens Square catalog objects into one row per item
// variation, enriched with per-location stock settings and quantities.
package catalog

import (
	"github.com/dvloznov/inventory-refresher/internal/square"
)

// Index groups a flat catalog listing by kind.
type Index struct {
	items      []square.CatalogObject
	variations map[string][]square.CatalogObject
	categories map[string]string
}

// NewIndex builds an Index in a single pass over objects. Items keep their
// encounter order and variations keep their order within each item.
func NewIndex(objects []square.CatalogObject) *Index {
	idx := &Index{
		variations: make(map[string][]square.CatalogObject),
		categories: make(map[string]string),
	}

	for _, obj := range objects {
		switch obj.Type {
		case square.TypeItem:
			if obj.ItemData != nil {
				idx.items = append(idx.items, obj)
			}
		case square.TypeItemVariation:
			if obj.ItemVariationData != nil {
				itemID := obj.ItemVariationData.ItemID
				idx.variations[itemID] = append(idx.variations[itemID], obj)
			}
		case square.TypeCategory:
			if obj.CategoryData != nil {
				idx.categories[obj.ID] = obj.CategoryData.Name
			}
		}
	}

	return idx
}

// Items returns the number of indexed items.
func (idx *Index) Items() int {
	return len(idx.items)
}

// VariationIDs returns the ids of every variation owned by a known item.
// Variations pointing at an unknown item are not included.
func (idx *Index) VariationIDs() []string {
	var ids []string
	for _, item := range idx.items {
		for _, v := range idx.variations[item.ID] {
			ids = append(ids, v.ID)
		}
	}
	return ids
}

// CategoryName returns the name of a category, or "" when it is unknown.
func (idx *Index) CategoryName(id string) string {
	return idx.categories[id]
}
