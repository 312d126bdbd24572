package catalog

import (
	"fmt"
	"strings"

	"github.com/dvloznov/inventory-refresher/internal/square"
)

// Location pairs a configured location name with its Square id.
type Location struct {
	Name string
	ID   string
}

// Locations is the ordered set of configured locations that resolved to an id.
type Locations []Location

// NewLocations keeps the configured order of names and drops every name
// missing from resolved.
func NewLocations(names []string, resolved map[string]string) Locations {
	locs := make(Locations, 0, len(names))
	for _, name := range names {
		if id, ok := resolved[name]; ok && id != "" {
			locs = append(locs, Location{Name: name, ID: id})
		}
	}
	return locs
}

// IDs returns the Square location ids in configured order.
func (l Locations) IDs() []string {
	ids := make([]string, len(l))
	for i, loc := range l {
		ids[i] = loc.ID
	}
	return ids
}

// Names returns the configured names in order.
func (l Locations) Names() []string {
	names := make([]string, len(l))
	for i, loc := range l {
		names[i] = loc.Name
	}
	return names
}

// LocationStock is the stock state of one variation at one location.
type LocationStock struct {
	Enabled           bool
	Quantity          float64
	StockAlertEnabled bool
	StockAlertCount   int64
}

// ItemRow is one flattened item variation.
type ItemRow struct {
	ItemID            string
	VariationID       string
	SKU               string
	ItemName          string
	VariationName     string
	Categories        string
	ReportingCategory string
	GTIN              string
	Price             string
	PriceAmount       float64

	// UnitCost is nil when the variation carries no default unit cost.
	UnitCost  *float64
	Locations map[string]LocationStock
}

// Project turns an indexed catalog into rows. Items without variations emit
// nothing. Stock entries exist only for the given locations.
func Project(idx *Index, locations Locations, inventory square.Inventory) []ItemRow {
	var rows []ItemRow

	for _, item := range idx.items {
		categories := idx.categoryPath(item.ItemData)
		reporting := ""
		if ref := item.ItemData.ReportingCategory; ref != nil {
			reporting = idx.CategoryName(ref.ID)
		}

		for _, obj := range idx.variations[item.ID] {
			v := obj.ItemVariationData

			row := ItemRow{
				ItemID:            item.ID,
				VariationID:       obj.ID,
				SKU:               v.SKU,
				ItemName:          item.ItemData.Name,
				VariationName:     v.Name,
				Categories:        categories,
				ReportingCategory: reporting,
				GTIN:              v.UPC,
				Locations:         make(map[string]LocationStock, len(locations)),
			}

			if v.PriceMoney != nil {
				row.PriceAmount = float64(v.PriceMoney.Amount) / 100
				row.Price = FormatPrice(v.PriceMoney.Amount)
			}
			if v.DefaultUnitCost != nil {
				cost := float64(v.DefaultUnitCost.Amount) / 100
				row.UnitCost = &cost
			}

			for _, loc := range locations {
				row.Locations[loc.Name] = stockAt(v, loc.ID, inventory.Quantity(obj.ID, loc.ID))
			}

			rows = append(rows, row)
		}
	}

	return rows
}

// FormatPrice renders a minor-unit amount as dollars. Zero and negative
// amounts render as "".
func FormatPrice(amount int64) string {
	if amount <= 0 {
		return ""
	}
	return fmt.Sprintf("$%.2f", float64(amount)/100)
}

func (idx *Index) categoryPath(item *square.ItemData) string {
	names := make([]string, 0, len(item.Categories))
	for _, ref := range item.Categories {
		if name := idx.CategoryName(ref.ID); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ",")
}

// stockAt resolves per-location settings. A location override wins over the
// variation value, which wins over the zero default.
func stockAt(v *square.ItemVariationData, locationID string, quantity float64) LocationStock {
	var (
		tracked   bool
		alertType string
		threshold int64
	)

	if v.TrackInventory != nil {
		tracked = *v.TrackInventory
	}
	if v.InventoryAlertType != nil {
		alertType = *v.InventoryAlertType
	}
	if v.InventoryAlertThreshold != nil {
		threshold = *v.InventoryAlertThreshold
	}

	if o := v.Override(locationID); o != nil {
		if o.TrackInventory != nil {
			tracked = *o.TrackInventory
		}
		if o.InventoryAlertType != nil {
			alertType = *o.InventoryAlertType
		}
		if o.InventoryAlertThreshold != nil {
			threshold = *o.InventoryAlertThreshold
		}
	}

	return LocationStock{
		Enabled:           tracked,
		Quantity:          quantity,
		StockAlertEnabled: alertType == square.AlertLowQuantity,
		StockAlertCount:   threshold,
	}
}
