package catalog

import (
	"github.com/dvloznov/inventory-refresher/internal/record"
)

// Items table column names.
const (
	FieldSKU               = "SKU"
	FieldItemName          = "Item Name"
	FieldVariationName     = "Variation Name"
	FieldCategories        = "Categories"
	FieldReportingCategory = "Reporting Category"
	FieldGTIN              = "GTIN"
	FieldPrice             = "Price"
	FieldItems             = "Items"
	FieldDefaultUnitCost   = "Default Unit Cost"
)

// EnabledField and the functions below name the per-location columns.
func EnabledField(location string) string { return "Enabled " + location }

func QuantityField(location string) string { return "Current Quantity " + location }

func AlertEnabledField(location string) string { return "Stock Alert Enabled " + location }

func AlertCountField(location string) string { return "Stock Alert Count " + location }

func RestockCostField(location string) string { return location + " Restock Cost" }

// Fields maps the row to Items table columns. When restockLocation is set the
// row also carries its restock cost there: quantity times unit cost, zero
// when either is unknown.
func (r ItemRow) Fields(restockLocation string) record.Fields {
	f := record.Fields{
		FieldSKU:               record.String(r.SKU),
		FieldItemName:          record.String(r.ItemName),
		FieldVariationName:     record.String(r.VariationName),
		FieldCategories:        record.String(r.Categories),
		FieldReportingCategory: record.String(r.ReportingCategory),
		FieldGTIN:              record.String(r.GTIN),
		FieldPrice:             record.Number(r.PriceAmount),
		FieldItems:             record.String(r.SKU),
	}

	var unitCost float64
	if r.UnitCost != nil {
		unitCost = *r.UnitCost
		f[FieldDefaultUnitCost] = record.Number(unitCost)
	}

	for name, stock := range r.Locations {
		f[EnabledField(name)] = record.Bool(stock.Enabled)
		f[QuantityField(name)] = record.Number(stock.Quantity)
		f[AlertEnabledField(name)] = record.Bool(stock.StockAlertEnabled)
		f[AlertCountField(name)] = record.Number(float64(stock.StockAlertCount))
	}

	if restockLocation != "" {
		f[RestockCostField(restockLocation)] = record.Number(r.Locations[restockLocation].Quantity * unitCost)
	}

	return f
}

// ItemSchema is the column schema the Items table is written with.
func ItemSchema(locationNames []string, restockLocation string) record.Schema {
	s := record.Schema{
		FieldSKU:               record.KindString,
		FieldItemName:          record.KindString,
		FieldVariationName:     record.KindString,
		FieldCategories:        record.KindString,
		FieldReportingCategory: record.KindString,
		FieldGTIN:              record.KindString,
		FieldPrice:             record.KindNumber,
		FieldItems:             record.KindString,
		FieldDefaultUnitCost:   record.KindNumber,
	}
	for _, name := range locationNames {
		s[EnabledField(name)] = record.KindBool
		s[QuantityField(name)] = record.KindNumber
		s[AlertEnabledField(name)] = record.KindBool
		s[AlertCountField(name)] = record.KindNumber
	}
	if restockLocation != "" {
		s[RestockCostField(restockLocation)] = record.KindNumber
	}
	return s
}

// Records maps every row with Fields.
func Records(rows []ItemRow, restockLocation string) []record.Fields {
	out := make([]record.Fields, len(rows))
	for i, row := range rows {
		out[i] = row.Fields(restockLocation)
	}
	return out
}
