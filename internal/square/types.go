package square

// Catalog object types requested from the catalog list endpoint.
const (
	TypeItem          = "ITEM"
	TypeItemVariation = "ITEM_VARIATION"
	TypeCategory      = "CATEGORY"

	// AlertLowQuantity is the inventory_alert_type that enables stock alerts.
	AlertLowQuantity = "LOW_QUANTITY"

	// StateInStock is the only inventory state counted.
	StateInStock = "IN_STOCK"
)

// CatalogObject is one entry of the Square catalog. Exactly one of the data
// fields is set, matching Type.
type CatalogObject struct {
	Type              string             `json:"type"`
	ID                string             `json:"id"`
	ItemData          *ItemData          `json:"item_data,omitempty"`
	ItemVariationData *ItemVariationData `json:"item_variation_data,omitempty"`
	CategoryData      *CategoryData      `json:"category_data,omitempty"`
}

// ItemData holds the fields of an ITEM object.
type ItemData struct {
	Name              string      `json:"name"`
	Categories        []ObjectRef `json:"categories,omitempty"`
	ReportingCategory *ObjectRef  `json:"reporting_category,omitempty"`
}

// ObjectRef references another catalog object by id.
type ObjectRef struct {
	ID string `json:"id"`
}

// ItemVariationData holds the fields of an ITEM_VARIATION object.
type ItemVariationData struct {
	ItemID                  string             `json:"item_id"`
	Name                    string             `json:"name"`
	SKU                     string             `json:"sku,omitempty"`
	UPC                     string             `json:"upc,omitempty"`
	PriceMoney              *Money             `json:"price_money,omitempty"`
	DefaultUnitCost         *Money             `json:"default_unit_cost,omitempty"`
	TrackInventory          *bool              `json:"track_inventory,omitempty"`
	InventoryAlertType      *string            `json:"inventory_alert_type,omitempty"`
	InventoryAlertThreshold *int64             `json:"inventory_alert_threshold,omitempty"`
	LocationOverrides       []LocationOverride `json:"location_overrides,omitempty"`
}

// Override returns the override for locationID, or nil.
func (v *ItemVariationData) Override(locationID string) *LocationOverride {
	for i := range v.LocationOverrides {
		if v.LocationOverrides[i].LocationID == locationID {
			return &v.LocationOverrides[i]
		}
	}
	return nil
}

// LocationOverride carries per-location inventory settings of a variation.
type LocationOverride struct {
	LocationID              string  `json:"location_id"`
	TrackInventory          *bool   `json:"track_inventory,omitempty"`
	InventoryAlertType      *string `json:"inventory_alert_type,omitempty"`
	InventoryAlertThreshold *int64  `json:"inventory_alert_threshold,omitempty"`
}

// Money is an amount in the currency's smallest unit.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CategoryData holds the fields of a CATEGORY object.
type CategoryData struct {
	Name string `json:"name"`
}

// Location is a seller location.
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// InventoryCount is one counted quantity. Quantity is a decimal string.
type InventoryCount struct {
	CatalogObjectID string `json:"catalog_object_id"`
	LocationID      string `json:"location_id"`
	Quantity        string `json:"quantity"`
	State           string `json:"state,omitempty"`
}

// Inventory maps variation id to location id to in-stock quantity.
type Inventory map[string]map[string]float64

// Quantity returns the count for a variation at a location, or 0.
func (inv Inventory) Quantity(variationID, locationID string) float64 {
	return inv[variationID][locationID]
}

type listCatalogResponse struct {
	Objects []CatalogObject `json:"objects"`
	Cursor  string          `json:"cursor"`
	Errors  []ErrorDetail   `json:"errors"`
}

type listLocationsResponse struct {
	Locations []Location    `json:"locations"`
	Errors    []ErrorDetail `json:"errors"`
}

type batchInventoryRequest struct {
	CatalogObjectIDs []string `json:"catalog_object_ids"`
	LocationIDs      []string `json:"location_ids"`
	States           []string `json:"states"`
	Cursor           string   `json:"cursor,omitempty"`
}

type batchInventoryResponse struct {
	Counts []InventoryCount `json:"counts"`
	Cursor string           `json:"cursor"`
	Errors []ErrorDetail    `json:"errors"`
}
