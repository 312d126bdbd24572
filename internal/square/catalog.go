package square

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dvloznov/inventory-refresher/internal/logger"
)

// InventoryBatchSize is the most catalog object ids sent per inventory request.
const InventoryBatchSize = 1000

var catalogTypes = strings.Join([]string{TypeItem, TypeItemVariation, TypeCategory}, ",")

// ListCatalogObjects returns every item, variation and category in the
// catalog, following cursors until the last page. Objects repeated across
// pages are returned once.
func (c *Client) ListCatalogObjects(ctx context.Context) ([]CatalogObject, error) {
	log := logger.FromContext(ctx)

	var (
		objects []CatalogObject
		cursor  string
		pages   int
	)
	seen := make(map[string]bool)

	for {
		q := url.Values{}
		q.Set("types", catalogTypes)
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		var resp listCatalogResponse
		if err := c.do(ctx, http.MethodGet, "/catalog/list?"+q.Encode(), nil, &resp, &resp.Errors); err != nil {
			return nil, fmt.Errorf("ListCatalogObjects: page %d: %w", pages+1, err)
		}
		pages++

		for _, obj := range resp.Objects {
			if seen[obj.ID] {
				continue
			}
			seen[obj.ID] = true
			objects = append(objects, obj)
		}

		if resp.Cursor == "" {
			break
		}
		cursor = resp.Cursor
	}

	log.Debug().
		Int("pages", pages).
		Int("objects", len(objects)).
		Msg("Fetched Square catalog")

	return objects, nil
}

// ListLocations returns all seller locations in one request.
func (c *Client) ListLocations(ctx context.Context) ([]Location, error) {
	var resp listLocationsResponse
	if err := c.do(ctx, http.MethodGet, "/locations", nil, &resp, &resp.Errors); err != nil {
		return nil, fmt.Errorf("ListLocations: %w", err)
	}
	return resp.Locations, nil
}

// ResolveLocations maps each configured name to the id of the first location
// whose name contains it, ignoring case. Names without a match are left out.
func (c *Client) ResolveLocations(ctx context.Context, names []string) (map[string]string, error) {
	locations, err := c.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	return MatchLocations(locations, names), nil
}

// MatchLocations applies the ResolveLocations rule to an already fetched list.
func MatchLocations(locations []Location, names []string) map[string]string {
	resolved := make(map[string]string, len(names))
	for _, name := range names {
		needle := strings.ToLower(name)
		for _, loc := range locations {
			if strings.Contains(strings.ToLower(loc.Name), needle) {
				resolved[name] = loc.ID
				break
			}
		}
	}
	return resolved
}

// FetchInventory returns in-stock quantities for the given variations at the
// given locations. Ids are sent in chunks of InventoryBatchSize and each
// chunk is paged by cursor. Either list being empty returns an empty result
// without calling Square.
func (c *Client) FetchInventory(ctx context.Context, variationIDs, locationIDs []string) (Inventory, error) {
	result := make(Inventory)
	if len(variationIDs) == 0 || len(locationIDs) == 0 {
		return result, nil
	}

	for start := 0; start < len(variationIDs); start += InventoryBatchSize {
		end := start + InventoryBatchSize
		if end > len(variationIDs) {
			end = len(variationIDs)
		}

		req := batchInventoryRequest{
			CatalogObjectIDs: variationIDs[start:end],
			LocationIDs:      locationIDs,
			States:           []string{StateInStock},
		}

		for {
			var resp batchInventoryResponse
			if err := c.do(ctx, http.MethodPost, "/inventory/counts/batch-retrieve", req, &resp, &resp.Errors); err != nil {
				return nil, fmt.Errorf("FetchInventory: ids %d-%d: %w", start, end, err)
			}

			for _, count := range resp.Counts {
				byLocation, ok := result[count.CatalogObjectID]
				if !ok {
					byLocation = make(map[string]float64)
					result[count.CatalogObjectID] = byLocation
				}
				byLocation[count.LocationID] = parseQuantity(count.Quantity)
			}

			if resp.Cursor == "" {
				break
			}
			req.Cursor = resp.Cursor
		}
	}

	return result, nil
}

func parseQuantity(s string) float64 {
	q, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(q) || math.IsInf(q, 0) {
		return 0
	}
	return q
}
