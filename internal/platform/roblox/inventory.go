package roblox

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// maxInventoryPages bounds pagination against a misbehaving cursor.
const maxInventoryPages = 50

// FetchInventory returns every collectible userID owns.
func (c *Client) FetchInventory(ctx context.Context, userID int64) (domain.Inventory, error) {
	inv := make(domain.Inventory)
	cursor := ""
	for page := 0; page < maxInventoryPages; page++ {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(MaxPageSize))
		params.Set("sortOrder", "Asc")
		params.Set("cursor", cursor)

		var raw apiCollectiblePage
		u := fmt.Sprintf("%s/v1/users/%d/assets/collectibles?%s", c.ep.Inventory, userID, params.Encode())
		if err := c.getJSON(ctx, u, &raw); err != nil {
			return nil, fmt.Errorf("roblox: inventory %d: %w", userID, err)
		}
		for _, it := range raw.Data {
			entry := domain.InventoryEntry{
				UserAssetID: it.UserAssetID,
				AssetID:     it.AssetID,
				Name:        it.Name,
				RAP:         it.RecentAveragePrice,
				OnHold:      it.IsOnHold,
			}
			if it.SerialNumber != nil {
				entry.SerialNumber = *it.SerialNumber
			}
			inv[it.AssetID] = append(inv[it.AssetID], entry)
		}
		if raw.NextPageCursor == nil || *raw.NextPageCursor == "" {
			return inv, nil
		}
		cursor = *raw.NextPageCursor
	}
	return inv, nil
}
