package domain

import "sort"

// UnknownValue marks an item whose market value has not been assessed.
const UnknownValue int64 = -1

// Item is the market record for one limited item.
type Item struct {
	ID            int64
	Name          string
	Acronym       string
	RAP           int64
	Value         int64
	OriginalPrice int64
	Demand        int
	Trend         int
	Projected     bool
	Hyped         bool
	Rare          bool
}

// HasValue reports whether the item carries an assessed value.
func (it Item) HasValue() bool { return it.Value != UnknownValue }

// EffectiveValue is the assessed value when known, else the recent average price.
func (it Item) EffectiveValue() int64 {
	if it.HasValue() {
		return it.Value
	}
	return it.RAP
}

// Catalog maps item id to its market record. It is replaced wholesale on
// every refresh and never mutated in place.
type Catalog map[int64]Item

// Lookup returns the item for id.
func (c Catalog) Lookup(id int64) (Item, bool) {
	it, ok := c[id]
	return it, ok
}

// Merge returns a new catalog with overrides applied on top of c.
func (c Catalog) Merge(overrides Catalog) Catalog {
	out := make(Catalog, len(c)+len(overrides))
	for id, it := range c {
		out[id] = it
	}
	for id, it := range overrides {
		out[id] = it
	}
	return out
}

// Equal reports whether both catalogs hold identical records.
func (c Catalog) Equal(other Catalog) bool {
	if len(c) != len(other) {
		return false
	}
	for id, it := range c {
		if o, ok := other[id]; !ok || o != it {
			return false
		}
	}
	return true
}

// InventoryEntry is one concrete, tradeable copy of an item.
type InventoryEntry struct {
	UserAssetID  int64
	AssetID      int64
	Name         string
	SerialNumber int64
	RAP          int64
	OnHold       bool
}

// Inventory groups a user's entries by asset id.
type Inventory map[int64][]InventoryEntry

// Entries flattens the inventory, ordered by asset id then user asset id.
func (inv Inventory) Entries() []InventoryEntry {
	out := make([]InventoryEntry, 0, len(inv))
	for _, entries := range inv {
		out = append(out, entries...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AssetID != out[j].AssetID {
			return out[i].AssetID < out[j].AssetID
		}
		return out[i].UserAssetID < out[j].UserAssetID
	})
	return out
}

// Count returns the number of entries.
func (inv Inventory) Count() int {
	n := 0
	for _, entries := range inv {
		n += len(entries)
	}
	return n
}

// Owns reports whether the inventory has at least one tradeable copy of assetID.
func (inv Inventory) Owns(assetID int64) bool {
	for _, e := range inv[assetID] {
		if !e.OnHold {
			return true
		}
	}
	return false
}

// OnlyHeld returns the single entry when the whole inventory is one item on hold.
func (inv Inventory) OnlyHeld() (InventoryEntry, bool) {
	entries := inv.Entries()
	if len(entries) == 1 && entries[0].OnHold {
		return entries[0], true
	}
	return InventoryEntry{}, false
}

// Tradeable returns the entries that are not on hold.
func (inv Inventory) Tradeable() []InventoryEntry {
	all := inv.Entries()
	out := all[:0]
	for _, e := range all {
		if !e.OnHold {
			out = append(out, e)
		}
	}
	return out
}
