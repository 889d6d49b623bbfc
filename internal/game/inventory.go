package game

import "SpiritTalk/internal/dialogue"

// ItemStore unlocks inventory items on behalf of collectables and actions.
type ItemStore interface {
	Unlock(id string) bool
}

// InventoryItem represents a single item in the room's inventory.
type InventoryItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Unlocked bool   `json:"unlocked"`
	Quantity int    `json:"quantity"`
}

// Inventory manages the items players have found.
type Inventory struct {
	Items []InventoryItem `json:"items"`
}

// NewInventory creates an inventory with every authored item locked.
func NewInventory(defs []dialogue.ItemDef) *Inventory {
	inv := &Inventory{Items: []InventoryItem{}}
	for _, d := range defs {
		name := d.Name
		if name == "" {
			name = d.ID
		}
		inv.Items = append(inv.Items, InventoryItem{ID: d.ID, Name: name})
	}
	return inv
}

func (inv *Inventory) find(id string) *InventoryItem {
	for i := range inv.Items {
		if inv.Items[i].ID == id {
			return &inv.Items[i]
		}
	}
	return nil
}

// Unlock marks id as found. Items that were never declared are added.
// Returns true only when the item was not already unlocked.
func (inv *Inventory) Unlock(id string) bool {
	if id == "" {
		return false
	}
	item := inv.find(id)
	if item == nil {
		inv.Items = append(inv.Items, InventoryItem{ID: id, Name: id})
		item = &inv.Items[len(inv.Items)-1]
	}
	if item.Unlocked {
		return false
	}
	item.Unlocked = true
	if item.Quantity == 0 {
		item.Quantity = 1
	}
	return true
}

// Has reports whether id is unlocked.
func (inv *Inventory) Has(id string) bool {
	item := inv.find(id)
	return item != nil && item.Unlocked
}

// AddItem adds quantity of id, stacking onto an existing entry and unlocking it.
func (inv *Inventory) AddItem(id string, quantity int) {
	if item := inv.find(id); item != nil {
		item.Unlocked = true
		item.Quantity += quantity
		return
	}
	inv.Items = append(inv.Items, InventoryItem{ID: id, Name: id, Unlocked: true, Quantity: quantity})
}

// GetItemCount returns the quantity of id held.
func (inv *Inventory) GetItemCount(id string) int {
	if item := inv.find(id); item != nil && item.Unlocked {
		return item.Quantity
	}
	return 0
}

// RemoveItem removes quantity of id. Returns false if not enough are held.
// The entry stays declared but is locked again once it reaches zero.
func (inv *Inventory) RemoveItem(id string, quantity int) bool {
	item := inv.find(id)
	if item == nil || !item.Unlocked || item.Quantity < quantity {
		return false
	}
	item.Quantity -= quantity
	if item.Quantity == 0 {
		item.Unlocked = false
	}
	return true
}

// Unlocked returns the items currently held, in declaration order.
func (inv *Inventory) Unlocked() []InventoryItem {
	out := []InventoryItem{}
	for _, item := range inv.Items {
		if item.Unlocked {
			out = append(out, item)
		}
	}
	return out
}
