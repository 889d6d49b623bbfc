package game

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"SpiritTalk/internal/dialogue"
)

func TestInventoryUnlock(t *testing.T) {
	inv := NewInventory([]dialogue.ItemDef{{ID: "acorn", Name: "Acorn"}, {ID: "stone"}})
	assert.Empty(t, inv.Unlocked())
	assert.False(t, inv.Has("acorn"))

	assert.True(t, inv.Unlock("acorn"))
	assert.False(t, inv.Unlock("acorn"))
	assert.True(t, inv.Has("acorn"))
	assert.Equal(t, 1, inv.GetItemCount("acorn"))

	assert.True(t, inv.Unlock("mystery"))
	assert.False(t, inv.Unlock(""))
	assert.Equal(t, []InventoryItem{
		{ID: "acorn", Name: "Acorn", Unlocked: true, Quantity: 1},
		{ID: "mystery", Name: "mystery", Unlocked: true, Quantity: 1},
	}, inv.Unlocked())
	assert.Equal(t, "stone", inv.Items[1].Name)
}

func TestInventoryStacks(t *testing.T) {
	inv := NewInventory(nil)
	inv.AddItem("acorn", 2)
	inv.AddItem("acorn", 3)
	assert.Equal(t, 5, inv.GetItemCount("acorn"))

	assert.False(t, inv.RemoveItem("acorn", 6))
	assert.True(t, inv.RemoveItem("acorn", 5))
	assert.False(t, inv.Has("acorn"))
	assert.Zero(t, inv.GetItemCount("acorn"))
	assert.False(t, inv.RemoveItem("pebble", 1))
}
