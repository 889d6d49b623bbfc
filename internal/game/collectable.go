package game

import "SpiritTalk/internal/dialogue"

// AudioSink plays named sound cues.
type AudioSink interface {
	Play(sound string)
}

// Scene removes objects from the world.
type Scene interface {
	Destroy(id string)
}

// CollectableDeps are the collaborators a collectable reaches on collection.
type CollectableDeps struct {
	Audio        AudioSink
	DefaultSound string
	Items        ItemStore
	Scene        Scene
}

// Collectable is a pickup. Touching it collects it unless it is locked;
// Collect always collects it.
type Collectable struct {
	Def            dialogue.CollectableDef
	CanBeCollected bool
	// OnCollect fires after the sound and before the item is unlocked.
	OnCollect dialogue.Event[*Collectable]

	deps      CollectableDeps
	collected bool
}

// NewCollectable places def in the world.
func NewCollectable(def dialogue.CollectableDef, deps CollectableDeps) *Collectable {
	return &Collectable{Def: def, CanBeCollected: !def.Locked, deps: deps}
}

// CollectsItem reports whether collecting unlocks an inventory item.
func (c *Collectable) CollectsItem() bool { return c.Def.Item != "" }

// Collected reports whether the collectable is gone.
func (c *Collectable) Collected() bool { return c.collected }

// Touch collects the collectable if it can currently be collected.
func (c *Collectable) Touch() bool {
	if !c.CanBeCollected || c.collected {
		return false
	}
	c.Collect()
	return true
}

// Collect picks the collectable up even if it is locked.
func (c *Collectable) Collect() {
	if c.collected {
		return
	}
	c.collected = true

	if a := c.deps.Audio; a != nil {
		switch {
		case c.Def.Sound != "":
			a.Play(c.Def.Sound)
		case c.deps.DefaultSound != "":
			a.Play(c.deps.DefaultSound)
		}
	}
	c.OnCollect.Fire(c)
	if c.CollectsItem() && c.deps.Items != nil {
		c.deps.Items.Unlock(c.Def.Item)
	}
	if c.deps.Scene != nil {
		c.deps.Scene.Destroy(c.Def.ID)
	}
}

// SetCollectable locks or unlocks Touch.
func (c *Collectable) SetCollectable(flag bool) {
	c.CanBeCollected = flag
}
