package game

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"SpiritTalk/internal/dialogue"
)

type recordingScene struct{ destroyed []string }

func (s *recordingScene) Destroy(id string) { s.destroyed = append(s.destroyed, id) }

func newTestCollectable(def dialogue.CollectableDef) (*Collectable, *recordingAudio, *Inventory, *recordingScene) {
	audio := &recordingAudio{}
	inv := NewInventory(nil)
	scene := &recordingScene{}
	c := NewCollectable(def, CollectableDeps{Audio: audio, DefaultSound: "ding", Items: inv, Scene: scene})
	return c, audio, inv, scene
}

func TestCollectablePlaysOwnSoundAndUnlocksItem(t *testing.T) {
	c, audio, inv, scene := newTestCollectable(dialogue.CollectableDef{ID: "a1", Item: "acorn", Sound: "pop"})
	var order []string
	c.OnCollect.Subscribe(func(got *Collectable) {
		assert.Same(t, c, got)
		assert.False(t, inv.Has("acorn"))
		order = append(order, "collect")
	})

	assert.True(t, c.Touch())
	assert.Equal(t, []string{"pop"}, audio.played)
	assert.Equal(t, []string{"collect"}, order)
	assert.True(t, inv.Has("acorn"))
	assert.Equal(t, []string{"a1"}, scene.destroyed)
	assert.True(t, c.Collected())

	assert.False(t, c.Touch())
	c.Collect()
	assert.Len(t, scene.destroyed, 1)
}

func TestCollectableFallsBackToDefaultSound(t *testing.T) {
	c, audio, inv, _ := newTestCollectable(dialogue.CollectableDef{ID: "x"})
	assert.False(t, c.CollectsItem())
	c.Collect()
	assert.Equal(t, []string{"ding"}, audio.played)
	assert.Empty(t, inv.Unlocked())
}

func TestLockedCollectableIgnoresTouch(t *testing.T) {
	c, _, _, scene := newTestCollectable(dialogue.CollectableDef{ID: "f", Item: "feather", Locked: true})
	assert.False(t, c.Touch())
	assert.Empty(t, scene.destroyed)

	c.SetCollectable(true)
	assert.True(t, c.Touch())
}

func TestCollectForcesLockedCollectable(t *testing.T) {
	c, _, inv, _ := newTestCollectable(dialogue.CollectableDef{ID: "f", Item: "feather", Locked: true})
	c.Collect()
	assert.True(t, inv.Has("feather"))
}

func TestCollectableWithoutCollaborators(t *testing.T) {
	c := NewCollectable(dialogue.CollectableDef{ID: "bare", Item: "x"}, CollectableDeps{})
	assert.NotPanics(t, c.Collect)
}
