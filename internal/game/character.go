package game

import (
	"SpiritTalk/internal/dialogue"
	"SpiritTalk/internal/layout"
	"SpiritTalk/internal/talker"
)

// Character is an authored talker placed in a room. It is the talker's
// presenter: shown lines are wrapped to the character's box and broadcast
// to every player in the room.
type Character struct {
	Def    dialogue.TalkerDef
	Talker *talker.Talker
	Block  layout.Block

	room *Room
}

// Width is the wrap width of the character's text box.
func (c *Character) Width() int {
	if c.Def.Width > 0 {
		return c.Def.Width
	}
	return DefaultTextWidth
}

// TextOrigin is the world cell of the first character of text. The name
// sits on the row above.
func (c *Character) TextOrigin() talker.Point {
	return talker.Point{X: c.Def.X, Y: c.Def.Y + 1}
}

// Display wraps text and broadcasts it. An empty text clears the box.
func (c *Character) Display(text string) {
	c.Block = layout.Wrap(text, c.Width())
	if c.room == nil {
		return
	}
	if text == "" {
		c.room.BroadcastLocked("clear", TalkerPayload{Talker: c.Def.ID})
		return
	}
	c.room.BroadcastLocked("line", c.linePayload(text))
}

// LinkAt maps a screen position to a link in the displayed text.
func (c *Character) LinkAt(pos talker.Point, cam talker.Camera) (string, bool) {
	w := cam.World(pos)
	o := c.TextOrigin()
	return c.Block.LinkAt(w.X-o.X, w.Y-o.Y)
}

func (c *Character) linePayload(text string) LinePayload {
	p := LinePayload{Talker: c.Def.ID, Text: dialogue.Plain(text), Lines: c.Block.Lines}
	for _, s := range c.Block.Spans {
		p.Links = append(p.Links, LinkSpanDTO{ID: s.Link, Line: s.Line, Start: s.Start, End: s.End})
	}
	return p
}
