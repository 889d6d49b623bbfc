package game

import (
	"sort"
	"strings"
)

// Bounds is an axis-aligned box in world units.
type Bounds struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Intersects reports whether two boxes overlap.
func (b Bounds) Intersects(o Bounds) bool {
	return b.MinX < o.MaxX && o.MinX < b.MaxX && b.MinY < o.MaxY && o.MinY < b.MaxY
}

// Translate moves the box by (dx, dy).
func (b Bounds) Translate(dx, dy float64) Bounds {
	return Bounds{MinX: b.MinX + dx, MinY: b.MinY + dy, MaxX: b.MaxX + dx, MaxY: b.MaxY + dy}
}

// Word is a draggable fragment. Words that overlap read together, left to
// right, and a stencil matching that reading can be dropped on them.
type Word struct {
	ID     string
	Text   string
	Bounds Bounds

	overlapping []*Word
}

// NewWord creates a word that overlaps only itself.
func NewWord(id, text string, b Bounds) *Word {
	w := &Word{ID: id, Text: text, Bounds: b}
	w.overlapping = []*Word{w}
	return w
}

// Overlap records that o now overlaps w.
func (w *Word) Overlap(o *Word) {
	if o == nil || w.overlaps(o) {
		return
	}
	w.overlapping = append(w.overlapping, o)
	w.sortOverlaps()
}

// Separate records that o no longer overlaps w.
func (w *Word) Separate(o *Word) {
	if o == nil || o == w {
		return
	}
	for i, cur := range w.overlapping {
		if cur == o {
			w.overlapping = append(w.overlapping[:i], w.overlapping[i+1:]...)
			return
		}
	}
}

func (w *Word) overlaps(o *Word) bool {
	for _, cur := range w.overlapping {
		if cur == o {
			return true
		}
	}
	return false
}

func (w *Word) sortOverlaps() {
	sort.SliceStable(w.overlapping, func(i, j int) bool {
		return w.overlapping[i].Bounds.MinX < w.overlapping[j].Bounds.MinX
	})
}

// CurrentWord reads every overlapping word left to right.
func (w *Word) CurrentWord() string {
	var sb strings.Builder
	for _, o := range w.overlapping {
		sb.WriteString(o.Text)
	}
	return sb.String()
}

// Accepts reports whether a stencil for target can be dropped on w.
func (w *Word) Accepts(target string) bool {
	return strings.EqualFold(target, w.CurrentWord())
}

// WordBoard keeps overlap sets current as words move.
type WordBoard struct {
	words []*Word
}

// Add places w on the board.
func (b *WordBoard) Add(w *Word) {
	b.words = append(b.words, w)
	b.refresh(w)
}

// Word returns the word with id, or nil.
func (b *WordBoard) Word(id string) *Word {
	for _, w := range b.words {
		if w.ID == id {
			return w
		}
	}
	return nil
}

// Move shifts a word and updates every overlap it gained or lost.
func (b *WordBoard) Move(id string, dx, dy float64) bool {
	w := b.Word(id)
	if w == nil {
		return false
	}
	w.Bounds = w.Bounds.Translate(dx, dy)
	b.refresh(w)
	for _, o := range b.words {
		o.sortOverlaps()
	}
	return true
}

func (b *WordBoard) refresh(w *Word) {
	for _, o := range b.words {
		if o == w {
			continue
		}
		if w.Bounds.Intersects(o.Bounds) {
			w.Overlap(o)
			o.Overlap(w)
		} else {
			w.Separate(o)
			o.Separate(w)
		}
	}
}
