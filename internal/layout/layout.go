// Package layout wraps dialogue text into terminal-cell lines and records
// where each link landed so pointer positions can be mapped back to link ids.
package layout

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"SpiritTalk/internal/dialogue"
)

// Span is a run of cells on one line that belongs to a link.
// Start is inclusive, End exclusive, both in cell columns.
type Span struct {
	Line  int
	Start int
	End   int
	Link  string
}

// Block is wrapped text ready to draw.
type Block struct {
	Lines []string
	Spans []Span
	Width int
}

type cell struct {
	r    rune
	w    int
	link string
}

// Wrap lays text out in lines no wider than width cells. Link markup is
// replaced by its label. A width of zero or less disables wrapping.
func Wrap(text string, width int) Block {
	cells := flatten(text)
	var rows [][]cell
	var line []cell
	lineW := 0

	flush := func() {
		for len(line) > 0 && line[len(line)-1].r == ' ' {
			lineW -= line[len(line)-1].w
			line = line[:len(line)-1]
		}
		rows = append(rows, line)
		line = nil
		lineW = 0
	}

	for i := 0; i < len(cells); {
		c := cells[i]
		switch {
		case c.r == '\n':
			flush()
			i++
			continue
		case c.r == ' ':
			if len(line) > 0 {
				line = append(line, c)
				lineW += c.w
			}
			i++
			continue
		}

		j, wordW := i, 0
		for j < len(cells) && cells[j].r != ' ' && cells[j].r != '\n' {
			wordW += cells[j].w
			j++
		}
		if width > 0 && lineW+wordW > width && len(line) > 0 {
			flush()
			continue
		}
		for _, wc := range cells[i:j] {
			if width > 0 && lineW+wc.w > width && len(line) > 0 {
				flush()
			}
			line = append(line, wc)
			lineW += wc.w
		}
		i = j
	}
	if len(line) > 0 {
		flush()
	}
	return build(rows, width)
}

func flatten(text string) []cell {
	var cells []cell
	for _, seg := range dialogue.Segments(text) {
		for _, r := range seg.Text {
			if r == '\t' {
				r = ' '
			}
			if r == '\r' {
				continue
			}
			w := runewidth.RuneWidth(r)
			if w == 0 && r != '\n' {
				continue
			}
			cells = append(cells, cell{r: r, w: w, link: seg.Link})
		}
	}
	return cells
}

func build(rows [][]cell, width int) Block {
	b := Block{Width: width}
	for y, row := range rows {
		var sb strings.Builder
		col := 0
		var open *Span
		for _, c := range row {
			sb.WriteRune(c.r)
			if open != nil && open.Link != c.link {
				b.Spans = append(b.Spans, *open)
				open = nil
			}
			if c.link != "" && open == nil {
				open = &Span{Line: y, Start: col, Link: c.link}
			}
			col += c.w
			if open != nil {
				open.End = col
			}
		}
		if open != nil {
			b.Spans = append(b.Spans, *open)
		}
		b.Lines = append(b.Lines, sb.String())
	}
	return b
}

// LinkAt returns the link drawn at cell (col, row) of the block.
func (b Block) LinkAt(col, row int) (string, bool) {
	for _, s := range b.Spans {
		if s.Line == row && col >= s.Start && col < s.End {
			return s.Link, true
		}
	}
	return "", false
}

// Height is the number of lines.
func (b Block) Height() int { return len(b.Lines) }

// SpansOn returns the link spans on line y.
func (b Block) SpansOn(y int) []Span {
	var out []Span
	for _, s := range b.Spans {
		if s.Line == y {
			out = append(out, s)
		}
	}
	return out
}
