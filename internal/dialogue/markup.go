package dialogue

import (
	"regexp"
	"strings"
)

// Links are written inline as [[label|id]] or [[id]].
var linkRegex = regexp.MustCompile(`\[\[([^\]]+)\]\]`)

// Segment is a run of displayed text, optionally belonging to a link.
type Segment struct {
	Text string
	Link string // empty for plain text
}

// Segments splits marked-up text into plain and link runs.
func Segments(text string) []Segment {
	var out []Segment
	last := 0
	for _, m := range linkRegex.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > last {
			out = append(out, Segment{Text: text[last:m[0]]})
		}
		label, id := splitLink(text[m[2]:m[3]])
		out = append(out, Segment{Text: label, Link: id})
		last = m[1]
	}
	if last < len(text) {
		out = append(out, Segment{Text: text[last:]})
	}
	return out
}

// LinkIDs returns the link ids in text, in order of appearance.
func LinkIDs(text string) []string {
	var ids []string
	for _, m := range linkRegex.FindAllStringSubmatch(text, -1) {
		_, id := splitLink(m[1])
		ids = append(ids, id)
	}
	return ids
}

// Plain returns text with link markup replaced by the link labels.
func Plain(text string) string {
	var b strings.Builder
	for _, s := range Segments(text) {
		b.WriteString(s.Text)
	}
	return b.String()
}

func splitLink(body string) (label, id string) {
	parts := strings.Split(body, "|")
	id = strings.TrimSpace(parts[len(parts)-1])
	if len(parts) == 1 {
		return id, id
	}
	return strings.Join(parts[:len(parts)-1], "|"), id
}
