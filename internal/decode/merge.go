package decode

import (
	"sort"

	"github.com/dgallion1/notetree/internal/content"
)

// element is an auxiliary element rendered for insertion into the backbone.
type element struct {
	offset int // as stored, relative to the unmerged backbone
	text   []rune
	block  content.Block
	split  bool // tables end the current TextRun
}

// mark records where an element landed in the merged backbone.
type mark struct {
	pos    int
	length int
	block  content.Block
	split  bool
}

type merger struct {
	text  []rune
	spans []content.Span
	marks []mark
}

// merge inserts elements, already sorted by stored offset, into the
// backbone. Each element goes to offset+adjustment, after which the
// adjustment grows by the rendered length minus one: the stored offsets
// already count one placeholder character per element. An element with
// neither text nor block (a formula) is not inserted but still takes back
// its placeholder.
func merge(text []rune, spans []content.Span, elems []element) *merger {
	m := &merger{text: text, spans: spans}
	adjustment := 0
	for _, e := range elems {
		if e.block != nil || len(e.text) > 0 {
			m.insert(e.offset+adjustment, e)
		}
		adjustment += len(e.text) - 1
	}
	sort.SliceStable(m.marks, func(i, j int) bool { return m.marks[i].pos < m.marks[j].pos })
	return m
}

func (m *merger) insert(pos int, e element) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(m.text) {
		pos = len(m.text)
	}
	// Never land inside an element placed earlier.
	for _, mk := range m.marks {
		if pos > mk.pos && pos < mk.pos+mk.length {
			pos = mk.pos + mk.length
		}
	}
	n := len(e.text)

	text := make([]rune, 0, len(m.text)+n)
	text = append(text, m.text[:pos]...)
	text = append(text, e.text...)
	m.text = append(text, m.text[pos:]...)

	var spans []content.Span
	for _, s := range m.spans {
		switch {
		case s.Start >= pos:
			s.Start += n
			s.End += n
			spans = append(spans, s)
		case s.End > pos:
			tail := s
			s.End = pos
			tail.Start = pos + n
			tail.End += n
			spans = append(spans, s, tail)
		default:
			spans = append(spans, s)
		}
	}
	m.spans = spans

	for i := range m.marks {
		if m.marks[i].pos >= pos {
			m.marks[i].pos += n
		}
	}
	m.marks = append(m.marks, mark{pos: pos, length: n, block: e.block, split: e.split})
}

// blocks splits the merged backbone at every table. Without tables the whole
// backbone is a single TextRun, even when empty.
func (m *merger) blocks() []content.Block {
	var out []content.Block
	prev := 0
	for _, mk := range m.marks {
		if !mk.split {
			continue
		}
		if mk.pos > prev {
			out = append(out, m.segment(prev, mk.pos))
		}
		out = append(out, mk.block)
		prev = mk.pos + mk.length
	}
	if len(out) == 0 {
		return []content.Block{m.segment(0, len(m.text))}
	}
	if prev < len(m.text) {
		out = append(out, m.segment(prev, len(m.text)))
	}
	return out
}

func (m *merger) segment(from, to int) *content.TextRun {
	run := &content.TextRun{Text: string(m.text[from:to])}
	for _, s := range m.spans {
		start, end := max(s.Start, from), min(s.End, to)
		if start >= end {
			continue
		}
		s.Start, s.End = start-from, end-from
		run.Spans = append(run.Spans, s)
	}
	for _, mk := range m.marks {
		if mk.split || mk.pos < from || mk.pos+mk.length > to {
			continue
		}
		run.Embeds = append(run.Embeds, content.Embed{Offset: mk.pos - from, Length: mk.length, Block: mk.block})
	}
	return run
}
