// Package export renders decoded node content as Markdown, HTML or DOCX.
package export

import (
	"fmt"
	"sort"

	"github.com/dgallion1/notetree/internal/content"
)

// Section is one node in an export: a heading followed by its blocks.
// Level 0 is the top node of the export.
type Section struct {
	ID     int64
	Title  string
	Level  int
	Blocks []content.Block
}

// Options controls how references out of the exported text are written.
type Options struct {
	// PayloadURL addresses the bytes of an image or attachment.
	PayloadURL func(content.Locator) string
	// NodeURL addresses another node, optionally at a named anchor.
	NodeURL func(id int64, anchor string) string
}

func (o Options) withDefaults() Options {
	if o.PayloadURL == nil {
		o.PayloadURL = func(l content.Locator) string {
			return fmt.Sprintf("payload/%d/%d", l.NodeID, l.Offset)
		}
	}
	if o.NodeURL == nil {
		o.NodeURL = func(id int64, anchor string) string {
			if anchor != "" {
				return "#" + anchor
			}
			return "#" + NodeAnchor(id)
		}
	}
	return o
}

// NodeAnchor is the element id given to a section heading.
func NodeAnchor(id int64) string {
	return fmt.Sprintf("node-%d", id)
}

// segment is a stretch of a TextRun with one set of styles, or a single
// embed.
type segment struct {
	start  int
	length int
	text   []rune
	styles []content.Style
	embed  content.Block
}

func (s segment) style(kind content.StyleKind) (content.Style, bool) {
	for _, st := range s.styles {
		if st.Kind == kind {
			return st, true
		}
	}
	return content.Style{}, false
}

// segments cuts run at every span boundary kept by keep and around every
// embed.
func segments(run *content.TextRun, keep func(content.StyleKind) bool) []segment {
	text := []rune(run.Text)
	n := len(text)

	var spans []content.Span
	bounds := []int{n}
	for _, sp := range run.Spans {
		if !keep(sp.Style.Kind) || sp.Start >= sp.End {
			continue
		}
		spans = append(spans, sp)
		bounds = append(bounds, sp.Start, sp.End)
	}
	sort.Ints(bounds)

	embeds := append([]content.Embed(nil), run.Embeds...)
	sort.SliceStable(embeds, func(i, j int) bool { return embeds[i].Offset < embeds[j].Offset })

	var out []segment
	pos, ei := 0, 0
	for pos < n {
		for ei < len(embeds) && embeds[ei].Offset < pos {
			ei++
		}
		if ei < len(embeds) && embeds[ei].Offset == pos {
			e := embeds[ei]
			ei++
			out = append(out, segment{start: pos, length: e.Length, embed: e.Block})
			if e.Length > 0 {
				pos = min(pos+e.Length, n)
			}
			continue
		}

		end := n
		for _, b := range bounds {
			if b > pos {
				end = b
				break
			}
		}
		if ei < len(embeds) && embeds[ei].Offset < end {
			end = embeds[ei].Offset
		}

		var active []content.Style
		for _, sp := range spans {
			if sp.Start <= pos && pos < sp.End {
				active = append(active, sp.Style)
			}
		}
		out = append(out, segment{start: pos, text: text[pos:end], styles: active})
		pos = end
	}
	for ; ei < len(embeds); ei++ {
		out = append(out, segment{start: n, embed: embeds[ei].Block})
	}
	return out
}
