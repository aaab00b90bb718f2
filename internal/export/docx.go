package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/notetree/internal/content"
)

// Run sizes are in half-points.
const (
	docxBodySize = 22
	monoFont     = "Courier New"
)

var docxHeadingSizes = []string{"36", "32", "28", "26", "24", "22"}

// DOCX writes sections as a Word document. Pictures and attachments are
// written as their references; their bytes are not embedded.
func DOCX(w io.Writer, sections []Section, opts Options) error {
	opts = opts.withDefaults()
	f := docx.New().WithDefaultTheme()
	for _, s := range sections {
		level := min(max(s.Level, 0), len(docxHeadingSizes)-1)
		f.AddParagraph().AddText(s.Title).Bold().Size(docxHeadingSizes[level])
		for _, blk := range s.Blocks {
			writeDocxBlock(f, blk, opts)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}

func writeDocxBlock(f *docx.Docx, blk content.Block, opts Options) {
	switch blk := blk.(type) {
	case *content.TextRun:
		writeDocxRun(f, blk, opts)
	case *content.Table:
		writeDocxTable(f, blk)
	case *content.CodeBox:
		writeDocxCode(f, blk)
	default:
		writeDocxEmbed(f.AddParagraph(), blk, opts)
	}
}

func writeDocxRun(f *docx.Docx, run *content.TextRun, opts Options) {
	p := newDocxParagraph(f, run, 0)
	for _, seg := range segments(run, func(content.StyleKind) bool { return true }) {
		if seg.embed != nil {
			if cb, ok := seg.embed.(*content.CodeBox); ok {
				writeDocxCode(f, cb)
				p = newDocxParagraph(f, run, seg.start+seg.length)
				continue
			}
			writeDocxEmbed(p, seg.embed, opts)
			continue
		}
		pos := seg.start
		for i, line := range strings.Split(string(seg.text), "\n") {
			if i > 0 {
				pos++
				p = newDocxParagraph(f, run, pos)
			}
			if line != "" {
				styleDocx(p, line, seg)
			}
			pos += len([]rune(line))
		}
	}
}

// newDocxParagraph starts a paragraph whose first character is at rune pos
// of run, taking its alignment from the spans there.
func newDocxParagraph(f *docx.Docx, run *content.TextRun, pos int) *docx.Paragraph {
	p := f.AddParagraph()
	for _, sp := range run.Spans {
		if sp.Start > pos || pos >= sp.End {
			continue
		}
		if sp.Style.Kind != content.StyleJustify {
			continue
		}
		switch sp.Style.Justify {
		case "center":
			p.Justification("center")
		case "right":
			p.Justification("end")
		}
	}
	return p
}

func styleDocx(p *docx.Paragraph, text string, seg segment) {
	if st, ok := seg.style(content.StyleLink); ok && st.Link != nil && st.Link.Kind == content.LinkWeb {
		p.AddLink(text, st.Link.URL)
		return
	}
	r := p.AddText(text)
	for _, st := range seg.styles {
		switch st.Kind {
		case content.StyleBold:
			r.Bold()
		case content.StyleItalic:
			r.Italic()
		case content.StyleUnderline:
			r.Underline("single")
		case content.StyleStrikethrough:
			r.Strike(true)
		case content.StyleForeground:
			r.Color(strings.TrimPrefix(st.Color, "#"))
		case content.StyleBackground:
			r.Shade("clear", "auto", strings.TrimPrefix(st.Color, "#"))
		case content.StyleScale:
			r.Size(fmt.Sprint(int(docxBodySize * st.Scale)))
		case content.StyleMonospace:
			r.Font(monoFont, monoFont, monoFont, "default")
		}
	}
}

func writeDocxCode(f *docx.Docx, cb *content.CodeBox) {
	for _, line := range strings.Split(strings.TrimRight(cb.Text, "\n"), "\n") {
		f.AddParagraph().AddText(line).Font(monoFont, monoFont, monoFont, "default").Shade("clear", "auto", "F2F2F2")
	}
}

func writeDocxEmbed(p *docx.Paragraph, blk content.Block, opts Options) {
	switch blk := blk.(type) {
	case *content.Image:
		p.AddLink("[image]", opts.PayloadURL(blk.Locator))
	case *content.Attachment:
		p.AddLink(blk.Filename, opts.PayloadURL(blk.Locator))
	case *content.Anchor:
		// Anchors have no visible form.
	}
}

func writeDocxTable(f *docx.Docx, t *content.Table) {
	cols := t.Columns()
	if cols == 0 {
		return
	}
	tbl := f.AddTable(len(t.Rows), cols, 0, nil)
	for i, row := range t.Rows {
		for c := range cols {
			cell := ""
			if c < len(row) {
				cell = row[c]
			}
			r := tbl.TableRows[i].TableCells[c].AddParagraph().AddText(cell)
			if i == 0 {
				r.Bold()
			}
		}
	}
}
