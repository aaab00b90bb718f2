package export

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/notetree/internal/content"
)

var markdownStyles = map[content.StyleKind]bool{
	content.StyleBold:          true,
	content.StyleItalic:        true,
	content.StyleStrikethrough: true,
	content.StyleMonospace:     true,
	content.StyleSuperscript:   true,
	content.StyleSubscript:     true,
	content.StyleLink:          true,
}

// Markdown writes sections as CommonMark with GFM tables and
// strikethrough. Each heading is preceded by an anchor named NodeAnchor.
func Markdown(w io.Writer, sections []Section, opts Options) error {
	opts = opts.withDefaults()
	var b strings.Builder
	for _, s := range sections {
		writeHeading(&b, s)
		for _, blk := range s.Blocks {
			writeMarkdownBlock(&b, blk, opts)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeHeading(b *strings.Builder, s Section) {
	level := min(max(s.Level+1, 1), 6)
	fmt.Fprintf(b, "<a id=\"%s\"></a>\n\n%s %s\n\n", NodeAnchor(s.ID), strings.Repeat("#", level), escapeMarkdown(s.Title))
}

func writeMarkdownBlock(b *strings.Builder, blk content.Block, opts Options) {
	switch blk := blk.(type) {
	case *content.TextRun:
		var sb strings.Builder
		for _, seg := range segments(blk, func(k content.StyleKind) bool { return markdownStyles[k] }) {
			if seg.embed != nil {
				writeMarkdownEmbed(&sb, seg.embed, opts)
				continue
			}
			sb.WriteString(markdownText(seg, opts))
		}
		out := strings.TrimRight(sb.String(), " \n")
		if out != "" {
			b.WriteString(out)
			b.WriteString("\n\n")
		}
	case *content.Table:
		writeMarkdownTable(b, blk)
	default:
		writeMarkdownEmbed(b, blk, opts)
		b.WriteString("\n\n")
	}
}

func writeMarkdownEmbed(b *strings.Builder, blk content.Block, opts Options) {
	switch blk := blk.(type) {
	case *content.CodeBox:
		b.WriteString("\n\n")
		b.WriteString(fence(blk.Text, blk.Syntax))
		b.WriteString("\n\n")
	case *content.Image:
		fmt.Fprintf(b, "![image](%s)", destination(opts.PayloadURL(blk.Locator)))
	case *content.Attachment:
		fmt.Fprintf(b, "[%s](%s)", escapeMarkdown(blk.Filename), destination(opts.PayloadURL(blk.Locator)))
	case *content.Anchor:
		fmt.Fprintf(b, "<a id=\"%s\"></a>", html.EscapeString(blk.Name))
	case *content.Table:
		b.WriteString("\n\n")
		writeMarkdownTable(b, blk)
	}
}

// markdownText renders a styled segment. Line breaks inside a run become
// hard breaks.
func markdownText(seg segment, opts Options) string {
	lines := strings.Split(string(seg.text), "\n")
	for i, line := range lines {
		lines[i] = styleInline(line, seg, opts)
	}
	return strings.Join(lines, "  \n")
}

func styleInline(s string, seg segment, opts Options) string {
	core := strings.Trim(s, " \t")
	if core == "" {
		return s
	}
	lead := s[:len(s)-len(strings.TrimLeft(s, " \t"))]
	trail := s[len(lead)+len(core):]

	if _, ok := seg.style(content.StyleMonospace); ok {
		core = codeSpan(core)
	} else {
		core = escapeMarkdown(core)
	}
	if _, ok := seg.style(content.StyleSuperscript); ok {
		core = "<sup>" + core + "</sup>"
	}
	if _, ok := seg.style(content.StyleSubscript); ok {
		core = "<sub>" + core + "</sub>"
	}
	if _, ok := seg.style(content.StyleStrikethrough); ok {
		core = "~~" + core + "~~"
	}
	if _, ok := seg.style(content.StyleItalic); ok {
		core = "*" + core + "*"
	}
	if _, ok := seg.style(content.StyleBold); ok {
		core = "**" + core + "**"
	}
	if st, ok := seg.style(content.StyleLink); ok && st.Link != nil {
		switch st.Link.Kind {
		case content.LinkWeb:
			core = fmt.Sprintf("[%s](%s)", core, destination(st.Link.URL))
		case content.LinkNode:
			core = fmt.Sprintf("[%s](%s)", core, destination(opts.NodeURL(st.Link.NodeID, st.Link.Anchor)))
		}
	}
	return lead + core + trail
}

func writeMarkdownTable(b *strings.Builder, t *content.Table) {
	cols := t.Columns()
	if cols == 0 {
		return
	}
	for i, row := range t.Rows {
		b.WriteString("|")
		for c := range cols {
			cell := ""
			if c < len(row) {
				cell = row[c]
			}
			b.WriteString(" ")
			b.WriteString(strings.ReplaceAll(escapeMarkdown(cell), "\n", "<br>"))
			b.WriteString(" |")
		}
		b.WriteString("\n")
		if i == 0 {
			b.WriteString("|")
			b.WriteString(strings.Repeat(" --- |", cols))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"<", `\<`, ">", `\>`, "#", `\#`, "|", `\|`, "~", `\~`, "!", `\!`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func destination(u string) string {
	if strings.ContainsAny(u, " ()<>") {
		return "<" + strings.NewReplacer("<", "%3C", ">", "%3E").Replace(u) + ">"
	}
	return u
}

func codeSpan(s string) string {
	ticks := strings.Repeat("`", longestRun(s, '`')+1)
	if strings.HasPrefix(s, "`") || strings.HasSuffix(s, "`") {
		return ticks + " " + s + " " + ticks
	}
	return ticks + s + ticks
}

func fence(text, syntax string) string {
	ticks := strings.Repeat("`", max(3, longestRun(text, '`')+1))
	lang := syntax
	if lang == "plain-text" || lang == "custom-colors" {
		lang = ""
	}
	return ticks + lang + "\n" + strings.TrimRight(text, "\n") + "\n" + ticks
}

func longestRun(s string, r rune) int {
	best, cur := 0, 0
	for _, c := range s {
		if c == r {
			cur++
			best = max(best, cur)
		} else {
			cur = 0
		}
	}
	return best
}
