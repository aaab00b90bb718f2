package decode

import (
	"strconv"
	"strings"

	"github.com/dgallion1/notetree/internal/content"
)

// IndentUnit is the layout width of one indent level.
const IndentUnit = 40

// Relative text sizes for the scale attribute.
var scales = map[string]float64{
	"h1":    1.75,
	"h2":    1.50,
	"h3":    1.25,
	"small": 0.80,
	"sup":   0.80,
	"sub":   0.80,
}

// ResolveSpans turns the attributes of one run into full-range spans over
// [0, runLength). Every recognized attribute contributes independently;
// unrecognized attributes and values are ignored. The output order is fixed
// so that equal attribute sets always yield equal span lists.
func ResolveSpans(attrs map[string]string, runLength int) []content.Span {
	if runLength <= 0 || len(attrs) == 0 {
		return nil
	}
	var spans []content.Span
	add := func(s content.Style) {
		spans = append(spans, content.Span{Start: 0, End: runLength, Style: s})
	}

	if v := attrs["strikethrough"]; isTrue(v) {
		add(content.Style{Kind: content.StyleStrikethrough})
	}
	if v := attrs["foreground"]; v != "" {
		add(content.Style{Kind: content.StyleForeground, Color: NormalizeColor(v)})
	}
	if v := attrs["background"]; v != "" {
		add(content.Style{Kind: content.StyleBackground, Color: NormalizeColor(v)})
	}
	if v := attrs["weight"]; v == "heavy" || v == "bold" {
		add(content.Style{Kind: content.StyleBold})
	}
	if attrs["style"] == "italic" {
		add(content.Style{Kind: content.StyleItalic})
	}
	if v := attrs["underline"]; v != "" && v != "none" {
		add(content.Style{Kind: content.StyleUnderline})
	}
	if v := attrs["scale"]; v != "" {
		if f, ok := scales[v]; ok {
			add(content.Style{Kind: content.StyleScale, Scale: f})
			switch v {
			case "sup":
				add(content.Style{Kind: content.StyleSuperscript})
			case "sub":
				add(content.Style{Kind: content.StyleSubscript})
			}
		}
	}
	if attrs["family"] == "monospace" {
		add(content.Style{Kind: content.StyleMonospace})
	}
	if v := attrs["link"]; v != "" {
		if l := ParseLink(v); l != nil {
			add(content.Style{Kind: content.StyleLink, Link: l})
		}
	}
	if v := attrs["justification"]; v == "right" || v == "center" {
		add(content.Style{Kind: content.StyleJustify, Justify: v})
	}
	if v := attrs["indent"]; v != "" {
		if level, err := strconv.Atoi(v); err == nil && level > 0 {
			add(content.Style{Kind: content.StyleIndent, Indent: level * IndentUnit})
		}
	}
	return spans
}

// ParseLink parses a link attribute value:
//
//	webs <url>
//	node <id> [anchor]
//	file <base64 path>
//	fold <base64 path>
//
// It returns nil for anything else.
func ParseLink(v string) *content.Link {
	kind, rest, _ := strings.Cut(v, " ")
	switch kind {
	case "webs":
		if rest == "" {
			return nil
		}
		return &content.Link{Kind: content.LinkWeb, URL: rest}
	case "node":
		idStr, anchor, _ := strings.Cut(rest, " ")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil
		}
		return &content.Link{Kind: content.LinkNode, NodeID: id, Anchor: anchor}
	case "file":
		return &content.Link{Kind: content.LinkFile, Path: rest}
	case "fold":
		return &content.Link{Kind: content.LinkFolder, Path: rest}
	}
	return nil
}

func isTrue(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
