package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough),
	goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
)

// HTML writes sections as a standalone HTML page. Links to web pages open
// in a new tab; links between nodes stay in place.
func HTML(w io.Writer, title string, sections []Section, opts Options) error {
	var md bytes.Buffer
	if err := Markdown(&md, sections, opts); err != nil {
		return err
	}
	var body bytes.Buffer
	if err := markdownRenderer.Convert(md.Bytes(), &body); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}

	page := "<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>" +
		html.EscapeString(title) + "</title></head><body>" + body.String() + "</body></html>"
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return fmt.Errorf("parse rendered html: %w", err)
	}
	rewrite(doc)
	return html.Render(w, doc)
}

func rewrite(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.A:
			href := attr(n, "href")
			switch {
			case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
				setAttr(n, "target", "_blank")
				setAttr(n, "rel", "noopener noreferrer")
			case strings.HasPrefix(href, "#"):
				setAttr(n, "class", "node-link")
			}
		case atom.Img:
			setAttr(n, "loading", "lazy")
		case atom.Table:
			setAttr(n, "class", "grid")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		rewrite(c)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
