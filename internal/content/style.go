package content

import (
	"encoding/base64"
	"fmt"
)

// StyleKind enumerates the formatting directives a span can carry.
type StyleKind uint8

const (
	StyleStrikethrough StyleKind = iota + 1
	StyleForeground
	StyleBackground
	StyleBold
	StyleItalic
	StyleUnderline
	StyleScale
	StyleSuperscript
	StyleSubscript
	StyleMonospace
	StyleLink
	StyleJustify
	StyleIndent
)

var styleNames = map[StyleKind]string{
	StyleStrikethrough: "strikethrough",
	StyleForeground:    "foreground",
	StyleBackground:    "background",
	StyleBold:          "bold",
	StyleItalic:        "italic",
	StyleUnderline:     "underline",
	StyleScale:         "scale",
	StyleSuperscript:   "superscript",
	StyleSubscript:     "subscript",
	StyleMonospace:     "monospace",
	StyleLink:          "link",
	StyleJustify:       "justify",
	StyleIndent:        "indent",
}

func (k StyleKind) String() string {
	if s, ok := styleNames[k]; ok {
		return s
	}
	return fmt.Sprintf("style(%d)", uint8(k))
}

func (k StyleKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Style is one directive. Only the field matching Kind is meaningful.
type Style struct {
	Kind    StyleKind `json:"kind"`
	Color   string    `json:"color,omitempty"`   // foreground, background
	Scale   float64   `json:"scale,omitempty"`   // scale
	Link    *Link     `json:"link,omitempty"`    // link
	Justify string    `json:"justify,omitempty"` // "right" or "center"
	Indent  int       `json:"indent,omitempty"`  // layout units
}

// Span applies Style to runes [Start, End).
type Span struct {
	Start int   `json:"start"`
	End   int   `json:"end"`
	Style Style `json:"style"`
}

// LinkKind is the target family of a link.
type LinkKind string

const (
	LinkWeb    LinkKind = "web"
	LinkNode   LinkKind = "node"
	LinkFile   LinkKind = "file"
	LinkFolder LinkKind = "folder"
)

// Link is a resolved link attribute. File and folder links keep the path
// exactly as encoded in the document.
type Link struct {
	Kind   LinkKind `json:"kind"`
	URL    string   `json:"url,omitempty"`
	NodeID int64    `json:"node_id,omitempty"`
	Anchor string   `json:"anchor,omitempty"`
	Path   string   `json:"path,omitempty"`
}

// Navigable reports whether following the link stays within reach of a reader:
// web pages and cross-references are, local files and folders are not.
func (l *Link) Navigable() bool {
	return l.Kind == LinkWeb || l.Kind == LinkNode
}

// DecodedPath returns the original file or folder path for display.
func (l *Link) DecodedPath() string {
	if l.Path == "" {
		return ""
	}
	b, err := base64.StdEncoding.DecodeString(l.Path)
	if err != nil {
		return l.Path
	}
	return string(b)
}
