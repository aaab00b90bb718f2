package content

import "encoding/json"

// BlockKind names the variant of a Block.
type BlockKind string

const (
	KindText       BlockKind = "text"
	KindTable      BlockKind = "table"
	KindCodeBox    BlockKind = "codebox"
	KindImage      BlockKind = "image"
	KindAttachment BlockKind = "attachment"
	KindAnchor     BlockKind = "anchor"
)

// Block is one decoded unit of a node's content. The set of implementations
// is closed: TextRun, Table, CodeBox, Image, Attachment and Anchor.
type Block interface {
	Kind() BlockKind
	isBlock()
}

// TextRun is merged text with its style spans. Inline auxiliary elements
// (code boxes, images, attachments, anchors) are carried as embeds.
type TextRun struct {
	Text   string  `json:"text"`
	Spans  []Span  `json:"spans,omitempty"`
	Embeds []Embed `json:"embeds,omitempty"`
}

// Embed places an inline block at [Offset, Offset+Length) of its TextRun, in runes.
type Embed struct {
	Offset int   `json:"offset"`
	Length int   `json:"length"`
	Block  Block `json:"block"`
}

func (e Embed) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Offset int       `json:"offset"`
		Length int       `json:"length"`
		Kind   BlockKind `json:"kind"`
		Block  Block     `json:"block"`
	}{e.Offset, e.Length, e.Block.Kind(), e.Block})
}

// Tagged pairs a block with its kind for serialization.
type Tagged struct {
	Kind  BlockKind `json:"kind"`
	Block Block     `json:"block"`
}

func Tag(blocks []Block) []Tagged {
	out := make([]Tagged, len(blocks))
	for i, b := range blocks {
		out[i] = Tagged{Kind: b.Kind(), Block: b}
	}
	return out
}

// Table is a grid with the header as row 0.
type Table struct {
	Rows          [][]string `json:"rows"`
	ColMin        int        `json:"col_min,omitempty"`
	ColMax        int        `json:"col_max,omitempty"`
	ColWidths     []int      `json:"col_widths,omitempty"`
	Justification string     `json:"justification,omitempty"`
	IsLight       bool       `json:"is_light,omitempty"`
}

// Columns is the header's cell count.
func (t *Table) Columns() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return len(t.Rows[0])
}

// CodeBox is a monospace block with its frame dimensions.
type CodeBox struct {
	Text              string `json:"text"`
	Syntax            string `json:"syntax,omitempty"`
	Width             int    `json:"width,omitempty"`
	Height            int    `json:"height,omitempty"`
	WidthInPixels     bool   `json:"width_in_pixels,omitempty"`
	HighlightBrackets bool   `json:"highlight_brackets,omitempty"`
	ShowLineNumbers   bool   `json:"show_line_numbers,omitempty"`
	Justification     string `json:"justification,omitempty"`
}

// Image is an embedded picture; its bytes are fetched through the Locator.
type Image struct {
	Locator       Locator `json:"locator"`
	Link          string  `json:"link,omitempty"`
	Justification string  `json:"justification,omitempty"`
}

// Attachment is an embedded file.
type Attachment struct {
	Filename      string  `json:"filename"`
	Locator       Locator `json:"locator"`
	Justification string  `json:"justification,omitempty"`
}

// Anchor is a named jump target inside a node.
type Anchor struct {
	Name string `json:"name"`
}

// Locator identifies the stored bytes of an image or attachment.
type Locator struct {
	NodeID   int64   `json:"node_id"`
	Offset   int     `json:"offset"`
	Filename string  `json:"filename,omitempty"`
	Time     float64 `json:"time,omitempty"`
}

func (*TextRun) Kind() BlockKind    { return KindText }
func (*Table) Kind() BlockKind      { return KindTable }
func (*CodeBox) Kind() BlockKind    { return KindCodeBox }
func (*Image) Kind() BlockKind      { return KindImage }
func (*Attachment) Kind() BlockKind { return KindAttachment }
func (*Anchor) Kind() BlockKind     { return KindAnchor }

func (*TextRun) isBlock()    {}
func (*Table) isBlock()      {}
func (*CodeBox) isBlock()    {}
func (*Image) isBlock()      {}
func (*Attachment) isBlock() {}
func (*Anchor) isBlock()     {}
