package store

// Syntax is the content kind of a node.
type Syntax int

const (
	SyntaxRichText Syntax = iota
	SyntaxPlainText
	SyntaxCode
)

// Syntax names as written in both encodings.
const (
	RichTextName  = "custom-colors"
	PlainTextName = "plain-text"
)

// ParseSyntax maps a stored syntax name to its kind.
func ParseSyntax(name string) Syntax {
	switch name {
	case RichTextName:
		return SyntaxRichText
	case PlainTextName:
		return SyntaxPlainText
	default:
		return SyntaxCode
	}
}

func (s Syntax) String() string {
	switch s {
	case SyntaxRichText:
		return "rich-text"
	case SyntaxPlainText:
		return "plain-text"
	default:
		return "code"
	}
}

// Node is one entry of the document tree.
type Node struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID int64  `json:"parent_id"` // 0 for root nodes
	MasterID int64  `json:"master_id,omitempty"`
	Sequence int    `json:"sequence"`

	Syntax   Syntax `json:"-"`
	Language string `json:"language"` // raw syntax name, e.g. "custom-colors" or "python"

	ExcludeSelf     bool `json:"exclude_self,omitempty"`
	ExcludeChildren bool `json:"exclude_children,omitempty"`
	Bookmarked      bool `json:"bookmarked,omitempty"`

	ReadOnly     bool    `json:"read_only,omitempty"`
	Tags         string  `json:"tags,omitempty"`
	IsBold       bool    `json:"is_bold,omitempty"`
	Foreground   string  `json:"foreground,omitempty"`
	CustomIconID int     `json:"custom_icon_id,omitempty"`
	Created      float64 `json:"ts_creation,omitempty"`
	LastSaved    float64 `json:"ts_lastsave,omitempty"`
}

// ContentID is the node whose content this node shows.
func (n Node) ContentID() int64 {
	if n.MasterID != 0 {
		return n.MasterID
	}
	return n.ID
}

// Run is a stretch of inline text with its raw formatting attributes.
type Run struct {
	Text  string
	Attrs map[string]string
}

// AuxKind tags the side table an auxiliary element was read from.
// The order of the constants is the tie-break order for equal offsets.
type AuxKind int

const (
	AuxCodeBox AuxKind = iota
	AuxImage
	AuxTable
)

func (k AuxKind) String() string {
	switch k {
	case AuxCodeBox:
		return "codebox"
	case AuxImage:
		return "image"
	case AuxTable:
		return "table"
	}
	return "unknown"
}

// Aux is an offset-tagged non-text element as stored. Which fields are set
// depends on Kind.
type Aux struct {
	Kind          AuxKind
	Offset        int
	Justification string

	// codebox
	Text              string
	Syntax            string
	Width             int
	Height            int
	WidthInPixels     bool
	HighlightBrackets bool
	ShowLineNumbers   bool

	// table; rows in stored order, header last
	Rows      [][]string
	ColMin    int
	ColMax    int
	ColWidths []int
	IsLight   bool

	// image row: anchor, attachment, formula or picture
	Anchor   string
	Filename string
	Link     string
	Time     float64
}
