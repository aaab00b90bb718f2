// Package ctxml holds the XML element vocabulary shared by both document
// encodings: inline rich_text runs, tables, code boxes and encoded_png
// elements. The XML adapter decodes these elements in place; the relational
// adapter decodes the same elements from the fragments stored in its text
// columns, so both produce identical raw content.
package ctxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/dgallion1/notetree/internal/store"
)

// FormulaFilename marks an encoded_png element holding a formula source.
const FormulaFilename = "__ct_special.tex"

// RichText is an inline run; every attribute is a formatting property.
type RichText struct {
	Attrs []xml.Attr `xml:",any,attr"`
	Text  string     `xml:",chardata"`
}

// Run converts the element into a raw run.
func (r RichText) Run() store.Run {
	run := store.Run{Text: r.Text}
	if len(r.Attrs) > 0 {
		run.Attrs = make(map[string]string, len(r.Attrs))
		for _, a := range r.Attrs {
			run.Attrs[a.Name.Local] = a.Value
		}
	}
	return run
}

// Runs converts a list of rich_text elements.
func Runs(elems []RichText) []store.Run {
	runs := make([]store.Run, 0, len(elems))
	for _, e := range elems {
		runs = append(runs, e.Run())
	}
	return runs
}

type fragment struct {
	XMLName  xml.Name   `xml:"node"`
	RichText []RichText `xml:"rich_text"`
}

// ParseFragment parses the <node><rich_text>…</rich_text></node> fragment
// stored in a relational text column.
func ParseFragment(data []byte) ([]store.Run, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var f fragment
	if err := xml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rich text fragment: %w", err)
	}
	return Runs(f.RichText), nil
}

// Cell is a table cell.
type Cell struct {
	Text string `xml:",chardata"`
}

// Row is a table row.
type Row struct {
	Cells []Cell `xml:"cell"`
}

// Table is a <table> element. Rows are in stored order with the header last.
type Table struct {
	CharOffset    string `xml:"char_offset,attr"`
	Justification string `xml:"justification,attr"`
	ColMin        string `xml:"col_min,attr"`
	ColMax        string `xml:"col_max,attr"`
	ColWidths     string `xml:"col_widths,attr"`
	IsLight       string `xml:"is_light,attr"`
	Rows          []Row  `xml:"row"`
}

// ParseTable parses a standalone <table> fragment.
func ParseTable(data []byte) (Table, error) {
	var t Table
	if err := xml.Unmarshal(data, &t); err != nil {
		return Table{}, fmt.Errorf("parse table fragment: %w", err)
	}
	return t, nil
}

// StoredRows returns the cell texts in stored order.
func (t Table) StoredRows() [][]string {
	rows := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		cells := make([]string, 0, len(r.Cells))
		for _, c := range r.Cells {
			cells = append(cells, c.Text)
		}
		rows = append(rows, cells)
	}
	return rows
}

// Aux converts the element. Offset is taken from char_offset.
func (t Table) Aux() (store.Aux, error) {
	offset, err := Int(t.CharOffset)
	if err != nil {
		return store.Aux{}, fmt.Errorf("table char_offset: %w", err)
	}
	aux := store.Aux{Kind: store.AuxTable, Offset: offset, Justification: t.Justification}
	if err := t.fill(&aux); err != nil {
		return store.Aux{}, err
	}
	return aux, nil
}

// fill copies rows and column hints into aux, leaving offset and
// justification as they are.
func (t Table) fill(aux *store.Aux) error {
	var err error
	aux.Rows = t.StoredRows()
	if aux.ColMin, err = Int(t.ColMin); err != nil {
		return fmt.Errorf("table col_min: %w", err)
	}
	if aux.ColMax, err = Int(t.ColMax); err != nil {
		return fmt.Errorf("table col_max: %w", err)
	}
	if aux.ColWidths, err = IntList(t.ColWidths); err != nil {
		return fmt.Errorf("table col_widths: %w", err)
	}
	aux.IsLight = Bool(t.IsLight)
	return nil
}

// FillTable parses a stored table fragment into aux. Column limits already
// set on aux (from dedicated columns) are kept when the fragment has none.
func FillTable(aux *store.Aux, data []byte) error {
	t, err := ParseTable(data)
	if err != nil {
		return err
	}
	colMin, colMax := aux.ColMin, aux.ColMax
	if err := t.fill(aux); err != nil {
		return err
	}
	if t.ColMin == "" {
		aux.ColMin = colMin
	}
	if t.ColMax == "" {
		aux.ColMax = colMax
	}
	return nil
}

// CodeBox is a <codebox> element.
type CodeBox struct {
	CharOffset         string `xml:"char_offset,attr"`
	Justification      string `xml:"justification,attr"`
	FrameWidth         string `xml:"frame_width,attr"`
	FrameHeight        string `xml:"frame_height,attr"`
	WidthInPixels      string `xml:"width_in_pixels,attr"`
	SyntaxHighlighting string `xml:"syntax_highlighting,attr"`
	HighlightBrackets  string `xml:"highlight_brackets,attr"`
	ShowLineNumbers    string `xml:"show_line_numbers,attr"`
	Text               string `xml:",chardata"`
}

// Aux converts the element.
func (c CodeBox) Aux() (store.Aux, error) {
	offset, err := Int(c.CharOffset)
	if err != nil {
		return store.Aux{}, fmt.Errorf("codebox char_offset: %w", err)
	}
	width, err := Int(c.FrameWidth)
	if err != nil {
		return store.Aux{}, fmt.Errorf("codebox frame_width: %w", err)
	}
	height, err := Int(c.FrameHeight)
	if err != nil {
		return store.Aux{}, fmt.Errorf("codebox frame_height: %w", err)
	}
	return store.Aux{
		Kind:              store.AuxCodeBox,
		Offset:            offset,
		Justification:     c.Justification,
		Text:              c.Text,
		Syntax:            c.SyntaxHighlighting,
		Width:             width,
		Height:            height,
		WidthInPixels:     Bool(c.WidthInPixels),
		HighlightBrackets: Bool(c.HighlightBrackets),
		ShowLineNumbers:   Bool(c.ShowLineNumbers),
	}, nil
}

// EncodedPNG is an <encoded_png> element: a picture, an attachment (filename
// set), an anchor (anchor set) or a formula. Data is base64.
type EncodedPNG struct {
	CharOffset    string `xml:"char_offset,attr"`
	Justification string `xml:"justification,attr"`
	Anchor        string `xml:"anchor,attr"`
	Filename      string `xml:"filename,attr"`
	Link          string `xml:"link,attr"`
	Time          string `xml:"time,attr"`
	Data          string `xml:",chardata"`
}

// Aux converts the element without its payload.
func (p EncodedPNG) Aux() (store.Aux, error) {
	offset, err := Int(p.CharOffset)
	if err != nil {
		return store.Aux{}, fmt.Errorf("encoded_png char_offset: %w", err)
	}
	var ts float64
	if p.Time != "" {
		if ts, err = strconv.ParseFloat(p.Time, 64); err != nil {
			return store.Aux{}, fmt.Errorf("encoded_png time: %w", err)
		}
	}
	return store.Aux{
		Kind:          store.AuxImage,
		Offset:        offset,
		Justification: p.Justification,
		Anchor:        p.Anchor,
		Filename:      p.Filename,
		Link:          p.Link,
		Time:          ts,
	}, nil
}

// Int parses an integer attribute; empty means 0.
func Int(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// IntList parses a comma separated integer list such as col_widths.
func IntList(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := Int(p)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// Bool parses a boolean attribute ("1", "True", ...); anything else is false.
func Bool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}
