// Package testdoc writes one small document in both encodings for tests.
//
// Tree:
//
//	1 Welcome      rich text: text, picture, code box, table
//	├── 2 Code     python, read-only
//	└── 3 Plain    plain text, excluded from search
//	    └── 6 Kitten
//	4 Alias        alias of 1
//	5 Files        rich text: anchor, attachment, formula; children excluded
//	└── 7 Hidden
//
// Bookmarks: 5, 1.
package testdoc

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// Payloads stored for the picture and the attachment.
var (
	PicturePNG     = []byte("PNG1")
	AttachmentData = []byte("hello")
)

// XML is the hierarchical encoding of the document.
const XML = `<?xml version="1.0" encoding="UTF-8"?>
<cherrytree>
  <bookmarks list="5,1"/>
  <node name="Welcome" unique_id="1" prog_lang="custom-colors" tags="intro" readonly="0" nosearch_me="0" nosearch_ch="0" custom_icon_id="0" is_bold="1" foreground="#112233" ts_creation="1700000000.5" ts_lastsave="1700000100">
    <rich_text>Hello</rich_text><rich_text weight="heavy" foreground="#ff0000"> World</rich_text><rich_text>&#10;end</rich_text>
    <encoded_png char_offset="5" justification="left" link="">UE5HMQ==</encoded_png>
    <codebox char_offset="12" justification="left" frame_width="300" frame_height="100" width_in_pixels="1" syntax_highlighting="go" highlight_brackets="1" show_line_numbers="0">fmt.Println()</codebox>
    <table char_offset="14" justification="left" col_min="40" col_max="400" col_widths="0,0" is_light="0">
      <row><cell>apples</cell><cell>3</cell></row>
      <row><cell>Name</cell><cell>Qty</cell></row>
    </table>
    <node name="Code" unique_id="2" prog_lang="python" readonly="1" custom_icon_id="5">
      <rich_text>print('cat')</rich_text>
    </node>
    <node name="Plain" unique_id="3" prog_lang="plain-text" nosearch_me="1">
      <rich_text>A cat sat on the mat</rich_text>
      <node name="Kitten" unique_id="6" prog_lang="plain-text">
        <rich_text>cat nap</rich_text>
      </node>
    </node>
  </node>
  <node name="Alias" unique_id="4" master_id="1" prog_lang="custom-colors"/>
  <node name="Files" unique_id="5" prog_lang="custom-colors" nosearch_ch="1">
    <rich_text link="webs https://example.com">Attached: </rich_text>
    <encoded_png char_offset="0" anchor="top"/>
    <encoded_png char_offset="11" justification="left" filename="notes.txt" time="1700000200">aGVsbG8=</encoded_png>
    <encoded_png char_offset="12" filename="__ct_special.tex">eA==</encoded_png>
    <node name="Hidden" unique_id="7" prog_lang="plain-text">
      <rich_text>cat</rich_text>
    </node>
  </node>
</cherrytree>
`

// Schema creates the relational tables.
var Schema = []string{
	`CREATE TABLE node (node_id INTEGER UNIQUE, name TEXT, txt TEXT, syntax TEXT, tags TEXT,
		is_ro INTEGER, is_richtxt INTEGER, has_codebox INTEGER, has_table INTEGER,
		has_image INTEGER, level INTEGER, ts_creation REAL, ts_lastsave REAL)`,
	`CREATE TABLE children (node_id INTEGER UNIQUE, father_id INTEGER, sequence INTEGER, master_id INTEGER)`,
	`CREATE TABLE bookmark (node_id INTEGER UNIQUE, sequence INTEGER)`,
	`CREATE TABLE codebox (node_id INTEGER, offset INTEGER, justification TEXT, txt TEXT,
		syntax TEXT, width INTEGER, height INTEGER, is_width_pix INTEGER,
		do_highl_bra INTEGER, do_show_linenum INTEGER)`,
	`CREATE TABLE grid (node_id INTEGER, offset INTEGER, justification TEXT, txt TEXT,
		col_min INTEGER, col_max INTEGER)`,
	`CREATE TABLE image (node_id INTEGER, offset INTEGER, justification TEXT, anchor TEXT,
		png BLOB, filename TEXT, link TEXT, time REAL)`,
}

const (
	welcomeFragment = `<?xml version="1.0" encoding="UTF-8"?>` +
		`<node><rich_text>Hello</rich_text><rich_text weight="heavy" foreground="#ff0000"> World</rich_text>` +
		`<rich_text>&#10;end</rich_text></node>`
	filesFragment = `<?xml version="1.0" encoding="UTF-8"?>` +
		`<node><rich_text link="webs https://example.com">Attached: </rich_text></node>`
	tableFragment = `<table col_widths="0,0" is_light="0">` +
		`<row><cell>apples</cell><cell>3</cell></row><row><cell>Name</cell><cell>Qty</cell></row></table>`
)

// welcomeRichBits is is_richtxt for node 1: rich text, bold, foreground #112233.
const welcomeRichBits = 1 | 2 | 4 | 0x112233<<3

type row = []any

var fixture = []struct {
	query string
	rows  []row
}{
	{
		`INSERT INTO node (node_id, name, txt, syntax, tags, is_ro, is_richtxt, has_codebox, has_table, has_image, level, ts_creation, ts_lastsave)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0, 0, 0, ?, ?)`,
		[]row{
			{1, "Welcome", welcomeFragment, "custom-colors", "intro", 0, welcomeRichBits, 1700000000.5, 1700000100.0},
			{2, "Code", "print('cat')", "python", "", 1 | 5<<3, 0, 0.0, 0.0},
			{3, "Plain", "A cat sat on the mat", "plain-text", "", 2, 0, 0.0, 0.0},
			{4, "Alias", "", "custom-colors", "", 0, 1, 0.0, 0.0},
			{5, "Files", filesFragment, "custom-colors", "", 4, 1, 0.0, 0.0},
			{6, "Kitten", "cat nap", "plain-text", "", 0, 0, 0.0, 0.0},
			{7, "Hidden", "cat", "plain-text", "", 0, 0, 0.0, 0.0},
		},
	},
	{
		`INSERT INTO children (node_id, father_id, sequence, master_id) VALUES (?, ?, ?, ?)`,
		[]row{
			{1, 0, 1, 0},
			{2, 1, 1, 0},
			{3, 1, 2, 0},
			{6, 3, 1, 0},
			{4, 0, 2, 1},
			{5, 0, 3, 0},
			{7, 5, 1, 0},
		},
	},
	{
		`INSERT INTO bookmark (node_id, sequence) VALUES (?, ?)`,
		[]row{{5, 1}, {1, 2}},
	},
	{
		`INSERT INTO codebox (node_id, offset, justification, txt, syntax, width, height, is_width_pix, do_highl_bra, do_show_linenum)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		[]row{{1, 12, "left", "fmt.Println()", "go", 300, 100, 1, 1, 0}},
	},
	{
		`INSERT INTO grid (node_id, offset, justification, txt, col_min, col_max) VALUES (?, ?, ?, ?, ?, ?)`,
		[]row{{1, 14, "left", tableFragment, 40, 400}},
	},
	{
		`INSERT INTO image (node_id, offset, justification, anchor, png, filename, link, time) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		[]row{
			{1, 5, "left", "", PicturePNG, "", "", 0.0},
			{5, 0, "", "top", []byte{}, "", "", 0.0},
			{5, 11, "left", "", AttachmentData, "notes.txt", "", 1700000200.0},
			{5, 12, "", "", []byte("x"), "__ct_special.tex", "", 0.0},
		},
	},
}

// XMLFile writes the XML encoding to a temporary file and returns its path.
func XMLFile(tb testing.TB) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "doc.ctd")
	if err := os.WriteFile(path, []byte(XML), 0o644); err != nil {
		tb.Fatalf("write xml fixture: %v", err)
	}
	return path
}

// SQLiteFile writes the relational encoding to a temporary file and returns
// its path. Extra statements run after the fixture rows are inserted.
func SQLiteFile(tb testing.TB, extra ...string) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "doc.ctb")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		tb.Fatalf("open sqlite fixture: %v", err)
	}
	defer db.Close()

	for _, stmt := range Schema {
		if _, err := db.Exec(stmt); err != nil {
			tb.Fatalf("create schema: %v", err)
		}
	}
	for _, f := range fixture {
		for _, r := range f.rows {
			if _, err := db.Exec(f.query, r...); err != nil {
				tb.Fatalf("insert fixture row %v: %v", r[0], err)
			}
		}
	}
	for _, stmt := range extra {
		if _, err := db.Exec(stmt); err != nil {
			tb.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return path
}
