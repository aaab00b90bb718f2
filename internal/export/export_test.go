package export

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/dgallion1/notetree/internal/content"
	"github.com/dgallion1/notetree/internal/document"
	"github.com/dgallion1/notetree/internal/testdoc"
)

func fixtureSections(t *testing.T, ids ...int64) []Section {
	t.Helper()
	ctx := context.Background()
	doc, err := document.Open(ctx, testdoc.XMLFile(t), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer doc.Close()

	var out []Section
	for i, id := range ids {
		node, ok, err := doc.Index.Lookup(ctx, id)
		if err != nil || !ok {
			t.Fatalf("lookup %d: %v", id, err)
		}
		blocks, err := doc.Decoder.Decode(ctx, id)
		if err != nil {
			t.Fatalf("decode %d: %v", id, err)
		}
		out = append(out, Section{ID: id, Title: node.Name, Level: i, Blocks: blocks})
	}
	return out
}

func TestSegments(t *testing.T) {
	run := &content.TextRun{
		Text: "Hello\uFFFC World",
		Spans: []content.Span{
			{Start: 6, End: 12, Style: content.Style{Kind: content.StyleForeground, Color: "#ff0000"}},
			{Start: 8, End: 12, Style: content.Style{Kind: content.StyleBold}},
		},
		Embeds: []content.Embed{{Offset: 5, Length: 1, Block: &content.Anchor{Name: "a"}}},
	}

	onlyBold := func(k content.StyleKind) bool { return k == content.StyleBold }
	segs := segments(run, onlyBold)
	if len(segs) != 4 {
		t.Fatalf("expected 4 segments, got %d: %+v", len(segs), segs)
	}
	if string(segs[0].text) != "Hello" || len(segs[0].styles) != 0 {
		t.Errorf("segment 0 = %+v", segs[0])
	}
	if segs[1].embed == nil || segs[1].start != 5 || segs[1].length != 1 {
		t.Errorf("segment 1 = %+v", segs[1])
	}
	if string(segs[2].text) != " W" || len(segs[2].styles) != 0 {
		t.Errorf("segment 2 = %+v", segs[2])
	}
	if string(segs[3].text) != "orld" {
		t.Errorf("segment 3 = %+v", segs[3])
	}
	if _, ok := segs[3].style(content.StyleBold); !ok {
		t.Error("expected bold on segment 3")
	}

	all := segments(run, func(content.StyleKind) bool { return true })
	if len(all) != 4 {
		t.Fatalf("expected 4 segments with every style, got %d", len(all))
	}
	if len(all[2].styles) != 1 || all[2].styles[0].Kind != content.StyleForeground {
		t.Errorf("segment 2 = %+v", all[2])
	}
	if len(all[3].styles) != 2 {
		t.Errorf("segment 3 = %+v", all[3])
	}
}

func TestSegments_EmbedAtEnd(t *testing.T) {
	run := &content.TextRun{
		Text:   "ab",
		Embeds: []content.Embed{{Offset: 5, Length: 1, Block: &content.Anchor{Name: "x"}}},
	}
	segs := segments(run, func(content.StyleKind) bool { return true })
	if len(segs) != 2 || string(segs[0].text) != "ab" || segs[1].embed == nil {
		t.Errorf("segments = %+v", segs)
	}
}

func TestMarkdown_Fixture(t *testing.T) {
	var buf bytes.Buffer
	if err := Markdown(&buf, fixtureSections(t, 1), Options{}); err != nil {
		t.Fatal(err)
	}
	want := "<a id=\"node-1\"></a>\n\n# Welcome\n\n" +
		"Hello![image](payload/1/5) **World**\n\n" +
		"```go\nfmt.Println()\n```\n\n" +
		"| Name | Qty |\n| --- | --- |\n| apples | 3 |\n\n" +
		"end\n\n"
	if got := buf.String(); got != want {
		t.Errorf("markdown mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestMarkdown_LinksAnchorsAttachments(t *testing.T) {
	var buf bytes.Buffer
	if err := Markdown(&buf, fixtureSections(t, 5), Options{}); err != nil {
		t.Fatal(err)
	}
	want := `<a id="top"></a>[Attached:](https://example.com) [notes.txt](payload/5/11)`
	if !strings.Contains(buf.String(), want) {
		t.Errorf("expected %q in:\n%s", want, buf.String())
	}
}

func TestMarkdown_Subtree(t *testing.T) {
	var buf bytes.Buffer
	if err := Markdown(&buf, fixtureSections(t, 3, 6), Options{}); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	for _, want := range []string{"# Plain\n", "## Kitten\n", "A cat sat on the mat\n", `<a id="node-6"></a>`} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in:\n%s", want, got)
		}
	}
}

func TestMarkdown_InlineStyles(t *testing.T) {
	run := &content.TextRun{
		Text: "see node and a_b and `x` and file\nnext",
		Spans: []content.Span{
			{Start: 4, End: 8, Style: content.Style{Kind: content.StyleLink, Link: &content.Link{Kind: content.LinkNode, NodeID: 7}}},
			{Start: 13, End: 16, Style: content.Style{Kind: content.StyleItalic}},
			{Start: 21, End: 24, Style: content.Style{Kind: content.StyleMonospace}},
			{Start: 29, End: 33, Style: content.Style{Kind: content.StyleLink, Link: &content.Link{Kind: content.LinkFile, Path: "L2V0Yw=="}}},
			{Start: 34, End: 38, Style: content.Style{Kind: content.StyleStrikethrough}},
		},
	}
	var buf bytes.Buffer
	err := Markdown(&buf, []Section{{ID: 1, Title: "a*b", Blocks: []content.Block{run}}}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	for _, want := range []string{
		`# a\*b`,
		"see [node](#node-7) and *a\\_b* and `` `x` `` and file  \n~~next~~",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in:\n%s", want, got)
		}
	}
}

func TestMarkdown_CustomURLs(t *testing.T) {
	opts := Options{
		PayloadURL: func(l content.Locator) string { return "/p?offset=" + string(rune('0'+l.Offset)) },
	}
	run := &content.TextRun{
		Text:   "\uFFFC",
		Embeds: []content.Embed{{Offset: 0, Length: 1, Block: &content.Image{Locator: content.Locator{NodeID: 1, Offset: 3}}}},
	}
	var buf bytes.Buffer
	if err := Markdown(&buf, []Section{{ID: 1, Title: "x", Blocks: []content.Block{run}}}, opts); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "![image](/p?offset=3)") {
		t.Errorf("got:\n%s", buf.String())
	}
}

func TestFence(t *testing.T) {
	if got := fence("a\n", "plain-text"); got != "```\na\n```" {
		t.Errorf("fence = %q", got)
	}
	if got := fence("x ``` y", "sh"); got != "````sh\nx ``` y\n````" {
		t.Errorf("fence = %q", got)
	}
}

func TestHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := HTML(&buf, "Notes <1>", fixtureSections(t, 1, 5), Options{}); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	for _, want := range []string{
		"<title>Notes &lt;1&gt;</title>",
		"<h1>Welcome</h1>",
		"<h2>Files</h2>",
		"<strong>World</strong>",
		`src="payload/1/5"`,
		`loading="lazy"`,
		`class="language-go"`,
		`<table class="grid">`,
		"<th>Name</th>",
		"<td>apples</td>",
		`<a href="https://example.com" target="_blank" rel="noopener noreferrer">Attached:</a>`,
		`<a id="top"></a>`,
		`<a href="payload/5/11">notes.txt</a>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in:\n%s", want, got)
		}
	}
}

func TestHTML_NodeLinks(t *testing.T) {
	run := &content.TextRun{
		Text:  "jump",
		Spans: []content.Span{{Start: 0, End: 4, Style: content.Style{Kind: content.StyleLink, Link: &content.Link{Kind: content.LinkNode, NodeID: 9}}}},
	}
	var buf bytes.Buffer
	if err := HTML(&buf, "t", []Section{{ID: 1, Title: "x", Blocks: []content.Block{run}}}, Options{}); err != nil {
		t.Fatal(err)
	}
	if want := `<a href="#node-9" class="node-link">jump</a>`; !strings.Contains(buf.String(), want) {
		t.Errorf("expected %q in:\n%s", want, buf.String())
	}
}

func readZipFile(t *testing.T, data []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			t.Fatal(err)
		}
		return string(b)
	}
	t.Fatalf("%s not in archive", name)
	return ""
}

func TestDOCX(t *testing.T) {
	var buf bytes.Buffer
	if err := DOCX(&buf, fixtureSections(t, 1, 5), Options{}); err != nil {
		t.Fatal(err)
	}

	body := readZipFile(t, buf.Bytes(), "word/document.xml")
	for _, want := range []string{"Welcome", "Hello", "World", "fmt.Println()", "apples", "Qty", "end", "Files", "w:tbl"} {
		if !strings.Contains(body, want) {
			t.Errorf("document.xml missing %q", want)
		}
	}

	rels := readZipFile(t, buf.Bytes(), "word/_rels/document.xml.rels")
	for _, want := range []string{"https://example.com", "payload/1/5", "payload/5/11"} {
		if !strings.Contains(rels, want) {
			t.Errorf("relationships missing %q", want)
		}
	}
}

func TestBuild(t *testing.T) {
	ctx := context.Background()
	doc, err := document.Open(ctx, testdoc.SQLiteFile(t), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer doc.Close()

	root, _, err := doc.Index.Lookup(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	sections, failed, err := Build(ctx, doc.Index, doc.Decoder, root, true, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 0 {
		t.Errorf("unexpected failures: %+v", failed)
	}
	wantIDs := []int64{1, 2, 3, 6}
	wantLevels := []int{0, 1, 1, 2}
	if len(sections) != len(wantIDs) {
		t.Fatalf("expected %d sections, got %+v", len(wantIDs), sections)
	}
	for i, s := range sections {
		if s.ID != wantIDs[i] || s.Level != wantLevels[i] {
			t.Errorf("section %d = id %d level %d, want id %d level %d", i, s.ID, s.Level, wantIDs[i], wantLevels[i])
		}
		if len(s.Blocks) == 0 {
			t.Errorf("section %d has no blocks", s.ID)
		}
	}

	single, _, err := Build(ctx, doc.Index, doc.Decoder, root, false, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(single) != 1 || single[0].Title != "Welcome" {
		t.Errorf("single = %+v", single)
	}
}
