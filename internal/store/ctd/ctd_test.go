package ctd

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dgallion1/notetree/internal/content"
	"github.com/dgallion1/notetree/internal/store"
	"github.com/dgallion1/notetree/internal/testdoc"
)

func openFixture(t *testing.T) *Document {
	t.Helper()
	doc, err := Open(testdoc.XMLFile(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { doc.Close() })
	return doc
}

func ids(nodes []store.Node) []int64 {
	out := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRootsAndChildren(t *testing.T) {
	ctx := context.Background()
	doc := openFixture(t)

	roots, err := doc.Roots(ctx)
	if err != nil {
		t.Fatalf("Roots: %v", err)
	}
	if got := ids(roots); !equalIDs(got, []int64{1, 4, 5}) {
		t.Errorf("roots = %v, want [1 4 5]", got)
	}
	for i, n := range roots {
		if n.Sequence != i+1 {
			t.Errorf("root %d sequence = %d, want %d", n.ID, n.Sequence, i+1)
		}
		if n.ParentID != 0 {
			t.Errorf("root %d parent = %d, want 0", n.ID, n.ParentID)
		}
	}

	children, err := doc.Children(ctx, 1)
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	if got := ids(children); !equalIDs(got, []int64{2, 3}) {
		t.Errorf("children of 1 = %v, want [2 3]", got)
	}

	leaf, err := doc.Children(ctx, 2)
	if err != nil {
		t.Fatalf("Children(2): %v", err)
	}
	if len(leaf) != 0 {
		t.Errorf("children of 2 = %v, want none", ids(leaf))
	}
}

func TestNodeAttributes(t *testing.T) {
	ctx := context.Background()
	doc := openFixture(t)

	n, err := doc.Node(ctx, 1)
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	if n.Name != "Welcome" || n.Syntax != store.SyntaxRichText || n.Tags != "intro" {
		t.Errorf("unexpected node 1: %+v", n)
	}
	if !n.IsBold || n.Foreground != "#112233" || !n.Bookmarked {
		t.Errorf("node 1 flags: bold=%v fg=%q bookmarked=%v", n.IsBold, n.Foreground, n.Bookmarked)
	}
	if n.Created != 1700000000.5 || n.LastSaved != 1700000100 {
		t.Errorf("node 1 timestamps: %v %v", n.Created, n.LastSaved)
	}

	code, _ := doc.Node(ctx, 2)
	if code.Syntax != store.SyntaxCode || code.Language != "python" {
		t.Errorf("node 2 syntax = %v %q", code.Syntax, code.Language)
	}
	if !code.ReadOnly || code.CustomIconID != 5 {
		t.Errorf("node 2 readonly=%v icon=%d", code.ReadOnly, code.CustomIconID)
	}

	plain, _ := doc.Node(ctx, 3)
	if !plain.ExcludeSelf || plain.ExcludeChildren {
		t.Errorf("node 3 exclusion = %v/%v, want true/false", plain.ExcludeSelf, plain.ExcludeChildren)
	}
	files, _ := doc.Node(ctx, 5)
	if files.ExcludeSelf || !files.ExcludeChildren {
		t.Errorf("node 5 exclusion = %v/%v, want false/true", files.ExcludeSelf, files.ExcludeChildren)
	}

	alias, _ := doc.Node(ctx, 4)
	if alias.MasterID != 1 || alias.ContentID() != 1 {
		t.Errorf("node 4 master = %d", alias.MasterID)
	}
}

func TestNodeNotFound(t *testing.T) {
	ctx := context.Background()
	doc := openFixture(t)

	if _, err := doc.Node(ctx, 99); !errors.Is(err, store.ErrNodeNotFound) {
		t.Errorf("Node(99) error = %v, want ErrNodeNotFound", err)
	}
	if _, err := doc.Children(ctx, 99); !errors.Is(err, store.ErrNodeNotFound) {
		t.Errorf("Children(99) error = %v, want ErrNodeNotFound", err)
	}
	if _, err := doc.Content(ctx, 99); !errors.Is(err, store.ErrNodeNotFound) {
		t.Errorf("Content(99) error = %v, want ErrNodeNotFound", err)
	}
}

func TestContentRuns(t *testing.T) {
	doc := openFixture(t)
	runs, err := doc.Content(context.Background(), 1)
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].Text != "Hello" || runs[0].Attrs != nil {
		t.Errorf("run 0 = %+v", runs[0])
	}
	if runs[1].Text != " World" || runs[1].Attrs["weight"] != "heavy" || runs[1].Attrs["foreground"] != "#ff0000" {
		t.Errorf("run 1 = %+v", runs[1])
	}
	if runs[2].Text != "\nend" {
		t.Errorf("run 2 text = %q", runs[2].Text)
	}
}

func TestAuxiliaries(t *testing.T) {
	doc := openFixture(t)
	aux, err := doc.Auxiliaries(context.Background(), 1)
	if err != nil {
		t.Fatalf("Auxiliaries: %v", err)
	}
	if len(aux) != 3 {
		t.Fatalf("expected 3 auxiliaries, got %d", len(aux))
	}

	kinds := map[store.AuxKind]store.Aux{}
	for _, a := range aux {
		kinds[a.Kind] = a
	}
	cb := kinds[store.AuxCodeBox]
	if cb.Offset != 12 || cb.Text != "fmt.Println()" || cb.Syntax != "go" || cb.Width != 300 || cb.Height != 100 {
		t.Errorf("codebox = %+v", cb)
	}
	if !cb.WidthInPixels || !cb.HighlightBrackets || cb.ShowLineNumbers {
		t.Errorf("codebox flags = %+v", cb)
	}
	tbl := kinds[store.AuxTable]
	if tbl.Offset != 14 || tbl.ColMin != 40 || tbl.ColMax != 400 || len(tbl.Rows) != 2 {
		t.Errorf("table = %+v", tbl)
	}
	if tbl.Rows[1][0] != "Name" {
		t.Errorf("stored header should be last, got rows %v", tbl.Rows)
	}
	img := kinds[store.AuxImage]
	if img.Offset != 5 || img.Justification != "left" {
		t.Errorf("image = %+v", img)
	}
}

func TestPayload(t *testing.T) {
	ctx := context.Background()
	doc := openFixture(t)

	data, err := doc.Payload(ctx, content.Locator{NodeID: 1, Offset: 5})
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	if string(data) != string(testdoc.PicturePNG) {
		t.Errorf("payload = %q", data)
	}

	data, err = doc.Payload(ctx, content.Locator{NodeID: 5, Offset: 11, Filename: "notes.txt"})
	if err != nil {
		t.Fatalf("Payload attachment: %v", err)
	}
	if string(data) != string(testdoc.AttachmentData) {
		t.Errorf("attachment payload = %q", data)
	}

	if _, err := doc.Payload(ctx, content.Locator{NodeID: 1, Offset: 6}); !errors.Is(err, store.ErrPayloadNotFound) {
		t.Errorf("expected ErrPayloadNotFound, got %v", err)
	}
}

func TestBookmarks(t *testing.T) {
	doc := openFixture(t)
	got, err := doc.Bookmarks(context.Background())
	if err != nil {
		t.Fatalf("Bookmarks: %v", err)
	}
	if !equalIDs(got, []int64{5, 1}) {
		t.Errorf("bookmarks = %v, want [5 1]", got)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"not xml", "this is not xml"},
		{"bad id", `<cherrytree><node name="a" unique_id="x"/></cherrytree>`},
		{"duplicate id", `<cherrytree><node name="a" unique_id="1"/><node name="b" unique_id="1"/></cherrytree>`},
		{"bad bookmark", `<cherrytree><bookmarks list="1,z"/><node name="a" unique_id="1"/></cherrytree>`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tc.doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestAuxiliaries_Malformed(t *testing.T) {
	doc, err := Parse(strings.NewReader(`<cherrytree>
		<node name="a" unique_id="1" prog_lang="custom-colors">
			<rich_text>x</rich_text>
			<codebox char_offset="abc">y</codebox>
		</node>
	</cherrytree>`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := doc.Auxiliaries(context.Background(), 1); !errors.Is(err, store.ErrMalformedContent) {
		t.Errorf("expected ErrMalformedContent, got %v", err)
	}
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open("/nonexistent/doc.ctd")
	var oerr *store.OpenError
	if !errors.As(err, &oerr) {
		t.Fatalf("expected *store.OpenError, got %v", err)
	}
}

func TestClose(t *testing.T) {
	doc := openFixture(t)
	doc.Close()
	if _, err := doc.Roots(context.Background()); !errors.Is(err, store.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
