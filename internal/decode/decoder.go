package decode

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/notetree/internal/content"
	"github.com/dgallion1/notetree/internal/ctxml"
	"github.com/dgallion1/notetree/internal/store"
	"golang.org/x/sync/errgroup"
)

// ObjectReplacement stands in for an inline element in decoded text.
const ObjectReplacement = '\uFFFC'

// Error is a content decode failure scoped to a single node.
type Error struct {
	NodeID int64
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("decode node %d: %v", e.NodeID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Decoder turns stored node content into blocks. Results are recomputed on
// every call.
type Decoder struct {
	src store.NodeSource
}

func New(src store.NodeSource) *Decoder {
	return &Decoder{src: src}
}

// Decode returns the block sequence of a node. Alias nodes decode the
// content of their master. Unknown ids return store.ErrNodeNotFound;
// malformed stored content returns *Error.
func (d *Decoder) Decode(ctx context.Context, id int64) ([]content.Block, error) {
	node, runs, aux, err := d.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if node.Syntax == store.SyntaxCode {
		return []content.Block{&content.CodeBox{Text: joinRuns(runs), Syntax: node.Language}}, nil
	}

	text, spans := backbone(runs)
	elems := make([]element, 0, len(aux))
	for _, a := range aux {
		if e, ok := render(node.ID, a); ok {
			elems = append(elems, e)
		}
	}
	return merge(text, spans, elems).blocks(), nil
}

// PlainText returns the formatting-free projection of a node used for
// searching: the same merge as Decode with code boxes as their text, tables
// flattened header first, attachments as their filename and pictures and
// anchors as a space.
func (d *Decoder) PlainText(ctx context.Context, id int64) (string, error) {
	node, runs, aux, err := d.load(ctx, id)
	if err != nil {
		return "", err
	}
	if node.Syntax == store.SyntaxCode {
		return joinRuns(runs), nil
	}

	elems := make([]element, 0, len(aux))
	for _, a := range aux {
		if e, ok := renderPlain(a); ok {
			elems = append(elems, e)
		}
	}
	return string(merge([]rune(joinRuns(runs)), nil, elems).text), nil
}

// Result is the outcome of decoding one node in DecodeMany.
type Result struct {
	ID     int64
	Blocks []content.Block
	Err    error
}

// DecodeMany decodes several nodes with at most limit decodes in flight.
// Per-node failures (unknown ids, malformed content) are reported in the
// node's Result; any other error stops the batch.
func (d *Decoder) DecodeMany(ctx context.Context, ids []int64, limit int) ([]Result, error) {
	results := make([]Result, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, id := range ids {
		g.Go(func() error {
			blocks, err := d.Decode(gctx, id)
			var derr *Error
			if err != nil && !errors.Is(err, store.ErrNodeNotFound) && !errors.As(err, &derr) {
				return err
			}
			results[i] = Result{ID: id, Blocks: blocks, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// load resolves the alias and fetches raw content sorted for merging. The
// returned node carries the syntax of the node that owns the content.
func (d *Decoder) load(ctx context.Context, id int64) (store.Node, []store.Run, []store.Aux, error) {
	node, err := d.src.Node(ctx, id)
	if err != nil {
		return store.Node{}, nil, nil, err
	}
	if cid := node.ContentID(); cid != node.ID {
		master, err := d.src.Node(ctx, cid)
		if err != nil {
			return store.Node{}, nil, nil, fmt.Errorf("master of node %d: %w", id, err)
		}
		node = master
	}

	runs, err := d.src.Content(ctx, node.ID)
	if err != nil {
		return store.Node{}, nil, nil, wrap(id, err)
	}
	if node.Syntax == store.SyntaxCode {
		return node, runs, nil, nil
	}
	aux, err := d.src.Auxiliaries(ctx, node.ID)
	if err != nil {
		return store.Node{}, nil, nil, wrap(id, err)
	}
	sort.SliceStable(aux, func(i, j int) bool {
		if aux[i].Offset != aux[j].Offset {
			return aux[i].Offset < aux[j].Offset
		}
		return aux[i].Kind < aux[j].Kind
	})
	return node, runs, aux, nil
}

func wrap(id int64, err error) error {
	if errors.Is(err, store.ErrMalformedContent) {
		return &Error{NodeID: id, Err: err}
	}
	return err
}

func backbone(runs []store.Run) ([]rune, []content.Span) {
	var text []rune
	var spans []content.Span
	for _, r := range runs {
		start := len(text)
		text = append(text, []rune(r.Text)...)
		for _, s := range ResolveSpans(r.Attrs, utf8.RuneCountInString(r.Text)) {
			s.Start += start
			s.End += start
			spans = append(spans, s)
		}
	}
	return text, spans
}

func joinRuns(runs []store.Run) string {
	var sb strings.Builder
	for _, r := range runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// imageKind classifies an image-table element: an explicit anchor wins over
// a named attachment, which wins over picture bytes. Formulas are
// recognized but render as nothing.
type imageKind int

const (
	imagePicture imageKind = iota
	imageAnchor
	imageAttachment
	imageFormula
)

func classifyImage(a store.Aux) imageKind {
	switch {
	case a.Anchor != "":
		return imageAnchor
	case a.Filename == ctxml.FormulaFilename:
		return imageFormula
	case a.Filename != "":
		return imageAttachment
	default:
		return imagePicture
	}
}

func locator(nodeID int64, a store.Aux) content.Locator {
	return content.Locator{NodeID: nodeID, Offset: a.Offset, Filename: a.Filename, Time: a.Time}
}

func render(nodeID int64, a store.Aux) (element, bool) {
	placeholder := []rune{ObjectReplacement}
	switch a.Kind {
	case store.AuxCodeBox:
		return element{
			offset: a.Offset,
			text:   []rune(a.Text),
			block: &content.CodeBox{
				Text:              a.Text,
				Syntax:            a.Syntax,
				Width:             a.Width,
				Height:            a.Height,
				WidthInPixels:     a.WidthInPixels,
				HighlightBrackets: a.HighlightBrackets,
				ShowLineNumbers:   a.ShowLineNumbers,
				Justification:     a.Justification,
			},
		}, true
	case store.AuxTable:
		return element{offset: a.Offset, text: placeholder, block: tableBlock(a), split: true}, true
	case store.AuxImage:
		switch classifyImage(a) {
		case imageAnchor:
			return element{offset: a.Offset, text: placeholder, block: &content.Anchor{Name: a.Anchor}}, true
		case imageAttachment:
			return element{
				offset: a.Offset,
				text:   append(placeholder, []rune(a.Filename)...),
				block: &content.Attachment{
					Filename:      a.Filename,
					Locator:       locator(nodeID, a),
					Justification: a.Justification,
				},
			}, true
		case imagePicture:
			return element{
				offset: a.Offset,
				text:   placeholder,
				block: &content.Image{
					Locator:       locator(nodeID, a),
					Link:          a.Link,
					Justification: a.Justification,
				},
			}, true
		case imageFormula:
			return element{offset: a.Offset}, true
		}
	}
	return element{}, false
}

func renderPlain(a store.Aux) (element, bool) {
	switch a.Kind {
	case store.AuxCodeBox:
		return element{offset: a.Offset, text: []rune(a.Text)}, true
	case store.AuxTable:
		return element{offset: a.Offset, text: []rune(tableText(a.Rows))}, true
	case store.AuxImage:
		switch classifyImage(a) {
		case imageAttachment:
			return element{offset: a.Offset, text: []rune(a.Filename)}, true
		case imageAnchor, imagePicture:
			return element{offset: a.Offset, text: []rune{' '}}, true
		case imageFormula:
			return element{offset: a.Offset}, true
		}
	}
	return element{}, false
}
