// Package ctd reads the hierarchical XML encoding: one XML document whose
// nested <node> elements form the tree. Directory-scan caches use the same
// vocabulary and are read the same way.
package ctd

import (
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/dgallion1/notetree/internal/content"
	"github.com/dgallion1/notetree/internal/ctxml"
	"github.com/dgallion1/notetree/internal/store"
)

type xmlDocument struct {
	XMLName   xml.Name
	Bookmarks struct {
		List string `xml:"list,attr"`
	} `xml:"bookmarks"`
	Nodes []xmlNode `xml:"node"`
}

type xmlNode struct {
	Name         string `xml:"name,attr"`
	UniqueID     string `xml:"unique_id,attr"`
	MasterID     string `xml:"master_id,attr"`
	ProgLang     string `xml:"prog_lang,attr"`
	Tags         string `xml:"tags,attr"`
	ReadOnly     string `xml:"readonly,attr"`
	NoSearchMe   string `xml:"nosearch_me,attr"`
	NoSearchCh   string `xml:"nosearch_ch,attr"`
	CustomIconID string `xml:"custom_icon_id,attr"`
	IsBold       string `xml:"is_bold,attr"`
	Foreground   string `xml:"foreground,attr"`
	TsCreation   string `xml:"ts_creation,attr"`
	TsLastSave   string `xml:"ts_lastsave,attr"`

	RichText  []ctxml.RichText   `xml:"rich_text"`
	CodeBoxes []ctxml.CodeBox    `xml:"codebox"`
	Tables    []ctxml.Table      `xml:"table"`
	Images    []ctxml.EncodedPNG `xml:"encoded_png"`
	Children  []xmlNode          `xml:"node"`
}

type entry struct {
	node     store.Node
	elem     *xmlNode
	children []int64
}

// Document is an opened XML document. The parsed tree is shared by all
// callers and read under a read lock.
type Document struct {
	mu        sync.RWMutex
	nodes     map[int64]*entry
	roots     []int64
	bookmarks []int64
}

var _ store.NodeSource = (*Document)(nil)

// Open reads and indexes the document at path.
func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &store.OpenError{Path: path, Err: err}
	}
	defer f.Close()
	doc, err := Parse(f)
	if err != nil {
		return nil, &store.OpenError{Path: path, Err: err}
	}
	return doc, nil
}

// Parse reads a document from r.
func Parse(r io.Reader) (*Document, error) {
	var raw xmlDocument
	if err := xml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}

	d := &Document{nodes: make(map[int64]*entry)}
	ids, err := d.index(raw.Nodes, 0)
	if err != nil {
		return nil, err
	}
	d.roots = ids

	if list := strings.TrimSpace(raw.Bookmarks.List); list != "" {
		for _, s := range strings.Split(list, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bookmark list: %w", err)
			}
			d.bookmarks = append(d.bookmarks, id)
			if e, ok := d.nodes[id]; ok {
				e.node.Bookmarked = true
			}
		}
	}
	return d, nil
}

func (d *Document) index(elems []xmlNode, parent int64) ([]int64, error) {
	ids := make([]int64, 0, len(elems))
	for i := range elems {
		el := &elems[i]
		node, err := nodeFromXML(el, parent, i+1)
		if err != nil {
			return nil, err
		}
		if _, dup := d.nodes[node.ID]; dup {
			return nil, fmt.Errorf("duplicate unique_id %d", node.ID)
		}
		e := &entry{node: node, elem: el}
		d.nodes[node.ID] = e
		if e.children, err = d.index(el.Children, node.ID); err != nil {
			return nil, err
		}
		ids = append(ids, node.ID)
	}
	return ids, nil
}

func nodeFromXML(el *xmlNode, parent int64, seq int) (store.Node, error) {
	id, err := strconv.ParseInt(el.UniqueID, 10, 64)
	if err != nil {
		return store.Node{}, fmt.Errorf("node %q unique_id: %w", el.Name, err)
	}
	var master int64
	if el.MasterID != "" {
		if master, err = strconv.ParseInt(el.MasterID, 10, 64); err != nil {
			return store.Node{}, fmt.Errorf("node %d master_id: %w", id, err)
		}
	}
	icon, err := ctxml.Int(el.CustomIconID)
	if err != nil {
		return store.Node{}, fmt.Errorf("node %d custom_icon_id: %w", id, err)
	}
	lang := el.ProgLang
	if lang == "" {
		lang = store.RichTextName
	}
	return store.Node{
		ID:              id,
		Name:            el.Name,
		ParentID:        parent,
		MasterID:        master,
		Sequence:        seq,
		Syntax:          store.ParseSyntax(lang),
		Language:        lang,
		ExcludeSelf:     ctxml.Bool(el.NoSearchMe),
		ExcludeChildren: ctxml.Bool(el.NoSearchCh),
		ReadOnly:        ctxml.Bool(el.ReadOnly),
		Tags:            el.Tags,
		IsBold:          ctxml.Bool(el.IsBold),
		Foreground:      el.Foreground,
		CustomIconID:    icon,
		Created:         parseFloat(el.TsCreation),
		LastSaved:       parseFloat(el.TsLastSave),
	}, nil
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func (d *Document) lookup(id int64) (*entry, error) {
	if d.nodes == nil {
		return nil, store.ErrClosed
	}
	e, ok := d.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %d: %w", id, store.ErrNodeNotFound)
	}
	return e, nil
}

func (d *Document) list(ids []int64) []store.Node {
	out := make([]store.Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, d.nodes[id].node)
	}
	return out
}

func (d *Document) Roots(ctx context.Context) ([]store.Node, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.nodes == nil {
		return nil, store.ErrClosed
	}
	return d.list(d.roots), nil
}

func (d *Document) Children(ctx context.Context, id int64) ([]store.Node, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, err := d.lookup(id)
	if err != nil {
		return nil, err
	}
	return d.list(e.children), nil
}

func (d *Document) Node(ctx context.Context, id int64) (store.Node, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, err := d.lookup(id)
	if err != nil {
		return store.Node{}, err
	}
	return e.node, nil
}

func (d *Document) Content(ctx context.Context, id int64) ([]store.Run, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, err := d.lookup(id)
	if err != nil {
		return nil, err
	}
	return ctxml.Runs(e.elem.RichText), nil
}

func (d *Document) Auxiliaries(ctx context.Context, id int64) ([]store.Aux, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, err := d.lookup(id)
	if err != nil {
		return nil, err
	}
	el := e.elem
	aux := make([]store.Aux, 0, len(el.CodeBoxes)+len(el.Tables)+len(el.Images))
	for _, c := range el.CodeBoxes {
		a, err := c.Aux()
		if err != nil {
			return nil, fmt.Errorf("%w: node %d: %v", store.ErrMalformedContent, id, err)
		}
		aux = append(aux, a)
	}
	for _, t := range el.Tables {
		a, err := t.Aux()
		if err != nil {
			return nil, fmt.Errorf("%w: node %d: %v", store.ErrMalformedContent, id, err)
		}
		aux = append(aux, a)
	}
	for _, p := range el.Images {
		a, err := p.Aux()
		if err != nil {
			return nil, fmt.Errorf("%w: node %d: %v", store.ErrMalformedContent, id, err)
		}
		aux = append(aux, a)
	}
	return aux, nil
}

func (d *Document) Payload(ctx context.Context, loc content.Locator) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, err := d.lookup(loc.NodeID)
	if err != nil {
		return nil, err
	}
	for _, p := range e.elem.Images {
		offset, err := ctxml.Int(p.CharOffset)
		if err != nil || offset != loc.Offset {
			continue
		}
		if loc.Filename != "" && p.Filename != loc.Filename {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(p.Data), ""))
		if err != nil {
			return nil, fmt.Errorf("%w: node %d payload at %d: %v", store.ErrMalformedContent, loc.NodeID, loc.Offset, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("node %d offset %d: %w", loc.NodeID, loc.Offset, store.ErrPayloadNotFound)
}

func (d *Document) Bookmarks(ctx context.Context) ([]int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.nodes == nil {
		return nil, store.ErrClosed
	}
	return append([]int64(nil), d.bookmarks...), nil
}

// Close releases the parsed tree.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nodes = nil
	d.roots = nil
	d.bookmarks = nil
	return nil
}
