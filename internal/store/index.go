package store

import (
	"context"
	"errors"
)

// Entry is a node as listed for navigation.
type Entry struct {
	Node
	HasSubnodes bool `json:"has_subnodes"`
	IsParent    bool `json:"is_parent"`  // the synthetic "self" entry heading a subnode list
	IsSubnode   bool `json:"is_subnode"` // listed under its parent
}

// Index provides tree navigation over a NodeSource. Unknown ids produce
// empty results; only store failures are returned as errors.
type Index struct {
	src NodeSource
}

func NewIndex(src NodeSource) *Index {
	return &Index{src: src}
}

// Source returns the underlying node source.
func (x *Index) Source() NodeSource {
	return x.src
}

// MainNodes lists the root set.
func (x *Index) MainNodes(ctx context.Context) ([]Entry, error) {
	roots, err := x.src.Roots(ctx)
	if err != nil {
		return nil, err
	}
	return x.entries(ctx, roots, false)
}

// Subnodes lists the children of id, preceded by id itself marked IsParent.
func (x *Index) Subnodes(ctx context.Context, id int64) ([]Entry, error) {
	node, err := x.src.Node(ctx, id)
	if errors.Is(err, ErrNodeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	children, err := x.src.Children(ctx, id)
	if err != nil && !errors.Is(err, ErrNodeNotFound) {
		return nil, err
	}
	rest, err := x.entries(ctx, children, true)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rest)+1)
	out = append(out, Entry{Node: node, HasSubnodes: len(children) > 0, IsParent: true})
	return append(out, rest...), nil
}

// ParentWithSiblings lists the level above id: the root set when id is a
// root node, the parent's subnode list otherwise.
func (x *Index) ParentWithSiblings(ctx context.Context, id int64) ([]Entry, error) {
	node, err := x.src.Node(ctx, id)
	if errors.Is(err, ErrNodeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if node.ParentID == 0 {
		return x.MainNodes(ctx)
	}
	return x.Subnodes(ctx, node.ParentID)
}

// HasSubnodes reports whether id has children.
func (x *Index) HasSubnodes(ctx context.Context, id int64) (bool, error) {
	children, err := x.src.Children(ctx, id)
	if errors.Is(err, ErrNodeNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return len(children) > 0, nil
}

// Lookup returns a node, or ok=false when it does not exist.
func (x *Index) Lookup(ctx context.Context, id int64) (Node, bool, error) {
	node, err := x.src.Node(ctx, id)
	if errors.Is(err, ErrNodeNotFound) {
		return Node{}, false, nil
	}
	if err != nil {
		return Node{}, false, err
	}
	return node, true, nil
}

// Classify returns the entry a search result for node opens: nodes with
// children open as a parent, leaves open as a subnode of their parent.
func (x *Index) Classify(ctx context.Context, node Node) (Entry, error) {
	has, err := x.HasSubnodes(ctx, node.ID)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Node: node, HasSubnodes: has, IsParent: has, IsSubnode: !has}, nil
}

// Path returns the ancestors of id from the root down to id itself.
func (x *Index) Path(ctx context.Context, id int64) ([]Node, error) {
	var path []Node
	seen := make(map[int64]bool)
	for id != 0 && !seen[id] {
		seen[id] = true
		node, err := x.src.Node(ctx, id)
		if errors.Is(err, ErrNodeNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		path = append(path, node)
		id = node.ParentID
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// Bookmarks lists bookmarked nodes that still exist.
func (x *Index) Bookmarks(ctx context.Context) ([]Entry, error) {
	ids, err := x.src.Bookmarks(ctx)
	if err != nil {
		return nil, err
	}
	var nodes []Node
	for _, id := range ids {
		node, ok, err := x.Lookup(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			nodes = append(nodes, node)
		}
	}
	return x.entries(ctx, nodes, false)
}

func (x *Index) entries(ctx context.Context, nodes []Node, subnode bool) ([]Entry, error) {
	out := make([]Entry, 0, len(nodes))
	for _, n := range nodes {
		has, err := x.HasSubnodes(ctx, n.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{Node: n, HasSubnodes: has, IsSubnode: subnode})
	}
	return out, nil
}

// Visit decides how a Walk proceeds past a node.
type Visit func(ctx context.Context, n Node) (descend bool, err error)

// Walk visits every node pre-order starting at the root set. The context is
// checked before each visit and its error returned when done.
func (x *Index) Walk(ctx context.Context, visit Visit) error {
	roots, err := x.src.Roots(ctx)
	if err != nil {
		return err
	}
	return x.walk(ctx, roots, visit)
}

func (x *Index) walk(ctx context.Context, nodes []Node, visit Visit) error {
	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		descend, err := visit(ctx, n)
		if err != nil {
			return err
		}
		if !descend {
			continue
		}
		children, err := x.src.Children(ctx, n.ID)
		if err != nil && !errors.Is(err, ErrNodeNotFound) {
			return err
		}
		if err := x.walk(ctx, children, visit); err != nil {
			return err
		}
	}
	return nil
}
