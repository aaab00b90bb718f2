package store

import (
	"context"

	"github.com/dgallion1/notetree/internal/content"
)

// NodeSource is the contract both format adapters implement. Nodes are
// returned ordered by sequence. Methods taking an id return ErrNodeNotFound
// when the id is unknown.
type NodeSource interface {
	// Roots lists the top-level nodes.
	Roots(ctx context.Context) ([]Node, error)
	// Children lists the direct children of id.
	Children(ctx context.Context, id int64) ([]Node, error)
	// Node returns a single node.
	Node(ctx context.Context, id int64) (Node, error)
	// Content returns the inline runs stored for id, without resolving aliases.
	Content(ctx context.Context, id int64) ([]Run, error)
	// Auxiliaries returns the offset-tagged elements stored for id.
	Auxiliaries(ctx context.Context, id int64) ([]Aux, error)
	// Payload returns the raw encoded bytes of an image or attachment.
	Payload(ctx context.Context, loc content.Locator) ([]byte, error)
	// Bookmarks lists bookmarked node ids in bookmark order.
	Bookmarks(ctx context.Context) ([]int64, error)
	Close() error
}
