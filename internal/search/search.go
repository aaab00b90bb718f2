// Package search implements whole-document search over the node tree and
// in-place find over decoded blocks.
package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/dgallion1/notetree/internal/decode"
	"github.com/dgallion1/notetree/internal/metrics"
	"github.com/dgallion1/notetree/internal/store"
)

// ErrCancelled is returned with the matches found so far when the context
// ends before the walk completes. It is a normal early exit.
var ErrCancelled = errors.New("search cancelled")

// MaxSnippets is the number of occurrences per node that get a snippet.
const MaxSnippets = 3

// SnippetSeparator joins the snippets of one match for display.
const SnippetSeparator = "\n"

// Match is a node containing the query.
type Match struct {
	NodeID      int64    `json:"node_id"`
	NodeName    string   `json:"node_name"`
	Count       int      `json:"count"`
	Snippets    []string `json:"snippets"`
	HasSubnodes bool     `json:"has_subnodes"`
	IsParent    bool     `json:"is_parent"`
	IsSubnode   bool     `json:"is_subnode"`
}

// Snippet joins the snippets with SnippetSeparator.
func (m Match) Snippet() string {
	return strings.Join(m.Snippets, SnippetSeparator)
}

// Engine searches one open document.
type Engine struct {
	idx *store.Index
	dec *decode.Decoder
	log *slog.Logger
}

func NewEngine(idx *store.Index, dec *decode.Decoder, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{idx: idx, dec: dec, log: log}
}

// Search walks the tree pre-order from the root set and returns every node
// whose plain-text projection contains query, case-insensitively.
//
// With skipExcluded set, a node's excludeSelf flag skips its own content and
// excludeChildren skips its subtree. Alias nodes are matched on their
// master's content but excluded by their own flags. Nodes whose content
// cannot be decoded are skipped.
func (e *Engine) Search(ctx context.Context, query string, skipExcluded bool) ([]Match, error) {
	q := fold(Project(query))
	if len(q) == 0 {
		return nil, nil
	}

	var matches []Match
	err := e.idx.Walk(ctx, func(ctx context.Context, n store.Node) (bool, error) {
		descend := !skipExcluded || !n.ExcludeChildren
		if skipExcluded && n.ExcludeSelf {
			return descend, nil
		}

		text, err := e.dec.PlainText(ctx, n.ID)
		var derr *decode.Error
		switch {
		case errors.As(err, &derr), errors.Is(err, store.ErrNodeNotFound):
			e.log.Warn("search: skipping node", "node_id", n.ID, "error", err)
			metrics.DecodeErrors.WithLabelValues("search").Inc()
			return descend, nil
		case err != nil:
			return false, err
		}

		m, ok := scan(Project(text), q)
		if !ok {
			return descend, nil
		}
		entry, err := e.idx.Classify(ctx, n)
		if err != nil {
			return false, err
		}
		m.NodeID = n.ID
		m.NodeName = n.Name
		m.HasSubnodes = entry.HasSubnodes
		m.IsParent = entry.IsParent
		m.IsSubnode = entry.IsSubnode
		matches = append(matches, m)
		return descend, nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return matches, ErrCancelled
		}
		return matches, err
	}
	return matches, nil
}

// scan counts the non-overlapping occurrences of q in text and builds
// snippets for the first MaxSnippets. Matching runs on the lowercased
// projection; snippets are cut from text at the same rune positions.
func scan(text []rune, q []rune) (Match, bool) {
	folded := fold(text)
	var m Match
	for i := 0; i+len(q) <= len(folded); {
		if !hasPrefix(folded[i:], q) {
			i++
			continue
		}
		m.Count++
		if len(m.Snippets) < MaxSnippets {
			m.Snippets = append(m.Snippets, Snippet(text, i, len(q)))
		}
		i += len(q)
	}
	return m, m.Count > 0
}

func hasPrefix(s, prefix []rune) bool {
	if len(prefix) > len(s) {
		return false
	}
	for i, r := range prefix {
		if s[i] != r {
			return false
		}
	}
	return true
}
