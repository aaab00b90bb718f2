// Package session holds the navigation state of one reader of an open
// document: the current node, the history of visited nodes and a temporary
// result list. A Session is owned by its caller and is not safe for
// concurrent use.
package session

import (
	"context"
	"fmt"

	"github.com/dgallion1/notetree/internal/search"
	"github.com/dgallion1/notetree/internal/store"
)

// Root is the Current value before any node is opened.
const Root int64 = 0

// ResultKind names what the temporary result list holds.
type ResultKind string

const (
	ResultsNone      ResultKind = ""
	ResultsBookmarks ResultKind = "bookmarks"
	ResultsSearch    ResultKind = "search"
)

type Session struct {
	idx     *store.Index
	current int64
	history []int64

	resultKind ResultKind
	query      string
	results    []store.Entry
	matches    map[int64]search.Match
}

func New(idx *store.Index) *Session {
	return &Session{idx: idx}
}

// Current returns the open node id, or Root.
func (s *Session) Current() int64 {
	return s.current
}

// Depth is the number of Back steps available.
func (s *Session) Depth() int {
	return len(s.history)
}

// Open makes id the current node. An unknown id leaves the session
// unchanged and returns an error wrapping store.ErrNodeNotFound.
func (s *Session) Open(ctx context.Context, id int64) (store.Node, error) {
	if id == Root {
		s.move(Root)
		return store.Node{}, nil
	}
	node, ok, err := s.idx.Lookup(ctx, id)
	if err != nil {
		return store.Node{}, err
	}
	if !ok {
		return store.Node{}, fmt.Errorf("open %d: %w", id, store.ErrNodeNotFound)
	}
	s.move(id)
	return node, nil
}

// Up moves to the parent of the current node. It reports false at the root.
func (s *Session) Up(ctx context.Context) (bool, error) {
	if s.current == Root {
		return false, nil
	}
	node, ok, err := s.idx.Lookup(ctx, s.current)
	if err != nil {
		return false, err
	}
	parent := Root
	if ok {
		parent = node.ParentID
	}
	s.move(parent)
	return true, nil
}

// Back returns to the previously opened node. It reports false when the
// history is empty.
func (s *Session) Back() bool {
	if len(s.history) == 0 {
		return false
	}
	s.current = s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	return true
}

func (s *Session) move(id int64) {
	if id == s.current {
		return
	}
	s.history = append(s.history, s.current)
	s.current = id
}

// Listing returns the entries shown for the current position: the main
// nodes at the root, otherwise the current node followed by its children.
// A current node that has vanished falls back to the main nodes.
func (s *Session) Listing(ctx context.Context) ([]store.Entry, error) {
	if s.current != Root {
		entries, err := s.idx.Subnodes(ctx, s.current)
		if err != nil || len(entries) > 0 {
			return entries, err
		}
	}
	return s.idx.MainNodes(ctx)
}

// Breadcrumb returns the path from the root to the current node.
func (s *Session) Breadcrumb(ctx context.Context) ([]store.Node, error) {
	if s.current == Root {
		return nil, nil
	}
	return s.idx.Path(ctx, s.current)
}

// ShowBookmarks replaces the result list with the bookmarked nodes.
func (s *Session) ShowBookmarks(ctx context.Context) ([]store.Entry, error) {
	entries, err := s.idx.Bookmarks(ctx)
	if err != nil {
		return nil, err
	}
	s.setResults(ResultsBookmarks, "", entries, nil)
	return entries, nil
}

// ShowMatches replaces the result list with search matches, in order.
func (s *Session) ShowMatches(ctx context.Context, query string, ms []search.Match) ([]store.Entry, error) {
	entries := make([]store.Entry, 0, len(ms))
	byID := make(map[int64]search.Match, len(ms))
	for _, m := range ms {
		node, ok, err := s.idx.Lookup(ctx, m.NodeID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		entries = append(entries, store.Entry{
			Node:        node,
			HasSubnodes: m.HasSubnodes,
			IsParent:    m.IsParent,
			IsSubnode:   m.IsSubnode,
		})
		byID[m.NodeID] = m
	}
	s.setResults(ResultsSearch, query, entries, byID)
	return entries, nil
}

// Results returns the current result list and what it holds.
func (s *Session) Results() (ResultKind, []store.Entry) {
	return s.resultKind, s.results
}

// Query is the search behind a ResultsSearch list.
func (s *Session) Query() string {
	return s.query
}

// Match returns the search match for a listed node.
func (s *Session) Match(id int64) (search.Match, bool) {
	m, ok := s.matches[id]
	return m, ok
}

// ClearResults drops the result list.
func (s *Session) ClearResults() {
	s.setResults(ResultsNone, "", nil, nil)
}

func (s *Session) setResults(kind ResultKind, query string, entries []store.Entry, matches map[int64]search.Match) {
	s.resultKind = kind
	s.query = query
	s.results = entries
	s.matches = matches
}

// OpenResult opens the i-th entry of the result list. A search result that
// is a leaf opens its parent so the match shows among its siblings, and
// the returned id is the matched node itself.
func (s *Session) OpenResult(ctx context.Context, i int) (int64, error) {
	if i < 0 || i >= len(s.results) {
		return 0, fmt.Errorf("result %d out of range (%d results)", i, len(s.results))
	}
	e := s.results[i]
	if e.IsSubnode && e.ParentID != Root {
		if _, err := s.Open(ctx, e.ParentID); err != nil {
			return 0, err
		}
		return e.ID, nil
	}
	if _, err := s.Open(ctx, e.ID); err != nil {
		return 0, err
	}
	return e.ID, nil
}
