package search

import (
	"context"

	"github.com/dgallion1/notetree/internal/content"
)

// Hit is one occurrence found by FindInNode. Start and End are rune offsets
// into the text of block Block, or of cell (Row, Col) when the block is a
// table. Row and Col are -1 outside tables.
type Hit struct {
	Block int `json:"block"`
	Row   int `json:"row"`
	Col   int `json:"col"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// FindInNode returns every non-overlapping, case-insensitive occurrence of
// query in decoded blocks: TextRun text (which includes inline code boxes),
// top-level CodeBox text and table cells in logical order.
func FindInNode(blocks []content.Block, query string) []Hit {
	q := fold([]rune(query))
	if len(q) == 0 {
		return nil
	}
	var hits []Hit
	for bi, b := range blocks {
		switch b := b.(type) {
		case *content.TextRun:
			hits = appendHits(hits, b.Text, q, bi, -1, -1)
		case *content.CodeBox:
			hits = appendHits(hits, b.Text, q, bi, -1, -1)
		case *content.Table:
			for ri, row := range b.Rows {
				for ci, cell := range row {
					hits = appendHits(hits, cell, q, bi, ri, ci)
				}
			}
		}
	}
	return hits
}

func appendHits(hits []Hit, text string, q []rune, block, row, col int) []Hit {
	folded := fold([]rune(text))
	for i := 0; i+len(q) <= len(folded); {
		if !hasPrefix(folded[i:], q) {
			i++
			continue
		}
		hits = append(hits, Hit{Block: block, Row: row, Col: col, Start: i, End: i + len(q)})
		i += len(q)
	}
	return hits
}

// Find decodes node id and runs FindInNode over its blocks.
func (e *Engine) Find(ctx context.Context, id int64, query string) ([]Hit, error) {
	blocks, err := e.dec.Decode(ctx, id)
	if err != nil {
		return nil, err
	}
	return FindInNode(blocks, query), nil
}
