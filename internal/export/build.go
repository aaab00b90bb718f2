package export

import (
	"context"

	"github.com/dgallion1/notetree/internal/decode"
	"github.com/dgallion1/notetree/internal/store"
)

// Build decodes root into a section, followed with subtree by its
// descendants depth-first, at most limit decodes at a time. A descendant
// that fails to decode keeps its heading and is reported in failed; a
// failure on root is returned as err.
func Build(ctx context.Context, idx *store.Index, dec *decode.Decoder, root store.Node, subtree bool, limit int) (sections []Section, failed []decode.Result, err error) {
	sections = []Section{{ID: root.ID, Title: root.Name}}
	if subtree {
		seen := map[int64]bool{root.ID: true}
		if sections, err = collect(ctx, idx, root.ID, 1, seen, sections); err != nil {
			return nil, nil, err
		}
	}

	ids := make([]int64, len(sections))
	for i, s := range sections {
		ids[i] = s.ID
	}
	results, err := dec.DecodeMany(ctx, ids, limit)
	if err != nil {
		return nil, nil, err
	}
	for i, res := range results {
		switch {
		case res.Err == nil:
			sections[i].Blocks = res.Blocks
		case i == 0:
			return nil, nil, res.Err
		default:
			failed = append(failed, res)
		}
	}
	return sections, failed, nil
}

func collect(ctx context.Context, idx *store.Index, id int64, level int, seen map[int64]bool, out []Section) ([]Section, error) {
	entries, err := idx.Subnodes(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsParent || seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		out = append(out, Section{ID: e.ID, Title: e.Name, Level: level})
		if e.HasSubnodes {
			if out, err = collect(ctx, idx, e.ID, level+1, seen, out); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
