// Package ctb reads the relational encoding: an SQLite database with one
// row per node and per-kind side tables for code boxes, tables and images.
package ctb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	"github.com/dgallion1/notetree/internal/content"
	"github.com/dgallion1/notetree/internal/ctxml"
	"github.com/dgallion1/notetree/internal/store"

	_ "modernc.org/sqlite"
)

// Bits of node.is_ro.
const (
	roReadOnly        = 1 << 0
	roExcludeSelf     = 1 << 1
	roExcludeChildren = 1 << 2
	roIconShift       = 3
)

// Bits of node.is_richtxt.
const (
	rtRichText        = 1 << 0
	rtBold            = 1 << 1
	rtForeground      = 1 << 2
	rtForegroundShift = 3
)

// Document is an opened relational document. *sql.DB is safe for concurrent
// use, so no extra locking is needed.
type Document struct {
	db        *sql.DB
	hasMaster bool
}

var _ store.NodeSource = (*Document)(nil)

// Open opens the database at path read-only.
func Open(ctx context.Context, path string) (*Document, error) {
	dsn := "file:" + (&url.URL{Path: path}).EscapedPath() + "?mode=ro"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &store.OpenError{Path: path, Err: err}
	}
	d, err := newDocument(ctx, db)
	if err != nil {
		db.Close()
		return nil, &store.OpenError{Path: path, Err: err}
	}
	return d, nil
}

// FromDB wraps an already open database.
func FromDB(ctx context.Context, db *sql.DB) (*Document, error) {
	return newDocument(ctx, db)
}

func newDocument(ctx context.Context, db *sql.DB) (*Document, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM node").Scan(&n); err != nil {
		return nil, fmt.Errorf("read node table: %w", err)
	}
	hasMaster, err := hasColumn(ctx, db, "children", "master_id")
	if err != nil {
		return nil, err
	}
	return &Document{db: db, hasMaster: hasMaster}, nil
}

// hasColumn detects optional columns; files written by older versions lack
// children.master_id.
func hasColumn(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return false, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()
	found := false
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, err
		}
		if name == column {
			found = true
		}
	}
	return found, rows.Err()
}

func (d *Document) nodeQuery(where string) string {
	master := "0"
	if d.hasMaster {
		master = "COALESCE(c.master_id, 0)"
	}
	return `
		SELECT n.node_id, n.name, n.syntax, n.tags, n.is_ro, n.is_richtxt,
			n.ts_creation, n.ts_lastsave,
			COALESCE(c.father_id, 0), COALESCE(c.sequence, 0), ` + master + `,
			b.node_id IS NOT NULL
		FROM node n
		LEFT JOIN children c ON c.node_id = n.node_id
		LEFT JOIN bookmark b ON b.node_id = n.node_id
		WHERE ` + where + `
		ORDER BY c.sequence ASC, n.node_id ASC`
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(s scanner) (store.Node, error) {
	var (
		n            store.Node
		name, syntax sql.NullString
		tags         sql.NullString
		isRO, isRich sql.NullInt64
		created      sql.NullFloat64
		saved        sql.NullFloat64
	)
	err := s.Scan(&n.ID, &name, &syntax, &tags, &isRO, &isRich, &created, &saved,
		&n.ParentID, &n.Sequence, &n.MasterID, &n.Bookmarked)
	if err != nil {
		return store.Node{}, err
	}
	n.Name = name.String
	n.Tags = tags.String
	n.Created = created.Float64
	n.LastSaved = saved.Float64

	n.Language = syntax.String
	if n.Language == "" {
		n.Language = store.PlainTextName
		if isRich.Int64&rtRichText != 0 {
			n.Language = store.RichTextName
		}
	}
	n.Syntax = store.ParseSyntax(n.Language)

	ro := isRO.Int64
	n.ReadOnly = ro&roReadOnly != 0
	n.ExcludeSelf = ro&roExcludeSelf != 0
	n.ExcludeChildren = ro&roExcludeChildren != 0
	n.CustomIconID = int(ro >> roIconShift)

	rich := isRich.Int64
	n.IsBold = rich&rtBold != 0
	if rich&rtForeground != 0 {
		n.Foreground = fmt.Sprintf("#%06x", (rich>>rtForegroundShift)&0xffffff)
	}
	return n, nil
}

func (d *Document) queryNodes(ctx context.Context, where string, args ...any) ([]store.Node, error) {
	rows, err := d.db.QueryContext(ctx, d.nodeQuery(where), args...)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()
	var out []store.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (d *Document) Roots(ctx context.Context) ([]store.Node, error) {
	return d.queryNodes(ctx, "COALESCE(c.father_id, 0) = 0")
}

func (d *Document) Children(ctx context.Context, id int64) ([]store.Node, error) {
	if _, err := d.Node(ctx, id); err != nil {
		return nil, err
	}
	return d.queryNodes(ctx, "c.father_id = ?", id)
}

func (d *Document) Node(ctx context.Context, id int64) (store.Node, error) {
	n, err := scanNode(d.db.QueryRowContext(ctx, d.nodeQuery("n.node_id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return store.Node{}, fmt.Errorf("node %d: %w", id, store.ErrNodeNotFound)
	}
	if err != nil {
		return store.Node{}, fmt.Errorf("query node %d: %w", id, err)
	}
	return n, nil
}

// Content parses node.txt. Rich text holds an XML fragment; plain text and
// code hold the raw text.
func (d *Document) Content(ctx context.Context, id int64) ([]store.Run, error) {
	var (
		txt    sql.NullString
		syntax sql.NullString
		isRich sql.NullInt64
	)
	err := d.db.QueryRowContext(ctx, "SELECT txt, syntax, is_richtxt FROM node WHERE node_id = ?", id).
		Scan(&txt, &syntax, &isRich)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("node %d: %w", id, store.ErrNodeNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query content %d: %w", id, err)
	}
	rich := syntax.String == store.RichTextName || (syntax.String == "" && isRich.Int64&rtRichText != 0)
	if !rich {
		if txt.String == "" {
			return nil, nil
		}
		return []store.Run{{Text: txt.String}}, nil
	}
	runs, err := ctxml.ParseFragment([]byte(txt.String))
	if err != nil {
		return nil, fmt.Errorf("%w: node %d: %v", store.ErrMalformedContent, id, err)
	}
	return runs, nil
}

// auxQuery reads all three side tables in one offset-ordered pass. The
// first column names the source table.
const auxQuery = `
	SELECT 'codebox' AS kind, offset, justification, txt, syntax, width, height,
		is_width_pix, do_highl_bra, do_show_linenum,
		'' AS anchor, '' AS filename, '' AS link, 0 AS time, 0 AS col_min, 0 AS col_max
	FROM codebox WHERE node_id = ?
	UNION ALL
	SELECT 'table', offset, justification, txt, '', 0, 0, 0, 0, 0,
		'', '', '', 0, col_min, col_max
	FROM grid WHERE node_id = ?
	UNION ALL
	SELECT 'image', offset, justification, '', '', 0, 0, 0, 0, 0,
		anchor, filename, link, time, 0, 0
	FROM image WHERE node_id = ?
	ORDER BY offset ASC, kind ASC`

func (d *Document) Auxiliaries(ctx context.Context, id int64) ([]store.Aux, error) {
	rows, err := d.db.QueryContext(ctx, auxQuery, id, id, id)
	if err != nil {
		return nil, fmt.Errorf("query auxiliaries %d: %w", id, err)
	}
	defer rows.Close()

	var out []store.Aux
	for rows.Next() {
		var (
			kind                          string
			a                             store.Aux
			just, txt, syntax             sql.NullString
			anchor, filename, link        sql.NullString
			width, height                 sql.NullInt64
			widthPix, brackets, lineNums  sql.NullInt64
			ts                            sql.NullFloat64
			colMin, colMax                sql.NullInt64
		)
		err := rows.Scan(&kind, &a.Offset, &just, &txt, &syntax, &width, &height,
			&widthPix, &brackets, &lineNums, &anchor, &filename, &link, &ts, &colMin, &colMax)
		if err != nil {
			return nil, fmt.Errorf("scan auxiliary: %w", err)
		}
		a.Justification = just.String
		switch kind {
		case "codebox":
			a.Kind = store.AuxCodeBox
			a.Text = txt.String
			a.Syntax = syntax.String
			a.Width = int(width.Int64)
			a.Height = int(height.Int64)
			a.WidthInPixels = widthPix.Int64 != 0
			a.HighlightBrackets = brackets.Int64 != 0
			a.ShowLineNumbers = lineNums.Int64 != 0
		case "table":
			a.Kind = store.AuxTable
			a.ColMin = int(colMin.Int64)
			a.ColMax = int(colMax.Int64)
			if err := ctxml.FillTable(&a, []byte(txt.String)); err != nil {
				return nil, fmt.Errorf("%w: node %d table at %d: %v", store.ErrMalformedContent, id, a.Offset, err)
			}
		case "image":
			a.Kind = store.AuxImage
			a.Anchor = anchor.String
			a.Filename = filename.String
			a.Link = link.String
			a.Time = ts.Float64
		default:
			continue
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if out == nil {
		if _, err := d.Node(ctx, id); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (d *Document) Payload(ctx context.Context, loc content.Locator) ([]byte, error) {
	query := "SELECT png FROM image WHERE node_id = ? AND offset = ?"
	args := []any{loc.NodeID, loc.Offset}
	if loc.Filename != "" {
		query += " AND filename = ?"
		args = append(args, loc.Filename)
	}
	var data []byte
	err := d.db.QueryRowContext(ctx, query+" LIMIT 1", args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("node %d offset %d: %w", loc.NodeID, loc.Offset, store.ErrPayloadNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query payload: %w", err)
	}
	return data, nil
}

func (d *Document) Bookmarks(ctx context.Context) ([]int64, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT node_id FROM bookmark ORDER BY sequence ASC")
	if err != nil {
		return nil, fmt.Errorf("query bookmarks: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (d *Document) Close() error {
	return d.db.Close()
}
