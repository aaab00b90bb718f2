package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dgallion1/notetree/internal/export"
	"github.com/dgallion1/notetree/internal/jobs"
	"github.com/dgallion1/notetree/internal/session"
	"github.com/dgallion1/notetree/internal/store"
)

var ErrBadArgs = errors.New("bad arguments")

var ErrNoNode = errors.New("no node open")

const helpText = `ls                         list the current node and its children
cd <id>|..|/               open a node, its parent or the top level
up, back                   go to the parent, or to the previous node
pwd                        show the path to the current node
cat [id]                   print a node as Markdown
find <text>                find text in the current node
search [-all] <text>       search every node; -all includes excluded nodes
bookmarks                  list bookmarked nodes
open <n>                   open entry n of the last search or bookmarks
export md|html|docx <file> [subtree]
exit, quit
`

func (repl *REPL) CommandHelp() error {
	_, err := fmt.Fprint(repl.out, helpText)
	return err
}

func (repl *REPL) CommandList(ctx context.Context) error {
	entries, err := repl.sess.Listing(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		repl.printEntry(e)
	}
	return nil
}

func (repl *REPL) CommandCd(ctx context.Context, arg string) error {
	switch arg {
	case "/", "":
		_, err := repl.sess.Open(ctx, session.Root)
		return err
	case "..":
		return repl.CommandUp(ctx)
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: cd %s", ErrBadArgs, arg)
	}
	_, err = repl.sess.Open(ctx, id)
	return err
}

func (repl *REPL) CommandUp(ctx context.Context) error {
	_, err := repl.sess.Up(ctx)
	return err
}

func (repl *REPL) CommandBack(ctx context.Context) error {
	if !repl.sess.Back() {
		_, err := fmt.Fprintln(repl.out, "no history")
		return err
	}
	return nil
}

func (repl *REPL) CommandPwd(ctx context.Context) error {
	path, err := repl.sess.Breadcrumb(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(repl.out, breadcrumb(path))
	return err
}

func (repl *REPL) CommandCat(ctx context.Context, arg string) error {
	node, err := repl.target(ctx, arg)
	if err != nil {
		return err
	}
	sections, _, err := export.Build(ctx, repl.doc.Index, repl.doc.Decoder, node, false, 1)
	if err != nil {
		return err
	}
	return export.Markdown(repl.out, sections, export.Options{})
}

func (repl *REPL) CommandFind(ctx context.Context, arg string) error {
	if arg == "" {
		return fmt.Errorf("%w: find <text>", ErrBadArgs)
	}
	id := repl.sess.Current()
	if id == session.Root {
		return ErrNoNode
	}
	job, err := repl.orch.Find(id, arg)
	if err != nil {
		return err
	}
	snap, err := wait(ctx, job)
	if err != nil {
		return err
	}
	fmt.Fprintf(repl.out, "%d hits\n", len(snap.Hits))
	for _, h := range snap.Hits {
		if h.Row >= 0 {
			fmt.Fprintf(repl.out, "  block %d cell %d,%d: %d-%d\n", h.Block, h.Row, h.Col, h.Start, h.End)
			continue
		}
		fmt.Fprintf(repl.out, "  block %d: %d-%d\n", h.Block, h.Start, h.End)
	}
	return nil
}

func (repl *REPL) CommandSearch(ctx context.Context, arg string) error {
	skip := repl.cfg.SearchSkipExcluded
	if rest, ok := strings.CutPrefix(arg, "-all "); ok {
		skip = false
		arg = strings.TrimSpace(rest)
	}
	if arg == "" || arg == "-all" {
		return fmt.Errorf("%w: search [-all] <text>", ErrBadArgs)
	}
	job, err := repl.orch.Search(arg, skip)
	if err != nil {
		return err
	}
	snap, err := wait(ctx, job)
	if err != nil {
		return err
	}
	entries, err := repl.sess.ShowMatches(ctx, arg, snap.Matches)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		_, err = fmt.Fprintln(repl.out, "no matches")
		return err
	}
	for i, e := range entries {
		m, _ := repl.sess.Match(e.ID)
		fmt.Fprintf(repl.out, "%3d. %-6d %s (%d)\n", i+1, e.ID, e.Name, m.Count)
		for _, s := range m.Snippets {
			fmt.Fprintf(repl.out, "       %s\n", s)
		}
	}
	return nil
}

func (repl *REPL) CommandBookmarks(ctx context.Context) error {
	entries, err := repl.sess.ShowBookmarks(ctx)
	if err != nil {
		return err
	}
	for i, e := range entries {
		fmt.Fprintf(repl.out, "%3d. %-6d %s\n", i+1, e.ID, e.Name)
	}
	return nil
}

// CommandOpen opens a numbered entry of the last result list.
func (repl *REPL) CommandOpen(ctx context.Context, arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("%w: open <n>", ErrBadArgs)
	}
	id, err := repl.sess.OpenResult(ctx, n-1)
	if err != nil {
		return err
	}
	if id != repl.sess.Current() {
		fmt.Fprintf(repl.out, "match is %d\n", id)
	}
	return repl.CommandList(ctx)
}

func (repl *REPL) CommandExport(ctx context.Context, arg string) error {
	args := strings.Fields(arg)
	if len(args) < 2 || len(args) > 3 || (len(args) == 3 && args[2] != "subtree") {
		return fmt.Errorf("%w: export md|html|docx <file> [subtree]", ErrBadArgs)
	}
	format, path := args[0], args[1]
	node, err := repl.target(ctx, "")
	if err != nil {
		return err
	}
	sections, failed, err := export.Build(ctx, repl.doc.Index, repl.doc.Decoder, node, len(args) == 3, repl.cfg.DecodeConcurrency)
	if err != nil {
		return err
	}
	for _, res := range failed {
		fmt.Fprintf(repl.out, "skipped content of %d: %v\n", res.ID, res.Err)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	switch format {
	case "md":
		err = export.Markdown(f, sections, export.Options{})
	case "html":
		err = export.HTML(f, node.Name, sections, export.Options{})
	case "docx":
		err = export.DOCX(f, sections, export.Options{})
	default:
		err = fmt.Errorf("%w: unknown format %s", ErrBadArgs, format)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return err
	}
	_, err = fmt.Fprintf(repl.out, "wrote %d nodes to %s\n", len(sections), path)
	return err
}

// target resolves an optional node id argument, defaulting to the current
// node.
func (repl *REPL) target(ctx context.Context, arg string) (store.Node, error) {
	id := repl.sess.Current()
	if arg != "" {
		var err error
		if id, err = strconv.ParseInt(arg, 10, 64); err != nil {
			return store.Node{}, fmt.Errorf("%w: %s", ErrBadArgs, arg)
		}
	}
	if id == session.Root {
		return store.Node{}, ErrNoNode
	}
	node, ok, err := repl.doc.Index.Lookup(ctx, id)
	if err != nil {
		return store.Node{}, err
	}
	if !ok {
		return store.Node{}, fmt.Errorf("node %d: %w", id, store.ErrNodeNotFound)
	}
	return node, nil
}

func (repl *REPL) printEntry(e store.Entry) {
	mark := "  "
	if e.IsParent {
		mark = "> "
	}
	name := e.Name
	if e.HasSubnodes && !e.IsParent {
		name += "/"
	}
	if e.MasterID != 0 {
		name += fmt.Sprintf(" -> %d", e.MasterID)
	}
	fmt.Fprintf(repl.out, "%s%-6d %s\n", mark, e.ID, name)
}

// wait blocks until job ends, cancelling it if ctx ends first.
func wait(ctx context.Context, job *jobs.Job) (jobs.JobSnapshot, error) {
	select {
	case <-job.Done():
	case <-ctx.Done():
		job.Cancel()
		<-job.Done()
	}
	snap := job.Snapshot()
	if snap.Status == jobs.StatusFailed {
		return snap, fmt.Errorf("%s failed: %s", snap.Kind, strings.Join(snap.Progress.Errors, "; "))
	}
	return snap, nil
}

func breadcrumb(path []store.Node) string {
	if len(path) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, n := range path {
		b.WriteString("/")
		b.WriteString(n.Name)
	}
	return b.String()
}
