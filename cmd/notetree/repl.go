package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ergochat/readline"

	"github.com/dgallion1/notetree/internal/config"
	"github.com/dgallion1/notetree/internal/document"
	"github.com/dgallion1/notetree/internal/jobs"
	"github.com/dgallion1/notetree/internal/session"
)

// REPL browses one document interactively.
type REPL struct {
	doc  *document.Document
	sess *session.Session
	orch *jobs.Orchestrator
	cfg  config.Config
	out  io.Writer
	rl   *readline.Instance
}

var ErrUnknownCommand = errors.New("command unknown")

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),

	readline.PcItem("ls"),
	readline.PcItem("cd"),
	readline.PcItem("up"),
	readline.PcItem("back"),
	readline.PcItem("pwd"),

	readline.PcItem("cat"),
	readline.PcItem("find"),
	readline.PcItem("search"),
	readline.PcItem("bookmarks"),
	readline.PcItem("open"),
	readline.PcItem("export",
		readline.PcItem("md"),
		readline.PcItem("html"),
		readline.PcItem("docx"),
	),

	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func NewREPL(doc *document.Document, orch *jobs.Orchestrator, cfg config.Config, out io.Writer) *REPL {
	return &REPL{
		doc:  doc,
		sess: session.New(doc.Index),
		orch: orch,
		cfg:  cfg,
		out:  out,
	}
}

func (repl *REPL) Open() (err error) {
	repl.rl, err = readline.NewEx(&readline.Config{
		Prompt:          "/ ",
		HistoryFile:     "/tmp/notetree_history.txt",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return
	}
	repl.rl.CaptureExitSignal()
	return
}

func (repl *REPL) Close() error {
	if repl.rl != nil {
		_ = repl.rl.Close()
		repl.rl = nil
	}
	return nil
}

// REPL reads and runs one line. It returns io.EOF when the user quits.
func (repl *REPL) REPL(ctx context.Context) error {
	line, err := repl.rl.Readline()
	if err == readline.ErrInterrupt && len(line) != 0 {
		return nil
	}
	if err != nil {
		return err
	}
	err = repl.Exec(ctx, line)
	repl.rl.SetPrompt(repl.prompt(ctx))
	return err
}

// Exec runs one command line.
func (repl *REPL) Exec(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "help":
		return repl.CommandHelp()
	// ----- navigation -----
	case "ls", "list":
		return repl.CommandList(ctx)
	case "cd":
		return repl.CommandCd(ctx, arg)
	case "up":
		return repl.CommandUp(ctx)
	case "back":
		return repl.CommandBack(ctx)
	case "pwd":
		return repl.CommandPwd(ctx)
	// ----- content -----
	case "cat", "show":
		return repl.CommandCat(ctx, arg)
	case "find":
		return repl.CommandFind(ctx, arg)
	case "search":
		return repl.CommandSearch(ctx, arg)
	case "bookmarks":
		return repl.CommandBookmarks(ctx)
	case "open":
		return repl.CommandOpen(ctx, arg)
	case "export":
		return repl.CommandExport(ctx, arg)
	case "exit", "quit":
		return io.EOF
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
}

func (repl *REPL) prompt(ctx context.Context) string {
	path, err := repl.sess.Breadcrumb(ctx)
	if err != nil {
		return "? "
	}
	return breadcrumb(path) + " "
}
