package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dgallion1/notetree/internal/config"
	"github.com/dgallion1/notetree/internal/document"
	"github.com/dgallion1/notetree/internal/jobs"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := config.Load()
	path := cfg.DocumentPath
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	if path == "" {
		_, _ = fmt.Fprintln(os.Stderr, "Usage: notetree <file.ctd|file.ctb>")
		os.Exit(-2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	doc, err := document.Open(ctx, path, log)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(-1)
	}
	defer doc.Close()

	orch := jobs.NewOrchestrator(cfg, doc.Search, log)
	orch.Start(ctx)
	defer orch.Stop()

	repl := NewREPL(doc, orch, cfg, os.Stdout)
	if err = repl.Open(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		return
	}
	for err != io.EOF {
		if err != nil {
			_, _ = fmt.Fprintf(os.Stdout, "%s\n", err.Error())
		}
		err = repl.REPL(ctx)
	}
	_ = repl.Close()
}
